package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries the cards table using plainto_tsquery and ts_rank, with
// ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}

	where := "c.fts @@ " + tsQuery
	if q.TeamName != "" {
		where += " AND b.team_name = $2"
		args = append(args, q.TeamName)
	}

	base := fmt.Sprintf(`
		FROM cards c
		JOIN boards b ON b.id = c.board_id
		WHERE %s`, where)

	countSQL := "SELECT count(*) " + base

	var total int
	if err := p.db.QueryRowContext(context.Background(), countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT c.id, c.board_id, b.slug,
			ts_headline('english', coalesce(c.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			coalesce(c.author_nickname, '') AS author
		%s
		ORDER BY ts_rank(c.fts, %s) DESC
		LIMIT %d OFFSET %d`, tsQuery, base, tsQuery, limit, offset)

	rows, err := p.db.QueryContext(context.Background(), dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.BoardID, &r.BoardSlug, &r.Snippet, &r.Author); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgfts rows: %w", err)
	}

	return results, total, nil
}

// LoadAllRecords reads every card from PostgreSQL for bulk reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]CardRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.board_id, b.slug, c.content,
			coalesce(c.author_nickname, ''), coalesce(b.team_name, '')
		FROM cards c
		JOIN boards b ON b.id = c.board_id`)
	if err != nil {
		return nil, fmt.Errorf("pgfts load cards: %w", err)
	}
	defer rows.Close()

	var records []CardRecord
	for rows.Next() {
		var rec CardRecord
		if err := rows.Scan(&rec.ID, &rec.BoardID, &rec.BoardSlug, &rec.Content, &rec.Author, &rec.TeamName); err != nil {
			return nil, fmt.Errorf("pgfts scan card record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
