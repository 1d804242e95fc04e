package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// lockBoard serializes mutations per board. Every mutating transaction takes
// the board row lock first so uniqueness and quota checks happen against
// committed state, not a stale read.
func lockBoard(ctx context.Context, tx *sql.Tx, boardID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM boards WHERE id=$1 FOR UPDATE`, boardID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock board: %w", err)
	}
	return nil
}

// Boards

func (s *PostgresStore) CreateBoard(ctx context.Context, board Board, columns []Column, facilitator Participant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create board: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO boards (id, slug, title, framework, phase, max_votes_per_user, is_anonymous, team_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, board.ID, board.Slug, board.Title, board.Framework, board.Phase, board.MaxVotesPerUser, board.IsAnonymous, board.TeamName)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert board: %w", err)
	}

	for _, column := range columns {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO columns (id, board_id, name, color, sort_order)
			VALUES ($1, $2, $3, $4, $5)
		`, column.ID, column.BoardID, column.Name, column.Color, column.SortOrder)
		if err != nil {
			return fmt.Errorf("insert column: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participants (id, board_id, nickname, is_facilitator, is_online)
		VALUES ($1, $2, $3, $4, $5)
	`, facilitator.ID, facilitator.BoardID, facilitator.Nickname, facilitator.IsFacilitator, facilitator.IsOnline)
	if err != nil {
		return fmt.Errorf("insert facilitator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create board: %w", err)
	}
	return nil
}

const boardColumns = `id, slug, title, framework, phase, max_votes_per_user, is_anonymous, team_name, closed_at, created_at, updated_at`

func scanBoard(row *sql.Row) (Board, error) {
	var board Board
	err := row.Scan(&board.ID, &board.Slug, &board.Title, &board.Framework, &board.Phase,
		&board.MaxVotesPerUser, &board.IsAnonymous, &board.TeamName, &board.ClosedAt,
		&board.CreatedAt, &board.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Board{}, ErrNotFound
	}
	if err != nil {
		return Board{}, fmt.Errorf("scan board: %w", err)
	}
	return board, nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id=$1`, boardID)
	return scanBoard(row)
}

func (s *PostgresStore) GetBoardBySlug(ctx context.Context, slug string) (Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE slug=$1`, slug)
	return scanBoard(row)
}

func (s *PostgresStore) UpdateBoardPhase(ctx context.Context, boardID, phase string, closedAt *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE boards SET phase=$2, closed_at=$3, updated_at=NOW() WHERE id=$1
	`, boardID, phase, closedAt)
	if err != nil {
		return fmt.Errorf("update board phase: %w", err)
	}
	return requireRow(result)
}

// LatestClosedBoardByTeam returns the most recently closed board sharing the
// team name, excluding the board identified by excludeID.
func (s *PostgresStore) LatestClosedBoardByTeam(ctx context.Context, teamName, excludeID string) (Board, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+boardColumns+` FROM boards
		WHERE team_name=$1 AND phase=$2 AND closed_at IS NOT NULL AND id <> $3
		ORDER BY closed_at DESC LIMIT 1
	`, teamName, PhaseClosed, excludeID)
	return scanBoard(row)
}

// Columns

func (s *PostgresStore) GetColumn(ctx context.Context, columnID string) (Column, error) {
	var column Column
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, name, color, sort_order FROM columns WHERE id=$1
	`, columnID).Scan(&column.ID, &column.BoardID, &column.Name, &column.Color, &column.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return Column{}, ErrNotFound
	}
	if err != nil {
		return Column{}, fmt.Errorf("get column: %w", err)
	}
	return column, nil
}

func (s *PostgresStore) ListColumns(ctx context.Context, boardID string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, name, color, sort_order FROM columns
		WHERE board_id=$1 ORDER BY sort_order ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.ID, &column.BoardID, &column.Name, &column.Color, &column.SortOrder); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

// Participants

func (s *PostgresStore) CreateParticipant(ctx context.Context, participant Participant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (id, board_id, nickname, is_facilitator, is_online)
		VALUES ($1, $2, $3, $4, $5)
	`, participant.ID, participant.BoardID, participant.Nickname, participant.IsFacilitator, participant.IsOnline)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetParticipant(ctx context.Context, participantID string) (Participant, error) {
	var p Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, nickname, is_facilitator, is_online, created_at
		FROM participants WHERE id=$1
	`, participantID).Scan(&p.ID, &p.BoardID, &p.Nickname, &p.IsFacilitator, &p.IsOnline, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Participant{}, ErrNotFound
	}
	if err != nil {
		return Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListParticipants(ctx context.Context, boardID string) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, nickname, is_facilitator, is_online, created_at
		FROM participants WHERE board_id=$1 ORDER BY created_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.BoardID, &p.Nickname, &p.IsFacilitator, &p.IsOnline, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *PostgresStore) SetParticipantOnline(ctx context.Context, participantID string, online bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE participants SET is_online=$2 WHERE id=$1
	`, participantID, online)
	if err != nil {
		return fmt.Errorf("set participant online: %w", err)
	}
	return requireRow(result)
}

// Cards

const cardColumns = `id, board_id, column_id, content, author_id, author_nickname, sort_order, is_discussed, discussion_order, created_at, updated_at`

func scanCardRow(scan func(dest ...any) error) (Card, error) {
	var card Card
	err := scan(&card.ID, &card.BoardID, &card.ColumnID, &card.Content, &card.AuthorID,
		&card.AuthorNickname, &card.SortOrder, &card.IsDiscussed, &card.DiscussionOrder,
		&card.CreatedAt, &card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Card{}, ErrNotFound
	}
	if err != nil {
		return Card{}, fmt.Errorf("scan card: %w", err)
	}
	return card, nil
}

func (s *PostgresStore) InsertCard(ctx context.Context, card Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, board_id, column_id, content, author_id, author_nickname, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, card.ID, card.BoardID, card.ColumnID, card.Content, card.AuthorID, card.AuthorNickname, card.SortOrder)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1`, cardID)
	return scanCardRow(row.Scan)
}

func (s *PostgresStore) ListCards(ctx context.Context, boardID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards WHERE board_id=$1 ORDER BY sort_order ASC, created_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		card, err := scanCardRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// ListColumnCards returns the cards of one column ordered by sort_order,
// optionally excluding one card id (the card being moved).
func (s *PostgresStore) ListColumnCards(ctx context.Context, columnID, excludeCardID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE column_id=$1 AND id <> $2 ORDER BY sort_order ASC, created_at ASC
	`, columnID, excludeCardID)
	if err != nil {
		return nil, fmt.Errorf("list column cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		card, err := scanCardRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (s *PostgresStore) UpdateCardContent(ctx context.Context, cardID, content string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cards SET content=$2, updated_at=NOW() WHERE id=$1
	`, cardID, content)
	if err != nil {
		return fmt.Errorf("update card content: %w", err)
	}
	return requireRow(result)
}

// UpdateCardPlacement moves a card to a column/sort position in one statement
// under the board lock, so concurrent moves of the same card serialize.
func (s *PostgresStore) UpdateCardPlacement(ctx context.Context, boardID, cardID string, columnID *string, sortOrder int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin move card: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockBoard(ctx, tx, boardID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE cards SET column_id=$2, sort_order=$3, updated_at=NOW() WHERE id=$1
	`, cardID, columnID, sortOrder)
	if err != nil {
		return fmt.Errorf("move card: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit move card: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetCardDiscussed(ctx context.Context, cardID string, discussed bool, discussionOrder int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cards SET is_discussed=$2, discussion_order=$3, updated_at=NOW() WHERE id=$1
	`, cardID, discussed, discussionOrder)
	if err != nil {
		return fmt.Errorf("set card discussed: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteCard(ctx context.Context, cardID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id=$1`, cardID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireRow(result)
}

// Votes

// InsertVote enforces the (card, participant) uniqueness and the per-board
// quota at commit time: the board row lock serializes concurrent votes from
// the same participant, and the count runs inside the same transaction.
func (s *PostgresStore) InsertVote(ctx context.Context, vote Vote, maxVotes int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockBoard(ctx, tx, vote.BoardID); err != nil {
		return err
	}

	var used int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes WHERE board_id=$1 AND participant_id=$2
	`, vote.BoardID, vote.ParticipantID).Scan(&used)
	if err != nil {
		return fmt.Errorf("count votes: %w", err)
	}
	if used >= maxVotes {
		return ErrQuotaExceeded
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO votes (id, board_id, card_id, participant_id)
		VALUES ($1, $2, $3, $4)
	`, vote.ID, vote.BoardID, vote.CardID, vote.ParticipantID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVote(ctx context.Context, cardID, participantID string) (Vote, error) {
	var vote Vote
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, card_id, participant_id, created_at
		FROM votes WHERE card_id=$1 AND participant_id=$2
	`, cardID, participantID).Scan(&vote.ID, &vote.BoardID, &vote.CardID, &vote.ParticipantID, &vote.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Vote{}, ErrNotFound
	}
	if err != nil {
		return Vote{}, fmt.Errorf("get vote: %w", err)
	}
	return vote, nil
}

func (s *PostgresStore) DeleteVote(ctx context.Context, voteID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE id=$1`, voteID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) CountVotes(ctx context.Context, boardID, participantID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes WHERE board_id=$1 AND participant_id=$2
	`, boardID, participantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListVotes(ctx context.Context, boardID string) ([]Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, card_id, participant_id, created_at FROM votes WHERE board_id=$1
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var vote Vote
		if err := rows.Scan(&vote.ID, &vote.BoardID, &vote.CardID, &vote.ParticipantID, &vote.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

// Reactions

func (s *PostgresStore) InsertReaction(ctx context.Context, reaction Reaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockBoard(ctx, tx, reaction.BoardID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reactions (id, board_id, card_id, participant_id, emoji)
		VALUES ($1, $2, $3, $4, $5)
	`, reaction.ID, reaction.BoardID, reaction.CardID, reaction.ParticipantID, reaction.Emoji)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert reaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReaction(ctx context.Context, cardID, participantID, emoji string) (Reaction, error) {
	var reaction Reaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, card_id, participant_id, emoji, created_at
		FROM reactions WHERE card_id=$1 AND participant_id=$2 AND emoji=$3
	`, cardID, participantID, emoji).Scan(&reaction.ID, &reaction.BoardID, &reaction.CardID,
		&reaction.ParticipantID, &reaction.Emoji, &reaction.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Reaction{}, ErrNotFound
	}
	if err != nil {
		return Reaction{}, fmt.Errorf("get reaction: %w", err)
	}
	return reaction, nil
}

func (s *PostgresStore) DeleteReaction(ctx context.Context, reactionID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reactions WHERE id=$1`, reactionID)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) ListReactions(ctx context.Context, boardID string) ([]Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, card_id, participant_id, emoji, created_at
		FROM reactions WHERE board_id=$1 ORDER BY created_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	var reactions []Reaction
	for rows.Next() {
		var reaction Reaction
		if err := rows.Scan(&reaction.ID, &reaction.BoardID, &reaction.CardID,
			&reaction.ParticipantID, &reaction.Emoji, &reaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions = append(reactions, reaction)
	}
	return reactions, rows.Err()
}

// Memos

func (s *PostgresStore) InsertMemo(ctx context.Context, memo Memo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memos (id, board_id, card_id, content, author_id, author_nickname)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, memo.ID, memo.BoardID, memo.CardID, memo.Content, memo.AuthorID, memo.AuthorNickname)
	if err != nil {
		return fmt.Errorf("insert memo: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMemo(ctx context.Context, memoID string) (Memo, error) {
	var memo Memo
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, card_id, content, author_id, author_nickname, created_at, updated_at
		FROM memos WHERE id=$1
	`, memoID).Scan(&memo.ID, &memo.BoardID, &memo.CardID, &memo.Content,
		&memo.AuthorID, &memo.AuthorNickname, &memo.CreatedAt, &memo.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Memo{}, ErrNotFound
	}
	if err != nil {
		return Memo{}, fmt.Errorf("get memo: %w", err)
	}
	return memo, nil
}

func (s *PostgresStore) UpdateMemoContent(ctx context.Context, memoID, content string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE memos SET content=$2, updated_at=NOW() WHERE id=$1
	`, memoID, content)
	if err != nil {
		return fmt.Errorf("update memo: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteMemo(ctx context.Context, memoID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memos WHERE id=$1`, memoID)
	if err != nil {
		return fmt.Errorf("delete memo: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) ListMemos(ctx context.Context, boardID string) ([]Memo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, card_id, content, author_id, author_nickname, created_at, updated_at
		FROM memos WHERE board_id=$1 ORDER BY created_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	defer rows.Close()

	var memos []Memo
	for rows.Next() {
		var memo Memo
		if err := rows.Scan(&memo.ID, &memo.BoardID, &memo.CardID, &memo.Content,
			&memo.AuthorID, &memo.AuthorNickname, &memo.CreatedAt, &memo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan memo: %w", err)
		}
		memos = append(memos, memo)
	}
	return memos, rows.Err()
}

// Action items

const actionItemColumns = `id, board_id, card_id, content, assignee_id, status, priority, due_date, sort_order, created_at, updated_at`

func scanActionItemRow(scan func(dest ...any) error) (ActionItem, error) {
	var item ActionItem
	err := scan(&item.ID, &item.BoardID, &item.CardID, &item.Content, &item.AssigneeID,
		&item.Status, &item.Priority, &item.DueDate, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ActionItem{}, ErrNotFound
	}
	if err != nil {
		return ActionItem{}, fmt.Errorf("scan action item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertActionItem(ctx context.Context, item ActionItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_items (id, board_id, card_id, content, assignee_id, status, priority, due_date, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.BoardID, item.CardID, item.Content, item.AssigneeID, item.Status, item.Priority, item.DueDate, item.SortOrder)
	if err != nil {
		return fmt.Errorf("insert action item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActionItem(ctx context.Context, itemID string) (ActionItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionItemColumns+` FROM action_items WHERE id=$1`, itemID)
	return scanActionItemRow(row.Scan)
}

func (s *PostgresStore) UpdateActionItem(ctx context.Context, item ActionItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE action_items
		SET content=$2, assignee_id=$3, priority=$4, due_date=$5, sort_order=$6, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Content, item.AssigneeID, item.Priority, item.DueDate, item.SortOrder)
	if err != nil {
		return fmt.Errorf("update action item: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) UpdateActionItemStatus(ctx context.Context, itemID, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE action_items SET status=$2, updated_at=NOW() WHERE id=$1
	`, itemID, status)
	if err != nil {
		return fmt.Errorf("update action item status: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteActionItem(ctx context.Context, itemID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM action_items WHERE id=$1`, itemID)
	if err != nil {
		return fmt.Errorf("delete action item: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) ListActionItems(ctx context.Context, boardID string) ([]ActionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actionItemColumns+` FROM action_items
		WHERE board_id=$1 ORDER BY sort_order ASC, created_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	defer rows.Close()

	var items []ActionItem
	for rows.Next() {
		item, err := scanActionItemRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListUnfinishedActionItems(ctx context.Context, boardID string) ([]ActionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actionItemColumns+` FROM action_items
		WHERE board_id=$1 AND status <> $2 ORDER BY sort_order ASC, created_at ASC
	`, boardID, StatusDone)
	if err != nil {
		return nil, fmt.Errorf("list unfinished action items: %w", err)
	}
	defer rows.Close()

	var items []ActionItem
	for rows.Next() {
		item, err := scanActionItemRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
