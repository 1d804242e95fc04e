package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"retroboard/api/internal/search"
	"retroboard/api/internal/store"
)

const participantHeader = "X-Participant-ID"

type HTTPServer struct {
	service    *Service
	search     *search.Service
	corsOrigin string
	heartbeat  time.Duration
}

func NewHTTPServer(service *Service, searchService *search.Service, corsOrigin string, heartbeat time.Duration) *HTTPServer {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &HTTPServer{service: service, search: searchService, corsOrigin: corsOrigin, heartbeat: heartbeat}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+participantHeader)
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.service.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" || parts[1] != "boards" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if len(parts) == 2 {
		if r.Method == http.MethodPost {
			s.handleCreateBoard(w, r)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	slug := parts[2]
	rest := parts[3:]
	s.handleBoard(w, r, slug, rest)
}

func (s *HTTPServer) handleBoard(w http.ResponseWriter, r *http.Request, slug string, rest []string) {
	actor := r.Header.Get(participantHeader)

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		snapshot, err := s.service.GetBoardSnapshot(r.Context(), slug, actor)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)

	case len(rest) == 1 && rest[0] == "phase" && r.Method == http.MethodPost:
		var body struct {
			Phase string `json:"phase"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.AdvancePhase(r.Context(), slug, actor, body.Phase)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, board)

	case len(rest) == 1 && rest[0] == "carryover" && r.Method == http.MethodGet:
		items, err := s.service.CarryOverItems(r.Context(), slug)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case len(rest) == 3 && rest[0] == "carryover" && rest[2] == "status" && r.Method == http.MethodPost:
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.UpdateCarryOverStatus(r.Context(), slug, rest[1], actor, body.Status)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case len(rest) == 1 && rest[0] == "participants" && r.Method == http.MethodPost:
		var body struct {
			Nickname      string `json:"nickname"`
			IsFacilitator bool   `json:"isFacilitator"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		participant, err := s.service.RegisterParticipant(r.Context(), slug, body.Nickname, body.IsFacilitator)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, participant)

	case len(rest) == 1 && rest[0] == "timer" && r.Method == http.MethodPost:
		var body struct {
			Action  string `json:"action"`
			Seconds int    `json:"seconds"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		state, err := s.service.ControlTimer(r.Context(), slug, actor, body.Action, body.Seconds)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case len(rest) == 1 && rest[0] == "stream" && r.Method == http.MethodGet:
		s.handleStream(w, r, slug)

	case len(rest) >= 1 && rest[0] == "cards":
		s.handleCards(w, r, slug, actor, rest[1:])

	case len(rest) >= 2 && rest[0] == "memos":
		s.handleMemos(w, r, slug, actor, rest[1:])

	case len(rest) >= 1 && rest[0] == "action-items":
		s.handleActionItems(w, r, slug, actor, rest[1:])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var input CreateBoardInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	created, err := s.service.CreateBoard(r.Context(), input)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleCards(w http.ResponseWriter, r *http.Request, slug, actor string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body struct {
			ColumnID string `json:"columnId"`
			Content  string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.CreateCard(r.Context(), slug, body.ColumnID, actor, body.Content)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.indexCard(r.Context(), slug, card)
		writeJSON(w, http.StatusCreated, card)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.UpdateCardContent(r.Context(), slug, rest[0], actor, body.Content)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.indexCard(r.Context(), slug, card)
		writeJSON(w, http.StatusOK, card)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteCard(r.Context(), slug, rest[0], actor); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.removeCardFromIndex(rest[0])
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	case len(rest) == 2 && rest[1] == "move" && r.Method == http.MethodPost:
		var body struct {
			OverID string `json:"overId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, moved, err := s.service.MoveCard(r.Context(), slug, rest[0], body.OverID, actor)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"card": card, "moved": moved})

	case len(rest) == 2 && rest[1] == "discussed" && r.Method == http.MethodPost:
		var body struct {
			Discussed       bool `json:"discussed"`
			DiscussionOrder int  `json:"discussionOrder"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.MarkCardDiscussed(r.Context(), slug, rest[0], actor, body.Discussed, body.DiscussionOrder)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, card)

	case len(rest) == 2 && rest[1] == "convert" && r.Method == http.MethodPost:
		var body struct {
			AssigneeID *string `json:"assigneeId,omitempty"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.ConvertCardToActionItem(r.Context(), slug, rest[0], actor, body.AssigneeID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	case len(rest) == 2 && rest[1] == "votes" && r.Method == http.MethodPost:
		vote, quota, err := s.service.AddVote(r.Context(), slug, rest[0], actor)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"vote": vote, "quota": quota})

	case len(rest) == 2 && rest[1] == "votes" && r.Method == http.MethodDelete:
		quota, err := s.service.RemoveVote(r.Context(), slug, rest[0], actor)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quota": quota})

	case len(rest) == 2 && rest[1] == "reactions" && r.Method == http.MethodPost:
		var body struct {
			Emoji string `json:"emoji"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		reaction, err := s.service.AddReaction(r.Context(), slug, rest[0], actor, body.Emoji)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, reaction)

	case len(rest) == 2 && rest[1] == "reactions" && r.Method == http.MethodDelete:
		emoji := r.URL.Query().Get("emoji")
		if err := s.service.RemoveReaction(r.Context(), slug, rest[0], actor, emoji); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	case len(rest) == 2 && rest[1] == "memos" && r.Method == http.MethodPost:
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		memo, err := s.service.CreateMemo(r.Context(), slug, rest[0], actor, body.Content)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, memo)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMemos(w http.ResponseWriter, r *http.Request, slug, actor string, rest []string) {
	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		memo, err := s.service.UpdateMemoContent(r.Context(), slug, rest[0], actor, body.Content)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, memo)
	case http.MethodDelete:
		if err := s.service.DeleteMemo(r.Context(), slug, rest[0], actor); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleActionItems(w http.ResponseWriter, r *http.Request, slug, actor string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var input CreateActionItemInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.CreateActionItem(r.Context(), slug, actor, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdateActionItemInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.UpdateActionItem(r.Context(), slug, rest[0], actor, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case len(rest) == 2 && rest[1] == "status" && r.Method == http.MethodPost:
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.UpdateActionItemStatus(r.Context(), slug, rest[0], actor, body.Status)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteActionItem(r.Context(), slug, rest[0], actor); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
		return
	}
	query := search.Query{
		Text:     r.URL.Query().Get("q"),
		TeamName: r.URL.Query().Get("team"),
	}
	results, total, err := s.search.Search(query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SEARCH_FAILED", "Search failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, search.Response{Results: results, Total: total, Query: query.Text})
}

// indexCard keeps the search index in step with card mutations. Best-effort:
// the mutation already succeeded.
func (s *HTTPServer) indexCard(ctx context.Context, slug string, card store.Card) {
	if s.search == nil {
		return
	}
	var team string
	if board, err := s.service.boardBySlug(ctx, slug); err == nil {
		team = board.TeamName
	}
	if err := s.search.IndexCard(search.CardRecord{
		ID:        card.ID,
		BoardID:   card.BoardID,
		BoardSlug: slug,
		Content:   card.Content,
		Author:    card.AuthorNickname,
		TeamName:  team,
	}); err != nil {
		s.service.logf("index card %s: %v", card.ID, err)
	}
}

func (s *HTTPServer) removeCardFromIndex(cardID string) {
	if s.search == nil {
		return
	}
	if err := s.search.DeleteCard(cardID); err != nil {
		s.service.logf("remove card %s from index: %v", cardID, err)
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
