package app

import (
	"context"
	"errors"
	"strings"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
	"retroboard/api/internal/util"
)

// AddVote casts one vote for the acting participant. Uniqueness and quota are
// pre-checked for precise error kinds and re-validated inside the store's
// commit transaction, so concurrent requests cannot overshoot.
func (s *Service) AddVote(ctx context.Context, slug, cardID, participantID string) (store.Vote, VoteQuota, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Vote{}, VoteQuota{}, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return store.Vote{}, VoteQuota{}, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return store.Vote{}, VoteQuota{}, err
	}
	if err := requirePhase(board, store.PhaseVoting); err != nil {
		return store.Vote{}, VoteQuota{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Vote{}, VoteQuota{}, err
	}

	if _, err := s.votes.GetVote(ctx, card.ID, actor.ID); err == nil {
		return store.Vote{}, VoteQuota{}, conflict("participant already voted on this card")
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Vote{}, VoteQuota{}, err
	}
	used, err := s.votes.CountVotes(ctx, board.ID, actor.ID)
	if err != nil {
		return store.Vote{}, VoteQuota{}, err
	}
	if used >= board.MaxVotesPerUser {
		return store.Vote{}, VoteQuota{}, badRequest("vote quota exceeded")
	}

	vote := store.Vote{
		ID:            util.NewID("vot"),
		BoardID:       board.ID,
		CardID:        card.ID,
		ParticipantID: actor.ID,
	}
	if err := s.votes.InsertVote(ctx, vote, board.MaxVotesPerUser); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.Vote{}, VoteQuota{}, conflict("participant already voted on this card")
		}
		if errors.Is(err, store.ErrQuotaExceeded) {
			return store.Vote{}, VoteQuota{}, badRequest("vote quota exceeded")
		}
		return store.Vote{}, VoteQuota{}, err
	}

	// The vote is committed; broadcast before the quota read so a failed
	// read cannot swallow the event.
	s.publish(ctx, board.ID, events.VoteAdded, actor.ID, events.VoteData{
		VoteID:        vote.ID,
		CardID:        vote.CardID,
		ParticipantID: vote.ParticipantID,
	})
	quota, err := s.voteQuota(ctx, board.ID, board.MaxVotesPerUser, actor.ID)
	if err != nil {
		return store.Vote{}, VoteQuota{}, err
	}
	return vote, quota, nil
}

// RemoveVote retracts the acting participant's own vote on the card.
func (s *Service) RemoveVote(ctx context.Context, slug, cardID, participantID string) (VoteQuota, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return VoteQuota{}, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return VoteQuota{}, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return VoteQuota{}, err
	}
	if err := requirePhase(board, store.PhaseVoting); err != nil {
		return VoteQuota{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return VoteQuota{}, err
	}

	vote, err := s.votes.GetVote(ctx, card.ID, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		return VoteQuota{}, notFound("vote not found")
	}
	if err != nil {
		return VoteQuota{}, err
	}
	if err := s.votes.DeleteVote(ctx, vote.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VoteQuota{}, notFound("vote not found")
		}
		return VoteQuota{}, err
	}

	s.publish(ctx, board.ID, events.VoteRemoved, actor.ID, events.VoteData{
		VoteID:        vote.ID,
		CardID:        vote.CardID,
		ParticipantID: vote.ParticipantID,
	})
	quota, err := s.voteQuota(ctx, board.ID, board.MaxVotesPerUser, actor.ID)
	if err != nil {
		return VoteQuota{}, err
	}
	return quota, nil
}

// AddReaction attaches an emoji reaction, unique per (card, participant,
// emoji). Reactions are open in every phase before CLOSED.
func (s *Service) AddReaction(ctx context.Context, slug, cardID, participantID, emoji string) (store.Reaction, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Reaction{}, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return store.Reaction{}, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return store.Reaction{}, err
	}
	if err := requirePhase(board, store.PhaseWriting, store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return store.Reaction{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Reaction{}, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return store.Reaction{}, badRequest("emoji is required")
	}

	reaction := store.Reaction{
		ID:            util.NewID("rct"),
		BoardID:       board.ID,
		CardID:        card.ID,
		ParticipantID: actor.ID,
		Emoji:         emoji,
	}
	if err := s.reactions.InsertReaction(ctx, reaction); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.Reaction{}, conflict("participant already reacted with this emoji")
		}
		return store.Reaction{}, err
	}
	s.publish(ctx, board.ID, events.ReactionAdded, actor.ID, events.ReactionData{
		ReactionID:    reaction.ID,
		CardID:        reaction.CardID,
		ParticipantID: reaction.ParticipantID,
		Emoji:         reaction.Emoji,
	})
	return reaction, nil
}

// RemoveReaction retracts the acting participant's own reaction.
func (s *Service) RemoveReaction(ctx context.Context, slug, cardID, participantID, emoji string) error {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return err
	}
	if err := requirePhase(board, store.PhaseWriting, store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return err
	}

	reaction, err := s.reactions.GetReaction(ctx, card.ID, actor.ID, emoji)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("reaction not found")
	}
	if err != nil {
		return err
	}
	if err := s.reactions.DeleteReaction(ctx, reaction.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("reaction not found")
		}
		return err
	}
	s.publish(ctx, board.ID, events.ReactionRemoved, actor.ID, events.ReactionData{
		ReactionID:    reaction.ID,
		CardID:        reaction.CardID,
		ParticipantID: reaction.ParticipantID,
		Emoji:         reaction.Emoji,
	})
	return nil
}
