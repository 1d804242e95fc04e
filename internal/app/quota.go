package app

import (
	"context"
)

// remainingVotes never reports below zero even if a quota was lowered after
// votes were cast.
func remainingVotes(maxVotes, used int) int {
	if used >= maxVotes {
		return 0
	}
	return maxVotes - used
}

// VoteQuota is the per-participant accounting snapshot for one board.
type VoteQuota struct {
	Max       int `json:"max"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

func (s *Service) voteQuota(ctx context.Context, boardID string, maxVotes int, participantID string) (VoteQuota, error) {
	used, err := s.votes.CountVotes(ctx, boardID, participantID)
	if err != nil {
		return VoteQuota{}, err
	}
	return VoteQuota{
		Max:       maxVotes,
		Used:      used,
		Remaining: remainingVotes(maxVotes, used),
	}, nil
}
