package poll

import (
	"time"

	"pollboard/internal/store"
	"pollboard/pkg/types"
)

// Aggregator computes the live PollResult from submitted answers. It owns
// no state of its own; every update goes through the store's mutation
// surface so the tally is never observed half-applied.
type Aggregator struct {
	store *store.Store
}

// NewAggregator creates an aggregator over the session store.
func NewAggregator(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// SeedResult builds the zeroed result for a freshly created poll: question
// and options frozen, every option pre-seeded at zero votes.
func (a *Aggregator) SeedResult(p *types.Poll) *types.PollResult {
	result := &types.PollResult{
		PollID:    p.ID,
		Question:  p.Question,
		Options:   append([]string(nil), p.Options...),
		Votes:     make(map[string]int, len(p.Options)),
		Responses: []types.PollResponse{},
		CreatedAt: p.CreatedAt,
	}
	for _, opt := range p.Options {
		result.Votes[opt] = 0
	}
	return result
}

// RecordVote counts one student's answer against the tracked result for
// pollID. A first vote appends a response; a revote decrements the old
// option, overwrites the response in place, and increments the new option,
// leaving TotalVotes unchanged. A revote keeps the response's original
// position, so the list stays ordered by first submission. Returns a
// consistent snapshot for broadcasting.
func (a *Aggregator) RecordVote(pollID, studentID, studentName, answer string) (*types.PollResult, error) {
	return a.store.MutateResult(pollID, func(result *types.PollResult) error {
		if _, ok := result.Votes[answer]; !ok {
			return types.ErrInvalidOption
		}
		now := time.Now()
		for i := range result.Responses {
			if result.Responses[i].StudentID == studentID {
				result.Votes[result.Responses[i].Answer]--
				result.Responses[i] = types.PollResponse{
					StudentID:   studentID,
					StudentName: studentName,
					Answer:      answer,
					Timestamp:   now,
				}
				result.Votes[answer]++
				return nil
			}
		}
		result.Responses = append(result.Responses, types.PollResponse{
			StudentID:   studentID,
			StudentName: studentName,
			Answer:      answer,
			Timestamp:   now,
		})
		result.Votes[answer]++
		result.TotalVotes = len(result.Responses)
		return nil
	})
}
