package services

import (
	"context"
	"fmt"
	"log"

	"quiz-match-service/models"
)

type AdvanceOutcome struct {
	Match *models.Match
	// Finished is true only for the call that moved the match to finished.
	Finished bool
	// AlreadyFinished is true when the match was final before this call. Nothing changed.
	AlreadyFinished bool
	Result          *models.MatchResult
}

// MatchStateMachine owns the status and the question pointer of a match:
// waiting -> in-progress -> finished, never backwards.
type MatchStateMachine struct {
	Store      MatchStore
	Aggregator *ResultAggregator
	Notifier   EventNotifier
}

func NewMatchStateMachine(store MatchStore, aggregator *ResultAggregator, notifier EventNotifier) *MatchStateMachine {
	return &MatchStateMachine{Store: store, Aggregator: aggregator, Notifier: notifier}
}

type progressPayload struct {
	MatchID              string             `json:"match_id"`
	CurrentQuestionIndex int                `json:"current_question_index"`
	Status               models.MatchStatus `json:"status"`
	TotalQuestions       int                `json:"total_questions"`
}

func progressOf(m *models.Match) progressPayload {
	return progressPayload{
		MatchID:              m.ID,
		CurrentQuestionIndex: m.CurrentQuestionIndex,
		Status:               m.Status,
		TotalQuestions:       len(m.Questions),
	}
}

// StartAs starts the match on behalf of who. Only the host may start it.
func (sm *MatchStateMachine) StartAs(ctx context.Context, matchID string, who Identity) (*models.Match, error) {
	m, err := sm.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return sm.start(ctx, m, who.UserID != "" && who.UserID == m.HostUserID)
}

// Start moves a waiting match with at least one player into play. verifiedHost
// must be established by the caller.
func (sm *MatchStateMachine) Start(ctx context.Context, matchID string, verifiedHost bool) (*models.Match, error) {
	m, err := sm.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return sm.start(ctx, m, verifiedHost)
}

func (sm *MatchStateMachine) start(ctx context.Context, m *models.Match, verifiedHost bool) (*models.Match, error) {
	if !verifiedHost {
		return nil, fmt.Errorf("%w: only the host can start match %s", ErrForbidden, m.ID)
	}
	if m.Status != models.MatchStatusWaiting {
		return nil, fmt.Errorf("%w: match %s is %s", ErrConflict, m.ID, m.Status)
	}
	if len(m.Players) == 0 {
		return nil, fmt.Errorf("%w: match %s has no players", ErrConflict, m.ID)
	}

	ok, err := sm.Store.TransitionStatus(ctx, m.ID, models.MatchStatusWaiting, models.MatchStatusInProgress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: match %s already left the waiting state", ErrConflict, m.ID)
	}

	started, err := sm.Store.GetMatch(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("▶️ [MATCH] Match %s started by host with %d players", m.ID, len(started.Players))
	publishMatchEvent(ctx, sm.Notifier, m.ID, EventGameStarted, progressOf(started))
	return started, nil
}

// Advance moves to the next question, or finishes the match when the pointer is
// on the last one. Finishing writes the result before returning. Advancing a
// finished match is a no-op.
func (sm *MatchStateMachine) Advance(ctx context.Context, matchID string) (AdvanceOutcome, error) {
	m, err := sm.Store.GetMatch(ctx, matchID)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	if m.Status.IsFinal() {
		return AdvanceOutcome{Match: m, AlreadyFinished: true}, nil
	}
	if m.Status == models.MatchStatusWaiting {
		return AdvanceOutcome{}, fmt.Errorf("%w: match %s has not started", ErrConflict, matchID)
	}

	if !m.IsLastQuestion() {
		m.CurrentQuestionIndex++
		saved, err := sm.Store.SaveProgress(ctx, m)
		if err != nil {
			return AdvanceOutcome{}, err
		}
		if !saved {
			// someone else finished the match since we read it
			current, err := sm.Store.GetMatch(ctx, matchID)
			if err != nil {
				return AdvanceOutcome{}, err
			}
			if current.Status.IsFinal() {
				return AdvanceOutcome{Match: current, AlreadyFinished: true}, nil
			}
			return AdvanceOutcome{}, fmt.Errorf("%w: match %s changed while advancing", ErrConflict, matchID)
		}
		log.Printf("⏭️ [MATCH] Match %s moved to question %d/%d", matchID, m.CurrentQuestionIndex+1, len(m.Questions))
		publishMatchEvent(ctx, sm.Notifier, matchID, EventQuestionUpdate, progressOf(m))
		return AdvanceOutcome{Match: m}, nil
	}

	ok, err := sm.Store.TransitionStatus(ctx, matchID, models.MatchStatusInProgress, models.MatchStatusFinished)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	finished, err := sm.Store.GetMatch(ctx, matchID)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	if !ok {
		if finished.Status.IsFinal() {
			return AdvanceOutcome{Match: finished, AlreadyFinished: true}, nil
		}
		return AdvanceOutcome{}, fmt.Errorf("%w: match %s changed while finishing", ErrConflict, matchID)
	}

	log.Printf("🏁 [MATCH] Match %s finished", matchID)
	out := AdvanceOutcome{Match: finished, Finished: true}

	var aggErr error
	if sm.Aggregator != nil {
		out.Result, _, aggErr = sm.Aggregator.Compute(ctx, finished)
		if aggErr != nil {
			log.Printf("❌ [MATCH] Result for match %s not saved, backfill will retry: %v", matchID, aggErr)
		}
	}

	publishMatchEvent(ctx, sm.Notifier, matchID, EventMatchEnded, progressOf(finished))
	if aggErr != nil {
		return out, fmt.Errorf("%w: saving result: %v", ErrUnavailable, aggErr)
	}
	return out, nil
}
