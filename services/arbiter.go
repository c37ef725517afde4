package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"quiz-match-service/models"
)

const defaultPlayerName = "Player"

// Identity is a caller already verified by the gateway or a token.
type Identity struct {
	UserID      string
	DisplayName string
}

type SubmitOutcome struct {
	Correct       bool `json:"correct"`
	First         bool `json:"first"`
	NewScore      int  `json:"new_score,omitempty"`
	QuestionIndex int  `json:"question_index"`
}

// AnswerArbiter settles which player gets the point for a question. The only
// coordination between concurrent submissions is the store's conditional claim.
type AnswerArbiter struct {
	Store    MatchStore
	Matcher  AnswerMatcher
	Notifier EventNotifier
	Now      func() time.Time
}

func NewAnswerArbiter(store MatchStore, matcher AnswerMatcher, notifier EventNotifier) *AnswerArbiter {
	if matcher == nil {
		matcher = LenientMatcher{}
	}
	return &AnswerArbiter{Store: store, Matcher: matcher, Notifier: notifier, Now: time.Now}
}

func (a *AnswerArbiter) Submit(ctx context.Context, matchID string, who Identity, answer string) (SubmitOutcome, error) {
	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(who.UserID) == "" {
		return SubmitOutcome{}, fmt.Errorf("%w: match id and user id are required", ErrInvalidInput)
	}
	if strings.TrimSpace(answer) == "" {
		return SubmitOutcome{}, fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}

	match, err := a.Store.GetMatch(ctx, matchID)
	if err != nil {
		return SubmitOutcome{}, err
	}
	if match.Status.IsFinal() {
		return SubmitOutcome{}, fmt.Errorf("%w: match %s is finished", ErrConflict, matchID)
	}

	idx := match.CurrentQuestionIndex
	q, ok := match.CurrentQuestion()
	if !ok {
		return SubmitOutcome{}, fmt.Errorf("%w: no question at index %d of match %s", ErrInvalidState, idx, matchID)
	}

	// A first answer on a waiting match starts it.
	if match.Status == models.MatchStatusWaiting {
		activated, err := a.Store.TransitionStatus(ctx, matchID, models.MatchStatusWaiting, models.MatchStatusInProgress)
		if err != nil {
			return SubmitOutcome{}, err
		}
		if activated {
			log.Printf("▶️ [ARBITER] Match %s activated by first answer from %s", matchID, who.UserID)
		}
	}

	out := SubmitOutcome{QuestionIndex: idx}
	if !a.Matcher.Matches(q.Answer, answer) {
		return out, nil
	}
	out.Correct = true

	name := strings.TrimSpace(who.DisplayName)
	if name == "" {
		name = defaultPlayerName
	}
	now := a.Now().UTC()
	if _, err := a.Store.AddPlayer(ctx, matchID, models.MatchPlayer{
		UserID:      who.UserID,
		DisplayName: name,
		JoinedAt:    now,
	}); err != nil {
		return SubmitOutcome{}, err
	}

	res, err := a.Store.ConditionalClaim(ctx, matchID, idx, who.UserID, now)
	if err != nil {
		return SubmitOutcome{}, err
	}
	if res.Claimed {
		out.First = true
		out.NewScore = res.NewScore
		log.Printf("🏆 [ARBITER] %s claimed question %d of match %s (score=%d)", who.UserID, idx, matchID, res.NewScore)
	} else {
		log.Printf("⏱️ [ARBITER] %s answered question %d of match %s correctly but was not first", who.UserID, idx, matchID)
	}

	publishMatchEvent(ctx, a.Notifier, matchID, EventScoreUpdate, map[string]string{"match_id": matchID})
	return out, nil
}
