package services

import (
	"context"
	"time"

	"quiz-match-service/models"
)

// ClaimResult is what a conditional claim reports back.
type ClaimResult struct {
	Claimed  bool
	NewScore int
}

// MatchFilter narrows a match listing. An empty Status lists every match.
type MatchFilter struct {
	Status models.MatchStatus
	Limit  int
	Offset int
}

type ResultFilter struct {
	UserID string
	Limit  int
	Offset int
}

// MatchStore persists matches. Lookups return an error wrapping ErrNotFound when
// nothing matches, and any I/O failure wraps ErrUnavailable.
type MatchStore interface {
	CreateMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	GetMatchByLobby(ctx context.Context, lobbyID string) (*models.Match, error)
	GetMatchByJoinCode(ctx context.Context, joinCode string) (*models.Match, error)

	// ListMatches pages through matches newest first, with players but without
	// questions, and reports the total before paging.
	ListMatches(ctx context.Context, f MatchFilter) ([]models.Match, int64, error)

	// AddPlayer inserts the player unless one with the same user id is already
	// in the match. added is false when the player was already there.
	AddPlayer(ctx context.Context, matchID string, p models.MatchPlayer) (added bool, err error)

	// ConditionalClaim marks the question at index as answered by userID and
	// increments that player's score, only if the question is still unclaimed.
	// Both writes happen or neither does.
	ConditionalClaim(ctx context.Context, matchID string, index int, userID string, at time.Time) (ClaimResult, error)

	// TransitionStatus moves the match from one status to another and reports
	// whether this call performed the transition.
	TransitionStatus(ctx context.Context, matchID string, from, to models.MatchStatus) (bool, error)

	// SaveProgress writes the question pointer of m while the match is still
	// in progress. saved is false when the match has left in-progress.
	SaveProgress(ctx context.Context, m *models.Match) (saved bool, err error)

	// CreateResultIfAbsent stores r unless a result for the same match exists.
	CreateResultIfAbsent(ctx context.Context, r *models.MatchResult) (created bool, err error)
	GetResult(ctx context.Context, matchID string) (*models.MatchResult, error)
	ListResults(ctx context.Context, f ResultFilter) ([]models.MatchResult, int64, error)

	// ListFinishedWithoutResult returns finished matches that have no result yet.
	ListFinishedWithoutResult(ctx context.Context, limit int) ([]models.Match, error)
}

// CatalogSource hands out random flashcards for new matches.
type CatalogSource interface {
	Sample(ctx context.Context, n int) ([]models.Flashcard, error)
}
