package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"quiz-match-service/models"

	"github.com/google/uuid"
)

const (
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeLength = 6
	lobbyIDLength  = 8
	maxQuestions   = 50
	createAttempts = 5

	defaultResultsLimit = 10
	maxResultsLimit     = 100
)

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// MatchService covers everything around a match that is not the lifecycle
// itself: creating, joining, looking up and listing results.
type MatchService struct {
	Store                MatchStore
	Catalog              CatalogSource
	Aggregator           *ResultAggregator
	Notifier             EventNotifier
	DefaultQuestionCount int
	Now                  func() time.Time
}

func NewMatchService(store MatchStore, catalog CatalogSource, aggregator *ResultAggregator, notifier EventNotifier, defaultQuestions int) *MatchService {
	if defaultQuestions <= 0 {
		defaultQuestions = 5
	}
	return &MatchService{
		Store:                store,
		Catalog:              catalog,
		Aggregator:           aggregator,
		Notifier:             notifier,
		DefaultQuestionCount: defaultQuestions,
		Now:                  time.Now,
	}
}

// MatchView is a match as shown to players, with its score check attached.
type MatchView struct {
	models.Match
	Validation models.ScoreIntegrity `json:"_validation"`
}

// Create snapshots numQuestions random flashcards into a new waiting match
// hosted by host. The host is the first player.
func (s *MatchService) Create(ctx context.Context, host Identity, hostName string, numQuestions int) (*models.Match, error) {
	if strings.TrimSpace(host.UserID) == "" {
		return nil, fmt.Errorf("%w: host user id is required", ErrInvalidInput)
	}
	if numQuestions <= 0 {
		numQuestions = s.DefaultQuestionCount
	}
	if numQuestions > maxQuestions {
		return nil, fmt.Errorf("%w: at most %d questions per match", ErrInvalidInput, maxQuestions)
	}

	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		hostName = strings.TrimSpace(host.DisplayName)
	}
	if hostName == "" {
		hostName = defaultHostName
	}

	cards, err := s.Catalog.Sample(ctx, numQuestions)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: question catalog is empty", ErrUnavailable)
	}

	questions := make([]models.MatchQuestion, len(cards))
	for i, c := range cards {
		questions[i] = models.MatchQuestion{
			Position:     i,
			FlashcardID:  c.ID,
			QuestionText: c.Question,
			Options:      c.Options,
			Answer:       c.Answer,
		}
	}

	now := s.Now().UTC()
	var m *models.Match
	for attempt := 1; ; attempt++ {
		m = &models.Match{
			ID:         uuid.NewString(),
			LobbyID:    randomCode(lobbyIDLength),
			JoinCode:   randomCode(joinCodeLength),
			HostUserID: host.UserID,
			Status:     models.MatchStatusWaiting,
			Questions:  append([]models.MatchQuestion(nil), questions...),
			Players: []models.MatchPlayer{{
				UserID:      host.UserID,
				DisplayName: hostName,
				JoinedAt:    now,
			}},
		}
		err = s.Store.CreateMatch(ctx, m)
		if err == nil {
			break
		}
		// lobby id or join code collision: draw new codes
		if !errors.Is(err, ErrConflict) || attempt == createAttempts {
			return nil, err
		}
		log.Printf("🔁 [MATCH] Code collision creating match, retrying (%d/%d)", attempt, createAttempts)
	}

	log.Printf("✅ [MATCH] Created match %s (lobby=%s, code=%s, %d questions) for host %s",
		m.ID, m.LobbyID, m.JoinCode, len(m.Questions), host.UserID)

	publishMatchEvent(ctx, s.Notifier, m.ID, EventMatchCreated, map[string]any{
		"match_id":      m.ID,
		"host":          map[string]string{"user_id": host.UserID, "display_name": hostName},
		"num_questions": len(m.Questions),
	})
	return m, nil
}

// Join adds who to the waiting match behind joinCode. Joining twice is not an
// error while the match is waiting; once it started nobody can join, players included.
func (s *MatchService) Join(ctx context.Context, joinCode string, who Identity) (*models.Match, bool, error) {
	code := strings.ToUpper(strings.TrimSpace(joinCode))
	if code == "" {
		return nil, false, fmt.Errorf("%w: join code is required", ErrInvalidInput)
	}
	if strings.TrimSpace(who.UserID) == "" {
		return nil, false, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	m, err := s.Store.GetMatchByJoinCode(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if m.Status != models.MatchStatusWaiting {
		return nil, false, fmt.Errorf("%w: match %s is %s and can no longer be joined", ErrConflict, m.ID, m.Status)
	}
	if _, already := m.Player(who.UserID); already {
		return m, false, nil
	}

	name := strings.TrimSpace(who.DisplayName)
	if name == "" {
		name = defaultPlayerName
	}
	added, err := s.Store.AddPlayer(ctx, m.ID, models.MatchPlayer{
		UserID:      who.UserID,
		DisplayName: name,
		JoinedAt:    s.Now().UTC(),
	})
	if err != nil {
		return nil, false, err
	}

	joined, err := s.Store.GetMatch(ctx, m.ID)
	if err != nil {
		return nil, false, err
	}
	if added {
		log.Printf("👋 [MATCH] %s joined match %s (%d players)", who.UserID, m.ID, len(joined.Players))
		publishMatchEvent(ctx, s.Notifier, m.ID, EventPlayerJoined, map[string]any{
			"match_id": m.ID,
			"lobby_id": m.LobbyID,
			"player":   map[string]string{"user_id": who.UserID, "display_name": name},
			"players":  joined.Players,
		})
	}
	return joined, added, nil
}

func (s *MatchService) view(m *models.Match) *MatchView {
	v := &MatchView{Match: m.Public(), Validation: m.Integrity()}
	if !v.Validation.IsValid {
		log.Printf("⚠️ [MATCH] Score mismatch in match %s: %d points awarded for %d answered questions",
			m.ID, v.Validation.TotalPointsAwarded, v.Validation.QuestionsAnswered)
	}
	return v
}

func (s *MatchService) Get(ctx context.Context, matchID string) (*MatchView, error) {
	m, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.view(m), nil
}

func (s *MatchService) GetByLobby(ctx context.Context, lobbyID string) (*MatchView, error) {
	m, err := s.Store.GetMatchByLobby(ctx, strings.ToUpper(strings.TrimSpace(lobbyID)))
	if err != nil {
		return nil, err
	}
	return s.view(m), nil
}

func (s *MatchService) GetResult(ctx context.Context, matchID string) (*models.MatchResult, error) {
	return s.Store.GetResult(ctx, matchID)
}

// EnsureResult returns the result of a finished match, computing it if the
// finishing call did not get to it.
func (s *MatchService) EnsureResult(ctx context.Context, matchID string) (*models.MatchResult, bool, error) {
	m, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, false, err
	}
	if !m.Status.IsFinal() {
		return nil, false, fmt.Errorf("%w: match %s is %s", ErrConflict, matchID, m.Status)
	}
	return s.Aggregator.Compute(ctx, m)
}

// MatchSummary is one row of the lobby list.
type MatchSummary struct {
	MatchID              string               `json:"match_id"`
	LobbyID              string               `json:"lobby_id"`
	JoinCode             string               `json:"join_code"`
	HostUserID           string               `json:"host_user_id"`
	Status               models.MatchStatus   `json:"status"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	Players              []models.MatchPlayer `json:"players"`
	CreatedAt            time.Time            `json:"created_at"`
}

type MatchPage struct {
	Matches []MatchSummary `json:"matches"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// ListMatches pages through matches newest first, optionally only those in one status.
func (s *MatchService) ListMatches(ctx context.Context, f MatchFilter) (*MatchPage, error) {
	switch f.Status {
	case "", models.MatchStatusWaiting, models.MatchStatusInProgress, models.MatchStatusFinished, models.MatchStatusEnded:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)

	matches, total, err := s.Store.ListMatches(ctx, f)
	if err != nil {
		return nil, err
	}
	page := &MatchPage{
		Matches: make([]MatchSummary, 0, len(matches)),
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasMore: int64(f.Offset+f.Limit) < total,
	}
	for _, m := range matches {
		page.Matches = append(page.Matches, MatchSummary{
			MatchID:              m.ID,
			LobbyID:              m.LobbyID,
			JoinCode:             m.JoinCode,
			HostUserID:           m.HostUserID,
			Status:               m.Status,
			CurrentQuestionIndex: m.CurrentQuestionIndex,
			Players:              m.Players,
			CreatedAt:            m.CreatedAt,
		})
	}
	return page, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultResultsLimit
	}
	if limit > maxResultsLimit {
		limit = maxResultsLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type ResultPage struct {
	Results []models.MatchResult `json:"results"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

// ListResults pages through results newest first, optionally only those where
// userID hosted or played.
func (s *MatchService) ListResults(ctx context.Context, f ResultFilter) (*ResultPage, error) {
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	results, total, err := s.Store.ListResults(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ResultPage{
		Results: results,
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasMore: int64(f.Offset+f.Limit) < total,
	}, nil
}
