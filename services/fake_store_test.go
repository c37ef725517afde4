package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"quiz-match-service/models"
)

// fakeStore is an in-memory MatchStore with the same conditional semantics as
// the gorm store. Every method copies data in and out.
type fakeStore struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	results map[string]models.MatchResult

	claimCalls      int
	transitionCalls int
	createResult    int

	// failResult makes CreateResultIfAbsent fail while set.
	failResult error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches: make(map[string]*models.Match),
		results: make(map[string]models.MatchResult),
	}
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	c.Questions = append([]models.MatchQuestion(nil), m.Questions...)
	for i := range c.Questions {
		if q := m.Questions[i].AnsweredBy; q != nil {
			v := *q
			c.Questions[i].AnsweredBy = &v
		}
	}
	c.Players = append([]models.MatchPlayer(nil), m.Players...)
	return &c
}

func (f *fakeStore) put(m *models.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	f.matches[m.ID] = cloneMatch(m)
}

func (f *fakeStore) CreateMatch(_ context.Context, m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.matches {
		if existing.ID == m.ID || existing.LobbyID == m.LobbyID || existing.JoinCode == m.JoinCode {
			return fmt.Errorf("%w: duplicate match identity", ErrConflict)
		}
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	f.matches[m.ID] = cloneMatch(m)
	return nil
}

func (f *fakeStore) find(pred func(*models.Match) bool) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if pred(m) {
			return cloneMatch(m), nil
		}
	}
	return nil, fmt.Errorf("%w: match", ErrNotFound)
}

func (f *fakeStore) GetMatch(_ context.Context, id string) (*models.Match, error) {
	return f.find(func(m *models.Match) bool { return m.ID == id })
}

func (f *fakeStore) GetMatchByLobby(_ context.Context, lobbyID string) (*models.Match, error) {
	return f.find(func(m *models.Match) bool { return m.LobbyID == lobbyID })
}

func (f *fakeStore) GetMatchByJoinCode(_ context.Context, code string) (*models.Match, error) {
	return f.find(func(m *models.Match) bool { return m.JoinCode == code })
}

func (f *fakeStore) ListMatches(_ context.Context, filter MatchFilter) ([]models.Match, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Match
	for _, m := range f.matches {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		c := cloneMatch(m)
		c.Questions = nil
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := int64(len(all))
	if filter.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (f *fakeStore) AddPlayer(_ context.Context, matchID string, p models.MatchPlayer) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return false, fmt.Errorf("%w: match", ErrNotFound)
	}
	if _, exists := m.Player(p.UserID); exists {
		return false, nil
	}
	p.MatchID = matchID
	m.Players = append(m.Players, p)
	return true, nil
}

func (f *fakeStore) ConditionalClaim(_ context.Context, matchID string, index int, userID string, at time.Time) (ClaimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	m, ok := f.matches[matchID]
	if !ok || index < 0 || index >= len(m.Questions) {
		return ClaimResult{}, nil
	}
	q := &m.Questions[index]
	if q.IsClaimed() {
		return ClaimResult{}, nil
	}
	p, ok := m.Player(userID)
	if !ok {
		return ClaimResult{}, nil
	}
	by := userID
	q.AnsweredBy = &by
	q.AnsweredAt = &at
	p.Score++
	return ClaimResult{Claimed: true, NewScore: p.Score}, nil
}

func (f *fakeStore) TransitionStatus(_ context.Context, matchID string, from, to models.MatchStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitionCalls++
	m, ok := f.matches[matchID]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeStore) SaveProgress(_ context.Context, m *models.Match) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.matches[m.ID]
	if !ok {
		return false, fmt.Errorf("%w: match", ErrNotFound)
	}
	if stored.Status != models.MatchStatusInProgress {
		return false, nil
	}
	stored.CurrentQuestionIndex = m.CurrentQuestionIndex
	stored.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeStore) CreateResultIfAbsent(_ context.Context, r *models.MatchResult) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failResult != nil {
		return false, f.failResult
	}
	if _, ok := f.results[r.MatchID]; ok {
		return false, nil
	}
	f.createResult++
	r.CreatedAt = time.Now().UTC()
	f.results[r.MatchID] = *r
	return true, nil
}

func (f *fakeStore) GetResult(_ context.Context, matchID string) (*models.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: result", ErrNotFound)
	}
	return &r, nil
}

func (f *fakeStore) ListResults(_ context.Context, filter ResultFilter) ([]models.MatchResult, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.MatchResult
	for _, r := range f.results {
		if filter.UserID != "" && r.HostUserID != filter.UserID {
			played := false
			for _, p := range r.Players {
				if p.UserID == filter.UserID {
					played = true
				}
			}
			if !played {
				continue
			}
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FinishedAt.After(all[j].FinishedAt) })
	total := int64(len(all))
	if filter.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (f *fakeStore) ListFinishedWithoutResult(_ context.Context, limit int) ([]models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Match
	for _, m := range f.matches {
		if _, ok := f.results[m.ID]; ok || !m.Status.IsFinal() {
			continue
		}
		out = append(out, *cloneMatch(m))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// recordingNotifier keeps every published event. It can be told to fail.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (n *recordingNotifier) Publish(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	if n.fail {
		return errors.New("broker down")
	}
	return nil
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Name
	}
	return out
}

func (n *recordingNotifier) count(name string) int {
	c := 0
	for _, got := range n.names() {
		if got == name {
			c++
		}
	}
	return c
}

type fakeCatalog struct {
	cards []models.Flashcard
	err   error
}

func (c fakeCatalog) Sample(_ context.Context, n int) ([]models.Flashcard, error) {
	if c.err != nil {
		return nil, c.err
	}
	if n > len(c.cards) {
		n = len(c.cards)
	}
	return append([]models.Flashcard(nil), c.cards[:n]...), nil
}

// newTestMatch builds a match with one question per answer and the given players.
func newTestMatch(id string, status models.MatchStatus, answers []string, players ...string) *models.Match {
	m := &models.Match{
		ID:         id,
		LobbyID:    "L-" + id,
		JoinCode:   "J-" + id,
		HostUserID: "host",
		Status:     status,
	}
	for i, a := range answers {
		m.Questions = append(m.Questions, models.MatchQuestion{
			MatchID:      id,
			Position:     i,
			QuestionText: fmt.Sprintf("question %d", i),
			Answer:       a,
		})
	}
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, p := range players {
		m.Players = append(m.Players, models.MatchPlayer{
			MatchID:     id,
			UserID:      p,
			DisplayName: "name-" + p,
			JoinedAt:    base.Add(time.Duration(i) * time.Second),
		})
	}
	return m
}
