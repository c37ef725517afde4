package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"quiz-match-service/models"
)

func seedCards(n int) []models.Flashcard {
	cards := make([]models.Flashcard, n)
	for i := range cards {
		cards[i] = models.Flashcard{
			ID:       fmt.Sprintf("card-%d", i),
			Question: fmt.Sprintf("q%d?", i),
			Options:  []string{"x", "y"},
			Answer:   fmt.Sprintf("a%d", i),
		}
	}
	return cards
}

func newMatchService(store *fakeStore, events EventNotifier, cards int) *MatchService {
	return NewMatchService(store, fakeCatalog{cards: seedCards(cards)}, NewResultAggregator(store, nil), events, 5)
}

func TestCreateSnapshotsQuestions(t *testing.T) {
	store := newFakeStore()
	events := &recordingNotifier{}
	svc := newMatchService(store, events, 10)

	m, err := svc.Create(context.Background(), Identity{UserID: "host", DisplayName: "from-token"}, "", 3)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Status != models.MatchStatusWaiting || m.CurrentQuestionIndex != 0 {
		t.Fatalf("new match state %s/%d", m.Status, m.CurrentQuestionIndex)
	}
	if len(m.Questions) != 3 || m.Questions[2].Position != 2 || m.Questions[1].Answer != "a1" {
		t.Fatalf("unexpected questions %#v", m.Questions)
	}
	if len(m.JoinCode) != joinCodeLength || len(m.LobbyID) != lobbyIDLength {
		t.Fatalf("codes %q / %q", m.JoinCode, m.LobbyID)
	}
	if len(m.Players) != 1 || m.Players[0].UserID != "host" || m.Players[0].DisplayName != "from-token" {
		t.Fatalf("host should be the only player: %#v", m.Players)
	}
	if events.count(EventMatchCreated) != 1 {
		t.Fatalf("events = %v", events.names())
	}
}

func TestCreateDefaultsAndLimits(t *testing.T) {
	store := newFakeStore()
	svc := newMatchService(store, nil, 10)
	ctx := context.Background()

	m, err := svc.Create(ctx, Identity{UserID: "host"}, "", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(m.Questions) != 5 || m.Players[0].DisplayName != defaultHostName {
		t.Fatalf("defaults not applied: %d questions, host %q", len(m.Questions), m.Players[0].DisplayName)
	}

	if _, err := svc.Create(ctx, Identity{UserID: "host"}, "", maxQuestions+1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("too many questions: err = %v", err)
	}
	if _, err := svc.Create(ctx, Identity{}, "", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing host: err = %v", err)
	}

	empty := NewMatchService(store, fakeCatalog{}, nil, nil, 5)
	if _, err := empty.Create(ctx, Identity{UserID: "host"}, "", 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("empty catalog: err = %v", err)
	}
}

func TestJoin(t *testing.T) {
	store := newFakeStore()
	events := &recordingNotifier{}
	svc := newMatchService(store, events, 5)
	ctx := context.Background()

	m, err := svc.Create(ctx, Identity{UserID: "host"}, "Host", 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	joined, added, err := svc.Join(ctx, " "+m.JoinCode+" ", Identity{UserID: "u1", DisplayName: "Una"})
	if err != nil || !added {
		t.Fatalf("Join: added=%v err=%v", added, err)
	}
	if len(joined.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(joined.Players))
	}

	_, added, err = svc.Join(ctx, m.JoinCode, Identity{UserID: "u1"})
	if err != nil || added {
		t.Fatalf("second join should be a no-op: added=%v err=%v", added, err)
	}
	if events.count(EventPlayerJoined) != 1 {
		t.Fatalf("player_joined published %d times", events.count(EventPlayerJoined))
	}

	if _, _, err := svc.Join(ctx, "ZZZZZZ", Identity{UserID: "u2"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code: err = %v", err)
	}

	if _, err := store.TransitionStatus(ctx, m.ID, models.MatchStatusWaiting, models.MatchStatusInProgress); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Join(ctx, m.JoinCode, Identity{UserID: "u2"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("join after start: err = %v", err)
	}
	if _, _, err := svc.Join(ctx, m.JoinCode, Identity{UserID: "u1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("rejoin by a player after start: err = %v", err)
	}

	if _, err := store.TransitionStatus(ctx, m.ID, models.MatchStatusInProgress, models.MatchStatusFinished); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Join(ctx, m.JoinCode, Identity{UserID: "host"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("host join on finished match: err = %v", err)
	}
}

func TestGetAttachesValidation(t *testing.T) {
	store := newFakeStore()
	m := newTestMatch("m1", models.MatchStatusInProgress, []string{"Paris", "Jupiter"}, "host", "u1")
	by := "u1"
	m.Questions[0].AnsweredBy = &by
	m.Players[1].Score = 1
	m.LobbyID = "LOBBY001"
	store.put(m)
	svc := newMatchService(store, nil, 0)

	v, err := svc.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.Validation.IsValid || v.Validation.QuestionsAnswered != 1 {
		t.Fatalf("validation = %#v", v.Validation)
	}
	if v.Questions[1].Answer != "" || v.Questions[0].Answer != "Paris" {
		t.Fatalf("answers not sanitized: %#v", v.Questions)
	}

	byLobby, err := svc.GetByLobby(context.Background(), " lobby001 ")
	if err != nil {
		t.Fatalf("GetByLobby: %v", err)
	}
	if byLobby.ID != "m1" {
		t.Fatalf("lobby lookup returned %s", byLobby.ID)
	}
}

func TestEnsureResultAndList(t *testing.T) {
	store := newFakeStore()
	svc := newMatchService(store, nil, 0)
	ctx := context.Background()

	running := newTestMatch("run", models.MatchStatusInProgress, []string{"a"}, "host")
	store.put(running)
	if _, _, err := svc.EnsureResult(ctx, "run"); !errors.Is(err, ErrConflict) {
		t.Fatalf("result of running match: err = %v", err)
	}

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, host := range []string{"h1", "h2", "h1"} {
		m := newTestMatch(fmt.Sprintf("f%d", i), models.MatchStatusFinished, []string{"a"}, "p"+host)
		m.HostUserID = host
		m.CreatedAt = base
		m.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		store.put(m)
		if _, created, err := svc.EnsureResult(ctx, m.ID); err != nil || !created {
			t.Fatalf("EnsureResult %s: created=%v err=%v", m.ID, created, err)
		}
	}

	page, err := svc.ListResults(ctx, ResultFilter{UserID: "h1", Limit: 1})
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if page.Total != 2 || len(page.Results) != 1 || !page.HasMore {
		t.Fatalf("unexpected page %#v", page)
	}
	if page.Results[0].MatchID != "f2" {
		t.Fatalf("newest first expected, got %s", page.Results[0].MatchID)
	}

	page, err = svc.ListResults(ctx, ResultFilter{UserID: "ph2"})
	if err != nil || page.Total != 1 || page.Limit != defaultResultsLimit {
		t.Fatalf("player filter: %#v err=%v", page, err)
	}
}

func TestListMatches(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newMatchService(store, &recordingNotifier{}, 5)

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []models.MatchStatus{models.MatchStatusWaiting, models.MatchStatusInProgress, models.MatchStatusWaiting} {
		m := newTestMatch(fmt.Sprintf("m%d", i), status, []string{"a"}, "host")
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		store.put(m)
	}

	page, err := svc.ListMatches(ctx, MatchFilter{Status: models.MatchStatusWaiting})
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if page.Total != 2 || page.Limit != defaultResultsLimit || page.HasMore {
		t.Fatalf("page = %#v", page)
	}
	if page.Matches[0].MatchID != "m2" || page.Matches[0].LobbyID != "L-m2" || len(page.Matches[0].Players) != 1 {
		t.Fatalf("first summary = %#v", page.Matches[0])
	}

	page, err = svc.ListMatches(ctx, MatchFilter{Limit: 1})
	if err != nil || page.Total != 3 || len(page.Matches) != 1 || !page.HasMore {
		t.Fatalf("paged: %#v err=%v", page, err)
	}

	if _, err := svc.ListMatches(ctx, MatchFilter{Status: "paused"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status: err = %v", err)
	}
}
