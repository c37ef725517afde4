package services

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"quiz-match-service/models"
)

const defaultHostName = "Host"

// ResultArchiver keeps a copy of each result outside the database.
type ResultArchiver interface {
	ArchiveResult(ctx context.Context, r *models.MatchResult) error
}

// ResultAggregator turns a finished match into its MatchResult. Computing twice
// returns the stored record both times.
type ResultAggregator struct {
	Store    MatchStore
	Archiver ResultArchiver
	Now      func() time.Time
}

func NewResultAggregator(store MatchStore, archiver ResultArchiver) *ResultAggregator {
	return &ResultAggregator{Store: store, Archiver: archiver, Now: time.Now}
}

// Compute returns the result for m, creating it if this is the first call.
// created reports whether this call wrote the record.
func (a *ResultAggregator) Compute(ctx context.Context, m *models.Match) (*models.MatchResult, bool, error) {
	existing, err := a.Store.GetResult(ctx, m.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	r := BuildResult(m, a.Now().UTC())
	created, err := a.Store.CreateResultIfAbsent(ctx, &r)
	if err != nil {
		return nil, false, err
	}

	stored, err := a.Store.GetResult(ctx, m.ID)
	if err != nil {
		return nil, false, err
	}

	if created {
		log.Printf("🏁 [RESULTS] Saved result for match %s: %d players, winner=%s", m.ID, stored.TotalPlayers, stored.Winner.UserID)
		if a.Archiver != nil {
			if err := a.Archiver.ArchiveResult(ctx, stored); err != nil {
				log.Printf("⚠️ [RESULTS] Failed to archive result for match %s: %v", m.ID, err)
			}
		}
	}
	return stored, created, nil
}

// BuildResult ranks the players of m by score, highest first. Players with equal
// scores keep the order of m.Players, and every player sharing the top score is a
// winner. Ranks are positional, so two tied winners get ranks 1 and 2.
func BuildResult(m *models.Match, now time.Time) models.MatchResult {
	sorted := append([]models.MatchPlayer(nil), m.Players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	var highest, lowest, total int
	if len(sorted) > 0 {
		highest = sorted[0].Score
		lowest = sorted[len(sorted)-1].Score
	}
	winners := 0
	for _, p := range sorted {
		total += p.Score
		if p.Score == highest {
			winners++
		}
	}
	tied := winners > 1

	ranked := make([]models.RankedPlayer, 0, len(sorted))
	for i, p := range sorted {
		isWinner := p.Score == highest
		ranked = append(ranked, models.RankedPlayer{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Rank:        i + 1,
			IsWinner:    isWinner,
			IsTied:      isWinner && tied,
		})
	}

	var winner models.WinnerSummary
	if len(ranked) > 0 {
		winner = models.WinnerSummary{
			UserID:      ranked[0].UserID,
			DisplayName: ranked[0].DisplayName,
			Score:       ranked[0].Score,
			IsTied:      tied,
		}
	}

	var avg float64
	if len(sorted) > 0 {
		avg = math.Round(float64(total)/float64(len(sorted))*100) / 100
	}

	hostName := defaultHostName
	if host, ok := m.Player(m.HostUserID); ok && host.DisplayName != "" {
		hostName = host.DisplayName
	}

	finishedAt := now
	if m.Status.IsFinal() && !m.UpdatedAt.IsZero() {
		finishedAt = m.UpdatedAt.UTC()
	}

	duration := 0
	if !m.CreatedAt.IsZero() && finishedAt.After(m.CreatedAt) {
		duration = int(math.Round(finishedAt.Sub(m.CreatedAt).Minutes()))
	}

	return models.MatchResult{
		MatchID:         m.ID,
		LobbyID:         m.LobbyID,
		JoinCode:        m.JoinCode,
		HostUserID:      m.HostUserID,
		HostDisplayName: hostName,
		TotalQuestions:  len(m.Questions),
		TotalPlayers:    len(m.Players),
		Players:         ranked,
		Winner:          winner,
		GameStats: models.GameStats{
			TotalPointsAwarded: total,
			AverageScore:       avg,
			HighestScore:       highest,
			LowestScore:        lowest,
		},
		GameDuration: duration,
		FinishedAt:   finishedAt,
	}
}
