package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-match-service/models"
	"quiz-match-service/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errClaimLost = errors.New("claim lost")

// MatchStore is the gorm implementation of services.MatchStore.
type MatchStore struct {
	DB *gorm.DB
}

func NewMatchStore(db *gorm.DB) *MatchStore {
	return &MatchStore{DB: db}
}

var _ services.MatchStore = (*MatchStore)(nil)

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Players", func(tx *gorm.DB) *gorm.DB { return tx.Order("joined_at ASC, id ASC") })
}

func (s *MatchStore) CreateMatch(ctx context.Context, m *models.Match) error {
	return translate(s.DB.WithContext(ctx).Create(m).Error, "match")
}

func (s *MatchStore) first(ctx context.Context, column, value string) (*models.Match, error) {
	var m models.Match
	err := withRelations(s.DB.WithContext(ctx)).Where(column+" = ?", value).First(&m).Error
	if err != nil {
		return nil, translate(err, "match "+value)
	}
	return &m, nil
}

func (s *MatchStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	return s.first(ctx, "id", matchID)
}

func (s *MatchStore) GetMatchByLobby(ctx context.Context, lobbyID string) (*models.Match, error) {
	return s.first(ctx, "lobby_id", lobbyID)
}

func (s *MatchStore) GetMatchByJoinCode(ctx context.Context, joinCode string) (*models.Match, error) {
	return s.first(ctx, "join_code", joinCode)
}

func (s *MatchStore) ListMatches(ctx context.Context, f services.MatchFilter) ([]models.Match, int64, error) {
	filter := func(tx *gorm.DB) *gorm.DB {
		if f.Status == "" {
			return tx
		}
		return tx.Where("status = ?", f.Status)
	}

	db := s.DB.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Match{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "matches")
	}

	var matches []models.Match
	q := db.Scopes(filter).
		Preload("Players", func(tx *gorm.DB) *gorm.DB { return tx.Order("joined_at ASC, id ASC") }).
		Order("created_at DESC").Order("id DESC").
		Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&matches).Error; err != nil {
		return nil, 0, translate(err, "matches")
	}
	return matches, total, nil
}

func (s *MatchStore) AddPlayer(ctx context.Context, matchID string, p models.MatchPlayer) (bool, error) {
	db := s.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Match{}).Where("id = ?", matchID).Count(&count).Error; err != nil {
		return false, translate(err, "match "+matchID)
	}
	if count == 0 {
		return false, fmt.Errorf("%w: match %s", services.ErrNotFound, matchID)
	}

	p.ID = 0
	p.MatchID = matchID
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&p)
	if result.Error != nil {
		return false, translate(result.Error, "player "+p.UserID)
	}
	return result.RowsAffected == 1, nil
}

// ConditionalClaim sets answered_by only while it is still NULL and bumps the
// claimant's score in the same transaction.
func (s *MatchStore) ConditionalClaim(ctx context.Context, matchID string, index int, userID string, at time.Time) (services.ClaimResult, error) {
	var score int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.MatchQuestion{}).
			Where("match_id = ? AND position = ? AND answered_by IS NULL", matchID, index).
			Updates(map[string]any{"answered_by": userID, "answered_at": at})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errClaimLost
		}

		result = tx.Model(&models.MatchPlayer{}).
			Where("match_id = ? AND user_id = ?", matchID, userID).
			UpdateColumn("score", gorm.Expr("score + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// no player row to credit: undo the claim
			return errClaimLost
		}

		return tx.Model(&models.MatchPlayer{}).
			Where("match_id = ? AND user_id = ?", matchID, userID).
			Select("score").
			Scan(&score).Error
	})
	if errors.Is(err, errClaimLost) {
		return services.ClaimResult{}, nil
	}
	if err != nil {
		return services.ClaimResult{}, translate(err, "claim")
	}
	return services.ClaimResult{Claimed: true, NewScore: score}, nil
}

func (s *MatchStore) TransitionStatus(ctx context.Context, matchID string, from, to models.MatchStatus) (bool, error) {
	result := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND status = ?", matchID, from).
		Update("status", to)
	if result.Error != nil {
		return false, translate(result.Error, "match "+matchID)
	}
	return result.RowsAffected == 1, nil
}

// SaveProgress only moves the pointer of an in-progress match, so a finished
// match keeps its final index.
func (s *MatchStore) SaveProgress(ctx context.Context, m *models.Match) (bool, error) {
	db := s.DB.WithContext(ctx)
	result := db.Model(&models.Match{}).
		Where("id = ? AND status = ?", m.ID, models.MatchStatusInProgress).
		Update("current_question_index", m.CurrentQuestionIndex)
	if result.Error != nil {
		return false, translate(result.Error, "match "+m.ID)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := db.Model(&models.Match{}).Where("id = ?", m.ID).Count(&count).Error; err != nil {
		return false, translate(err, "match "+m.ID)
	}
	if count == 0 {
		return false, fmt.Errorf("%w: match %s", services.ErrNotFound, m.ID)
	}
	return false, nil
}

func (s *MatchStore) CreateResultIfAbsent(ctx context.Context, r *models.MatchResult) (bool, error) {
	result := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoNothing: true,
	}).Create(r)
	if result.Error != nil {
		return false, translate(result.Error, "result "+r.MatchID)
	}
	return result.RowsAffected == 1, nil
}

func (s *MatchStore) GetResult(ctx context.Context, matchID string) (*models.MatchResult, error) {
	var r models.MatchResult
	if err := s.DB.WithContext(ctx).Where("match_id = ?", matchID).First(&r).Error; err != nil {
		return nil, translate(err, "result "+matchID)
	}
	return &r, nil
}

func (s *MatchStore) ListResults(ctx context.Context, f services.ResultFilter) ([]models.MatchResult, int64, error) {
	filter := func(tx *gorm.DB) *gorm.DB {
		if f.UserID == "" {
			return tx
		}
		played := s.DB.Model(&models.MatchPlayer{}).Select("match_id").Where("user_id = ?", f.UserID)
		return tx.Where("host_user_id = ? OR match_id IN (?)", f.UserID, played)
	}

	db := s.DB.WithContext(ctx)
	var total int64
	if err := db.Model(&models.MatchResult{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "results")
	}

	var results []models.MatchResult
	q := db.Scopes(filter).Order("finished_at DESC").Order("id DESC").Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, 0, translate(err, "results")
	}
	return results, total, nil
}

func (s *MatchStore) ListFinishedWithoutResult(ctx context.Context, limit int) ([]models.Match, error) {
	var matches []models.Match
	err := withRelations(s.DB.WithContext(ctx)).
		Where("status IN ?", []models.MatchStatus{models.MatchStatusFinished, models.MatchStatusEnded}).
		Where("NOT EXISTS (SELECT 1 FROM match_results r WHERE r.match_id = matches.id)").
		Order("updated_at ASC").
		Limit(limit).
		Find(&matches).Error
	if err != nil {
		return nil, translate(err, "unfinalized matches")
	}
	return matches, nil
}
