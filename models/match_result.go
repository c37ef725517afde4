package models

import "time"

// MatchResult is the frozen summary written once when a match finishes.
type MatchResult struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	MatchID         string `gorm:"uniqueIndex;size:36;not null" json:"match_id"`
	LobbyID         string `gorm:"index;size:16" json:"lobby_id"`
	JoinCode        string `gorm:"size:16" json:"join_code"`
	HostUserID      string `gorm:"index;size:64" json:"host_user_id"`
	HostDisplayName string `gorm:"size:128" json:"host_display_name"`

	TotalQuestions int `json:"total_questions"`
	TotalPlayers   int `json:"total_players"`

	Players   []RankedPlayer `gorm:"serializer:json;type:text" json:"players"`
	Winner    WinnerSummary  `gorm:"serializer:json;type:text" json:"winner"`
	GameStats GameStats      `gorm:"serializer:json;type:text" json:"game_stats"`

	// GameDuration is in whole minutes.
	GameDuration int       `json:"game_duration"`
	FinishedAt   time.Time `json:"finished_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type RankedPlayer struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
	IsWinner    bool   `json:"is_winner"`
	IsTied      bool   `json:"is_tied"`
}

type WinnerSummary struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	IsTied      bool   `json:"is_tied"`
}

type GameStats struct {
	TotalPointsAwarded int     `json:"total_points_awarded"`
	AverageScore       float64 `json:"average_score"`
	HighestScore       int     `json:"highest_score"`
	LowestScore        int     `json:"lowest_score"`
}
