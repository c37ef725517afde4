package models

import "time"

type MatchStatus string

const (
	MatchStatusWaiting    MatchStatus = "waiting"
	MatchStatusInProgress MatchStatus = "in-progress"
	MatchStatusFinished   MatchStatus = "finished"
	// MatchStatusEnded is only found on old records. It is never written.
	MatchStatusEnded MatchStatus = "ended"
)

// IsFinal reports whether no further transitions are allowed.
func (s MatchStatus) IsFinal() bool {
	return s == MatchStatusFinished || s == MatchStatusEnded
}

// Match is one quiz session: a frozen question snapshot, the joined players and
// a pointer to the question currently being played.
type Match struct {
	ID                   string      `gorm:"primaryKey;size:36" json:"match_id"`
	LobbyID              string      `gorm:"uniqueIndex;size:16;not null" json:"lobby_id"`
	JoinCode             string      `gorm:"uniqueIndex;size:16;not null" json:"join_code"`
	HostUserID           string      `gorm:"index;size:64;not null" json:"host_user_id"`
	Status               MatchStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	CurrentQuestionIndex int         `gorm:"not null" json:"current_question_index"`

	Questions []MatchQuestion `gorm:"foreignKey:MatchID;references:ID" json:"questions"`
	Players   []MatchPlayer   `gorm:"foreignKey:MatchID;references:ID" json:"players"`

	Timestamps
}

// CurrentQuestion returns the question at the match pointer, if any.
func (m *Match) CurrentQuestion() (*MatchQuestion, bool) {
	if m.CurrentQuestionIndex < 0 || m.CurrentQuestionIndex >= len(m.Questions) {
		return nil, false
	}
	return &m.Questions[m.CurrentQuestionIndex], true
}

// IsLastQuestion is true when advancing would finish the match.
func (m *Match) IsLastQuestion() bool {
	return m.CurrentQuestionIndex >= len(m.Questions)-1
}

func (m *Match) Player(userID string) (*MatchPlayer, bool) {
	for i := range m.Players {
		if m.Players[i].UserID == userID {
			return &m.Players[i], true
		}
	}
	return nil, false
}

// MatchQuestion is a snapshot of a catalog flashcard taken when the match was created.
// AnsweredBy and AnsweredAt are written together, once.
type MatchQuestion struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	MatchID      string     `gorm:"uniqueIndex:idx_match_question_position;size:36;not null" json:"-"`
	Position     int        `gorm:"uniqueIndex:idx_match_question_position;not null" json:"position"`
	FlashcardID  string     `gorm:"size:64" json:"flashcard_id"`
	QuestionText string     `gorm:"type:text;not null" json:"question_text"`
	Options      []string   `gorm:"serializer:json;type:text" json:"options,omitempty"`
	Answer       string     `gorm:"type:text;not null" json:"answer,omitempty"`
	AnsweredBy   *string    `gorm:"size:64" json:"answered_by"`
	AnsweredAt   *time.Time `json:"answered_at"`
}

// Resolution is the claim state of a question: Unclaimed or Claimed.
type Resolution interface {
	isResolution()
}

type Unclaimed struct{}

type Claimed struct {
	By string
	At time.Time
}

func (Unclaimed) isResolution() {}
func (Claimed) isResolution()   {}

func (q *MatchQuestion) Resolution() Resolution {
	if q.AnsweredBy == nil || *q.AnsweredBy == "" {
		return Unclaimed{}
	}
	c := Claimed{By: *q.AnsweredBy}
	if q.AnsweredAt != nil {
		c.At = *q.AnsweredAt
	}
	return c
}

func (q *MatchQuestion) IsClaimed() bool {
	_, ok := q.Resolution().(Claimed)
	return ok
}

type MatchPlayer struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	MatchID     string    `gorm:"uniqueIndex:idx_match_player_user;size:36;not null" json:"-"`
	UserID      string    `gorm:"uniqueIndex:idx_match_player_user;size:64;not null" json:"user_id"`
	DisplayName string    `gorm:"size:128" json:"display_name"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ScoreIntegrity compares the points handed out with the number of claimed questions.
// The two must always agree.
type ScoreIntegrity struct {
	TotalPointsAwarded int  `json:"total_points_awarded"`
	QuestionsAnswered  int  `json:"questions_answered"`
	IsValid            bool `json:"is_valid"`
}

func (m *Match) Integrity() ScoreIntegrity {
	var points, answered int
	for _, p := range m.Players {
		points += p.Score
	}
	for i := range m.Questions {
		if m.Questions[i].IsClaimed() {
			answered++
		}
	}
	return ScoreIntegrity{
		TotalPointsAwarded: points,
		QuestionsAnswered:  answered,
		IsValid:            points == answered,
	}
}

// Public returns a copy safe to hand to players: answers are stripped from
// every question nobody has claimed yet.
func (m Match) Public() Match {
	out := m
	out.Questions = make([]MatchQuestion, len(m.Questions))
	for i, q := range m.Questions {
		if !q.IsClaimed() {
			q.Answer = ""
		}
		out.Questions[i] = q
	}
	out.Players = append([]MatchPlayer(nil), m.Players...)
	return out
}
