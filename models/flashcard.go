package models

// Flashcard is a question bank entry. Matches copy what they need from it at creation time.
type Flashcard struct {
	ID       string   `gorm:"primaryKey;size:64" json:"id"`
	Question string   `gorm:"type:text;not null" json:"question"`
	Options  []string `gorm:"serializer:json;type:text" json:"options"`
	Answer   string   `gorm:"type:text;not null" json:"answer"`
	Tags     []string `gorm:"serializer:json;type:text" json:"tags"`

	Timestamps
}
