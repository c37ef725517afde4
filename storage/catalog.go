package storage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quiz-match-service/models"
	"quiz-match-service/services"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Catalog serves flashcards from the flashcards table.
type Catalog struct {
	DB *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{DB: db}
}

var _ services.CatalogSource = (*Catalog)(nil)

func (c *Catalog) randomOrder() string {
	if c.DB.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

// Sample returns up to n distinct flashcards in random order.
func (c *Catalog) Sample(ctx context.Context, n int) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	err := c.DB.WithContext(ctx).Order(c.randomOrder()).Limit(n).Find(&cards).Error
	if err != nil {
		return nil, translate(err, "flashcards")
	}
	return cards, nil
}

func (c *Catalog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.DB.WithContext(ctx).Model(&models.Flashcard{}).Count(&n).Error; err != nil {
		return 0, translate(err, "flashcards")
	}
	return n, nil
}

// NormalizeTags slugifies tags and drops blanks and duplicates, keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		s := slug.Make(strings.TrimSpace(t))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// CardID derives a stable id for cards that arrive without one.
func CardID(question string) string {
	id := slug.Make(question)
	if len(id) > 64 {
		id = strings.TrimRight(id[:64], "-")
	}
	return id
}

// Upsert inserts cards or refreshes the ones already stored, keyed by id.
func (c *Catalog) Upsert(ctx context.Context, cards []models.Flashcard) (int, error) {
	written := 0
	for i := range cards {
		card := cards[i]
		card.Question = strings.TrimSpace(card.Question)
		card.Answer = strings.TrimSpace(card.Answer)
		if card.Question == "" || card.Answer == "" {
			log.Printf("[CATALOG] ⚠️ Skipping flashcard without question or answer (id=%q)", card.ID)
			continue
		}
		if card.ID == "" {
			card.ID = CardID(card.Question)
		}
		card.Tags = NormalizeTags(card.Tags)

		err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"question", "options", "answer", "tags", "updated_at"}),
		}).Create(&card).Error
		if err != nil {
			return written, fmt.Errorf("upsert flashcard %s: %w", card.ID, translate(err, "flashcard"))
		}
		written++
	}
	return written, nil
}
