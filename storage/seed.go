package storage

import (
	"context"
	"log"

	"quiz-match-service/models"
)

var starterFlashcards = []models.Flashcard{
	{Question: "What is the capital of France?", Answer: "Paris", Options: []string{"Paris", "Lyon", "Marseille", "Nice"}, Tags: []string{"geography", "capitals"}},
	{Question: "What is 2 + 2?", Answer: "4", Options: []string{"3", "4", "5", "22"}, Tags: []string{"math", "arithmetic"}},
	{Question: "What is the largest planet in our solar system?", Answer: "Jupiter", Options: []string{"Saturn", "Jupiter", "Neptune", "Earth"}, Tags: []string{"science", "astronomy"}},
	{Question: "Who painted the Mona Lisa?", Answer: "Leonardo da Vinci", Options: []string{"Michelangelo", "Raphael", "Leonardo da Vinci", "Donatello"}, Tags: []string{"art", "history"}},
	{Question: "What is the chemical symbol for gold?", Answer: "Au", Options: []string{"Ag", "Au", "Gd", "Go"}, Tags: []string{"science", "chemistry"}},
	{Question: "What is the smallest country in the world?", Answer: "Vatican City", Options: []string{"Monaco", "Vatican City", "San Marino", "Malta"}, Tags: []string{"geography", "countries"}},
	{Question: "What is the speed of light?", Answer: "299,792,458 meters per second", Options: []string{"150,000 km per second", "299,792,458 meters per second", "1,000,000 meters per second", "343 meters per second"}, Tags: []string{"science", "physics"}},
	{Question: "Who wrote 'To Kill a Mockingbird'?", Answer: "Harper Lee", Options: []string{"Harper Lee", "Mark Twain", "John Steinbeck", "Toni Morrison"}, Tags: []string{"literature", "books"}},
	{Question: "What is the largest ocean on Earth?", Answer: "Pacific Ocean", Options: []string{"Atlantic Ocean", "Indian Ocean", "Pacific Ocean", "Arctic Ocean"}, Tags: []string{"geography", "oceans"}},
	{Question: "What is the currency of Japan?", Answer: "Yen", Options: []string{"Won", "Yuan", "Yen", "Ringgit"}, Tags: []string{"geography", "economics"}},
}

// SeedFlashcards loads the starter deck when the catalog is empty.
func SeedFlashcards(ctx context.Context, c *Catalog) (int, error) {
	n, err := c.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	written, err := c.Upsert(ctx, starterFlashcards)
	if err != nil {
		return written, err
	}
	log.Printf("🌱 [CATALOG] Seeded %d flashcards", written)
	return written, nil
}
