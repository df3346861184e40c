package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/librarian/internal/models"
)

func TestInferGenre(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		expected models.Genre
	}{
		{"no tags", nil, models.GenreOther},
		{"blank tags", []string{"", "  "}, models.GenreOther},
		{"no match", []string{"Westerns", "Cats"}, models.GenreOther},
		{"juvenile fiction", []string{"Juvenile Fiction", "Adventure"}, models.GenreFiction},
		{"romance", []string{"Love stories", "ROMANCE"}, models.GenreFiction},
		{"thriller", []string{"Psychological thriller"}, models.GenreMystery},
		{"science fiction alone", []string{"Science Fiction"}, models.GenreScienceFiction},
		{"fantasy", []string{"Epic fantasy"}, models.GenreScienceFiction},
		{"mystery and science fiction", []string{"Science fiction", "Mystery"}, models.GenreMystery},
		{"fiction before mystery", []string{"Detective and mystery fiction"}, models.GenreFiction},
		{"romance beside science fiction", []string{"Science Fiction", "Romance"}, models.GenreFiction},
		{"juvenile fiction beside science fiction", []string{"Science fiction", "Juvenile Fiction"}, models.GenreFiction},
		{"science fiction romance in one tag", []string{"Science fiction romance"}, models.GenreFiction},
		{"horror", []string{"Horror tales"}, models.GenreHorror},
		{"autobiography", []string{"Autobiography"}, models.GenreBiography},
		{"history", []string{"World War, 1939-1945 -- History"}, models.GenreHistory},
		{"technology", []string{"Computer technology"}, models.GenreScience},
		{"religion", []string{"Religion"}, models.GenrePhilosophy},
		{"economics", []string{"Economics"}, models.GenreBusiness},
		{"poetry", []string{"English poetry"}, models.GenrePoetry},
		{"plays", []string{"English plays"}, models.GenreDrama},
		{"cooking", []string{"Cooking, Italian"}, models.GenreCookbook},
		{"travel", []string{"Description and travel"}, models.GenreTravel},
		{"children last", []string{"Children's stories", "Travel"}, models.GenreTravel},
		{"children", []string{"Children's stories"}, models.GenreFiction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferGenre(tt.tags))
		})
	}
}

func TestInferGenreMysteryWinsOverScienceFiction(t *testing.T) {
	sets := [][]string{
		{"mystery", "science fiction"},
		{"Science Fiction", "Thriller"},
		{"space opera", "science fiction mystery", "robots"},
	}
	for _, tags := range sets {
		assert.Equal(t, models.GenreMystery, InferGenre(tags), "tags %v", tags)
	}
}

func TestMapPublisher(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.Publisher
	}{
		{"empty", "", models.PublisherOther},
		{"unknown", "Tiny Indie Press", models.PublisherOther},
		{"puffin alias", "Puffin Books", models.PublisherPenguinRandomHouse},
		{"random house", "RANDOM HOUSE", models.PublisherPenguinRandomHouse},
		{"knopf", "Alfred A. Knopf", models.PublisherPenguinRandomHouse},
		{"harper", "Harper Perennial", models.PublisherHarperCollins},
		{"simon", "Simon & Schuster", models.PublisherSimonSchuster},
		{"addison", "Addison-Wesley Professional", models.PublisherPearson},
		{"oreilly", "O'Reilly Media", models.PublisherOReilly},
		{"no starch", "No Starch Press", models.PublisherNoStarch},
		{"mit press over cambridge", "MIT Press, Cambridge, Mass.", models.PublisherMITPress},
		{"cambridge", "Cambridge University Press", models.PublisherCambridge},
		{"garbled", "  pub. by mcgraw hill educ  ", models.PublisherMcGrawHill},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapPublisher(tt.input))
		})
	}
}
