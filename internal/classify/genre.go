// Package classify maps free-text subject tags and publisher names onto the
// catalog's closed genre and publisher sets.
package classify

import (
	"strings"

	"github.com/justyntemme/librarian/internal/models"
)

type genreRule struct {
	genre    models.Genre
	keywords []string
	// ignore lists phrases removed from each tag before this rule's
	// keywords are tested.
	ignore []string
}

// Order matters: a tag set matching two rules resolves to the earlier one.
var genreRules = []genreRule{
	{genre: models.GenreFiction, keywords: []string{"fiction", "romance"}, ignore: []string{"science fiction"}},
	{genre: models.GenreMystery, keywords: []string{"mystery", "thriller"}},
	{genre: models.GenreScienceFiction, keywords: []string{"science fiction", "fantasy"}},
	{genre: models.GenreHorror, keywords: []string{"horror"}},
	{genre: models.GenreBiography, keywords: []string{"biography", "autobiography"}},
	{genre: models.GenreHistory, keywords: []string{"history"}},
	{genre: models.GenreScience, keywords: []string{"science", "technology"}},
	{genre: models.GenrePhilosophy, keywords: []string{"philosophy", "religion"}},
	{genre: models.GenreBusiness, keywords: []string{"business", "economics"}},
	{genre: models.GenrePoetry, keywords: []string{"poetry"}},
	{genre: models.GenreDrama, keywords: []string{"drama", "plays"}},
	{genre: models.GenreCookbook, keywords: []string{"cookbook", "cooking"}},
	{genre: models.GenreTravel, keywords: []string{"travel"}},
	{genre: models.GenreFiction, keywords: []string{"juvenile", "children"}},
}

// InferGenre returns the genre of the first rule matching any tag, or
// GenreOther when nothing matches.
func InferGenre(tags []string) models.Genre {
	if len(tags) == 0 {
		return models.GenreOther
	}

	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
			lowered = append(lowered, t)
		}
	}

	for _, rule := range genreRules {
		if anyContains(lowered, rule.keywords, rule.ignore) {
			return rule.genre
		}
	}
	return models.GenreOther
}

func anyContains(tags, keywords, ignore []string) bool {
	for _, tag := range tags {
		for _, phrase := range ignore {
			tag = strings.ReplaceAll(tag, phrase, " ")
		}
		for _, kw := range keywords {
			if strings.Contains(tag, kw) {
				return true
			}
		}
	}
	return false
}
