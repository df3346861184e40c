package models

import "strings"

// Genre is the closed set of genres a book can be filed under.
type Genre int

const (
	GenreOther Genre = iota
	GenreFiction
	GenreMystery
	GenreScienceFiction
	GenreHorror
	GenreBiography
	GenreHistory
	GenreScience
	GenrePhilosophy
	GenreBusiness
	GenrePoetry
	GenreDrama
	GenreCookbook
	GenreTravel
)

var genreNames = [...]string{
	GenreOther:          "other",
	GenreFiction:        "fiction",
	GenreMystery:        "mystery",
	GenreScienceFiction: "science_fiction",
	GenreHorror:         "horror",
	GenreBiography:      "biography",
	GenreHistory:        "history",
	GenreScience:        "science",
	GenrePhilosophy:     "philosophy",
	GenreBusiness:       "business",
	GenrePoetry:         "poetry",
	GenreDrama:          "drama",
	GenreCookbook:       "cookbook",
	GenreTravel:         "travel",
}

// Genres lists every genre in declaration order.
func Genres() []Genre {
	out := make([]Genre, len(genreNames))
	for i := range genreNames {
		out[i] = Genre(i)
	}
	return out
}

func (g Genre) String() string {
	if g < 0 || int(g) >= len(genreNames) {
		return genreNames[GenreOther]
	}
	return genreNames[g]
}

// ParseGenre accepts a genre name in any case, with spaces or hyphens in
// place of underscores. Unknown names return GenreOther and false.
func ParseGenre(s string) (Genre, bool) {
	key := enumKey(s)
	for i, name := range genreNames {
		if name == key {
			return Genre(i), true
		}
	}
	return GenreOther, false
}

func (g Genre) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Genre) UnmarshalText(text []byte) error {
	*g, _ = ParseGenre(string(text))
	return nil
}

func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
