package models

// Publisher is the closed set of publishing groups the catalog recognizes.
type Publisher int

const (
	PublisherOther Publisher = iota
	PublisherPenguinRandomHouse
	PublisherHarperCollins
	PublisherSimonSchuster
	PublisherHachette
	PublisherMacmillan
	PublisherScholastic
	PublisherWiley
	PublisherPearson
	PublisherOxford
	PublisherCambridge
	PublisherBloomsbury
	PublisherSpringer
	PublisherOReilly
	PublisherMcGrawHill
	PublisherElsevier
	PublisherHoughtonMifflin
	PublisherNoStarch
	PublisherManning
	PublisherPackt
	PublisherMITPress
)

var publisherNames = [...]string{
	PublisherOther:              "other",
	PublisherPenguinRandomHouse: "penguin_random_house",
	PublisherHarperCollins:      "harper_collins",
	PublisherSimonSchuster:      "simon_schuster",
	PublisherHachette:           "hachette",
	PublisherMacmillan:          "macmillan",
	PublisherScholastic:         "scholastic",
	PublisherWiley:              "wiley",
	PublisherPearson:            "pearson",
	PublisherOxford:             "oxford_university_press",
	PublisherCambridge:          "cambridge_university_press",
	PublisherBloomsbury:         "bloomsbury",
	PublisherSpringer:           "springer",
	PublisherOReilly:            "oreilly",
	PublisherMcGrawHill:         "mcgraw_hill",
	PublisherElsevier:           "elsevier",
	PublisherHoughtonMifflin:    "houghton_mifflin_harcourt",
	PublisherNoStarch:           "no_starch_press",
	PublisherManning:            "manning",
	PublisherPackt:              "packt",
	PublisherMITPress:           "mit_press",
}

// Publishers lists every publisher in declaration order.
func Publishers() []Publisher {
	out := make([]Publisher, len(publisherNames))
	for i := range publisherNames {
		out[i] = Publisher(i)
	}
	return out
}

func (p Publisher) String() string {
	if p < 0 || int(p) >= len(publisherNames) {
		return publisherNames[PublisherOther]
	}
	return publisherNames[p]
}

// ParsePublisher is the Publisher counterpart of ParseGenre.
func ParsePublisher(s string) (Publisher, bool) {
	key := enumKey(s)
	for i, name := range publisherNames {
		if name == key {
			return Publisher(i), true
		}
	}
	return PublisherOther, false
}

func (p Publisher) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Publisher) UnmarshalText(text []byte) error {
	*p, _ = ParsePublisher(string(text))
	return nil
}
