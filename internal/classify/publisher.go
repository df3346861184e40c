package classify

import (
	"strings"

	"github.com/justyntemme/librarian/internal/models"
)

type publisherRule struct {
	publisher models.Publisher
	keywords  []string
}

// Imprints are listed under their parent group. MIT Press precedes the
// university presses since its imprint line usually names Cambridge.
var publisherRules = []publisherRule{
	{models.PublisherPenguinRandomHouse, []string{"penguin", "random house", "puffin", "vintage", "knopf", "doubleday", "bantam", "ballantine", "del rey", "crown"}},
	{models.PublisherHarperCollins, []string{"harpercollins", "harper collins", "harper", "william morrow", "avon"}},
	{models.PublisherSimonSchuster, []string{"simon & schuster", "simon and schuster", "simon schuster", "scribner", "atria"}},
	{models.PublisherHachette, []string{"hachette", "little, brown", "little brown", "grand central", "orbit"}},
	{models.PublisherMacmillan, []string{"macmillan", "st. martin", "st martin", "tor books", "farrar", "henry holt"}},
	{models.PublisherScholastic, []string{"scholastic"}},
	{models.PublisherWiley, []string{"wiley"}},
	{models.PublisherPearson, []string{"pearson", "addison-wesley", "addison wesley", "prentice hall"}},
	{models.PublisherMITPress, []string{"mit press"}},
	{models.PublisherOxford, []string{"oxford"}},
	{models.PublisherCambridge, []string{"cambridge"}},
	{models.PublisherBloomsbury, []string{"bloomsbury"}},
	{models.PublisherSpringer, []string{"springer"}},
	{models.PublisherOReilly, []string{"o'reilly", "oreilly", "o’reilly"}},
	{models.PublisherMcGrawHill, []string{"mcgraw"}},
	{models.PublisherElsevier, []string{"elsevier"}},
	{models.PublisherHoughtonMifflin, []string{"houghton", "mifflin", "harcourt"}},
	{models.PublisherNoStarch, []string{"no starch"}},
	{models.PublisherManning, []string{"manning"}},
	{models.PublisherPackt, []string{"packt"}},
}

// MapPublisher matches a free-text publisher name against the known imprint
// table by case-insensitive substring.
func MapPublisher(name string) models.Publisher {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return models.PublisherOther
	}
	for _, rule := range publisherRules {
		for _, kw := range rule.keywords {
			if strings.Contains(n, kw) {
				return rule.publisher
			}
		}
	}
	return models.PublisherOther
}
