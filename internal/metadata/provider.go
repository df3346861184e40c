package metadata

import "context"

// CoverSize names one of the cover variants the upstream offers.
type CoverSize string

const (
	CoverSmall  CoverSize = "small"
	CoverMedium CoverSize = "medium"
	CoverLarge  CoverSize = "large"
)

// DefaultCoverPreference is tried in order when picking a cover URL.
var DefaultCoverPreference = []CoverSize{CoverLarge, CoverMedium, CoverSmall}

// ResolvedMetadata represents bibliographic information for one identifier.
type ResolvedMetadata struct {
	ISBN        string   `json:"isbn"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Publisher   string   `json:"publisher,omitempty"`
	Synopsis    string   `json:"synopsis,omitempty"`
	PageCount   *int     `json:"page_count,omitempty"`
	PublishDate string   `json:"publish_date,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
}

// Resolver looks up metadata by identifier. A nil result with a nil error
// means the upstream has no record.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (*ResolvedMetadata, error)
}
