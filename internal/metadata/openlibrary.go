package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/isbn"
)

const (
	defaultBaseURL   = "https://openlibrary.org"
	defaultUserAgent = "librarian/1.0"
	defaultTimeout   = 15 * time.Second
)

// Options configures an OpenLibrary resolver. Zero values take defaults.
type Options struct {
	BaseURL         string
	UserAgent       string
	Timeout         time.Duration
	RPS             float64
	CoverPreference []CoverSize
	HTTPClient      *http.Client
}

// OpenLibrary resolves ISBNs against the Open Library books API
type OpenLibrary struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	covers    []CoverSize
}

// NewOpenLibrary creates a resolver
func NewOpenLibrary(opts Options) *OpenLibrary {
	p := &OpenLibrary{
		client:    opts.HTTPClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		covers:    opts.CoverPreference,
	}
	if p.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		p.client = &http.Client{Timeout: timeout}
	}
	if p.baseURL == "" {
		p.baseURL = defaultBaseURL
	}
	if p.userAgent == "" {
		p.userAgent = defaultUserAgent
	}
	if opts.RPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	if len(p.covers) == 0 {
		p.covers = DefaultCoverPreference
	}
	return p
}

// olName is the {name, url} shape used for authors, publishers and subjects.
type olName struct {
	Name string `json:"name"`
}

type olExcerpt struct {
	Text          string `json:"text"`
	FirstSentence bool   `json:"first_sentence"`
}

// olBook matches one value of api/books?jscmd=data. Every field is optional.
type olBook struct {
	Title         string            `json:"title"`
	Authors       []olName          `json:"authors"`
	Publishers    []olName          `json:"publishers"`
	Subjects      []olName          `json:"subjects"`
	Cover         map[string]string `json:"cover"`
	NumberOfPages *int              `json:"number_of_pages"`
	PublishDate   string            `json:"publish_date"`
	Excerpts      []olExcerpt       `json:"excerpts"`
	Notes         olText            `json:"notes"`
	Description   olText            `json:"description"`
}

// olText accepts either a plain string or a {"type", "value"} object.
type olText string

func (t *olText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = olText(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = olText(obj.Value)
	return nil
}

// Resolve looks up one identifier. Unknown identifiers yield (nil, nil).
func (p *OpenLibrary) Resolve(ctx context.Context, identifier string) (*ResolvedMetadata, error) {
	id, err := isbn.Normalize(identifier)
	if err != nil {
		return nil, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.ResolutionFailed, err, "metadata lookup cancelled")
	}

	params := url.Values{}
	params.Set("bibkeys", "ISBN:"+id)
	params.Set("format", "json")
	params.Set("jscmd", "data")
	u := fmt.Sprintf("%s/api/books?%s", p.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.ResolutionFailed, err, "could not build metadata request")
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.ResolutionFailed, err, "metadata service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ResolutionFailed, err, "could not read metadata response")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, apperr.Wrap(apperr.ResolutionFailed, err, "malformed metadata response")
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// Take the first entry by key order rather than matching the bibkey.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw := entries[keys[0]]
	if string(raw) == "null" {
		return nil, nil
	}

	var book olBook
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, apperr.Wrap(apperr.ResolutionFailed, err, "malformed metadata record")
	}

	return p.convert(&book, id), nil
}

// convert converts an Open Library record to ResolvedMetadata
func (p *OpenLibrary) convert(b *olBook, id string) *ResolvedMetadata {
	meta := &ResolvedMetadata{
		ISBN:        id,
		Title:       strings.TrimSpace(b.Title),
		Author:      strings.Join(names(b.Authors), ", "),
		Publisher:   firstOrEmpty(names(b.Publishers)),
		PublishDate: strings.TrimSpace(b.PublishDate),
		Subjects:    names(b.Subjects),
		PageCount:   b.NumberOfPages,
	}

	meta.Synopsis = firstSentence(b.Excerpts)
	if meta.Synopsis == "" {
		meta.Synopsis = strings.TrimSpace(string(b.Notes))
	}
	if meta.Synopsis == "" {
		meta.Synopsis = strings.TrimSpace(string(b.Description))
	}

	for _, size := range p.covers {
		if u := strings.TrimSpace(b.Cover[string(size)]); u != "" {
			meta.CoverURL = u
			break
		}
	}

	return meta
}

func firstSentence(excerpts []olExcerpt) string {
	for _, e := range excerpts {
		if e.FirstSentence && strings.TrimSpace(e.Text) != "" {
			return strings.TrimSpace(e.Text)
		}
	}
	for _, e := range excerpts {
		if t := strings.TrimSpace(e.Text); t != "" {
			return t
		}
	}
	return ""
}

func names(refs []olName) []string {
	var out []string
	for _, r := range refs {
		if n := strings.TrimSpace(r.Name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// firstOrEmpty returns the first element or empty string
func firstOrEmpty(s []string) string {
	if len(s) > 0 {
		return s[0]
	}
	return ""
}
