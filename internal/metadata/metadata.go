// Package metadata looks up entity species data from the metadata
// provider and reduces the payload to the fields the service uses.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/pokedex/cache"
	"github.com/jonwraymond/pokedex/internal/outcome"
)

// Default request settings.
const (
	DefaultSpeciesPath = "/api/v2/pokemon-species/{name}"
	DefaultLanguage    = "en"

	namePlaceholder = "{name}"
	operationFetch  = "fetch"
)

var (
	// ErrEmptyID is returned for a blank identifier.
	ErrEmptyID = errors.New("metadata: empty identifier")
	// ErrMalformedPayload wraps JSON decoding failures of a 2xx response.
	ErrMalformedPayload = errors.New("metadata: malformed payload")
)

// EntityMetadata is the parsed view of one species payload.
type EntityMetadata struct {
	ID          int
	Name        string
	Description string
	Category    string
	Legendary   bool
}

// Getter performs a resilient GET. *upstream.Client implements it.
type Getter interface {
	Get(ctx context.Context, operation, path, rawQuery string) ([]byte, error)
}

// Config controls request construction and payload parsing.
type Config struct {
	// SpeciesPath is appended to the base URL; "{name}" is replaced by the
	// path-escaped identifier.
	SpeciesPath string
	// Language selects the description entry. Compared case-insensitively.
	Language string
}

// Client fetches EntityMetadata.
type Client struct {
	getter Getter
	cfg    Config
	loader *cache.Loader
	keyer  cache.Keyer
	group  singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithCache stores successful raw payloads through loader.
func WithCache(loader *cache.Loader, keyer cache.Keyer) Option {
	return func(c *Client) {
		c.loader = loader
		c.keyer = keyer
	}
}

// New creates a Client.
func New(getter Getter, cfg Config, opts ...Option) *Client {
	if cfg.SpeciesPath == "" {
		cfg.SpeciesPath = DefaultSpeciesPath
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	c := &Client{getter: getter, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the metadata for id. Upstream statuses such as 404 come
// back verbatim in the result; concurrent fetches of the same id share one
// outbound call.
func (c *Client) Fetch(ctx context.Context, id string) outcome.Result[EntityMetadata] {
	if strings.TrimSpace(id) == "" {
		return outcome.Invalid[EntityMetadata](ErrEmptyID)
	}

	// The shared load outlives any single caller; the pipeline timeout
	// still bounds each attempt.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		body, _, err := c.loader.Get(shared, c.keyer.Key("metadata", id), func(ctx context.Context) ([]byte, error) {
			return c.getter.Get(ctx, operationFetch, c.path(id), "")
		})
		return body, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return outcome.Fail[EntityMetadata](ctx.Err())
	}
	if res.Err != nil {
		return outcome.Fail[EntityMetadata](res.Err)
	}

	meta, err := Parse(res.Val.([]byte), c.cfg.Language)
	if err != nil {
		return outcome.Result[EntityMetadata]{Kind: outcome.Transient, Status: http.StatusBadGateway, Err: err}
	}
	return outcome.OK(meta)
}

func (c *Client) path(id string) string {
	return strings.ReplaceAll(c.cfg.SpeciesPath, namePlaceholder, url.PathEscape(id))
}

type namedResource struct {
	Name string `json:"name"`
}

type flavorTextEntry struct {
	FlavorText string        `json:"flavor_text"`
	Language   namedResource `json:"language"`
}

type speciesPayload struct {
	ID                int               `json:"id"`
	Name              string            `json:"name"`
	IsLegendary       bool              `json:"is_legendary"`
	Habitat           *namedResource    `json:"habitat"`
	FlavorTextEntries []flavorTextEntry `json:"flavor_text_entries"`
}

// Parse decodes a species payload. The description is the first entry in
// language; absent optional fields stay zero.
func Parse(body []byte, language string) (EntityMetadata, error) {
	var p speciesPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return EntityMetadata{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	meta := EntityMetadata{ID: p.ID, Name: p.Name, Legendary: p.IsLegendary}
	if p.Habitat != nil {
		meta.Category = p.Habitat.Name
	}
	for _, e := range p.FlavorTextEntries {
		if strings.EqualFold(e.Language.Name, language) {
			meta.Description = e.FlavorText
			break
		}
	}
	return meta, nil
}
