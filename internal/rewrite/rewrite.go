// Package rewrite calls the text-rewriting providers.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonwraymond/pokedex/internal/outcome"
)

// ProviderID names a rewrite provider.
type ProviderID string

const (
	ProviderYoda        ProviderID = "yoda"
	ProviderShakespeare ProviderID = "shakespeare"
)

var (
	// ErrEmptyText rejects a rewrite of nothing.
	ErrEmptyText = errors.New("rewrite: empty text")
	// ErrUnknownProvider rejects a provider without a configured path.
	ErrUnknownProvider = errors.New("rewrite: unknown provider")
	// ErrMalformedPayload wraps JSON decoding failures of a 2xx response.
	ErrMalformedPayload = errors.New("rewrite: malformed payload")
)

// DefaultPaths are the FunTranslations endpoints.
func DefaultPaths() map[ProviderID]string {
	return map[ProviderID]string{
		ProviderYoda:        "/translate/yoda.json",
		ProviderShakespeare: "/translate/shakespeare.json",
	}
}

// Outcome is a successful rewrite. Text is still percent-encoded once;
// see Decode.
type Outcome struct {
	Text     string
	Provider ProviderID
}

// Getter performs a resilient GET. *upstream.Client implements it.
type Getter interface {
	Get(ctx context.Context, operation, path, rawQuery string) ([]byte, error)
}

// Client rewrites text through one of the configured providers.
type Client struct {
	getter Getter
	paths  map[ProviderID]string
}

// New creates a Client. A nil paths map uses DefaultPaths.
func New(getter Getter, paths map[ProviderID]string) *Client {
	if paths == nil {
		paths = DefaultPaths()
	}
	cp := make(map[ProviderID]string, len(paths))
	for id, p := range paths {
		cp[id] = p
	}
	return &Client{getter: getter, paths: cp}
}

type translation struct {
	Contents struct {
		Translated string `json:"translated"`
		Text       string `json:"text"`
	} `json:"contents"`
}

// Rewrite sends text to provider. Empty text and unknown providers fail
// with InvalidInput before any I/O.
func (c *Client) Rewrite(ctx context.Context, text string, provider ProviderID) outcome.Result[Outcome] {
	if text == "" {
		return outcome.Invalid[Outcome](ErrEmptyText)
	}
	path, ok := c.paths[provider]
	if !ok || path == "" {
		return outcome.Invalid[Outcome](fmt.Errorf("%w: %q", ErrUnknownProvider, provider))
	}

	// The provider decodes the query once more than a standard server.
	body, err := c.getter.Get(ctx, string(provider), path, "text="+Encode(Encode(text)))
	if err != nil {
		return outcome.Fail[Outcome](err)
	}

	var t translation
	if err := json.Unmarshal(body, &t); err != nil {
		return outcome.Result[Outcome]{
			Kind:   outcome.Transient,
			Status: http.StatusBadGateway,
			Err:    fmt.Errorf("%w: %v", ErrMalformedPayload, err),
		}
	}
	return outcome.OK(Outcome{Text: t.Contents.Translated, Provider: provider})
}

// Encode applies one layer of RFC 3986 percent-encoding: everything but
// unreserved characters is escaped and space becomes %20.
func Encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Decode removes one layer of percent-encoding. Each valid %XX triplet is
// decoded; a malformed one is copied through as literal text.
func Decode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func ishex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
