package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage keeps a local history of responses, keyed by method and URL.

// Entry is one recorded response.
type Entry struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Code      int               `json:"code"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      []byte            `json:"body,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Key identifies an entry in the history.
func (e Entry) Key() string { return entryKey(e.Method, e.URL) }

func entryKey(method, url string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(url)
}

// History records responses and looks them up again.
type History interface {
	Close() error
	Record(e Entry) error
	Lookup(method, url string) (Entry, bool, error)
}

// Options controls retention characteristics for concrete history implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
	MaxBodyBytes    int
}

const (
	defaultEntryTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
	defaultMaxBodyBytes    = 1 << 20 // 1 MiB
)

// NewHistory creates the configured history backend.
func NewHistory(typ, path string, opts Options) (History, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopHistory{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt history requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported history type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return opts
}

type noopHistory struct{}

func (noopHistory) Close() error                              { return nil }
func (noopHistory) Record(Entry) error                        { return nil }
func (noopHistory) Lookup(string, string) (Entry, bool, error) { return Entry{}, false, nil }
