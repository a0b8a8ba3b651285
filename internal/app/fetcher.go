package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/samvad-httpclient/internal/config"
	"github.com/samvad-hq/samvad-httpclient/internal/logger"
	"github.com/samvad-hq/samvad-httpclient/internal/profiles"
	"github.com/samvad-hq/samvad-httpclient/internal/storage"
	"github.com/samvad-hq/samvad-httpclient/pkg/httpclient"
	"github.com/samvad-hq/samvad-httpclient/pkg/jsontree"
)

// Options selects the profile and credentials a Fetcher starts with. Explicit
// credentials win over the profile's, which win over the config's.
type Options struct {
	ProfileID string
	User      string
	Password  string
	Transport httpclient.Transport
}

// Call is one request as issued from the command line.
type Call struct {
	Method      string
	Target      string
	ContentType string
	Body        []byte
}

// Fetcher represents the client runtime. It resolves targets against the selected
// profile, issues calls through one httpclient.Client and records every response
// in the history store.
type Fetcher struct {
	cfg     *config.Config
	client  *httpclient.Client
	profile profiles.Profile
	history storage.History
	log     logger.Logger
}

// NewFetcher builds a fetcher runtime from config and options.
func NewFetcher(cfg *config.Config, log logger.Logger, opts Options) (*Fetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	var profile profiles.Profile
	if strings.TrimSpace(cfg.ProfilesFile) != "" {
		reg, err := profiles.Load(cfg.ProfilesFile)
		if err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		ids := make([]string, 0, len(reg.All()))
		for _, p := range reg.All() {
			ids = append(ids, p.ID)
		}
		log.DebugObj("profiles loaded", "profiles_meta", map[string]any{
			"count": len(ids),
			"ids":   ids,
		})
		if opts.ProfileID != "" {
			p, ok := reg.ByID(opts.ProfileID)
			if !ok {
				return nil, fmt.Errorf("unknown profile %q", opts.ProfileID)
			}
			profile = p
		}
	} else if opts.ProfileID != "" {
		return nil, fmt.Errorf("profile %q requested but no profiles_file configured", opts.ProfileID)
	}

	clientOpts := []httpclient.Option{
		httpclient.WithUserAgent(cfg.UserAgent),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithLogger(log),
	}
	if opts.Transport != nil {
		clientOpts = append(clientOpts, httpclient.WithTransport(opts.Transport))
	}
	client := httpclient.New(clientOpts...)

	switch {
	case opts.User != "":
		client.SetAuth(opts.User, opts.Password)
	case profile.HasAuth():
		client.SetAuth(profile.User, profile.Password)
	case cfg.AuthUser != "":
		client.SetAuth(cfg.AuthUser, cfg.AuthPassword)
	}

	history, err := storage.NewHistory(cfg.HistoryType, cfg.HistoryPath, storage.Options{
		EntryTTL:        cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}
	log.DebugObj("history initialized", "history_config", map[string]any{
		"type":                     cfg.HistoryType,
		"path":                     cfg.HistoryPath,
		"ttl_seconds":              int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	return &Fetcher{
		cfg:     cfg,
		client:  client,
		profile: profile,
		history: history,
		log:     log,
	}, nil
}

// Client exposes the underlying client, e.g. to change credentials between calls.
func (f *Fetcher) Client() *httpclient.Client { return f.client }

// URL resolves target against the selected profile.
func (f *Fetcher) URL(target string) string {
	if f.profile.BaseURL == "" {
		return strings.TrimSpace(target)
	}
	return f.profile.Resolve(target)
}

// Do issues one call and records the response.
func (f *Fetcher) Do(ctx context.Context, call Call) (*httpclient.Response, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("fetcher is not initialized")
	}
	req, err := f.buildRequest(call)
	if err != nil {
		return nil, err
	}

	resp := f.client.Execute(ctx, req)
	f.record(req.Method(), req.URL(), resp)
	return resp, nil
}

// Tree issues a GET (or a form POST when body is non-nil), parses the response and
// reports whether the tree is a known error payload.
func (f *Fetcher) Tree(ctx context.Context, target string, body []byte) (*jsontree.Tree, bool, error) {
	method := http.MethodGet
	if body != nil {
		method = http.MethodPost
	}
	resp, err := f.Do(ctx, Call{Method: method, Target: target, ContentType: httpclient.FormContentType, Body: body})
	if err != nil {
		return nil, false, err
	}

	tree, err := httpclient.ParseTree(resp, f.URL(target))
	if err != nil {
		return nil, false, err
	}
	return tree, httpclient.IsKnownErrorShape(tree), nil
}

// Last returns the recorded response for method and target, if any.
func (f *Fetcher) Last(method, target string) (storage.Entry, bool, error) {
	return f.history.Lookup(method, f.URL(target))
}

// Close releases the history store, logging any errors encountered.
func (f *Fetcher) Close() error {
	if f == nil || f.history == nil {
		return nil
	}
	if err := f.history.Close(); err != nil {
		f.log.ErrorObj("history close failed", "error", err)
		return err
	}
	return nil
}

func (f *Fetcher) buildRequest(call Call) (httpclient.Request, error) {
	url := f.URL(call.Target)
	if url == "" {
		return httpclient.Request{}, fmt.Errorf("target url is empty")
	}

	contentType := call.ContentType
	if contentType == "" {
		contentType = f.profile.ContentType
	}
	if contentType == "" {
		contentType = httpclient.FormContentType
	}

	switch strings.ToUpper(strings.TrimSpace(call.Method)) {
	case "", http.MethodGet:
		return httpclient.NewGet(url), nil
	case http.MethodPost:
		return httpclient.NewPost(url, contentType, call.Body), nil
	case http.MethodPut:
		return httpclient.NewPut(url, contentType, call.Body), nil
	case http.MethodDelete:
		return httpclient.NewDelete(url), nil
	default:
		return httpclient.Request{}, fmt.Errorf("unsupported method %q", call.Method)
	}
}

// record stores the response; history failures never fail the call.
func (f *Fetcher) record(method, url string, resp *httpclient.Response) {
	err := f.history.Record(storage.Entry{
		Method:  method,
		URL:     url,
		Code:    resp.Code,
		Headers: resp.Headers,
		Body:    resp.Body,
	})
	if err != nil {
		f.log.WarnObj("history record failed", "history_error", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
	}
}
