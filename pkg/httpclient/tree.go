package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-httpclient/internal/logger"
	"github.com/samvad-hq/samvad-httpclient/pkg/jsontree"
)

const (
	channel = "httpclient"

	maxHintBodyBytes = 1 << 20 // 1 MiB
	maxLoggedBody    = 4096
)

// ParseTree turns a finished response into a tree. Any status other than 200 yields a
// tree with a single "error" leaf and no error. A 200 whose body is not JSON is logged
// with the URL and raw body and returned as an error wrapping jsontree.ErrMalformedBody.
func ParseTree(resp *Response, url string) (*jsontree.Tree, error) {
	if resp == nil {
		resp = &Response{Code: TransportFailureCode}
	}

	if resp.Code != http.StatusOK {
		fields := map[string]any{
			"channel": channel,
			"url":     url,
			"code":    resp.Code,
		}
		if hint := htmlErrorHint(resp.Body); hint != "" {
			fields["page_title"] = hint
		}
		logger.WarnObj("received non-OK status", "httpclient_status", fields)

		tree := jsontree.New()
		tree.Put("error", fmt.Sprintf("Status %d when getting %s", resp.Code, url))
		return tree, nil
	}

	tree, err := jsontree.Parse(resp.Body)
	if err != nil {
		logger.ErrorObj("error reading result of URL", "httpclient_parse_error", map[string]any{
			"channel":  channel,
			"url":      url,
			"response": truncate(resp.Body, maxLoggedBody),
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("parse response from %s: %w", url, err)
	}
	return tree, nil
}

// GetTree performs a GET and parses the response.
func (c *Client) GetTree(ctx context.Context, url string) (*jsontree.Tree, error) {
	return ParseTree(c.Get(ctx, url), url)
}

// PostTree performs a form-encoded POST of data and parses the response.
func (c *Client) PostTree(ctx context.Context, url string, data []byte) (*jsontree.Tree, error) {
	return ParseTree(c.Post(ctx, url, FormContentType, data), url)
}

// htmlErrorHint extracts a page title from HTML error bodies such as framework debug pages.
func htmlErrorHint(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return ""
	}
	if len(trimmed) > maxHintBodyBytes {
		trimmed = trimmed[:maxHintBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func truncate(body []byte, max int) string {
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
