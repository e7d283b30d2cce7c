// Package hub is a client for the dataset host: catalog listing, repository
// tree listing, snapshot split discovery and row retrieval.
//
// Every request goes through a shared rate limiter and the retrying
// fetcher. HTTP failures are mapped onto errkind so the fetcher only
// retries what is worth retrying.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/evalharvest/internal/adapters/fetch"
	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/pkg/logger"
)

// Defaults.
const (
	DefaultHubURL   = "https://huggingface.co"
	DefaultRowsURL  = "https://datasets-server.huggingface.co"
	defaultPageSize = 100
	listPageSize    = 1000
	httpTimeout     = 2 * time.Minute
	defaultRevision = "main"
)

// Entry types in a tree listing.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// Entry is one item of a repository tree listing.
type Entry struct {
	Name         string
	Type         string
	LastModified time.Time
}

// Row is one decoded dataset row. Numbers are json.Number.
type Row = map[string]any

// Client talks to the dataset host.
type Client struct {
	hubURL   string
	rowsURL  string
	http     *http.Client
	limiter  *rate.Limiter
	fetcher  *fetch.Fetcher
	pageSize int
	logger   logger.Logger
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		hubURL:   DefaultHubURL,
		rowsURL:  DefaultRowsURL,
		http:     &http.Client{Timeout: httpTimeout},
		limiter:  rate.NewLimiter(rate.Inf, 0),
		pageSize: defaultPageSize,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = fetch.New(fetch.WithLogger(c.logger))
	}
	return c
}

type datasetInfo struct {
	ID string `json:"id"`
}

// ListDatasets returns the ids of datasets owned by author whose name
// contains search, following pagination.
func (c *Client) ListDatasets(ctx context.Context, author, search string) ([]string, error) {
	q := url.Values{}
	if author != "" {
		q.Set("author", author)
	}
	if search != "" {
		q.Set("search", search)
	}
	q.Set("limit", strconv.Itoa(listPageSize))
	next := c.hubURL + "/api/datasets?" + q.Encode()

	var ids []string
	for next != "" {
		var page []datasetInfo
		link, err := c.getJSON(ctx, "list", next, &page)
		if err != nil {
			return nil, err
		}
		for _, d := range page {
			ids = append(ids, d.ID)
		}
		next = nextLink(link)
	}
	return ids, nil
}

type treeEntry struct {
	Type       string `json:"type"`
	Path       string `json:"path"`
	LastCommit *struct {
		Date time.Time `json:"date"`
	} `json:"lastCommit"`
}

// ListTree lists the entries directly under dir of a dataset repository.
func (c *Client) ListTree(ctx context.Context, dataset, dir string) ([]Entry, error) {
	target := fmt.Sprintf("%s/api/datasets/%s/tree/%s/%s?expand=true",
		c.hubURL, dataset, defaultRevision, escapePath(dir))
	if dir == "" {
		target = fmt.Sprintf("%s/api/datasets/%s/tree/%s?expand=true", c.hubURL, dataset, defaultRevision)
	}

	var raw []treeEntry
	if _, err := c.getJSON(ctx, "tree", target, &raw); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, e := range raw {
		entry := Entry{Name: e.Path, Type: e.Type}
		if e.LastCommit != nil {
			entry.LastModified = e.LastCommit.Date
		}
		out = append(out, entry)
	}
	return out, nil
}

type splitsResponse struct {
	Splits []struct {
		Split string `json:"split"`
	} `json:"splits"`
}

// Splits returns the split labels of one dataset configuration. Snapshot
// labels are among them.
func (c *Client) Splits(ctx context.Context, dataset, config string) ([]string, error) {
	q := url.Values{"dataset": {dataset}, "config": {config}}
	var resp splitsResponse
	if _, err := c.getJSON(ctx, "splits", c.rowsURL+"/splits?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(resp.Splits))
	for _, s := range resp.Splits {
		labels = append(labels, s.Split)
	}
	return labels, nil
}

type rowsResponse struct {
	Rows []struct {
		Row Row `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Rows reads every row of one split, page by page. Each page is retried on
// its own.
func (c *Client) Rows(ctx context.Context, dataset, config, split string) ([]Row, error) {
	var out []Row
	for offset := 0; ; {
		q := url.Values{
			"dataset": {dataset},
			"config":  {config},
			"split":   {split},
			"offset":  {strconv.Itoa(offset)},
			"length":  {strconv.Itoa(c.pageSize)},
		}
		var page rowsResponse
		if _, err := c.getJSON(ctx, "rows", c.rowsURL+"/rows?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		for _, r := range page.Rows {
			out = append(out, r.Row)
		}
		offset += len(page.Rows)
		if len(page.Rows) == 0 || offset >= page.NumRowsTotal {
			return out, nil
		}
	}
}

// Get downloads target, which may be any absolute URL.
func (c *Client) Get(ctx context.Context, target string) ([]byte, error) {
	return fetch.Do(ctx, c.fetcher, "get", target, func(ctx context.Context) ([]byte, error) {
		body, _, err := c.do(ctx, target)
		return body, err
	})
}

// getJSON fetches target under the retry policy and decodes it into v. It
// returns the Link header of the response.
func (c *Client) getJSON(ctx context.Context, op, target string, v any) (string, error) {
	return fetch.Do(ctx, c.fetcher, op, target, func(ctx context.Context) (string, error) {
		body, header, err := c.do(ctx, target)
		if err != nil {
			return "", err
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(v); err != nil {
			return "", errkind.Wrap(errkind.ErrMalformed, "decode "+target, err)
		}
		return header.Get("Link"), nil
	})
}

// do performs one rate-limited GET.
func (c *Client) do(ctx context.Context, target string) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.ErrMalformed, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, errkind.Wrap(errkind.ErrTransient, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, statusError(resp.StatusCode, target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.ErrTransient, "read "+target, err)
	}
	c.logger.Debug(ctx, "hub request", logger.String("url", target), logger.Int("bytes", len(body)))
	return body, resp.Header, nil
}

var linkNext = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`) //nolint:gochecknoglobals // compiled once

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func nextLink(header string) string {
	m := linkNext.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}
