// Package newznab implements the Newznab usenet indexer API protocol.
package newznab

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/arrgo/internal/httpgw"
)

// Client is a Newznab API client for a single indexer. All requests are
// dispatched through a shared httpgw.Gateway under the "indexer:<name>"
// provider key, so rate limiting/concurrency for every indexer is enforced
// centrally rather than per client instance.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	gw      *httpgw.Gateway
	log     *slog.Logger
}

// Release represents a search result from a Newznab indexer.
type Release struct {
	Title       string
	GUID        string
	DownloadURL string
	Size        int64
	PublishDate time.Time
	Indexer     string
	Categories  []int
}

// NewClient creates a new Newznab client. gw may be nil, in which case the
// client creates its own single-provider gateway using
// httpgw.DefaultProviderLimit (mainly useful in tests).
func NewClient(name, baseURL, apiKey string, gw *httpgw.Gateway, log *slog.Logger) *Client {
	var clientLog *slog.Logger
	if log != nil {
		clientLog = log.With("component", "newznab", "indexer", name)
	} else {
		clientLog = slog.Default().With("component", "newznab", "indexer", name)
	}
	if gw == nil {
		gw = httpgw.NewGateway(nil, clientLog)
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		gw:      gw,
		log:     clientLog,
	}
}

// Name returns the indexer name.
func (c *Client) Name() string {
	return c.name
}

// URL returns the indexer base URL.
func (c *Client) URL() string {
	return c.baseURL
}

func (c *Client) providerKey() string {
	return "indexer:" + c.name
}

// Caps performs a capabilities request to test connectivity.
func (c *Client) Caps(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("t", "caps")
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.gw.Do(ctx, c.providerKey(), req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

// Newznab RSS response structures
type rssResponse struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title     string        `xml:"title"`
	GUID      string        `xml:"guid"`
	Link      string        `xml:"link"`
	Size      int64         `xml:"size"`
	PubDate   string        `xml:"pubDate"`
	Enclosure rssEnclosure  `xml:"enclosure"`
	Attrs     []newznabAttr `xml:"http://www.newznab.com/DTD/2010/feeds/attributes/ attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type newznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Search queries the indexer for releases matching query within categories.
func (c *Client) Search(ctx context.Context, query string, categories []int) ([]Release, error) {
	return c.search(ctx, "search", query, categories, 100, 0)
}

// SearchWithOffset queries the indexer with pagination support.
func (c *Client) SearchWithOffset(ctx context.Context, query string, categories []int, limit, offset int) ([]Release, error) {
	return c.search(ctx, "search", query, categories, limit, offset)
}

// RSS fetches the indexer's latest-releases feed: the same "search"
// contract with an empty query.
func (c *Client) RSS(ctx context.Context, categories []int, limit int) ([]Release, error) {
	return c.search(ctx, "search", "", categories, limit, 0)
}

// Kind-specific Newznab search types, used by SearchKind for the
// category-superset searches indexers expose per media kind.
const (
	KindMovie = "movie"
	KindTV    = "tvsearch"
	KindMusic = "music"
	KindBook  = "book"
)

// SearchKind performs a per-kind category-superset search (t=movie|tvsearch|
// music|book) instead of the generic t=search, for indexers that expose
// richer per-kind filtering.
func (c *Client) SearchKind(ctx context.Context, kind, query string, categories []int, limit, offset int) ([]Release, error) {
	return c.search(ctx, kind, query, categories, limit, offset)
}

func (c *Client) search(ctx context.Context, mode, query string, categories []int, limit, offset int) ([]Release, error) {
	start := time.Now()

	reqURL, err := url.Parse(c.baseURL + "/api")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("t", mode)
	if query != "" {
		params.Set("q", query)
	}
	if len(categories) > 0 {
		cats := make([]string, len(categories))
		for i, cat := range categories {
			cats[i] = strconv.Itoa(cat)
		}
		params.Set("cat", strings.Join(cats, ","))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.gw.Do(ctx, c.providerKey(), req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	releases := make([]Release, 0, len(rss.Channel.Items))
	for _, item := range rss.Channel.Items {
		rel := Release{
			Title:       item.Title,
			GUID:        item.GUID,
			DownloadURL: item.Link,
			Indexer:     c.name,
		}

		if item.Enclosure.Length > 0 {
			rel.Size = item.Enclosure.Length
		} else if item.Size > 0 {
			rel.Size = item.Size
		}

		if rel.DownloadURL == "" && item.Enclosure.URL != "" {
			rel.DownloadURL = item.Enclosure.URL
		}

		if item.PubDate != "" {
			for _, format := range []string{
				time.RFC1123Z,
				"Mon, 02 Jan 2006 15:04:05 -0700",
				"Mon, 02 Jan 2006 15:04:05 MST",
				time.RFC1123,
			} {
				if t, err := time.Parse(format, item.PubDate); err == nil {
					rel.PublishDate = t
					break
				}
			}
		}

		for _, attr := range item.Attrs {
			switch attr.Name {
			case "size":
				if rel.Size == 0 {
					rel.Size, _ = strconv.ParseInt(attr.Value, 10, 64)
				}
			case "category":
				if catID, err := strconv.Atoi(attr.Value); err == nil {
					rel.Categories = append(rel.Categories, catID)
				}
			}
		}

		releases = append(releases, rel)
	}

	c.log.Debug("search complete", "mode", mode, "query", query, "results", len(releases), "duration_ms", time.Since(start).Milliseconds())
	return releases, nil
}
