package paradisec

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://catalog.paradisec.org.au/collections"
	DefaultSuffix  = ".geo_json"
)

// FetchError reports a feed document that could not be fetched or decoded.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var errUnexpectedStatus = errors.New("unexpected status code")

type Options struct {
	BaseURL   string
	Suffix    string
	UserAgent string
	Timeout   time.Duration
	// RPS caps requests per second against the catalog; zero disables the limit.
	RPS int
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	suffix     string
	limiter    *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.RPS)), 1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		userAgent:  opts.UserAgent,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		suffix:     opts.Suffix,
		limiter:    limiter,
	}
}

// RootURL is the address of the main collection listing every sub-collection.
func (c *Client) RootURL() string {
	return c.baseURL + c.suffix
}

// CollectionURL is the address of one sub-collection.
func (c *Client) CollectionURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(id) + c.suffix
}

func (c *Client) FetchRoot(ctx context.Context) (*Collection, error) {
	return c.Fetch(ctx, c.RootURL())
}

func (c *Client) FetchCollection(ctx context.Context, id string) (*Collection, error) {
	return c.Fetch(ctx, c.CollectionURL(id))
}

// Fetch GETs one collection document. There are no retries: any failure is
// returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, u string) (*Collection, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode, Err: errUnexpectedStatus}
	}

	var coll Collection
	if err := json.NewDecoder(resp.Body).Decode(&coll); err != nil {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return &coll, nil
}
