package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	errx "github.com/nakari-agent/server/internal/core/error"
)

// Type selects the result vertical.
type Type string

const (
	TypeSearch Type = "search"
	TypeNews   Type = "news"
	TypeImages Type = "images"
	TypeVideos Type = "videos"
)

// Types lists every supported vertical.
var Types = []Type{TypeSearch, TypeNews, TypeImages, TypeVideos}

// ParseType maps a loosely typed name to a Type, defaulting to TypeSearch.
func ParseType(s string) Type {
	for _, t := range Types {
		if string(t) == s {
			return t
		}
	}
	return TypeSearch
}

const (
	DefaultNumResults = 10
	MaxNumResults     = 20
)

// Options tune a single query.
type Options struct {
	Type       Type
	NumResults int
	Language   string
	Region     string
}

func (o Options) count() int {
	switch {
	case o.NumResults <= 0:
		return DefaultNumResults
	case o.NumResults > MaxNumResults:
		return MaxNumResults
	}
	return o.NumResults
}

// Result is one hit. Optional fields depend on the vertical.
type Result struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Snippet      string `json:"snippet"`
	Date         string `json:"date,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	SiteName     string `json:"siteName,omitempty"`
}

// Response is the provider-independent answer to a query.
type Response struct {
	Query        string   `json:"query"`
	Results      []Result `json:"results"`
	TotalResults int64    `json:"totalResults"`
}

// Provider executes queries against one search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}

// Client is the entry point used by the agent.
type Client struct {
	provider Provider
}

func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Search runs query through the provider. Failures carry errx.KindProvider and
// unwrap to *Error.
func (c *Client) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	resp, err := c.provider.Search(ctx, query, opts)
	if err != nil {
		return nil, errx.WrapProvider(err, c.provider.Name()+" search")
	}
	if resp.Results == nil {
		resp.Results = []Result{}
	}
	if resp.TotalResults == 0 {
		resp.TotalResults = int64(len(resp.Results))
	}
	return resp, nil
}

// SearchNews is Search restricted to news.
func (c *Client) SearchNews(ctx context.Context, query string, opts Options) (*Response, error) {
	opts.Type = TypeNews
	return c.Search(ctx, query, opts)
}

// VerifyConnectivity issues a minimal query to check credentials and reachability.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	_, err := c.Search(ctx, "test", Options{NumResults: 1})
	return err
}

// ProviderName is the backend's name.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Config selects and configures a provider, read from SEARCH_* variables.
type Config struct {
	Provider string        `envconfig:"SEARCH_PROVIDER" default:"serper"`
	APIKey   string        `envconfig:"SEARCH_API_KEY"`
	BaseURL  string        `envconfig:"SEARCH_BASE_URL"`
	Timeout  time.Duration `envconfig:"SEARCH_TIMEOUT" default:"20s"`
}

// Enabled reports whether search credentials are present.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}

// Validate checks the provider name.
func (c Config) Validate() error {
	switch c.Provider {
	case "", "serper", "brave":
		return nil
	}
	return fmt.Errorf("unsupported search provider %q", c.Provider)
}

// New builds a client for the configured provider.
func (c Config) New() (*Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: c.Timeout}
	switch c.Provider {
	case "brave":
		return NewClient(NewBrave(c.APIKey, c.BaseURL, hc)), nil
	default:
		return NewClient(NewSerper(c.APIKey, c.BaseURL, hc)), nil
	}
}
