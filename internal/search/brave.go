package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const braveBaseURL = "https://api.search.brave.com/res/v1"

// Brave queries the Brave Search API.
type Brave struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewBrave(apiKey, baseURL string, hc *http.Client) *Brave {
	if baseURL == "" {
		baseURL = braveBaseURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Brave{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (b *Brave) Name() string { return "brave" }

type braveItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age"`
	Source      string `json:"source"`
	MetaURL     struct {
		Hostname string `json:"hostname"`
	} `json:"meta_url"`
	Thumbnail struct {
		Src string `json:"src"`
	} `json:"thumbnail"`
}

type braveResponse struct {
	Web struct {
		Results []braveItem `json:"results"`
	} `json:"web"`
	Results []braveItem `json:"results"`
}

func (b *Brave) endpoint(t Type) string {
	switch t {
	case TypeNews:
		return "/news/search"
	case TypeImages:
		return "/images/search"
	case TypeVideos:
		return "/videos/search"
	}
	return "/web/search"
}

func (b *Brave) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	t := ParseType(string(opts.Type))
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(opts.count()))
	if opts.Language != "" {
		q.Set("search_lang", opts.Language)
	}
	if opts.Region != "" {
		q.Set("country", opts.Region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+b.endpoint(t)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{Code: CodeRequest, Message: "Request failed: " + err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.hc.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}

	var raw braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, decodeError(err)
	}

	items := raw.Results
	if t == TypeSearch {
		items = raw.Web.Results
	}
	out := &Response{Query: query, Results: make([]Result, 0, len(items))}
	for _, it := range items {
		r := Result{Title: it.Title, URL: it.URL, Snippet: it.Description}
		switch t {
		case TypeNews:
			r.Date = it.Age
			r.SiteName = it.MetaURL.Hostname
		case TypeImages:
			r.ThumbnailURL = it.Thumbnail.Src
			r.SiteName = it.Source
		case TypeVideos:
			r.ThumbnailURL = it.Thumbnail.Src
			r.Date = it.Age
		}
		out.Results = append(out.Results, r)
	}
	return out, nil
}

var _ Provider = (*Brave)(nil)
