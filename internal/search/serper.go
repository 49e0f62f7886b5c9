package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

const serperBaseURL = "https://google.serper.dev"

// Serper queries Google results through serper.dev.
type Serper struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewSerper(apiKey, baseURL string, hc *http.Client) *Serper {
	if baseURL == "" {
		baseURL = serperBaseURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Serper{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (s *Serper) Name() string { return "serper" }

type serperItem struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Snippet   string `json:"snippet"`
	Date      string `json:"date"`
	Source    string `json:"source"`
	ImageURL  string `json:"imageUrl"`
	Thumbnail string `json:"thumbnail"`
}

type serperResponse struct {
	SearchInformation struct {
		TotalResults any `json:"totalResults"`
	} `json:"searchInformation"`
	Organic []serperItem `json:"organic"`
	News    []serperItem `json:"news"`
	Images  []serperItem `json:"images"`
	Videos  []serperItem `json:"videos"`
}

func (s *Serper) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	t := ParseType(string(opts.Type))
	payload := map[string]any{"q": query, "num": opts.count()}
	if opts.Language != "" {
		payload["hl"] = opts.Language
	}
	if opts.Region != "" {
		payload["gl"] = opts.Region
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Code: CodeRequest, Message: "Request failed: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+string(t), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Code: CodeRequest, Message: "Request failed: " + err.Error(), Err: err}
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}

	var raw serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, decodeError(err)
	}

	var items []serperItem
	switch t {
	case TypeNews:
		items = raw.News
	case TypeImages:
		items = raw.Images
	case TypeVideos:
		items = raw.Videos
	default:
		items = raw.Organic
	}

	out := &Response{Query: query, Results: make([]Result, 0, len(items))}
	for _, it := range items {
		r := Result{Title: it.Title, URL: it.Link, Snippet: it.Snippet}
		switch t {
		case TypeNews:
			r.Date = it.Date
			r.SiteName = it.Source
		case TypeImages:
			r.ThumbnailURL = it.ImageURL
		case TypeVideos:
			r.ThumbnailURL = it.Thumbnail
			r.Date = it.Date
		}
		out.Results = append(out.Results, r)
	}
	out.TotalResults = parseTotal(raw.SearchInformation.TotalResults)
	return out, nil
}

// parseTotal accepts the count as a number or a digit string with separators.
func parseTotal(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		i, err := strconv.ParseInt(strings.ReplaceAll(n, ",", ""), 10, 64)
		if err == nil {
			return i
		}
	}
	return 0
}

var _ Provider = (*Serper)(nil)
