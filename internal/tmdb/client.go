// Package tmdb is the client for the external metadata provider. Lookups
// either return a record or fail; enrichment treats a failure as "no
// metadata" and moves on.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/franz/media-indexer/internal/util"
)

const (
	// BaseURL is the TMDB API base URL
	BaseURL = "https://api.themoviedb.org/3"

	// PosterBaseURL prefixes poster paths returned by the provider
	PosterBaseURL = "https://image.tmdb.org/t/p/original"

	// MaxPlotLength caps plot summaries stored in the catalog
	MaxPlotLength = 600
)

// Media types as resolved by the provider
const (
	MediaMovie  = "movie"
	MediaSeries = "series"
)

// Client handles TMDB API requests
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient creates a new TMDB API client
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:  apiKey,
		baseURL: BaseURL,
	}
}

// Candidate is a search hit: the provider id plus the resolved media type
type Candidate struct {
	ID        int64
	MediaType string
}

// Details is the catalog-grade record fetched for a resolved candidate
type Details struct {
	Title      string
	Year       string
	Rating     string
	Plot       string
	PosterPath string
	PosterURL  string
	TrailerURL string
	IMDBID     string
}

type searchResult struct {
	Results []struct {
		ID           int64  `json:"id"`
		ReleaseDate  string `json:"release_date"`
		FirstAirDate string `json:"first_air_date"`
	} `json:"results"`
}

// SearchMovie resolves a title (plus optional year) to a movie candidate.
// When a year is supplied, the first result matching it wins; otherwise the
// first result wins. Returns (nil, nil) when nothing matches.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*Candidate, error) {
	result, err := c.search(ctx, "movie", title)
	if err != nil {
		return nil, err
	}
	for _, r := range result.Results {
		if year > 0 && !dateMatchesYear(r.ReleaseDate, year) {
			continue
		}
		return &Candidate{ID: r.ID, MediaType: MediaMovie}, nil
	}
	return nil, nil
}

// SearchSeries resolves a title (plus optional first-air year) to a series
// candidate. Returns (nil, nil) when nothing matches.
func (c *Client) SearchSeries(ctx context.Context, title string, year int) (*Candidate, error) {
	result, err := c.search(ctx, "tv", title)
	if err != nil {
		return nil, err
	}
	for _, r := range result.Results {
		if year > 0 && !dateMatchesYear(r.FirstAirDate, year) {
			continue
		}
		return &Candidate{ID: r.ID, MediaType: MediaSeries}, nil
	}
	return nil, nil
}

func (c *Client) search(ctx context.Context, endpoint, title string) (*searchResult, error) {
	if title == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}

	urlStr := fmt.Sprintf("%s/search/%s?api_key=%s&query=%s",
		c.baseURL, endpoint, c.apiKey, url.QueryEscape(title))

	util.DebugLog("TMDB API: searching %s for '%s'", endpoint, title)

	var result searchResult
	if err := c.getJSON(ctx, urlStr, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type detailsResponse struct {
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	IMDBID       string `json:"imdb_id"`
	ExternalIDs  struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
	Videos struct {
		Results []struct {
			Site string `json:"site"`
			Type string `json:"type"`
			Key  string `json:"key"`
		} `json:"results"`
	} `json:"videos"`
}

// Details fetches the full record for a resolved candidate. The plot is
// truncated to MaxPlotLength with an ellipsis when longer.
func (c *Client) Details(ctx context.Context, mediaType string, id int64) (*Details, error) {
	endpoint := "movie"
	if mediaType == MediaSeries {
		endpoint = "tv"
	}

	urlStr := fmt.Sprintf("%s/%s/%d?api_key=%s&append_to_response=videos,external_ids",
		c.baseURL, endpoint, id, c.apiKey)

	util.DebugLog("TMDB API: fetching %s details for %d", mediaType, id)

	var resp detailsResponse
	if err := c.getJSON(ctx, urlStr, &resp); err != nil {
		return nil, err
	}

	d := &Details{
		Title:      resp.Title,
		Plot:       TruncatePlot(resp.Overview),
		PosterPath: resp.PosterPath,
		IMDBID:     resp.IMDBID,
	}
	if d.Title == "" {
		d.Title = resp.Name
	}
	if d.IMDBID == "" {
		d.IMDBID = resp.ExternalIDs.IMDBID
	}

	date := resp.ReleaseDate
	if date == "" {
		date = resp.FirstAirDate
	}
	if len(date) >= 4 {
		d.Year = date[:4]
	}

	if resp.VoteAverage > 0 {
		d.Rating = strconv.FormatFloat(resp.VoteAverage, 'f', 1, 64)
	}

	if d.PosterPath != "" {
		d.PosterURL = PosterBaseURL + d.PosterPath
	}

	for _, v := range resp.Videos.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			d.TrailerURL = "https://www.youtube.com/watch?v=" + v.Key
			break
		}
	}

	return d, nil
}

func (c *Client) getJSON(ctx context.Context, urlStr string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", util.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// TruncatePlot caps a plot summary at MaxPlotLength runes, appending an
// ellipsis when truncated.
func TruncatePlot(plot string) string {
	runes := []rune(plot)
	if len(runes) <= MaxPlotLength {
		return plot
	}
	return string(runes[:MaxPlotLength]) + "..."
}

func dateMatchesYear(date string, year int) bool {
	return len(date) >= 4 && date[:4] == strconv.Itoa(year)
}
