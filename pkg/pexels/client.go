// Package pexels finds a landscape photo to use as a trip's default cover.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.pexels.com/v1"
	// candidatesPerSearch photos are fetched per query so portrait shots
	// tagged as landscape can be skipped.
	candidatesPerSearch = 5
)

// CoverFinder picks a default cover photo for a trip.
type CoverFinder interface {
	TripCover(ctx context.Context, trip *types.Trip) (string, error)
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

type searchResponse struct {
	Photos []photo `json:"photos"`
}

type photo struct {
	ID     int    `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Source source `json:"src"`
}

type source struct {
	Landscape string `json:"landscape"`
}

func (p photo) usable() bool {
	return p.Source.Landscape != "" && (p.Width == 0 || p.Width >= p.Height)
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        logger.GetLogger().Named("pexels"),
	}
}

// WithBaseURL points the client at another host. Used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// TripCover searches for the trip's destination and returns the landscape URL
// of the first wide photo. When the destination words find nothing the full
// trip name is tried. "" means no cover was found.
func (c *Client) TripCover(ctx context.Context, trip *types.Trip) (string, error) {
	if trip == nil {
		return "", nil
	}
	for _, query := range coverQueries(trip) {
		photos, err := c.search(ctx, query)
		if err != nil {
			return "", err
		}
		for _, p := range photos {
			if p.usable() {
				c.log.Debugw("Picked trip cover", "tripID", trip.ID, "query", query, "photoID", p.ID)
				return p.Source.Landscape, nil
			}
		}
		c.log.Debugw("No usable cover for query", "tripID", trip.ID, "query", query, "candidates", len(photos))
	}
	return "", nil
}

// coverQueries lists the searches to try in order, without blanks or repeats.
func coverQueries(trip *types.Trip) []string {
	var out []string
	for _, q := range []string{BuildSearchQuery(trip), strings.TrimSpace(trip.Name)} {
		if q == "" || (len(out) > 0 && strings.EqualFold(out[len(out)-1], q)) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (c *Client) search(ctx context.Context, query string) ([]photo, error) {
	params := url.Values{
		"query":       {query},
		"per_page":    {strconv.Itoa(candidatesPerSearch)},
		"orientation": {"landscape"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("Cover search request failed", "query", query, "error", err)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("Cover search returned non-OK status", "query", query, "statusCode", resp.StatusCode)
		return nil, fmt.Errorf("pexels API returned status: %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Photos, nil
}
