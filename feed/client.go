package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scrimbot/models"
)

// Client talks to a vlr.gg-style match API. All calls run under the
// http.Client timeout plus whatever deadline the caller's context carries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client for the given base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type segment struct {
	Team1          string `json:"team1"`
	Team2          string `json:"team2"`
	Score1         string `json:"score1"`
	Score2         string `json:"score2"`
	MatchPage      string `json:"match_page"`
	MatchEvent     string `json:"match_event"`
	MatchSeries    string `json:"match_series"`
	TournamentName string `json:"tournament_name"`
	RoundInfo      string `json:"round_info"`
	TimeUntilMatch string `json:"time_until_match"`
}

type apiResponse struct {
	Data struct {
		Segments []segment `json:"segments"`
	} `json:"data"`
}

func (c *Client) fetch(ctx context.Context, query string) ([]segment, error) {
	endpoint := fmt.Sprintf("%s/match?q=%s", c.baseURL, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request %s failed: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed request %s returned status %d", query, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	return payload.Data.Segments, nil
}

// Upcoming lists matches currently open for bets
func (c *Client) Upcoming(ctx context.Context) ([]models.Match, error) {
	segments, err := c.fetch(ctx, "upcoming")
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(segments))
	for _, seg := range segments {
		matches = append(matches, seg.toMatch(models.MatchStatusUpcoming))
	}
	return matches, nil
}

// Live lists matches currently in progress
func (c *Client) Live(ctx context.Context) ([]models.Match, error) {
	segments, err := c.fetch(ctx, "live_score")
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(segments))
	for _, seg := range segments {
		matches = append(matches, seg.toMatch(models.MatchStatusLive))
	}
	return matches, nil
}

// Results lists recently finished matches with their outcome
func (c *Client) Results(ctx context.Context) ([]models.Match, error) {
	segments, err := c.fetch(ctx, "results")
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(segments))
	for _, seg := range segments {
		matches = append(matches, seg.toResult())
	}
	return matches, nil
}

// Match returns the feed's current view of one match, checking results
// first so a finished match is never mistaken for a live one.
func (c *Client) Match(ctx context.Context, matchID string) (*models.Match, error) {
	results, err := c.Results(ctx)
	if err != nil {
		return nil, err
	}
	if m := find(results, matchID); m != nil {
		return m, nil
	}

	live, err := c.Live(ctx)
	if err != nil {
		return nil, err
	}
	if m := find(live, matchID); m != nil {
		return m, nil
	}

	upcoming, err := c.Upcoming(ctx)
	if err != nil {
		return nil, err
	}
	if m := find(upcoming, matchID); m != nil {
		return m, nil
	}

	return &models.Match{ID: matchID, Status: models.MatchStatusUnknown}, nil
}

func find(matches []models.Match, matchID string) *models.Match {
	for i := range matches {
		if matches[i].ID == matchID {
			return &matches[i]
		}
	}
	return nil
}

func (s segment) toMatch(status models.MatchStatus) models.Match {
	event := s.MatchEvent
	if event == "" {
		event = s.TournamentName
	}
	return models.Match{
		ID:     NormalizeMatchID(s.MatchPage),
		Event:  event,
		Series: s.MatchSeries,
		Team1:  s.Team1,
		Team2:  s.Team2,
		Status: status,
	}
}

// toResult derives the outcome from the series score. The feed has no
// explicit cancelled flag; a result with no score difference means the
// series never concluded and is treated as voided.
func (s segment) toResult() models.Match {
	match := s.toMatch(models.MatchStatusFinished)

	score1 := parseScore(s.Score1)
	score2 := parseScore(s.Score2)
	switch {
	case score1 > score2:
		match.Winner = s.Team1
	case score2 > score1:
		match.Winner = s.Team2
	default:
		match.Status = models.MatchStatusVoided
	}

	return match
}

func parseScore(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// NormalizeMatchID reduces a match page reference to its path, so a full URL
// and a bare path refer to the same match.
func NormalizeMatchID(matchPage string) string {
	if matchPage == "" {
		return matchPage
	}
	if strings.HasPrefix(matchPage, "http") {
		if u, err := url.Parse(matchPage); err == nil {
			return u.Path
		}
	}
	return matchPage
}
