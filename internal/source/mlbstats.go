package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/models"
)

// MLBStatsAdapter implements Adapter for the official MLB Stats API. The feed
// carries no betting data; its observations establish the game schedule
// (teams, start time, venue) so that game rows exist before the betting
// sources report, and its FetchFinals call supplies completed-game scores to
// the outcome resolver.
type MLBStatsAdapter struct {
	httpClient *HTTPClient
	baseURL    string
	cadence    int
	seq        sequencer
	logger     *logrus.Logger
}

type mlbSchedule struct {
	Dates []mlbDate `json:"dates"`
}

type mlbDate struct {
	Games []mlbGame `json:"games"`
}

type mlbGame struct {
	GamePk   int64     `json:"gamePk"`
	GameDate string    `json:"gameDate"`
	Status   mlbStatus `json:"status"`
	Teams    mlbTeams  `json:"teams"`
	Venue    mlbVenue  `json:"venue"`
}

type mlbStatus struct {
	AbstractGameState string `json:"abstractGameState"` // "Preview" | "Live" | "Final"
}

type mlbTeams struct {
	Home mlbTeamSide `json:"home"`
	Away mlbTeamSide `json:"away"`
}

type mlbTeamSide struct {
	Team  mlbTeam `json:"team"`
	Score *int    `json:"score"`
}

type mlbTeam struct {
	Name string `json:"name"`
}

type mlbVenue struct {
	Name string `json:"name"`
}

// GameFinal is a completed game's score as reported by the schedule feed.
type GameFinal struct {
	ExternalID string
	HomeTeam   string
	AwayTeam   string
	GameStart  time.Time
	Park       string
	HomeScore  int
	AwayScore  int
}

// NewMLBStatsAdapter creates a new MLB Stats API adapter
func NewMLBStatsAdapter(httpClient *HTTPClient, cfg config.SourceConfig, logger *logrus.Logger) *MLBStatsAdapter {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://statsapi.mlb.com/api/v1"
	}
	return &MLBStatsAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		cadence:    cfg.CadenceSeconds,
		logger:     logger,
	}
}

// Name returns the canonical source name
func (a *MLBStatsAdapter) Name() string {
	return string(MLBStatsSource)
}

// Identity describes the provider
func (a *MLBStatsAdapter) Identity() Identity {
	return Identity{
		Source:         a.Name(),
		Books:          nil, // schedule feed, no books
		Markets:        models.AllMarkets,
		CadenceSeconds: a.cadence,
	}
}

// Fetch retrieves the schedule for the window's dates. The resulting
// observations carry nil percentages and an empty split value; the pipeline
// uses them to create game rows with authoritative start times and parks.
func (a *MLBStatsAdapter) Fetch(ctx context.Context, window Window) ([]models.Observation, error) {
	schedule, body, err := a.fetchSchedule(ctx, window)
	if err != nil {
		return nil, err
	}

	collected := time.Now().UTC()
	var out []models.Observation
	for _, date := range schedule.Dates {
		for _, game := range date.Games {
			start := parseGameTime(game.GameDate)
			if start.IsZero() || start.Before(window.Start) || start.After(window.End) {
				continue
			}
			for _, mkt := range models.AllMarkets {
				obs := models.Observation{
					GameExternalID: fmt.Sprintf("mlb-%d", game.GamePk),
					Market:         mkt,
					CollectedAt:    collected,
					GameStart:      start,
					HomeTeam:       game.Teams.Home.Team.Name,
					AwayTeam:       game.Teams.Away.Team.Name,
					Park:           game.Venue.Name,
					Payload:        body,
				}
				stamp(&obs, a.Name(), "", a.baseURL+"/schedule", &a.seq)
				out = append(out, obs)
			}
		}
	}

	return out, nil
}

// FetchFinals returns completed games for the window. Games still in Preview
// or Live state are skipped; the resolver retries them on its next pass.
func (a *MLBStatsAdapter) FetchFinals(ctx context.Context, window Window) ([]GameFinal, error) {
	schedule, _, err := a.fetchSchedule(ctx, window)
	if err != nil {
		return nil, err
	}

	var out []GameFinal
	for _, date := range schedule.Dates {
		for _, game := range date.Games {
			if game.Status.AbstractGameState != "Final" {
				continue
			}
			if game.Teams.Home.Score == nil || game.Teams.Away.Score == nil {
				continue
			}
			out = append(out, GameFinal{
				ExternalID: fmt.Sprintf("mlb-%d", game.GamePk),
				HomeTeam:   game.Teams.Home.Team.Name,
				AwayTeam:   game.Teams.Away.Team.Name,
				GameStart:  parseGameTime(game.GameDate),
				Park:       game.Venue.Name,
				HomeScore:  *game.Teams.Home.Score,
				AwayScore:  *game.Teams.Away.Score,
			})
		}
	}
	return out, nil
}

func (a *MLBStatsAdapter) fetchSchedule(ctx context.Context, window Window) (*mlbSchedule, []byte, error) {
	endpoint := fmt.Sprintf("%s/schedule?sportId=1&startDate=%s&endDate=%s",
		a.baseURL, window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(ctx, req)
	if err != nil {
		return nil, nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to fetch schedule", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		srcErr := NewSourceError(a.Name(), ErrCodeRateLimited, "provider throttled", nil)
		srcErr.CooldownSeconds = retryAfterSeconds(resp)
		return nil, nil, srcErr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, NewSourceError(a.Name(), ErrCodeUnavailable, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to read response", err)
	}

	var schedule mlbSchedule
	if err := json.Unmarshal(body, &schedule); err != nil {
		return nil, nil, NewSourceError(a.Name(), ErrCodeParseError, "failed to parse schedule", err)
	}
	if len(schedule.Dates) == 0 {
		return nil, nil, NewSourceError(a.Name(), ErrCodeEmpty, "no dates in schedule", nil)
	}
	return &schedule, body, nil
}
