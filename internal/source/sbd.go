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

// SBDAdapter implements Adapter for Sports Betting Dime. JSON payload with
// optional API key; consensus percentages aggregated across its book panel,
// reported per market with the book attributed when available.
type SBDAdapter struct {
	httpClient *HTTPClient
	baseURL    string
	apiKey     string
	books      []string
	cadence    int
	seq        sequencer
	logger     *logrus.Logger
}

type sbdResponse struct {
	Events []sbdEvent `json:"events"`
}

type sbdEvent struct {
	EventID  string     `json:"event_id"`
	HomeTeam string     `json:"home_team"`
	AwayTeam string     `json:"away_team"`
	StartUTC string     `json:"start_time_utc"`
	Splits   []sbdSplit `json:"splits"`
}

type sbdSplit struct {
	Market     string   `json:"market"`
	Book       string   `json:"book"`
	MoneyPct   *float64 `json:"money_pct"`
	TicketsPct *float64 `json:"tickets_pct"`
	Line       string   `json:"line"`
}

// NewSBDAdapter creates a new Sports Betting Dime adapter
func NewSBDAdapter(httpClient *HTTPClient, cfg config.SourceConfig, logger *logrus.Logger) *SBDAdapter {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://www.sportsbettingdime.com/api/v2/mlb/splits"
	}
	return &SBDAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		books:      cfg.Books,
		cadence:    cfg.CadenceSeconds,
		logger:     logger,
	}
}

// Name returns the canonical source name
func (a *SBDAdapter) Name() string {
	return string(SBDSource)
}

// Identity describes the provider
func (a *SBDAdapter) Identity() Identity {
	return Identity{
		Source:         a.Name(),
		Books:          a.books,
		Markets:        models.AllMarkets,
		CadenceSeconds: a.cadence,
	}
}

// Fetch retrieves consensus splits for games inside the window
func (a *SBDAdapter) Fetch(ctx context.Context, window Window) ([]models.Observation, error) {
	endpoint := fmt.Sprintf("%s?date=%s", a.baseURL, window.Start.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to create request", err)
	}
	if a.apiKey != "" {
		req.Header.Set("X-Api-Key", a.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to fetch splits", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		srcErr := NewSourceError(a.Name(), ErrCodeRateLimited, "provider throttled", nil)
		srcErr.CooldownSeconds = retryAfterSeconds(resp)
		return nil, srcErr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to read response", err)
	}

	var payload sbdResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeParseError, "failed to parse splits payload", err)
	}
	if len(payload.Events) == 0 {
		return nil, NewSourceError(a.Name(), ErrCodeEmpty, "no events in response", nil)
	}

	collected := time.Now().UTC()
	var out []models.Observation
	for _, event := range payload.Events {
		start := parseGameTime(event.StartUTC)
		if start.IsZero() || start.Before(window.Start) || start.After(window.End) {
			continue
		}
		for _, split := range event.Splits {
			mkt := models.Market(split.Market)
			if !mkt.Valid() {
				continue
			}
			obs := models.Observation{
				GameExternalID: "sbd-" + event.EventID,
				Market:         mkt,
				CollectedAt:    collected,
				GameStart:      start,
				HomeTeam:       event.HomeTeam,
				AwayTeam:       event.AwayTeam,
				MoneyPct:       clampPtr(split.MoneyPct),
				BetPct:         clampPtr(split.TicketsPct),
				SplitValue:     split.Line,
				Payload:        body,
			}
			stamp(&obs, a.Name(), split.Book, endpoint, &a.seq)
			out = append(out, obs)
		}
	}

	return out, nil
}
