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

// ActionNetworkAdapter implements Adapter for the Action Network public
// betting API. JSON payload, API-key auth, per-book money and ticket
// percentages across all three markets.
type ActionNetworkAdapter struct {
	httpClient *HTTPClient
	baseURL    string
	apiKey     string
	books      []string
	cadence    int
	seq        sequencer
	logger     *logrus.Logger
}

type anScoreboard struct {
	Games []anGame `json:"games"`
}

type anGame struct {
	ID        int64      `json:"id"`
	StartTime string     `json:"start_time"`
	HomeTeam  anTeam     `json:"home_team"`
	AwayTeam  anTeam     `json:"away_team"`
	Markets   []anMarket `json:"markets"`
}

type anTeam struct {
	FullName string `json:"full_name"`
	Abbr     string `json:"abbr"`
}

type anMarket struct {
	Type  string   `json:"type"` // "moneyline" | "spread" | "total"
	Books []anBook `json:"books"`
}

type anBook struct {
	BookName string     `json:"book_name"`
	Value    string     `json:"value"` // odds JSON for ML, line for spread/total
	BetInfo  *anBetInfo `json:"bet_info"`
}

type anBetInfo struct {
	MoneyPercent   *float64 `json:"money_percent"`
	TicketsPercent *float64 `json:"tickets_percent"`
	TicketsCount   *int     `json:"tickets_count"`
}

// NewActionNetworkAdapter creates a new Action Network adapter
func NewActionNetworkAdapter(httpClient *HTTPClient, cfg config.SourceConfig, logger *logrus.Logger) *ActionNetworkAdapter {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://api.actionnetwork.com/web/v1"
	}
	return &ActionNetworkAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		books:      cfg.Books,
		cadence:    cfg.CadenceSeconds,
		logger:     logger,
	}
}

// Name returns the canonical source name
func (a *ActionNetworkAdapter) Name() string {
	return string(ActionNetworkSource)
}

// Identity describes the provider
func (a *ActionNetworkAdapter) Identity() Identity {
	return Identity{
		Source:         a.Name(),
		Books:          a.books,
		Markets:        models.AllMarkets,
		CadenceSeconds: a.cadence,
	}
}

// Fetch retrieves public betting splits for games starting inside the window
func (a *ActionNetworkAdapter) Fetch(ctx context.Context, window Window) ([]models.Observation, error) {
	endpoint := fmt.Sprintf("%s/scoreboard/publicbetting?league=mlb&date=%s",
		a.baseURL, window.Start.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to fetch scoreboard", err)
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

	var board anScoreboard
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeParseError, "failed to parse scoreboard", err)
	}
	if len(board.Games) == 0 {
		return nil, NewSourceError(a.Name(), ErrCodeEmpty, "no games in response", nil)
	}

	collected := time.Now().UTC()
	var out []models.Observation
	for _, game := range board.Games {
		start := parseGameTime(game.StartTime)
		if start.IsZero() || start.Before(window.Start) || start.After(window.End) {
			continue
		}
		for _, market := range game.Markets {
			mkt := models.Market(market.Type)
			if !mkt.Valid() {
				continue
			}
			for _, book := range market.Books {
				obs := models.Observation{
					GameExternalID: fmt.Sprintf("an-%d", game.ID),
					Market:         mkt,
					CollectedAt:    collected,
					GameStart:      start,
					HomeTeam:       game.HomeTeam.FullName,
					AwayTeam:       game.AwayTeam.FullName,
					SplitValue:     book.Value,
					Payload:        body,
				}
				if book.BetInfo != nil {
					obs.MoneyPct = clampPtr(book.BetInfo.MoneyPercent)
					obs.BetPct = clampPtr(book.BetInfo.TicketsPercent)
					obs.BetCount = book.BetInfo.TicketsCount
				}
				stamp(&obs, a.Name(), book.BookName, endpoint, &a.seq)
				out = append(out, obs)
			}
		}
	}

	return out, nil
}

// clampPtr applies the [0,100] bound without mutating the input pointer.
func clampPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	val := *v
	return models.ClampPct(&val)
}

// retryAfterSeconds reads a provider-declared cooldown from the response.
func retryAfterSeconds(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return int(d.Seconds())
		}
	}
	return 0
}
