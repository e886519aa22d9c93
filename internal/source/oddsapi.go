package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/models"
)

// OddsAPIAdapter implements Adapter for The Odds API. The feed has prices and
// lines across a wide book panel but no money or ticket percentages, so its
// observations carry split values only. The API key rides as a query
// parameter and every response reports remaining quota in headers.
type OddsAPIAdapter struct {
	httpClient *HTTPClient
	baseURL    string
	apiKey     string
	books      []string
	cadence    int
	seq        sequencer
	logger     *logrus.Logger
}

type oaEvent struct {
	ID           string        `json:"id"`
	CommenceTime string        `json:"commence_time"`
	HomeTeam     string        `json:"home_team"`
	AwayTeam     string        `json:"away_team"`
	Bookmakers   []oaBookmaker `json:"bookmakers"`
}

type oaBookmaker struct {
	Title   string     `json:"title"`
	Markets []oaMarket `json:"markets"`
}

type oaMarket struct {
	Key      string      `json:"key"` // "h2h" | "spreads" | "totals"
	Outcomes []oaOutcome `json:"outcomes"`
}

type oaOutcome struct {
	Name  string   `json:"name"`
	Price int      `json:"price"`
	Point *float64 `json:"point"`
}

// oddsAPIMarkets maps The Odds API market keys onto canonical markets.
var oddsAPIMarkets = map[string]models.Market{
	"h2h":     models.MarketMoneyline,
	"spreads": models.MarketSpread,
	"totals":  models.MarketTotal,
}

// NewOddsAPIAdapter creates a new The Odds API adapter
func NewOddsAPIAdapter(httpClient *HTTPClient, cfg config.SourceConfig, logger *logrus.Logger) *OddsAPIAdapter {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://api.the-odds-api.com/v4"
	}
	return &OddsAPIAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		books:      cfg.Books,
		cadence:    cfg.CadenceSeconds,
		logger:     logger,
	}
}

// Name returns the canonical source name
func (a *OddsAPIAdapter) Name() string {
	return string(OddsAPISource)
}

// Identity describes the provider
func (a *OddsAPIAdapter) Identity() Identity {
	return Identity{
		Source:         a.Name(),
		Books:          a.books,
		Markets:        models.AllMarkets,
		CadenceSeconds: a.cadence,
	}
}

// Fetch retrieves odds for games starting inside the window
func (a *OddsAPIAdapter) Fetch(ctx context.Context, window Window) ([]models.Observation, error) {
	endpoint := fmt.Sprintf("%s/sports/baseball_mlb/odds?apiKey=%s&regions=us&markets=h2h,spreads,totals&oddsFormat=american",
		a.baseURL, a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to fetch odds", err)
	}
	defer resp.Body.Close()

	if remaining := resp.Header.Get("X-Requests-Remaining"); remaining != "" {
		a.logger.WithFields(logrus.Fields{
			"source":    a.Name(),
			"remaining": remaining,
		}).Debug("Provider quota header")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		srcErr := NewSourceError(a.Name(), ErrCodeRateLimited, "provider throttled", nil)
		srcErr.CooldownSeconds = retryAfterSeconds(resp)
		return nil, srcErr
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "invalid API key", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to read response", err)
	}

	var events []oaEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeParseError, "failed to parse odds payload", err)
	}
	if len(events) == 0 {
		return nil, NewSourceError(a.Name(), ErrCodeEmpty, "no events in response", nil)
	}

	collected := time.Now().UTC()
	var out []models.Observation
	for _, event := range events {
		start := parseGameTime(event.CommenceTime)
		if start.IsZero() || start.Before(window.Start) || start.After(window.End) {
			continue
		}
		for _, bookmaker := range event.Bookmakers {
			for _, market := range bookmaker.Markets {
				mkt, ok := oddsAPIMarkets[market.Key]
				if !ok {
					continue
				}
				split := encodeSplitValue(mkt, event.HomeTeam, market.Outcomes)
				if split == "" {
					continue
				}
				obs := models.Observation{
					GameExternalID: "oa-" + event.ID,
					Market:         mkt,
					CollectedAt:    collected,
					GameStart:      start,
					HomeTeam:       event.HomeTeam,
					AwayTeam:       event.AwayTeam,
					SplitValue:     split,
					Payload:        body,
				}
				stamp(&obs, a.Name(), bookmaker.Title, a.baseURL+"/sports/baseball_mlb/odds", &a.seq)
				out = append(out, obs)
			}
		}
	}

	return out, nil
}

// encodeSplitValue renders outcomes in the canonical split-value format the
// staging transformer parses: {"home":H,"away":A} for moneyline, the numeric
// point for spread and total.
func encodeSplitValue(mkt models.Market, homeTeam string, outcomes []oaOutcome) string {
	switch mkt {
	case models.MarketMoneyline:
		var home, away *int
		for i := range outcomes {
			price := outcomes[i].Price
			if outcomes[i].Name == homeTeam {
				home = &price
			} else {
				away = &price
			}
		}
		if home == nil || away == nil {
			return ""
		}
		return fmt.Sprintf(`{"home":%d,"away":%d}`, *home, *away)
	case models.MarketSpread:
		for _, outcome := range outcomes {
			if outcome.Name == homeTeam && outcome.Point != nil {
				return strconv.FormatFloat(*outcome.Point, 'f', -1, 64)
			}
		}
	case models.MarketTotal:
		for _, outcome := range outcomes {
			if outcome.Name == "Over" && outcome.Point != nil {
				return strconv.FormatFloat(*outcome.Point, 'f', -1, 64)
			}
		}
	}
	return ""
}
