package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
	"github.com/yourusername/sharpline/internal/models"
)

// SBRAdapter implements Adapter for SportsBookReview's consensus page. HTML
// table, no authentication. Column layout:
//
//	0: game date (RFC3339)
//	1: away team
//	2: home team
//	3: market
//	4: book
//	5: money %  (home/over side)
//	6: bets %   (home/over side)
//	7: line value
//
// SBR covers the offshore panel (BookMaker, Pinnacle) that the domestic
// sources omit.
type SBRAdapter struct {
	httpClient *HTTPClient
	baseURL    string
	books      []string
	cadence    int
	seq        sequencer
	logger     *logrus.Logger
}

// NewSBRAdapter creates a new SportsBookReview adapter
func NewSBRAdapter(httpClient *HTTPClient, cfg config.SourceConfig, logger *logrus.Logger) *SBRAdapter {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://www.sportsbookreview.com/betting-odds/mlb-baseball/consensus"
	}
	books := cfg.Books
	if len(books) == 0 {
		books = []string{"Pinnacle", "BookMaker", "Heritage"}
	}
	return &SBRAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		books:      books,
		cadence:    cfg.CadenceSeconds,
		logger:     logger,
	}
}

// Name returns the canonical source name
func (a *SBRAdapter) Name() string {
	return string(SBRSource)
}

// Identity describes the provider
func (a *SBRAdapter) Identity() Identity {
	return Identity{
		Source:         a.Name(),
		Books:          a.books,
		Markets:        models.AllMarkets,
		CadenceSeconds: a.cadence,
	}
}

// Fetch retrieves and parses the consensus table
func (a *SBRAdapter) Fetch(ctx context.Context, window Window) ([]models.Observation, error) {
	resp, err := a.httpClient.Get(ctx, a.baseURL)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to fetch consensus page", err)
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

	rows := extractTableRows(string(body))
	if len(rows) == 0 {
		return nil, NewSourceError(a.Name(), ErrCodeParseError, "no table found in page", nil)
	}

	collected := time.Now().UTC()
	var out []models.Observation
	for _, cells := range rows {
		if len(cells) < 8 {
			continue
		}
		start := parseGameTime(cells[0])
		if start.IsZero() {
			continue // header row
		}
		away := strings.TrimSpace(cells[1])
		home := strings.TrimSpace(cells[2])
		if away == "" || home == "" {
			continue
		}
		mkt := models.Market(strings.ToLower(cells[3]))
		if !mkt.Valid() {
			continue
		}

		obs := models.Observation{
			GameExternalID: fmt.Sprintf("sbr-%s-%s-%s", away, home, start.Format("20060102")),
			Market:         mkt,
			CollectedAt:    collected,
			GameStart:      start,
			HomeTeam:       home,
			AwayTeam:       away,
			MoneyPct:       parsePct(cells[5]),
			BetPct:         parsePct(cells[6]),
			SplitValue:     cells[7],
			Payload:        body,
		}
		stamp(&obs, a.Name(), cells[4], a.baseURL, &a.seq)
		out = append(out, obs)
	}

	if len(out) == 0 {
		return nil, NewSourceError(a.Name(), ErrCodeEmpty, "table contained no consensus rows", nil)
	}
	return out, nil
}
