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

// VSINAdapter implements Adapter for the VSIN betting splits page. The data
// is an embedded HTML table with no authentication. Column layout:
//
//	0: matchup "AWAY @ HOME"
//	1: game time (RFC3339)
//	2: market (moneyline | spread | total)
//	3: book
//	4: handle %   (money, home/over side)
//	5: bets %     (tickets, home/over side)
//	6: line value
//
// VSIN is the only free source carrying Circa splits, which makes it the
// highest-credibility feed in the default configuration.
type VSINAdapter struct {
	httpClient *HTTPClient
	baseURL    string
	books      []string
	cadence    int
	seq        sequencer
	logger     *logrus.Logger
}

// NewVSINAdapter creates a new VSIN adapter
func NewVSINAdapter(httpClient *HTTPClient, cfg config.SourceConfig, logger *logrus.Logger) *VSINAdapter {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://www.vsin.com/betting-splits/mlb"
	}
	books := cfg.Books
	if len(books) == 0 {
		books = []string{"Circa", "DraftKings", "Westgate"}
	}
	return &VSINAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		books:      books,
		cadence:    cfg.CadenceSeconds,
		logger:     logger,
	}
}

// Name returns the canonical source name
func (a *VSINAdapter) Name() string {
	return string(VSINSource)
}

// Identity describes the provider
func (a *VSINAdapter) Identity() Identity {
	return Identity{
		Source:         a.Name(),
		Books:          a.books,
		Markets:        models.AllMarkets,
		CadenceSeconds: a.cadence,
	}
}

// Fetch retrieves and parses the splits table
func (a *VSINAdapter) Fetch(ctx context.Context, window Window) ([]models.Observation, error) {
	resp, err := a.httpClient.Get(ctx, a.baseURL)
	if err != nil {
		return nil, NewSourceError(a.Name(), ErrCodeUnavailable, "failed to fetch splits page", err)
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
		if len(cells) < 7 {
			continue
		}
		away, home, ok := splitMatchup(cells[0])
		if !ok {
			continue // header or spacer row
		}
		start := parseGameTime(cells[1])
		if start.IsZero() {
			continue
		}
		mkt := models.Market(strings.ToLower(cells[2]))
		if !mkt.Valid() {
			continue
		}

		obs := models.Observation{
			GameExternalID: fmt.Sprintf("vsin-%s-%s-%s", away, home, start.Format("20060102")),
			Market:         mkt,
			CollectedAt:    collected,
			GameStart:      start,
			HomeTeam:       home,
			AwayTeam:       away,
			MoneyPct:       parsePct(cells[4]),
			BetPct:         parsePct(cells[5]),
			SplitValue:     cells[6],
			Payload:        body,
		}
		stamp(&obs, a.Name(), cells[3], a.baseURL, &a.seq)
		out = append(out, obs)
	}

	if len(out) == 0 {
		return nil, NewSourceError(a.Name(), ErrCodeEmpty, "table contained no split rows", nil)
	}
	return out, nil
}

// splitMatchup parses "AWAY @ HOME" into team names.
func splitMatchup(s string) (away, home string, ok bool) {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "", "", false
	}
	away = strings.TrimSpace(parts[0])
	home = strings.TrimSpace(parts[1])
	return away, home, away != "" && home != ""
}
