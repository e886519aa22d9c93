package detector

import (
	"sort"

	"github.com/yourusername/sharpline/internal/models"
)

// Series is one (market, book) curated time series in ascending collection
// order.
type Series struct {
	Market models.Market
	Book   string
	Points []models.CuratedPoint
}

// Opening returns the earliest point of the series.
func (s *Series) Opening() *models.CuratedPoint {
	if len(s.Points) == 0 {
		return nil
	}
	return &s.Points[0]
}

// Closing returns the designated closing snapshot, falling back to the
// latest point when none was marked yet.
func (s *Series) Closing() *models.CuratedPoint {
	for i := len(s.Points) - 1; i >= 0; i-- {
		if s.Points[i].IsClosing {
			return &s.Points[i]
		}
	}
	if len(s.Points) == 0 {
		return nil
	}
	return &s.Points[len(s.Points)-1]
}

// GameData is the detector's read-only view of one game: its metadata and
// every curated series, ordered deterministically.
type GameData struct {
	Game   *models.Game
	Series []*Series
}

// NewGameData groups curated points into series. Points must already be in
// ascending collected_at order per series, which the repository guarantees.
func NewGameData(game *models.Game, points []models.CuratedPoint) *GameData {
	byKey := make(map[string]*Series)
	var order []string
	for i := range points {
		p := &points[i]
		key := string(p.Market) + "|" + p.Book
		s, ok := byKey[key]
		if !ok {
			s = &Series{Market: p.Market, Book: p.Book}
			byKey[key] = s
			order = append(order, key)
		}
		s.Points = append(s.Points, *p)
	}

	sort.Strings(order)
	series := make([]*Series, 0, len(order))
	for _, key := range order {
		series = append(series, byKey[key])
	}
	return &GameData{Game: game, Series: series}
}

// ByMarket returns every series for one market.
func (g *GameData) ByMarket(market models.Market) []*Series {
	var out []*Series
	for _, s := range g.Series {
		if s.Market == market {
			out = append(out, s)
		}
	}
	return out
}

// SeriesFor returns the series for one (market, book), or nil.
func (g *GameData) SeriesFor(market models.Market, book string) *Series {
	for _, s := range g.Series {
		if s.Market == market && s.Book == book {
			return s
		}
	}
	return nil
}

// sideForDifferential maps a money-minus-bet differential onto the side it
// favors. Percentages are reported for the home/over side, so a positive
// differential means sharp money on home (or the over).
func sideForDifferential(market models.Market, diff float64) models.Side {
	if market == models.MarketTotal {
		if diff > 0 {
			return models.SideOver
		}
		return models.SideUnder
	}
	if diff > 0 {
		return models.SideHome
	}
	return models.SideAway
}

// publicSide returns the side holding the public bet majority, or false when
// the split is missing or dead even.
func publicSide(p *models.CuratedPoint) (models.Side, bool) {
	if p == nil || p.BetPct == nil {
		return "", false
	}
	switch {
	case *p.BetPct > 50:
		return sideForDifferential(p.Market, 1), true
	case *p.BetPct < 50:
		return sideForDifferential(p.Market, -1), true
	}
	return "", false
}

// lineMovedToward returns the side the line moved toward between the opening
// and closing points, or false when movement cannot be measured. A home
// moneyline or spread shortening means money on home; a rising total means
// money on the over.
func lineMovedToward(s *Series) (models.Side, bool) {
	opening, closing := s.Opening(), s.Closing()
	if opening == nil || closing == nil || opening == closing {
		return "", false
	}

	if s.Market == models.MarketMoneyline {
		if opening.MoneylineHome == nil || closing.MoneylineHome == nil {
			return "", false
		}
		delta := *closing.MoneylineHome - *opening.MoneylineHome
		switch {
		case delta < 0:
			return models.SideHome, true
		case delta > 0:
			return models.SideAway, true
		}
		return "", false
	}

	if opening.LineValue == nil || closing.LineValue == nil {
		return "", false
	}
	cmp := closing.LineValue.Cmp(*opening.LineValue)
	if cmp == 0 {
		return "", false
	}
	if s.Market == models.MarketTotal {
		if cmp > 0 {
			return models.SideOver, true
		}
		return models.SideUnder, true
	}
	// Spread: home line dropping (more negative) means money on home.
	if cmp < 0 {
		return models.SideHome, true
	}
	return models.SideAway, true
}

// rlmValidation computes the reverse-line-movement factor for a series whose
// closing snapshot carries a sharp differential: +1 when the line moved with
// the sharp side against the public, -1 when it moved with the public
// despite the sharp tag, 0 otherwise.
func rlmValidation(s *Series) int {
	closing := s.Closing()
	if closing == nil || !closing.HasSplit() {
		return 0
	}
	sharp := sideForDifferential(s.Market, closing.Differential())
	public, ok := publicSide(closing)
	if !ok || public == sharp {
		return 0
	}
	moved, ok := lineMovedToward(s)
	if !ok {
		return 0
	}
	if moved == sharp {
		return 1
	}
	if moved == public {
		return -1
	}
	return 0
}

// bestClosing returns the closing point with a populated split from the
// highest-credibility book in the market, with its series.
func bestClosing(g *GameData, market models.Market) (*Series, *models.CuratedPoint) {
	var (
		bestSeries *Series
		bestPoint  *models.CuratedPoint
	)
	for _, s := range g.ByMarket(market) {
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() {
			continue
		}
		if bestPoint == nil || closing.BookWeight > bestPoint.BookWeight {
			bestSeries, bestPoint = s, closing
		}
	}
	return bestSeries, bestPoint
}

// agreeingBooks counts distinct books whose closing differential clears the
// threshold on the same side.
func agreeingBooks(g *GameData, market models.Market, side models.Side, minDiff float64) int {
	books := make(map[string]bool)
	for _, s := range g.ByMarket(market) {
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() {
			continue
		}
		diff := closing.Differential()
		if diff < minDiff && diff > -minDiff {
			continue
		}
		if sideForDifferential(market, diff) == side {
			books[closing.Book] = true
		}
	}
	return len(books)
}

// firingFromPoint builds the common firing fields from a triggering point.
func firingFromPoint(p *models.CuratedPoint, side models.Side, base float64) Firing {
	return Firing{
		Market:       p.Market,
		Book:         p.Book,
		Source:       p.Source,
		Side:         side,
		FiredAt:      p.CollectedAt,
		Base:         base,
		TimingBucket: p.TimingBucket,
		BookWeight:   p.BookWeight,
		Snapshot:     []models.CuratedPoint{*p},
	}
}
