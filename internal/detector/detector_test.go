package detector

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

func variantByKey(t *testing.T, key string) *models.StrategyVariant {
	t.Helper()
	for _, v := range catalog.BuiltinVariants() {
		if v.Key() == key {
			return v
		}
	}
	t.Fatalf("no builtin variant %s", key)
	return nil
}

type pointOpt func(*models.CuratedPoint)

func withSplit(money, bets float64) pointOpt {
	return func(p *models.CuratedPoint) {
		p.MoneyPct = &money
		p.BetPct = &bets
		diff := money - bets
		p.MoneyMinusBet = &diff
		p.SharpTag = models.SharpTagForDifferential(diff)
	}
}

func withMoneyline(home, away int) pointOpt {
	return func(p *models.CuratedPoint) {
		p.MoneylineHome = &home
		p.MoneylineAway = &away
	}
}

func withLine(v string) pointOpt {
	return func(p *models.CuratedPoint) {
		line := decimal.RequireFromString(v)
		p.LineValue = &line
	}
}

func withHours(h float64) pointOpt {
	return func(p *models.CuratedPoint) { p.HoursBeforeGame = h }
}

func withBucket(b models.TimingBucket) pointOpt {
	return func(p *models.CuratedPoint) { p.TimingBucket = b }
}

func withWeight(w float64) pointOpt {
	return func(p *models.CuratedPoint) { p.BookWeight = w }
}

func withVolume(n int) pointOpt {
	return func(p *models.CuratedPoint) { p.BetCount = &n }
}

func closing() pointOpt {
	return func(p *models.CuratedPoint) { p.IsClosing = true }
}

var testGameID = uuid.New()

func point(market models.Market, book string, collectedAt time.Time, opts ...pointOpt) models.CuratedPoint {
	p := models.CuratedPoint{
		GameID:       testGameID,
		Source:       "vsin",
		Book:         book,
		Market:       market,
		CollectedAt:  collectedAt,
		TimingBucket: models.TimingSameDay,
		BookWeight:   1.0,
		SharpTag:     models.SharpNone,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func gameData(points []models.CuratedPoint, opts ...func(*models.Game)) *GameData {
	game := &models.Game{
		ID:         testGameID,
		HomeTeam:   "MIL",
		AwayTeam:   "STL",
		StartTime:  time.Date(2026, 6, 15, 23, 10, 0, 0, time.UTC),
		MarketSize: models.MarketSizeMedium,
	}
	for _, opt := range opts {
		opt(game)
	}
	return NewGameData(game, points)
}

var baseTime = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func TestSharpActionFiresAtStrongThreshold(t *testing.T) {
	variant := variantByKey(t, "sharp_action/strong")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "circa", baseTime,
			withSplit(72, 55), withWeight(2.3), withBucket(models.TimingClosingHour), closing()),
	})

	firings := SharpAction(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideHome, firings[0].Side)
	assert.InDelta(t, 0.68, firings[0].Base, 0.001)

	confidence := scoreFiring(&firings[0], models.TierMedium)
	assert.GreaterOrEqual(t, confidence, 0.7)
}

func TestSharpActionIgnoresSubThresholdDifferential(t *testing.T) {
	variant := variantByKey(t, "sharp_action/strong")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime, withSplit(60, 52), closing()),
	})
	assert.Empty(t, SharpAction(data, variant))
}

func TestSharpActionAwaySide(t *testing.T) {
	variant := variantByKey(t, "sharp_action/moderate")
	data := gameData([]models.CuratedPoint{
		point(models.MarketSpread, "pinnacle", baseTime, withSplit(38, 50), closing()),
	})

	firings := SharpAction(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideAway, firings[0].Side)
}

func TestLineMovementFollowAndFade(t *testing.T) {
	points := []models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime, withMoneyline(-120, 100)),
		point(models.MarketMoneyline, "pinnacle", baseTime.Add(4*time.Hour),
			withMoneyline(-135, 115), closing()),
	}

	follow := LineMovement(gameData(points), variantByKey(t, "line_movement/big_move_follow"))
	require.Len(t, follow, 1)
	assert.Equal(t, models.SideHome, follow[0].Side)

	fade := LineMovement(gameData(points), variantByKey(t, "line_movement/big_move_fade"))
	require.Len(t, fade, 1)
	assert.Equal(t, models.SideAway, fade[0].Side)
}

func TestLineMovementIgnoresSmallMoves(t *testing.T) {
	variant := variantByKey(t, "line_movement/big_move_follow")
	data := gameData([]models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime, withLine("8.5")),
		point(models.MarketTotal, "pinnacle", baseTime.Add(time.Hour), withLine("9"), closing()),
	})
	assert.Empty(t, LineMovement(data, variant))
}

func TestBookConflictNeedsVolumeAndSpread(t *testing.T) {
	variant := variantByKey(t, "book_conflict/high")
	points := []models.CuratedPoint{
		point(models.MarketSpread, "pinnacle", baseTime,
			withSplit(70, 50), withWeight(3.0), withVolume(80), closing()),
		point(models.MarketSpread, "draftkings", baseTime,
			withSplit(42, 50), withWeight(1.5), withVolume(60), closing()),
	}

	firings := BookConflict(gameData(points), variant)
	require.Len(t, firings, 1)
	// Pinnacle is the higher-credibility book and its sharp side is home.
	assert.Equal(t, models.SideHome, firings[0].Side)
	assert.Equal(t, "pinnacle", firings[0].Book)

	// Strip the reported volume below the threshold and the firing disappears.
	for i := range points {
		points[i].BetCount = nil
	}
	assert.Empty(t, BookConflict(gameData(points), variant))
}

func TestPublicFadeAveragesAcrossBooks(t *testing.T) {
	variant := variantByKey(t, "public_fade/heavy")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "draftkings", baseTime, withSplit(88, 80), closing()),
		point(models.MarketMoneyline, "fanduel", baseTime, withSplit(86, 82), closing()),
	})

	firings := PublicFade(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideAway, firings[0].Side)
	assert.Equal(t, 2, firings[0].ConsensusBooks)
}

func TestPublicFadeModerateRequiresEveryBook(t *testing.T) {
	variant := variantByKey(t, "public_fade/moderate")
	// Average clears 75 but fanduel sits below the per-book 70 floor.
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "draftkings", baseTime, withSplit(88, 80), closing()),
		point(models.MarketMoneyline, "fanduel", baseTime, withSplit(68, 60), closing()),
		point(models.MarketMoneyline, "betmgm", baseTime, withSplit(78, 70), closing()),
	})
	assert.Empty(t, PublicFade(data, variant))
}

func TestConsensusFollowsBothSides(t *testing.T) {
	variant := variantByKey(t, "consensus/heavy")

	home := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime, withSplit(92, 91), closing()),
	})
	firings := Consensus(home, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideHome, firings[0].Side)

	under := gameData([]models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime, withSplit(8, 9), closing()),
	})
	firings = Consensus(under, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideUnder, firings[0].Side)
}

func TestOpposingMarketsEmitsMoneylineSide(t *testing.T) {
	variant := variantByKey(t, "opposing_markets/ml_spread_split")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime, withSplit(65, 50), closing()),
		point(models.MarketSpread, "pinnacle", baseTime, withSplit(38, 52), closing()),
	})

	firings := OpposingMarkets(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.MarketMoneyline, firings[0].Market)
	assert.Equal(t, models.SideHome, firings[0].Side)
}

func TestOpposingMarketsQuietWhenAligned(t *testing.T) {
	variant := variantByKey(t, "opposing_markets/ml_spread_split")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime, withSplit(65, 50), closing()),
		point(models.MarketSpread, "pinnacle", baseTime, withSplit(66, 51), closing()),
	})
	assert.Empty(t, OpposingMarkets(data, variant))
}

func TestLateFlipFollowsEarlySide(t *testing.T) {
	variant := variantByKey(t, "late_flip/follow_early")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "circa", baseTime,
			withSplit(70, 52), withHours(10)),
		point(models.MarketMoneyline, "circa", baseTime.Add(8*time.Hour),
			withSplit(35, 52), withHours(2), withBucket(models.TimingClosing2H), closing()),
	})

	firings := LateFlip(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideHome, firings[0].Side)
	assert.Equal(t, models.TimingClosing2H, firings[0].TimingBucket)
}

func TestLateFlipAcrossMarkets(t *testing.T) {
	variant := variantByKey(t, "late_flip/follow_early")
	// Early strong home read on the moneyline, late strong under read on the
	// total: the contradiction crosses markets but still flips the game.
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "circa", baseTime,
			withSplit(68, 50), withHours(7)),
		point(models.MarketTotal, "pinnacle", baseTime.Add(6*time.Hour),
			withSplit(35, 52), withHours(1), withBucket(models.TimingClosingHour), closing()),
	})

	firings := LateFlip(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.MarketMoneyline, firings[0].Market)
	assert.Equal(t, models.SideHome, firings[0].Side)
	assert.Equal(t, models.TimingClosingHour, firings[0].TimingBucket)
	assert.Equal(t, 1.0, firings[0].Features["cross_market"])
	require.Len(t, firings[0].Snapshot, 2)
}

func TestLateFlipIgnoresAgreeingMarkets(t *testing.T) {
	variant := variantByKey(t, "late_flip/follow_early")
	// Both markets lean home/over: no reversal, nothing fires.
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "circa", baseTime,
			withSplit(68, 50), withHours(7)),
		point(models.MarketTotal, "pinnacle", baseTime.Add(6*time.Hour),
			withSplit(70, 52), withHours(1), closing()),
	})
	assert.Empty(t, LateFlip(data, variant))
}

func TestSweetSpotKeyTotal(t *testing.T) {
	variant := variantByKey(t, "sweet_spot/key_totals")
	data := gameData([]models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime,
			withSplit(40, 70), withLine("8.5"), closing()),
	})

	firings := SweetSpot(data, variant)
	require.Len(t, firings, 1)
	// Public bets the over, money leans under: follow the sharps.
	assert.Equal(t, models.SideUnder, firings[0].Side)
}

func TestSweetSpotIgnoresNonKeyTotals(t *testing.T) {
	variant := variantByKey(t, "sweet_spot/key_totals")
	data := gameData([]models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime,
			withSplit(40, 70), withLine("10.5"), closing()),
	})
	assert.Empty(t, SweetSpot(data, variant))
}

func TestSweetSpotParkLean(t *testing.T) {
	variant := variantByKey(t, "sweet_spot/key_totals")
	points := []models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime,
			withSplit(50, 30), withLine("9.5"), closing()),
	}

	neutral := SweetSpot(gameData(points), variant)
	coors := SweetSpot(gameData(points, func(g *models.Game) { g.HomeTeam = "COL" }), variant)
	require.Len(t, neutral, 1)
	require.Len(t, coors, 1)
	// Sharps on the over at Coors scores higher than at a neutral park.
	assert.Greater(t, coors[0].Base, neutral[0].Base)
}

func TestUnderdogBacksTheDog(t *testing.T) {
	variant := variantByKey(t, "underdog/public_heavy_favorite")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "draftkings", baseTime,
			withSplit(72, 68), withMoneyline(-170, 150), closing()),
	})

	firings := Underdog(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideAway, firings[0].Side)
}

func TestUnderdogIgnoresCheapFavorites(t *testing.T) {
	variant := variantByKey(t, "underdog/public_heavy_favorite")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "draftkings", baseTime,
			withSplit(72, 68), withMoneyline(-100, 120), closing()),
	})
	// The favorite sits at exactly -100, which does not clear the threshold.
	assert.Empty(t, Underdog(data, variant))
}

func TestTeamBiasFadesLargeMarkets(t *testing.T) {
	variant := variantByKey(t, "team_bias/overbet_fade")
	points := []models.CuratedPoint{
		point(models.MarketMoneyline, "draftkings", baseTime, withSplit(40, 75), closing()),
	}

	// Public on a medium-market home team: no firing.
	assert.Empty(t, TeamBias(gameData(points), variant))

	yankees := gameData(points, func(g *models.Game) { g.HomeTeam = "NYY" })
	firings := TeamBias(yankees, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideAway, firings[0].Side)
}

func TestTimingPatternsLateSharp(t *testing.T) {
	variant := variantByKey(t, "timing_patterns/late_sharp")

	early := gameData([]models.CuratedPoint{
		point(models.MarketSpread, "circa", baseTime, withSplit(60, 50), closing()),
	})
	assert.Empty(t, TimingPatterns(early, variant))

	late := gameData([]models.CuratedPoint{
		point(models.MarketSpread, "circa", baseTime,
			withSplit(60, 50), withBucket(models.TimingUltraLate), closing()),
	})
	firings := TimingPatterns(late, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SideHome, firings[0].Side)
}

func TestTimingPatternsReverseLineMovement(t *testing.T) {
	variant := variantByKey(t, "timing_patterns/reverse_line_movement")
	points := []models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime,
			withMoneyline(-110, -110)),
		// Line shortens toward home while the public bets away.
		point(models.MarketMoneyline, "pinnacle", baseTime.Add(3*time.Hour),
			withSplit(58, 42), withMoneyline(-125, 105), closing()),
	}

	firings := TimingPatterns(gameData(points), variant)
	require.Len(t, firings, 1)
	assert.Equal(t, 1, firings[0].RLM)
	assert.Equal(t, models.SideHome, firings[0].Side)
}

func TestCombosTripleAlignment(t *testing.T) {
	variant := variantByKey(t, "combos/triple_alignment")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime, withSplit(62, 50), closing()),
		point(models.MarketSpread, "pinnacle", baseTime, withSplit(60, 48), closing()),
		point(models.MarketTotal, "pinnacle", baseTime, withSplit(64, 50), closing()),
	})

	firings := Combos(data, variant)
	require.Len(t, firings, 1)
	assert.Equal(t, models.MarketMoneyline, firings[0].Market)
	assert.Equal(t, models.SideHome, firings[0].Side)
	assert.Equal(t, float64(3), firings[0].Features["qualifying_markets"])
}

func TestCombosNeedsAgreement(t *testing.T) {
	variant := variantByKey(t, "combos/triple_alignment")
	data := gameData([]models.CuratedPoint{
		point(models.MarketMoneyline, "pinnacle", baseTime, withSplit(62, 50), closing()),
		point(models.MarketSpread, "pinnacle", baseTime, withSplit(40, 52), closing()),
		point(models.MarketTotal, "pinnacle", baseTime, withSplit(64, 50), closing()),
	})
	assert.Empty(t, Combos(data, variant))
}

func TestRLMValidation(t *testing.T) {
	confirmed := []models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime, withLine("8.5")),
		// Total rises with sharp money on the over against public unders.
		point(models.MarketTotal, "pinnacle", baseTime.Add(2*time.Hour),
			withSplit(62, 40), withLine("9"), closing()),
	}
	data := gameData(confirmed)
	assert.Equal(t, 1, rlmValidation(data.SeriesFor(models.MarketTotal, "pinnacle")))

	contradicted := []models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime, withLine("9")),
		point(models.MarketTotal, "pinnacle", baseTime.Add(2*time.Hour),
			withSplit(62, 40), withLine("8.5"), closing()),
	}
	data = gameData(contradicted)
	assert.Equal(t, -1, rlmValidation(data.SeriesFor(models.MarketTotal, "pinnacle")))
}

func TestScoreFiringClampsToUnitInterval(t *testing.T) {
	f := Firing{
		Base:           1.0,
		BookWeight:     3.0,
		TimingBucket:   models.TimingUltraLate,
		ConsensusBooks: 5,
		RLM:            1,
	}
	assert.Equal(t, 1.0, scoreFiring(&f, models.TierHigh))

	weak := Firing{Base: 0.2, BookWeight: 1.0, TimingBucket: models.TimingOpening, RLM: -1}
	score := scoreFiring(&weak, models.TierVeryLow)
	assert.Less(t, score, 0.2)
	assert.Greater(t, score, 0.0)
}

func TestNewGameDataGroupsAndOrders(t *testing.T) {
	points := []models.CuratedPoint{
		point(models.MarketTotal, "pinnacle", baseTime),
		point(models.MarketMoneyline, "draftkings", baseTime),
		point(models.MarketMoneyline, "draftkings", baseTime.Add(time.Hour), closing()),
	}
	data := gameData(points)

	require.Len(t, data.Series, 2)
	series := data.SeriesFor(models.MarketMoneyline, "draftkings")
	require.NotNil(t, series)
	require.Len(t, series.Points, 2)
	assert.True(t, series.Closing().IsClosing)
	assert.False(t, series.Opening().IsClosing)
}
