package models

// Market identifies one of the three bet markets tracked per game.
type Market string

const (
	MarketMoneyline Market = "moneyline"
	MarketSpread    Market = "spread"
	MarketTotal     Market = "total"
)

// AllMarkets lists every supported market in canonical order.
var AllMarkets = []Market{MarketMoneyline, MarketSpread, MarketTotal}

// Valid reports whether the market is one of the supported values.
func (m Market) Valid() bool {
	switch m {
	case MarketMoneyline, MarketSpread, MarketTotal:
		return true
	}
	return false
}

// Side is the recommended side of a market.
type Side string

const (
	SideHome  Side = "HOME"
	SideAway  Side = "AWAY"
	SideOver  Side = "OVER"
	SideUnder Side = "UNDER"
)

// Opposite returns the other side of the same market.
func (s Side) Opposite() Side {
	switch s {
	case SideHome:
		return SideAway
	case SideAway:
		return SideHome
	case SideOver:
		return SideUnder
	case SideUnder:
		return SideOver
	}
	return s
}

// SharpTag classifies the money-vs-bet differential strength and direction.
type SharpTag string

const (
	SharpStrongHome   SharpTag = "STRONG_HOME"
	SharpModerateHome SharpTag = "MODERATE_HOME"
	SharpWeakHome     SharpTag = "WEAK_HOME"
	SharpNone         SharpTag = "NONE"
	SharpWeakAway     SharpTag = "WEAK_AWAY"
	SharpModerateAway SharpTag = "MODERATE_AWAY"
	SharpStrongAway   SharpTag = "STRONG_AWAY"
)

// IsHome reports whether the tag points at the home/over side.
func (t SharpTag) IsHome() bool {
	switch t {
	case SharpStrongHome, SharpModerateHome, SharpWeakHome:
		return true
	}
	return false
}

// IsAway reports whether the tag points at the away/under side.
func (t SharpTag) IsAway() bool {
	switch t {
	case SharpStrongAway, SharpModerateAway, SharpWeakAway:
		return true
	}
	return false
}

// TimingBucket coarsely categorizes how close to first pitch a point was collected.
type TimingBucket string

const (
	TimingOpening     TimingBucket = "OPENING"
	TimingEarly       TimingBucket = "EARLY"
	TimingSameDay     TimingBucket = "SAME_DAY"
	TimingLate        TimingBucket = "LATE"
	TimingClosing2H   TimingBucket = "CLOSING_2H"
	TimingClosingHour TimingBucket = "CLOSING_HOUR"
	TimingUltraLate   TimingBucket = "ULTRA_LATE"
)

// IsClosing reports whether the bucket falls inside the late sharp window.
func (b TimingBucket) IsClosing() bool {
	switch b {
	case TimingClosing2H, TimingClosingHour, TimingUltraLate:
		return true
	}
	return false
}

// VariantStatus is the lifecycle state of a strategy variant.
type VariantStatus string

const (
	// StatusActive means the variant fires and its signals reach the arbiter.
	StatusActive VariantStatus = "ACTIVE"
	// StatusShadow means the variant fires but its signals are suppressed.
	StatusShadow VariantStatus = "SHADOW"
	// StatusDisabled means the variant does not run at all.
	StatusDisabled VariantStatus = "DISABLED"
)

// ConfidenceTier buckets backtest sample sizes.
type ConfidenceTier string

const (
	TierHigh    ConfidenceTier = "HIGH"
	TierMedium  ConfidenceTier = "MEDIUM"
	TierLow     ConfidenceTier = "LOW"
	TierVeryLow ConfidenceTier = "VERY_LOW"
)

// TierForSampleSize maps a bet count onto a confidence tier.
func TierForSampleSize(bets int) ConfidenceTier {
	switch {
	case bets >= 50:
		return TierHigh
	case bets >= 20:
		return TierMedium
	case bets >= 10:
		return TierLow
	default:
		return TierVeryLow
	}
}

// MarketSize tags the betting-volume class of a team's market.
type MarketSize string

const (
	MarketSizeLarge  MarketSize = "LARGE"
	MarketSizeMedium MarketSize = "MEDIUM"
	MarketSizeSmall  MarketSize = "SMALL"
)

// Daypart tags the local start window of a game.
type Daypart string

const (
	DaypartDay       Daypart = "day"
	DaypartTwilight  Daypart = "twilight"
	DaypartNight     Daypart = "night"
	DaypartPrimetime Daypart = "primetime"
)
