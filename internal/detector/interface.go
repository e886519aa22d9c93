package detector

import (
	"time"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// Firing is one detector trigger before the confidence pipeline runs. The
// detector supplies the base confidence and the context multiplier inputs;
// the engine applies the multipliers centrally so every strategy is scored
// the same way.
type Firing struct {
	Market  models.Market
	Book    string
	Source  string
	Side    models.Side
	FiredAt time.Time

	// Base is the normalized [0,1] confidence before multipliers.
	Base float64

	TimingBucket models.TimingBucket
	BookWeight   float64

	// ConsensusBooks counts distinct books backing the same read; 0 or 1
	// means no consensus boost.
	ConsensusBooks int

	// RLM is the reverse-line-movement validation: +1 confirmed, -1
	// contradicted, 0 not applicable.
	RLM int

	Features map[string]float64
	Snapshot []models.CuratedPoint
}

// Func evaluates one variant against one game's curated data and returns
// zero or more firings. Implementations must be pure: no I/O, no clock
// reads, deterministic for identical inputs.
type Func func(game *GameData, variant *models.StrategyVariant) []Firing

// Registry maps detector ids from the catalog onto their implementations.
func Registry() map[string]Func {
	return map[string]Func{
		catalog.DetectorSharpAction:     SharpAction,
		catalog.DetectorLineMovement:    LineMovement,
		catalog.DetectorBookConflict:    BookConflict,
		catalog.DetectorPublicFade:      PublicFade,
		catalog.DetectorConsensus:       Consensus,
		catalog.DetectorOpposingMarkets: OpposingMarkets,
		catalog.DetectorLateFlip:        LateFlip,
		catalog.DetectorSweetSpot:       SweetSpot,
		catalog.DetectorUnderdog:        Underdog,
		catalog.DetectorTeamBias:        TeamBias,
		catalog.DetectorTimingPatterns:  TimingPatterns,
		catalog.DetectorCombos:          Combos,
	}
}
