package detector

import (
	"math"

	"github.com/yourusername/sharpline/internal/catalog"
	"github.com/yourusername/sharpline/internal/models"
)

// TimingPatterns covers two closing-window reads sharing one detector. The
// late_sharp variant fires on a qualifying differential collected inside the
// closing window. The reverse_line_movement variant (require_rlm=1) fires on
// a qualifying differential whose line moved with the sharps against the
// public bet majority.
func TimingPatterns(game *GameData, variant *models.StrategyVariant) []Firing {
	minDiff := variant.Threshold(catalog.ThresholdMinDifferential, 7)
	requireRLM := variant.Threshold("require_rlm", 0) >= 1

	var out []Firing
	for _, s := range game.Series {
		if !variant.AppliesTo(s.Market) {
			continue
		}
		closing := s.Closing()
		if closing == nil || !closing.HasSplit() {
			continue
		}
		diff := closing.Differential()
		if math.Abs(diff) < minDiff {
			continue
		}

		rlm := rlmValidation(s)
		if requireRLM {
			if rlm != 1 {
				continue
			}
		} else if !closing.TimingBucket.IsClosing() {
			continue
		}

		side := sideForDifferential(s.Market, diff)
		f := firingFromPoint(closing, side, baseFromDifferential(diff))
		f.RLM = rlm
		f.ConsensusBooks = agreeingBooks(game, s.Market, side, minDiff)
		f.Features = map[string]float64{
			"differential": diff,
			"hours_before": closing.HoursBeforeGame,
		}
		out = append(out, f)
	}
	return out
}
