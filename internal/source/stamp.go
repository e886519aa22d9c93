package source

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yourusername/sharpline/internal/models"
)

// sequencer hands out the per-adapter monotonically increasing ingestion
// sequence used for tie-breaking observations with equal collected_at.
type sequencer struct {
	counter atomic.Int64
}

func (s *sequencer) next() int64 {
	return s.counter.Add(1)
}

// stamp fills the collection metadata every adapter must apply: source name,
// book (nullable -> UNKNOWN), endpoint, and ingestion sequence. Percentages
// outside [0,100] have already been nulled by parsePct.
func stamp(o *models.Observation, sourceName, book, endpoint string, seq *sequencer) {
	o.Source = sourceName
	o.Book = book
	if o.Book == "" {
		o.Book = "UNKNOWN"
	}
	o.Endpoint = endpoint
	o.IngestionSeq = seq.next()
	if o.CollectedAt.IsZero() {
		o.CollectedAt = time.Now().UTC()
	}
}

// parsePct parses a percentage string. Values outside [0,100] and
// unparseable values yield nil, never zero.
func parsePct(s string) *float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return models.ClampPct(&v)
}

// pctFromFloat applies the [0,100] bound to an already-numeric percentage.
func pctFromFloat(v float64) *float64 {
	return models.ClampPct(&v)
}

// parseGameTime parses provider timestamps that are RFC3339 or the common
// date-hour layout, returning zero time when unrecognized.
func parseGameTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
