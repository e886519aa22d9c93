package service

import (
	"fmt"
	"time"
)

// CollectionSummary describes one source collection pass for logs and
// operator inspection.
type CollectionSummary struct {
	Source     string
	StartTime  time.Time
	Duration   time.Duration
	Fetched    int
	Inserted   int
	Duplicates int
	Errors     int
}

// NewCollectionSummary starts a summary for one source pass
func NewCollectionSummary(sourceName string) *CollectionSummary {
	return &CollectionSummary{
		Source:    sourceName,
		StartTime: time.Now().UTC(),
	}
}

// Finish stamps the pass duration.
func (s *CollectionSummary) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// String returns a formatted one-line summary.
func (s *CollectionSummary) String() string {
	return fmt.Sprintf(
		"CollectionSummary{Source=%s, Fetched=%d, Inserted=%d, Duplicates=%d, Errors=%d, Duration=%v}",
		s.Source,
		s.Fetched,
		s.Inserted,
		s.Duplicates,
		s.Errors,
		s.Duration,
	)
}
