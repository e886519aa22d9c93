package staging

import (
	"time"

	"github.com/yourusername/sharpline/internal/models"
)

// easternZone is the league's game-day timezone. Every instant stays UTC in
// storage; only the calendar date and daypart derive from Eastern time.
var easternZone = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}

// EasternGameDate returns the Eastern calendar date of a game start.
func EasternGameDate(start time.Time) string {
	return start.In(easternZone).Format("2006-01-02")
}

// DaypartFor classifies a game start by its Eastern local hour.
func DaypartFor(start time.Time) models.Daypart {
	hour := start.In(easternZone).Hour()
	switch {
	case hour < 16:
		return models.DaypartDay
	case hour < 18:
		return models.DaypartTwilight
	case hour < 20:
		return models.DaypartNight
	default:
		return models.DaypartPrimetime
	}
}

// BucketFor maps hours before first pitch onto the timing bucket.
func BucketFor(hoursBefore float64) models.TimingBucket {
	switch {
	case hoursBefore > 24:
		return models.TimingOpening
	case hoursBefore > 12:
		return models.TimingEarly
	case hoursBefore > 6:
		return models.TimingSameDay
	case hoursBefore > 2:
		return models.TimingLate
	case hoursBefore > 1:
		return models.TimingClosing2H
	case hoursBefore > 1.0/6.0:
		return models.TimingClosingHour
	default:
		return models.TimingUltraLate
	}
}
