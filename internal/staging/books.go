package staging

import "strings"

// bookWeights is the fixed credibility table. Sharper books get more weight
// in detector confidence; retail books and unknowns get the floor.
var bookWeights = map[string]float64{
	"pinnacle":   3.0,
	"bookmaker":  2.5,
	"circa":      2.3,
	"betmgm":     1.8,
	"caesars":    1.7,
	"pointsbet":  1.6,
	"draftkings": 1.5,
	"fanduel":    1.5,
	"betrivers":  1.2,
	"barstool":   1.0,
}

// BookWeight returns the credibility weight for a book, 1.0 for unknown.
func BookWeight(book string) float64 {
	if w, ok := bookWeights[strings.ToLower(strings.TrimSpace(book))]; ok {
		return w
	}
	return 1.0
}
