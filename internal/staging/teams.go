package staging

import (
	"strings"

	"github.com/yourusername/sharpline/internal/models"
)

// canonicalTeams maps every provider spelling onto the canonical club code.
// Providers disagree on team naming (full names, city names, abbreviations),
// so the roster map is the single normalization point.
var canonicalTeams = map[string]string{
	"arizona diamondbacks": "ARI", "diamondbacks": "ARI", "ari": "ARI", "az": "ARI",
	"atlanta braves": "ATL", "braves": "ATL", "atl": "ATL",
	"baltimore orioles": "BAL", "orioles": "BAL", "bal": "BAL",
	"boston red sox": "BOS", "red sox": "BOS", "bos": "BOS",
	"chicago cubs": "CHC", "cubs": "CHC", "chc": "CHC",
	"chicago white sox": "CWS", "white sox": "CWS", "cws": "CWS", "chw": "CWS",
	"cincinnati reds": "CIN", "reds": "CIN", "cin": "CIN",
	"cleveland guardians": "CLE", "guardians": "CLE", "cle": "CLE",
	"colorado rockies": "COL", "rockies": "COL", "col": "COL",
	"detroit tigers": "DET", "tigers": "DET", "det": "DET",
	"houston astros": "HOU", "astros": "HOU", "hou": "HOU",
	"kansas city royals": "KC", "royals": "KC", "kc": "KC", "kcr": "KC",
	"los angeles angels": "LAA", "angels": "LAA", "laa": "LAA",
	"los angeles dodgers": "LAD", "dodgers": "LAD", "lad": "LAD",
	"miami marlins": "MIA", "marlins": "MIA", "mia": "MIA",
	"milwaukee brewers": "MIL", "brewers": "MIL", "mil": "MIL",
	"minnesota twins": "MIN", "twins": "MIN", "min": "MIN",
	"new york mets": "NYM", "mets": "NYM", "nym": "NYM",
	"new york yankees": "NYY", "yankees": "NYY", "nyy": "NYY",
	"oakland athletics": "OAK", "athletics": "OAK", "oak": "OAK", "a's": "OAK",
	"philadelphia phillies": "PHI", "phillies": "PHI", "phi": "PHI",
	"pittsburgh pirates": "PIT", "pirates": "PIT", "pit": "PIT",
	"san diego padres": "SD", "padres": "SD", "sd": "SD", "sdp": "SD",
	"san francisco giants": "SF", "giants": "SF", "sf": "SF", "sfg": "SF",
	"seattle mariners": "SEA", "mariners": "SEA", "sea": "SEA",
	"st. louis cardinals": "STL", "st louis cardinals": "STL", "cardinals": "STL", "stl": "STL",
	"tampa bay rays": "TB", "rays": "TB", "tb": "TB", "tbr": "TB",
	"texas rangers": "TEX", "rangers": "TEX", "tex": "TEX",
	"toronto blue jays": "TOR", "blue jays": "TOR", "tor": "TOR",
	"washington nationals": "WSH", "nationals": "WSH", "wsh": "WSH", "was": "WSH",
}

// largeMarkets and smallMarkets tag betting-volume classes; everything else
// is MEDIUM.
var largeMarkets = map[string]bool{
	"NYY": true, "LAD": true, "BOS": true, "CHC": true, "NYM": true,
	"PHI": true, "SF": true, "HOU": true, "ATL": true,
}

var smallMarkets = map[string]bool{
	"TB": true, "PIT": true, "OAK": true, "MIA": true, "KC": true, "CIN": true,
}

// CanonicalTeam resolves a provider team name to the canonical club code.
func CanonicalTeam(name string) (string, bool) {
	code, ok := canonicalTeams[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// MarketSizeFor returns the betting-volume class for a canonical club code.
func MarketSizeFor(team string) models.MarketSize {
	if largeMarkets[team] {
		return models.MarketSizeLarge
	}
	if smallMarkets[team] {
		return models.MarketSizeSmall
	}
	return models.MarketSizeMedium
}
