package source

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/config"
)

// SourceType is the closed set of supported providers. String-typed source
// names from configuration and operator input are resolved to a SourceType
// at the registry boundary; nothing downstream dispatches on raw strings.
type SourceType string

const (
	ActionNetworkSource SourceType = "action_network"
	VSINSource          SourceType = "vsin"
	SBDSource           SourceType = "sbd"
	SBRSource           SourceType = "sbr"
	MLBStatsSource      SourceType = "mlb_stats"
	OddsAPISource       SourceType = "odds_api"
)

// aliases maps operator-facing shorthand onto canonical source types.
var aliases = map[string]SourceType{
	"action":            ActionNetworkSource,
	"actionnetwork":     ActionNetworkSource,
	"action_network":    ActionNetworkSource,
	"vsin":              VSINSource,
	"sbd":               SBDSource,
	"sportsbettingdime": SBDSource,
	"sbr":               SBRSource,
	"sportsbookreview":  SBRSource,
	"mlb":               MLBStatsSource,
	"mlb_stats":         MLBStatsSource,
	"statsapi":          MLBStatsSource,
	"odds_api":          OddsAPISource,
	"oddsapi":           OddsAPISource,
	"the_odds_api":      OddsAPISource,
}

// ResolveSourceType resolves a configured or operator-supplied name.
func ResolveSourceType(name string) (SourceType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if st, ok := aliases[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown source: %s", name)
}

// QuietPeriod is the process-wide collection suspension flag. Any component
// may set it; every guarded adapter skips its next scheduled fetch while set.
type QuietPeriod struct {
	active atomic.Bool
}

// Set transitions the flag and reports whether the value changed.
func (q *QuietPeriod) Set(active bool) bool {
	return q.active.CompareAndSwap(!active, active)
}

// Active reports whether collection is suspended.
func (q *QuietPeriod) Active() bool {
	return q.active.Load()
}

// Registry holds every constructed adapter with its guard, plus the shared
// quiet-period flag and per-source enable switches.
type Registry struct {
	mu      sync.RWMutex
	guards  map[SourceType]*Guard
	order   []SourceType
	quiet   *QuietPeriod
	logger  *logrus.Logger
}

// NewRegistry builds adapters and guards for every enabled configured source.
func NewRegistry(cfg *config.CollectionConfig, httpClient *HTTPClient, logger *logrus.Logger) (*Registry, error) {
	reg := &Registry{
		guards: make(map[SourceType]*Guard),
		quiet:  &QuietPeriod{},
		logger: logger,
	}

	breakerCfg := BreakerConfig{
		MaxFailures:    cfg.BreakerMaxFailures,
		FailureWindow:  cfg.BreakerWindow(),
		CooldownPeriod: cfg.BreakerCooldown(),
	}

	for _, srcCfg := range cfg.Sources {
		if !srcCfg.Enabled {
			logger.WithField("source", srcCfg.Name).Info("Skipping disabled source")
			continue
		}

		st, err := ResolveSourceType(srcCfg.Name)
		if err != nil {
			return nil, err
		}

		adapter, err := newAdapter(st, srcCfg, httpClient, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %s: %w", srcCfg.Name, err)
		}

		guard := NewGuard(adapter, NewBudget(srcCfg.DailyQuota), NewBreaker(string(st), breakerCfg, logger), reg.quiet, logger)
		reg.guards[st] = guard
		reg.order = append(reg.order, st)
		logger.WithField("source", string(st)).Info("Created source adapter")
	}

	if len(reg.guards) == 0 {
		return nil, fmt.Errorf("no enabled collection sources configured")
	}

	return reg, nil
}

// newAdapter constructs the concrete adapter for a source type.
func newAdapter(st SourceType, cfg config.SourceConfig, httpClient *HTTPClient, logger *logrus.Logger) (Adapter, error) {
	switch st {
	case ActionNetworkSource:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("action network API key is required")
		}
		return NewActionNetworkAdapter(httpClient, cfg, logger), nil
	case VSINSource:
		return NewVSINAdapter(httpClient, cfg, logger), nil
	case SBDSource:
		return NewSBDAdapter(httpClient, cfg, logger), nil
	case SBRSource:
		return NewSBRAdapter(httpClient, cfg, logger), nil
	case MLBStatsSource:
		return NewMLBStatsAdapter(httpClient, cfg, logger), nil
	case OddsAPISource:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("odds API key is required")
		}
		return NewOddsAPIAdapter(httpClient, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", st)
	}
}

// Guard returns the guarded adapter for the source type.
func (r *Registry) Guard(st SourceType) (*Guard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guards[st]
	return g, ok
}

// Guards returns every guard in configuration order.
func (r *Registry) Guards() []*Guard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Guard, 0, len(r.order))
	for _, st := range r.order {
		out = append(out, r.guards[st])
	}
	return out
}

// QuietPeriod exposes the shared collection suspension flag.
func (r *Registry) QuietPeriod() *QuietPeriod {
	return r.quiet
}

// SetEnabled flips a source's operator enable switch.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	st, err := ResolveSourceType(name)
	if err != nil {
		return err
	}
	r.mu.RLock()
	guard, ok := r.guards[st]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("source not configured: %s", name)
	}
	guard.SetEnabled(enabled)
	r.logger.WithFields(logrus.Fields{
		"source":  string(st),
		"enabled": enabled,
	}).Info("Source enable switch changed")
	return nil
}
