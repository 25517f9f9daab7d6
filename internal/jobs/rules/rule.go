// Package rules holds the detection logic behind each warning definition.
package rules

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/repositories"
)

// Rule finds the entities of one agency that breach a definition's
// effective threshold.
type Rule interface {
	Code() string
	EntityType() models.EntityType
	Detect(ctx context.Context, agency *models.Agency, ec *models.EffectiveConfig, now time.Time) ([]models.Detection, error)
}

// Registry maps definition codes to rules. Definitions without a rule are
// skipped by the evaluator.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Defaults registers the built-in rules.
func Defaults(signals repositories.SignalRepository) *Registry {
	return NewRegistry(
		NewLeadUnansweredRule(signals),
		NewListingNoPhotosRule(signals),
		NewAgentInactiveRule(signals),
	)
}

func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Code()] = rule
}

func (r *Registry) Lookup(code string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[code]
	return rule, ok
}

func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.rules))
	for code := range r.rules {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// unitDuration converts one unit of a time-based threshold.
func unitDuration(unit models.ThresholdUnit) (time.Duration, error) {
	switch unit {
	case models.UnitHours:
		return time.Hour, nil
	case models.UnitDays:
		return 24 * time.Hour, nil
	case models.UnitCount, models.UnitPercent:
		return 0, fmt.Errorf("%w: unit %s is not a duration", common.ErrInvalidConfiguration, unit)
	}
	return 0, fmt.Errorf("%w: unknown unit %q", common.ErrInvalidConfiguration, unit)
}

// elapsedUnits is the whole number of units between from and now.
func elapsedUnits(from, now time.Time, unit time.Duration) int {
	if now.Before(from) {
		return 0
	}
	return int(now.Sub(from) / unit)
}

func itoa(v int) string { return strconv.Itoa(v) }
