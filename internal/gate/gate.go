// Package gate decides whether a province may receive a new event or raid
// based on how many are unresolved and how recently one was triggered.
//
// The checks are read-then-act; the store enforces the concurrency ceiling
// again at insert time.
package gate

import (
	"context"
	"fmt"
	"time"
)

// RaidCeiling is the number of unresolved raids that blocks a new one.
const RaidCeiling = 1

// Policy holds the tunable limits.
type Policy struct {
	MaxConcurrentEvents int
	EventCooldown       time.Duration
	RaidCooldown        time.Duration
}

// DefaultPolicy returns the stock limits: one open event, 4h event
// cooldown, 6h raid cooldown.
func DefaultPolicy() Policy {
	return Policy{
		MaxConcurrentEvents: 1,
		EventCooldown:       4 * time.Hour,
		RaidCooldown:        6 * time.Hour,
	}
}

// Status is the count snapshot a decision is made from. Recent counts are
// taken against now minus the relevant cooldown.
type Status struct {
	UnresolvedEvents int
	RecentEvents     int
	UnresolvedRaids  int
	RecentRaids      int
}

// EventEligible applies the event gate to s.
func (p Policy) EventEligible(s Status) bool {
	if s.UnresolvedEvents >= p.MaxConcurrentEvents {
		return false
	}
	return s.RecentEvents == 0
}

// RaidEligible applies the raid gate to s.
func (p Policy) RaidEligible(s Status) bool {
	if s.UnresolvedRaids >= RaidCeiling {
		return false
	}
	return s.RecentRaids == 0
}

// Counter is the subset of the store the gate reads from.
type Counter interface {
	CountUnresolvedEvents(ctx context.Context, provinceID string) (int, error)
	CountEventsSince(ctx context.Context, provinceID string, cutoff time.Time) (int, error)
	CountUnresolvedRaids(ctx context.Context, provinceID string) (int, error)
	CountRaidsSince(ctx context.Context, provinceID string, cutoff time.Time) (int, error)
}

// Checker evaluates the gate against live store counts.
type Checker struct {
	counter Counter
	policy  Policy
}

// NewChecker creates a Checker.
func NewChecker(counter Counter, policy Policy) *Checker {
	return &Checker{counter: counter, policy: policy}
}

// Policy returns the limits the checker applies.
func (c *Checker) Policy() Policy { return c.policy }

// EventEligible reports whether provinceID may receive an event at now.
func (c *Checker) EventEligible(ctx context.Context, provinceID string, now time.Time) (bool, error) {
	open, err := c.counter.CountUnresolvedEvents(ctx, provinceID)
	if err != nil {
		return false, fmt.Errorf("count unresolved events: %w", err)
	}
	// The ceiling wins regardless of cooldown; skip the second query.
	if open >= c.policy.MaxConcurrentEvents {
		return false, nil
	}
	recent, err := c.counter.CountEventsSince(ctx, provinceID, now.Add(-c.policy.EventCooldown))
	if err != nil {
		return false, fmt.Errorf("count recent events: %w", err)
	}
	return c.policy.EventEligible(Status{UnresolvedEvents: open, RecentEvents: recent}), nil
}

// RaidEligible reports whether provinceID may receive a raid at now.
func (c *Checker) RaidEligible(ctx context.Context, provinceID string, now time.Time) (bool, error) {
	open, err := c.counter.CountUnresolvedRaids(ctx, provinceID)
	if err != nil {
		return false, fmt.Errorf("count unresolved raids: %w", err)
	}
	if open >= RaidCeiling {
		return false, nil
	}
	recent, err := c.counter.CountRaidsSince(ctx, provinceID, now.Add(-c.policy.RaidCooldown))
	if err != nil {
		return false, fmt.Errorf("count recent raids: %w", err)
	}
	return c.policy.RaidEligible(Status{UnresolvedRaids: open, RecentRaids: recent}), nil
}
