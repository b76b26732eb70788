package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/idle-empire/internal/combat"
	"github.com/talgya/idle-empire/internal/events"
	"github.com/talgya/idle-empire/internal/persistence"
	"github.com/talgya/idle-empire/internal/realm"
)

// moraleEffectDuration is how long a raid's morale swing lingers.
const moraleEffectDuration = 24 * time.Hour

// threatDelta is how much a raid outcome emboldens raiders.
func threatDelta(o combat.Outcome) int {
	switch o {
	case combat.Defeat:
		return 2
	case combat.Draw:
		return 1
	}
	return 0
}

// ResolveRaid resolves an open raid now, regardless of its arrival time.
func (s *Simulation) ResolveRaid(ctx context.Context, raidID string) (combat.Result, error) {
	r, err := s.store.Raid(ctx, raidID)
	if err != nil {
		return combat.Result{}, err
	}
	if r.Resolved {
		return combat.Result{}, fmt.Errorf("raid %s: %w", raidID, persistence.ErrAlreadyResolved)
	}
	return s.resolveRaid(ctx, r, s.Now())
}

func (s *Simulation) resolveRaid(ctx context.Context, r realm.Raid, now time.Time) (combat.Result, error) {
	enemy, ok := s.catalog.Enemy(r.EnemyID)
	if !ok {
		return combat.Result{}, fmt.Errorf("raid %s enemy %q: %w", r.ID, r.EnemyID, realm.ErrInvalidSnapshot)
	}
	p, err := s.store.Province(ctx, r.ProvinceID)
	if err != nil {
		return combat.Result{}, err
	}

	defense := combat.ComputeDefenseForce(p, now)
	res := combat.Resolve(enemy, defense, s.rng)

	report, err := json.Marshal(res)
	if err != nil {
		return combat.Result{}, fmt.Errorf("encode raid report %s: %w", r.ID, err)
	}
	settle := realm.RaidSettlement{
		Outcome:     string(res.Outcome),
		Narrative:   res.Narrative,
		Report:      string(report),
		ResolvedAt:  now,
		Gained:      res.ResourcesGained,
		Lost:        res.ResourcesLost,
		ThreatDelta: threatDelta(res.Outcome),
	}
	if p.Governor != nil {
		settle.GovernorXP, settle.GovernorLoyalty = res.GovernorXP, res.GovernorLoyalty
	}
	if res.MoraleDelta != 0 {
		settle.Morale = &realm.Effect{
			Kind:      realm.EffectMorale,
			Magnitude: float64(res.MoraleDelta),
			ExpiresAt: now.Add(moraleEffectDuration),
		}
	}
	// The close and every consequence commit together; a failed settlement
	// leaves the raid open for the next cycle.
	if err := s.store.SettleRaid(ctx, r.ID, settle); err != nil {
		return combat.Result{}, err
	}

	slog.Info("raid resolved",
		"province_id", p.ID,
		"raid_id", r.ID,
		"enemy", enemy.ID,
		"outcome", res.Outcome,
		"score", fmt.Sprintf("%.3f", res.Score),
		"gained", res.ResourcesGained.String(),
		"lost", res.ResourcesLost.String(),
		"morale_delta", res.MoraleDelta,
	)
	s.record(now, p.ID, "raid", "%s", res.Narrative)
	return res, nil
}

// ResolveEvent applies the player's choice to an open event. The resource
// change and the close happen atomically; governor, effect, and follow-up
// updates are applied afterwards and logged on failure.
func (s *Simulation) ResolveEvent(ctx context.Context, instanceID, choiceID string) (events.ChoiceResult, error) {
	inst, err := s.store.Event(ctx, instanceID)
	if err != nil {
		return events.ChoiceResult{}, err
	}
	if inst.Resolved {
		return events.ChoiceResult{}, fmt.Errorf("event %s: %w", instanceID, persistence.ErrAlreadyResolved)
	}
	ev, ok := s.catalog.Event(inst.EventID)
	if !ok {
		return events.ChoiceResult{}, fmt.Errorf("event %s definition %q: %w", instanceID, inst.EventID, realm.ErrInvalidSnapshot)
	}

	res, err := events.ProcessChoice(choiceID, ev, s.rng)
	if err != nil {
		return events.ChoiceResult{}, err
	}

	now := s.Now()
	if err := s.store.ResolveEvent(ctx, instanceID, res.ChoiceID, res.Message, res.ResourceChanges, now); err != nil {
		return events.ChoiceResult{}, err
	}
	s.applyOutcome(ctx, inst.ProvinceID, res, now)

	slog.Info("event resolved", "province_id", inst.ProvinceID, "event", ev.ID, "choice", res.ChoiceID, "changes", res.ResourceChanges.String())
	s.record(now, inst.ProvinceID, "event", "%s: %s", ev.Title, res.Message)
	return res, nil
}

// applyOutcome applies the non-resource parts of a choice.
func (s *Simulation) applyOutcome(ctx context.Context, provinceID string, res events.ChoiceResult, now time.Time) {
	if res.XPGain != 0 || res.LoyaltyChange != 0 {
		err := s.store.UpdateGovernor(ctx, provinceID, res.XPGain, res.LoyaltyChange)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			s.logFailure("governor update failed", provinceID, err)
		}
	}

	if g := res.Effect; g != nil {
		err := s.store.AddEffect(ctx, provinceID, realm.Effect{
			Kind:      g.Kind,
			Magnitude: g.Magnitude,
			ExpiresAt: now.Add(time.Duration(g.DurationHours) * time.Hour),
		})
		if err != nil {
			s.logFailure("add effect failed", provinceID, err)
		}
	}

	if !res.ScheduleFollowup || res.FollowupEventID == "" {
		return
	}
	follow := realm.EventInstance{
		ID:          uuid.NewString(),
		ProvinceID:  provinceID,
		EventID:     res.FollowupEventID,
		TriggeredAt: now,
		ExpiresAt:   now.Add(s.cfg.DelayedEventTTL),
	}
	if err := s.store.CreateEvent(ctx, follow, s.cfg.MaxConcurrentEvents); err != nil {
		s.logFailure("follow-up event not scheduled", provinceID, err)
		return
	}
	slog.Info("follow-up event scheduled", "province_id", provinceID, "event", res.FollowupEventID, "instance_id", follow.ID)
}
