package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/events"
	"github.com/talgya/idle-empire/internal/realm"
)

// CycleReport summarizes one scheduler cycle.
type CycleReport struct {
	Expired        int
	Purged         int
	EffectsPurged  int
	RaidsResolved  int
	Provinces      int
	EventsCreated  int
	RaidsScheduled int
	Skipped        int
	Failures       int
	Took           time.Duration
}

type spawn int

const (
	spawnNone spawn = iota
	spawnEvent
	spawnRaid
)

// RunEventCycle runs one scheduler pass for userID (all users when empty):
// housekeeping first, then one event-or-raid roll per eligible province.
// Manual runs skip the automatic dampening. Failures in one province never
// stop the cycle.
func (s *Simulation) RunEventCycle(ctx context.Context, now time.Time, userID string, manual bool) CycleReport {
	start := time.Now()
	var rep CycleReport

	s.housekeep(ctx, now, &rep)

	ids, err := s.store.ProvinceIDs(ctx, userID)
	if err != nil {
		slog.Error("list provinces failed", "user_id", userID, "error", err)
		rep.Failures++
		rep.Took = time.Since(start)
		return rep
	}
	rep.Provinces = len(ids)

	for _, id := range ids {
		pctx, cancel := s.provinceCtx(ctx)
		got, err := s.rollProvince(pctx, id, now, manual)
		cancel()
		switch {
		case err != nil && skippable(err):
			rep.Skipped++
			slog.Debug("province skipped", "province_id", id, "reason", err)
		case err != nil:
			rep.Failures++
			s.logFailure("province roll failed", id, err)
		case got == spawnEvent:
			rep.EventsCreated++
		case got == spawnRaid:
			rep.RaidsScheduled++
		}
	}

	rep.Took = time.Since(start)
	slog.Info("scheduler cycle complete",
		"provinces", humanize.Comma(int64(rep.Provinces)),
		"events", rep.EventsCreated,
		"raids", rep.RaidsScheduled,
		"expired", rep.Expired,
		"purged", rep.Purged,
		"raids_resolved", rep.RaidsResolved,
		"skipped", rep.Skipped,
		"failures", rep.Failures,
		"took", rep.Took,
		"manual", manual,
	)
	return rep
}

func (s *Simulation) housekeep(ctx context.Context, now time.Time, rep *CycleReport) {
	n, err := s.store.ExpireEvents(ctx, now, events.AutoExpiredChoice)
	if err != nil {
		slog.Error("expire events failed", "error", err)
		rep.Failures++
	}
	rep.Expired = n

	var archive func([]realm.EventInstance) error
	if s.archive != nil {
		archive = func(batch []realm.EventInstance) error { return s.archive.Write(now, batch) }
	}
	n, err = s.store.PurgeResolvedEvents(ctx, now.Add(-s.cfg.EventRetention), archive)
	if err != nil {
		slog.Error("purge events failed", "error", err)
		rep.Failures++
	}
	rep.Purged = n

	n, err = s.store.PurgeExpiredEffects(ctx, now)
	if err != nil {
		slog.Error("purge effects failed", "error", err)
		rep.Failures++
	}
	rep.EffectsPurged = n

	if !s.cfg.AutoResolveRaids {
		return
	}
	due, err := s.store.DueRaids(ctx, now)
	if err != nil {
		slog.Error("list due raids failed", "error", err)
		rep.Failures++
		return
	}
	for _, r := range due {
		pctx, cancel := s.provinceCtx(ctx)
		_, err := s.resolveRaid(pctx, r, now)
		cancel()
		if err != nil {
			rep.Failures++
			s.logFailure("auto-resolve raid failed", r.ProvinceID, err)
			continue
		}
		rep.RaidsResolved++
	}
}

// rollProvince decides whether the province gets anything this cycle.
func (s *Simulation) rollProvince(ctx context.Context, id string, now time.Time, manual bool) (spawn, error) {
	ok, err := s.gate.EventEligible(ctx, id, now)
	if err != nil || !ok {
		return spawnNone, err
	}

	p, err := s.store.Province(ctx, id)
	if err != nil {
		return spawnNone, err
	}
	empire, err := s.store.Empire(ctx, p.CityID)
	if err != nil {
		return spawnNone, err
	}

	chance := events.EventChance(p, empire)
	if !manual {
		chance *= s.cfg.AutoDampening
	}
	if !entropy.Chance(s.rng, chance) {
		return spawnNone, nil
	}

	if entropy.Chance(s.rng, s.cfg.RaidChance) {
		raidOK, err := s.gate.RaidEligible(ctx, id, now)
		if err != nil {
			return spawnNone, err
		}
		if raidOK {
			created, err := s.scheduleRaid(ctx, p, now)
			if err != nil || created {
				return spawnRaid, err
			}
		}
	}
	return s.spawnEvent(ctx, p, empire, now)
}

// scheduleRaid picks an enemy for the current season and stages it. It
// reports false when no enemy fits the province.
func (s *Simulation) scheduleRaid(ctx context.Context, p *realm.Province, now time.Time) (bool, error) {
	eligible := events.EligibleEnemies(s.catalog.Enemies, p, realm.SeasonAt(now))
	enemy, ok := events.SelectEnemy(eligible, s.rng)
	if !ok {
		return false, nil
	}

	prep := time.Duration(entropy.Range(s.rng, float64(s.cfg.RaidPrepMin), float64(s.cfg.RaidPrepMax))).Round(time.Second)
	r := realm.Raid{
		ID:          uuid.NewString(),
		ProvinceID:  p.ID,
		EnemyID:     enemy.ID,
		TriggeredAt: now,
		ArrivesAt:   now.Add(prep),
	}
	if err := s.store.CreateRaid(ctx, r); err != nil {
		return false, err
	}
	slog.Info("raid scheduled",
		"province_id", p.ID,
		"raid_id", r.ID,
		"enemy", enemy.DisplayName(),
		"arrives", arrival(now, r.ArrivesAt),
	)
	s.record(now, p.ID, "raid", "%s march on %s", enemy.DisplayName(), p.Name)
	return true, nil
}

// spawnEvent draws an event for the province. Immediate events resolve on
// the spot with the first affordable choice; delayed ones wait for a player.
func (s *Simulation) spawnEvent(ctx context.Context, p *realm.Province, empire *realm.Empire, now time.Time) (spawn, error) {
	ev, ok := events.SelectRandom(events.Eligible(s.catalog.Events, p, empire), s.rng)
	if !ok {
		return spawnNone, nil
	}

	inst := realm.EventInstance{
		ID:          uuid.NewString(),
		ProvinceID:  p.ID,
		EventID:     ev.ID,
		TriggeredAt: now,
	}

	if ev.ImpactType == events.Immediate {
		choice, ok := events.AffordableChoice(&ev, p.Resources)
		if !ok {
			return spawnNone, fmt.Errorf("immediate event %s in %s: %w", ev.ID, p.ID, realm.ErrInsufficientResources)
		}
		res, err := events.ProcessChoice(choice.ID, &ev, s.rng)
		if err != nil {
			return spawnNone, err
		}
		inst.Resolved = true
		inst.ResolvedAt = now
		inst.ChoiceID = res.ChoiceID
		inst.Message = res.Message
		if err := s.store.CreateResolvedEvent(ctx, inst, res.ResourceChanges); err != nil {
			return spawnNone, err
		}
		s.applyOutcome(ctx, p.ID, res, now)
		s.record(now, p.ID, "event", "%s: %s", ev.Title, res.Message)
		return spawnEvent, nil
	}

	inst.ExpiresAt = now.Add(s.cfg.DelayedEventTTL)
	if err := s.store.CreateEvent(ctx, inst, s.cfg.MaxConcurrentEvents); err != nil {
		return spawnNone, err
	}
	slog.Info("event triggered", "province_id", p.ID, "event", ev.ID, "rarity", ev.Rarity, "instance_id", inst.ID)
	s.record(now, p.ID, "event", "%s awaits a decision in %s", ev.Title, p.Name)
	return spawnEvent, nil
}

// arrival renders when a raid lands relative to now, e.g. "20 minutes from now".
func arrival(now, at time.Time) string {
	return humanize.RelTime(at, now, "ago", "from now")
}
