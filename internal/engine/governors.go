package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/governor"
	"github.com/talgya/idle-empire/internal/realm"
)

// GovernorReport summarizes one governor cycle.
type GovernorReport struct {
	ConstructionDone int
	ResearchDone     int
	Governed         int
	Idle             int
	Built            int
	Researched       int
	Waited           int
	Skipped          int
	Failures         int
	Took             time.Duration
}

// RunGovernorCycle finishes due tasks, then gives each governed province a
// chance to start one build or research action.
func (s *Simulation) RunGovernorCycle(ctx context.Context, now time.Time) GovernorReport {
	start := time.Now()
	var rep GovernorReport

	s.completeTasks(ctx, now, &rep)

	ids, err := s.store.GovernedProvinceIDs(ctx)
	if err != nil {
		slog.Error("list governed provinces failed", "error", err)
		rep.Failures++
		rep.Took = time.Since(start)
		return rep
	}
	rep.Governed = len(ids)

	for _, id := range ids {
		if !entropy.Chance(s.rng, s.cfg.GovernorActChance) {
			rep.Idle++
			continue
		}
		pctx, cancel := s.provinceCtx(ctx)
		d, err := s.govern(pctx, id, now)
		cancel()
		switch {
		case err != nil && skippable(err):
			rep.Skipped++
			slog.Debug("governor action skipped", "province_id", id, "reason", err)
		case err != nil:
			rep.Failures++
			s.logFailure("governor action failed", id, err)
		case d == governor.Build:
			rep.Built++
		case d == governor.Research:
			rep.Researched++
		default:
			rep.Waited++
		}
	}

	rep.Took = time.Since(start)
	slog.Info("governor cycle complete",
		"governed", rep.Governed,
		"built", rep.Built,
		"researched", rep.Researched,
		"waited", rep.Waited,
		"idle", rep.Idle,
		"construction_done", rep.ConstructionDone,
		"research_done", rep.ResearchDone,
		"skipped", rep.Skipped,
		"failures", rep.Failures,
		"took", rep.Took,
	)
	return rep
}

func (s *Simulation) completeTasks(ctx context.Context, now time.Time, rep *GovernorReport) {
	builds, err := s.store.DueConstruction(ctx, now)
	if err != nil {
		slog.Error("list due construction failed", "error", err)
		rep.Failures++
	}
	for _, t := range builds {
		if err := s.store.CompleteConstruction(ctx, t); err != nil {
			rep.Failures++
			s.logFailure("complete construction failed", t.ProvinceID, err)
			continue
		}
		rep.ConstructionDone++
		s.record(now, t.ProvinceID, "construction", "%s reached level %d", t.BuildingType, t.ToLevel)
	}

	research, err := s.store.DueResearch(ctx, now)
	if err != nil {
		slog.Error("list due research failed", "error", err)
		rep.Failures++
	}
	for _, t := range research {
		if err := s.store.CompleteResearch(ctx, t, now); err != nil {
			rep.Failures++
			s.logFailure("complete research failed", t.ProvinceID, err)
			continue
		}
		rep.ResearchDone++
		s.record(now, t.ProvinceID, "research", "%s researched", t.TechnologyID)
	}
}

// govern loads the province, asks its governor for a decision, and starts it.
func (s *Simulation) govern(ctx context.Context, id string, now time.Time) (governor.DecisionType, error) {
	p, err := s.store.Province(ctx, id)
	if err != nil {
		return governor.Wait, err
	}
	empire, err := s.store.Empire(ctx, p.CityID)
	if err != nil {
		return governor.Wait, err
	}

	d := governor.Decide(p, empire, &s.catalog.Rules, s.rng)
	switch d.Type {
	case governor.Build:
		task := realm.ConstructionTask{
			ID:           uuid.NewString(),
			ProvinceID:   p.ID,
			BuildingType: d.Building,
			FromLevel:    d.FromLevel,
			ToLevel:      d.ToLevel,
			StartedAt:    now,
			CompletesAt:  now.Add(d.Duration),
			State:        realm.TaskPending,
		}
		if err := s.store.StartConstruction(ctx, task, d.Cost); err != nil {
			return governor.Wait, err
		}
		if err := s.store.UpdateGovernor(ctx, p.ID, governor.BuildXP(d.ToLevel), governor.BuildLoyalty(s.rng)); err != nil {
			slog.Warn("governor progress not recorded", "province_id", p.ID, "decision", d.Type, "error", err)
		}
		slog.Info("construction started", "province_id", p.ID, "building", d.Building, "to_level", d.ToLevel, "cost", d.Cost.String(), "completes_at", task.CompletesAt)
		s.record(now, p.ID, "construction", "%s began raising %s to level %d", p.Governor.Name, d.Building, d.ToLevel)

	case governor.Research:
		plan, err := governor.PlanDeduction(d.Cost, empire.Stocks)
		if err != nil {
			return governor.Wait, err
		}
		stocks := make([]realm.ProvinceStock, len(plan))
		for i, ded := range plan {
			stocks[i] = realm.ProvinceStock{ProvinceID: ded.ProvinceID, Resources: ded.Resources}
		}
		task := realm.ResearchTask{
			ID:           uuid.NewString(),
			CityID:       p.CityID,
			ProvinceID:   p.ID,
			TechnologyID: d.TechnologyID,
			StartedAt:    now,
			CompletesAt:  now.Add(d.Duration),
			State:        realm.TaskPending,
		}
		if err := s.store.StartResearch(ctx, task, stocks); err != nil {
			return governor.Wait, err
		}
		if err := s.store.UpdateGovernor(ctx, p.ID, governor.ResearchXP(), governor.ResearchLoyalty(s.rng)); err != nil {
			slog.Warn("governor progress not recorded", "province_id", p.ID, "decision", d.Type, "error", err)
		}
		slog.Info("research started", "province_id", p.ID, "city_id", p.CityID, "technology", d.TechnologyID, "contributors", len(plan), "completes_at", task.CompletesAt)
		s.record(now, p.ID, "research", "%s commissioned %s", p.Governor.Name, d.TechnologyID)
	}
	return d.Type, nil
}
