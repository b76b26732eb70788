package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/idle-empire/internal/catalog"
	"github.com/talgya/idle-empire/internal/config"
	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/gate"
	"github.com/talgya/idle-empire/internal/persistence"
	"github.com/talgya/idle-empire/internal/realm"
)

// recentCapacity bounds the in-memory chronicle.
const recentCapacity = 256

// Store is the persistence surface the simulation needs.
type Store interface {
	gate.Counter

	ProvinceIDs(ctx context.Context, userID string) ([]string, error)
	GovernedProvinceIDs(ctx context.Context) ([]string, error)
	Province(ctx context.Context, id string) (*realm.Province, error)
	Empire(ctx context.Context, cityID string) (*realm.Empire, error)

	UpdateGovernor(ctx context.Context, provinceID string, xpDelta, loyaltyDelta int) error
	AddEffect(ctx context.Context, provinceID string, e realm.Effect) error
	PurgeExpiredEffects(ctx context.Context, now time.Time) (int, error)

	CreateEvent(ctx context.Context, e realm.EventInstance, maxUnresolved int) error
	CreateResolvedEvent(ctx context.Context, e realm.EventInstance, delta realm.Resources) error
	Event(ctx context.Context, id string) (realm.EventInstance, error)
	ResolveEvent(ctx context.Context, id, choiceID, message string, delta realm.Resources, now time.Time) error
	ExpireEvents(ctx context.Context, now time.Time, choiceID string) (int, error)
	PurgeResolvedEvents(ctx context.Context, cutoff time.Time, archive func([]realm.EventInstance) error) (int, error)

	CreateRaid(ctx context.Context, r realm.Raid) error
	Raid(ctx context.Context, id string) (realm.Raid, error)
	DueRaids(ctx context.Context, now time.Time) ([]realm.Raid, error)
	SettleRaid(ctx context.Context, id string, s realm.RaidSettlement) error

	StartConstruction(ctx context.Context, t realm.ConstructionTask, cost realm.Resources) error
	StartResearch(ctx context.Context, t realm.ResearchTask, plan []realm.ProvinceStock) error
	DueConstruction(ctx context.Context, now time.Time) ([]realm.ConstructionTask, error)
	CompleteConstruction(ctx context.Context, t realm.ConstructionTask) error
	DueResearch(ctx context.Context, now time.Time) ([]realm.ResearchTask, error)
	CompleteResearch(ctx context.Context, t realm.ResearchTask, now time.Time) error
}

// Event is a notable occurrence kept in the in-memory chronicle.
type Event struct {
	Time        time.Time `json:"time"`
	ProvinceID  string    `json:"province_id"`
	Category    string    `json:"category"` // "event", "raid", "construction", "research"
	Description string    `json:"description"`
}

// Simulation owns the scheduler and governor cycles and the resolution of
// raids and events.
type Simulation struct {
	Now func() time.Time

	store   Store
	catalog *catalog.Catalog
	cfg     config.Config
	rng     entropy.Source
	gate    *gate.Checker
	archive *persistence.Archive

	mu     sync.Mutex
	recent []Event
}

// NewSimulation wires a simulation. archive may be nil, in which case
// purged events are dropped.
func NewSimulation(store Store, cat *catalog.Catalog, cfg config.Config, rng entropy.Source, archive *persistence.Archive) *Simulation {
	return &Simulation{
		Now:     time.Now,
		store:   store,
		catalog: cat,
		cfg:     cfg,
		rng:     rng,
		gate:    gate.NewChecker(store, cfg.GatePolicy()),
		archive: archive,
	}
}

// Attach registers the scheduler and governor cycles on e.
func (s *Simulation) Attach(e *Engine) {
	e.Every("scheduler", s.cfg.CheckInterval, func(ctx context.Context, now time.Time) {
		s.RunEventCycle(ctx, now, "", false)
	})
	e.Every("governors", s.cfg.GovernorInterval, func(ctx context.Context, now time.Time) {
		s.RunGovernorCycle(ctx, now)
	})
}

// Recent returns up to n chronicle entries, newest last.
func (s *Simulation) Recent(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.recent) {
		n = len(s.recent)
	}
	return append([]Event(nil), s.recent[len(s.recent)-n:]...)
}

func (s *Simulation) record(now time.Time, provinceID, category, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, Event{
		Time:        now,
		ProvinceID:  provinceID,
		Category:    category,
		Description: fmt.Sprintf(format, args...),
	})
	if len(s.recent) > recentCapacity {
		s.recent = append(s.recent[:0], s.recent[len(s.recent)-recentCapacity:]...)
	}
}

// provinceCtx bounds the store work done for a single province.
func (s *Simulation) provinceCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// skippable reports errors that mean "not this time" rather than failure.
func skippable(err error) bool {
	return errors.Is(err, persistence.ErrConcurrencyLimit) ||
		errors.Is(err, realm.ErrInsufficientResources)
}

func (s *Simulation) logFailure(msg, provinceID string, err error) {
	slog.Warn(msg, "province_id", provinceID, "error", err)
}
