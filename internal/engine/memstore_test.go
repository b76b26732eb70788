package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/talgya/idle-empire/internal/persistence"
	"github.com/talgya/idle-empire/internal/realm"
)

// memStore is an in-memory Store with the same guard semantics as the
// SQLite store.
type memStore struct {
	mu           sync.Mutex
	provinces    map[string]*realm.Province
	events       map[string]realm.EventInstance
	raids        map[string]realm.Raid
	construction []realm.ConstructionTask
	research     []realm.ResearchTask
	researched   map[string][]string
	broken       map[string]error // Province(id) fails with this error
	failing      map[string]error // named write fails with this error, writing nothing
}

func newMemStore(provinces ...*realm.Province) *memStore {
	s := &memStore{
		provinces:  map[string]*realm.Province{},
		events:     map[string]realm.EventInstance{},
		raids:      map[string]realm.Raid{},
		researched: map[string][]string{},
		broken:     map[string]error{},
		failing:    map[string]error{},
	}
	for _, p := range provinces {
		s.provinces[p.ID] = p
	}
	return s
}

func cloneProvince(p *realm.Province) *realm.Province {
	c := *p
	c.Resources = p.Resources.Clone()
	c.Buildings = slices.Clone(p.Buildings)
	c.Effects = slices.Clone(p.Effects)
	if p.Governor != nil {
		g := *p.Governor
		c.Governor = &g
	}
	return &c
}

func (s *memStore) CountUnresolvedEvents(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unresolvedEvents(id), nil
}

func (s *memStore) unresolvedEvents(id string) int {
	n := 0
	for _, e := range s.events {
		if e.ProvinceID == id && !e.Resolved {
			n++
		}
	}
	return n
}

func (s *memStore) CountEventsSince(_ context.Context, id string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.ProvinceID == id && e.TriggeredAt.After(cutoff) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountUnresolvedRaids(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.raids {
		if r.ProvinceID == id && !r.Resolved {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountRaidsSince(_ context.Context, id string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.raids {
		if r.ProvinceID == id && r.TriggeredAt.After(cutoff) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ProvinceIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.provinces {
		if userID == "" || p.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) GovernedProvinceIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.provinces {
		if p.Governor != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) Province(_ context.Context, id string) (*realm.Province, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.broken[id]; err != nil {
		return nil, err
	}
	p, ok := s.provinces[id]
	if !ok {
		return nil, fmt.Errorf("province %s: %w", id, persistence.ErrNotFound)
	}
	c := cloneProvince(p)
	c.PendingConstruction = nil
	for _, t := range s.construction {
		if t.ProvinceID == id && t.State == realm.TaskPending {
			c.PendingConstruction = append(c.PendingConstruction, t.BuildingType)
		}
	}
	return c, nil
}

func (s *memStore) Empire(_ context.Context, cityID string) (*realm.Empire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.provinces {
		if p.CityID == cityID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	stocks := make([]realm.ProvinceStock, len(ids))
	for i, id := range ids {
		stocks[i] = realm.ProvinceStock{ProvinceID: id, Resources: s.provinces[id].Resources.Clone()}
	}
	e := realm.NewEmpire(cityID, stocks)
	e.Researched = slices.Clone(s.researched[cityID])
	for _, t := range s.research {
		if t.CityID == cityID && t.State == realm.TaskPending {
			e.PendingResearch = append(e.PendingResearch, t.TechnologyID)
		}
	}
	return e, nil
}

func (s *memStore) applyDelta(id string, delta realm.Resources) error {
	p, ok := s.provinces[id]
	if !ok {
		return fmt.Errorf("province %s: %w", id, persistence.ErrNotFound)
	}
	next := p.Resources.Add(delta)
	for r, v := range next {
		if v < 0 {
			return fmt.Errorf("province %s needs %d %s: %w", id, -delta[r], r, realm.ErrInsufficientResources)
		}
	}
	p.Resources = next
	return nil
}

func (s *memStore) UpdateGovernor(_ context.Context, id string, xp, loyalty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing["UpdateGovernor"]; err != nil {
		return err
	}
	p := s.provinces[id]
	if p == nil || p.Governor == nil {
		return fmt.Errorf("governor of %s: %w", id, persistence.ErrNotFound)
	}
	p.Governor.Experience = max(0, p.Governor.Experience+xp)
	p.Governor.Loyalty = realm.AdjustLoyalty(p.Governor.Loyalty, loyalty)
	return nil
}

func (s *memStore) AddEffect(_ context.Context, id string, e realm.Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.provinces[id]
	p.Effects = append(p.Effects, e)
	return nil
}

func (s *memStore) PurgeExpiredEffects(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.provinces {
		kept := p.Effects[:0]
		for _, e := range p.Effects {
			if e.ExpiresAt.After(now) {
				kept = append(kept, e)
			} else {
				n++
			}
		}
		p.Effects = kept
	}
	return n, nil
}

func (s *memStore) CreateResolvedEvent(_ context.Context, e realm.EventInstance, delta realm.Resources) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing["CreateResolvedEvent"]; err != nil {
		return err
	}
	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("event %s exists", e.ID)
	}
	if err := s.applyDelta(e.ProvinceID, delta); err != nil {
		return err
	}
	e.Resolved = true
	s.events[e.ID] = e
	return nil
}

func (s *memStore) CreateEvent(_ context.Context, e realm.EventInstance, maxUnresolved int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !e.Resolved && s.unresolvedEvents(e.ProvinceID) >= maxUnresolved {
		return fmt.Errorf("event for %s: %w", e.ProvinceID, persistence.ErrConcurrencyLimit)
	}
	s.events[e.ID] = e
	return nil
}

func (s *memStore) Event(_ context.Context, id string) (realm.EventInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return realm.EventInstance{}, fmt.Errorf("event %s: %w", id, persistence.ErrNotFound)
	}
	return e, nil
}

func (s *memStore) ResolveEvent(_ context.Context, id, choiceID, message string, delta realm.Resources, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, persistence.ErrNotFound)
	}
	if e.Resolved {
		return fmt.Errorf("event %s: %w", id, persistence.ErrAlreadyResolved)
	}
	if err := s.applyDelta(e.ProvinceID, delta); err != nil {
		return err
	}
	e.Resolved, e.ResolvedAt, e.ChoiceID, e.Message = true, now, choiceID, message
	s.events[id] = e
	return nil
}

func (s *memStore) ExpireEvents(_ context.Context, now time.Time, choiceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.events {
		if !e.Resolved && e.Expired(now) {
			e.Resolved, e.ResolvedAt, e.ChoiceID = true, now, choiceID
			s.events[id] = e
			n++
		}
	}
	return n, nil
}

func (s *memStore) PurgeResolvedEvents(_ context.Context, cutoff time.Time, archive func([]realm.EventInstance) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batch []realm.EventInstance
	for _, e := range s.events {
		if e.Resolved && e.ResolvedAt.Before(cutoff) {
			batch = append(batch, e)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if archive != nil {
		if err := archive(batch); err != nil {
			return 0, err
		}
	}
	for _, e := range batch {
		delete(s.events, e.ID)
	}
	for id, r := range s.raids {
		if r.Resolved && r.ResolvedAt.Before(cutoff) {
			delete(s.raids, id)
		}
	}
	return len(batch), nil
}

func (s *memStore) CreateRaid(_ context.Context, r realm.Raid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.raids {
		if x.ProvinceID == r.ProvinceID && !x.Resolved {
			return fmt.Errorf("raid for %s: %w", r.ProvinceID, persistence.ErrConcurrencyLimit)
		}
	}
	s.raids[r.ID] = r
	return nil
}

func (s *memStore) Raid(_ context.Context, id string) (realm.Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.raids[id]
	if !ok {
		return realm.Raid{}, fmt.Errorf("raid %s: %w", id, persistence.ErrNotFound)
	}
	return r, nil
}

func (s *memStore) DueRaids(_ context.Context, now time.Time) ([]realm.Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []realm.Raid
	for _, r := range s.raids {
		if !r.Resolved && !r.ArrivesAt.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivesAt.Before(out[j].ArrivesAt) })
	return out, nil
}

func (s *memStore) SettleRaid(_ context.Context, id string, st realm.RaidSettlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.raids[id]
	if !ok {
		return fmt.Errorf("raid %s: %w", id, persistence.ErrNotFound)
	}
	if r.Resolved {
		return fmt.Errorf("raid %s: %w", id, persistence.ErrAlreadyResolved)
	}
	if err := s.failing["SettleRaid"]; err != nil {
		return err
	}

	p := s.provinces[r.ProvinceID]
	p.Resources = p.Resources.Add(st.Gained)
	for res, amt := range st.Lost {
		p.Resources[res] = max(0, p.Resources[res]-amt)
	}
	p.Threat = max(0, p.Threat+st.ThreatDelta)
	if g := p.Governor; g != nil {
		g.Experience = max(0, g.Experience+st.GovernorXP)
		g.Loyalty = realm.AdjustLoyalty(g.Loyalty, st.GovernorLoyalty)
	}
	if st.Morale != nil {
		p.Effects = append(p.Effects, *st.Morale)
	}

	r.Resolved, r.ResolvedAt, r.Outcome, r.Narrative = true, st.ResolvedAt, st.Outcome, st.Narrative
	s.raids[id] = r
	return nil
}

func (s *memStore) StartConstruction(_ context.Context, t realm.ConstructionTask, cost realm.Resources) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.construction {
		if x.ProvinceID == t.ProvinceID && x.BuildingType == t.BuildingType && x.State == realm.TaskPending {
			return fmt.Errorf("construction of %s: %w", t.BuildingType, persistence.ErrConcurrencyLimit)
		}
	}
	if err := s.applyDelta(t.ProvinceID, cost.Negate()); err != nil {
		return err
	}
	s.construction = append(s.construction, t)
	return nil
}

func (s *memStore) StartResearch(_ context.Context, t realm.ResearchTask, plan []realm.ProvinceStock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range plan {
		if !s.provinces[d.ProvinceID].Resources.Covers(d.Resources) {
			return fmt.Errorf("province %s: %w", d.ProvinceID, realm.ErrInsufficientResources)
		}
	}
	for _, d := range plan {
		if err := s.applyDelta(d.ProvinceID, d.Resources.Negate()); err != nil {
			return err
		}
	}
	s.research = append(s.research, t)
	return nil
}

func (s *memStore) DueConstruction(_ context.Context, now time.Time) ([]realm.ConstructionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []realm.ConstructionTask
	for _, t := range s.construction {
		if t.State == realm.TaskPending && !t.CompletesAt.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) CompleteConstruction(_ context.Context, t realm.ConstructionTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.construction {
		if s.construction[i].ID != t.ID {
			continue
		}
		if s.construction[i].State != realm.TaskPending {
			return fmt.Errorf("construction %s: %w", t.ID, persistence.ErrAlreadyResolved)
		}
		s.construction[i].State = realm.TaskCompleted
		p := s.provinces[t.ProvinceID]
		for j := range p.Buildings {
			if p.Buildings[j].Type == t.BuildingType {
				p.Buildings[j].Level = max(p.Buildings[j].Level, t.ToLevel)
				return nil
			}
		}
		p.Buildings = append(p.Buildings, realm.Building{Type: t.BuildingType, Level: t.ToLevel})
		return nil
	}
	return fmt.Errorf("construction %s: %w", t.ID, persistence.ErrNotFound)
}

func (s *memStore) DueResearch(_ context.Context, now time.Time) ([]realm.ResearchTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []realm.ResearchTask
	for _, t := range s.research {
		if t.State == realm.TaskPending && !t.CompletesAt.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) CompleteResearch(_ context.Context, t realm.ResearchTask, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.research {
		if s.research[i].ID != t.ID {
			continue
		}
		if s.research[i].State != realm.TaskPending {
			return fmt.Errorf("research %s: %w", t.ID, persistence.ErrAlreadyResolved)
		}
		s.research[i].State = realm.TaskCompleted
		s.researched[t.CityID] = append(s.researched[t.CityID], t.TechnologyID)
		return nil
	}
	return fmt.Errorf("research %s: %w", t.ID, persistence.ErrNotFound)
}

// province returns the stored province for assertions.
func (s *memStore) province(id string) *realm.Province {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProvince(s.provinces[id])
}

func (s *memStore) eventsFor(id string) []realm.EventInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []realm.EventInstance
	for _, e := range s.events {
		if e.ProvinceID == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.Before(out[j].TriggeredAt) })
	return out
}

var _ Store = (*memStore)(nil)
var _ Store = (*persistence.DB)(nil)
