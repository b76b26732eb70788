package realm

import "time"

// ProvinceStock is one province's share of the empire pool.
type ProvinceStock struct {
	ProvinceID string    `json:"province_id"`
	Resources  Resources `json:"resources"`
}

// Empire is the aggregate snapshot of every province in one city.
type Empire struct {
	CityID        string          `json:"city_id"`
	ProvinceCount int             `json:"province_count"`
	Totals        Resources       `json:"totals"`
	Stocks        []ProvinceStock `json:"stocks"` // ordered for greedy deduction

	Researched      []string `json:"researched"`
	PendingResearch []string `json:"pending_research"`
}

// HasResearched reports whether technology id is complete in this city.
func (e *Empire) HasResearched(id string) bool {
	for _, r := range e.Researched {
		if r == id {
			return true
		}
	}
	return false
}

// IsResearching reports whether technology id has a pending task.
func (e *Empire) IsResearching(id string) bool {
	for _, r := range e.PendingResearch {
		if r == id {
			return true
		}
	}
	return false
}

// NewEmpire builds an Empire from ordered per-province stocks.
func NewEmpire(cityID string, stocks []ProvinceStock) *Empire {
	totals := Resources{}
	for _, s := range stocks {
		totals = totals.Add(s.Resources)
	}
	return &Empire{
		CityID:        cityID,
		ProvinceCount: len(stocks),
		Totals:        totals,
		Stocks:        stocks,
	}
}

// TaskState is the lifecycle state of a construction or research task.
type TaskState string

const (
	TaskPending   TaskState = "PENDING"
	TaskCompleted TaskState = "COMPLETED"
)

// ConstructionTask upgrades one building by one level.
type ConstructionTask struct {
	ID           string       `json:"id"`
	ProvinceID   string       `json:"province_id"`
	BuildingType BuildingType `json:"building_type"`
	FromLevel    int          `json:"from_level"`
	ToLevel      int          `json:"to_level"`
	StartedAt    time.Time    `json:"started_at"`
	CompletesAt  time.Time    `json:"completes_at"`
	State        TaskState    `json:"state"`
}

// ResearchTask researches one technology for a city.
type ResearchTask struct {
	ID           string    `json:"id"`
	CityID       string    `json:"city_id"`
	ProvinceID   string    `json:"province_id"` // the governor's province
	TechnologyID string    `json:"technology_id"`
	StartedAt    time.Time `json:"started_at"`
	CompletesAt  time.Time `json:"completes_at"`
	State        TaskState `json:"state"`
}
