package realm

import "time"

// EventInstance is one occurrence of a catalog event in a province.
type EventInstance struct {
	ID          string    `json:"id"`
	ProvinceID  string    `json:"province_id"`
	EventID     string    `json:"event_id"`
	TriggeredAt time.Time `json:"triggered_at"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"` // zero for immediate events
	Resolved    bool      `json:"resolved"`
	ResolvedAt  time.Time `json:"resolved_at,omitzero"`
	ChoiceID    string    `json:"choice_id,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// Expired reports whether an unresolved instance is past its expiry at now.
func (e *EventInstance) Expired(now time.Time) bool {
	return !e.Resolved && !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Raid is a scheduled attack by a catalog enemy.
type Raid struct {
	ID          string    `json:"id"`
	ProvinceID  string    `json:"province_id"`
	EnemyID     string    `json:"enemy_id"`
	TriggeredAt time.Time `json:"triggered_at"`
	ArrivesAt   time.Time `json:"arrives_at"`
	Resolved    bool      `json:"resolved"`
	ResolvedAt  time.Time `json:"resolved_at,omitzero"`
	Outcome     string    `json:"outcome,omitempty"`
	Narrative   string    `json:"narrative,omitempty"`
}

// RaidSettlement is everything resolving a raid writes: the closed record
// and its consequences for the province.
type RaidSettlement struct {
	Outcome         string
	Narrative       string
	Report          string
	ResolvedAt      time.Time
	Gained          Resources
	Lost            Resources
	ThreatDelta     int
	GovernorXP      int
	GovernorLoyalty int
	Morale          *Effect
}
