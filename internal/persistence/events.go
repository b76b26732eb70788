package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/talgya/idle-empire/internal/realm"
)

type eventRow struct {
	ID          string `db:"id"`
	ProvinceID  string `db:"province_id"`
	EventID     string `db:"event_id"`
	TriggeredAt int64  `db:"triggered_at"`
	ExpiresAt   int64  `db:"expires_at"`
	Resolved    bool   `db:"resolved"`
	ResolvedAt  int64  `db:"resolved_at"`
	ChoiceID    string `db:"choice_id"`
	Message     string `db:"message"`
}

func (r eventRow) instance() realm.EventInstance {
	return realm.EventInstance{
		ID:          r.ID,
		ProvinceID:  r.ProvinceID,
		EventID:     r.EventID,
		TriggeredAt: fromMillis(r.TriggeredAt),
		ExpiresAt:   fromMillis(r.ExpiresAt),
		Resolved:    r.Resolved,
		ResolvedAt:  fromMillis(r.ResolvedAt),
		ChoiceID:    r.ChoiceID,
		Message:     r.Message,
	}
}

type raidRow struct {
	ID          string `db:"id"`
	ProvinceID  string `db:"province_id"`
	EnemyID     string `db:"enemy_id"`
	TriggeredAt int64  `db:"triggered_at"`
	ArrivesAt   int64  `db:"arrives_at"`
	Resolved    bool   `db:"resolved"`
	ResolvedAt  int64  `db:"resolved_at"`
	Outcome     string `db:"outcome"`
	Narrative   string `db:"narrative"`
	ReportJSON  string `db:"report_json"`
}

func (r raidRow) raid() realm.Raid {
	return realm.Raid{
		ID:          r.ID,
		ProvinceID:  r.ProvinceID,
		EnemyID:     r.EnemyID,
		TriggeredAt: fromMillis(r.TriggeredAt),
		ArrivesAt:   fromMillis(r.ArrivesAt),
		Resolved:    r.Resolved,
		ResolvedAt:  fromMillis(r.ResolvedAt),
		Outcome:     r.Outcome,
		Narrative:   r.Narrative,
	}
}

const eventColumns = "id, province_id, event_id, triggered_at, expires_at, resolved, resolved_at, choice_id, message"

const raidColumns = "id, province_id, enemy_id, triggered_at, arrives_at, resolved, resolved_at, outcome, narrative, report_json"

// CreateEvent inserts an event instance. Unresolved instances are inserted
// only while the province has fewer than maxUnresolved open events;
// otherwise ErrConcurrencyLimit is returned. Instances created already
// resolved are not subject to the ceiling.
func (db *DB) CreateEvent(ctx context.Context, e realm.EventInstance, maxUnresolved int) error {
	args := []any{
		e.ID, e.ProvinceID, e.EventID, toMillis(e.TriggeredAt), toMillis(e.ExpiresAt),
		boolInt(e.Resolved), toMillis(e.ResolvedAt), e.ChoiceID, e.Message,
	}
	if e.Resolved {
		_, err := db.conn.ExecContext(ctx,
			"INSERT INTO event_instances ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
		return nil
	}

	res, err := db.conn.ExecContext(ctx, "INSERT INTO event_instances ("+eventColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM event_instances WHERE province_id = ? AND resolved = 0) < ?`,
		append(args, e.ProvinceID, maxUnresolved)...,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event for %s: %w", e.ProvinceID, ErrConcurrencyLimit)
	}
	return nil
}

// CreateResolvedEvent records an event that resolved the moment it fired
// and applies its resource change in the same transaction. A change that
// would drive a stock negative writes nothing and returns
// realm.ErrInsufficientResources.
func (db *DB) CreateResolvedEvent(ctx context.Context, e realm.EventInstance, delta realm.Resources) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e.Resolved = true
	_, err = tx.ExecContext(ctx, "INSERT INTO event_instances ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.ProvinceID, e.EventID, toMillis(e.TriggeredAt), toMillis(e.ExpiresAt),
		boolInt(e.Resolved), toMillis(e.ResolvedAt), e.ChoiceID, e.Message,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	if err := applyDelta(ctx, tx, e.ProvinceID, delta); err != nil {
		return err
	}
	return tx.Commit()
}

// Event loads an event instance by id.
func (db *DB) Event(ctx context.Context, id string) (realm.EventInstance, error) {
	var row eventRow
	err := db.conn.GetContext(ctx, &row, "SELECT "+eventColumns+" FROM event_instances WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return realm.EventInstance{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return realm.EventInstance{}, fmt.Errorf("load event %s: %w", id, err)
	}
	return row.instance(), nil
}

// UnresolvedEvents lists a province's open events, oldest first.
func (db *DB) UnresolvedEvents(ctx context.Context, provinceID string) ([]realm.EventInstance, error) {
	var rows []eventRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT "+eventColumns+" FROM event_instances WHERE province_id = ? AND resolved = 0 ORDER BY triggered_at",
		provinceID,
	); err != nil {
		return nil, fmt.Errorf("list events %s: %w", provinceID, err)
	}
	out := make([]realm.EventInstance, len(rows))
	for i, r := range rows {
		out[i] = r.instance()
	}
	return out, nil
}

// ResolveEvent closes an open event with a choice and applies delta to the
// event's province in the same transaction. A delta that would drive any
// stock negative leaves the event open and returns ErrInsufficientResources.
func (db *DB) ResolveEvent(ctx context.Context, id, choiceID, message string, delta realm.Resources, now time.Time) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var provinceID string
	err = tx.GetContext(ctx, &provinceID, "SELECT province_id FROM event_instances WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load event %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE event_instances
		SET resolved = 1, resolved_at = ?, choice_id = ?, message = ?
		WHERE id = ? AND resolved = 0`,
		toMillis(now), choiceID, message, id,
	)
	if err != nil {
		return fmt.Errorf("resolve event %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrAlreadyResolved)
	}
	if err := applyDelta(ctx, tx, provinceID, delta); err != nil {
		return err
	}
	return tx.Commit()
}

// ExpireEvents resolves every open event past its expiry with choiceID.
func (db *DB) ExpireEvents(ctx context.Context, now time.Time, choiceID string) (int, error) {
	ms := toMillis(now)
	res, err := db.conn.ExecContext(ctx, `UPDATE event_instances
		SET resolved = 1, resolved_at = ?, choice_id = ?
		WHERE resolved = 0 AND expires_at > 0 AND expires_at <= ?`,
		ms, choiceID, ms,
	)
	if err != nil {
		return 0, fmt.Errorf("expire events: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeResolvedEvents deletes events resolved before cutoff. When archive is
// non-nil it receives the rows first; an archive error aborts the purge.
func (db *DB) PurgeResolvedEvents(ctx context.Context, cutoff time.Time, archive func([]realm.EventInstance) error) (int, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ms := toMillis(cutoff)
	var rows []eventRow
	if err := tx.SelectContext(ctx, &rows,
		"SELECT "+eventColumns+" FROM event_instances WHERE resolved = 1 AND resolved_at < ? ORDER BY resolved_at",
		ms,
	); err != nil {
		return 0, fmt.Errorf("select purgeable events: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if archive != nil {
		batch := make([]realm.EventInstance, len(rows))
		for i, r := range rows {
			batch[i] = r.instance()
		}
		if err := archive(batch); err != nil {
			return 0, fmt.Errorf("archive events: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM event_instances WHERE resolved = 1 AND resolved_at < ?", ms)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM raid_events WHERE resolved = 1 AND resolved_at < ?", ms); err != nil {
		return 0, fmt.Errorf("delete raids: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// CountUnresolvedEvents counts a province's open events.
func (db *DB) CountUnresolvedEvents(ctx context.Context, provinceID string) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM event_instances WHERE province_id = ? AND resolved = 0", provinceID)
	return n, err
}

// CountEventsSince counts events triggered strictly after cutoff.
func (db *DB) CountEventsSince(ctx context.Context, provinceID string, cutoff time.Time) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM event_instances WHERE province_id = ? AND triggered_at > ?",
		provinceID, toMillis(cutoff))
	return n, err
}

// CreateRaid inserts a raid unless the province already has an open one.
func (db *DB) CreateRaid(ctx context.Context, r realm.Raid) error {
	res, err := db.conn.ExecContext(ctx, "INSERT INTO raid_events ("+raidColumns+`)
		SELECT ?, ?, ?, ?, ?, 0, 0, '', '', ''
		WHERE NOT EXISTS (SELECT 1 FROM raid_events WHERE province_id = ? AND resolved = 0)`,
		r.ID, r.ProvinceID, r.EnemyID, toMillis(r.TriggeredAt), toMillis(r.ArrivesAt), r.ProvinceID,
	)
	if err != nil {
		return fmt.Errorf("insert raid %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("raid for %s: %w", r.ProvinceID, ErrConcurrencyLimit)
	}
	return nil
}

// Raid loads a raid by id.
func (db *DB) Raid(ctx context.Context, id string) (realm.Raid, error) {
	var row raidRow
	err := db.conn.GetContext(ctx, &row, "SELECT "+raidColumns+" FROM raid_events WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return realm.Raid{}, fmt.Errorf("raid %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return realm.Raid{}, fmt.Errorf("load raid %s: %w", id, err)
	}
	return row.raid(), nil
}

// DueRaids lists open raids that have arrived by now.
func (db *DB) DueRaids(ctx context.Context, now time.Time) ([]realm.Raid, error) {
	var rows []raidRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT "+raidColumns+" FROM raid_events WHERE resolved = 0 AND arrives_at <= ? ORDER BY arrives_at",
		toMillis(now),
	); err != nil {
		return nil, fmt.Errorf("list due raids: %w", err)
	}
	out := make([]realm.Raid, len(rows))
	for i, r := range rows {
		out[i] = r.raid()
	}
	return out, nil
}

// SettleRaid closes an open raid and applies its consequences in one
// transaction: gains, losses drained at zero, threat, governor deltas, and
// the morale effect. A province without a governor skips the governor
// update. When any step fails nothing is written and the raid stays open.
func (db *DB) SettleRaid(ctx context.Context, id string, s realm.RaidSettlement) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var provinceID string
	err = tx.GetContext(ctx, &provinceID, "SELECT province_id FROM raid_events WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("raid %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load raid %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE raid_events
		SET resolved = 1, resolved_at = ?, outcome = ?, narrative = ?, report_json = ?
		WHERE id = ? AND resolved = 0`,
		toMillis(s.ResolvedAt), s.Outcome, s.Narrative, s.Report, id,
	)
	if err != nil {
		return fmt.Errorf("resolve raid %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("raid %s: %w", id, ErrAlreadyResolved)
	}

	if err := drain(ctx, tx, provinceID, s.Gained, s.Lost); err != nil {
		return err
	}
	if s.ThreatDelta != 0 {
		if err := adjustThreat(ctx, tx, provinceID, s.ThreatDelta); err != nil {
			return err
		}
	}
	if s.GovernorXP != 0 || s.GovernorLoyalty != 0 {
		if _, err := updateGovernor(ctx, tx, provinceID, s.GovernorXP, s.GovernorLoyalty); err != nil {
			return err
		}
	}
	if s.Morale != nil {
		if err := addEffect(ctx, tx, provinceID, *s.Morale); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountUnresolvedRaids counts a province's open raids.
func (db *DB) CountUnresolvedRaids(ctx context.Context, provinceID string) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM raid_events WHERE province_id = ? AND resolved = 0", provinceID)
	return n, err
}

// CountRaidsSince counts raids triggered strictly after cutoff.
func (db *DB) CountRaidsSince(ctx context.Context, provinceID string, cutoff time.Time) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM raid_events WHERE province_id = ? AND triggered_at > ?",
		provinceID, toMillis(cutoff))
	return n, err
}
