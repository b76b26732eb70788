package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/talgya/idle-empire/internal/realm"
)

type constructionRow struct {
	ID           string `db:"id"`
	ProvinceID   string `db:"province_id"`
	BuildingType string `db:"building_type"`
	FromLevel    int    `db:"from_level"`
	ToLevel      int    `db:"to_level"`
	StartedAt    int64  `db:"started_at"`
	CompletesAt  int64  `db:"completes_at"`
	State        string `db:"state"`
}

func (r constructionRow) task() realm.ConstructionTask {
	return realm.ConstructionTask{
		ID:           r.ID,
		ProvinceID:   r.ProvinceID,
		BuildingType: realm.BuildingType(r.BuildingType),
		FromLevel:    r.FromLevel,
		ToLevel:      r.ToLevel,
		StartedAt:    fromMillis(r.StartedAt),
		CompletesAt:  fromMillis(r.CompletesAt),
		State:        realm.TaskState(r.State),
	}
}

type researchRow struct {
	ID           string `db:"id"`
	CityID       string `db:"city_id"`
	ProvinceID   string `db:"province_id"`
	TechnologyID string `db:"technology_id"`
	StartedAt    int64  `db:"started_at"`
	CompletesAt  int64  `db:"completes_at"`
	State        string `db:"state"`
}

func (r researchRow) task() realm.ResearchTask {
	return realm.ResearchTask{
		ID:           r.ID,
		CityID:       r.CityID,
		ProvinceID:   r.ProvinceID,
		TechnologyID: r.TechnologyID,
		StartedAt:    fromMillis(r.StartedAt),
		CompletesAt:  fromMillis(r.CompletesAt),
		State:        realm.TaskState(r.State),
	}
}

// StartConstruction spends cost from the province and records the task in
// one transaction. Returns ErrInsufficientResources without side effects
// when the stock does not cover cost, and ErrConcurrencyLimit when the
// building already has a pending task.
func (db *DB) StartConstruction(ctx context.Context, t realm.ConstructionTask, cost realm.Resources) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyDelta(ctx, tx, t.ProvinceID, cost.Negate()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO construction_tasks
		(id, province_id, building_type, from_level, to_level, started_at, completes_at, state)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM construction_tasks
			WHERE province_id = ? AND building_type = ? AND state = ?)`,
		t.ID, t.ProvinceID, t.BuildingType, t.FromLevel, t.ToLevel,
		toMillis(t.StartedAt), toMillis(t.CompletesAt), realm.TaskPending,
		t.ProvinceID, t.BuildingType, realm.TaskPending,
	)
	if err != nil {
		return fmt.Errorf("insert construction %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("construction of %s in %s: %w", t.BuildingType, t.ProvinceID, ErrConcurrencyLimit)
	}
	return tx.Commit()
}

// StartResearch applies a per-province deduction plan and records the task
// in one transaction. Any short stock rolls the whole plan back.
func (db *DB) StartResearch(ctx context.Context, t realm.ResearchTask, plan []realm.ProvinceStock) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range plan {
		if err := applyDelta(ctx, tx, d.ProvinceID, d.Resources.Negate()); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO research_tasks
		(id, city_id, province_id, technology_id, started_at, completes_at, state)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM research_tasks WHERE city_id = ? AND technology_id = ? AND state = ?)
		AND NOT EXISTS (SELECT 1 FROM researched_technologies WHERE city_id = ? AND technology_id = ?)`,
		t.ID, t.CityID, t.ProvinceID, t.TechnologyID,
		toMillis(t.StartedAt), toMillis(t.CompletesAt), realm.TaskPending,
		t.CityID, t.TechnologyID, realm.TaskPending,
		t.CityID, t.TechnologyID,
	)
	if err != nil {
		return fmt.Errorf("insert research %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("research of %s in %s: %w", t.TechnologyID, t.CityID, ErrConcurrencyLimit)
	}
	return tx.Commit()
}

// DueConstruction lists pending construction tasks finished by now.
func (db *DB) DueConstruction(ctx context.Context, now time.Time) ([]realm.ConstructionTask, error) {
	var rows []constructionRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM construction_tasks WHERE state = ? AND completes_at <= ? ORDER BY completes_at",
		realm.TaskPending, toMillis(now),
	); err != nil {
		return nil, fmt.Errorf("list due construction: %w", err)
	}
	out := make([]realm.ConstructionTask, len(rows))
	for i, r := range rows {
		out[i] = r.task()
	}
	return out, nil
}

// CompleteConstruction raises the building to the task's target level and
// marks the task completed.
func (db *DB) CompleteConstruction(ctx context.Context, t realm.ConstructionTask) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE construction_tasks SET state = ? WHERE id = ? AND state = ?",
		realm.TaskCompleted, t.ID, realm.TaskPending)
	if err != nil {
		return fmt.Errorf("complete construction %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("construction %s: %w", t.ID, ErrAlreadyResolved)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO buildings (province_id, type, level) VALUES (?, ?, ?)
		ON CONFLICT (province_id, type) DO UPDATE SET level = MAX(level, excluded.level)`,
		t.ProvinceID, t.BuildingType, t.ToLevel,
	); err != nil {
		return fmt.Errorf("raise building %s/%s: %w", t.ProvinceID, t.BuildingType, err)
	}
	return tx.Commit()
}

// DueResearch lists pending research tasks finished by now.
func (db *DB) DueResearch(ctx context.Context, now time.Time) ([]realm.ResearchTask, error) {
	var rows []researchRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM research_tasks WHERE state = ? AND completes_at <= ? ORDER BY completes_at",
		realm.TaskPending, toMillis(now),
	); err != nil {
		return nil, fmt.Errorf("list due research: %w", err)
	}
	out := make([]realm.ResearchTask, len(rows))
	for i, r := range rows {
		out[i] = r.task()
	}
	return out, nil
}

// CompleteResearch marks the technology researched for the task's city.
func (db *DB) CompleteResearch(ctx context.Context, t realm.ResearchTask, now time.Time) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE research_tasks SET state = ? WHERE id = ? AND state = ?",
		realm.TaskCompleted, t.ID, realm.TaskPending)
	if err != nil {
		return fmt.Errorf("complete research %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("research %s: %w", t.ID, ErrAlreadyResolved)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO researched_technologies (city_id, technology_id, researched_at) VALUES (?, ?, ?)",
		t.CityID, t.TechnologyID, toMillis(now),
	); err != nil {
		return fmt.Errorf("record research %s/%s: %w", t.CityID, t.TechnologyID, err)
	}
	return tx.Commit()
}
