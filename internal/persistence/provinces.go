package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/idle-empire/internal/realm"
)

type provinceRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	CityID    string `db:"city_id"`
	Name      string `db:"name"`
	Level     int    `db:"level"`
	Threat    int    `db:"threat"`
	Terrain   string `db:"terrain"`
	CreatedAt int64  `db:"created_at"`
}

type resourceRow struct {
	ProvinceID string `db:"province_id"`
	Type       string `db:"type"`
	Amount     int    `db:"amount"`
}

type effectRow struct {
	Kind      string  `db:"kind"`
	Magnitude float64 `db:"magnitude"`
	ExpiresAt int64   `db:"expires_at"`
}

// CreateProvince inserts a province with its buildings, stock, and governor.
func (db *DB) CreateProvince(ctx context.Context, p *realm.Province, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO provinces
		(id, user_id, city_id, name, level, threat, terrain, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.CityID, p.Name, p.Level, p.Threat, p.Terrain, toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("insert province %s: %w", p.ID, err)
	}

	for _, b := range p.Buildings {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO buildings (province_id, type, level) VALUES (?, ?, ?)",
			p.ID, b.Type, b.Level,
		); err != nil {
			return fmt.Errorf("insert building %s/%s: %w", p.ID, b.Type, err)
		}
	}

	for r, amt := range p.Resources {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO resources (province_id, type, amount) VALUES (?, ?, ?)",
			p.ID, r, amt,
		); err != nil {
			return fmt.Errorf("insert resource %s/%s: %w", p.ID, r, err)
		}
	}

	if g := p.Governor; g != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO governors (province_id, name, personality, loyalty, experience) VALUES (?, ?, ?, ?, ?)",
			p.ID, g.Name, g.Personality, g.Loyalty, g.Experience,
		); err != nil {
			return fmt.Errorf("insert governor %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// CountProvinces returns the number of provinces.
func (db *DB) CountProvinces(ctx context.Context) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM provinces")
	return n, err
}

// ProvinceIDs lists province ids, optionally scoped to one user.
func (db *DB) ProvinceIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	var err error
	if userID == "" {
		err = db.conn.SelectContext(ctx, &ids, "SELECT id FROM provinces ORDER BY id")
	} else {
		err = db.conn.SelectContext(ctx, &ids, "SELECT id FROM provinces WHERE user_id = ? ORDER BY id", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list provinces: %w", err)
	}
	return ids, nil
}

// GovernedProvinceIDs lists provinces that have a governor.
func (db *DB) GovernedProvinceIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := db.conn.SelectContext(ctx, &ids,
		"SELECT p.id FROM provinces p JOIN governors g ON g.province_id = p.id ORDER BY p.id")
	if err != nil {
		return nil, fmt.Errorf("list governed provinces: %w", err)
	}
	return ids, nil
}

// Province loads a full province snapshot.
func (db *DB) Province(ctx context.Context, id string) (*realm.Province, error) {
	var row provinceRow
	err := db.conn.GetContext(ctx, &row, "SELECT * FROM provinces WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("province %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load province %s: %w", id, err)
	}

	p := &realm.Province{
		ID:        row.ID,
		UserID:    row.UserID,
		CityID:    row.CityID,
		Name:      row.Name,
		Level:     row.Level,
		Threat:    row.Threat,
		Terrain:   row.Terrain,
		Resources: realm.Resources{},
	}

	if err := db.conn.SelectContext(ctx, &p.Buildings,
		"SELECT type, level FROM buildings WHERE province_id = ? ORDER BY type", id,
	); err != nil {
		return nil, fmt.Errorf("load buildings %s: %w", id, err)
	}

	var res []resourceRow
	if err := db.conn.SelectContext(ctx, &res,
		"SELECT province_id, type, amount FROM resources WHERE province_id = ?", id,
	); err != nil {
		return nil, fmt.Errorf("load resources %s: %w", id, err)
	}
	for _, r := range res {
		p.Resources[realm.ResourceType(r.Type)] = r.Amount
	}

	var g realm.Governor
	err = db.conn.GetContext(ctx, &g,
		"SELECT name, personality, loyalty, experience FROM governors WHERE province_id = ?", id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load governor %s: %w", id, err)
	default:
		p.Governor = &g
	}

	var effects []effectRow
	if err := db.conn.SelectContext(ctx, &effects,
		"SELECT kind, magnitude, expires_at FROM temporary_effects WHERE province_id = ? ORDER BY id", id,
	); err != nil {
		return nil, fmt.Errorf("load effects %s: %w", id, err)
	}
	for _, e := range effects {
		p.Effects = append(p.Effects, realm.Effect{
			Kind:      realm.EffectKind(e.Kind),
			Magnitude: e.Magnitude,
			ExpiresAt: fromMillis(e.ExpiresAt),
		})
	}

	if err := db.conn.SelectContext(ctx, &p.PendingConstruction,
		"SELECT building_type FROM construction_tasks WHERE province_id = ? AND state = ? ORDER BY building_type",
		id, realm.TaskPending,
	); err != nil {
		return nil, fmt.Errorf("load pending construction %s: %w", id, err)
	}

	return p, nil
}

// Empire loads the aggregate snapshot of every province in a city. Stocks
// are ordered by province id, which fixes the greedy deduction order.
func (db *DB) Empire(ctx context.Context, cityID string) (*realm.Empire, error) {
	var ids []string
	if err := db.conn.SelectContext(ctx, &ids,
		"SELECT id FROM provinces WHERE city_id = ? ORDER BY id", cityID,
	); err != nil {
		return nil, fmt.Errorf("list city %s: %w", cityID, err)
	}

	var res []resourceRow
	if err := db.conn.SelectContext(ctx, &res, `SELECT r.province_id, r.type, r.amount
		FROM resources r JOIN provinces p ON p.id = r.province_id
		WHERE p.city_id = ?`, cityID,
	); err != nil {
		return nil, fmt.Errorf("load city %s resources: %w", cityID, err)
	}
	byProvince := make(map[string]realm.Resources, len(ids))
	for _, r := range res {
		if byProvince[r.ProvinceID] == nil {
			byProvince[r.ProvinceID] = realm.Resources{}
		}
		byProvince[r.ProvinceID][realm.ResourceType(r.Type)] = r.Amount
	}

	stocks := make([]realm.ProvinceStock, 0, len(ids))
	for _, id := range ids {
		stock := byProvince[id]
		if stock == nil {
			stock = realm.Resources{}
		}
		stocks = append(stocks, realm.ProvinceStock{ProvinceID: id, Resources: stock})
	}
	e := realm.NewEmpire(cityID, stocks)

	if err := db.conn.SelectContext(ctx, &e.Researched,
		"SELECT technology_id FROM researched_technologies WHERE city_id = ? ORDER BY technology_id", cityID,
	); err != nil {
		return nil, fmt.Errorf("load city %s research: %w", cityID, err)
	}
	if err := db.conn.SelectContext(ctx, &e.PendingResearch,
		"SELECT technology_id FROM research_tasks WHERE city_id = ? AND state = ? ORDER BY technology_id",
		cityID, realm.TaskPending,
	); err != nil {
		return nil, fmt.Errorf("load city %s pending research: %w", cityID, err)
	}
	return e, nil
}

// ApplyResources adds delta to a province's stock in one transaction. If any
// resource would go negative nothing changes and ErrInsufficientResources
// is returned.
func (db *DB) ApplyResources(ctx context.Context, provinceID string, delta realm.Resources) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyDelta(ctx, tx, provinceID, delta); err != nil {
		return err
	}
	return tx.Commit()
}

func applyDelta(ctx context.Context, tx *sqlx.Tx, provinceID string, delta realm.Resources) error {
	for _, r := range realm.AllResourceTypes() {
		d := delta[r]
		switch {
		case d < 0:
			if err := spend(ctx, tx, provinceID, r, -d); err != nil {
				return err
			}
		case d > 0:
			if err := grant(ctx, tx, provinceID, r, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// spend decrements a stock only when it covers amount.
func spend(ctx context.Context, tx *sqlx.Tx, provinceID string, r realm.ResourceType, amount int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE resources SET amount = amount - ? WHERE province_id = ? AND type = ? AND amount >= ?",
		amount, provinceID, r, amount,
	)
	if err != nil {
		return fmt.Errorf("spend %s %s: %w", provinceID, r, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("province %s needs %d %s: %w", provinceID, amount, r, realm.ErrInsufficientResources)
	}
	return nil
}

func grant(ctx context.Context, tx *sqlx.Tx, provinceID string, r realm.ResourceType, amount int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO resources (province_id, type, amount) VALUES (?, ?, ?)
		ON CONFLICT (province_id, type) DO UPDATE SET amount = amount + excluded.amount`,
		provinceID, r, amount,
	)
	if err != nil {
		return fmt.Errorf("grant %s %s: %w", provinceID, r, err)
	}
	return nil
}

// drain grants gains and drains losses clamped at zero. Raiders take what
// is there.
func drain(ctx context.Context, tx *sqlx.Tx, provinceID string, gained, lost realm.Resources) error {
	for _, r := range realm.AllResourceTypes() {
		if amt := gained[r]; amt > 0 {
			if err := grant(ctx, tx, provinceID, r, amt); err != nil {
				return err
			}
		}
		if amt := lost[r]; amt > 0 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE resources SET amount = MAX(0, amount - ?) WHERE province_id = ? AND type = ?",
				amt, provinceID, r,
			); err != nil {
				return fmt.Errorf("drain %s %s: %w", provinceID, r, err)
			}
		}
	}
	return nil
}

// UpdateGovernor adds xp and loyalty deltas; loyalty is clamped to [0,100].
func (db *DB) UpdateGovernor(ctx context.Context, provinceID string, xpDelta, loyaltyDelta int) error {
	n, err := updateGovernor(ctx, db.conn, provinceID, xpDelta, loyaltyDelta)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("governor of %s: %w", provinceID, ErrNotFound)
	}
	return nil
}

func updateGovernor(ctx context.Context, ex sqlx.ExecerContext, provinceID string, xpDelta, loyaltyDelta int) (int64, error) {
	res, err := ex.ExecContext(ctx, `UPDATE governors SET
		experience = MAX(0, experience + ?),
		loyalty = MIN(100, MAX(0, loyalty + ?))
		WHERE province_id = ?`,
		xpDelta, loyaltyDelta, provinceID,
	)
	if err != nil {
		return 0, fmt.Errorf("update governor %s: %w", provinceID, err)
	}
	return res.RowsAffected()
}

// adjustThreat adds delta to a province's threat, never below zero.
func adjustThreat(ctx context.Context, ex sqlx.ExecerContext, provinceID string, delta int) error {
	_, err := ex.ExecContext(ctx,
		"UPDATE provinces SET threat = MAX(0, threat + ?) WHERE id = ?", delta, provinceID)
	if err != nil {
		return fmt.Errorf("adjust threat %s: %w", provinceID, err)
	}
	return nil
}

// AddEffect attaches a temporary effect to a province.
func (db *DB) AddEffect(ctx context.Context, provinceID string, e realm.Effect) error {
	return addEffect(ctx, db.conn, provinceID, e)
}

func addEffect(ctx context.Context, ex sqlx.ExecerContext, provinceID string, e realm.Effect) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO temporary_effects (province_id, kind, magnitude, expires_at) VALUES (?, ?, ?, ?)",
		provinceID, e.Kind, e.Magnitude, toMillis(e.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("add effect %s: %w", provinceID, err)
	}
	return nil
}

// PurgeExpiredEffects deletes effects that expired at or before now.
func (db *DB) PurgeExpiredEffects(ctx context.Context, now time.Time) (int, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM temporary_effects WHERE expires_at <= ?", toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("purge effects: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
