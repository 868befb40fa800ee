package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/bloodbank/internal/model"
)

// ApplyDelta adds delta units to the stock of a blood group and returns the
// balance before and after. A deposit creates the record on first use. A
// withdrawal larger than the current balance (zero when no record exists)
// fails with an insufficient stock error and leaves the row untouched.
//
// Each branch is a single conditional statement, so concurrent deltas on the
// same group compose without lost updates.
func ApplyDelta(ctx context.Context, q Querier, bloodGroup string, delta int, actor model.Actor, now time.Time) (model.Balance, error) {
	if !model.ValidBloodGroup(bloodGroup) {
		return model.Balance{}, model.Validationf("invalid blood group %q", bloodGroup)
	}
	if delta == 0 {
		return model.Balance{}, model.Validationf("delta must be non-zero")
	}

	var newUnits int
	var err error
	if delta > 0 {
		err = q.QueryRowContext(ctx,
			`INSERT INTO blood_stock (blood_group, units, last_updated, updated_by) VALUES (?, ?, ?, ?)
			 ON CONFLICT (blood_group) DO UPDATE SET
			     units = units + excluded.units,
			     last_updated = excluded.last_updated,
			     updated_by = excluded.updated_by
			 RETURNING units`,
			bloodGroup, delta, now, actor.Label(),
		).Scan(&newUnits)
	} else {
		err = q.QueryRowContext(ctx,
			`UPDATE blood_stock SET units = units + ?, last_updated = ?, updated_by = ?
			 WHERE blood_group = ? AND units + ? >= 0
			 RETURNING units`,
			delta, now, actor.Label(), bloodGroup, delta,
		).Scan(&newUnits)
		if err == sql.ErrNoRows {
			available, err := GetUnits(ctx, q, bloodGroup)
			if err != nil {
				return model.Balance{}, err
			}
			return model.Balance{}, model.InsufficientStock(bloodGroup, -delta, available)
		}
	}
	if err != nil {
		return model.Balance{}, fmt.Errorf("applying stock delta: %w", err)
	}

	return model.Balance{PreviousUnits: newUnits - delta, NewUnits: newUnits}, nil
}

// GetUnits returns the current units of a blood group, zero if it has no record.
func GetUnits(ctx context.Context, q Querier, bloodGroup string) (int, error) {
	var units int
	err := q.QueryRowContext(ctx,
		`SELECT units FROM blood_stock WHERE blood_group = ?`, bloodGroup,
	).Scan(&units)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting stock units: %w", err)
	}
	return units, nil
}

// ListStock returns a record for every blood group in display order.
// Groups that were never written are reported with zero units.
func ListStock(ctx context.Context, q Querier) ([]model.StockRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT blood_group, units, last_updated, updated_by FROM blood_stock`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	defer rows.Close()

	found := make(map[string]model.StockRecord)
	for rows.Next() {
		var rec model.StockRecord
		var updatedBy sql.NullString
		if err := rows.Scan(&rec.BloodGroup, &rec.Units, &rec.LastUpdated, &updatedBy); err != nil {
			return nil, fmt.Errorf("scanning stock: %w", err)
		}
		rec.UpdatedBy = updatedBy.String
		found[rec.BloodGroup] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}

	records := make([]model.StockRecord, 0, len(model.BloodGroups))
	for _, g := range model.BloodGroups {
		rec, ok := found[g]
		if !ok {
			rec = model.StockRecord{BloodGroup: g}
		}
		records = append(records, rec)
	}
	return records, nil
}

// StockSnapshot returns units keyed by blood group, with all eight groups present.
func StockSnapshot(ctx context.Context, q Querier) (map[string]int, error) {
	records, err := ListStock(ctx, q)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[string]int, len(records))
	for _, rec := range records {
		snapshot[rec.BloodGroup] = rec.Units
	}
	return snapshot, nil
}
