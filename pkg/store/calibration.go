package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/openveritas/veritas/pkg/verrors"
)

// InsertCalibrationVersion records a new, inactive calibration parameter
// set. Activation is a separate step so evaluation can happen before a
// version goes live.
func (s *Store) InsertCalibrationVersion(ctx context.Context, p CalibrationParams) (int, error) {
	var version int
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO calibration_params
				(version, method, temperature, platt_a, platt_b, brier_score, ece, sample_size, active)
			VALUES (
				COALESCE((SELECT max(version) FROM calibration_params), 0) + 1,
				$1, $2, $3, $4, $5, $6, $7, false)
			RETURNING version`,
			p.Method, p.Temperature, p.PlattA, p.PlattB, p.BrierScore, p.ECE, p.SampleSize).Scan(&version)
	})
	return version, err
}

// ActivateCalibrationVersion atomically swaps the active calibration-version
// pointer within a single transaction, per the rollback requirement.
func (s *Store) ActivateCalibrationVersion(ctx context.Context, version int) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE calibration_params SET active = false WHERE active`); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE calibration_params SET active = true WHERE version = $1`, version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return verrors.Newf(verrors.InvalidInput, "calibration version %d not found", version)
		}
		return nil
	})
}

// GetCalibrationVersion fetches a specific calibration version's
// parameters, used when evaluating a candidate rollback target.
func (s *Store) GetCalibrationVersion(ctx context.Context, version int) (*CalibrationParams, error) {
	var p CalibrationParams
	err := s.pool.QueryRow(ctx, `
		SELECT version, method, temperature, platt_a, platt_b, brier_score, ece, sample_size, active, created_at
		FROM calibration_params WHERE version = $1`, version).Scan(
		&p.Version, &p.Method, &p.Temperature, &p.PlattA, &p.PlattB, &p.BrierScore, &p.ECE, &p.SampleSize, &p.Active, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ActiveCalibration returns the currently active calibration parameters.
func (s *Store) ActiveCalibration(ctx context.Context) (*CalibrationParams, error) {
	var p CalibrationParams
	err := s.pool.QueryRow(ctx, `
		SELECT version, method, temperature, platt_a, platt_b, brier_score, ece, sample_size, active, created_at
		FROM calibration_params WHERE active`).Scan(
		&p.Version, &p.Method, &p.Temperature, &p.PlattA, &p.PlattB, &p.BrierScore, &p.ECE, &p.SampleSize, &p.Active, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
