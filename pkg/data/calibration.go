package data

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/ieco-lab/scarifSDM/pkg/scale"
)

const (
	insertCalibrationSQL = `INSERT INTO calibration (thresh, c2) VALUES (?, ?)
		ON CONFLICT(thresh) DO UPDATE SET c2 = excluded.c2
	`

	selectCalibrationSQL = `SELECT thresh, c2 FROM calibration ORDER BY thresh`
)

// SaveCalibration upserts the exponential calibration rows in one
// transaction.
func SaveCalibration(db *sql.DB, rows []scale.Row) error {
	if db == nil {
		return errDBNotInitialized
	}
	if len(rows) == 0 {
		return errors.New("calibration rows are required")
	}

	stmt, err := db.Prepare(insertCalibrationSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare calibration insert statement")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	for _, r := range rows {
		if _, err = tx.Stmt(stmt).Exec(r.Threshold, r.C2); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to insert calibration row: %f", r.Threshold)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// GetCalibration loads the stored calibration rows into a lookup table
// with the given out-of-range policy.
func GetCalibration(db *sql.DB, clamp bool) (*scale.Table, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectCalibrationSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare calibration select statement")
	}

	rows, err := stmt.Query()
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute calibration select statement")
	}
	defer rows.Close()

	list := make([]scale.Row, 0)
	for rows.Next() {
		var r scale.Row
		if err := rows.Scan(&r.Threshold, &r.C2); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, r)
	}

	if len(list) == 0 {
		return nil, errors.New("calibration table not loaded, run: scarif import calibration")
	}

	return scale.NewTable(list, clamp)
}
