package data

import (
	"database/sql"

	"github.com/pkg/errors"
)

const (
	insertThresholdSQL = `INSERT INTO threshold (model, name, value) VALUES (?, ?, ?)
		ON CONFLICT(model, name) DO UPDATE SET value = excluded.value
	`

	selectThresholdSQL = `SELECT value FROM threshold WHERE model = ? AND name = ?`

	selectThresholdsSQL = `SELECT model, name, value FROM threshold ORDER BY model, name`
)

// ErrThresholdNotFound is returned when a named threshold record does not
// exist for a model.
var ErrThresholdNotFound = errors.New("threshold not found")

// Threshold is a named MTSS decision boundary on the raw suitability
// scale, one per model variant per time period.
type Threshold struct {
	Model string  `json:"model"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// SaveThresholds upserts threshold records in one transaction.
func SaveThresholds(db *sql.DB, list []*Threshold) error {
	if db == nil {
		return errDBNotInitialized
	}

	stmt, err := db.Prepare(insertThresholdSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare threshold insert statement")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	for _, t := range list {
		if _, err = tx.Stmt(stmt).Exec(t.Model, t.Name, t.Value); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to insert threshold: %s/%s", t.Model, t.Name)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// GetThreshold resolves a named threshold value for a model.
func GetThreshold(db *sql.DB, model, name string) (float64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if model == "" || name == "" {
		return 0, errors.New("model and name are required")
	}

	stmt, err := db.Prepare(selectThresholdSQL)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare threshold select statement")
	}

	var v float64
	if err := stmt.QueryRow(model, name).Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.Wrapf(ErrThresholdNotFound, "%s/%s", model, name)
		}
		return 0, errors.Wrap(err, "failed to scan row")
	}

	return v, nil
}

// ListThresholds returns all threshold records ordered by model and name.
func ListThresholds(db *sql.DB) ([]*Threshold, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectThresholdsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare threshold list statement")
	}

	rows, err := stmt.Query()
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute threshold list statement")
	}
	defer rows.Close()

	list := make([]*Threshold, 0)
	for rows.Next() {
		t := &Threshold{}
		if err := rows.Scan(&t.Model, &t.Name, &t.Value); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, t)
	}

	return list, nil
}
