package data

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

var (
	stateQueries = map[string]string{
		"sample":      "SELECT COUNT(*) FROM sample",
		"suitability": "SELECT COUNT(*) FROM suitability",
		"threshold":   "SELECT COUNT(*) FROM threshold",
		"calibration": "SELECT COUNT(*) FROM calibration",
		"risk":        "SELECT COUNT(*) FROM risk",
		"dataset":     "SELECT COUNT(DISTINCT dataset) FROM sample",
	}

	insertImportSQL = `INSERT INTO import_log (kind, name, rows, import_date) VALUES (?, ?, ?, ?)`

	selectImportsSQL = `SELECT kind, name, rows, import_date
		FROM import_log
		ORDER BY import_date DESC
		LIMIT ?
	`
)

// ImportRecord is one entry of the ingest bookkeeping log.
type ImportRecord struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	Rows int    `json:"rows"`
	Date string `json:"date"`
}

// LogImport records a completed ingest operation.
func LogImport(db *sql.DB, kind, name string, rows int) error {
	if db == nil {
		return errDBNotInitialized
	}
	if kind == "" {
		return errors.New("kind is required")
	}

	stmt, err := db.Prepare(insertImportSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare import log statement")
	}

	date := time.Now().UTC().Format(time.RFC3339)
	if _, err = stmt.Exec(kind, name, rows, date); err != nil {
		return errors.Wrap(err, "failed to insert import log")
	}

	return nil
}

// ListImports returns the most recent ingest log entries.
func ListImports(db *sql.DB, limit int) ([]*ImportRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectImportsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare import list statement")
	}

	rows, err := stmt.Query(limit)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute import list statement")
	}
	defer rows.Close()

	list := make([]*ImportRecord, 0)
	for rows.Next() {
		r := &ImportRecord{}
		if err := rows.Scan(&r.Kind, &r.Name, &r.Rows, &r.Date); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, r)
	}

	return list, nil
}

// GetDataState returns the current row counts of the database.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64)
	for k, v := range stateQueries {
		count, err := getCount(db, v)
		if err != nil {
			return nil, errors.Wrapf(err, "error getting %s count", k)
		}
		state[k] = count
	}

	return state, nil
}

func getCount(db *sql.DB, query string) (int64, error) {
	stmt, err := db.Prepare(query)
	if err != nil {
		return 0, errors.Wrap(err, "error preparing count statement")
	}

	var count int64
	if err := stmt.QueryRow().Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to scan row")
	}

	return count, nil
}
