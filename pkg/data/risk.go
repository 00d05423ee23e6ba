package data

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/ieco-lab/scarifSDM/pkg/risk"
)

const (
	deleteRiskSQL = `DELETE FROM risk WHERE dataset = ? AND snapshot = ?`

	insertRiskSQL = `INSERT INTO risk (dataset, sample_id, snapshot, x_score, y_score, category)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectCategoryCountsSQL = `SELECT snapshot, category, COUNT(*)
		FROM risk
		WHERE dataset = ?
		GROUP BY snapshot, category
		ORDER BY snapshot, category
	`

	selectRiskPairsSQL = `SELECT
			h.sample_id,
			h.x_score, h.y_score,
			f.x_score, f.y_score
		FROM risk h
		JOIN risk f ON h.dataset = f.dataset AND h.sample_id = f.sample_id
		WHERE h.dataset = ?
		AND h.snapshot = ?
		AND f.snapshot = ?
		ORDER BY h.sample_id
	`

	selectRiskRowsSQL = `SELECT sample_id, snapshot, x_score, y_score, category
		FROM risk
		WHERE dataset = ?
		ORDER BY snapshot, sample_id
	`
)

// RiskRow is the pipeline output for one sample in one snapshot: both
// rescaled scores and the assigned quadrant.
type RiskRow struct {
	SampleID string        `json:"sample_id"`
	Snapshot string        `json:"snapshot"`
	XScore   float64       `json:"x_score"`
	YScore   float64       `json:"y_score"`
	Category risk.Category `json:"category"`
}

// RiskPair couples a sample's rescaled coordinates in two snapshots,
// the input to the threshold-crossing filter.
type RiskPair struct {
	SampleID string  `json:"sample_id"`
	HX       float64 `json:"hx"`
	HY       float64 `json:"hy"`
	FX       float64 `json:"fx"`
	FY       float64 `json:"fy"`
}

// CategoryCount is a per-snapshot tally for one risk category.
type CategoryCount struct {
	Snapshot string        `json:"snapshot"`
	Category risk.Category `json:"category"`
	Count    int           `json:"count"`
}

// SaveRisk replaces the risk rows of one dataset snapshot. Delete and
// insert run in the same transaction so re-runs are deterministic.
func SaveRisk(db *sql.DB, dataset, snapshot string, rows []*RiskRow) error {
	if db == nil {
		return errDBNotInitialized
	}
	if dataset == "" || snapshot == "" {
		return errors.New("dataset and snapshot are required")
	}

	stmt, err := db.Prepare(insertRiskSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare risk insert statement")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if _, err = tx.Exec(deleteRiskSQL, dataset, snapshot); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(rbErr, "failed to rollback transaction")
		}
		return errors.Wrapf(err, "failed to clear risk rows: %s/%s", dataset, snapshot)
	}

	for _, r := range rows {
		if _, err = tx.Stmt(stmt).Exec(dataset, r.SampleID, snapshot, r.XScore, r.YScore, string(r.Category)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to insert risk row: %s", r.SampleID)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// GetCategoryCounts tallies risk categories per snapshot for a dataset.
func GetCategoryCounts(db *sql.DB, dataset string) ([]*CategoryCount, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectCategoryCountsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare category count statement")
	}

	rows, err := stmt.Query(dataset)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute category count statement")
	}
	defer rows.Close()

	list := make([]*CategoryCount, 0)
	for rows.Next() {
		c := &CategoryCount{}
		if err := rows.Scan(&c.Snapshot, &c.Category, &c.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, c)
	}

	return list, nil
}

// GetRiskPairs joins a dataset's rescaled coordinates across two
// snapshots per sample.
func GetRiskPairs(db *sql.DB, dataset, fromSnapshot, toSnapshot string) ([]*RiskPair, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectRiskPairsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare risk pair statement")
	}

	rows, err := stmt.Query(dataset, fromSnapshot, toSnapshot)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute risk pair statement")
	}
	defer rows.Close()

	list := make([]*RiskPair, 0)
	for rows.Next() {
		p := &RiskPair{}
		if err := rows.Scan(&p.SampleID, &p.HX, &p.HY, &p.FX, &p.FY); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, p)
	}

	return list, nil
}

// GetRiskRows returns all risk rows of a dataset ordered by snapshot and
// sample.
func GetRiskRows(db *sql.DB, dataset string) ([]*RiskRow, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectRiskRowsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare risk row statement")
	}

	rows, err := stmt.Query(dataset)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute risk row statement")
	}
	defer rows.Close()

	list := make([]*RiskRow, 0)
	for rows.Next() {
		r := &RiskRow{}
		if err := rows.Scan(&r.SampleID, &r.Snapshot, &r.XScore, &r.YScore, &r.Category); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, r)
	}

	return list, nil
}
