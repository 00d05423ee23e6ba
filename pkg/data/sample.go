package data

import (
	"database/sql"

	"github.com/pkg/errors"
)

const (
	insertSampleSQL = `INSERT INTO sample (dataset, id, x, y) VALUES (?, ?, ?, ?)
		ON CONFLICT(dataset, id) DO UPDATE SET x = excluded.x, y = excluded.y
	`

	insertSuitabilitySQL = `INSERT INTO suitability (dataset, sample_id, model, snapshot, raw)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(dataset, sample_id, model, snapshot) DO UPDATE SET raw = excluded.raw
	`

	selectSamplesSQL = `SELECT id, x, y FROM sample WHERE dataset = ? ORDER BY id`

	selectScorePairsSQL = `SELECT
			a.sample_id,
			a.raw,
			b.raw
		FROM suitability a
		JOIN suitability b ON a.dataset = b.dataset
			AND a.sample_id = b.sample_id
			AND a.snapshot = b.snapshot
		WHERE a.dataset = ?
		AND a.snapshot = ?
		AND a.model = ?
		AND b.model = ?
		ORDER BY a.sample_id
	`

	selectSnapshotsSQL = `SELECT DISTINCT snapshot FROM suitability WHERE dataset = ? ORDER BY snapshot`
)

// Sample is a single georeferenced occurrence point.
type Sample struct {
	ID string  `json:"id"`
	X  float64 `json:"x"` // longitude
	Y  float64 `json:"y"` // latitude
}

// Suitability is one raw cloglog score for a sample under one
// model/time-snapshot combination.
type Suitability struct {
	SampleID string  `json:"sample_id"`
	Model    string  `json:"model"`
	Snapshot string  `json:"snapshot"`
	Raw      float64 `json:"raw"`
}

// ScorePair couples the coarse and fine raw scores of one sample in one
// snapshot, the unit of work for the rescale/classify pipeline.
type ScorePair struct {
	SampleID string  `json:"sample_id"`
	Coarse   float64 `json:"coarse"`
	Fine     float64 `json:"fine"`
}

// SaveSamples upserts occurrence points for a dataset in one transaction.
func SaveSamples(db *sql.DB, dataset string, samples []*Sample) error {
	if db == nil {
		return errDBNotInitialized
	}
	if dataset == "" {
		return errors.New("dataset is required")
	}

	stmt, err := db.Prepare(insertSampleSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare sample insert statement")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	for _, s := range samples {
		if _, err = tx.Stmt(stmt).Exec(dataset, s.ID, s.X, s.Y); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to insert sample: %s", s.ID)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// SaveSuitability upserts raw scores for a dataset in one transaction.
func SaveSuitability(db *sql.DB, dataset string, rows []*Suitability) error {
	if db == nil {
		return errDBNotInitialized
	}
	if dataset == "" {
		return errors.New("dataset is required")
	}

	stmt, err := db.Prepare(insertSuitabilitySQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare suitability insert statement")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	for _, r := range rows {
		if _, err = tx.Stmt(stmt).Exec(dataset, r.SampleID, r.Model, r.Snapshot, r.Raw); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to insert suitability for sample: %s", r.SampleID)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// GetSamples returns all occurrence points of a dataset ordered by id.
func GetSamples(db *sql.DB, dataset string) ([]*Sample, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectSamplesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare sample select statement")
	}

	rows, err := stmt.Query(dataset)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute sample select statement")
	}
	defer rows.Close()

	list := make([]*Sample, 0)
	for rows.Next() {
		s := &Sample{}
		if err := rows.Scan(&s.ID, &s.X, &s.Y); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, s)
	}

	return list, nil
}

// GetScorePairs joins the coarse and fine model scores per sample for one
// dataset snapshot.
func GetScorePairs(db *sql.DB, dataset, snapshot, coarseModel, fineModel string) ([]*ScorePair, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectScorePairsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare score pair select statement")
	}

	rows, err := stmt.Query(dataset, snapshot, coarseModel, fineModel)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute score pair select statement")
	}
	defer rows.Close()

	list := make([]*ScorePair, 0)
	for rows.Next() {
		p := &ScorePair{}
		if err := rows.Scan(&p.SampleID, &p.Coarse, &p.Fine); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, p)
	}

	return list, nil
}

// ListSnapshots returns the distinct time snapshots present for a dataset.
func ListSnapshots(db *sql.DB, dataset string) ([]string, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stmt, err := db.Prepare(selectSnapshotsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare snapshot select statement")
	}

	rows, err := stmt.Query(dataset)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "failed to execute snapshot select statement")
	}
	defer rows.Close()

	list := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		list = append(list, s)
	}

	return list, nil
}
