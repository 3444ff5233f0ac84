package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

// fetchDocsBatch keeps IN (...) clauses under SQLite's bind-variable limit.
const fetchDocsBatch = 500

// Snapshot is a point-in-time capture of both sides of a verification run,
// stored in SQLite so the run can be replayed offline or attached to a bug
// report. It serves as both JobSource and IndexSource.
type Snapshot struct {
	db *sql.DB
}

// SnapshotMeta describes one capture: when it was taken and what it holds.
type SnapshotMeta struct {
	ID         string    `json:"id"`
	CapturedAt time.Time `json:"captured_at"`
	Since      time.Time `json:"since"`
	JobCount   int       `json:"job_count"`
	DocCount   int       `json:"doc_count"`
}

// NewSnapshot opens a snapshot database at the given path and configures WAL
// mode.
func NewSnapshot(dsn string) (*Snapshot, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "snapshot: exec %s", pragma)
		}
	}
	return &Snapshot{db: db}, nil
}

const snapshotMigration = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id          TEXT PRIMARY KEY,
	captured_at DATETIME NOT NULL,
	since       DATETIME NOT NULL,
	job_count   INTEGER NOT NULL,
	doc_count   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id           INTEGER PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	company_name TEXT NOT NULL DEFAULT '',
	city_name    TEXT NOT NULL DEFAULT '',
	state_name   TEXT NOT NULL DEFAULT '',
	workmode     TEXT NOT NULL DEFAULT '',
	ai_skills    TEXT NOT NULL DEFAULT 'null',
	job_link     TEXT NOT NULL DEFAULT '',
	modified_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_modified_at ON jobs(modified_at);

CREATE TABLE IF NOT EXISTS index_docs (
	id  INTEGER PRIMARY KEY,
	doc TEXT NOT NULL
);
`

func (s *Snapshot) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, snapshotMigration)
	return eris.Wrap(err, "snapshot: migrate")
}

func (s *Snapshot) Close() error {
	return s.db.Close()
}

// WriteMeta records the capture metadata and returns it with a fresh ID.
func (s *Snapshot) WriteMeta(ctx context.Context, since time.Time, jobCount, docCount int) (*SnapshotMeta, error) {
	meta := SnapshotMeta{
		ID:         uuid.New().String(),
		CapturedAt: time.Now().UTC(),
		Since:      since.UTC(),
		JobCount:   jobCount,
		DocCount:   docCount,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, captured_at, since, job_count, doc_count) VALUES (?, ?, ?, ?, ?)`,
		meta.ID, meta.CapturedAt, meta.Since, meta.JobCount, meta.DocCount,
	)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: write meta")
	}
	return &meta, nil
}

// Meta returns the most recent capture metadata, or nil when the snapshot is
// empty.
func (s *Snapshot) Meta(ctx context.Context) (*SnapshotMeta, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, captured_at, since, job_count, doc_count FROM snapshot_meta ORDER BY captured_at DESC LIMIT 1`)

	var m SnapshotMeta
	err := row.Scan(&m.ID, &m.CapturedAt, &m.Since, &m.JobCount, &m.DocCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: read meta")
	}
	return &m, nil
}

// WriteJobs stores the database side of a capture.
func (s *Snapshot) WriteJobs(ctx context.Context, jobs []model.JobRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "snapshot: begin jobs tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO jobs (id, title, company_name, city_name, state_name, workmode, ai_skills, job_link, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "snapshot: prepare insert job")
	}
	defer stmt.Close() //nolint:errcheck

	for _, j := range jobs {
		skillsJSON, err := json.Marshal(j.AISkills)
		if err != nil {
			return eris.Wrapf(err, "snapshot: marshal skills for job %d", j.ID)
		}
		_, err = stmt.ExecContext(ctx,
			j.ID, j.Title, j.CompanyName, j.CityName, j.StateName,
			string(j.WorkMode), string(skillsJSON), j.JobLink, j.ModifiedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "snapshot: insert job %d", j.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "snapshot: commit jobs")
}

// WriteDocs stores the index side of a capture.
func (s *Snapshot) WriteDocs(ctx context.Context, docs map[int64]model.IndexRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "snapshot: begin docs tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO index_docs (id, doc) VALUES (?, ?)`)
	if err != nil {
		return eris.Wrap(err, "snapshot: prepare insert doc")
	}
	defer stmt.Close() //nolint:errcheck

	for id, rec := range docs {
		docJSON, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "snapshot: marshal doc %d", id)
		}
		if _, err := stmt.ExecContext(ctx, id, string(docJSON)); err != nil {
			return eris.Wrapf(err, "snapshot: insert doc %d", id)
		}
	}
	return eris.Wrap(tx.Commit(), "snapshot: commit docs")
}

func (s *Snapshot) CountCandidates(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE modified_at >= ?`, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "snapshot: count candidates")
	}
	return n, nil
}

func (s *Snapshot) ListCandidates(ctx context.Context, since time.Time, limit int) ([]model.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, company_name, city_name, state_name, workmode, ai_skills, job_link, modified_at
		FROM jobs
		WHERE modified_at >= ?
		ORDER BY id
		LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: list candidates")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []model.JobRecord
	for rows.Next() {
		var j model.JobRecord
		var workmode, skillsJSON string
		if err := rows.Scan(&j.ID, &j.Title, &j.CompanyName, &j.CityName, &j.StateName, &workmode, &skillsJSON, &j.JobLink, &j.ModifiedAt); err != nil {
			return nil, eris.Wrap(err, "snapshot: scan candidate")
		}
		j.WorkMode = model.WorkMode(workmode)
		if err := json.Unmarshal([]byte(skillsJSON), &j.AISkills); err != nil {
			return nil, eris.Wrapf(err, "snapshot: unmarshal skills for job %d", j.ID)
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "snapshot: iterate candidates")
}

func (s *Snapshot) FetchDocs(ctx context.Context, ids []int64) (map[int64]model.IndexRecord, error) {
	docs := make(map[int64]model.IndexRecord, len(ids))
	for start := 0; start < len(ids); start += fetchDocsBatch {
		end := start + fetchDocsBatch
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.fetchDocsBatch(ctx, ids[start:end], docs); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *Snapshot) fetchDocsBatch(ctx context.Context, ids []int64, docs map[int64]model.IndexRecord) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc FROM index_docs WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return eris.Wrap(err, "snapshot: fetch docs")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var id int64
		var docJSON string
		if err := rows.Scan(&id, &docJSON); err != nil {
			return eris.Wrap(err, "snapshot: scan doc")
		}
		var rec model.IndexRecord
		if err := json.Unmarshal([]byte(docJSON), &rec); err != nil {
			return eris.Wrapf(err, "snapshot: unmarshal doc %d", id)
		}
		docs[id] = rec
	}
	return eris.Wrap(rows.Err(), "snapshot: iterate docs")
}
