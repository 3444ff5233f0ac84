package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jobsnprofiles/synccheck/internal/db"
	"github.com/jobsnprofiles/synccheck/internal/model"
)

// PostgresSource reads verification candidates from the jobs database.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgres wraps an existing connection pool. The caller owns the pool's
// lifecycle.
func NewPostgres(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) CountCandidates(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE modified_at >= $1`, since,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count candidates")
	}
	return n, nil
}

func (s *PostgresSource) ListCandidates(ctx context.Context, since time.Time, limit int) ([]model.JobRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, company_name, city_name, state_name, workmode, ai_skills, job_link, modified_at
		FROM jobs
		WHERE modified_at >= $1
		ORDER BY id
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()

	var jobs []model.JobRecord
	for rows.Next() {
		var j model.JobRecord
		var title, company, city, state, workmode, link *string
		var skills []string
		if err := rows.Scan(&j.ID, &title, &company, &city, &state, &workmode, &skills, &link, &j.ModifiedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		if title != nil {
			j.Title = *title
		}
		if company != nil {
			j.CompanyName = *company
		}
		if city != nil {
			j.CityName = *city
		}
		if state != nil {
			j.StateName = *state
		}
		if workmode != nil {
			j.WorkMode = model.WorkMode(*workmode)
		}
		if link != nil {
			j.JobLink = *link
		}
		j.AISkills = skills
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate candidates")
	}
	return jobs, nil
}
