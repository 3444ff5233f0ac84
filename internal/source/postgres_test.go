package source

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

// newMockPostgresSource creates a PostgresSource backed by pgxmock for unit testing.
func newMockPostgresSource(t *testing.T) (*PostgresSource, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgres(mock), mock
}

func TestPostgresSource_CountCandidates(t *testing.T) {
	s, mock := newMockPostgresSource(t)
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs WHERE modified_at >= \$1`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	n, err := s.CountCandidates(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ListCandidates(t *testing.T) {
	s, mock := newMockPostgresSource(t)
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	modified := since.Add(3 * time.Hour)

	title := "Data Engineer"
	company := "Acme Corp"
	city := "Austin"
	state := "Texas"
	workmode := "Hybrid"
	link := "https://jobs.example.com/4821"

	rows := pgxmock.NewRows([]string{
		"id", "title", "company_name", "city_name", "state_name",
		"workmode", "ai_skills", "job_link", "modified_at",
	}).
		AddRow(int64(4821), &title, &company, &city, &state, &workmode,
			[]string{"Java", "Spring"}, &link, modified).
		AddRow(int64(4822), nil, nil, nil, nil, nil, nil, nil, modified)

	mock.ExpectQuery(`SELECT id, title, company_name, city_name, state_name, workmode, ai_skills, job_link, modified_at`).
		WithArgs(since, 100).
		WillReturnRows(rows)

	jobs, err := s.ListCandidates(context.Background(), since, 100)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, model.JobRecord{
		ID:          4821,
		Title:       "Data Engineer",
		CompanyName: "Acme Corp",
		CityName:    "Austin",
		StateName:   "Texas",
		WorkMode:    model.WorkModeHybrid,
		AISkills:    []string{"Java", "Spring"},
		JobLink:     "https://jobs.example.com/4821",
		ModifiedAt:  modified,
	}, jobs[0])

	// NULL columns land as zero values, never a scan failure.
	assert.Equal(t, int64(4822), jobs[1].ID)
	assert.Empty(t, jobs[1].Title)
	assert.Empty(t, string(jobs[1].WorkMode))
	assert.Nil(t, jobs[1].AISkills)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ListCandidates_QueryError(t *testing.T) {
	s, mock := newMockPostgresSource(t)
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, title, company_name`).
		WithArgs(since, 10).
		WillReturnError(assert.AnError)

	_, err := s.ListCandidates(context.Background(), since, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list candidates")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_CountCandidates_Error(t *testing.T) {
	s, mock := newMockPostgresSource(t)
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs`).
		WithArgs(since).
		WillReturnError(assert.AnError)

	_, err := s.CountCandidates(context.Background(), since)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count candidates")
	assert.NoError(t, mock.ExpectationsWereMet())
}
