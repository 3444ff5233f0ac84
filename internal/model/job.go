package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// WorkMode is the three-valued classification of a job's remote-work policy.
type WorkMode string

const (
	WorkModeRemote    WorkMode = "Remote"
	WorkModeHybrid    WorkMode = "Hybrid"
	WorkModeNotRemote WorkMode = "Not Remote"
)

// ParseWorkMode maps a free-text work-mode value to the enum. Matching is
// case-insensitive and ignores spaces, hyphens, and underscores; anything
// unrecognized is an error, never a silent pass.
func ParseWorkMode(raw string) (WorkMode, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	switch key {
	case "remote":
		return WorkModeRemote, nil
	case "hybrid":
		return WorkModeHybrid, nil
	case "notremote":
		return WorkModeNotRemote, nil
	default:
		return "", eris.Errorf("model: unrecognized work mode %q", raw)
	}
}

// WorkModeFromRemoteFlag derives a work mode from the boolean-like "remote"
// index field. Hybrid cannot be expressed through this field; true maps to
// Remote and false to Not Remote.
func WorkModeFromRemoteFlag(raw string) (WorkMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "1", "yes", "y":
		return WorkModeRemote, nil
	case "false", "f", "0", "no", "n":
		return WorkModeNotRemote, nil
	default:
		return "", eris.Errorf("model: unrecognized remote flag %q", raw)
	}
}

// JobRecord is the database side of a job posting, treated as the source of
// truth for every comparison. The verifier never mutates it.
type JobRecord struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	CompanyName string    `json:"company_name"`
	CityName    string    `json:"city_name"`
	StateName   string    `json:"state_name"`
	WorkMode    WorkMode  `json:"work_mode"`
	AISkills    []string  `json:"ai_skills"`
	JobLink     string    `json:"job_link"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// IndexRecord is the search-index side of the same job. Work mode may live
// under either of two index fields; both raw values are carried with
// presence flags so the comparator, not the transport, decides which one
// applies and can flag malformed values.
type IndexRecord struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	CompanyName string   `json:"company_name"`
	CityName    string   `json:"city_name"`
	StateName   string   `json:"state_name"`
	WorkMode    string   `json:"workmode,omitempty"`
	Remote      string   `json:"remote,omitempty"`
	HasWorkMode bool     `json:"has_workmode"`
	HasRemote   bool     `json:"has_remote"`
	AISkills    []string `json:"ai_skills"`
	JobLink     string   `json:"job_link"`
}
