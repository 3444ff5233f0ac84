package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

// Database field names covered by the comparator, in execution order.
const (
	FieldTitle       = "title"
	FieldCompanyName = "company_name"
	FieldCityName    = "city_name"
	FieldStateName   = "state_name"
	FieldWorkMode    = "work_mode"
	FieldAISkills    = "ai_skills"
	FieldJobLink     = "job_link"
)

// Index-side field names that can encode work mode.
const (
	SourceFieldWorkMode = "workmode"
	SourceFieldRemote   = "remote"
)

// Check compares one field between the two sides of a job.
type Check interface {
	// Field returns the database field name this check covers.
	Field() string

	// Compare returns nil on pass or one populated mismatch on fail.
	Compare(job model.JobRecord, doc model.IndexRecord, rules Rules) *model.FieldMismatch
}

// Registry holds the enabled checks in fixed execution order. The order
// also fixes mismatch ordering inside a report entry, which the
// determinism guarantee depends on.
type Registry struct {
	rules  Rules
	checks []Check
}

// NewRegistry builds the standard check set, honoring rules.Disabled.
func NewRegistry(rules Rules) *Registry {
	all := []Check{
		titleCheck{},
		exactCheck{
			field: FieldCompanyName,
			db:    func(j model.JobRecord) string { return j.CompanyName },
			idx:   func(d model.IndexRecord) string { return d.CompanyName },
		},
		locationCheck{
			field: FieldCityName,
			db:    func(j model.JobRecord) string { return j.CityName },
			idx:   func(d model.IndexRecord) string { return d.CityName },
		},
		locationCheck{
			field: FieldStateName,
			db:    func(j model.JobRecord) string { return j.StateName },
			idx:   func(d model.IndexRecord) string { return d.StateName },
		},
		workModeCheck{},
		skillsCheck{},
		exactCheck{
			field: FieldJobLink,
			db:    func(j model.JobRecord) string { return j.JobLink },
			idx:   func(d model.IndexRecord) string { return d.JobLink },
		},
	}

	r := &Registry{rules: rules}
	for _, c := range all {
		if rules.Enabled(c.Field()) {
			r.checks = append(r.checks, c)
		}
	}
	return r
}

// Checks returns the enabled checks in execution order.
func (r *Registry) Checks() []Check { return r.checks }

// Compare runs every enabled check for one job pair, returning mismatches
// in check order.
func (r *Registry) Compare(job model.JobRecord, doc model.IndexRecord) []model.FieldMismatch {
	var out []model.FieldMismatch
	for _, c := range r.checks {
		if m := c.Compare(job, doc, r.rules); m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// MissingIndexRecord builds the failure recorded when a database job has no
// index document at all. Distinct category so triage can separate sync lag
// from field-level mismatches.
func MissingIndexRecord(job model.JobRecord) model.FieldMismatch {
	return model.FieldMismatch{
		JobID:    job.ID,
		Category: model.CategoryNotFoundInIndex,
		Message:  fmt.Sprintf("job %d not found in index", job.ID),
	}
}

// emptyVerdict applies the shared empty policy: both sides empty passes
// (no data to disagree on), one empty side is a missing-value mismatch.
// handled is false when both sides carry values and the caller compares.
func emptyVerdict(field string, job model.JobRecord, dbVal, idxVal string) (m *model.FieldMismatch, handled bool) {
	dbEmpty := IsEmpty(dbVal)
	idxEmpty := IsEmpty(idxVal)
	switch {
	case dbEmpty && idxEmpty:
		return nil, true
	case dbEmpty, idxEmpty:
		side := "db"
		if idxEmpty {
			side = "index"
		}
		return &model.FieldMismatch{
			JobID:      job.ID,
			FieldName:  field,
			Category:   model.CategoryMissingValue,
			DBValue:    dbVal,
			IndexValue: idxVal,
			Message:    fmt.Sprintf("%s missing in %s: db=%q index=%q", field, side, dbVal, idxVal),
		}, true
	default:
		return nil, false
	}
}

// titleCheck compares titles case-sensitively after whitespace and unicode
// normalization. Mismatch messages carry the first differing rune positions
// between the normalized forms; that diagnostic is the primary debugging
// aid for encoding and invisible-character problems.
type titleCheck struct{}

func (titleCheck) Field() string { return FieldTitle }

func (titleCheck) Compare(job model.JobRecord, doc model.IndexRecord, rules Rules) *model.FieldMismatch {
	if m, handled := emptyVerdict(FieldTitle, job, job.Title, doc.Title); handled {
		return m
	}

	dbNorm := NormalizeValue(job.Title)
	idxNorm := NormalizeValue(doc.Title)
	if dbNorm == idxNorm {
		return nil
	}

	diffs := DiffPositions(dbNorm, idxNorm, rules.Title.MaxDiffPositions)
	return &model.FieldMismatch{
		JobID:      job.ID,
		FieldName:  FieldTitle,
		Category:   model.CategoryValueMismatch,
		DBValue:    job.Title,
		IndexValue: doc.Title,
		Message: fmt.Sprintf("title mismatch: db=%q index=%q diff_positions=%s",
			job.Title, doc.Title, FormatPositions(diffs)),
	}
}

// exactCheck is normalized, case-sensitive equality.
type exactCheck struct {
	field string
	db    func(model.JobRecord) string
	idx   func(model.IndexRecord) string
}

func (c exactCheck) Field() string { return c.field }

func (c exactCheck) Compare(job model.JobRecord, doc model.IndexRecord, _ Rules) *model.FieldMismatch {
	dbVal, idxVal := c.db(job), c.idx(doc)
	if m, handled := emptyVerdict(c.field, job, dbVal, idxVal); handled {
		return m
	}
	if NormalizeValue(dbVal) == NormalizeValue(idxVal) {
		return nil
	}
	return &model.FieldMismatch{
		JobID:      job.ID,
		FieldName:  c.field,
		Category:   model.CategoryValueMismatch,
		DBValue:    dbVal,
		IndexValue: idxVal,
		Message:    fmt.Sprintf("%s mismatch: db=%q index=%q", c.field, dbVal, idxVal),
	}
}

// locationCheck is case-insensitive equality with the remote exemption:
// remote jobs legitimately carry placeholder or empty locations in one
// system, so they never produce a location mismatch. The exemption keys on
// the database work mode, the source of truth.
type locationCheck struct {
	field string
	db    func(model.JobRecord) string
	idx   func(model.IndexRecord) string
}

func (c locationCheck) Field() string { return c.field }

func (c locationCheck) Compare(job model.JobRecord, doc model.IndexRecord, _ Rules) *model.FieldMismatch {
	if mode, err := model.ParseWorkMode(string(job.WorkMode)); err == nil && mode == model.WorkModeRemote {
		return nil
	}

	dbVal, idxVal := c.db(job), c.idx(doc)
	if m, handled := emptyVerdict(c.field, job, dbVal, idxVal); handled {
		return m
	}
	if Fold(dbVal) == Fold(idxVal) {
		return nil
	}
	return &model.FieldMismatch{
		JobID:      job.ID,
		FieldName:  c.field,
		Category:   model.CategoryValueMismatch,
		DBValue:    dbVal,
		IndexValue: idxVal,
		Message:    fmt.Sprintf("%s mismatch: db=%q index=%q", c.field, dbVal, idxVal),
	}
}

// workModeCheck resolves the index work mode through the field-fallback
// rule, then compares the three-valued enums. Every mismatch records which
// index field supplied the value; triage needs that provenance.
type workModeCheck struct{}

func (workModeCheck) Field() string { return FieldWorkMode }

func (workModeCheck) Compare(job model.JobRecord, doc model.IndexRecord, _ Rules) *model.FieldMismatch {
	idxRaw, srcField := resolveIndexWorkMode(doc)
	dbRaw := string(job.WorkMode)

	dbEmpty := IsEmpty(dbRaw)
	idxEmpty := srcField == ""

	switch {
	case dbEmpty && idxEmpty:
		return nil
	case dbEmpty:
		return &model.FieldMismatch{
			JobID:           job.ID,
			FieldName:       FieldWorkMode,
			Category:        model.CategoryMissingValue,
			DBValue:         dbRaw,
			IndexValue:      idxRaw,
			SourceFieldUsed: srcField,
			Message:         fmt.Sprintf("work_mode missing in db: index=%q source_field_used=%s", idxRaw, srcField),
		}
	case idxEmpty:
		return &model.FieldMismatch{
			JobID:      job.ID,
			FieldName:  FieldWorkMode,
			Category:   model.CategoryMissingValue,
			DBValue:    dbRaw,
			IndexValue: idxRaw,
			Message:    fmt.Sprintf("work_mode missing in index: db=%q", dbRaw),
		}
	}

	dbMode, err := model.ParseWorkMode(dbRaw)
	if err != nil {
		return &model.FieldMismatch{
			JobID:           job.ID,
			FieldName:       FieldWorkMode,
			Category:        model.CategoryMalformedValue,
			DBValue:         dbRaw,
			IndexValue:      idxRaw,
			SourceFieldUsed: srcField,
			Message:         fmt.Sprintf("work_mode malformed in db: db=%q", dbRaw),
		}
	}

	var idxMode model.WorkMode
	if srcField == SourceFieldWorkMode {
		idxMode, err = model.ParseWorkMode(idxRaw)
	} else {
		idxMode, err = model.WorkModeFromRemoteFlag(idxRaw)
	}
	if err != nil {
		return &model.FieldMismatch{
			JobID:           job.ID,
			FieldName:       FieldWorkMode,
			Category:        model.CategoryMalformedValue,
			DBValue:         dbRaw,
			IndexValue:      idxRaw,
			SourceFieldUsed: srcField,
			Message:         fmt.Sprintf("work_mode malformed in index: index=%q source_field_used=%s", idxRaw, srcField),
		}
	}

	if dbMode == idxMode {
		return nil
	}
	return &model.FieldMismatch{
		JobID:           job.ID,
		FieldName:       FieldWorkMode,
		Category:        model.CategoryValueMismatch,
		DBValue:         dbRaw,
		IndexValue:      idxRaw,
		SourceFieldUsed: srcField,
		Message: fmt.Sprintf("work_mode mismatch: db=%q index=%q source_field_used=%s",
			dbRaw, idxRaw, srcField),
	}
}

// resolveIndexWorkMode picks the index-side source for work mode: the
// richer "workmode" string wins when present and non-empty, else the
// boolean-like "remote" flag. srcField is empty when neither field carries
// a value.
func resolveIndexWorkMode(doc model.IndexRecord) (raw, srcField string) {
	if doc.HasWorkMode && !IsEmpty(doc.WorkMode) {
		return doc.WorkMode, SourceFieldWorkMode
	}
	if doc.HasRemote && !IsEmpty(doc.Remote) {
		return doc.Remote, SourceFieldRemote
	}
	return "", ""
}

// skillsCheck is presence-based: every database skill must appear in the
// index set, up to the configured missing tolerance. Extra index-side
// skills are fine; supersets pass.
type skillsCheck struct{}

func (skillsCheck) Field() string { return FieldAISkills }

func (skillsCheck) Compare(job model.JobRecord, doc model.IndexRecord, rules Rules) *model.FieldMismatch {
	expected := skillSet(job.AISkills)
	if len(expected) == 0 {
		return nil
	}
	indexed := skillSet(doc.AISkills)

	var missing []string
	for key, raw := range expected {
		if _, ok := indexed[key]; !ok {
			missing = append(missing, raw)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	if frac := float64(len(missing)) / float64(len(expected)); frac <= rules.Skills.MissingTolerance {
		return nil
	}

	return &model.FieldMismatch{
		JobID:      job.ID,
		FieldName:  FieldAISkills,
		Category:   model.CategorySkillsMissing,
		DBValue:    strings.Join(sortedValues(expected), ", "),
		IndexValue: strings.Join(sortedValues(indexed), ", "),
		Message: fmt.Sprintf("ai_skills missing in index: [%s] (%d of %d)",
			strings.Join(missing, ", "), len(missing), len(expected)),
	}
}

// skillSet folds skills for membership checks, keeping one normalized raw
// form per folded key for messages.
func skillSet(skills []string) map[string]string {
	set := make(map[string]string, len(skills))
	for _, s := range skills {
		key := Fold(s)
		if key == "" {
			continue
		}
		if _, ok := set[key]; !ok {
			set[key] = NormalizeValue(s)
		}
	}
	return set
}

func sortedValues(set map[string]string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
