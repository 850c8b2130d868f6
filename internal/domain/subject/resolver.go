package subject

import (
	"context"
	"strings"
	"time"

	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Field names read from related records.
const (
	ConsentDatetimeField     = "consent_datetime"
	ScreeningIdentifierField = "screening_identifier"
	VersionField             = "version"
)

// Resolver answers subject-level questions through a lookup provider.
type Resolver struct {
	p lookup.Provider
	m Models
}

func NewResolver(p lookup.Provider, m Models) *Resolver {
	return &Resolver{p: p, m: m}
}

// Provider is the lookup provider the resolver reads through.
func (r *Resolver) Provider() lookup.Provider { return r.p }

// Models is the resolver's record-type configuration.
func (r *Resolver) Models() Models { return r.m }

// Prerequisite fetches the single record of type t matching f. A missing
// (or ambiguous) record is reported as PrerequisiteMissing naming what.
func (r *Resolver) Prerequisite(ctx context.Context, t lookup.RecordType, f lookup.Filter, what string) (crf.Record, error) {
	rec, err := r.p.Get(ctx, t, f)
	if lookup.IsMissing(err) {
		return nil, crf.Failf(crf.WholeRecord, crf.PrerequisiteMissing, "Please complete %s first.", what)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestPrerequisite is Prerequisite with "latest" semantics.
func (r *Resolver) LatestPrerequisite(ctx context.Context, t lookup.RecordType, f lookup.Filter, what string) (crf.Record, error) {
	rec, ok, err := r.p.Latest(ctx, t, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, crf.Failf(crf.WholeRecord, crf.PrerequisiteMissing, "Please complete %s first.", what)
	}
	return rec, nil
}

// ConsentVersion returns the active consent version record. It is matched
// on the screening identifier when one is known, otherwise on the subject.
func (r *Resolver) ConsentVersion(ctx context.Context, subjectID, screeningID string) (crf.Record, error) {
	f := lookup.Subject(subjectID)
	if screeningID != "" {
		f = lookup.Filter{ScreeningIdentifierField: screeningID}
	}
	rec, ok, err := r.p.Latest(ctx, r.m.ConsentVersion, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, crf.Failf(crf.WholeRecord, crf.PrerequisiteMissing, "Consent version form has not been completed.")
	}
	return rec, nil
}

// CurrentConsent returns the subject's consent under the active consent
// version, picking the latest or earliest by consent_datetime according to
// Models.ConsentOrder.
func (r *Resolver) CurrentConsent(ctx context.Context, subjectID string) (crf.Record, error) {
	version, err := r.ConsentVersion(ctx, subjectID, "")
	if err != nil {
		return nil, err
	}
	f := lookup.Subject(subjectID)
	if v := version.Value(VersionField); v != nil {
		f = f.With(VersionField, v)
	}
	consents, err := r.p.Filter(ctx, r.m.Consent, f)
	if err != nil {
		return nil, err
	}

	var (
		current crf.Record
		at      time.Time
	)
	for _, c := range consents {
		t, ok := c.Time(ConsentDatetimeField)
		if !ok {
			continue
		}
		if current == nil ||
			(r.m.ConsentOrder == LatestConsent && t.After(at)) ||
			(r.m.ConsentOrder == EarliestConsent && t.Before(at)) {
			current, at = c, t
		}
	}
	if current == nil {
		return nil, crf.Failf(crf.WholeRecord, crf.PrerequisiteMissing, "Please complete the maternal consent form first.")
	}
	return current, nil
}

// ConsentDatetime is the consent_datetime of CurrentConsent.
func (r *Resolver) ConsentDatetime(ctx context.Context, subjectID string) (time.Time, error) {
	c, err := r.CurrentConsent(ctx, subjectID)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := c.Time(ConsentDatetimeField)
	return t, nil
}

// HIVStatus derives the subject's HIV status: POS when the latest rapid
// test is POS, else POS when any enrollment result is POS, else NEG.
func (r *Resolver) HIVStatus(ctx context.Context, subjectID string) (crf.Token, error) {
	rapid, ok, err := r.p.Latest(ctx, r.m.RapidTest, lookup.Subject(subjectID))
	if err != nil {
		return "", err
	}
	if ok && rapid.Equal("result", crf.Pos) {
		return crf.Pos, nil
	}

	enrollment, ok, err := r.p.Latest(ctx, r.m.AntenatalEnrollment, lookup.Subject(subjectID))
	if err != nil {
		return "", err
	}
	if ok {
		for _, f := range []string{"enrollment_hiv_status", "week32_result", "rapid_test_result"} {
			if enrollment.Equal(f, crf.Pos) {
				return crf.Pos, nil
			}
		}
	}
	return crf.Neg, nil
}

// IsPositive is HIVStatus == POS.
func (r *Resolver) IsPositive(ctx context.Context, subjectID string) (bool, error) {
	status, err := r.HIVStatus(ctx, subjectID)
	return status == crf.Pos, err
}

// Initials derives initials from the name fields: the first letter of the
// first name, the first letter of the middle name (or of the second first
// name token), and the first letter of the last name.
func Initials(firstName, middleName, lastName string) string {
	first := strings.Fields(firstName)
	last := strings.Fields(lastName)
	if len(first) == 0 || len(last) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(initial(first[0]))
	if mid := strings.Fields(middleName); len(mid) > 0 {
		b.WriteString(initial(mid[0]))
	} else if len(first) > 1 {
		b.WriteString(initial(first[1]))
	}
	b.WriteString(initial(last[0]))
	return b.String()
}

func initial(name string) string {
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return ""
}
