// Package visit validates the maternal visit itself and the forms that end
// a subject's participation.
package visit

import (
	"context"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

const (
	VisitForm    = "maternal_visit"
	OffStudyForm = "maternal_offstudy"
	DeathForm    = "maternal_death"
)

// Visit reasons.
const (
	ReasonScheduled   crf.Token = "scheduled"
	ReasonUnscheduled crf.Token = "unscheduled"
	ReasonMissed      crf.Token = "missed"
	ReasonDeath       crf.Token = "death"
	ReasonLost        crf.Token = "lost"
	ReasonOffStudy    crf.Token = "off study"
)

// Reasons is the vocabulary of maternal_visit.reason.
var Reasons = crf.Vocabulary{
	ReasonScheduled, ReasonUnscheduled, ReasonMissed, ReasonDeath, ReasonLost, ReasonOffStudy,
}

// Validators returns the validator of every visit form.
func Validators(p lookup.Provider, m subject.Models) []*crf.Validator {
	return []*crf.Validator{
		NewVisit(p, m),
		NewOffStudy(p, m),
		NewDeath(p, m),
	}
}

func NewVisit(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(VisitForm, subject.NewResolver(p, m),
		crf.Required("reason"),
		crf.OneOf("reason", Reasons),
		crf.RequiredIf(ReasonMissed, "reason", "reason_missed"),
		crf.RequiredIf(ReasonUnscheduled, "reason", "reason_unscheduled"),
		crf.OtherSpecify("info_source", "info_source_other"),
	)
}

// NewOffStudy skips the off-study guard: the form that takes a subject off
// study must stay editable afterwards.
func NewOffStudy(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return crf.NewValidator(OffStudyForm,
		subject.VisitDatetimeGuard(),
		subject.ConsentDatetimeGuard(r),
		crf.DateFields("offstudy_date"),
		crf.Required("offstudy_date"),
		crf.NotAfterReportDate("offstudy_date"),
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			off, _ := sub.Record.Date("offstudy_date")
			consented, err := r.ConsentDatetime(ctx, sub.SubjectIdentifier())
			if err != nil {
				return err
			}
			if off.Before(crf.DateOf(consented)) {
				return crf.Failf("offstudy_date", crf.InconsistentValue,
					"Off study date cannot be before the consent date %s. Got %s.",
					crf.FormatDate(consented), crf.FormatDate(off))
			}
			return nil
		}),
		crf.OtherSpecify("reason", "reason_other"),
	)
}

func NewDeath(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return crf.NewValidator(DeathForm,
		subject.VisitDatetimeGuard(),
		subject.ConsentDatetimeGuard(r),
		crf.DateFields("death_date"),
		crf.Required("death_date"),
		crf.NotAfterReportDate("death_date"),
		crf.OtherSpecify("cause", "cause_other"),
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			return notAlreadyDead(ctx, r, sub)
		}),
	)
}

func notAlreadyDead(ctx context.Context, r *subject.Resolver, sub *crf.Submission) error {
	id := sub.SubjectIdentifier()
	deaths, err := r.Provider().Filter(ctx, r.Models().Death, lookup.Subject(id))
	if err != nil {
		return err
	}
	self, _ := sub.Record.String("id")
	for _, d := range deaths {
		if other, _ := d.String("id"); self != "" && other == self {
			continue
		}
		when, _ := d.Date("death_date")
		return crf.Failf(crf.WholeRecord, crf.InconsistentValue,
			"Participant %s is already recorded as dead on %s.", id, crf.FormatDate(when))
	}
	return nil
}
