package antenatal

import (
	"context"
	"strings"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

func NewRandomization(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(RandomizationForm, r,
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			id := sub.SubjectIdentifier()
			pos, err := r.IsPositive(ctx, id)
			if err != nil {
				return err
			}
			if !pos {
				return crf.Failf(crf.WholeRecord, crf.SubjectIneligible,
					"Participant is HIV negative. Only HIV positive mothers can be randomized.")
			}
			if _, err := r.LatestPrerequisite(ctx, m.AntenatalVisitMembership, lookup.Subject(id),
				"the antenatal visit membership form"); err != nil {
				return err
			}
			consent, err := r.CurrentConsent(ctx, id)
			if err != nil {
				return err
			}
			given, _ := sub.Record.String("initials")
			want, _ := consent.String("initials")
			if !strings.EqualFold(given, want) {
				return crf.Failf("initials", crf.InconsistentValue,
					"Initials do not match the consent. Expected %s, got %s.", want, given)
			}
			return nil
		}),
	)
}

func NewDiagnoses(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(DiagnosesForm, r,
		crf.OneOf("has_new_diagnoses", crf.YesNo),
		crf.M2MRequired(crf.Yes, "has_new_diagnoses", "diagnoses"),
		crf.M2MSingleSelection("diagnoses", "None"),
		crf.M2MOtherSpecify("diagnoses", "diagnoses_other"),
		subject.WHODiagnosis(r, "has_who_dx", "who"),
	)
}
