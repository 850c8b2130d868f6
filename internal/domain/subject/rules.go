package subject

import (
	"context"

	"github.com/ehr/edc/internal/platform/crf"
)

// ApplicableIfPositive requires a substantive answer in field for an HIV
// positive subject and N/A otherwise.
func ApplicableIfPositive(r *Resolver, field string) crf.Rule {
	return crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
		pos, err := r.IsPositive(ctx, sub.SubjectIdentifier())
		if err != nil {
			return err
		}
		return crf.CheckApplicable(sub.Record, pos, field)
	})
}

// WHODiagnosis is the WHO stage III/IV question pair: flag applies only to
// HIV positive subjects, and the m2m list holds real diagnoses when flag
// is YES and N/A alone otherwise.
func WHODiagnosis(r *Resolver, flag, m2m string) crf.Rule {
	return crf.All(
		crf.OneOf(flag, crf.YesNoNA),
		ApplicableIfPositive(r, flag),
		crf.M2MNotApplicable(crf.Yes, flag, m2m),
	)
}
