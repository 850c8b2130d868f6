package postnatal

import (
	"context"
	"strings"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Labour and delivery limits.
const (
	MaxLabourHours     = 96
	MinRegimenWeeks    = 4
	InitiationField    = "arv_initiation_date"
	DeliveryField      = "delivery_datetime"
	RegimenDuration    = "valid_regiment_duration"
	caesareanSubstring = "c-section"
)

func NewLabourDelivery(p lookup.Provider, m subject.Models) *crf.Validator {
	r := subject.NewResolver(p, m)
	return subject.NewVisitValidator(LabourDeliveryForm, r,
		crf.DateFields(DeliveryField, InitiationField),
		crf.Required(DeliveryField),
		crf.NotAfterReportDate(DeliveryField),
		crf.NumberFields("labour_hrs"),
		crf.Range("labour_hrs", 0, MaxLabourHours),
		crf.M2MSingleSelection("delivery_complications", "None"),
		crf.M2MOtherSpecify("delivery_complications", "delivery_complications_other"),
		crf.Pure(caesareanReason),
		crf.OneOf(RegimenDuration, crf.YesNoNA),
		crf.RuleFunc(func(ctx context.Context, sub *crf.Submission) error {
			return arvInitiation(ctx, r, sub)
		}),
	)
}

func caesareanReason(rec crf.Record) error {
	mode, _ := rec.String("mode_delivery")
	return crf.CheckRequired(rec, strings.Contains(strings.ToLower(mode), caesareanSubstring), "csection_reason")
}

// arvInitiation reconciles the ARV initiation date with the open ARV record
// and, for a positive mother, with the delivery date: the regimen counts as
// a valid duration only when delivery is at least four weeks after
// initiation.
func arvInitiation(ctx context.Context, r *subject.Resolver, sub *crf.Submission) error {
	id := sub.SubjectIdentifier()
	rec := sub.Record

	rows, err := r.Provider().Filter(ctx, r.Models().Arv, lookup.Subject(id))
	if err != nil {
		return err
	}
	var open crf.Record
	for _, row := range rows {
		if !row.Present("stop_date") {
			open = row
		}
	}
	initiated, hasInitiation := rec.Date(InitiationField)
	if open != nil && hasInitiation {
		if start, ok := open.Date("start_date"); ok && !start.Equal(initiated) {
			return crf.Failf(InitiationField, crf.InconsistentValue,
				"ARV initiation date does not match the start date %s of the ongoing ARV. Got %s.",
				crf.FormatDate(start), crf.FormatDate(initiated))
		}
	}

	pos, err := r.IsPositive(ctx, id)
	if err != nil {
		return err
	}
	if !pos {
		if err := crf.CheckApplicable(rec, false, RegimenDuration); err != nil {
			return err
		}
		return crf.CheckRequired(rec, false, InitiationField)
	}

	if !rec.Equal(RegimenDuration, crf.Yes) {
		return crf.Failf(RegimenDuration, crf.InconsistentValue,
			"Participant is HIV positive. Valid regimen duration should be %s.", crf.Yes)
	}
	if !hasInitiation {
		return crf.Failf(InitiationField, crf.FieldRequired,
			"Participant is HIV positive and on a valid regimen. ARV initiation date is required.")
	}
	delivered, _ := rec.Time(DeliveryField)
	if delivered.Sub(initiated) < crf.Weeks(MinRegimenWeeks) {
		var errs crf.Errors
		msg := "ARVs must be initiated at least %d weeks before delivery for a valid regimen. Initiated %s, delivered %s."
		errs.Add(DeliveryField, crf.InconsistentValue, msg, MinRegimenWeeks, crf.FormatDate(initiated), crf.FormatDate(delivered))
		errs.Add(InitiationField, crf.InconsistentValue, msg, MinRegimenWeeks, crf.FormatDate(initiated), crf.FormatDate(delivered))
		return errs.Err()
	}
	return nil
}
