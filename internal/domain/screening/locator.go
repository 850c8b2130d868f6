package screening

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

func NewLocator(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(LocatorForm, subject.NewResolver(p, m),
		crf.DateFields("locator_date"),
		crf.OneOf("has_caretaker", crf.YesNo),
		crf.OneOf("may_call_work", crf.YesNo),
		crf.OneOf("may_visit_home", crf.YesNo),
		crf.OneOf("may_follow_up", crf.YesNo),
		crf.RequiredIf(crf.Yes, "has_caretaker", "caretaker_name"),
		crf.RequiredIf(crf.Yes, "has_caretaker", "caretaker_cell"),
		crf.RequiredIf(crf.Yes, "may_call_work", "subject_work_place"),
		crf.RequiredIf(crf.Yes, "may_visit_home", "physical_address"),
		crf.Pure(followUpContact),
		crf.NotAfterReportDate("locator_date"),
	)
}

func followUpContact(rec crf.Record) error {
	if !rec.Equal("may_follow_up", crf.Yes) {
		return nil
	}
	for _, f := range []string{"subject_cell", "subject_cell_alt", "subject_phone"} {
		if rec.Present(f) {
			return nil
		}
	}
	return crf.Failf("subject_cell", crf.FieldRequired,
		"Participant agreed to follow up. Please provide at least one contact number.")
}
