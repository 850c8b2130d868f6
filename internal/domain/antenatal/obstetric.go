package antenatal

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

var obstetricCounts = []string{
	"prev_pregnancies", "pregs_24wks_or_more", "lost_before_24wks", "lost_after_24wks",
	"live_children", "children_died_b4_5yrs", "children_deliv_before_37wks", "children_deliv_aftr_37wks",
}

func NewObstetricHistory(p lookup.Provider, m subject.Models) *crf.Validator {
	rules := []crf.Rule{
		crf.IntFields(obstetricCounts...),
		crf.Required("prev_pregnancies"),
	}
	for _, f := range obstetricCounts {
		rules = append(rules, crf.Min(f, 0))
	}
	rules = append(rules,
		crf.Pure(noPreviousPregnancies),
		crf.Pure(pregnancyOutcomes),
		crf.Pure(lossesAfter24Weeks),
		crf.Pure(birthTiming),
	)
	return subject.NewVisitValidator(ObstetricHistoryForm, subject.NewResolver(p, m), rules...)
}

// noPreviousPregnancies forbids outcome counts when there were no previous
// pregnancies.
func noPreviousPregnancies(rec crf.Record) error {
	if prev, _ := rec.Int("prev_pregnancies"); prev > 0 {
		return nil
	}
	var errs crf.Errors
	for _, f := range []string{"pregs_24wks_or_more", "lost_before_24wks", "lost_after_24wks"} {
		if n, _ := rec.Int(f); n != 0 {
			errs.Add(f, crf.InconsistentValue, "There were no previous pregnancies. Expected 0, got %d.", n)
		}
	}
	return errs.Err()
}

// pregnancyOutcomes requires every previous pregnancy to be counted once,
// either as reaching 24 weeks or as lost before 24 weeks.
func pregnancyOutcomes(rec crf.Record) error {
	prev, _ := rec.Int("prev_pregnancies")
	if prev <= 0 {
		return nil
	}
	over, _ := rec.Int("pregs_24wks_or_more")
	lost, _ := rec.Int("lost_before_24wks")
	if over+lost == prev {
		return nil
	}
	var errs crf.Errors
	msg := "The sum of pregnancies of 24 weeks or more (%d) and pregnancies lost before 24 weeks (%d) must equal the previous pregnancies (%d)."
	errs.Add("pregs_24wks_or_more", crf.InconsistentValue, msg, over, lost, prev)
	errs.Add("lost_before_24wks", crf.InconsistentValue, msg, over, lost, prev)
	return errs.Err()
}

func lossesAfter24Weeks(rec crf.Record) error {
	if prev, _ := rec.Int("prev_pregnancies"); prev <= 0 {
		return nil
	}
	over, _ := rec.Int("pregs_24wks_or_more")
	lostAfter, _ := rec.Int("lost_after_24wks")
	if over < lostAfter {
		return crf.Failf("lost_after_24wks", crf.InconsistentValue,
			"Pregnancies lost after 24 weeks (%d) cannot exceed pregnancies of 24 weeks or more (%d).", lostAfter, over)
	}
	return nil
}

// birthTiming reconciles the children delivered before and after 37 weeks
// with the pregnancies that were not lost. The current pregnancy is
// included in prev_pregnancies.
func birthTiming(rec crf.Record) error {
	prev, _ := rec.Int("prev_pregnancies")
	before, ok1 := rec.Int("children_deliv_before_37wks")
	after, ok2 := rec.Int("children_deliv_aftr_37wks")
	if prev <= 0 || !ok1 || !ok2 {
		return nil
	}
	lostBefore, _ := rec.Int("lost_before_24wks")
	lostAfter, _ := rec.Int("lost_after_24wks")
	want := (prev - 1) - (lostBefore + lostAfter)
	if before+after != want {
		var errs crf.Errors
		msg := "Children delivered before and after 37 weeks (%d) must equal the previous pregnancies not lost (%d)."
		errs.Add("children_deliv_before_37wks", crf.InconsistentValue, msg, before+after, want)
		errs.Add("children_deliv_aftr_37wks", crf.InconsistentValue, msg, before+after, want)
		return errs.Err()
	}
	return nil
}
