package screening

import (
	"context"
	"strings"

	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Identity types.
const (
	CountryID = "country_id"
)

func NewConsent(p lookup.Provider, m subject.Models) *crf.Validator {
	c := &consent{r: subject.NewResolver(p, m)}
	return crf.NewValidator(ConsentForm,
		crf.DateFields(subject.ConsentDatetimeField, "dob"),
		crf.Required(subject.ConsentDatetimeField),
		crf.Required("dob"),
		crf.RuleFunc(c.consentVersion),
		crf.RuleFunc(c.screening),
		crf.Pure(identityStructure),
		crf.Pure(identityConfirmed),
		crf.Pure(initials),
		crf.OneOf("citizen", crf.YesNo),
		crf.Pure(citizenIdentity),
		crf.OneOf("is_literate", crf.YesNo),
		crf.RequiredIf(crf.No, "is_literate", "witness_name"),
	)
}

type consent struct {
	r *subject.Resolver
}

func (c *consent) consentVersion(ctx context.Context, sub *crf.Submission) error {
	screeningID, _ := sub.Record.String(subject.ScreeningIdentifierField)
	_, err := c.r.ConsentVersion(ctx, sub.SubjectIdentifier(), screeningID)
	return err
}

// screening checks the consent against the eligibility record: the age at
// consent must equal the screening age, and consent cannot precede
// screening.
func (c *consent) screening(ctx context.Context, sub *crf.Submission) error {
	screeningID, _ := sub.Record.String(subject.ScreeningIdentifierField)
	eligibility, err := c.r.Prerequisite(ctx, c.r.Models().Eligibility,
		lookup.Filter{subject.ScreeningIdentifierField: screeningID}, "the maternal eligibility form")
	if err != nil {
		return err
	}

	consented, _ := sub.Record.Time(subject.ConsentDatetimeField)
	dob, _ := sub.Record.Date("dob")
	if screenedAge, ok := eligibility.Int("age_in_years"); ok {
		if age := crf.AgeInYears(dob, consented); age != screenedAge {
			return crf.Failf("dob", crf.InconsistentValue,
				"In Maternal Eligibility you indicated the participant is %d years old. Date of birth gives %d years at consent.",
				screenedAge, age)
		}
	}
	if screened, ok := eligibility.Time(crf.ReportDatetimeField); ok && consented.Before(screened) {
		return crf.Failf(subject.ConsentDatetimeField, crf.InconsistentValue,
			"Consent datetime cannot be before the eligibility report datetime %s.", crf.FormatDate(screened))
	}
	return nil
}

// identityStructure checks a country_id identity: 9 characters whose 5th
// character encodes sex, 1 for male and 2 for female.
func identityStructure(rec crf.Record) error {
	identityType, _ := rec.String("identity_type")
	identity, ok := rec.String("identity")
	if identityType != CountryID || !ok {
		return nil
	}
	if len(identity) != 9 {
		return crf.Failf("identity", crf.InconsistentValue, "Identity number must be 9 characters. Got %d.", len(identity))
	}
	gender, _ := rec.String("gender")
	var want byte
	switch strings.ToUpper(gender) {
	case "M":
		want = '1'
	case "F":
		want = '2'
	default:
		return nil
	}
	if identity[4] != want {
		return crf.Failf("identity", crf.InconsistentValue,
			"Identity number does not match gender %s. The 5th character should be %c.", gender, want)
	}
	return nil
}

func identityConfirmed(rec crf.Record) error {
	identity, _ := rec.String("identity")
	confirm, _ := rec.String("confirm_identity")
	if identity != confirm {
		return crf.Failf("confirm_identity", crf.InconsistentValue, "Identity mismatch. The identity numbers do not match.")
	}
	return nil
}

func initials(rec crf.Record) error {
	given, ok := rec.String("initials")
	if !ok {
		return nil
	}
	first, _ := rec.String("first_name")
	middle, _ := rec.String("middle_name")
	last, _ := rec.String("last_name")
	want := subject.Initials(first, middle, last)
	if want != "" && !strings.EqualFold(given, want) {
		return crf.Failf("initials", crf.InconsistentValue,
			"Initials do not match the full name. Expected %s, got %s.", want, given)
	}
	return nil
}

func citizenIdentity(rec crf.Record) error {
	if !rec.Equal("citizen", crf.Yes) {
		return nil
	}
	if identityType, _ := rec.String("identity_type"); identityType != CountryID {
		return crf.Failf("identity_type", crf.InconsistentValue,
			"Participant is a citizen. The identity type must be %s.", CountryID)
	}
	return nil
}
