package antenatal

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

func NewDemographics(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(DemographicsForm, subject.NewResolver(p, m),
		crf.OtherSpecify("marital_status", "marital_status_other"),
		crf.OtherSpecify("ethnicity", "ethnicity_other"),
		crf.OtherSpecify("highest_education", "highest_education_other"),
		crf.OtherSpecify("current_occupation", "current_occupation_other"),
		crf.OtherSpecify("provides_money", "provides_money_other"),
		crf.OtherSpecify("money_earned", "money_earned_other"),
		crf.OtherSpecify("toilet_facility", "toilet_facility_other"),
		crf.IntFields("house_people_number"),
		crf.Required("house_people_number"),
		crf.Min("house_people_number", 1),
	)
}

// substanceUse pairs each use question with its frequency field.
type substanceUse struct{ used, frequency string }

func substanceRules(pairs []substanceUse) []crf.Rule {
	var rules []crf.Rule
	for _, s := range pairs {
		rules = append(rules,
			crf.OneOf(s.used, crf.YesNoDWTA),
			crf.RequiredIf(crf.Yes, s.used, s.frequency),
		)
	}
	return rules
}

func NewSubstanceUsePriorPreg(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(SubstanceUsePriorPregForm, subject.NewResolver(p, m),
		substanceRules([]substanceUse{
			{"smoked_prior_to_preg", "smoking_prior_preg_freq"},
			{"alcohol_prior_pregnancy", "alcohol_prior_preg_freq"},
			{"marijuana_prior_preg", "marijuana_prior_preg_freq"},
		})...,
	)
}

func NewSubstanceUseDuringPreg(p lookup.Provider, m subject.Models) *crf.Validator {
	return subject.NewVisitValidator(SubstanceUseDuringPregForm, subject.NewResolver(p, m),
		substanceRules([]substanceUse{
			{"smoked_during_pregnancy", "smoking_during_preg_freq"},
			{"alcohol_during_pregnancy", "alcohol_during_preg_freq"},
			{"marijuana_during_preg", "marijuana_during_preg_freq"},
		})...,
	)
}
