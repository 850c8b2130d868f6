// Package arv validates the antiretroviral history and treatment forms.
package arv

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

const (
	LifetimeHistoryForm = "maternal_lifetime_arv_history"
	PregnancyForm       = "maternal_arv_preg"
	PostpartumForm      = "maternal_arv_post"
	AdherenceForm       = "maternal_arv_post_adherence"
	InterimHistoryForm  = "maternal_hiv_interim_hx"
	AztNvpForm          = "maternal_azt_nvp"
)

// Item fields shared by the inline ARV rows.
const (
	ArvCodeField   = "arv_code"
	StartDateField = "start_date"
	StopDateField  = "stop_date"
)

// Validators returns the validator of every ARV form.
func Validators(p lookup.Provider, m subject.Models) []*crf.Validator {
	return []*crf.Validator{
		NewLifetimeHistory(p, m),
		NewPregnancy(p, m),
		NewPostpartum(p, m),
		NewAdherence(p, m),
		NewInterimHistory(p, m),
		NewAztNvp(p, m),
	}
}
