// Package postnatal validates labour and delivery and the forms captured
// after it.
package postnatal

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

const (
	LabourDeliveryForm = "maternal_labour_del"
	PostpartumFollowUp = "maternal_postpartum_fu"
	InterimIllnessForm = "maternal_interim_illness"
	ContraceptionForm  = "maternal_contraception"
	SRHServicesForm    = "maternal_srh_services"
)

// Validators returns the validator of every postnatal form.
func Validators(p lookup.Provider, m subject.Models) []*crf.Validator {
	return []*crf.Validator{
		NewLabourDelivery(p, m),
		NewPostpartumFollowUp(p, m),
		NewInterimIllness(p, m),
		NewContraception(p, m),
		NewSRHServices(p, m),
	}
}
