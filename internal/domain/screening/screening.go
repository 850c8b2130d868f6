// Package screening validates the forms captured before a subject is on
// study: eligibility, consent, locator and eligibility loss.
package screening

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

const (
	EligibilityForm     = "maternal_eligibility"
	ConsentForm         = "maternal_consent"
	LocatorForm         = "maternal_locator"
	EligibilityLossForm = "maternal_eligibility_loss"
)

// Validators returns the validator of every screening form.
func Validators(p lookup.Provider, m subject.Models) []*crf.Validator {
	return []*crf.Validator{
		NewEligibility(),
		NewConsent(p, m),
		NewLocator(p, m),
		NewEligibilityLoss(p, m),
	}
}
