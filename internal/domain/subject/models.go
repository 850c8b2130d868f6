// Package subject resolves subject-level state shared by the maternal form
// validators: the current consent, the derived HIV status, and the
// off-study status. It also provides the guards attached to every
// visit-scoped form.
package subject

import (
	"fmt"
	"strings"

	"github.com/ehr/edc/internal/platform/lookup"
)

// ConsentOrder selects which consent counts as current when a subject has
// signed several under the active version.
type ConsentOrder int

const (
	LatestConsent ConsentOrder = iota
	EarliestConsent
)

// ParseConsentOrder reads "latest" or "earliest". An empty name is the
// latest consent.
func ParseConsentOrder(name string) (ConsentOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latest":
		return LatestConsent, nil
	case "earliest":
		return EarliestConsent, nil
	}
	return LatestConsent, fmt.Errorf("unknown consent order %q", name)
}

// Models names the record types a validator resolves. It is fixed at
// construction; tests swap types by building a different value.
type Models struct {
	Eligibility              lookup.RecordType
	EligibilityLoss          lookup.RecordType
	Consent                  lookup.RecordType
	ConsentVersion           lookup.RecordType
	Locator                  lookup.RecordType
	Visit                    lookup.RecordType
	AntenatalEnrollment      lookup.RecordType
	AntenatalVisitMembership lookup.RecordType
	RapidTest                lookup.RecordType
	Ultrasound               lookup.RecordType
	LifetimeArvHistory       lookup.RecordType
	Arv                      lookup.RecordType
	Randomization            lookup.RecordType
	LabourDel                lookup.RecordType
	OffStudy                 lookup.RecordType
	Death                    lookup.RecordType
	CrfException             lookup.RecordType

	ConsentOrder ConsentOrder
}

// DefaultModels binds every role to the record type of the same name.
func DefaultModels() Models {
	return Models{
		Eligibility:              lookup.MaternalEligibility,
		EligibilityLoss:          lookup.MaternalEligibilityLoss,
		Consent:                  lookup.MaternalConsent,
		ConsentVersion:           lookup.ConsentVersion,
		Locator:                  lookup.MaternalLocator,
		Visit:                    lookup.MaternalVisit,
		AntenatalEnrollment:      lookup.AntenatalEnrollment,
		AntenatalVisitMembership: lookup.AntenatalVisitMembership,
		RapidTest:                lookup.RapidTestResult,
		Ultrasound:               lookup.MaternalUltrasound,
		LifetimeArvHistory:       lookup.LifetimeArvHistory,
		Arv:                      lookup.MaternalArv,
		Randomization:            lookup.MaternalRandomization,
		LabourDel:                lookup.MaternalLabourDel,
		OffStudy:                 lookup.MaternalOffStudy,
		Death:                    lookup.MaternalDeath,
		CrfException:             lookup.RequiredCrfException,
		ConsentOrder:             LatestConsent,
	}
}
