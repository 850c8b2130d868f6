// Package antenatal validates the forms captured from enrollment up to
// delivery.
package antenatal

import (
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

const (
	EnrollmentForm             = "antenatal_enrollment"
	VisitMembershipForm        = "antenatal_visit_membership"
	UltrasoundForm             = "maternal_ultrasound"
	ObstetricHistoryForm       = "maternal_obsterical_history"
	MedicalHistoryForm         = "maternal_medical_history"
	ClinicalMeasurementsOne    = "maternal_clinical_measurements_one"
	ClinicalMeasurementsTwo    = "maternal_clinical_measurements_two"
	RapidTestForm              = "rapid_test_result"
	DemographicsForm           = "maternal_demographics"
	SubstanceUsePriorPregForm  = "maternal_substance_use_prior_preg"
	SubstanceUseDuringPregForm = "maternal_substance_use_during_preg"
	RandomizationForm          = "maternal_randomization"
	DiagnosesForm              = "maternal_diagnoses"
)

// Validators returns the validator of every antenatal form.
func Validators(p lookup.Provider, m subject.Models) []*crf.Validator {
	return []*crf.Validator{
		NewEnrollment(p, m),
		NewVisitMembership(p, m),
		NewUltrasound(p, m),
		NewObstetricHistory(p, m),
		NewMedicalHistory(p, m),
		NewClinicalMeasurementsOne(p, m),
		NewClinicalMeasurementsTwo(p, m),
		NewRapidTestResult(p, m),
		NewDemographics(p, m),
		NewSubstanceUsePriorPreg(p, m),
		NewSubstanceUseDuringPreg(p, m),
		NewRandomization(p, m),
		NewDiagnoses(p, m),
	}
}
