package crf

// Token is a value from one of the closed clinical vocabularies shared by
// the maternal forms.
type Token string

const (
	Yes           Token = "Yes"
	No            Token = "No"
	NotApplicable Token = "N/A"
	DWTA          Token = "DWTA"
	Other         Token = "OTHER"

	Pos Token = "POS"
	Neg Token = "NEG"
	Ind Token = "IND"

	Restarted    Token = "RESTARTED"
	Continuous   Token = "CONTINUOUS"
	Stopped      Token = "STOPPED"
	NeverStarted Token = "NEVER_STARTED"
)

// Vocabulary is a closed set of tokens accepted by a field.
type Vocabulary []Token

var (
	YesNo       = Vocabulary{Yes, No}
	YesNoNA     = Vocabulary{Yes, No, NotApplicable}
	YesNoDWTA   = Vocabulary{Yes, No, DWTA}
	HIVResults  = Vocabulary{Pos, Neg, Ind}
	ARVStatuses = Vocabulary{Restarted, Continuous, Stopped, NeverStarted}

	// Clinical is the union of every shared vocabulary.
	Clinical = Vocabulary{
		Yes, No, NotApplicable, DWTA, Other,
		Pos, Neg, Ind,
		Restarted, Continuous, Stopped, NeverStarted,
	}
)

// Contains reports whether t belongs to the vocabulary.
func (v Vocabulary) Contains(t Token) bool {
	for _, x := range v {
		if x == t {
			return true
		}
	}
	return false
}

// Known reports whether t is one of the enumerated clinical tokens.
func (t Token) Known() bool {
	return Clinical.Contains(t)
}

func (t Token) String() string {
	return string(t)
}
