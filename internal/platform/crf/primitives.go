package crf

import (
	"strings"
)

// Messages used by the field-requirement primitives.
const (
	MsgRequired      = "This field is required."
	MsgNotRequired   = "This field is not required."
	MsgApplicable    = "This field is applicable."
	MsgNotApplicable = "This field is not applicable."
)

// RequiredIf requires target when field equals trigger and forbids it
// otherwise.
func RequiredIf(trigger Token, field, target string) Rule {
	return RequiredIfIn(Vocabulary{trigger}, field, target)
}

// RequiredIfIn is RequiredIf for a set of trigger values.
func RequiredIfIn(triggers Vocabulary, field, target string) Rule {
	return Pure(func(rec Record) error {
		triggered, err := Triggered(rec, triggers, field)
		if err != nil {
			return err
		}
		return CheckRequired(rec, triggered, target)
	})
}

// NotRequiredIf forbids target when field equals trigger. It says nothing
// about target otherwise.
func NotRequiredIf(trigger Token, field, target string) Rule {
	return Pure(func(rec Record) error {
		triggered, err := Triggered(rec, Vocabulary{trigger}, field)
		if err != nil {
			return err
		}
		if triggered && rec.Present(target) {
			return Failf(target, FieldNotRequired, MsgNotRequired)
		}
		return nil
	})
}

// RequiredIfNotNone requires target whenever field has any value and
// forbids it when field is empty.
func RequiredIfNotNone(field, target string) Rule {
	return Pure(func(rec Record) error {
		return CheckRequired(rec, rec.Present(field), target)
	})
}

// ApplicableIf requires a substantive answer in target when field equals
// trigger, and the N/A token when it does not.
func ApplicableIf(trigger Token, field, target string) Rule {
	return Pure(func(rec Record) error {
		triggered, err := Triggered(rec, Vocabulary{trigger}, field)
		if err != nil {
			return err
		}
		return CheckApplicable(rec, triggered, target)
	})
}

// OtherSpecify requires other when field is OTHER and forbids it
// otherwise.
func OtherSpecify(field, other string) Rule {
	return OtherSpecifyFor(Other, field, other)
}

// OtherSpecifyFor is OtherSpecify for forms whose "other" choice uses a
// different token.
func OtherSpecifyFor(otherValue Token, field, other string) Rule {
	return Pure(func(rec Record) error {
		tok, _ := rec.Token(field)
		return CheckRequired(rec, tok == otherValue, other)
	})
}

// Required requires field unconditionally.
func Required(field string) Rule {
	return Pure(func(rec Record) error {
		return CheckRequired(rec, true, field)
	})
}

// OneOf rejects a provided value outside vocab.
func OneOf(field string, vocab Vocabulary) Rule {
	return Pure(func(rec Record) error {
		tok, ok := rec.Token(field)
		if ok && !vocab.Contains(tok) {
			return invalidChoice(field, tok)
		}
		return nil
	})
}

// Triggered reports whether field holds one of triggers. When the triggers
// come from the clinical vocabularies, a value outside them is rejected
// instead of being read as "not triggered".
func Triggered(rec Record, triggers Vocabulary, field string) (bool, error) {
	tok, ok := rec.Token(field)
	if !ok {
		return false, nil
	}
	if clinicalTriggers(triggers) && !tok.Known() {
		return false, invalidChoice(field, tok)
	}
	return triggers.Contains(tok), nil
}

// CheckRequired enforces presence of target when required is true and
// absence otherwise.
func CheckRequired(rec Record, required bool, target string) error {
	present := rec.Present(target)
	switch {
	case required && !present:
		return Failf(target, FieldRequired, MsgRequired)
	case !required && present:
		return Failf(target, FieldNotRequired, MsgNotRequired)
	}
	return nil
}

// CheckApplicable enforces a substantive answer in target when applicable
// is true and N/A otherwise.
func CheckApplicable(rec Record, applicable bool, target string) error {
	tok, present := rec.Token(target)
	if applicable {
		if !present || tok == NotApplicable {
			return Failf(target, FieldApplicable, MsgApplicable)
		}
		return nil
	}
	if tok != NotApplicable {
		return Failf(target, FieldNotApplicable, MsgNotApplicable)
	}
	return nil
}

func clinicalTriggers(triggers Vocabulary) bool {
	for _, t := range triggers {
		if !t.Known() {
			return false
		}
	}
	return len(triggers) > 0
}

func invalidChoice(field string, tok Token) error {
	return Failf(field, InconsistentValue, "Invalid choice %q.", strings.TrimSpace(string(tok)))
}
