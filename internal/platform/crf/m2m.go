package crf

// M2MRequired requires at least one selection in m2m when field equals
// trigger and no selection otherwise.
func M2MRequired(trigger Token, field, m2m string) Rule {
	return Pure(func(rec Record) error {
		triggered, err := Triggered(rec, Vocabulary{trigger}, field)
		if err != nil {
			return err
		}
		selected := len(rec.Strings(m2m)) > 0
		switch {
		case triggered && !selected:
			return Failf(m2m, FieldRequired, MsgRequired)
		case !triggered && selected:
			return Failf(m2m, FieldNotRequired, MsgNotRequired)
		}
		return nil
	})
}

// M2MNotApplicable requires N/A as the sole selection of m2m unless field
// equals trigger, in which case N/A must not be selected at all.
func M2MNotApplicable(trigger Token, field, m2m string) Rule {
	return Pure(func(rec Record) error {
		triggered, err := Triggered(rec, Vocabulary{trigger}, field)
		if err != nil {
			return err
		}
		return CheckM2MApplicable(rec, triggered, m2m)
	})
}

// M2MSingleSelection rejects a selection of exclusive alongside any other
// choice (e.g. "None" together with a diagnosis).
func M2MSingleSelection(m2m string, exclusive string) Rule {
	return Pure(func(rec Record) error {
		selections := rec.Strings(m2m)
		if len(selections) > 1 && contains(selections, exclusive) {
			return Failf(m2m, InconsistentValue, "%s cannot be selected together with other options.", exclusive)
		}
		return nil
	})
}

// M2MOtherSpecify requires other when OTHER is among the selections of m2m
// and forbids it otherwise.
func M2MOtherSpecify(m2m, other string) Rule {
	return M2MOtherSpecifyFor(string(Other), m2m, other)
}

// M2MOtherSpecifyFor is M2MOtherSpecify keyed by a different short name.
func M2MOtherSpecifyFor(shortName, m2m, other string) Rule {
	return Pure(func(rec Record) error {
		return CheckRequired(rec, contains(rec.Strings(m2m), shortName), other)
	})
}

// CheckM2MApplicable is the M2MNotApplicable check for a condition derived
// elsewhere, such as the subject's HIV status.
func CheckM2MApplicable(rec Record, applicable bool, m2m string) error {
	selections := rec.Strings(m2m)
	hasNA := contains(selections, string(NotApplicable))
	if applicable {
		if len(selections) == 0 {
			return Failf(m2m, FieldRequired, MsgRequired)
		}
		if hasNA {
			return Failf(m2m, FieldApplicable, "This field is applicable. Do not select %s.", NotApplicable)
		}
		return nil
	}
	if !hasNA {
		return Failf(m2m, FieldNotApplicable, "This field is not applicable. Select %s only.", NotApplicable)
	}
	if len(selections) > 1 {
		return Failf(m2m, FieldNotApplicable, "%s must be the only selection.", NotApplicable)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
