// Package submission exposes the form validators over HTTP and persists
// the records that pass them.
package submission

import (
	"sort"

	"github.com/ehr/edc/internal/domain/antenatal"
	"github.com/ehr/edc/internal/domain/arv"
	"github.com/ehr/edc/internal/domain/postnatal"
	"github.com/ehr/edc/internal/domain/screening"
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/domain/visit"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// Form groups.
const (
	GroupScreening = "screening"
	GroupAntenatal = "antenatal"
	GroupArv       = "arv"
	GroupPostnatal = "postnatal"
	GroupVisit     = "visit"
)

// FormInfo describes one entry of the catalog.
type FormInfo struct {
	Form  string `json:"form"`
	Group string `json:"group"`
	// Inline lists the inline item fields that are also stored as records
	// of their own type.
	Inline []string `json:"inline,omitempty"`
}

type entry struct {
	info      FormInfo
	validator *crf.Validator
	inline    map[string]lookup.RecordType
}

// Catalog holds one validator per form. It is immutable after NewCatalog.
type Catalog struct {
	entries map[string]entry
	forms   []string
}

// NewCatalog builds every validator against p and m.
func NewCatalog(p lookup.Provider, m subject.Models) *Catalog {
	c := &Catalog{entries: make(map[string]entry)}
	c.add(GroupScreening, screening.Validators(p, m))
	c.add(GroupAntenatal, antenatal.Validators(p, m))
	c.add(GroupArv, arv.Validators(p, m))
	c.add(GroupPostnatal, postnatal.Validators(p, m))
	c.add(GroupVisit, visit.Validators(p, m))

	// Each pregnancy ARV row becomes a maternal_arv record so that labour
	// and delivery can find the ongoing regimen.
	c.inline(arv.PregnancyForm, arv.PregnancyItemsField, m.Arv)

	sort.Strings(c.forms)
	return c
}

func (c *Catalog) add(group string, validators []*crf.Validator) {
	for _, v := range validators {
		c.entries[v.Form()] = entry{
			info:      FormInfo{Form: v.Form(), Group: group},
			validator: v,
		}
		c.forms = append(c.forms, v.Form())
	}
}

func (c *Catalog) inline(form, field string, t lookup.RecordType) {
	e, ok := c.entries[form]
	if !ok {
		return
	}
	if e.inline == nil {
		e.inline = make(map[string]lookup.RecordType)
	}
	e.inline[field] = t
	e.info.Inline = append(e.info.Inline, field)
	c.entries[form] = e
}

// Validator returns the validator of form.
func (c *Catalog) Validator(form string) (*crf.Validator, bool) {
	e, ok := c.entries[form]
	return e.validator, ok
}

// Forms lists the catalog in form-name order.
func (c *Catalog) Forms() []FormInfo {
	out := make([]FormInfo, 0, len(c.forms))
	for _, f := range c.forms {
		out = append(out, c.entries[f].info)
	}
	return out
}

func (c *Catalog) inlineTypes(form string) map[string]lookup.RecordType {
	return c.entries[form].inline
}
