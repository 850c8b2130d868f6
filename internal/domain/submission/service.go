package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
	"github.com/ehr/edc/internal/platform/metrics"
)

// ErrUnknownForm is returned for a form name outside the catalog.
var ErrUnknownForm = errors.New("unknown form")

// ParentIDField links an inline item record to the record it came from.
const ParentIDField = "parent_id"

// Tables resolves the table that stores a record type. *lookup.Registry
// satisfies it.
type Tables interface {
	Table(t lookup.RecordType) (string, error)
}

type Service struct {
	catalog *Catalog
	store   lookup.Store
	tables  Tables
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(catalog *Catalog, store lookup.Store, tables Tables, log zerolog.Logger) *Service {
	return &Service{catalog: catalog, store: store, tables: tables, log: log}
}

// SetMetrics attaches optional Prometheus instrumentation.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *Service) Forms() []FormInfo {
	return s.catalog.Forms()
}

// Validate runs the validator of form over rec without storing anything.
// A rule violation is returned as *crf.ValidationFailed.
func (s *Service) Validate(ctx context.Context, form string, rec crf.Record) error {
	v, ok := s.catalog.Validator(form)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownForm, form)
	}
	sub := crf.NewSubmission(form, rec)

	start := time.Now()
	err := v.Validate(ctx, sub)
	s.observe(form, sub.SubjectIdentifier(), err, time.Since(start))
	return err
}

func (s *Service) observe(form, subjectID string, err error, d time.Duration) {
	var evt *zerolog.Event
	outcome := metrics.OutcomeValid
	vf, invalid := crf.AsValidationFailed(err)
	switch {
	case err == nil:
		evt = s.log.Info()
	case invalid:
		outcome = metrics.OutcomeInvalid
		evt = s.log.Info().Strs("fields", vf.Fields())
		for _, fe := range vf.Errors {
			s.metrics.IncrementFieldError(form, string(fe.Kind))
		}
	default:
		outcome = metrics.OutcomeError
		evt = s.log.Error().Err(err)
	}
	s.metrics.ObserveValidation(form, outcome, d)

	evt.
		Str("form", form).
		Str("subject_identifier", subjectID).
		Str("outcome", outcome).
		Dur("latency", d).
		Msg("crf validated")
}

// Submit validates rec and stores it when it passes. Inline items
// configured in the catalog are stored as records of their own type,
// carrying the parent's subject, report datetime and id.
func (s *Service) Submit(ctx context.Context, form string, rec crf.Record) (string, error) {
	if err := s.Validate(ctx, form, rec); err != nil {
		return "", err
	}
	table, err := s.tables.Table(lookup.RecordType(form))
	if err != nil {
		return "", err
	}

	stored := stamp(crf.NewSubmission(form, rec), rec.Clone())
	id, err := s.store.Save(ctx, table, stored)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", form, err)
	}

	for field, t := range s.catalog.inlineTypes(form) {
		itemTable, err := s.tables.Table(t)
		if err != nil {
			return id, err
		}
		for _, item := range stored.Records(field) {
			row := item.Clone()
			row[crf.SubjectIdentifierField] = stored[crf.SubjectIdentifierField]
			row[crf.ReportDatetimeField] = stored[crf.ReportDatetimeField]
			row[ParentIDField] = id
			if _, err := s.store.Save(ctx, itemTable, row); err != nil {
				return id, fmt.Errorf("store %s item: %w", field, err)
			}
		}
	}

	s.metrics.IncrementStored(form)
	s.log.Info().Str("form", form).Str("id", id).Msg("crf stored")
	return id, nil
}

// stamp copies the subject and report datetime resolved through the visit
// onto the record so that later lookups can filter on them directly.
func stamp(sub *crf.Submission, rec crf.Record) crf.Record {
	if !rec.Present(crf.SubjectIdentifierField) {
		if id := sub.SubjectIdentifier(); id != "" {
			rec[crf.SubjectIdentifierField] = id
		}
	}
	if !rec.Present(crf.ReportDatetimeField) {
		if t, ok := sub.ReportDatetime(); ok {
			rec[crf.ReportDatetimeField] = t
		}
	}
	return rec
}

// List returns the stored records of form, newest first, optionally
// restricted to one subject.
func (s *Service) List(ctx context.Context, form, subjectID string, limit, offset int) ([]crf.Record, int, error) {
	if _, ok := s.catalog.Validator(form); !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownForm, form)
	}
	table, err := s.tables.Table(lookup.RecordType(form))
	if err != nil {
		return nil, 0, err
	}
	f := lookup.Filter{}
	if subjectID != "" {
		f = lookup.Subject(subjectID)
	}
	return s.store.List(ctx, table, f, limit, offset)
}

// Input is one submission of a batch.
type Input struct {
	Name   string
	Form   string
	Record crf.Record
}

// Result is the outcome of one Input. Err is nil for a valid submission.
type Result struct {
	Name string
	Form string
	Err  error
}

// ValidateAll validates inputs with at most concurrency validations in
// flight. Results are in input order. It only fails when ctx is done.
func (s *Service) ValidateAll(ctx context.Context, inputs []Input, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Result{Name: in.Name, Form: in.Form, Err: s.Validate(ctx, in.Form, in.Record)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
