package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/edc/internal/config"
	"github.com/ehr/edc/internal/domain/subject"
	"github.com/ehr/edc/internal/domain/submission"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
)

// errInvalidSubmissions makes the command exit non-zero without printing
// the error twice.
var errInvalidSubmissions = errors.New("one or more submissions are invalid")

// submissionFile is the JSON shape of a submission passed as an argument.
type submissionFile struct {
	Form   string     `json:"form"`
	Record crf.Record `json:"record"`
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [submission.json ...]",
		Short: "Validate submissions offline against a YAML fixture of stored records",
		Long: "Validate seeds an in-memory store from --fixture, then validates the fixture's\n" +
			"submissions and every JSON file given as an argument. Each JSON file holds\n" +
			`{"form": "...", "record": {...}}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixturePath, _ := cmd.Flags().GetString("fixture")
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			asJSON, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tables, err := recordTables(cfg)
			if err != nil {
				return err
			}
			m, err := models(cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.ValidateConcurrency
			}

			results, err := runValidate(cmd, tables, m, fixturePath, args, concurrency)
			if err != nil {
				return err
			}
			if asJSON {
				err = writeJSONResults(cmd.OutOrStdout(), results)
			} else {
				writeTextResults(cmd.OutOrStdout(), results)
			}
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Err != nil {
					cmd.SilenceErrors = true
					return errInvalidSubmissions
				}
			}
			return nil
		},
	}
	cmd.Flags().String("fixture", "", "YAML fixture with stored records and submissions")
	cmd.Flags().Int("concurrency", 8, "Maximum validations in flight (overrides VALIDATE_CONCURRENCY)")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	return cmd
}

func runValidate(cmd *cobra.Command, tables map[lookup.RecordType]string, m subject.Models, fixturePath string, files []string, concurrency int) ([]submission.Result, error) {
	ctx := cmd.Context()
	store := lookup.NewMemoryStore()
	st := newStack(store, tables, m, zerolog.Nop())

	var inputs []submission.Input
	if fixturePath != "" {
		raw, err := os.ReadFile(fixturePath)
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		fixture, err := lookup.LoadFixture(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		if _, err := fixture.Seed(ctx, store, tables); err != nil {
			return nil, fmt.Errorf("seed fixture: %w", err)
		}
		for i, s := range fixture.Submissions {
			inputs = append(inputs, submission.Input{
				Name:   fmt.Sprintf("%s#%d", filepath.Base(fixturePath), i+1),
				Form:   s.Form,
				Record: crf.Record(s.Record),
			})
		}
	}

	for _, path := range files {
		in, err := readSubmission(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("nothing to validate: pass --fixture with submissions or submission files")
	}
	return st.service.ValidateAll(ctx, inputs, concurrency)
}

func readSubmission(path string) (submission.Input, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return submission.Input{}, fmt.Errorf("read submission: %w", err)
	}
	var f submissionFile
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&f); err != nil {
		return submission.Input{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if f.Form == "" {
		return submission.Input{}, fmt.Errorf("%s: form is required", path)
	}
	if f.Record == nil {
		f.Record = crf.Record{}
	}
	return submission.Input{Name: filepath.Base(path), Form: f.Form, Record: f.Record}, nil
}

func writeTextResults(w io.Writer, results []submission.Result) {
	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintf(w, "ok    %s (%s)\n", r.Name, r.Form)
			continue
		}
		vf, ok := crf.AsValidationFailed(r.Err)
		if !ok {
			fmt.Fprintf(w, "error %s (%s): %v\n", r.Name, r.Form, r.Err)
			continue
		}
		fmt.Fprintf(w, "FAIL  %s (%s)\n", r.Name, r.Form)
		for _, fe := range vf.Errors {
			fmt.Fprintf(w, "      %s [%s]: %s\n", fe.Field, fe.Kind, fe.Message)
		}
	}
}

type jsonResult struct {
	Name   string           `json:"name"`
	Form   string           `json:"form"`
	Valid  bool             `json:"valid"`
	Errors []crf.FieldError `json:"errors,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func writeJSONResults(w io.Writer, results []submission.Result) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		jr := jsonResult{Name: r.Name, Form: r.Form, Valid: r.Err == nil}
		if vf, ok := crf.AsValidationFailed(r.Err); ok {
			jr.Errors = vf.Errors
		} else if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		out = append(out, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
