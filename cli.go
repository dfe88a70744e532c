package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/config"
	"github.com/giygas/pedscalc-api/dosage"
	"github.com/giygas/pedscalc-api/i18n"
	"github.com/giygas/pedscalc-api/interfaces"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/render"
	"github.com/giygas/pedscalc-api/validation"
	"github.com/spf13/cobra"
)

type calcOptions struct {
	weight      float64
	weightUnit  string
	age         float64
	ageUnit     string
	lang        string
	selections  []string
	catalogPath string
	asJSON      bool
}

func calcCmd() *cobra.Command {
	opts := &calcOptions{}

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Print the doses for one patient",
		Example: "  pedscalc calc --weight 10 --age 2\n" +
			"  pedscalc calc --weight 22 --weight-unit lbs --age 18 --age-unit months --lang ar\n" +
			"  pedscalc calc --weight 10 --age 2 --select dopamine-infusion=10",
		RunE: func(cmd *cobra.Command, args []string) error {
			quietLogs()
			return runCalc(cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.weight, "weight", 0, "patient weight")
	flags.StringVar(&opts.weightUnit, "weight-unit", validation.UnitKg, "weight unit: kg or lbs")
	flags.Float64Var(&opts.age, "age", 0, "patient age")
	flags.StringVar(&opts.ageUnit, "age-unit", validation.UnitYears, "age unit: years or months")
	flags.StringVar(&opts.lang, "lang", i18n.DefaultLocale, "output language: "+strings.Join(i18n.Supported(), ", "))
	flags.StringArrayVar(&opts.selections, "select", nil, "infusion rate selection as id=rate, repeatable")
	flags.StringVar(&opts.catalogPath, "catalog", os.Getenv("CATALOG_PATH"), "catalog file, the embedded catalog when empty")
	flags.BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("weight")
	_ = cmd.MarkFlagRequired("age")

	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the medication catalog",
	}

	var file string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a catalog and print its warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			quietLogs()
			return runValidate(cmd.OutOrStdout(), file)
		},
	}
	validateCmd.Flags().StringVar(&file, "file", os.Getenv("CATALOG_PATH"), "catalog file, the embedded catalog when empty")

	cmd.AddCommand(validateCmd)
	return cmd
}

// quietLogs keeps calculation debug logs out of command output
func quietLogs() {
	logging.InitLoggerWithOptions("", logging.Options{
		Env:   config.EnvProduction,
		Level: "error",
	})
}

func runCalc(out io.Writer, opts *calcOptions) error {
	locale := i18n.ResolveLocale(opts.lang, "", i18n.DefaultLocale)

	loaded, err := catalog.Load(opts.catalogPath)
	if err != nil {
		return err
	}

	validator := validation.NewPatientValidator()
	patient, err := validator.ValidatePatient(interfaces.PatientInput{
		Weight:     opts.weight,
		WeightUnit: opts.weightUnit,
		Age:        opts.age,
		AgeUnit:    opts.ageUnit,
	})
	if err != nil {
		return localizedError(err, locale)
	}

	selections, err := parseSelections(validator, opts.selections)
	if err != nil {
		return localizedError(err, locale)
	}

	result, err := render.NewRenderer(loaded.Catalog).Render(render.Request{
		Patient:    patient,
		Age:        opts.age,
		AgeUnit:    strings.ToLower(strings.TrimSpace(opts.ageUnit)),
		Locale:     locale,
		Selections: selections,
	})
	if err != nil {
		return localizedError(err, locale)
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(out, result)
}

// parseSelections reads id=rate pairs
func parseSelections(validator interfaces.PatientValidator, pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	selections := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		id, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not id=rate", render.ErrRateNotOffered, pair)
		}
		if err := validator.ValidateMedicationID(id); err != nil {
			return nil, fmt.Errorf("%w: %v", render.ErrRateNotOffered, err)
		}
		rate, err := validator.ParseNumber(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", render.ErrRateNotOffered, err)
		}
		selections[id] = rate
	}
	return selections, nil
}

// localizedError pairs the message a user sees with the underlying cause
func localizedError(err error, locale string) error {
	key := ""
	switch {
	case errors.Is(err, validation.ErrInvalidWeight):
		key = "weight_error"
	case errors.Is(err, validation.ErrInvalidUnit):
		key = "unit_error"
	case errors.Is(err, validation.ErrInvalidAge):
		key = "age_error"
	case errors.Is(err, render.ErrRateNotOffered):
		key = "rate_error"
	default:
		return err
	}
	return fmt.Errorf("%s (%w)", i18n.Lookup(key, locale), err)
}

func printResult(out io.Writer, result *render.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%s\n", result.Title)
	fmt.Fprintf(w, "%s\t%s kg\t%s\n",
		i18n.Lookup("weight", result.Locale),
		dosage.FormatNumber(result.Patient.WeightKg, 2),
		result.Patient.AgeDisplay,
	)

	for _, cat := range result.Categories {
		fmt.Fprintf(w, "\n== %s ==\n", cat.Title)
		for _, rec := range cat.Medications {
			if rec.Infusion == nil {
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Name, rec.DosageText, rec.RouteText)
				continue
			}

			inf := rec.Infusion
			rate := fmt.Sprintf("%s %s", dosage.FormatNumber(inf.SelectedRate, 4), inf.Unit)
			switch {
			case inf.Unsupported:
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Name, rate, inf.Warning)
			default:
				fmt.Fprintf(w, "%s\t%s\t%s mL/h\t%s\n", rec.Name, rate, dosage.FormatNumber(*inf.MLPerHour, 2), inf.PreparationText)
				if inf.Warning != "" {
					fmt.Fprintf(w, "\t%s\n", inf.Warning)
				}
			}
		}
	}

	return w.Flush()
}

func runValidate(out io.Writer, path string) error {
	source := catalog.DefaultSource
	if path != "" {
		source = path
	}

	loaded, err := catalog.Load(path)
	if err != nil {
		fmt.Fprintf(out, "catalog %s: INVALID\n", source)
		return err
	}

	fmt.Fprintf(out, "catalog %s: OK\n", loaded.Source)
	fmt.Fprintf(out, "version:     %s\n", loaded.Catalog.Version)
	fmt.Fprintf(out, "medications: %d\n", loaded.Catalog.Count())
	fmt.Fprintf(out, "checksum:    %s\n", loaded.Checksum)
	fmt.Fprintf(out, "warnings:    %d\n", len(loaded.Report.Warnings))
	for _, warning := range loaded.Report.Warnings {
		fmt.Fprintf(out, "  - %s\n", warning)
	}
	return nil
}
