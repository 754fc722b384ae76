package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/delivery-hours/internal/schedule"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

type outputOptions struct {
	json   bool
	padded bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hoursctl",
		Short:         "Inspect and intersect opening-hours schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newShowCmd(), newIntersectCmd(), newQueryCmd(), newInvalidateCmd(), newLoadtestCmd(), newConfigCmd())
	return root
}

func addOutputFlags(cmd *cobra.Command, o *outputOptions) {
	cmd.Flags().BoolVar(&o.json, "json", false, "print the API response body instead of one line per day")
	cmd.Flags().BoolVar(&o.padded, "padded", false, "print zero-padded hours instead of the compact form")
}

func newShowCmd() *cobra.Command {
	var (
		file string
		out  outputOptions
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Convert one raw schedule file and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			week, err := loadWeek(file)
			if err != nil {
				return err
			}
			return printWeek(cmd.OutOrStdout(), week, out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "raw schedule file (JSON or YAML, - for stdin)")
	_ = cmd.MarkFlagRequired("file")
	addOutputFlags(cmd, &out)
	return cmd
}

func newIntersectCmd() *cobra.Command {
	var (
		venueFile, courierFile string
		out                    outputOptions
	)
	cmd := &cobra.Command{
		Use:   "intersect",
		Short: "Print the delivery hours of a venue and courier schedule pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if venueFile == "-" && courierFile == "-" {
				return fmt.Errorf("only one of --venue and --courier can read stdin")
			}
			venue, err := loadWeek(venueFile)
			if err != nil {
				return fmt.Errorf("venue: %w", err)
			}
			courier, err := loadWeek(courierFile)
			if err != nil {
				return fmt.Errorf("courier: %w", err)
			}
			week, err := venue.IntersectWith(courier)
			if err != nil {
				return err
			}
			return printWeek(cmd.OutOrStdout(), week, out)
		},
	}
	cmd.Flags().StringVar(&venueFile, "venue", "", "venue opening hours file")
	cmd.Flags().StringVar(&courierFile, "courier", "", "courier delivery hours file")
	_ = cmd.MarkFlagRequired("venue")
	_ = cmd.MarkFlagRequired("courier")
	addOutputFlags(cmd, &out)
	return cmd
}

// loadWeek reads a raw schedule. YAML is a superset of JSON, so one decoder
// handles both formats.
func loadWeek(path string) (schedule.WeeklyDeliveryWindow, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return schedule.WeeklyDeliveryWindow{}, err
	}
	raw, err := decodeRawWeek(data)
	if err != nil {
		return schedule.WeeklyDeliveryWindow{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return schedule.NewConverter(logger.New("warn")).Convert(raw), nil
}

func decodeRawWeek(data []byte) (schedule.RawWeek, error) {
	var raw schedule.RawWeek
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	normalized := make(schedule.RawWeek, len(raw))
	for day, events := range raw {
		normalized[strings.ToLower(day)] = events
	}
	return normalized, nil
}

func printWeek(w io.Writer, week schedule.WeeklyDeliveryWindow, o outputOptions) error {
	formatted := week.ToAPIFormat()
	if o.padded {
		formatted = week.Format()
	}
	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]map[string]string{"delivery_hours": formatted})
	}
	for _, d := range schedule.AllDays() {
		if _, err := fmt.Fprintf(w, "%-9s %s\n", d.String()+":", formatted[d.String()]); err != nil {
			return err
		}
	}
	return nil
}
