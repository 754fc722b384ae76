package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/platformbuilds/delivery-hours/internal/loadtest"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

func newLoadtestCmd() *cobra.Command {
	var (
		server   string
		duration time.Duration
		workers  int
		rps      float64
		targets  []string
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:     "loadtest",
		Short:   "Drive concurrent delivery-hours requests against a running service",
		Example: `  hoursctl loadtest --target 123:berlin:3 --target 456:helsinki --duration 1m --rps 100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make([]loadtest.Target, 0, len(targets))
			for _, raw := range targets {
				t, err := parseTarget(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, t)
			}
			runner, err := loadtest.NewRunner(loadtest.Config{
				BaseURL:  server,
				Duration: duration,
				Workers:  workers,
				RPS:      rps,
				Targets:  parsed,
			}, logger.New("warn"))
			if err != nil {
				return err
			}
			res, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(w, "requests   %d (%.1f/s over %s)\n", res.Requests, res.QPS, res.TotalDuration.Round(time.Millisecond))
			fmt.Fprintf(w, "succeeded  %d\nfailed     %d\n", res.Succeeded, res.Failed)
			fmt.Fprintf(w, "latency    avg %s  p50 %s  p95 %s  p99 %s\n", res.AvgLatency, res.P50Latency, res.P95Latency, res.P99Latency)
			codes := make([]int, 0, len(res.StatusCounts))
			for code := range res.StatusCounts {
				codes = append(codes, code)
			}
			slices.Sort(codes)
			for _, code := range codes {
				fmt.Fprintf(w, "status %d  %d\n", code, res.StatusCounts[code])
			}
			for _, e := range res.Errors {
				fmt.Fprintf(w, "error      %s\n", e)
			}
			return nil
		},
	}
	addServerFlag(cmd, &server)
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "how long to run")
	cmd.Flags().IntVar(&workers, "workers", 10, "concurrent workers")
	cmd.Flags().Float64Var(&rps, "rps", 0, "combined request rate cap, 0 for unlimited")
	cmd.Flags().StringArrayVar(&targets, "target", nil, "venue_id:city_slug[:weight], repeatable")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the summary as JSON")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// parseTarget reads venue_id:city_slug[:weight].
func parseTarget(raw string) (loadtest.Target, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return loadtest.Target{}, fmt.Errorf("invalid target %q, want venue_id:city_slug[:weight]", raw)
	}
	t := loadtest.Target{VenueID: parts[0], City: parts[1], Weight: 1}
	if len(parts) == 3 {
		w, err := strconv.Atoi(parts[2])
		if err != nil || w < 1 {
			return loadtest.Target{}, fmt.Errorf("invalid weight in target %q", raw)
		}
		t.Weight = w
	}
	return t, nil
}
