package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/platformbuilds/delivery-hours/internal/models"
	"github.com/platformbuilds/delivery-hours/internal/schedule"
)

// client talks to a running delivery hours service.
type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{base: base, http: &http.Client{Timeout: 20 * time.Second}}
}

func (c *client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s -> %s: %s", method, path, resp.Status, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func addServerFlag(cmd *cobra.Command, server *string) {
	def := os.Getenv("DELIVERY_HOURS_URL")
	if def == "" {
		def = "http://localhost:8000"
	}
	cmd.Flags().StringVar(server, "server", def, "delivery hours service base URL (env DELIVERY_HOURS_URL)")
}

func newQueryCmd() *cobra.Command {
	var server, venueID, city string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Ask a running service for the delivery hours of a venue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{"venue_id": {venueID}, "city_slug": {city}}
			var resp models.DeliveryHoursResponse
			if err := newClient(server).do(cmd.Context(), http.MethodGet, "/delivery-hours?"+q.Encode(), &resp); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			for _, d := range schedule.AllDays() {
				fmt.Fprintf(w, "%-9s %s\n", d.String()+":", resp.DeliveryHours[d.String()])
			}
			return nil
		},
	}
	addServerFlag(cmd, &server)
	cmd.Flags().StringVar(&venueID, "venue-id", "", "venue identifier")
	cmd.Flags().StringVar(&city, "city", "", "city slug")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the raw response body")
	_ = cmd.MarkFlagRequired("venue-id")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}

func newInvalidateCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:       "invalidate <venue|courier>",
		Short:     "Drop the cached upstream payloads of one service",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"venue", "courier"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp models.CacheInvalidationResponse
			if err := newClient(server).do(cmd.Context(), http.MethodDelete, "/api/v1/cache/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached %s payloads\n", resp.Deleted, resp.Service)
			return nil
		},
	}
	addServerFlag(cmd, &server)
	return cmd
}
