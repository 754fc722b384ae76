// Command hoursctl works with opening-hours payloads offline and talks to a
// running delivery hours service.
//
//	hoursctl show --file venue.json
//	hoursctl intersect --venue venue.json --courier courier.yaml
//	hoursctl query --venue-id 123 --city berlin
//	hoursctl invalidate venue
//	hoursctl loadtest --target 123:berlin --duration 30s
//	hoursctl config check configs/config.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
