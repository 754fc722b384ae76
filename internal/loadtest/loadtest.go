// Package loadtest drives concurrent GET /delivery-hours traffic against a
// running service and summarises latency and status codes.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

const maxKeptErrors = 5

// Target is one venue/city pair; Weight sets its share of the traffic.
type Target struct {
	VenueID string
	City    string
	Weight  int
}

type Config struct {
	BaseURL  string
	Duration time.Duration
	Workers  int
	// RPS caps the combined request rate; zero means as fast as the workers go.
	RPS     float64
	Targets []Target
	Client  *http.Client
}

type Result struct {
	TotalDuration time.Duration `json:"total_duration"`
	Requests      int64         `json:"requests"`
	Succeeded     int64         `json:"succeeded"`
	Failed        int64         `json:"failed"`
	StatusCounts  map[int]int64 `json:"status_counts"`
	AvgLatency    time.Duration `json:"avg_latency"`
	P50Latency    time.Duration `json:"p50_latency"`
	P95Latency    time.Duration `json:"p95_latency"`
	P99Latency    time.Duration `json:"p99_latency"`
	QPS           float64       `json:"qps"`
	Errors        []string      `json:"errors,omitempty"`
}

type Runner struct {
	cfg         Config
	logger      logger.Logger
	limiter     *rate.Limiter
	totalWeight int

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
	failed    int64
	errs      []string
}

func NewRunner(cfg Config, log logger.Logger) (*Runner, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.Workers < 1 {
		return nil, errors.New("workers must be at least 1")
	}
	if cfg.Duration <= 0 {
		return nil, errors.New("duration must be positive")
	}
	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	r := &Runner{cfg: cfg, logger: log, statuses: make(map[int]int64)}
	for _, t := range cfg.Targets {
		if t.Weight < 1 {
			return nil, fmt.Errorf("target %s/%s: weight must be positive", t.VenueID, t.City)
		}
		r.totalWeight += t.Weight
	}
	if cfg.RPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Workers)
	}
	if r.cfg.Client == nil {
		r.cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	r.cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return r, nil
}

// Run blocks until the configured duration elapses or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.logger.Info("Starting load test", "target", r.cfg.BaseURL, "duration", r.cfg.Duration, "workers", r.cfg.Workers, "rps", r.cfg.RPS)

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error { return r.worker(gctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := r.summarise(time.Since(start))
	r.logger.Info("Load test completed",
		"requests", res.Requests, "failed", res.Failed, "p95", res.P95Latency, "qps", res.QPS)
	return res, nil
}

func (r *Runner) worker(ctx context.Context) error {
	for {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		r.fire(ctx, r.pick())
	}
}

func (r *Runner) fire(ctx context.Context, t Target) {
	q := url.Values{"venue_id": {t.VenueID}, "city_slug": {t.City}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/delivery-hours?"+q.Encode(), nil)
	if err != nil {
		r.record(0, 0, err)
		return
	}

	began := time.Now()
	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		// requests cut off by the end of the run are not failures
		if ctx.Err() == nil {
			r.record(0, 0, err)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	r.record(resp.StatusCode, time.Since(began), nil)
}

func (r *Runner) record(status int, latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		if len(r.errs) < maxKeptErrors {
			r.errs = append(r.errs, err.Error())
		}
		return
	}
	r.statuses[status]++
	r.latencies = append(r.latencies, latency)
	if status < 200 || status > 299 {
		r.failed++
	}
}

func (r *Runner) pick() Target {
	n := rand.IntN(r.totalWeight)
	for _, t := range r.cfg.Targets {
		if n < t.Weight {
			return t
		}
		n -= t.Weight
	}
	return r.cfg.Targets[0]
}

func (r *Runner) summarise(elapsed time.Duration) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{
		TotalDuration: elapsed,
		StatusCounts:  make(map[int]int64, len(r.statuses)),
		Failed:        r.failed,
		Errors:        append([]string(nil), r.errs...),
	}
	transportErrs := r.failed
	for code, n := range r.statuses {
		res.StatusCounts[code] = n
		res.Requests += n
		if code < 200 || code > 299 {
			transportErrs -= n
		}
	}
	res.Requests += transportErrs
	res.Succeeded = res.Requests - res.Failed

	if len(r.latencies) > 0 {
		sorted := slices.Clone(r.latencies)
		slices.Sort(sorted)
		var sum time.Duration
		for _, l := range sorted {
			sum += l
		}
		res.AvgLatency = sum / time.Duration(len(sorted))
		res.P50Latency = percentile(sorted, 50)
		res.P95Latency = percentile(sorted, 95)
		res.P99Latency = percentile(sorted, 99)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		res.QPS = float64(res.Requests) / secs
	}
	return res
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p/100)]
}
