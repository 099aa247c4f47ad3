// Package loadtest drives synthetic matching traffic against a running
// matchmaker and reports client-side latency next to server-side Prometheus
// metrics.
package loadtest

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// Collector aggregates results from many concurrent workers. All methods are
// goroutine-safe.
type Collector struct {
	mu        sync.Mutex
	latencies []time.Duration
	requests  int
	errors    int
	empty     int
	previews  int
	startTime time.Time
	scraper   *Scraper
}

// NewCollector creates a Collector with the start time set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetScraper attaches a metrics scraper whose summary is appended to Report.
func (c *Collector) SetScraper(s *Scraper) {
	c.mu.Lock()
	c.scraper = s
	c.mu.Unlock()
}

// AddResult records one completed request and the number of previews it
// returned. Zero previews counts as an empty result.
func (c *Collector) AddResult(d time.Duration, previews int) {
	c.mu.Lock()
	c.latencies = append(c.latencies, d)
	c.requests++
	c.previews += previews
	if previews == 0 {
		c.empty++
	}
	c.mu.Unlock()
}

// AddError records a failed request.
func (c *Collector) AddError() {
	c.mu.Lock()
	c.requests++
	c.errors++
	c.mu.Unlock()
}

// Counts returns the number of requests and errors recorded so far.
func (c *Collector) Counts() (requests, errors int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests, c.errors
}

// Summary is a point-in-time view of the collected results.
type Summary struct {
	Requests int
	Errors   int
	Empty    int
	Previews int
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
	Max      time.Duration
	Avg      time.Duration
}

// Summary computes percentiles over the recorded latencies.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{Requests: c.requests, Errors: c.errors, Empty: c.empty, Previews: c.previews}
	n := len(c.latencies)
	if n == 0 {
		return s
	}
	sorted := make([]time.Duration, n)
	copy(sorted, c.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	s.Avg = sum / time.Duration(n)
	s.P50 = sorted[n/2]
	s.P95 = sorted[percentileIndex(n, 0.95)]
	s.P99 = sorted[percentileIndex(n, 0.99)]
	s.Max = sorted[n-1]
	return s
}

func percentileIndex(n int, p float64) int {
	i := int(math.Ceil(float64(n)*p)) - 1
	if i < 0 {
		return 0
	}
	return i
}

// Report writes a formatted summary to w.
func (c *Collector) Report(w io.Writer) {
	s := c.Summary()
	c.mu.Lock()
	elapsed := time.Since(c.startTime)
	scraper := c.scraper
	c.mu.Unlock()

	fmt.Fprintln(w, "\n=== Load Test Results ===")
	fmt.Fprintf(w, "Duration:     %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(w, "Requests:     %d\n", s.Requests)
	fmt.Fprintf(w, "Errors:       %d\n", s.Errors)
	if s.Requests > 0 {
		fmt.Fprintf(w, "Error rate:   %.2f%%\n", float64(s.Errors)/float64(s.Requests)*100)
		fmt.Fprintf(w, "Throughput:   %.1f req/s\n", float64(s.Requests)/elapsed.Seconds())
	}
	if ok := s.Requests - s.Errors; ok > 0 {
		fmt.Fprintf(w, "Empty:        %d\n", s.Empty)
		fmt.Fprintf(w, "Avg previews: %.1f\n", float64(s.Previews)/float64(ok))
		fmt.Fprintln(w, "\n--- Request Latency ---")
		fmt.Fprintf(w, "  avg: %v  p50: %v  p95: %v  p99: %v  max: %v  (n=%d)\n",
			s.Avg.Round(time.Microsecond),
			s.P50.Round(time.Microsecond),
			s.P95.Round(time.Microsecond),
			s.P99.Round(time.Microsecond),
			s.Max.Round(time.Microsecond),
			ok,
		)
	}
	if scraper != nil {
		scraper.Report(w)
	}
	fmt.Fprintln(w)
}
