// Command loadtest drives synthetic match requests against a running
// matchmaker.
//
//   - http: POST /api/matchmaking/matches on the API server
//   - nats: request/reply on match.request against the matcher workers
//
// Usage:
//
//	loadtest <command> [options]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuslink/matchmaker/internal/loadtest"
	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/messaging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "http":
		runHTTP(os.Args[2:])
	case "nats":
		runNATS(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: loadtest <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  http    Send match requests to the API server")
	fmt.Println("  nats    Send match requests to matcher workers over NATS")
	fmt.Println()
	fmt.Println("Run 'loadtest <command> -h' for command-specific options.")
}

// common holds the flags shared by every command.
type common struct {
	requests    int
	concurrency int
	poolSize    int
	mode        string
	seed        uint64
	timeout     time.Duration
	metricsURL  string
	scrape      time.Duration
	verbose     bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.IntVar(&c.requests, "requests", 1000, "Total requests (0 = until interrupted)")
	fs.IntVar(&c.concurrency, "concurrency", 20, "Concurrent in-flight requests")
	fs.IntVar(&c.poolSize, "pool", 50, "Candidates per request")
	fs.StringVar(&c.mode, "mode", "PAIR", "Match mode: PAIR or POD_OF_THREE")
	fs.Uint64Var(&c.seed, "seed", uint64(time.Now().UnixNano()), "Random seed for synthetic profiles")
	fs.DurationVar(&c.timeout, "timeout", 10*time.Second, "Per-request timeout")
	fs.StringVar(&c.metricsURL, "metrics-url", "http://localhost:8080/metrics", "Prometheus endpoint (empty disables scraping)")
	fs.DurationVar(&c.scrape, "scrape-interval", 2*time.Second, "Interval between metrics scrapes")
	fs.BoolVar(&c.verbose, "v", false, "Log individual request failures")
}

func runHTTP(args []string) {
	fs := flag.NewFlagSet("http", flag.ExitOnError)
	var c common
	c.register(fs)
	baseURL := fs.String("url", "http://localhost:8080", "API base URL")
	token := fs.String("token", "", "Bearer token (empty sends X-User-ID)")
	fs.Parse(args)

	execute(c, "http "+*baseURL, loadtest.NewHTTPTarget(*baseURL, *token, c.timeout))
}

func runNATS(args []string) {
	fs := flag.NewFlagSet("nats", flag.ExitOnError)
	var c common
	c.register(fs)
	url := fs.String("url", "nats://localhost:4222", "NATS server URL")
	fs.Parse(args)

	cfg := messaging.DefaultNATSConfig()
	cfg.URL = *url
	cfg.Name = "matchmaker-loadtest"
	client, err := messaging.NewNATSClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to NATS: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	execute(c, "nats "+*url, loadtest.NewNATSTarget(client))
}

func execute(c common, label string, target loadtest.Target) {
	level := "info"
	if c.verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console", Timestamp: true})

	mode, err := matching.ParseMode(c.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Load test: %s (requests=%d, concurrency=%d, pool=%d, mode=%s, seed=%d)\n",
		label, c.requests, c.concurrency, c.poolSize, mode, c.seed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := loadtest.NewCollector()
	if c.metricsURL != "" {
		scraper := loadtest.NewScraper(c.metricsURL, c.scrape)
		collector.SetScraper(scraper)
		scraper.Start(ctx)
		defer func() {
			scraper.Stop()
			collector.Report(os.Stdout)
		}()
	} else {
		defer collector.Report(os.Stdout)
	}

	loadtest.Run(ctx, target, loadtest.NewSynth(c.seed, c.poolSize, mode), loadtest.RunConfig{
		Requests:    c.requests,
		Concurrency: c.concurrency,
		Timeout:     c.timeout,
		Progress:    2 * time.Second,
	}, collector)
}
