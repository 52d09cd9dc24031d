package main

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"
)

var httpClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type target struct {
	baseURL string
}

func main() {
	var (
		baseURL  string
		workers  int
		duration time.Duration
		refresh  float64
	)
	pflag.StringVarP(&baseURL, "url", "u", "http://127.0.0.1:8095", "summard base URL")
	pflag.IntVarP(&workers, "workers", "w", 20, "concurrent clients")
	pflag.DurationVarP(&duration, "duration", "t", 10*time.Second, "duration of each phase")
	pflag.Float64Var(&refresh, "refresh-share", 0.01, "share of requests forcing an alias refresh in the mixed phase")
	pflag.Parse()

	tg := target{baseURL: strings.TrimRight(baseURL, "/")}

	fmt.Println("=== summard load test ===")
	fmt.Printf("Target: %s | Workers: %d | Phase: %s\n\n", tg.baseURL, workers, duration)

	fmt.Print("Waiting for server... ")
	if !tg.waitHealthy(30, 200*time.Millisecond) {
		fmt.Println("FAILED: server not responding")
		os.Exit(1)
	}
	fmt.Println("OK")

	fmt.Print("Checking summary shape... ")
	if err := tg.checkSummary(); err != nil {
		fmt.Println("FAILED:", err)
		os.Exit(1)
	}
	fmt.Println("OK")

	// The first phase mostly measures cache hits, the second pays for the
	// cache invalidation every forced alias refresh causes.
	fmt.Println("\n--- Phase 1: Read-only (summary, availability, health) ---")
	runPhase(workers, duration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.70:
			return tg.get("/summary")
		case r < 0.90:
			return tg.get("/availability")
		default:
			return tg.get("/health")
		}
	})

	fmt.Printf("\n--- Phase 2: Mixed load (%.1f%% forced alias refresh) ---\n", refresh*100)
	runPhase(workers, duration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < refresh:
			return tg.post("/refreshalias")
		case r < 0.80:
			return tg.get("/summary")
		default:
			return tg.get("/availability")
		}
	})
}

func (tg target) waitHealthy(attempts int, pause time.Duration) bool {
	for i := 0; i < attempts; i++ {
		resp, err := httpClient.Get(tg.baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(pause)
	}
	return false
}

// checkSummary makes sure the endpoint answers with a report before the
// load starts, so a node outage does not look like a latency problem.
func (tg target) checkSummary() error {
	resp, err := httpClient.Get(tg.baseURL + "/summary")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Info struct {
			ID string `json:"id"`
		} `json:"info"`
		Channels []json.RawMessage `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	fmt.Printf("node %s, %d channels... ", body.Info.ID, len(body.Channels))
	return nil
}

func (tg target) get(path string) result {
	return tg.do(http.MethodGet, path)
}

func (tg target) post(path string) result {
	return tg.do(http.MethodPost, path)
}

func (tg target) do(method, path string) result {
	name := method + " " + path
	req, err := http.NewRequest(method, tg.baseURL+path, nil)
	if err != nil {
		return result{endpoint: name, err: true}
	}
	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint: name, latency: lat, err: true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint: name, status: resp.StatusCode, latency: lat, err: resp.StatusCode != http.StatusOK}
}

func runPhase(workers int, duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps, totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	slices.Sort(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		slices.Sort(s.latencies)
		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	fmt.Println("  " + strings.Repeat("-", 88))
	if totalOps == 0 {
		fmt.Println("  No requests completed")
		return
	}
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, float64(totalOps)/duration.Seconds())
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	return d[min(int(float64(len(d))*p), len(d)-1)]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
