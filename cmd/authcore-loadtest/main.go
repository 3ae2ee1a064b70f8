// Command authcore-loadtest measures the Redis hot paths of the session
// lifecycle: the deny-list read on every authenticated request and the
// single-use refresh rotation.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore/refresh"
	"github.com/MrEthical07/authcore/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sessionState struct {
	raw string
	mu  sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of refresh sessions to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (revocation check + refresh)")
		revokedPct  = flag.Int("revoked-pct", 5, "percentage of token ids placed on the deny-list")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *revokedPct < 0 || *revokedPct > 100 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0; revoked-pct must be 0..100")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := refresh.NewStore(client, refresh.Config{Prefix: "lt:rt:", UserPrefix: "lt:rtu:"})
	registry := revocation.NewRegistry(client, "lt:bl:")

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	states, tokenIDs, err := seed(ctx, store, registry, *sessions, *revokedPct)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	revocationStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		_, err := registry.IsRevoked(ctx, tokenIDs[r.Intn(len(tokenIDs))])
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		return rotate(ctx, store, &states[r.Intn(len(states))])
	})

	fmt.Println("---- results ----")
	printStats("revocation-check", revocationStats)
	printStats("refresh-rotate", refreshStats)
}

func seed(ctx context.Context, store *refresh.Store, registry *revocation.Registry, n, revokedPct int) ([]sessionState, []string, error) {
	states := make([]sessionState, n)
	tokenIDs := make([]string, n)
	for i := 0; i < n; i++ {
		raw, err := store.Issue(ctx, fmt.Sprintf("user-%d", i%1000), 24*time.Hour)
		if err != nil {
			return nil, nil, err
		}
		states[i].raw = raw

		tokenIDs[i] = fmt.Sprintf("jti-%d", i)
		if i%100 < revokedPct {
			if err := registry.Revoke(ctx, tokenIDs[i], 15*time.Minute); err != nil {
				return nil, nil, err
			}
		}
	}
	return states, tokenIDs, nil
}

// rotate redeems the session's current token and stores its successor.
func rotate(ctx context.Context, store *refresh.Store, state *sessionState) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	sess, err := store.Redeem(ctx, state.raw)
	if err != nil {
		return err
	}
	next, err := store.Issue(ctx, sess.UserID, 24*time.Hour)
	if err != nil {
		return err
	}
	state.raw = next
	return nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
