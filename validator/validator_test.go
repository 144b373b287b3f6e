package validator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/newsprobe/sources"
)

// checkerFunc adapts a function to the Checker interface.
type checkerFunc func(ctx context.Context, c sources.Candidate) sources.Record

func (f checkerFunc) Process(ctx context.Context, c sources.Candidate) sources.Record {
	return f(ctx, c)
}

func makeCandidates(n int) []sources.Candidate {
	candidates := make([]sources.Candidate, n)
	for i := range candidates {
		candidates[i] = sources.Candidate{
			Name:    fmt.Sprintf("Source %d", i),
			Link:    fmt.Sprintf("https://site%d.example", i),
			Country: "Chile",
		}
	}
	return candidates
}

// usableEvenChecker marks every even numbered site usable.
func usableEvenChecker(_ context.Context, c sources.Candidate) sources.Record {
	r := sources.NewRecord(c)
	var n int
	fmt.Sscanf(r.Domain, "site%d.example", &n)
	r.IsDomainUp = true
	if n%2 == 0 {
		r.IsRSSFeedAvailable = true
		r.IsRSSFeedValid = true
		r.IsScrapingAllowed = true
	}
	r.Decide()
	return r
}

// TestRun_SinksEveryRecord verifies every candidate reaches the sink once
// and the counters add up.
func TestRun_SinksEveryRecord(t *testing.T) {
	v := New(checkerFunc(usableEvenChecker), Config{Concurrency: 4})

	seen := make(map[string]int)
	summary, err := v.Run(context.Background(), makeCandidates(10), func(r sources.Record) error {
		seen[r.Domain]++
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, seen, 10)
	for domain, count := range seen {
		assert.Equal(t, 1, count, "domain %s", domain)
	}

	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, int64(10), summary.Processed)
	assert.Equal(t, int64(5), summary.Usable)
	assert.Equal(t, int64(10), summary.DomainUp)
	assert.Equal(t, int64(5), summary.FeedValid)
	assert.Equal(t, 50.0, summary.UsablePercent())
	assert.Equal(t, int64(10), v.Stats().Processed.Load())
}

// TestRun_BoundsConcurrency verifies no more than Concurrency checks run at
// once.
func TestRun_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	checker := checkerFunc(func(ctx context.Context, c sources.Candidate) sources.Record {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return sources.NewRecord(c)
	})

	v := New(checker, Config{Concurrency: 3})
	_, err := v.Run(context.Background(), makeCandidates(20), func(sources.Record) error { return nil })
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.GreaterOrEqual(t, peak.Load(), int64(1))
}

// TestRun_SinkIsSerial verifies the sink is never called concurrently.
func TestRun_SinkIsSerial(t *testing.T) {
	var inSink atomic.Bool
	overlapped := false

	v := New(checkerFunc(usableEvenChecker), Config{Concurrency: 8})
	_, err := v.Run(context.Background(), makeCandidates(50), func(sources.Record) error {
		if !inSink.CompareAndSwap(false, true) {
			overlapped = true
		}
		time.Sleep(time.Millisecond)
		inSink.Store(false)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, overlapped)
}

// TestRun_SinkErrorStopsRun verifies a failing sink aborts the run.
func TestRun_SinkErrorStopsRun(t *testing.T) {
	errDisk := errors.New("disk full")
	var calls atomic.Int64

	v := New(checkerFunc(usableEvenChecker), Config{Concurrency: 2})
	_, err := v.Run(context.Background(), makeCandidates(100), func(sources.Record) error {
		if calls.Add(1) == 3 {
			return errDisk
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.Equal(t, int64(3), calls.Load(), "no record reaches the sink after it fails")
}

// TestRun_CancelledContext verifies cancellation is reported.
func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	v := New(checkerFunc(func(ctx context.Context, c sources.Candidate) sources.Record {
		calls.Add(1)
		return sources.NewRecord(c)
	}), Config{Concurrency: 2})

	_, err := v.Run(ctx, makeCandidates(10), func(sources.Record) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load(), "nothing is dispatched on a cancelled context")
}

// TestRun_CancelledMidRun verifies checks interrupted by cancellation never
// reach the sink and are not counted.
func TestRun_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fast := map[string]bool{"site0.example": true, "site1.example": true}
	checker := checkerFunc(func(ctx context.Context, c sources.Candidate) sources.Record {
		r := sources.NewRecord(c)
		if fast[r.Domain] {
			return usableEvenChecker(ctx, c)
		}
		<-ctx.Done()
		return r
	})

	var sunk []sources.Record
	v := New(checker, Config{Concurrency: 8})
	summary, err := v.Run(ctx, makeCandidates(8), func(r sources.Record) error {
		sunk = append(sunk, r)
		if len(sunk) == len(fast) {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, sunk, len(fast), "interrupted checks must not be written as dead sites")
	for _, r := range sunk {
		assert.True(t, fast[r.Domain], "unexpected record for %s", r.Domain)
		assert.True(t, r.IsDomainUp)
	}
	assert.Equal(t, int64(len(fast)), summary.Processed)
	assert.Equal(t, 8, summary.Total)
}

// TestRun_SinkErrorNotCounted verifies a record the sink rejected is not
// counted as processed.
func TestRun_SinkErrorNotCounted(t *testing.T) {
	v := New(checkerFunc(usableEvenChecker), Config{Concurrency: 1})
	summary, err := v.Run(context.Background(), makeCandidates(5), func(sources.Record) error {
		return errors.New("disk full")
	})

	require.Error(t, err)
	assert.Equal(t, int64(0), summary.Processed)
}

// TestRun_NoCandidates verifies an empty input is a successful empty run.
func TestRun_NoCandidates(t *testing.T) {
	v := New(checkerFunc(usableEvenChecker), Config{})

	summary, err := v.Run(context.Background(), nil, func(sources.Record) error {
		t.Error("sink must not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Processed)
	assert.Equal(t, 0.0, summary.UsablePercent())
}
