package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"food-recommender/internal/core/ai/provider"
)

type blockingProvider struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *blockingProvider) Generate(ctx context.Context, _ *provider.Request) (*provider.Response, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		m := p.peak.Load()
		if n <= m || p.peak.CompareAndSwap(m, n) {
			break
		}
	}
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &provider.Response{Content: "ok"}, nil
}

func (p *blockingProvider) GetModel() string          { return "blocking" }
func (p *blockingProvider) GetTimeout() time.Duration { return time.Second }
func (p *blockingProvider) Close() error              { return nil }

func TestManagerCapsConcurrentCalls(t *testing.T) {
	t.Parallel()

	p := &blockingProvider{release: make(chan struct{})}
	m := NewManager(p, 2)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Generate(context.Background(), provider.UserPrompt("x")); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.GetQueueStatus().Waiting != 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if st := m.GetQueueStatus(); st.InFlight != 2 || st.Waiting != 3 {
		t.Fatalf("expected 2 in flight and 3 waiting, got %+v", st)
	}

	close(p.release)
	wg.Wait()

	if p.peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent calls, got %d", p.peak.Load())
	}
	st := m.GetQueueStatus()
	if st.ProcessedCount != 5 || st.InFlight != 0 || st.Workers != 2 {
		t.Fatalf("unexpected status %+v", st)
	}
	if m.GetModel() != "blocking" {
		t.Fatalf("expected model passthrough")
	}
}

func TestManagerAbandonsQueuedRequestOnCancel(t *testing.T) {
	t.Parallel()

	p := &blockingProvider{release: make(chan struct{})}
	defer close(p.release)
	m := NewManager(p, 1)

	go func() {
		_, _ = m.Generate(context.Background(), provider.UserPrompt("hold"))
	}()
	deadline := time.Now().Add(2 * time.Second)
	for m.GetQueueStatus().InFlight != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Generate(ctx, provider.UserPrompt("queued"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if m.GetQueueStatus().RejectedCount != 1 {
		t.Fatalf("expected one rejected request")
	}
}
