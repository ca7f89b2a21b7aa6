package worker_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/scriptboard/backend/internal/worker"
)

func TestPool_RunsEveryJob(t *testing.T) {
	p := worker.NewPool[int](3, 2)

	go func() {
		for i := 0; i < 10; i++ {
			n := i
			p.Submit(fmt.Sprintf("job-%d", n), func() int { return n * n })
		}
		p.Close()
	}()

	seen := make(map[string]int)
	for r := range p.Results() {
		seen[r.JobID] = r.Output
	}

	if len(seen) != 10 {
		t.Fatalf("expected 10 results, got %d", len(seen))
	}
	for i := 0; i < 10; i++ {
		if got := seen[fmt.Sprintf("job-%d", i)]; got != i*i {
			t.Errorf("job-%d: expected %d, got %d", i, i*i, got)
		}
	}
}

func TestPool_CloseWithoutJobs(t *testing.T) {
	p := worker.NewPool[string](2, 0)
	p.Close()
	p.Close()

	if _, ok := <-p.Results(); ok {
		t.Error("expected results to be closed")
	}
}

func TestPool_ZeroWorkersStillRuns(t *testing.T) {
	var ran atomic.Int32
	p := worker.NewPool[bool](0, 1)

	p.Submit("only", func() bool {
		ran.Add(1)
		return true
	})
	p.Close()

	for range p.Results() {
	}
	if ran.Load() != 1 {
		t.Errorf("expected job to run once, got %d", ran.Load())
	}
}
