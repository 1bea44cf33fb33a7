package launch

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"stormfit/pkg/definitions"
)

// TestDefaultConfig verifies the defaults come from the constants table
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ThreadsPerBlock != definitions.BlockSize {
		t.Errorf("Expected %d threads per block, got %d", definitions.BlockSize, cfg.ThreadsPerBlock)
	}
	if cfg.BlocksPerKernel != definitions.NumKernelBlocks {
		t.Errorf("Expected %d blocks per kernel, got %d", definitions.NumKernelBlocks, cfg.BlocksPerKernel)
	}
	if cfg.FitsPerInvocation() != 64*128 {
		t.Errorf("Expected %d fits per invocation, got %d", 64*128, cfg.FitsPerInvocation())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default configuration should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"defaults", Config{64, 128, 4}, true},
		{"smaller block", Config{32, 16, 1}, true},
		{"zero cores uses all", Config{64, 128, 0}, true},
		{"block too large", Config{definitions.BlockSize + 1, 128, 1}, false},
		{"zero threads", Config{0, 128, 1}, false},
		{"zero blocks", Config{64, 0, 1}, false},
		{"too many blocks", Config{64, definitions.NumKernelBlocks + 1, 1}, false},
		{"overflowing blocks", Config{64, math.MaxInt / 32, 1}, false},
		{"negative cores", Config{64, 128, -1}, false},
	}

	for _, tc := range testCases {
		err := tc.cfg.Validate()
		if tc.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.valid {
			if err == nil {
				t.Errorf("%s: expected an error", tc.name)
			} else if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
			}
		}
	}
}

// TestNewPlan checks the invocation split for several fit counts
func TestNewPlan(t *testing.T) {
	cfg := Config{ThreadsPerBlock: 64, BlocksPerKernel: 128, NumCores: 2}

	testCases := []struct {
		nFits       int
		invocations int
		lastCount   int
		lastBlocks  int
	}{
		{1, 1, 1, 1},
		{64, 1, 64, 1},
		{65, 1, 65, 2},
		{8192, 1, 8192, 128},
		{8193, 2, 1, 1},
		{20000, 3, 20000 - 2*8192, 57},
	}

	for _, tc := range testCases {
		plan, err := NewPlan(cfg, tc.nFits)
		if err != nil {
			t.Fatalf("NewPlan(%d): %v", tc.nFits, err)
		}
		if len(plan.Invocations) != tc.invocations {
			t.Errorf("nFits=%d: expected %d invocations, got %d", tc.nFits, tc.invocations, len(plan.Invocations))
			continue
		}

		total := 0
		for i, inv := range plan.Invocations {
			if inv.Index != i {
				t.Errorf("nFits=%d: invocation %d has index %d", tc.nFits, i, inv.Index)
			}
			if inv.Offset != total {
				t.Errorf("nFits=%d: invocation %d offset %d, expected %d", tc.nFits, i, inv.Offset, total)
			}
			if inv.Blocks > definitions.NumKernelBlocks {
				t.Errorf("nFits=%d: invocation %d uses %d blocks", tc.nFits, i, inv.Blocks)
			}
			total += inv.Count
		}
		if total != tc.nFits {
			t.Errorf("nFits=%d: plan covers %d fits", tc.nFits, total)
		}

		last := plan.Invocations[len(plan.Invocations)-1]
		if last.Count != tc.lastCount || last.Blocks != tc.lastBlocks {
			t.Errorf("nFits=%d: last invocation count=%d blocks=%d, expected %d/%d",
				tc.nFits, last.Count, last.Blocks, tc.lastCount, tc.lastBlocks)
		}
	}
}

func TestNewPlanEdgeCases(t *testing.T) {
	plan, err := NewPlan(DefaultConfig(), 0)
	if err != nil {
		t.Fatalf("Unexpected error for zero fits: %v", err)
	}
	if len(plan.Invocations) != 0 {
		t.Errorf("Expected empty plan, got %d invocations", len(plan.Invocations))
	}
	if err := plan.Run(func(Thread) error { return nil }); err != nil {
		t.Errorf("Running an empty plan should succeed: %v", err)
	}

	if _, err := NewPlan(DefaultConfig(), -1); err == nil {
		t.Error("Expected error for negative fit count")
	}

	if _, err := NewPlan(Config{ThreadsPerBlock: 128, BlocksPerKernel: 1}, 10); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	// a block count whose fit total overflows must be rejected before planning
	if _, err := NewPlan(Config{ThreadsPerBlock: 64, BlocksPerKernel: math.MaxInt / 32, NumCores: 1}, 10); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for an overflowing block count, got %v", err)
	}
	if _, err := NewPlan(Config{ThreadsPerBlock: 64, BlocksPerKernel: 1000, NumCores: 1}, 64000); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for %d blocks, got %v", 1000, err)
	}
}

// TestRunVisitsEveryFitOnce runs a counting kernel over a multi-invocation plan,
// with an explicit core count and with NumCores left at zero
func TestRunVisitsEveryFitOnce(t *testing.T) {
	for _, numCores := range []int{3, 0} {
		cfg := Config{ThreadsPerBlock: 16, BlocksPerKernel: 4, NumCores: numCores}
		nFits := 150

		plan, err := NewPlan(cfg, nFits)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}

		visits := make([]int32, nFits)
		var mu sync.Mutex
		threadsSeen := make(map[Thread]bool)

		err = plan.Run(func(th Thread) error {
			atomic.AddInt32(&visits[th.Fit], 1)

			inv := plan.Invocations[th.Invocation]
			if expected := inv.Offset + th.Block*cfg.ThreadsPerBlock + th.Thread; expected != th.Fit {
				t.Errorf("cores=%d: thread %+v: expected fit %d", numCores, th, expected)
			}

			mu.Lock()
			threadsSeen[th] = true
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("cores=%d: Run: %v", numCores, err)
		}

		for i, v := range visits {
			if v != 1 {
				t.Errorf("cores=%d: fit %d visited %d times", numCores, i, v)
			}
		}
		if len(threadsSeen) != nFits {
			t.Errorf("cores=%d: expected %d distinct threads, got %d", numCores, nFits, len(threadsSeen))
		}
	}
}

func TestRunStopsOnError(t *testing.T) {
	cfg := Config{ThreadsPerBlock: 8, BlocksPerKernel: 2, NumCores: 2}
	plan, err := NewPlan(cfg, 40)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	errBadFit := errors.New("bad fit")
	var maxInvocation int32 = -1

	err = plan.Run(func(th Thread) error {
		for {
			cur := atomic.LoadInt32(&maxInvocation)
			if int32(th.Invocation) <= cur || atomic.CompareAndSwapInt32(&maxInvocation, cur, int32(th.Invocation)) {
				break
			}
		}
		if th.Fit == 20 {
			return errBadFit
		}
		return nil
	})

	if !errors.Is(err, errBadFit) {
		t.Fatalf("Expected errBadFit, got %v", err)
	}
	// fit 20 belongs to invocation 1; invocation 2 must not run
	if maxInvocation != 1 {
		t.Errorf("Expected execution to stop after invocation 1, reached %d", maxInvocation)
	}

	if err := plan.Run(nil); err == nil {
		t.Error("Expected error for nil kernel")
	}
}
