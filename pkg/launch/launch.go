// Package launch plans fitting-kernel launches from the constants table and
// executes them on CPU goroutines.
//
// A plan divides the fits into kernel invocations. Each invocation runs at most
// BlocksPerKernel blocks of ThreadsPerBlock threads, one thread per fit.
package launch

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"stormfit/pkg/definitions"
)

// ErrInvalidConfig is returned when a launch configuration breaks the
// limits of the constants table
var ErrInvalidConfig = errors.New("invalid launch configuration")

// Config holds the launch geometry
type Config struct {
	// ThreadsPerBlock is the number of fits handled by one block
	ThreadsPerBlock int

	// BlocksPerKernel is the number of blocks run by one kernel invocation
	BlocksPerKernel int

	// NumCores is how many goroutines share the blocks of an invocation
	NumCores int
}

// DefaultConfig returns the geometry defined by the constants table
func DefaultConfig() Config {
	return Config{
		ThreadsPerBlock: definitions.BlockSize,
		BlocksPerKernel: definitions.NumKernelBlocks,
		NumCores:        runtime.NumCPU(),
	}
}

// Validate checks the configuration against the constants table
func (c Config) Validate() error {
	if c.ThreadsPerBlock <= 0 || c.ThreadsPerBlock > definitions.BlockSize {
		return fmt.Errorf("%w: threads per block %d outside (0, %d]",
			ErrInvalidConfig, c.ThreadsPerBlock, definitions.BlockSize)
	}
	if c.BlocksPerKernel <= 0 || c.BlocksPerKernel > definitions.NumKernelBlocks {
		return fmt.Errorf("%w: blocks per kernel %d outside (0, %d]",
			ErrInvalidConfig, c.BlocksPerKernel, definitions.NumKernelBlocks)
	}
	if c.NumCores < 0 {
		return fmt.Errorf("%w: negative core count %d", ErrInvalidConfig, c.NumCores)
	}
	return nil
}

// FitsPerInvocation is the largest number of fits one kernel invocation covers
func (c Config) FitsPerInvocation() int {
	return c.ThreadsPerBlock * c.BlocksPerKernel
}

// Invocation is one kernel launch over a contiguous range of fits
type Invocation struct {
	Index           int
	Offset          int
	Count           int
	Blocks          int
	ThreadsPerBlock int
}

// Thread identifies one kernel thread and the fit it owns
type Thread struct {
	Invocation int
	Block      int
	Thread     int
	Fit        int
}

// Kernel is the per-thread fitting routine supplied by the caller
type Kernel func(Thread) error

// Plan is an ordered list of invocations covering every fit exactly once
type Plan struct {
	Config      Config
	NumFits     int
	Invocations []Invocation
}

// NewPlan splits nFits into kernel invocations
func NewPlan(cfg Config, nFits int) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if nFits < 0 {
		return nil, fmt.Errorf("number of fits must be non-negative, got %d", nFits)
	}

	plan := &Plan{Config: cfg, NumFits: nFits}
	perInvocation := cfg.FitsPerInvocation()

	for offset := 0; offset < nFits; offset += perInvocation {
		count := perInvocation
		if offset+count > nFits {
			count = nFits - offset
		}
		plan.Invocations = append(plan.Invocations, Invocation{
			Index:           len(plan.Invocations),
			Offset:          offset,
			Count:           count,
			Blocks:          (count + cfg.ThreadsPerBlock - 1) / cfg.ThreadsPerBlock,
			ThreadsPerBlock: cfg.ThreadsPerBlock,
		})
	}

	return plan, nil
}

// Run executes the plan. Invocations run in order; the blocks of an
// invocation are divided among NumCores goroutines. Threads past the end of
// the fit range are not called. Run stops after the first invocation that
// reports an error and returns that error.
func (p *Plan) Run(kernel Kernel) error {
	if kernel == nil {
		return errors.New("nil kernel")
	}

	for _, inv := range p.Invocations {
		if err := p.runInvocation(inv, kernel); err != nil {
			return fmt.Errorf("invocation %d (fits %d-%d): %w",
				inv.Index, inv.Offset, inv.Offset+inv.Count-1, err)
		}
	}
	return nil
}

func (p *Plan) runInvocation(inv Invocation, kernel Kernel) error {
	numCores := p.Config.NumCores
	if numCores <= 0 {
		numCores = runtime.NumCPU()
	}
	if numCores > inv.Blocks {
		numCores = inv.Blocks
	}

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	blocksPerCore := (inv.Blocks + numCores - 1) / numCores

	for c := 0; c < numCores; c++ {
		wg.Add(1)

		go func(coreID int) {
			defer wg.Done()

			startBlock := coreID * blocksPerCore
			endBlock := (coreID + 1) * blocksPerCore
			if endBlock > inv.Blocks {
				endBlock = inv.Blocks
			}

			for b := startBlock; b < endBlock; b++ {
				for t := 0; t < inv.ThreadsPerBlock; t++ {
					local := b*inv.ThreadsPerBlock + t
					if local >= inv.Count {
						break
					}

					err := kernel(Thread{
						Invocation: inv.Index,
						Block:      b,
						Thread:     t,
						Fit:        inv.Offset + local,
					})
					if err != nil {
						once.Do(func() { firstErr = err })
					}
				}
			}
		}(c)
	}

	wg.Wait()
	return firstErr
}
