package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Phases used by talentkit.
const (
	PhaseStores    = 10
	PhaseTelemetry = 20
)

var (
	// ErrTimeout indicates shutdown did not complete within the timeout.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates one or more handlers failed.
	ErrHandlerFailed = errors.New("one or more handlers failed")
)

// Func releases one resource.
type Func func(ctx context.Context) error

// HandlerResult is the outcome of a single handler.
type HandlerResult struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a complete shutdown.
type Result struct {
	TotalDuration time.Duration
	Handlers      []HandlerResult
	Err           error
}

// FailedHandlers returns the names of handlers that failed.
func (r *Result) FailedHandlers() []string {
	var failed []string
	for _, hr := range r.Handlers {
		if hr.Err != nil {
			failed = append(failed, hr.Name)
		}
	}
	return failed
}

// Config configures the coordinator.
type Config struct {
	// DefaultTimeout bounds ShutdownWithTimeout(0) and signal-triggered shutdowns.
	DefaultTimeout time.Duration

	// OnProgress is called as each handler completes.
	OnProgress func(HandlerResult)
}

// DefaultConfig returns a 30 second timeout and no progress hook.
func DefaultConfig() Config {
	return Config{DefaultTimeout: 30 * time.Second}
}

type registration struct {
	name  string
	phase int
	fn    Func
}

// Coordinator runs registered handlers exactly once.
type Coordinator struct {
	config Config

	mu       sync.Mutex
	handlers []registration
	once     sync.Once
	done     chan struct{}
	result   *Result
}

// NewCoordinator creates a coordinator.
func NewCoordinator(config Config) *Coordinator {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	return &Coordinator{
		config: config,
		done:   make(chan struct{}),
	}
}

// RegisterFunc adds a handler in the given phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, fn: fn})
}

// Shutdown runs every handler, phase by phase. Later calls wait for the first
// to finish and return its error.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.result = c.run(ctx)
		close(c.done)
	})
	<-c.done
	return c.result.Err
}

// ShutdownWithTimeout runs Shutdown with a deadline. Zero means DefaultTimeout.
func (c *Coordinator) ShutdownWithTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.config.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

// HandleSignals returns a context that is canceled on SIGINT or SIGTERM.
// The signal also starts shutdown.
func (c *Coordinator) HandleSignals(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancel()
			_ = c.ShutdownWithTimeout(0)
		case <-c.done:
			cancel()
		}
	}()
	return ctx
}

// Done is closed once shutdown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Result returns the shutdown result, or nil before Done is closed.
func (c *Coordinator) Result() *Result {
	select {
	case <-c.done:
		return c.result
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) *Result {
	start := time.Now()

	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	result := &Result{}
	for _, group := range groupByPhase(handlers) {
		if ctx.Err() != nil {
			result.Err = ErrTimeout
			break
		}
		for _, hr := range c.runPhase(ctx, group) {
			result.Handlers = append(result.Handlers, hr)
			if hr.Err != nil && result.Err == nil {
				result.Err = ErrHandlerFailed
			}
		}
	}
	result.TotalDuration = time.Since(start)
	return result
}

func (c *Coordinator) runPhase(ctx context.Context, group []registration) []HandlerResult {
	results := make([]HandlerResult, len(group))
	var wg sync.WaitGroup
	for i, reg := range group {
		wg.Add(1)
		go func(idx int, r registration) {
			defer wg.Done()
			began := time.Now()
			err := r.fn(ctx)
			hr := HandlerResult{Name: r.name, Phase: r.phase, Duration: time.Since(began), Err: err}
			results[idx] = hr
			if c.config.OnProgress != nil {
				c.config.OnProgress(hr)
			}
		}(i, reg)
	}
	wg.Wait()
	return results
}

// groupByPhase splits phase-sorted handlers into runs of equal phase.
func groupByPhase(handlers []registration) [][]registration {
	var groups [][]registration
	for i := 0; i < len(handlers); {
		j := i
		for j < len(handlers) && handlers[j].phase == handlers[i].phase {
			j++
		}
		groups = append(groups, handlers[i:j])
		i = j
	}
	return groups
}
