// Package component provides the lifecycle harness for programs built on the
// resource managers: initialize, run until a shutdown signal, clean up, with
// periodic health checks in the background.
package component

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/zosbridge/commongo/pkg/config"
	"github.com/zosbridge/commongo/pkg/health"
	"github.com/zosbridge/commongo/pkg/logger"
)

// State tracks where a component is in its lifecycle.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Component is the interface programs implement to be hosted by a Runner.
type Component interface {
	// Initialize is called once before Run with the loaded configuration.
	Initialize(ctx context.Context, cfg *config.Config) error

	// Run does the component's main work. It should return when ctx is
	// cancelled.
	Run(ctx context.Context) error

	// Cleanup releases the component's resources. Called exactly once after
	// Run returns, even when Run failed.
	Cleanup(ctx context.Context) error

	// HealthChecks returns the component's health check functions, keyed by
	// check name. May be empty.
	HealthChecks() map[string]health.CheckFunc
}

// Runner hosts a Component: it wires config, logging and health checking,
// runs the component, and turns SIGINT/SIGTERM into context cancellation.
type Runner struct {
	Name    string
	Version string

	InstanceID string
	Logger     *logger.Logger
	Health     *health.Checker

	// HealthInterval is the period of the background health loop. Zero
	// disables the loop.
	HealthInterval time.Duration

	mu    sync.RWMutex
	state State

	impl Component
}

// NewRunner creates a runner for impl.
func NewRunner(name, version string, impl Component) *Runner {
	return &Runner{
		Name:           name,
		Version:        version,
		InstanceID:     uuid.New().String(),
		Logger:         logger.New(name, version),
		Health:         health.NewChecker(),
		HealthInterval: 10 * time.Second,
		impl:           impl,
	}
}

// State reports the runner's lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes the full lifecycle and blocks until the component finishes or
// a shutdown signal arrives. The component's Run error is returned after
// cleanup.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) error {
	r.setState(StateStarting)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.impl.Initialize(ctx, cfg); err != nil {
		r.setState(StateStopped)
		return fmt.Errorf("failed to initialize component: %w", err)
	}
	r.Logger.Info("component initialized")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			r.Logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if r.HealthInterval > 0 {
		go r.healthCheckLoop(ctx)
	}

	r.setState(StateRunning)
	r.Logger.Info("component started")

	runErr := r.impl.Run(ctx)

	r.setState(StateStopping)
	r.Logger.Info("starting graceful shutdown")

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()
	if err := r.impl.Cleanup(cleanupCtx); err != nil {
		r.Logger.Error("component cleanup error: %v", err)
		if runErr == nil {
			runErr = err
		}
	}

	r.setState(StateStopped)
	r.Logger.Info("component stopped")
	return runErr
}

func (r *Runner) healthCheckLoop(ctx context.Context) {
	ticker := time.NewTicker(r.HealthInterval)
	defer ticker.Stop()

	checks := r.impl.HealthChecks()
	if len(checks) == 0 {
		return
	}

	for {
		select {
		case <-ticker.C:
			for name, checkFunc := range checks {
				r.Health.RunCheck(ctx, name, checkFunc)
			}
			if status := r.Health.GetOverallStatus(); status != health.StatusHealthy {
				r.Logger.Warn("health degraded: %s", status)
			}

		case <-ctx.Done():
			return
		}
	}
}
