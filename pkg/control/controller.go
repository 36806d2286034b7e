// Package control implements the distributed-learning stop signal: a
// controller that watches for an on-disk stop file and SIGINT/SIGTERM, and
// notifies registered callbacks exactly once. An indefinite learning run
// terminates when an external peer (or operator) asks it to stop; the
// orchestrator's learning loop polls StopChannel at each epoch boundary.
package control

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jihwankim/gibbsfg/pkg/reporting"
)

// Controller watches for a stop condition and runs registered callbacks
// exactly once when it fires.
type Controller struct {
	stopFile       string
	stopCh         chan struct{}
	stopped        bool
	mutex          sync.RWMutex
	callbacks      []func()
	pollInterval   time.Duration
	signalHandlers bool
	logger         *reporting.Logger
}

// Config configures a Controller.
type Config struct {
	// StopFile is the path a distributed peer (or an operator) creates to
	// request a graceful stop.
	StopFile string
	// PollInterval is how often StopFile's existence is checked.
	PollInterval time.Duration
	// EnableSignalHandlers installs SIGINT/SIGTERM handlers that trigger
	// the same stop path as the stop file.
	EnableSignalHandlers bool
	Logger               *reporting.Logger
}

// New constructs a Controller from cfg.
func New(cfg Config) *Controller {
	if cfg.StopFile == "" {
		cfg.StopFile = "/tmp/gibbsfg-stop"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 1 * time.Second
	}
	return &Controller{
		stopFile:       cfg.StopFile,
		stopCh:         make(chan struct{}),
		pollInterval:   cfg.PollInterval,
		signalHandlers: cfg.EnableSignalHandlers,
		logger:         cfg.Logger,
	}
}

// Start begins watching for the stop file and, if enabled, OS signals.
// Cancel ctx to stop watching without triggering a stop.
func (c *Controller) Start(ctx context.Context) {
	go c.watchStopFile(ctx)
	if c.signalHandlers {
		go c.watchSignals(ctx)
	}
}

func (c *Controller) watchStopFile(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.checkStopFile() {
				c.trigger(fmt.Sprintf("stop file detected: %s", c.stopFile))
				return
			}
		}
	}
}

func (c *Controller) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-ctx.Done():
		return
	case sig := <-sigCh:
		c.trigger(fmt.Sprintf("signal: %v", sig))
	}
}

func (c *Controller) checkStopFile() bool {
	_, err := os.Stat(c.stopFile)
	return err == nil
}

func (c *Controller) trigger(reason string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stopCh)
	if c.logger != nil {
		c.logger.Warn("stop triggered", "reason", reason)
	}
	for _, cb := range c.callbacks {
		cb()
	}
}

// Stop manually triggers the stop path, e.g. when a parameter-server reply
// carries a stop signal.
func (c *Controller) Stop(reason string) {
	c.trigger(reason)
}

// IsStopped reports whether stop has already fired.
func (c *Controller) IsStopped() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stopped
}

// StopChannel returns a channel that closes exactly once, when stop fires.
// The orchestrator's learning loop selects on it at every epoch boundary.
func (c *Controller) StopChannel() <-chan struct{} {
	return c.stopCh
}

// OnStop registers a callback run (in trigger order) when stop fires.
func (c *Controller) OnStop(cb func()) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// CreateStopFile writes the stop file, the manual/out-of-band way to
// request a graceful stop of a long-running learning loop.
func (c *Controller) CreateStopFile() error {
	f, err := os.Create(c.stopFile)
	if err != nil {
		return fmt.Errorf("control: create stop file: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(fmt.Sprintf("stop requested at %s\n", time.Now().Format(time.RFC3339)))
	if err != nil {
		return fmt.Errorf("control: write stop file: %w", err)
	}
	return nil
}

// RemoveStopFile removes the stop file, clearing the request.
func (c *Controller) RemoveStopFile() error {
	if err := os.Remove(c.stopFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("control: remove stop file: %w", err)
	}
	return nil
}
