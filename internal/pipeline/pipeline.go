// Package pipeline wires the capture producer and its consumers together
// and owns their lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smazurov/mxcamera/internal/capture"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/logging"
)

// ErrShutdownTimeout is returned by Stop when a loop did not exit in time.
// The caller is expected to exit the process.
var ErrShutdownTimeout = errors.New("pipeline shutdown timed out")

// DefaultShutdownTimeout bounds Stop.
const DefaultShutdownTimeout = 2 * time.Second

// Loop is a long running pipeline stage.
type Loop interface {
	Run(ctx context.Context) error
}

// Pipeline runs one producer and any number of consumers over one slot.
type Pipeline struct {
	device    capture.Device
	slot      *frame.Slot
	producer  Loop
	consumers map[string]Loop
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New creates a pipeline. The device is started by Start and stopped by a
// successful Stop.
func New(device capture.Device, slot *frame.Slot, producer Loop) *Pipeline {
	return &Pipeline{
		device:    device,
		slot:      slot,
		producer:  producer,
		consumers: make(map[string]Loop),
		logger:    logging.GetLogger("main"),
	}
}

// AddConsumer registers a consumer loop under a name used in logs. It must
// be called before Start.
func (p *Pipeline) AddConsumer(name string, l Loop) {
	p.consumers[name] = l
}

// Slot returns the shared frame slot.
func (p *Pipeline) Slot() *frame.Slot { return p.slot }

// Start starts the device and every loop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return errors.New("pipeline already started")
	}

	if err := p.device.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.device.Path(), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.run(gctx, "capture", p.producer) })
	for name, l := range p.consumers {
		g.Go(func() error { return p.run(gctx, name, l) })
	}

	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		err := g.Wait()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()
	return nil
}

func (p *Pipeline) run(ctx context.Context, name string, l Loop) error {
	err := l.Run(ctx)
	if err != nil {
		p.logger.Error("Pipeline stage failed", "stage", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("Pipeline stage stopped", "stage", name)
	return nil
}

// Done is closed once every loop has returned.
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Stop cancels every loop, closes the slot and waits up to timeout. On
// timeout the remaining goroutines are abandoned, the device is left open
// and ErrShutdownTimeout is returned.
func (p *Pipeline) Stop(timeout time.Duration) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	cancel()
	p.slot.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		p.logger.Error("Pipeline did not stop in time, abandoning", "timeout", timeout)
		return ErrShutdownTimeout
	}

	if err := p.device.Stop(); err != nil {
		p.logger.Warn("Stop streaming failed", "device", p.device.Path(), "error", err)
	}
	if err := p.device.Close(); err != nil {
		p.logger.Warn("Close device failed", "device", p.device.Path(), "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
