package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chebyrash/promise"
)

// Aggregate runs a set of plugins as one. Start settles once every
// plugin's start promise has settled; stopping goes in reverse order.
type Aggregate struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	plugins []Plugin
	started int
}

var _ Plugin = &Aggregate{}

func New(logger *slog.Logger, plugins []Plugin) *Aggregate {
	ctx, cancel := context.WithCancel(context.Background())
	return &Aggregate{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With("sub-service", "aggregate"),
		plugins: plugins,
	}
}

// Run initializes and starts every plugin, waits for them and stops them
// again. A failed start still stops whatever was initialized.
func (a *Aggregate) Run() error {
	if err := a.Init(); err != nil {
		return err
	}

	_, runErr := a.Start().Await(a.ctx)
	if runErr != nil {
		a.logger.Error("plugin failed", "err", runErr)
	}

	return errors.Join(runErr, a.Stop())
}

// Cancel abandons a running Start.
func (a *Aggregate) Cancel() {
	a.cancel()
}

// Init implements Plugin. When a plugin fails the ones before it are
// stopped.
func (a *Aggregate) Init() error {
	for i, p := range a.plugins {
		if err := p.Init(); err != nil {
			a.started = i
			return errors.Join(fmt.Errorf("failed to init plugin %d (%T): %w", i, p, err), a.Stop())
		}
	}
	a.started = len(a.plugins)
	return nil
}

// Start implements Plugin.
func (a *Aggregate) Start() *promise.Promise[any] {
	promises := make([]*promise.Promise[any], len(a.plugins))
	for i, p := range a.plugins {
		promises[i] = p.Start()
	}
	return promise.Then(
		promise.All(a.ctx, promises...),
		a.ctx,
		func([]any) (any, error) {
			return nil, nil
		},
	)
}

// Stop implements Plugin.
func (a *Aggregate) Stop() error {
	var errs []error
	for i := a.started - 1; i >= 0; i-- {
		if err := a.plugins[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop plugin %d (%T): %w", i, a.plugins[i], err))
		}
	}
	a.started = 0
	a.cancel()
	return errors.Join(errs...)
}
