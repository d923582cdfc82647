// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// pollTimeout bounds each WaitForEdge so a watcher notices cancellation.
const pollTimeout = 100 * time.Millisecond

// Watcher captures falling edges of active-low buttons. Each pin gets a
// goroutine whose only job is to push (source, time) into the queue.
type Watcher struct {
	q   *Queue
	clk clock.Source
	wg  sync.WaitGroup
}

func NewWatcher(q *Queue, clk clock.Source) *Watcher {
	return &Watcher{q: q, clk: clk}
}

// Watch starts capturing edges of pin until ctx is done.
func (w *Watcher) Watch(ctx context.Context, pin gpio.PinIn, src Source) error {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("%s: configure %s: %w", src, pin, err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for ctx.Err() == nil {
			if pin.WaitForEdge(pollTimeout) {
				w.q.Push(Edge{Source: src, At: w.clk.Now()})
			}
		}
	}()
	return nil
}

// WatchByName looks the pin up in the periph registry. An empty name
// disables the source.
func (w *Watcher) WatchByName(ctx context.Context, name string, src Source) error {
	if name == "" {
		return nil
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return fmt.Errorf("%s: GPIO pin %q not found", src, name)
	}
	if err := w.Watch(ctx, pin, src); err != nil {
		return err
	}
	logger.For("input").Info().Str("source", src.String()).Str("pin", name).Msg("watching button")
	return nil
}

// Wait blocks until every capture goroutine has returned.
func (w *Watcher) Wait() {
	w.wg.Wait()
}
