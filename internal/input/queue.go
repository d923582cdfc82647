// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package input turns button and interrupt edges into intent flags. Edges
// are captured on their own goroutines and only recorded; every decision is
// made on the control loop.
package input

import (
	"sync/atomic"

	"github.com/relabs-tech/imu_logger/internal/clock"
)

// Source identifies where an edge came from.
type Source uint8

const (
	MountButton Source = iota
	RecordButton
	BootRequest

	numSources
)

func (s Source) String() string {
	switch s {
	case MountButton:
		return "mountButton"
	case RecordButton:
		return "recordButton"
	case BootRequest:
		return "bootRequest"
	default:
		return "unknown"
	}
}

// Edge is the immutable event pushed by a capture goroutine.
type Edge struct {
	Source Source
	At     clock.Ticks
}

// Queue is a bounded single-producer/single-consumer edge queue.
type Queue struct {
	ch    chan Edge
	drops uint32
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 32
	}
	return &Queue{ch: make(chan Edge, size)}
}

// Push records an edge without ever blocking the capture side. A full
// queue drops the edge and counts it.
func (q *Queue) Push(e Edge) bool {
	select {
	case q.ch <- e:
		return true
	default:
		atomic.AddUint32(&q.drops, 1)
		return false
	}
}

// Pop returns the oldest pending edge, if any.
func (q *Queue) Pop() (Edge, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return Edge{}, false
	}
}

func (q *Queue) Drops() uint32 { return atomic.LoadUint32(&q.drops) }
