// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import "github.com/relabs-tech/imu_logger/internal/clock"

// Intents holds the desired states and their pending-change markers. A
// change marker is always set together with its target state.
type Intents struct {
	WantMounted          bool
	MountChangeRequested bool

	WantRecording            bool
	RecordingChangeRequested bool
}

// Aggregator debounces edges per source and derives intents. It runs on the
// control loop only.
type Aggregator struct {
	debounceMs uint32
	isMounted  func() bool

	seen     [numSources]bool
	lastEdge [numSources]clock.Ticks

	intents     Intents
	bootPending bool
	bootFired   bool
}

// NewAggregator returns an aggregator. isMounted is consulted when a record
// edge is accepted.
func NewAggregator(debounceMs uint32, isMounted func() bool) *Aggregator {
	return &Aggregator{debounceMs: debounceMs, isMounted: isMounted}
}

// Drain feeds every pending edge of q into the aggregator and returns the
// number of edges that changed an intent.
func (a *Aggregator) Drain(q *Queue) int {
	applied := 0
	for {
		e, ok := q.Pop()
		if !ok {
			return applied
		}
		if a.Accept(e) {
			applied++
		}
	}
}

// Accept interprets one edge and reports whether it changed an intent.
func (a *Aggregator) Accept(e Edge) bool {
	if e.Source >= numSources {
		return false
	}

	if e.Source == BootRequest {
		// Terminal: the first edge always latches, later ones are moot.
		if a.bootFired || a.bootPending {
			return false
		}
		a.bootPending = true
		return true
	}

	if a.seen[e.Source] && e.At.Since(a.lastEdge[e.Source]) < a.debounceMs {
		return false
	}
	a.seen[e.Source] = true
	a.lastEdge[e.Source] = e.At

	switch e.Source {
	case MountButton:
		a.intents.WantMounted = !a.intents.WantMounted
		a.intents.MountChangeRequested = true
		return true
	case RecordButton:
		if !a.isMounted() {
			return false
		}
		a.intents.WantRecording = !a.intents.WantRecording
		a.intents.RecordingChangeRequested = true
		return true
	}
	return false
}

// TakeMountChange returns the requested mount state and clears the request.
// ok is false when nothing was pending.
func (a *Aggregator) TakeMountChange() (want, ok bool) {
	if !a.intents.MountChangeRequested {
		return a.intents.WantMounted, false
	}
	a.intents.MountChangeRequested = false
	return a.intents.WantMounted, true
}

// TakeRecordingChange is TakeMountChange for the recording intent.
func (a *Aggregator) TakeRecordingChange() (want, ok bool) {
	if !a.intents.RecordingChangeRequested {
		return a.intents.WantRecording, false
	}
	a.intents.RecordingChangeRequested = false
	return a.intents.WantRecording, true
}

// TakeBootRequest reports a latched boot request, once.
func (a *Aggregator) TakeBootRequest() bool {
	if !a.bootPending {
		return false
	}
	a.bootPending = false
	a.bootFired = true
	return true
}

// SetWantMounted aligns the mount target with a state reached by other
// means, such as a console command, without raising a change request.
func (a *Aggregator) SetWantMounted(v bool) {
	a.intents.WantMounted = v
}

// SetWantRecording is SetWantMounted for the recording target.
func (a *Aggregator) SetWantRecording(v bool) {
	a.intents.WantRecording = v
}

// Intents returns a copy of the current flags.
func (a *Aggregator) Intents() Intents {
	return a.intents
}
