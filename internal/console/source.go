// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"
)

// Source buffers bytes read by a background goroutine so the control loop
// can take them one at a time without blocking.
type Source struct {
	ch        chan byte
	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
	err       error
}

// NewSource starts reading r. The goroutine exits when r returns an error,
// e.g. after the underlying port is closed.
func NewSource(r io.Reader, size int) *Source {
	if size <= 0 {
		size = 256
	}
	s := &Source{
		ch:   make(chan byte, size),
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}
	go s.run(r)
	return s
}

func (s *Source) run(r io.Reader) {
	defer close(s.done)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, c := range buf[:n] {
			select {
			case s.ch <- c:
			case <-s.quit:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				s.err = err
			}
			return
		}
	}
}

// Next returns the next pending byte without blocking.
func (s *Source) Next() (byte, bool) {
	select {
	case c := <-s.ch:
		return c, true
	default:
		return 0, false
	}
}

// Close stops delivering bytes. A goroutine blocked in Read only returns
// once the reader itself is closed.
func (s *Source) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}

// Done is closed once the reader has stopped.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Err is the read error that stopped the source, valid after Done.
func (s *Source) Err() error {
	<-s.done
	return s.err
}

// OpenSerial opens a UART console at 8N1.
func OpenSerial(port string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	rw, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open console %s: %w", port, err)
	}
	return rw, nil
}
