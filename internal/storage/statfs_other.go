// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !linux

package storage

import "fmt"

func statfsKiB(path string) (uint64, uint64, error) {
	return 0, 0, fmt.Errorf("statfs %s: not supported on this platform", path)
}
