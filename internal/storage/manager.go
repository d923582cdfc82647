// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package storage

import (
	"strings"

	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/spf13/afero"
)

type volume struct {
	name        string
	backend     Backend
	state       State
	lastErr     errors.ErrorCode
	fs          afero.Fs
	needsReinit bool
}

// Manager owns the mount lifecycle of the configured volumes. It is used
// from the control loop only and does no locking.
type Manager struct {
	volumes []*volume
	errs    errors.Factory
	log     logger.Component

	// OnChange, if set, is called after every state transition.
	OnChange func(Volume)
}

// NewManager returns a Manager with no volumes.
func NewManager() *Manager {
	return &Manager{
		errs: errors.New(),
		log:  logger.For("storage"),
	}
}

// Add registers a volume. The first volume added is the default one.
func (m *Manager) Add(name string, backend Backend) {
	m.volumes = append(m.volumes, &volume{name: name, backend: backend, needsReinit: true})
}

// Default returns the name of the first configured volume.
func (m *Manager) Default() string {
	if len(m.volumes) == 0 {
		return ""
	}
	return m.volumes[0].name
}

// Volumes returns a snapshot of every volume in registration order.
func (m *Manager) Volumes() []Volume {
	out := make([]Volume, 0, len(m.volumes))
	for _, v := range m.volumes {
		out = append(out, v.snapshot())
	}
	return out
}

// Volume returns a snapshot of the named volume.
func (m *Manager) Volume(name string) (Volume, error) {
	v, err := m.lookup(name)
	if err != nil {
		return Volume{}, err
	}
	return v.snapshot(), nil
}

func (v *volume) snapshot() Volume {
	return Volume{Name: v.name, State: v.state, LastErr: v.lastErr}
}

// lookup resolves a volume name; "" selects the default volume.
func (m *Manager) lookup(name string) (*volume, error) {
	if name == "" && len(m.volumes) > 0 {
		return m.volumes[0], nil
	}
	for _, v := range m.volumes {
		if v.name == name {
			return v, nil
		}
	}
	return nil, m.errs.WithData(errors.ErrUnknownVolume, name)
}

// IsPresent probes the media behind the volume.
func (m *Manager) IsPresent(name string) bool {
	v, err := m.lookup(name)
	if err != nil {
		return false
	}
	return v.backend.Present()
}

// IsMounted reports whether the last mount outcome was a success that has
// not been undone since.
func (m *Manager) IsMounted(name string) bool {
	v, err := m.lookup(name)
	if err != nil {
		return false
	}
	return v.state == Mounted
}

// Mount attaches the volume. Absent media fails with ErrMediaAbsent before
// any filesystem call. A volume already mounted with media present is left
// as is, unless an unmount since then asked for re-initialisation.
func (m *Manager) Mount(name string) error {
	v, err := m.lookup(name)
	if err != nil {
		return err
	}

	if !v.backend.Present() {
		m.fail(v, errors.ErrMediaAbsent)
		return m.errs.WithData(errors.ErrMediaAbsent, v.name)
	}

	if v.state == Mounted && !v.needsReinit {
		return nil
	}

	fs, err := v.backend.Mount()
	if err != nil {
		m.fail(v, errors.ErrMountFailed)
		return m.errs.Wrap(errors.ErrMountFailed, err).WithData(v.name)
	}

	v.fs = fs
	v.needsReinit = false
	m.transition(v, Mounted, "")
	m.log.Info().Str("volume", v.name).Msg("mounted")
	return nil
}

// Unmount detaches the volume. It always marks the device for
// re-initialisation so the next Mount re-probes the hardware. On a backend
// failure the state is left as it was.
func (m *Manager) Unmount(name string) error {
	v, err := m.lookup(name)
	if err != nil {
		return err
	}

	v.needsReinit = true

	if !v.backend.Present() {
		v.fs = nil
		m.fail(v, errors.ErrMediaAbsent)
		return m.errs.WithData(errors.ErrMediaAbsent, v.name)
	}

	if v.state != Mounted {
		v.fs = nil
		if v.state == Error {
			m.transition(v, Unmounted, "")
		}
		return nil
	}

	if err := v.backend.Unmount(); err != nil {
		m.log.Warn().Str("volume", v.name).Err(err).Msg("unmount failed")
		return m.errs.Wrap(errors.ErrMountFailed, err).WithData(v.name)
	}

	v.fs = nil
	m.transition(v, Unmounted, "")
	m.log.Info().Str("volume", v.name).Msg("unmounted")
	return nil
}

// Format recreates the filesystem. A mounted volume is unmounted first and
// mounted again afterwards.
func (m *Manager) Format(name string) error {
	v, err := m.lookup(name)
	if err != nil {
		return err
	}

	if !v.backend.Present() {
		m.fail(v, errors.ErrMediaAbsent)
		return m.errs.WithData(errors.ErrMediaAbsent, v.name)
	}

	wasMounted := v.state == Mounted
	if wasMounted {
		if err := m.Unmount(v.name); err != nil {
			return err
		}
	}

	if err := v.backend.Format(); err != nil {
		m.fail(v, errors.ErrFormatFailed)
		return m.errs.Wrap(errors.ErrFormatFailed, err).WithData(v.name)
	}
	m.log.Info().Str("volume", v.name).Msg("formatted")

	if v.state == Error {
		m.transition(v, Unmounted, "")
	}
	if wasMounted {
		return m.Mount(v.name)
	}
	return nil
}

// FreeSpace reports total and free KiB of a mounted volume.
func (m *Manager) FreeSpace(name string) (totalKiB, freeKiB uint64, err error) {
	v, err := m.lookup(name)
	if err != nil {
		return 0, 0, err
	}
	if v.state != Mounted {
		return 0, 0, m.errs.WithData(errors.ErrNotMounted, v.name)
	}
	totalKiB, freeKiB, err = v.backend.Usage()
	if err != nil {
		return 0, 0, m.errs.Wrap(errors.ErrFilesystem, err).WithData(v.name)
	}
	return totalKiB, freeKiB, nil
}

// Verify checks, without trusting cached state, that the volume is mounted
// and its media still present, and returns the mounted filesystem. Media
// removed under a mounted volume moves it to Error.
func (m *Manager) Verify(name string) (afero.Fs, error) {
	v, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	if v.state != Mounted || v.fs == nil {
		return nil, m.errs.WithData(errors.ErrNotMounted, v.name)
	}
	if !v.backend.Present() {
		v.fs = nil
		v.needsReinit = true
		m.fail(v, errors.ErrMediaAbsent)
		return nil, m.errs.WithData(errors.ErrMediaAbsent, v.name)
	}
	return v.fs, nil
}

// Resolve splits an optional "<volume>" prefix off path, e.g. "0:/data.csv".
// Paths without a known prefix refer to the default volume.
func (m *Manager) Resolve(path string) (name, rel string) {
	for _, v := range m.volumes {
		if strings.HasPrefix(path, v.name) && strings.HasSuffix(v.name, ":") {
			rel = strings.TrimPrefix(path, v.name)
			return v.name, cleanRel(rel)
		}
	}
	return m.Default(), cleanRel(path)
}

func cleanRel(rel string) string {
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return "."
	}
	return rel
}

func (m *Manager) fail(v *volume, code errors.ErrorCode) {
	m.log.Warn().Str("volume", v.name).Str("error_code", string(code)).Msg("volume error")
	m.transition(v, Error, code)
}

func (m *Manager) transition(v *volume, s State, code errors.ErrorCode) {
	changed := v.state != s || (code != "" && v.lastErr != code)
	v.state = s
	if code != "" {
		v.lastErr = code
	}
	if changed && m.OnChange != nil {
		m.OnChange(v.snapshot())
	}
}
