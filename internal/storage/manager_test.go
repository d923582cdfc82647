// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package storage

import (
	stderrors "errors"
	"testing"

	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() (*Manager, *MemBackend) {
	m := NewManager()
	b := NewMemBackend(1024)
	m.Add("0:", b)
	return m, b
}

func TestMountAbsentMedia(t *testing.T) {
	m, b := newTestManager()
	b.SetPresent(false)
	b.MountErr = stderrors.New("must not be called")

	err := m.Mount("0:")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMediaAbsent))
	assert.False(t, m.IsMounted("0:"))

	v, err := m.Volume("0:")
	require.NoError(t, err)
	assert.Equal(t, Error, v.State)
	assert.Equal(t, errors.ErrMediaAbsent, v.LastErr)
}

func TestMountFailureNeverLeavesMounted(t *testing.T) {
	m, b := newTestManager()
	b.MountErr = stderrors.New("bad superblock")

	err := m.Mount("")
	assert.True(t, errors.HasCode(err, errors.ErrMountFailed))
	assert.False(t, m.IsMounted(""))

	b.MountErr = nil
	require.NoError(t, m.Mount(""))
	assert.True(t, m.IsMounted(""))
}

func TestMountUnmountSequences(t *testing.T) {
	tests := []struct {
		name    string
		ops     []string
		mounted bool
	}{
		{"mount", []string{"mount"}, true},
		{"mount twice", []string{"mount", "mount"}, true},
		{"mount unmount", []string{"mount", "unmount"}, false},
		{"unmount twice", []string{"unmount", "unmount"}, false},
		{"remount", []string{"mount", "unmount", "mount"}, true},
		{"format mounted", []string{"mount", "format"}, true},
		{"format unmounted", []string{"format"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager()
			for _, op := range tt.ops {
				var err error
				switch op {
				case "mount":
					err = m.Mount("0:")
				case "unmount":
					err = m.Unmount("0:")
				case "format":
					err = m.Format("0:")
				}
				require.NoError(t, err, op)
			}
			assert.Equal(t, tt.mounted, m.IsMounted("0:"))
		})
	}
}

func TestMountRevalidatesPresence(t *testing.T) {
	m, b := newTestManager()
	require.NoError(t, m.Mount("0:"))

	b.SetPresent(false)
	err := m.Mount("0:")
	assert.True(t, errors.HasCode(err, errors.ErrMediaAbsent))
	assert.False(t, m.IsMounted("0:"))
}

func TestFailedUnmountKeepsStateAndForcesRemount(t *testing.T) {
	m, b := newTestManager()
	require.NoError(t, m.Mount("0:"))

	b.UnmountErr = stderrors.New("busy")
	err := m.Unmount("0:")
	assert.True(t, errors.HasCode(err, errors.ErrMountFailed))
	assert.True(t, m.IsMounted("0:"))

	// The next mount goes back to the backend instead of trusting the state.
	b.MountErr = stderrors.New("desynced")
	err = m.Mount("0:")
	assert.True(t, errors.HasCode(err, errors.ErrMountFailed))
	assert.False(t, m.IsMounted("0:"))
}

func TestUnmountAbsentMedia(t *testing.T) {
	m, b := newTestManager()
	require.NoError(t, m.Mount("0:"))
	b.SetPresent(false)

	err := m.Unmount("0:")
	assert.True(t, errors.HasCode(err, errors.ErrMediaAbsent))
	assert.False(t, m.IsMounted("0:"))
}

func TestVerifyDetectsRemoval(t *testing.T) {
	m, b := newTestManager()

	_, err := m.Verify("0:")
	assert.True(t, errors.HasCode(err, errors.ErrNotMounted))

	require.NoError(t, m.Mount("0:"))
	fs, err := m.Verify("0:")
	require.NoError(t, err)
	require.NotNil(t, fs)

	b.SetPresent(false)
	_, err = m.Verify("0:")
	assert.True(t, errors.HasCode(err, errors.ErrMediaAbsent))
	assert.False(t, m.IsMounted("0:"))
}

func TestFormatKeepsMountAndWipes(t *testing.T) {
	m, b := newTestManager()
	require.NoError(t, m.Mount("0:"))
	fs, err := m.Verify("0:")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "old.csv", []byte("x"), 0o644))

	require.NoError(t, m.Format("0:"))
	assert.True(t, m.IsMounted("0:"))

	exists, err := afero.Exists(b.Fs(), "old.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFreeSpace(t *testing.T) {
	m, b := newTestManager()

	_, _, err := m.FreeSpace("0:")
	assert.True(t, errors.HasCode(err, errors.ErrNotMounted))

	require.NoError(t, m.Mount("0:"))
	require.NoError(t, afero.WriteFile(b.Fs(), "a.csv", make([]byte, 2048), 0o644))

	total, free, err := m.FreeSpace("0:")
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), total)
	assert.Equal(t, uint64(1022), free)
}

func TestUnknownVolume(t *testing.T) {
	m, _ := newTestManager()
	assert.True(t, errors.HasCode(m.Mount("1:"), errors.ErrUnknownVolume))
	assert.False(t, m.IsMounted("1:"))
	assert.False(t, m.IsPresent("1:"))
}

func TestResolve(t *testing.T) {
	m, _ := newTestManager()
	m.Add("1:", NewMemBackend(10))

	tests := []struct {
		in, vol, rel string
	}{
		{"", "0:", "."},
		{"data.csv", "0:", "data.csv"},
		{"0:/data.csv", "0:", "data.csv"},
		{"1:", "1:", "."},
		{"1:/logs/a.csv", "1:", "logs/a.csv"},
	}
	for _, tt := range tests {
		vol, rel := m.Resolve(tt.in)
		assert.Equal(t, tt.vol, vol, tt.in)
		assert.Equal(t, tt.rel, rel, tt.in)
	}
}

func TestOnChangeReportsTransitions(t *testing.T) {
	m, b := newTestManager()
	var seen []State
	m.OnChange = func(v Volume) { seen = append(seen, v.State) }

	require.NoError(t, m.Mount("0:"))
	require.NoError(t, m.Mount("0:"))
	require.NoError(t, m.Unmount("0:"))
	b.SetPresent(false)
	_ = m.Mount("0:")

	assert.Equal(t, []State{Mounted, Unmounted, Error}, seen)
}

func TestDirBackend(t *testing.T) {
	base := afero.NewMemMapFs()
	d := NewDirBackend(base, "/media/sd")
	d.usage = func(string) (uint64, uint64, error) { return 100, 40, nil }

	assert.False(t, d.Present())
	require.NoError(t, base.MkdirAll("/media/sd/logs", 0o755))
	require.NoError(t, afero.WriteFile(base, "/media/sd/a.csv", []byte("x"), 0o644))
	assert.True(t, d.Present())

	fs, err := d.Mount()
	require.NoError(t, err)
	exists, err := afero.Exists(fs, "a.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	total, free, err := d.Usage()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), total)
	assert.Equal(t, uint64(40), free)

	require.NoError(t, d.Format())
	entries, err := afero.ReadDir(base, "/media/sd")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, d.Present())
}
