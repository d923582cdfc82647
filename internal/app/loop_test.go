// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/relabs-tech/imu_logger/internal/config"
	"github.com/relabs-tech/imu_logger/internal/csvlog"
	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/feedback"
	"github.com/relabs-tech/imu_logger/internal/input"
	"github.com/relabs-tech/imu_logger/internal/notify"
	"github.com/relabs-tech/imu_logger/internal/sensors"
	"github.com/relabs-tech/imu_logger/internal/storage"
	"github.com/relabs-tech/imu_logger/internal/telemetry"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsole struct {
	pending []byte
}

func (c *fakeConsole) Next() (byte, bool) {
	if len(c.pending) == 0 {
		return 0, false
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, true
}

type recDisplay struct {
	messages []string
	idle     []notify.IdleStatus
}

func (d *recDisplay) ShowMessage(msg string) error {
	d.messages = append(d.messages, msg)
	return nil
}

func (d *recDisplay) ShowIdle(st notify.IdleStatus) error {
	d.idle = append(d.idle, st)
	return nil
}

func (d *recDisplay) lastMessage() string {
	if len(d.messages) == 0 {
		return ""
	}
	return d.messages[len(d.messages)-1]
}

type recLED struct{ colors []feedback.Color }

func (l *recLED) SetColor(c feedback.Color) error {
	l.colors = append(l.colors, c)
	return nil
}

type recPublisher struct {
	sessions []telemetry.SessionEvent
	samples  []telemetry.SampleEvent
	volumes  []telemetry.VolumeEvent
}

func (p *recPublisher) Session(ev telemetry.SessionEvent) { p.sessions = append(p.sessions, ev) }
func (p *recPublisher) Sample(ev telemetry.SampleEvent)   { p.samples = append(p.samples, ev) }
func (p *recPublisher) Volume(ev telemetry.VolumeEvent)   { p.volumes = append(p.volumes, ev) }
func (p *recPublisher) Close()                            {}

type harness struct {
	t          *testing.T
	cfg        *config.Config
	clk        *clock.Manual
	rtc        *clock.RTC
	card       *storage.MemBackend
	vols       *storage.Manager
	sensor     *sensors.Mock
	disp       *recDisplay
	con        *fakeConsole
	out        *bytes.Buffer
	led        *recLED
	pub        *recPublisher
	loop       *Loop
	reprograms int

	// mount state of the card when the reprogram hook ran
	mountedAtReprogram bool
}

// newHarness builds a loop on an in-memory card and a mock sensor with the
// wall clock unset.
func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{
		t:      t,
		cfg:    cfg,
		clk:    clock.NewManual(10_000),
		card:   storage.NewMemBackend(1024),
		vols:   storage.NewManager(),
		sensor: sensors.NewMock(),
		disp:   &recDisplay{},
		con:    &fakeConsole{},
		out:    &bytes.Buffer{},
		led:    &recLED{},
		pub:    &recPublisher{},
	}
	h.rtc = clock.NewRTC(h.clk)
	h.vols.Add("0:", h.card)

	loop, err := NewLoop(Deps{
		Config:    cfg,
		Ticks:     h.clk,
		RTC:       h.rtc,
		Volumes:   h.vols,
		Sensor:    h.sensor,
		Display:   h.disp,
		Console:   h.con,
		Out:       h.out,
		LED:       h.led,
		Telemetry: h.pub,
		Reprogram: func() error {
			h.reprograms++
			h.mountedAtReprogram = h.vols.IsMounted("0:")
			return nil
		},
	})
	require.NoError(t, err)
	h.loop = loop
	return h
}

func (h *harness) step() {
	h.t.Helper()
	require.NoError(h.t, h.loop.Step())
}

// command types line and steps until every character has been consumed.
func (h *harness) command(line string) {
	h.t.Helper()
	h.con.pending = append(h.con.pending, line+"\r"...)
	for len(h.con.pending) > 0 {
		h.step()
	}
}

func (h *harness) tick(ms uint32) {
	h.t.Helper()
	h.clk.Advance(ms)
	h.step()
}

func (h *harness) push(src input.Source) {
	h.loop.Edges().Push(input.Edge{Source: src, At: h.clk.Now()})
}

func (h *harness) readLog() *csvlog.Log {
	h.t.Helper()
	lg, err := csvlog.ReadFile(h.card.Fs(), h.loop.Session().File)
	require.NoError(h.t, err)
	return lg
}

func TestMountAbsentMedia(t *testing.T) {
	h := newHarness(t, nil)
	h.card.SetPresent(false)

	err := h.vols.Mount("0:")
	assert.True(t, errors.HasCode(err, errors.ErrMediaAbsent))
	assert.False(t, h.vols.IsMounted("0:"))

	h.command("mount")
	assert.False(t, h.vols.IsMounted("0:"))
	assert.Contains(t, h.out.String(), "Error: Storage media not present")
	assert.Equal(t, "Storage media not present", h.disp.lastMessage())
}

func TestThreeTicksProduceThreeRows(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")
	require.True(t, sessionActive(h.loop.Session()))

	h.tick(1000)
	h.tick(1000)

	lg := h.readLog()
	require.Len(t, lg.Records, 3)
	for i, r := range lg.Records {
		assert.Equal(t, uint32(i+1), r.Seq)
	}

	raw, err := afero.ReadFile(h.card.Fs(), h.loop.Session().File)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(raw), "\n"))
	assert.Equal(t, uint32(3), h.loop.Session().Count)
}

func TestNoSampleBeforeDeadline(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")

	h.tick(999)
	assert.Equal(t, uint32(1), h.loop.Session().Count)
	h.tick(1)
	assert.Equal(t, uint32(2), h.loop.Session().Count)
}

func TestUnknownCommandLeavesStateAlone(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")
	before := h.loop.Session()

	h.command("xyz")
	assert.Contains(t, h.out.String(), "Unknown command: xyz")
	assert.Equal(t, "Unknown command", h.disp.lastMessage())
	assert.True(t, h.vols.IsMounted("0:"))
	assert.Equal(t, before, h.loop.Session())

	err := h.loop.interp.Dispatch("xyz")
	assert.True(t, errors.HasCode(err, errors.ErrUnknownCommand))
}

func TestSetRTCNamesTheSessionFile(t *testing.T) {
	h := newHarness(t, nil)
	h.command("setrtc 01 01 25 00 00 00")
	assert.Contains(t, h.out.String(), "RTC set to 01/01/2025 00:00:00")

	h.command("mount")
	h.command("i")
	assert.True(t, strings.HasPrefix(h.loop.Session().File, "data01012025000000"))

	lg := h.readLog()
	require.Len(t, lg.Records, 1)
	assert.True(t, lg.Records[0].Stamped)
}

func TestUnsetClockUsesFallback(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")

	assert.Equal(t, csvlog.FallbackFileName, h.loop.Session().File)
	lg := h.readLog()
	require.Len(t, lg.Records, 1)
	assert.False(t, lg.Records[0].Stamped)
}

func TestSetRTCArgumentErrors(t *testing.T) {
	h := newHarness(t, nil)

	h.command("setrtc 01 01")
	assert.Equal(t, "Missing argument", h.disp.lastMessage())
	assert.False(t, h.rtc.IsSet())

	h.command("setrtc 32 01 25 00 00 00")
	assert.Equal(t, "Invalid argument provided", h.disp.lastMessage())

	h.command("setrtc aa 01 25 00 00 00")
	assert.Equal(t, "Invalid argument provided", h.disp.lastMessage())
	assert.False(t, h.rtc.IsSet())
}

func TestAppendFailureEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")

	h.card.SetPresent(false)
	h.tick(1000)

	s := h.loop.Session()
	assert.False(t, s.Active())
	assert.Equal(t, csvlog.EndWriteFailed, s.Reason)
	assert.Equal(t, uint32(1), s.Count)
	assert.Equal(t, "Failed to write log row", h.disp.lastMessage())

	v, err := h.vols.Volume("0:")
	require.NoError(t, err)
	assert.Equal(t, storage.Error, v.State)
	assert.False(t, h.loop.agg.Intents().WantRecording)

	// Nothing is retried on later iterations.
	h.card.SetPresent(true)
	h.tick(1000)
	assert.Equal(t, uint32(1), h.loop.Session().Count)
}

func TestSensorFailureEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")

	h.sensor.Fail(fmt.Errorf("i2c: no ack"))
	h.tick(1000)

	s := h.loop.Session()
	assert.False(t, s.Active())
	assert.Equal(t, csvlog.EndSensorFailed, s.Reason)
	assert.Equal(t, "Sensor communication failed", h.disp.lastMessage())
	assert.True(t, h.vols.IsMounted("0:"))
}

func TestCaptureRefusedWhenSensorDown(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.sensor.Fail(fmt.Errorf("i2c: no ack"))

	h.command("i")
	assert.False(t, sessionActive(h.loop.Session()))
	assert.Equal(t, "Sensor communication failed", h.disp.lastMessage())
}

func TestLimitEndsSessionOnSameIteration(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.MaxSamples = 3 })
	h.command("mount")
	h.command("i")
	h.tick(1000)
	assert.True(t, sessionActive(h.loop.Session()))

	h.tick(1000)
	s := h.loop.Session()
	assert.False(t, s.Active())
	assert.Equal(t, uint32(3), s.Count)
	assert.Equal(t, csvlog.EndLimit, s.Reason)

	h.tick(1000)
	h.tick(1000)
	assert.Len(t, h.readLog().Records, 3)
}

func TestCaptureNeedsMountedVolume(t *testing.T) {
	h := newHarness(t, nil)
	h.command("i")
	assert.False(t, sessionActive(h.loop.Session()))
	assert.Equal(t, "Volume not mounted", h.disp.lastMessage())
}

func TestSecondCaptureRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")
	file := h.loop.Session().File

	h.command("i")
	assert.Equal(t, "Capture already active", h.disp.lastMessage())
	assert.True(t, sessionActive(h.loop.Session()))
	assert.Equal(t, file, h.loop.Session().File)
}

func TestRecordButtonWhileUnmountedIsDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.push(input.RecordButton)
	h.step()

	assert.False(t, h.loop.agg.Intents().WantRecording)
	assert.False(t, sessionActive(h.loop.Session()))
}

func TestButtonsDriveMountAndCapture(t *testing.T) {
	h := newHarness(t, nil)

	h.push(input.MountButton)
	h.step()
	require.True(t, h.vols.IsMounted("0:"))
	assert.Equal(t, "Card mounted", h.disp.lastMessage())

	h.clk.Advance(300)
	h.push(input.RecordButton)
	h.step()
	require.True(t, sessionActive(h.loop.Session()))
	assert.Equal(t, uint32(1), h.loop.Session().Count)

	// Bounce inside the debounce window is ignored.
	h.clk.Advance(50)
	h.push(input.RecordButton)
	h.step()
	assert.True(t, sessionActive(h.loop.Session()))

	h.clk.Advance(300)
	h.push(input.RecordButton)
	h.step()
	assert.False(t, sessionActive(h.loop.Session()))
	assert.Equal(t, csvlog.EndStopped, h.loop.Session().Reason)

	h.clk.Advance(300)
	h.push(input.MountButton)
	h.step()
	assert.False(t, h.vols.IsMounted("0:"))
}

func TestRecordingIntentDiscardedAfterUnmount(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")

	h.push(input.RecordButton)
	h.loop.agg.Drain(h.loop.Edges())
	require.NoError(t, h.vols.Unmount("0:"))

	h.step()
	assert.False(t, sessionActive(h.loop.Session()))
	assert.False(t, h.loop.agg.Intents().WantRecording)
	assert.Equal(t, "Volume not mounted", h.disp.lastMessage())
}

func TestConsoleMountKeepsIntentInSync(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	assert.True(t, h.loop.agg.Intents().WantMounted)

	// The next button press must unmount, not mount again.
	h.push(input.MountButton)
	h.step()
	assert.False(t, h.vols.IsMounted("0:"))
}

func TestUnmountEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")

	h.command("unmount")
	s := h.loop.Session()
	assert.False(t, s.Active())
	assert.Equal(t, csvlog.EndUnmounted, s.Reason)
	assert.False(t, h.vols.IsMounted("0:"))
	assert.Contains(t, h.out.String(), "0: unmounted")
}

func TestFormatEndsSessionAndStaysMounted(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")
	file := h.loop.Session().File

	h.command("format")
	s := h.loop.Session()
	assert.False(t, s.Active())
	assert.Equal(t, csvlog.EndFormatted, s.Reason)
	assert.True(t, h.vols.IsMounted("0:"))
	assert.Equal(t, "Format completed", h.disp.lastMessage())

	exists, err := afero.Exists(h.card.Fs(), file)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLsGetfreeCat(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")

	fs := h.card.Fs()
	require.NoError(t, afero.WriteFile(fs, "notes.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "ro.txt", []byte("x"), 0o644))
	require.NoError(t, fs.Chmod("ro.txt", 0o444))
	require.NoError(t, fs.Mkdir("logs", 0o755))

	h.command("ls")
	out := h.out.String()
	assert.Contains(t, out, "notes.txt [writable file] [size=5]")
	assert.Contains(t, out, "ro.txt [read-only file] [size=1]")
	assert.Contains(t, out, "logs [directory]")

	h.out.Reset()
	h.command("getfree")
	assert.Contains(t, h.out.String(), "1024 KiB total drive space.")
	assert.Contains(t, h.out.String(), "KiB available.")

	h.out.Reset()
	h.command("cat 0:/notes.txt")
	assert.True(t, strings.HasPrefix(h.out.String(), "hello"))

	h.command("cat")
	assert.Equal(t, "Missing argument", h.disp.lastMessage())

	h.command("cat missing.txt")
	assert.Equal(t, "Filesystem operation failed", h.disp.lastMessage())
}

func TestLsNeedsMountedVolume(t *testing.T) {
	h := newHarness(t, nil)
	h.command("ls")
	assert.Equal(t, "Volume not mounted", h.disp.lastMessage())

	h.command("getfree")
	assert.Equal(t, "Volume not mounted", h.disp.lastMessage())
}

func TestHelpAliases(t *testing.T) {
	h := newHarness(t, nil)
	h.command("ajuda")
	listing := h.out.String()
	assert.Contains(t, listing, "setrtc <DD> <MM> <YY> <hh> <mm> <ss>")

	h.out.Reset()
	h.command("help")
	assert.Equal(t, listing, h.out.String())
}

func TestBootRequestLeavesLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")

	h.push(input.BootRequest)
	err := h.loop.Step()
	assert.True(t, errors.HasCode(err, errors.ErrReprogram))
	assert.Equal(t, 1, h.reprograms)
	assert.Equal(t, "Reprogram mode", h.disp.lastMessage())
	assert.False(t, sessionActive(h.loop.Session()))
	assert.False(t, h.mountedAtReprogram)
	assert.False(t, h.vols.IsMounted("0:"))
}

func TestBootSequence(t *testing.T) {
	h := newHarness(t, nil)
	h.loop.Boot()

	require.NotEmpty(t, h.led.colors)
	assert.Equal(t, feedback.Yellow, h.led.colors[0])
	assert.True(t, h.vols.IsMounted("0:"))
	assert.Contains(t, h.out.String(), "Commands:")
	assert.True(t, strings.HasSuffix(h.out.String(), "> "))
	assert.Equal(t, "Card mounted", h.disp.lastMessage())

	// Once the message expires and the ack blink is over, the idle view and
	// the steady green LED take over.
	h.tick(2000)
	require.NotEmpty(t, h.disp.idle)
	idle := h.disp.idle[len(h.disp.idle)-1]
	assert.True(t, idle.Mounted)
	assert.False(t, idle.ClockSet)
	assert.Equal(t, feedback.Green, h.led.colors[len(h.led.colors)-1])
}

func TestBootWithoutCard(t *testing.T) {
	h := newHarness(t, nil)
	h.card.SetPresent(false)
	h.loop.Boot()

	assert.False(t, h.vols.IsMounted("0:"))
	assert.Equal(t, "Storage media not present", h.disp.lastMessage())

	h.tick(2000)
	idle := h.disp.idle[len(h.disp.idle)-1]
	assert.False(t, idle.Present)
	assert.Equal(t, feedback.Purple, h.led.colors[len(h.led.colors)-1])
}

func TestIdleViewWhileRecording(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")
	h.tick(2000)

	require.NotEmpty(t, h.disp.idle)
	idle := h.disp.idle[len(h.disp.idle)-1]
	assert.True(t, idle.Recording)
	assert.Equal(t, uint32(2), idle.Samples)
	assert.Equal(t, h.cfg.MaxSamples, idle.Limit)
}

func TestTelemetryMirrorsEvents(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.MaxSamples = 2 })
	h.command("mount")
	h.command("i")
	h.tick(1000)

	require.Len(t, h.pub.sessions, 2)
	assert.Equal(t, "started", h.pub.sessions[0].Event)
	assert.Equal(t, "ended", h.pub.sessions[1].Event)
	assert.Equal(t, "limit", h.pub.sessions[1].Reason)
	assert.Equal(t, uint32(2), h.pub.sessions[1].Count)

	require.Len(t, h.pub.samples, 2)
	assert.Equal(t, uint32(2), h.pub.samples[1].Seq)

	require.NotEmpty(t, h.pub.volumes)
	assert.Equal(t, "mounted", h.pub.volumes[0].State)
}

func TestShutdownClosesSession(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")
	h.command("i")

	h.loop.Shutdown()
	assert.False(t, sessionActive(h.loop.Session()))
	assert.Equal(t, csvlog.EndStopped, h.loop.Session().Reason)
	assert.False(t, h.vols.IsMounted("0:"))
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	h.command("mount")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.loop.Run(ctx))
	assert.False(t, h.vols.IsMounted("0:"))
}

func TestNewLoopRequiresCollaborators(t *testing.T) {
	_, err := NewLoop(Deps{Config: config.Default()})
	assert.True(t, errors.HasCode(err, errors.ErrInitFailed))
}

// sessionActive calls the pointer-receiver Active on a copy returned by
// Loop.Session, which is not addressable at the call site.
func sessionActive(s csvlog.Session) bool { return s.Active() }
