// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/relabs-tech/imu_logger/internal/config"
	"github.com/relabs-tech/imu_logger/internal/console"
	"github.com/relabs-tech/imu_logger/internal/csvlog"
	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/feedback"
	"github.com/relabs-tech/imu_logger/internal/input"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/relabs-tech/imu_logger/internal/notify"
	"github.com/relabs-tech/imu_logger/internal/scheduler"
	"github.com/relabs-tech/imu_logger/internal/sensors"
	"github.com/relabs-tech/imu_logger/internal/storage"
	"github.com/relabs-tech/imu_logger/internal/telemetry"
)

// ByteSource yields console input one byte at a time without blocking.
type ByteSource interface {
	Next() (byte, bool)
}

// Deps are the collaborators of a Loop. Console, Edges, LED, Buzzer,
// Telemetry and Reprogram may be left nil.
type Deps struct {
	Config    *config.Config
	Ticks     clock.Source
	RTC       *clock.RTC
	Volumes   *storage.Manager
	Sensor    sensors.IMURawReader
	Display   notify.Display
	Console   ByteSource
	Out       io.Writer
	Echo      bool
	Edges     *input.Queue
	LED       feedback.LED
	Buzzer    feedback.Buzzer
	Telemetry telemetry.Publisher
	Reprogram func() error
}

// Loop is the control loop. All decisions happen on the goroutine calling
// Step; button capture and console reading only feed its queues.
type Loop struct {
	cfg   *config.Config
	ticks clock.Source
	rtc   *clock.RTC
	vols  *storage.Manager

	sched   scheduler.Scheduler
	writer  *csvlog.Writer
	session csvlog.Session
	sensor  sensors.IMURawReader

	edges *input.Queue
	agg   *input.Aggregator

	input  ByteSource
	out    io.Writer
	table  *console.Table
	interp *console.Interpreter

	notes *notify.Controller
	fb    *feedback.Controller
	pub   telemetry.Publisher

	reprogram func() error

	now     clock.Ticks
	booting bool

	errs errors.Factory
	log  logger.Component
}

// NewLoop wires the components together. It does not touch hardware.
func NewLoop(d Deps) (*Loop, error) {
	if d.Config == nil || d.Ticks == nil || d.RTC == nil || d.Volumes == nil ||
		d.Sensor == nil || d.Display == nil || d.Out == nil {
		return nil, errors.New().WithMessage(errors.ErrInitFailed, "incomplete loop dependencies")
	}

	l := &Loop{
		cfg:       d.Config,
		ticks:     d.Ticks,
		rtc:       d.RTC,
		vols:      d.Volumes,
		writer:    csvlog.NewWriter(d.Volumes),
		sensor:    d.Sensor,
		edges:     d.Edges,
		input:     d.Console,
		out:       d.Out,
		notes:     notify.New(d.Display, d.Config.MessageTimeoutMs, d.Config.DisplayRefreshMs),
		fb:        feedback.New(d.LED, d.Buzzer),
		pub:       d.Telemetry,
		reprogram: d.Reprogram,
		booting:   true,
		errs:      errors.New(),
		log:       logger.For("loop"),
	}
	if l.edges == nil {
		l.edges = input.NewQueue(0)
	}
	if l.pub == nil {
		l.pub = telemetry.Nop{}
	}
	l.agg = input.NewAggregator(d.Config.DebounceMs, l.defaultMounted)

	l.vols.OnChange = func(v storage.Volume) {
		l.pub.Volume(telemetry.NewVolumeEvent(v))
	}

	table, err := console.NewTable(console.Commands, l.handlers())
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInitFailed, err)
	}
	l.table = table
	l.interp = console.NewInterpreter(table, d.Out, d.Echo, l.notify)
	l.now = d.Ticks.Now()
	return l, nil
}

// Edges is the queue button watchers push into.
func (l *Loop) Edges() *input.Queue {
	return l.edges
}

// Session returns a copy of the current session.
func (l *Loop) Session() csvlog.Session {
	return l.session
}

// Boot runs the start-up sequence: yellow LED, greeting, initial mount of
// the default volume and the command list.
func (l *Loop) Boot() {
	l.now = l.ticks.Now()
	l.fb.Update(l.now, l.feedbackState())
	l.notes.ShowFor(l.now, "System starting")
	fmt.Fprintln(l.out, "IMU data logger")

	if err := l.mountVolume(l.vols.Default()); err != nil {
		l.report(err)
	}

	l.table.WriteHelp(l.out)
	l.interp.Prompt()
	l.booting = false
}

// Run steps the loop every LOOP_INTERVAL_MS until ctx is done or a boot
// request ends it.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(l.cfg.LoopIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := l.Step(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			l.Shutdown()
			return nil
		case <-ticker.C:
		}
	}
}

// Step runs one iteration. The only error it returns is ErrReprogram.
func (l *Loop) Step() error {
	l.now = l.ticks.Now()

	// 1. one console character
	if l.input != nil {
		if c, ok := l.input.Next(); ok {
			if err := l.interp.Feed(c); err != nil {
				l.log.Debug().Err(err).Msg("console command failed")
			}
		}
	}

	// 2. button edges
	l.agg.Drain(l.edges)

	// 3. boot request
	if l.agg.TakeBootRequest() {
		return l.enterReprogram()
	}

	// 4. mount intent
	if want, ok := l.agg.TakeMountChange(); ok {
		l.applyMountIntent(want)
	}

	// 5. recording intent
	if want, ok := l.agg.TakeRecordingChange(); ok {
		l.applyRecordingIntent(want)
	}

	// 6. due sample
	if l.session.Active() && l.sched.IsDue(l.now) {
		l.takeSample()
	}

	// 7. idle view
	l.notes.Refresh(l.now, l.idleStatus)

	// 8. LED and buzzer
	l.fb.Update(l.now, l.feedbackState())
	return nil
}

// Shutdown ends an active session and unmounts the default volume.
func (l *Loop) Shutdown() {
	l.now = l.ticks.Now()
	l.endSession(csvlog.EndStopped)
	l.releaseVolume()
	l.log.Info().Msg("control loop stopped")
}

// releaseVolume unmounts the default volume before the process lets go of
// the device.
func (l *Loop) releaseVolume() {
	name := l.vols.Default()
	if !l.vols.IsMounted(name) {
		return
	}
	if err := l.vols.Unmount(name); err != nil {
		l.log.Err(err).Str("volume", name).Msg("unmount on exit failed")
	}
	l.agg.SetWantMounted(false)
}

func (l *Loop) applyMountIntent(want bool) {
	name := l.vols.Default()
	var err error
	if want {
		err = l.mountVolume(name)
	} else {
		err = l.unmountVolume(name)
	}
	if err != nil {
		l.report(err)
	}
}

func (l *Loop) applyRecordingIntent(want bool) {
	if !l.defaultMounted() {
		l.agg.SetWantRecording(false)
		l.report(l.errs.WithData(errors.ErrNotMounted, l.vols.Default()))
		return
	}
	if !want {
		if l.endSession(csvlog.EndStopped) {
			l.notes.ShowFor(l.now, "Capture stopped")
		}
		return
	}
	if l.session.Active() {
		return
	}
	if err := l.startSession(); err != nil {
		l.report(err)
	}
}

func (l *Loop) mountVolume(name string) error {
	err := l.vols.Mount(name)
	l.agg.SetWantMounted(l.defaultMounted())
	if err != nil {
		l.endSessionOn(name, csvlog.EndMediaFailed)
		return err
	}
	l.notes.ShowFor(l.now, "Card mounted")
	l.fb.Play(l.now, feedback.MountAck)
	return nil
}

func (l *Loop) unmountVolume(name string) error {
	if l.endSessionOn(name, csvlog.EndUnmounted) {
		fmt.Fprintln(l.out, "Capture stopped: volume unmounted")
	}
	err := l.vols.Unmount(name)
	l.agg.SetWantMounted(l.defaultMounted())
	if err != nil {
		return err
	}
	l.notes.ShowFor(l.now, "Card unmounted")
	l.fb.Play(l.now, feedback.UnmountAck)
	return nil
}

// startSession opens a new log file on the default volume and arms the
// scheduler so the first sample is taken in this same iteration.
func (l *Loop) startSession() error {
	if l.session.Active() {
		return l.errs.WithData(errors.ErrSessionActive, l.session.File)
	}
	name := l.vols.Default()
	if !l.vols.IsMounted(name) {
		return l.errs.WithData(errors.ErrNotMounted, name)
	}
	if err := l.sensor.Probe(); err != nil {
		return err
	}

	start, err := l.rtc.Now()
	if err != nil {
		l.log.Warn().Msg("clock unset, using fallback file name")
		start = time.Time{}
	}
	file := csvlog.FileName(start)

	if err := l.session.Begin(name, file, start, l.cfg.MaxSamples); err != nil {
		return err
	}
	if err := l.writer.WriteHeader(&l.session); err != nil {
		l.session.End(csvlog.EndWriteFailed)
		l.agg.SetWantRecording(false)
		return err
	}

	l.sched.Start(l.now, l.cfg.SamplePeriodMs)
	l.agg.SetWantRecording(true)
	l.fb.Play(l.now, feedback.SessionStart)
	l.notes.ShowFor(l.now, "Capture started")
	fmt.Fprintf(l.out, "Capturing to %s (max %d samples)\n", file, l.cfg.MaxSamples)

	l.log.Info().Str("file", file).Uint32("limit", l.cfg.MaxSamples).Msg("session started")
	l.pub.Session(telemetry.SessionEvent{
		Event:  "started",
		Volume: name,
		File:   file,
		Limit:  l.cfg.MaxSamples,
		At:     start,
	})
	return nil
}

// endSession stops the active session, if any, and reports whether it did.
func (l *Loop) endSession(reason csvlog.EndReason) bool {
	if !l.session.End(reason) {
		return false
	}
	l.sched.Stop()
	l.agg.SetWantRecording(false)
	l.fb.Play(l.now, feedback.SessionStop)
	fmt.Fprintf(l.out, "Capture finished: %d samples in %s (%s)\n", l.session.Count, l.session.File, reason)

	l.log.Info().
		Str("file", l.session.File).
		Uint32("samples", l.session.Count).
		Str("reason", string(reason)).
		Msg("session ended")
	l.pub.Session(telemetry.SessionEvent{
		Event:  "ended",
		Volume: l.session.Volume,
		File:   l.session.File,
		Count:  l.session.Count,
		Limit:  l.session.Limit,
		Reason: string(reason),
		At:     l.wallClock(),
	})
	return true
}

// endSessionOn ends the session only if it writes to the named volume.
func (l *Loop) endSessionOn(name string, reason csvlog.EndReason) bool {
	if name == "" {
		name = l.vols.Default()
	}
	if !l.session.Active() || l.session.Volume != name {
		return false
	}
	return l.endSession(reason)
}

// takeSample produces and persists one row. Any failure ends the session;
// nothing is retried.
func (l *Loop) takeSample() {
	if err := l.sensor.Probe(); err != nil {
		l.abortSession(csvlog.EndSensorFailed, err)
		return
	}
	raw, err := l.sensor.ReadRaw()
	if err != nil {
		l.abortSession(csvlog.EndSensorFailed, err)
		return
	}

	rec := csvlog.NewRecord(l.wallClock(), l.session.NextSeq(), raw)
	if err := l.writer.AppendSample(&l.session, &rec); err != nil {
		l.abortSession(csvlog.EndWriteFailed, err)
		return
	}
	l.pub.Sample(telemetry.NewSampleEvent(l.session.File, &rec))

	l.sched.Advance(l.now, l.cfg.SamplePeriodMs)
	if l.session.Accepted() {
		l.endSession(csvlog.EndLimit)
		l.notes.ShowFor(l.now, "Capture complete")
	}
}

func (l *Loop) abortSession(reason csvlog.EndReason, err error) {
	l.endSession(reason)
	l.report(err)
}

// report surfaces an error on the console, the display and the log.
func (l *Loop) report(err error) {
	fmt.Fprintf(l.out, "Error: %v\n", err)
	l.notify(messageFor(err))
	l.log.Err(err).Msg("operation failed")
}

func (l *Loop) notify(msg string) {
	l.notes.ShowFor(l.now, msg)
}

func messageFor(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return errors.GetErrorMessage(code)
	}
	return "Command failed"
}

// enterReprogram leaves the loop for the device's reprogramming mode.
func (l *Loop) enterReprogram() error {
	l.notes.Show("Reprogram mode", l.now.Add(l.cfg.MessageTimeoutMs))
	fmt.Fprintln(l.out, "Entering reprogram mode")
	l.log.Warn().Msg("boot request received")

	l.endSession(csvlog.EndStopped)
	l.releaseVolume()
	if l.reprogram != nil {
		if err := l.reprogram(); err != nil {
			l.log.Err(err).Msg("reprogram command failed")
		}
	}
	return l.errs.New(errors.ErrReprogram)
}

// wallClock returns the RTC time, or the zero time when it is unset.
func (l *Loop) wallClock() time.Time {
	t, err := l.rtc.Now()
	if err != nil {
		return time.Time{}
	}
	return t
}

func (l *Loop) defaultMounted() bool {
	return l.vols.IsMounted(l.vols.Default())
}

func (l *Loop) idleStatus() notify.IdleStatus {
	name := l.vols.Default()
	t, err := l.rtc.Now()
	return notify.IdleStatus{
		Now:       t,
		ClockSet:  err == nil,
		Volume:    name,
		Present:   l.vols.IsPresent(name),
		Mounted:   l.vols.IsMounted(name),
		Recording: l.session.Active(),
		Samples:   l.session.Count,
		Limit:     l.session.Limit,
	}
}

func (l *Loop) feedbackState() feedback.State {
	v, _ := l.vols.Volume(l.vols.Default())
	return feedback.State{
		Booting:     l.booting,
		VolumeError: v.State == storage.Error,
		Mounted:     v.State == storage.Mounted,
		Recording:   l.session.Active(),
	}
}
