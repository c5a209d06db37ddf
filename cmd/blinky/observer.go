package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/srg/blinky/internal/blinky"
)

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	onColor    = color.New(color.FgHiGreen, color.Bold)
	offColor   = color.New(color.FgHiBlack)
	labelColor = color.New(color.FgCyan)
)

// consoleObserver renders session callbacks and lets commands wait for them.
// Callbacks run on the session loop goroutine; the channels and atomics are
// what other goroutines read.
type consoleObserver struct {
	out     io.Writer
	session *blinky.Session // loop goroutine only

	ledSupported    atomic.Bool
	ledWritable     atomic.Bool
	buttonSupported atomic.Bool

	readyOnce sync.Once
	ready     chan struct{}
	goneOnce  sync.Once
	gone      chan struct{}
	failed    chan error
	led       chan bool
}

func newConsoleObserver(out io.Writer) *consoleObserver {
	return &consoleObserver{
		out:    out,
		ready:  make(chan struct{}),
		gone:   make(chan struct{}),
		failed: make(chan error, 1),
		led:    make(chan bool, 8),
	}
}

func (o *consoleObserver) OnConnected(ledSupported, buttonSupported bool) {
	o.ledSupported.Store(ledSupported)
	o.ledWritable.Store(ledSupported && o.session != nil && o.session.LEDWritable())
	o.buttonSupported.Store(buttonSupported)

	if !ledSupported && !buttonSupported {
		errColor.Fprintln(o.out, "Device not supported: LED Button Service not found")
		o.fail(ErrUnsupportedDevice)
		if o.session != nil {
			o.session.Disconnect()
		}
		return
	}

	okColor.Fprintf(o.out, "Connected to %s\n", o.name())
	led := supported(ledSupported)
	if ledSupported && !o.ledWritable.Load() {
		led += offColor.Sprint(" (read-only)")
	}
	fmt.Fprintf(o.out, "  %s %s\n", labelColor.Sprint("LED:   "), led)
	fmt.Fprintf(o.out, "  %s %s\n", labelColor.Sprint("Button:"), supported(buttonSupported))
	o.readyOnce.Do(func() { close(o.ready) })
}

func (o *consoleObserver) OnDisconnected() {
	warnColor.Fprintln(o.out, "Disconnected")
	o.goneOnce.Do(func() { close(o.gone) })
}

func (o *consoleObserver) OnButtonStateChanged(pressed bool) {
	state := offColor.Sprint("released")
	if pressed {
		state = onColor.Sprint("pressed")
	}
	fmt.Fprintf(o.out, "%s %s\n", labelColor.Sprint("Button:"), state)
}

func (o *consoleObserver) OnLEDStateChanged(on bool) {
	fmt.Fprintf(o.out, "%s %s\n", labelColor.Sprint("LED:   "), ledLabel(on))
	select {
	case o.led <- on:
	default:
	}
}

func (o *consoleObserver) OnTransportFailure(op blinky.Op, err error) {
	errColor.Fprintf(o.out, "%s failed: %v\n", op, err)
	switch op {
	case blinky.OpConnect, blinky.OpDiscoverServices, blinky.OpDiscoverCharacteristics:
		o.fail(fmt.Errorf("%s: %w", op, err))
	}
}

func (o *consoleObserver) fail(err error) {
	select {
	case o.failed <- err:
	default:
	}
}

func (o *consoleObserver) name() string {
	if o.session == nil {
		return blinky.UnknownDeviceName
	}
	return fmt.Sprintf("%s (%s)", o.session.Name(), o.session.ID())
}

func supported(v bool) string {
	if v {
		return okColor.Sprint("supported")
	}
	return offColor.Sprint("not supported")
}

func ledLabel(on bool) string {
	if on {
		return onColor.Sprint("on")
	}
	return offColor.Sprint("off")
}

var _ blinky.FailureObserver = (*consoleObserver)(nil)
