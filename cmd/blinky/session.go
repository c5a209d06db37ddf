package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blinky/internal/blinky"
	"github.com/srg/blinky/internal/transport/goble"
	"github.com/srg/blinky/pkg/config"
)

// deviceSession is a connected session running on its own loop.
type deviceSession struct {
	loop      *blinky.Loop
	transport *goble.Transport
	observer  *consoleObserver
	done      <-chan error
	cancel    context.CancelFunc
	cfg       *config.Config
	logger    *logrus.Logger
}

// openSession finds address, connects and waits until discovery settles.
func openSession(ctx context.Context, cfg *config.Config, logger *logrus.Logger, address string, obs *consoleObserver) (*deviceSession, error) {
	scanCtx, cancelScan := context.WithTimeout(ctx, cfg.ScanTimeout)
	p, err := goble.NewScanner(logger).Find(scanCtx, address)
	cancelScan()
	if err != nil {
		return nil, err
	}

	transport := goble.NewTransport(string(p.ID), goble.Options{
		ConnectTimeout:   cfg.ConnectTimeout,
		OperationTimeout: cfg.OperationTimeout,
		EventBuffer:      cfg.EventBuffer,
	}, logger)

	session := blinky.NewSession(p, transport, obs, logger)
	obs.session = session

	loopCtx, cancel := context.WithCancel(context.Background())
	ds := &deviceSession{
		loop:      blinky.NewLoop(session, logger),
		transport: transport,
		observer:  obs,
		cancel:    cancel,
		cfg:       cfg,
		logger:    logger,
	}
	ds.done = ds.loop.Start(loopCtx, transport.Events())

	var connectErr error
	if err := ds.loop.Do(ctx, func(s *blinky.Session) { connectErr = s.Connect() }); err != nil {
		ds.shutdown()
		return nil, err
	}
	if connectErr != nil {
		ds.shutdown()
		return nil, connectErr
	}

	// discovery needs a few round trips after the link is up
	deadline := cfg.ConnectTimeout + 4*cfg.OperationTimeout
	select {
	case <-obs.ready:
		return ds, nil
	case err := <-obs.failed:
		ds.Close()
		return nil, err
	case <-obs.gone:
		ds.shutdown()
		select {
		case err := <-obs.failed:
			return nil, err
		default:
			return nil, ErrConnectionLost
		}
	case <-time.After(deadline):
		ds.Close()
		return nil, fmt.Errorf("%w: connecting to %s after %v", blinky.ErrTimeout, address, deadline)
	case <-ctx.Done():
		ds.Close()
		return nil, ctx.Err()
	}
}

// Do runs fn on the session loop.
func (d *deviceSession) Do(ctx context.Context, fn func(*blinky.Session)) error {
	return d.loop.Do(ctx, fn)
}

// Close disconnects, waits for the confirmation and stops the loop.
func (d *deviceSession) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.OperationTimeout)
	defer cancel()

	if err := d.loop.Do(ctx, func(s *blinky.Session) { s.Disconnect() }); err == nil {
		select {
		case <-d.observer.gone:
		case <-ctx.Done():
			d.logger.Warn("Timed out waiting for disconnection")
		}
	}
	d.shutdown()
}

func (d *deviceSession) shutdown() {
	d.cancel()
	<-d.done
	if err := d.transport.Close(); err != nil {
		d.logger.WithError(err).Warn("Failed to close transport")
	}
}
