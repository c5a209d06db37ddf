// Package blinky implements the session protocol for Nordic "Blinky"
// peripherals: a development board exposing one LED and one button through
// the LED Button Service.
//
// The package is transport agnostic. A Session drives the profile:
//   - connect and discover the LED Button Service
//   - discover the Button and LED characteristics
//   - enable Button notifications, with a read fallback
//   - read and write the LED, read the Button
//   - report every state change to a single Observer
//
// All protocol decisions are made by Machine, a pure state machine that maps
// caller operations and Transport events to a list of effects. Session
// executes those effects against a Transport and an Observer. Session does no
// locking of its own; Loop provides the single goroutine it expects.
package blinky
