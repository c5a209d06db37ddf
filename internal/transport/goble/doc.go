// Package goble implements blinky.Transport on top of github.com/go-ble/ble.
//
// A Transport serves one peripheral. Requests are executed one at a time by a
// worker goroutine; their completions and Button notifications are published
// on a single event channel, preserving the serialized callback order the
// session protocol expects. Every blocking GATT call is bounded by a timeout.
package goble
