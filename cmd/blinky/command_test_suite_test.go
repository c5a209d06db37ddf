package main

import (
	"bytes"
	"context"
	"sync"

	"github.com/fatih/color"
	"github.com/go-ble/ble"
	"github.com/spf13/cobra"
	"github.com/srg/blinky/internal/testutils"
	"github.com/srg/blinky/internal/testutils/mocks"
	"github.com/srg/blinky/internal/transport/goble"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite swaps the go-ble seams for mocks: scans replay
// Advertisements and dials return Client.
type CommandTestSuite struct {
	suite.Suite

	Helper *testutils.TestHelper
	Device *mocks.MockDevice
	Client *mocks.MockGATTClient

	originalDeviceFactory func() (ble.Device, error)
	originalDialer        func(ctx context.Context, address string) (goble.GATTClient, error)
}

func (s *CommandTestSuite) SetupTest() {
	color.NoColor = true
	s.Helper = testutils.NewTestHelper(s.T())
	s.Device = &mocks.MockDevice{}
	s.Client = mocks.NewMockGATTClient()

	// cobra keeps parsed flag values between executions
	for name, value := range map[string]string{"config": "", "log-level": "", "verbose": "false"} {
		s.Require().NoError(rootCmd.PersistentFlags().Set(name, value))
	}
	scanDuration, scanAll = 0, false

	s.originalDeviceFactory = goble.DeviceFactory
	s.originalDialer = goble.Dialer
	goble.DeviceFactory = func() (ble.Device, error) { return s.Device, nil }
	goble.Dialer = func(context.Context, string) (goble.GATTClient, error) { return s.Client, nil }
}

func (s *CommandTestSuite) TearDownTest() {
	goble.DeviceFactory = s.originalDeviceFactory
	goble.Dialer = s.originalDialer
}

// ExecuteCommand runs a cobra command with args, returns output and error.
func (s *CommandTestSuite) ExecuteCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := &syncBuffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// syncBuffer is a bytes.Buffer safe for the loop goroutine and the command
// goroutine writing at the same time.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
