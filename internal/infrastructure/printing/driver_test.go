package printing

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(t *testing.T, conn printing.Connection, address string) *printing.Printer {
	t.Helper()
	p, err := printing.NewPrinter(uuid.New(), "Caixa 1", conn, address, 80)
	require.NoError(t, err)
	return p
}

func TestNetworkDriver_Send(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	p := newTestPrinter(t, printing.ConnectionNetwork, ln.Addr().String())
	d := &NetworkDriver{DialTimeout: time.Second, Timeout: time.Second}
	require.NoError(t, d.Send(context.Background(), p, []byte("hello printer")))

	select {
	case data := <-received:
		assert.Equal(t, "hello printer", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not receive data")
	}
}

func TestNetworkDriver_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	p := newTestPrinter(t, printing.ConnectionNetwork, addr)
	d := &NetworkDriver{DialTimeout: 500 * time.Millisecond}
	err = d.Send(context.Background(), p, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

type recordedCall struct {
	name  string
	args  []string
	stdin []byte
}

func fakeRunner(calls *[]recordedCall, stderr string, err error) Runner {
	return func(_ context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args, stdin: stdin})
		return []byte(stderr), err
	}
}

func TestCommandDriver_Linux(t *testing.T) {
	var calls []recordedCall
	d := &CommandDriver{LPCommand: "lp", GOOS: "linux", Timeout: time.Second, Run: fakeRunner(&calls, "", nil)}

	p := newTestPrinter(t, printing.ConnectionUSB, "EPSON_TM_T20")
	require.NoError(t, d.Send(context.Background(), p, []byte("data")))

	require.Len(t, calls, 1)
	assert.Equal(t, "lp", calls[0].name)
	assert.Equal(t, []string{"-d", "EPSON_TM_T20", "-o", "raw"}, calls[0].args)
	assert.Equal(t, "data", string(calls[0].stdin))
}

func TestCommandDriver_RefusesPathsOutsideDev(t *testing.T) {
	target := filepath.Join(t.TempDir(), "receipt.txt")
	require.NoError(t, os.WriteFile(target, []byte("ORIGINAL-CONTENT"), 0o600))

	var calls []recordedCall
	d := &CommandDriver{GOOS: "linux", Run: fakeRunner(&calls, "", nil)}

	// stored before addresses were validated
	p := newTestPrinter(t, printing.ConnectionUSB, "/dev/usb/lp0")
	for _, addr := range []string{"/dev/.." + target, target, "/dev/null/../../" + target} {
		p.Address = addr
		err := d.Send(context.Background(), p, []byte("OVERWRITE"))
		assert.ErrorIs(t, err, ErrNotDevice, addr)
	}

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "ORIGINAL-CONTENT", string(content))
	assert.Empty(t, calls)
}

func TestCommandDriver_WritesDevice(t *testing.T) {
	if _, err := os.Stat("/dev/null"); err != nil {
		t.Skip("no /dev/null on this system")
	}
	d := &CommandDriver{GOOS: "linux"}
	p := newTestPrinter(t, printing.ConnectionUSB, "/dev/null")
	require.NoError(t, d.Send(context.Background(), p, []byte("data")))
}

func TestCommandDriver_CapturesStderr(t *testing.T) {
	var calls []recordedCall
	d := &CommandDriver{GOOS: "darwin", Run: fakeRunner(&calls, "lp: The printer or class does not exist.\n", errors.New("exit status 1"))}

	p := newTestPrinter(t, printing.ConnectionUSB, "MISSING")
	err := d.Send(context.Background(), p, []byte("data"))

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "lp", cmdErr.Command)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestCommandDriver_Windows(t *testing.T) {
	t.Run("shared printer uses copy /b", func(t *testing.T) {
		var calls []recordedCall
		d := &CommandDriver{GOOS: "windows", TempDir: t.TempDir(), Run: fakeRunner(&calls, "", nil)}

		p := newTestPrinter(t, printing.ConnectionShared, `\\CAIXA01\EPSON`)
		require.NoError(t, d.Send(context.Background(), p, []byte("data")))

		require.Len(t, calls, 1)
		assert.Equal(t, "cmd", calls[0].name)
		assert.Equal(t, []string{"/C", "copy", "/b"}, calls[0].args[:3])
		assert.Equal(t, `\\CAIXA01\EPSON`, calls[0].args[4])
	})

	t.Run("local queue uses PowerShell", func(t *testing.T) {
		var calls []recordedCall
		d := &CommandDriver{GOOS: "windows", PowerShell: "pwsh", TempDir: t.TempDir(), Run: fakeRunner(&calls, "", nil)}

		p := newTestPrinter(t, printing.ConnectionUSB, "Bematech MP-4200 TH")
		require.NoError(t, d.Send(context.Background(), p, []byte("data")))

		require.Len(t, calls, 1)
		assert.Equal(t, "pwsh", calls[0].name)
		script := calls[0].args[len(calls[0].args)-1]
		assert.True(t, strings.Contains(script, "Out-Printer -Name 'Bematech MP-4200 TH'"))
	})
}

type countingDriver struct{ calls int }

func (d *countingDriver) Send(context.Context, *printing.Printer, []byte) error {
	d.calls++
	return nil
}

func TestDispatcher_RoutesByConnection(t *testing.T) {
	network, command := &countingDriver{}, &countingDriver{}
	d := &Dispatcher{Network: network, Command: command}

	require.NoError(t, d.Send(context.Background(), newTestPrinter(t, printing.ConnectionNetwork, "10.0.0.5"), nil))
	require.NoError(t, d.Send(context.Background(), newTestPrinter(t, printing.ConnectionUSB, "EPSON"), nil))
	require.NoError(t, d.Send(context.Background(), newTestPrinter(t, printing.ConnectionShared, `\\pc\epson`), nil))

	assert.Equal(t, 1, network.calls)
	assert.Equal(t, 2, command.calls)
}
