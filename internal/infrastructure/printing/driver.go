package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/printing"
	"github.com/pdv/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Driver delivers a raw ESC/POS stream to a printer
type Driver interface {
	Send(ctx context.Context, p *printing.Printer, data []byte) error
}

// NetworkDriver writes to the printer raw port (JetDirect, 9100)
type NetworkDriver struct {
	DialTimeout time.Duration
	Timeout     time.Duration
}

func (d *NetworkDriver) Send(ctx context.Context, p *printing.Printer, data []byte) error {
	dialer := &net.Dialer{Timeout: d.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("printer %s unreachable at %s: %w", p.Name, p.Address, err)
	}
	defer conn.Close()

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetWriteDeadline(deadline)

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to write to printer %s: %w", p.Name, err)
	}
	return nil
}

// CommandError is a failed spooler command with its captured output
type CommandError struct {
	Command string
	Err     error
	Stderr  string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Command, e.Err, msg)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes a command feeding stdin and returns its stderr
type Runner func(ctx context.Context, name string, args []string, stdin []byte) (stderr []byte, err error)

func execRunner(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// CommandDriver sends jobs through the operating system spooler
type CommandDriver struct {
	LPCommand  string
	PowerShell string
	Timeout    time.Duration
	GOOS       string
	TempDir    string
	Run        Runner
	Logger     *zap.Logger
}

// NewCommandDriver creates a spooler driver for the current OS
func NewCommandDriver(cfg config.PrinterConfig, logger *zap.Logger) *CommandDriver {
	return &CommandDriver{
		LPCommand:  cfg.LPCommand,
		PowerShell: cfg.PowerShell,
		Timeout:    cfg.CommandTimeout,
		GOOS:       runtime.GOOS,
		TempDir:    os.TempDir(),
		Run:        execRunner,
		Logger:     logger,
	}
}

func (d *CommandDriver) Send(ctx context.Context, p *printing.Printer, data []byte) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	if d.GOOS == "windows" {
		return d.sendWindows(ctx, p, data)
	}

	if strings.HasPrefix(p.Address, "/") {
		return writeDevice(p.Address, data)
	}

	lp := d.LPCommand
	if lp == "" {
		lp = "lp"
	}
	args := []string{"-d", p.Address, "-o", "raw"}
	return d.run(ctx, lp, args, data)
}

func (d *CommandDriver) sendWindows(ctx context.Context, p *printing.Printer, data []byte) error {
	tmp := filepath.Join(d.TempDir, "pdv-"+uuid.NewString()+".bin")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write spool file: %w", err)
	}
	defer os.Remove(tmp)

	if p.Connection == printing.ConnectionShared || strings.HasPrefix(p.Address, `\\`) {
		return d.run(ctx, "cmd", []string{"/C", "copy", "/b", tmp, p.Address}, nil)
	}

	ps := d.PowerShell
	if ps == "" {
		ps = "powershell.exe"
	}
	script := fmt.Sprintf("Get-Content -LiteralPath '%s' -Raw | Out-Printer -Name '%s'",
		psQuote(tmp), psQuote(p.Address))
	return d.run(ctx, ps, []string{"-NoProfile", "-NonInteractive", "-Command", script}, nil)
}

func (d *CommandDriver) run(ctx context.Context, name string, args []string, stdin []byte) error {
	stderr, err := d.Run(ctx, name, args, stdin)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out: %w", ctx.Err())
		}
		cmdErr := &CommandError{Command: name, Err: err, Stderr: string(stderr)}
		if d.Logger != nil {
			d.Logger.Warn("Print command failed", zap.String("command", name), zap.Strings("args", args), zap.Error(cmdErr))
		}
		return cmdErr
	}
	return nil
}

// ErrNotDevice is returned when a printer path is not a device node under /dev/
var ErrNotDevice = errors.New("printer path is not a device")

func writeDevice(path string, data []byte) error {
	if err := printing.ValidateLocalAddress(path); err != nil || !printing.IsDevicePath(path) {
		return fmt.Errorf("%w: %q", ErrNotDevice, path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open printer device: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat printer device: %w", err)
	}
	if info.Mode()&os.ModeDevice == 0 {
		return fmt.Errorf("%w: %q", ErrNotDevice, path)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write printer device: %w", err)
	}
	return nil
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Dispatcher picks the driver for the printer connection
type Dispatcher struct {
	Network Driver
	Command Driver
}

// NewDispatcher wires the network and spooler drivers from configuration
func NewDispatcher(cfg config.PrinterConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Network: &NetworkDriver{DialTimeout: cfg.DialTimeout, Timeout: cfg.CommandTimeout},
		Command: NewCommandDriver(cfg, logger),
	}
}

func (d *Dispatcher) Send(ctx context.Context, p *printing.Printer, data []byte) error {
	if p.Connection == printing.ConnectionNetwork {
		return d.Network.Send(ctx, p, data)
	}
	return d.Command.Send(ctx, p, data)
}
