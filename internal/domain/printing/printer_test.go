package printing

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrinter(t *testing.T) {
	companyID := uuid.New()

	p, err := NewPrinter(companyID, "Caixa 1", ConnectionNetwork, "192.168.0.50", 0)
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.50:9100", p.Address)
	assert.Equal(t, 48, p.Columns())
	assert.Equal(t, 1, p.Version)

	p, err = NewPrinter(companyID, "Balcao", ConnectionShared, "EPSON_TM20", 58)
	require.NoError(t, err)
	assert.Equal(t, 32, p.Columns())

	_, err = NewPrinter(companyID, "X", ConnectionNetwork, "10.0.0.1:99999", 80)
	assert.Error(t, err)
	_, err = NewPrinter(companyID, "X", "bluetooth", "aa", 80)
	assert.Error(t, err)
	_, err = NewPrinter(companyID, "X", ConnectionUSB, "/dev/usb/lp0", 76)
	assert.Error(t, err)
}

func TestNewPrinter_LocalAddress(t *testing.T) {
	companyID := uuid.New()

	valid := []string{"/dev/usb/lp0", "/dev/ttyUSB0", "EPSON_TM_T20", `\\CAIXA01\EPSON`}
	for _, addr := range valid {
		_, err := NewPrinter(companyID, "Caixa", ConnectionUSB, addr, 80)
		assert.NoError(t, err, addr)
	}

	invalid := []string{
		"/dev/../tmp/receipts.txt",
		"/dev/usb/../../etc/passwd",
		"/dev//usb/lp0",
		"/dev/",
		"/etc/passwd",
		"/tmp/out.bin",
		"queue\nname",
		`\\host\..\share`,
	}
	for _, addr := range invalid {
		_, err := NewPrinter(companyID, "Caixa", ConnectionUSB, addr, 80)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr), addr)
		assert.Equal(t, "INVALID_ADDRESS", domainErr.Code, addr)
	}

	p, err := NewPrinter(companyID, "Caixa", ConnectionShared, "EPSON", 80)
	require.NoError(t, err)
	assert.Error(t, p.Update("Caixa", ConnectionUSB, "/dev/../root/.bashrc", 80))
	assert.Equal(t, "EPSON", p.Address)
}

func TestPrinter_DeactivateClearsDefault(t *testing.T) {
	p, err := NewPrinter(uuid.New(), "Caixa", ConnectionUSB, "/dev/usb/lp0", 80)
	require.NoError(t, err)
	p.SetDefault(true)
	p.Deactivate()
	assert.False(t, p.IsDefault)
}

func TestJob_Lifecycle(t *testing.T) {
	j := NewJob(uuid.New(), uuid.New(), KindTest, nil, uuid.New())
	for i := 0; i < MaxJobAttempts; i++ {
		require.NoError(t, j.Start())
		j.Fail(errors.New("connection refused"))
	}
	assert.Equal(t, "connection refused", j.Error)
	assert.Error(t, j.Start())

	j = NewJob(uuid.New(), uuid.New(), KindTest, nil, uuid.Nil)
	require.NoError(t, j.Start())
	j.Complete()
	assert.Equal(t, JobCompleted, j.Status)
	assert.Error(t, j.Start())
}
