package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	company := uuid.MustParse("7d3f4c0e-1a2b-4c5d-8e9f-0a1b2c3d4e5f")
	id := uuid.MustParse("11111111-2222-4333-8444-555555555555")

	t.Run("builds the company prefixed path", func(t *testing.T) {
		key := Key(company, KindProduct, id, "photo.png")
		assert.Equal(t, "companies/"+company.String()+"/products/"+id.String()+"/photo.png", key)
	})

	t.Run("strips directories from the file name", func(t *testing.T) {
		key := Key(company, KindLogo, id, "../../other/evil.png")
		assert.True(t, strings.HasSuffix(key, "/"+id.String()+"/evil.png"))
		key = Key(company, KindLogo, id, `C:\Users\x\logo.jpg`)
		assert.True(t, strings.HasSuffix(key, "/logo.jpg"))
	})

	t.Run("blank file falls back to a fixed name", func(t *testing.T) {
		key := Key(company, KindFiscalXML, id, "")
		assert.True(t, strings.HasSuffix(key, "/file"))
	})

	t.Run("company can be recovered from a key", func(t *testing.T) {
		got, ok := CompanyOf(Key(company, KindFiscalPDF, id, "danfe.pdf"))
		require.True(t, ok)
		assert.Equal(t, company, got)

		_, ok = CompanyOf("tmp/whatever")
		assert.False(t, ok)
	})
}

func TestStubObjectStorage(t *testing.T) {
	ctx := context.Background()
	s := NewStubObjectStorage()

	t.Run("empty key is rejected", func(t *testing.T) {
		assert.ErrorIs(t, s.Upload(ctx, "", nil, "text/plain"), ErrEmptyKey)
		assert.ErrorIs(t, s.Delete(ctx, ""), ErrEmptyKey)
		_, _, err := s.PresignUpload(ctx, "", "image/png", time.Minute)
		assert.ErrorIs(t, err, ErrEmptyKey)
		_, err = s.Exists(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("upload keeps a copy of the data", func(t *testing.T) {
		data := []byte("<nfe/>")
		require.NoError(t, s.Upload(ctx, "a/b.xml", data, "application/xml"))
		data[0] = 'X'

		got, ok := s.Object("a/b.xml")
		require.True(t, ok)
		assert.Equal(t, "<nfe/>", string(got))

		require.NoError(t, s.Delete(ctx, "a/b.xml"))
		_, ok = s.Object("a/b.xml")
		assert.False(t, ok)
	})

	t.Run("presigned urls carry the key and expiry", func(t *testing.T) {
		url, expiresAt, err := s.PresignDownload(ctx, "a/b.pdf", 10*time.Minute)
		require.NoError(t, err)
		assert.Contains(t, url, "/download/a/b.pdf")
		assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)
	})
}
