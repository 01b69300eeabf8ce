package fiscal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *HTTPGateway {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewHTTPGateway(config.FiscalConfig{
		BaseURL:    server.URL,
		Token:      "secret-token",
		Timeout:    2 * time.Second,
		MaxRetries: 3,
	}, zap.NewNop(), WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}))
}

func TestHTTPGateway_Issue(t *testing.T) {
	var gotBody map[string]any
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "secret-token", user)
		assert.Empty(t, pass)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/nfce", r.URL.Path)
		assert.Equal(t, "ref-1", r.URL.Query().Get("ref"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"status": "autorizado",
			"status_sefaz": "100",
			"mensagem_sefaz": "Autorizado o uso da NF-e",
			"chave_nfe": "NFe35240112345678000195650010000000011000000017",
			"protocolo": "135240000000001",
			"caminho_xml_nota_fiscal": "/arquivos/1.xml",
			"caminho_danfe": "/arquivos/1.html",
			"qrcode_url": "https://sefaz/qr?p=1",
			"data_emissao": "2024-01-15T10:00:00-03:00"
		}`))
	})

	res, err := g.Issue(context.Background(), fiscal.TypeNFCe, "ref-1", map[string]any{"natureza_operacao": "Venda"})
	require.NoError(t, err)
	assert.Equal(t, "Venda", gotBody["natureza_operacao"])
	assert.Equal(t, fiscal.StatusAuthorized, res.Status)
	assert.Equal(t, "35240112345678000195650010000000011000000017", res.AccessKey)
	assert.Equal(t, "135240000000001", res.Protocol)
	assert.Equal(t, "/arquivos/1.xml", res.XMLPath)
	assert.Equal(t, "ref-1", res.Ref)
	assert.False(t, res.AuthorizedAt.IsZero())
}

func TestHTTPGateway_RetriesTransientFailures(t *testing.T) {
	var calls int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"processando_autorizacao"}`))
	})

	res, err := g.Query(context.Background(), fiscal.TypeNFe, "ref-2")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, fiscal.StatusProcessing, res.Status)
}

func TestHTTPGateway_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := g.Query(context.Background(), fiscal.TypeNFCe, "ref-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, fiscal.ErrGatewayUnavailable)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestHTTPGateway_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"codigo":"requisicao_invalida","mensagem":"CNPJ do emitente nao autorizado"}`))
	})

	_, err := g.Issue(context.Background(), fiscal.TypeNFCe, "ref-4", map[string]any{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "requisicao_invalida", apiErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPGateway_RejectionIsAResult(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":"erro_autorizacao","status_sefaz":"778","mensagem_sefaz":"NCM inexistente"}`))
	})

	res, err := g.Issue(context.Background(), fiscal.TypeNFCe, "ref-5", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, fiscal.StatusRejected, res.Status)
	assert.Equal(t, "778", res.StatusCode)
	assert.Equal(t, "NCM inexistente", res.Message)
}

func TestHTTPGateway_Cancel(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v2/nfce/ref-6", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"justificativa":"Cliente desistiu da compra"}`, string(raw))
		_, _ = w.Write([]byte(`{"status":"cancelado","status_sefaz":"135"}`))
	})

	res, err := g.Cancel(context.Background(), fiscal.TypeNFCe, "ref-6", "Cliente desistiu da compra")
	require.NoError(t, err)
	assert.Equal(t, fiscal.StatusCancelled, res.Status)
	assert.Equal(t, "ref-6", res.Ref)
}

func TestHTTPGateway_Download(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/arquivos/1.xml", r.URL.Path)
		_, _ = w.Write([]byte("<nfeProc/>"))
	})

	data, err := g.Download(context.Background(), "arquivos/1.xml")
	require.NoError(t, err)
	assert.Equal(t, "<nfeProc/>", string(data))

	_, err = g.Download(context.Background(), "")
	assert.Error(t, err)
}

func TestHTTPGateway_DownloadSendsCredentialsOnlyToGateway(t *testing.T) {
	var storageAuth atomic.Bool
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		storageAuth.Store(ok || r.Header.Get("Authorization") != "")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	t.Cleanup(storage.Close)

	var gatewayAuth atomic.Bool
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		gatewayAuth.Store(ok && user == "secret-token")
		_, _ = w.Write([]byte("<nfeProc/>"))
	})

	data, err := g.Download(context.Background(), storage.URL+"/danfe/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.False(t, storageAuth.Load())

	_, err = g.Download(context.Background(), g.baseURL+"/arquivos/1.xml")
	require.NoError(t, err)
	assert.True(t, gatewayAuth.Load())
}

func TestParseResult_NFSe(t *testing.T) {
	res := ParseResult(fiscal.TypeNFSe, []byte(`{
		"ref": "svc-1",
		"status": "erro_autorizacao",
		"erros": [{"codigo": "E10", "mensagem": "Aliquota invalida"}]
	}`))
	assert.Equal(t, "svc-1", res.Ref)
	assert.Equal(t, fiscal.StatusRejected, res.Status)
	assert.Equal(t, "E10", res.StatusCode)
	assert.Equal(t, "Aliquota invalida", res.Message)

	res = ParseResult(fiscal.TypeNFSe, []byte(`{"status":"autorizado","numero":"123","codigo_verificacao":"ABC","url_danfse":"https://pref/nfse/123"}`))
	assert.Equal(t, fiscal.StatusAuthorized, res.Status)
	assert.Equal(t, "123", res.Protocol)
	assert.Equal(t, "ABC", res.AccessKey)
	assert.Equal(t, "https://pref/nfse/123", res.PDFPath)
}

func TestVerifyWebhookSecret(t *testing.T) {
	assert.True(t, VerifyWebhookSecret("s3cret", "s3cret"))
	assert.False(t, VerifyWebhookSecret("s3cret", "other"))
	assert.False(t, VerifyWebhookSecret("", ""))
}
