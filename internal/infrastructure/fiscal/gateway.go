// Package fiscal implements the HTTP client of the fiscal document gateway
// that talks to SEFAZ and the municipalities on our behalf.
package fiscal

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pdv/backend/internal/domain/fiscal"
	"github.com/pdv/backend/internal/infrastructure/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var _ fiscal.Gateway = (*HTTPGateway)(nil)

// APIError is a non-retryable error answered by the gateway
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fiscal gateway: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// HTTPGateway calls the REST fiscal gateway.
// Authentication is HTTP basic with the token as user and an empty password.
type HTTPGateway struct {
	baseURL    string
	token      string
	maxRetries int
	client     *http.Client
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// GatewayOption customises HTTPGateway
type GatewayOption func(*HTTPGateway)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *HTTPGateway) { g.client = c }
}

// WithBackOff replaces the retry policy
func WithBackOff(fn func() backoff.BackOff) GatewayOption {
	return func(g *HTTPGateway) { g.newBackOff = fn }
}

// NewHTTPGateway creates a gateway client from configuration
func NewHTTPGateway(cfg config.FiscalConfig, logger *zap.Logger, opts ...GatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Issue sends a new document for authorization
func (g *HTTPGateway) Issue(ctx context.Context, docType fiscal.DocumentType, ref string, payload any) (*fiscal.GatewayResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fiscal payload: %w", err)
	}
	path := "/v2/" + string(docType) + "?ref=" + url.QueryEscape(ref)
	raw, err := g.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	res := ParseResult(docType, raw)
	if res.Ref == "" {
		res.Ref = ref
	}
	return res, nil
}

// Query fetches the current state of a document
func (g *HTTPGateway) Query(ctx context.Context, docType fiscal.DocumentType, ref string) (*fiscal.GatewayResult, error) {
	raw, err := g.do(ctx, http.MethodGet, "/v2/"+string(docType)+"/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	res := ParseResult(docType, raw)
	if res.Ref == "" {
		res.Ref = ref
	}
	return res, nil
}

// Cancel requests cancellation of an authorized document
func (g *HTTPGateway) Cancel(ctx context.Context, docType fiscal.DocumentType, ref, justification string) (*fiscal.GatewayResult, error) {
	body, _ := json.Marshal(map[string]string{"justificativa": justification})
	raw, err := g.do(ctx, http.MethodDelete, "/v2/"+string(docType)+"/"+url.PathEscape(ref), body)
	if err != nil {
		return nil, err
	}
	res := ParseResult(docType, raw)
	res.Ref = ref
	return res, nil
}

// isGatewayURL reports whether target has the scheme and host of the
// configured base URL. Credentials are only sent there.
func (g *HTTPGateway) isGatewayURL(target string) bool {
	base, err := url.Parse(g.baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

// Download fetches a file (XML or DANFE) by the path returned in a result.
// Absolute URLs outside the gateway are fetched without credentials.
func (g *HTTPGateway) Download(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("download path is required")
	}
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.do(ctx, http.MethodGet, path, nil)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	target := path
	if strings.HasPrefix(path, "/") {
		target = g.baseURL + path
	}
	authorize := g.isGatewayURL(target)

	var out []byte
	attempt := 0
	op := func() error {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if authorize {
			req.SetBasicAuth(g.token, "")
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			g.logger.Warn("Fiscal gateway request failed",
				zap.String("method", method), zap.String("path", path),
				zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			g.logger.Warn("Fiscal gateway transient error",
				zap.String("method", method), zap.String("path", path),
				zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
			return fmt.Errorf("fiscal gateway returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			// A rejected document is still a result, not an error
			if gjson.GetBytes(data, "status").Exists() {
				out = data
				return nil
			}
			return backoff.Permanent(&APIError{
				StatusCode: resp.StatusCode,
				Code:       gjson.GetBytes(data, "codigo").String(),
				Message:    gjson.GetBytes(data, "mensagem").String(),
			})
		}
		out = data
		return nil
	}

	var b backoff.BackOff = g.newBackOff()
	if g.maxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(g.maxRetries))
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", fiscal.ErrGatewayUnavailable, err)
	}
	return out, nil
}

// ParseResult maps a gateway JSON document (response or webhook) into a result
func ParseResult(docType fiscal.DocumentType, raw []byte) *fiscal.GatewayResult {
	doc := gjson.ParseBytes(raw)
	res := &fiscal.GatewayResult{
		Ref:        doc.Get("ref").String(),
		Status:     mapStatus(doc.Get("status").String()),
		StatusCode: doc.Get("status_sefaz").String(),
		Message:    doc.Get("mensagem_sefaz").String(),
		Protocol:   doc.Get("protocolo").String(),
		XMLPath:    doc.Get("caminho_xml_nota_fiscal").String(),
		QRCodeURL:  doc.Get("qrcode_url").String(),
	}

	if docType == fiscal.TypeNFSe {
		res.AccessKey = doc.Get("codigo_verificacao").String()
		res.PDFPath = doc.Get("url_danfse").String()
		res.Protocol = doc.Get("numero").String()
		if first := doc.Get("erros.0"); first.Exists() {
			res.StatusCode = first.Get("codigo").String()
			res.Message = first.Get("mensagem").String()
		}
	} else {
		res.AccessKey = strings.TrimPrefix(doc.Get("chave_nfe").String(), "NFe")
		res.PDFPath = doc.Get("caminho_danfe").String()
	}

	if res.Message == "" {
		res.Message = doc.Get("mensagem").String()
	}
	if ts := doc.Get("data_emissao").String(); ts != "" && res.Status == fiscal.StatusAuthorized {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			res.AuthorizedAt = t
		}
	}
	return res
}

func mapStatus(s string) fiscal.Status {
	switch s {
	case "autorizado":
		return fiscal.StatusAuthorized
	case "erro_autorizacao", "denegado":
		return fiscal.StatusRejected
	case "cancelado":
		return fiscal.StatusCancelled
	default:
		return fiscal.StatusProcessing
	}
}

// VerifyWebhookSecret compares the secret sent by the gateway in constant time
func VerifyWebhookSecret(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
