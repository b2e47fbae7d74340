package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Backend is the remote loan API. Screens and services depend on this
// interface so tests can swap in fakes.
type Backend interface {
	RegisterCustomer(ctx context.Context, form RegistrationForm) (Customer, error)
	AnalyzeCredit(ctx context.Context, customerID int64) (CreditAnalysis, error)
	ListLoans(ctx context.Context, customerID int64) ([]Loan, error)
	Simulate(ctx context.Context, req SimulationRequest) (Simulation, error)
	RequestLoan(ctx context.Context, req LoanRequest) (Loan, error)
	ApproveLoan(ctx context.Context, loanID int64) (Loan, error)
	ReleaseLoan(ctx context.Context, loanID int64) (Release, error)
}

// Release is the body of a successful /liberar call. Older backends answer
// with an empty object, so Loan may be nil.
type Release struct {
	Loan    *Loan  `json:"emprestimo,omitempty"`
	Message string `json:"mensagem,omitempty"`
}

// Client talks JSON (and multipart for registration) over HTTP.
type Client struct {
	baseURL         string
	registrationURL string
	http            *http.Client
	log             *zap.Logger
}

var _ Backend = (*Client)(nil)

// Option customizes Client construction.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRegistrationURL sends POST /api/clientes to a full URL instead of
// baseURL + "/api/clientes". It exists because one deployment registers
// against a different host than the rest of the flow.
func WithRegistrationURL(raw string) Option {
	return func(c *Client) {
		c.registrationURL = strings.TrimSpace(raw)
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("api: invalid base url %q: %w", baseURL, err)
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.registrationURL != "" && !sameHost(c.registrationURL, c.baseURL) {
		c.log.Warn("registration endpoint differs from api base url",
			zap.String("registration_url", c.registrationURL),
			zap.String("base_url", c.baseURL))
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// RegistrationEndpoint is the URL registration is posted to.
func (c *Client) RegistrationEndpoint() string {
	if c.registrationURL != "" {
		return c.registrationURL
	}
	return c.baseURL + "/api/clientes"
}

func (c *Client) RegisterCustomer(ctx context.Context, form RegistrationForm) (Customer, error) {
	const op = "register customer"
	body, contentType, err := encodeRegistration(form)
	if err != nil {
		return Customer{}, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	var out struct {
		Customer Customer `json:"cliente"`
	}
	if err := c.do(ctx, op, http.MethodPost, c.RegistrationEndpoint(), body, contentType, &out); err != nil {
		return Customer{}, err
	}
	return out.Customer, nil
}

func (c *Client) AnalyzeCredit(ctx context.Context, customerID int64) (CreditAnalysis, error) {
	var out CreditAnalysis
	path := fmt.Sprintf("/api/clientes/%d/analise-credito", customerID)
	err := c.do(ctx, "credit analysis", http.MethodPost, c.baseURL+path, nil, "application/json", &out)
	return out, err
}

func (c *Client) ListLoans(ctx context.Context, customerID int64) ([]Loan, error) {
	var out []Loan
	path := fmt.Sprintf("/api/clientes/%d/emprestimos", customerID)
	if err := c.do(ctx, "list loans", http.MethodGet, c.baseURL+path, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Simulate(ctx context.Context, req SimulationRequest) (Simulation, error) {
	var out Simulation
	err := c.postJSON(ctx, "simulate loan", "/api/emprestimos/simular", req, &out)
	return out, err
}

func (c *Client) RequestLoan(ctx context.Context, req LoanRequest) (Loan, error) {
	var out struct {
		Loan Loan `json:"emprestimo"`
	}
	if err := c.postJSON(ctx, "request loan", "/api/emprestimos", req, &out); err != nil {
		return Loan{}, err
	}
	return out.Loan, nil
}

func (c *Client) ApproveLoan(ctx context.Context, loanID int64) (Loan, error) {
	var out struct {
		Loan Loan `json:"emprestimo"`
	}
	path := fmt.Sprintf("/api/emprestimos/%d/aprovar", loanID)
	if err := c.do(ctx, "approve loan", http.MethodPost, c.baseURL+path, nil, "application/json", &out); err != nil {
		return Loan{}, err
	}
	return out.Loan, nil
}

func (c *Client) ReleaseLoan(ctx context.Context, loanID int64) (Release, error) {
	var out Release
	path := fmt.Sprintf("/api/emprestimos/%d/liberar", loanID)
	err := c.do(ctx, "release loan", http.MethodPost, c.baseURL+path, nil, "application/json", &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	return c.do(ctx, op, http.MethodPost, c.baseURL+path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return transportErr(op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api call failed", zap.String("op", op), zap.String("url", target), zap.Error(err))
		return transportErr(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.log.Debug("api call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))
	if err != nil {
		return transportErr(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Erro string `json:"erro"`
		}
		_ = json.Unmarshal(raw, &payload)
		return &Error{Kind: KindBusiness, Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(payload.Erro)}
	}

	// Some endpoints answer 200 with {"erro": ...}; treat those as refusals too.
	var probe struct {
		Erro *string `json:"erro"`
	}
	if json.Unmarshal(raw, &probe) == nil && probe.Erro != nil {
		return &Error{Kind: KindBusiness, Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(*probe.Erro)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return transportErr(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func encodeRegistration(form RegistrationForm) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	collaterals := form.Collaterals
	if collaterals == nil {
		collaterals = []Collateral{}
	}
	garantias, err := json.Marshal(collaterals)
	if err != nil {
		return nil, "", err
	}
	fields := []struct{ key, value string }{
		{"nome_completo", form.FullName},
		{"cpf", form.CPF},
		{"endereco_completo", form.Address},
		{"telefone", form.Phone},
		{"email", form.Email},
		{"tem_garantia", strconv.FormatBool(form.HasCollateral)},
		{"garantias", string(garantias)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := attachFile(w, "documento_identidade", form.IdentityDocument); err != nil {
		return nil, "", err
	}
	if err := attachFile(w, "comprovante_renda", form.IncomeProof); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func attachFile(w *multipart.Writer, field, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func sameHost(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host)
}
