package testdata

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jask/creditofacil/internal/api"
)

// Backend is an in-memory loan API served over httptest. It applies the
// production rules for rates, limits and installments so tests see
// realistic numbers.
type Backend struct {
	*httptest.Server

	mu        sync.Mutex
	customers map[int64]storedCustomer
	loans     map[int64]*api.Loan
	nextID    int64
	calls     []string

	// AnalysisError, when set, makes credit analysis answer 400 {"erro": ...}.
	AnalysisError string
	// ReleaseError, when set, makes /liberar answer 500 {"erro": ...}.
	ReleaseError string
}

type storedCustomer struct {
	api.Customer
	hasCollateral bool
	collateral    float64
}

var nonDigit = regexp.MustCompile(`\D`)

// NewBackend starts the fake server. It is closed by t.Cleanup when the
// caller registers it, or by Close.
func NewBackend() *Backend {
	b := &Backend{
		customers: map[int64]storedCustomer{},
		loans:     map[int64]*api.Loan{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/clientes", b.register)
	mux.HandleFunc("POST /api/clientes/{id}/analise-credito", b.analyze)
	mux.HandleFunc("GET /api/clientes/{id}/emprestimos", b.listLoans)
	mux.HandleFunc("POST /api/emprestimos/simular", b.simulate)
	mux.HandleFunc("POST /api/emprestimos", b.requestLoan)
	mux.HandleFunc("POST /api/emprestimos/{id}/aprovar", b.approve)
	mux.HandleFunc("POST /api/emprestimos/{id}/liberar", b.release)
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls = append(b.calls, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	return b
}

// Calls returns "METHOD /path" for every request received so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// AddCustomer seeds a customer and returns its id.
func (b *Backend) AddCustomer(c api.Customer, collateral float64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	c.ID = b.nextID
	b.customers[c.ID] = storedCustomer{Customer: c, hasCollateral: collateral > 0, collateral: collateral}
	return c.ID
}

// AddLoan seeds a loan and returns its id.
func (b *Backend) AddLoan(l api.Loan) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	l.ID = b.nextID
	b.loans[l.ID] = &l
	return l.ID
}

// Rate is the monthly interest for the given collateral value.
func Rate(hasCollateral bool, collateral float64) float64 {
	if !hasCollateral || collateral <= 0 {
		return 4.5
	}
	switch {
	case collateral >= 50000:
		return 2.5
	case collateral >= 20000:
		return 3.0
	default:
		return 3.5
	}
}

// Limit is the credit limit for the given collateral value.
func Limit(hasCollateral bool, collateral float64) float64 {
	if hasCollateral && collateral > 0 {
		return math.Min(collateral*0.7, 50000)
	}
	return math.Min(3000*5, 20000)
}

// Installment is the fixed monthly payment (Price table).
func Installment(amount, rate float64, n int) float64 {
	i := rate / 100
	if i == 0 {
		return round2(amount / float64(n))
	}
	f := math.Pow(1+i, float64(n))
	return round2(amount * (i * f) / (f - 1))
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, "formulário inválido")
		return
	}
	cpf := nonDigit.ReplaceAllString(r.FormValue("cpf"), "")
	if len(cpf) != 11 {
		writeErr(w, http.StatusBadRequest, "CPF inválido")
		return
	}
	var collaterals []api.Collateral
	_ = json.Unmarshal([]byte(r.FormValue("garantias")), &collaterals)
	total := 0.0
	for _, c := range collaterals {
		total += c.EstimatedValue
	}

	b.mu.Lock()
	for _, existing := range b.customers {
		if nonDigit.ReplaceAllString(existing.CPF, "") == cpf {
			b.mu.Unlock()
			writeErr(w, http.StatusBadRequest, "CPF já cadastrado")
			return
		}
	}
	b.nextID++
	now := api.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	c := api.Customer{
		ID:           b.nextID,
		FullName:     r.FormValue("nome_completo"),
		CPF:          r.FormValue("cpf"),
		Address:      r.FormValue("endereco_completo"),
		Phone:        r.FormValue("telefone"),
		Email:        r.FormValue("email"),
		RegisteredAt: &now,
	}
	hasCollateral := r.FormValue("tem_garantia") == "true"
	b.customers[c.ID] = storedCustomer{Customer: c, hasCollateral: hasCollateral, collateral: total}
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"mensagem": "Cliente cadastrado com sucesso", "cliente": c})
}

func (b *Backend) analyze(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	c, found := b.customers[id]
	analysisErr := b.AnalysisError
	b.mu.Unlock()
	if analysisErr != "" {
		writeErr(w, http.StatusBadRequest, analysisErr)
		return
	}
	if !found {
		writeErr(w, http.StatusNotFound, "Cliente não encontrado")
		return
	}
	has := c.hasCollateral && c.collateral > 0
	writeJSON(w, http.StatusOK, api.CreditAnalysis{
		Approved:        true,
		CustomerID:      id,
		HasCollateral:   has,
		CollateralTotal: c.collateral,
		InterestRate:    Rate(has, c.collateral),
		CreditLimit:     Limit(has, c.collateral),
		Message:         "Crédito aprovado!",
	})
}

func (b *Backend) simulate(w http.ResponseWriter, r *http.Request) {
	var req api.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Installments <= 0 {
		writeErr(w, http.StatusBadRequest, "dados inválidos")
		return
	}
	parcel := Installment(req.Amount, req.InterestRate, req.Installments)
	writeJSON(w, http.StatusOK, api.Simulation{
		Amount:           req.Amount,
		Installments:     req.Installments,
		InterestRate:     req.InterestRate,
		InstallmentValue: parcel,
		Total:            round2(parcel * float64(req.Installments)),
	})
}

func (b *Backend) requestLoan(w http.ResponseWriter, r *http.Request) {
	var req api.LoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "dados inválidos")
		return
	}
	b.mu.Lock()
	if _, ok := b.customers[req.CustomerID]; !ok {
		b.mu.Unlock()
		writeErr(w, http.StatusNotFound, "Cliente não encontrado")
		return
	}
	b.nextID++
	now := api.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	loan := &api.Loan{
		ID:               b.nextID,
		CustomerID:       req.CustomerID,
		Amount:           req.Amount,
		InterestRate:     req.InterestRate,
		Installments:     req.Installments,
		InstallmentValue: req.InstallmentValue,
		Status:           api.StatusPending,
		HasCollateral:    req.HasCollateral,
		RequestedAt:      &now,
	}
	b.loans[loan.ID] = loan
	out := *loan
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"mensagem": "Empréstimo solicitado com sucesso", "emprestimo": out})
}

func (b *Backend) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	loan, found := b.loans[id]
	var out api.Loan
	if found {
		now := api.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
		amount := loan.Amount
		loan.Status = api.StatusApproved
		loan.ApprovedAmount = &amount
		loan.ApprovedAt = &now
		out = *loan
	}
	b.mu.Unlock()
	if !found {
		writeErr(w, http.StatusNotFound, "Empréstimo não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mensagem": "Empréstimo aprovado com sucesso", "emprestimo": out})
}

func (b *Backend) release(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReleaseError != "" {
		writeErr(w, http.StatusInternalServerError, b.ReleaseError)
		return
	}
	loan, found := b.loans[id]
	if !found {
		writeErr(w, http.StatusNotFound, "Empréstimo não encontrado")
		return
	}
	if loan.Status != api.StatusApproved {
		writeErr(w, http.StatusBadRequest, "Empréstimo deve estar aprovado para ser liberado")
		return
	}
	now := api.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	loan.Status = api.StatusReleased
	loan.ReleasedAt = &now
	writeJSON(w, http.StatusOK, map[string]any{"mensagem": "Empréstimo liberado com sucesso", "emprestimo": *loan})
}

func (b *Backend) listLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	out := []api.Loan{}
	for _, l := range b.loans {
		if l.CustomerID == id {
			out = append(out, *l)
		}
	}
	b.mu.Unlock()
	// newest first, like the backend's ORDER BY data_solicitacao DESC
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Sprintf("id inválido: %s", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"erro": msg})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
