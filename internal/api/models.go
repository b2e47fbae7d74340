package api

import "time"

// LoanStatus mirrors the backend's emprestimo.status column.
type LoanStatus string

const (
	StatusPending  LoanStatus = "pendente"
	StatusApproved LoanStatus = "aprovado"
	StatusRejected LoanStatus = "reprovado"
	StatusReleased LoanStatus = "liberado"
)

// Label is the capitalised form shown in the history list.
func (s LoanStatus) Label() string {
	switch s {
	case StatusApproved:
		return "Aprovado"
	case StatusReleased:
		return "Liberado"
	case StatusRejected:
		return "Reprovado"
	default:
		return "Pendente"
	}
}

// Customer is the registration record returned by POST /api/clientes.
type Customer struct {
	ID               int64      `json:"id"`
	FullName         string     `json:"nome_completo"`
	CPF              string     `json:"cpf"`
	IdentityDocument string     `json:"documento_identidade"`
	IncomeProof      string     `json:"comprovante_renda"`
	Address          string     `json:"endereco_completo"`
	Phone            string     `json:"telefone"`
	Email            string     `json:"email"`
	RegisteredAt     *Timestamp `json:"data_cadastro,omitempty"`
}

// Collateral is an asset declared during registration.
type Collateral struct {
	Kind           string  `json:"tipo"`
	Description    string  `json:"descricao"`
	EstimatedValue float64 `json:"valor_estimado"`
}

// RegistrationForm is what the registration screen submits. Document paths
// point at local files uploaded as multipart parts.
type RegistrationForm struct {
	FullName         string       `json:"nome_completo"`
	CPF              string       `json:"cpf"`
	Address          string       `json:"endereco_completo"`
	Phone            string       `json:"telefone"`
	Email            string       `json:"email"`
	HasCollateral    bool         `json:"tem_garantia"`
	Collaterals      []Collateral `json:"garantias"`
	IdentityDocument string       `json:"-"`
	IncomeProof      string       `json:"-"`
}

// CreditAnalysis is the backend decision for a customer.
type CreditAnalysis struct {
	Approved        bool    `json:"aprovado"`
	CustomerID      int64   `json:"cliente_id,omitempty"`
	CreditLimit     float64 `json:"limite_credito"`
	InterestRate    float64 `json:"taxa_juros"`
	HasCollateral   bool    `json:"tem_garantia"`
	CollateralTotal float64 `json:"valor_garantias"`
	Message         string  `json:"mensagem,omitempty"`
}

// SimulationRequest is the body of POST /api/emprestimos/simular.
type SimulationRequest struct {
	Amount       float64 `json:"valor_solicitado"`
	Installments int     `json:"numero_parcelas"`
	InterestRate float64 `json:"taxa_juros"`
}

// Simulation is the backend's installment quote.
type Simulation struct {
	Amount           float64 `json:"valor_solicitado"`
	Installments     int     `json:"numero_parcelas"`
	InterestRate     float64 `json:"taxa_juros"`
	InstallmentValue float64 `json:"valor_parcela"`
	Total            float64 `json:"valor_total"`
}

// LoanRequest is the body of POST /api/emprestimos.
type LoanRequest struct {
	CustomerID       int64   `json:"cliente_id"`
	Amount           float64 `json:"valor_solicitado"`
	InterestRate     float64 `json:"taxa_juros"`
	Installments     int     `json:"numero_parcelas"`
	InstallmentValue float64 `json:"valor_parcela"`
	HasCollateral    bool    `json:"tem_garantia"`
}

// Loan is an emprestimo record.
type Loan struct {
	ID               int64      `json:"id"`
	CustomerID       int64      `json:"cliente_id"`
	Amount           float64    `json:"valor_solicitado"`
	ApprovedAmount   *float64   `json:"valor_aprovado"`
	InterestRate     float64    `json:"taxa_juros"`
	Installments     int        `json:"numero_parcelas"`
	InstallmentValue float64    `json:"valor_parcela"`
	Status           LoanStatus `json:"status"`
	HasCollateral    bool       `json:"tem_garantia"`
	RequestedAt      *Timestamp `json:"data_solicitacao"`
	ApprovedAt       *Timestamp `json:"data_aprovacao"`
	ReleasedAt       *Timestamp `json:"data_liberacao"`
}

// Released reports the amount actually disbursed, falling back to the
// requested amount for loans approved before valor_aprovado existed.
func (l Loan) Released() float64 {
	if l.ApprovedAmount != nil {
		return *l.ApprovedAmount
	}
	return l.Amount
}

// Timestamp decodes the backend's naive ISO-8601 datetimes (UTC, no zone).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format("2006-01-02T15:04:05") + `"`), nil
}
