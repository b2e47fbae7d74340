package contract

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/format"
)

const (
	Lender     = "CRÉDITO FÁCIL LTDA"
	LenderCNPJ = "12.345.678/0001-90"
	Forum      = "São Paulo"

	// LateFee is the one-off penalty on an overdue installment, in percent.
	LateFee = 2.0
	// DefaultInterest is the monthly interest charged on overdue amounts, in percent.
	DefaultInterest = 1.0
	// FirstDueDays is the gap between signature and the first installment.
	FirstDueDays = 30
)

//go:embed contract.tmpl
var contractText string

var contractTmpl = template.Must(template.New("contract").Funcs(template.FuncMap{
	"brl":     format.FormatBRL,
	"date":    format.FormatDate,
	"percent": percent,
}).Parse(contractText))

// Terms is what goes into a contract.
type Terms struct {
	Customer api.Customer
	Loan     api.Loan
	SignedAt time.Time
}

type view struct {
	Terms
	FirstDue        time.Time
	Lender          string
	LenderCNPJ      string
	Forum           string
	LateFee         float64
	DefaultInterest float64
}

// Render produces the contract text shown before signature.
func Render(t Terms) (string, error) {
	if t.SignedAt.IsZero() {
		t.SignedAt = time.Now()
	}
	v := view{
		Terms:           t,
		FirstDue:        FirstDueDate(t.SignedAt),
		Lender:          Lender,
		LenderCNPJ:      LenderCNPJ,
		Forum:           Forum,
		LateFee:         LateFee,
		DefaultInterest: DefaultInterest,
	}
	var buf bytes.Buffer
	if err := contractTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render contract: %w", err)
	}
	return buf.String(), nil
}

// FirstDueDate is signature day plus FirstDueDays.
func FirstDueDate(signed time.Time) time.Time {
	return signed.AddDate(0, 0, FirstDueDays)
}

// Installment is one row of the payment preview.
type Installment struct {
	Number int
	DueOn  time.Time
	Value  float64
}

// Schedule lists up to n installments of a simulation, each due one
// calendar month after the previous one.
func Schedule(sim api.Simulation, from time.Time, n int) []Installment {
	if n > sim.Installments {
		n = sim.Installments
	}
	if n <= 0 {
		return nil
	}
	out := make([]Installment, n)
	for i := range out {
		out[i] = Installment{
			Number: i + 1,
			DueOn:  from.AddDate(0, i+1, 0),
			Value:  sim.InstallmentValue,
		}
	}
	return out
}

// Remaining is the number of installments not shown in a preview of n rows.
func Remaining(sim api.Simulation, n int) int {
	if sim.Installments <= n {
		return 0
	}
	return sim.Installments - n
}

func percent(v float64) string {
	return strings.Replace(fmt.Sprintf("%g", v), ".", ",", 1) + "%"
}
