package service

import (
	"context"
	"encoding/hex"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/database/repository"
	"github.com/jask/creditofacil/internal/format"
	"github.com/jask/creditofacil/internal/validation"
)

// Journey runs the wizard's backend calls and records each successful step
// in the local journal. Journal failures are logged, never returned.
type Journey struct {
	Backend api.Backend
	Journal *repository.JournalRepo // nil disables the journal
	// DigestKey keys the BLAKE2b digests stored in place of CPFs.
	DigestKey []byte
	Log       *zap.Logger

	// life serialises Begin and End so a run's session is opened and
	// closed in call order even when they run on different goroutines.
	life     sync.Mutex
	mu       sync.Mutex
	session  string
	rejected bool
}

func (j *Journey) log() *zap.Logger {
	if j.Log == nil {
		return zap.NewNop()
	}
	return j.Log
}

// Begin opens a journal session for a new wizard run, closing any
// unfinished previous one first.
func (j *Journey) Begin(ctx context.Context) {
	if j.Journal == nil {
		return
	}
	j.life.Lock()
	defer j.life.Unlock()
	j.end(ctx, j.abandonOutcome())
	s, err := j.Journal.StartSession(ctx)
	if err != nil {
		j.log().Warn("journal start failed", zap.Error(err))
		return
	}
	j.mu.Lock()
	j.session = s.ID
	j.mu.Unlock()
}

// End closes the current session, if any.
func (j *Journey) End(ctx context.Context, outcome string) {
	if j.Journal == nil {
		return
	}
	j.life.Lock()
	defer j.life.Unlock()
	j.end(ctx, outcome)
}

// Abandon closes the current session when the user leaves the wizard before
// release. Runs whose last analysis was refused are closed as rejected.
func (j *Journey) Abandon(ctx context.Context) {
	if j.Journal == nil {
		return
	}
	j.life.Lock()
	defer j.life.Unlock()
	j.end(ctx, j.abandonOutcome())
}

func (j *Journey) abandonOutcome() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.rejected {
		return repository.OutcomeRejected
	}
	return repository.OutcomeAbandoned
}

func (j *Journey) end(ctx context.Context, outcome string) {
	j.mu.Lock()
	id := j.session
	j.session = ""
	j.rejected = false
	j.mu.Unlock()
	if id == "" {
		return
	}
	if err := j.Journal.FinishSession(ctx, id, outcome); err != nil {
		j.log().Warn("journal finish failed", zap.String("session", id), zap.Error(err))
	}
}

// Session is the id of the open journal session, or "".
func (j *Journey) Session() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.session
}

// Register validates the form and creates the customer.
func (j *Journey) Register(ctx context.Context, form api.RegistrationForm) (api.Customer, error) {
	if err := validation.ValidateRegistration(form); err != nil {
		return api.Customer{}, err
	}
	if !form.HasCollateral {
		form.Collaterals = nil
	}
	customer, err := j.Backend.RegisterCustomer(ctx, form)
	if err != nil {
		return api.Customer{}, err
	}
	j.record(ctx, repository.Entry{
		Step:       repository.StepRegistered,
		CustomerID: &customer.ID,
		CPFDigest:  j.Digest(form.CPF),
	})
	return customer, nil
}

// Analyze requests the credit decision. A refusal is still journaled.
func (j *Journey) Analyze(ctx context.Context, customerID int64) (api.CreditAnalysis, error) {
	analysis, err := j.Backend.AnalyzeCredit(ctx, customerID)
	if err != nil {
		if api.IsBusiness(err) {
			j.setRejected(true)
			j.record(ctx, repository.Entry{Step: repository.StepRejected, CustomerID: &customerID, Note: err.Error()})
		}
		return api.CreditAnalysis{}, err
	}
	step := repository.StepAnalysed
	if !analysis.Approved {
		step = repository.StepRejected
	}
	j.setRejected(!analysis.Approved)
	j.record(ctx, repository.Entry{
		Step:        step,
		CustomerID:  &customerID,
		AmountCents: cents(analysis.CreditLimit),
		Rate:        analysis.InterestRate,
		Note:        analysis.Message,
	})
	return analysis, nil
}

// Simulate quotes installments. Quotes change on every keystroke, so they
// are not journaled; the chosen one is recorded by RequestLoan.
func (j *Journey) Simulate(ctx context.Context, req api.SimulationRequest) (api.Simulation, error) {
	return j.Backend.Simulate(ctx, req)
}

// RequestLoan turns a simulation into a pending loan.
func (j *Journey) RequestLoan(ctx context.Context, customerID int64, analysis api.CreditAnalysis, sim api.Simulation) (api.Loan, error) {
	loan, err := j.Backend.RequestLoan(ctx, api.LoanRequest{
		CustomerID:       customerID,
		Amount:           sim.Amount,
		InterestRate:     sim.InterestRate,
		Installments:     sim.Installments,
		InstallmentValue: sim.InstallmentValue,
		HasCollateral:    analysis.HasCollateral,
	})
	if err != nil {
		return api.Loan{}, err
	}
	j.recordLoan(ctx, repository.StepRequested, loan)
	return loan, nil
}

// Sign approves the loan; signature happens when the customer accepts the
// contract terms.
func (j *Journey) Sign(ctx context.Context, loanID int64) (api.Loan, error) {
	loan, err := j.Backend.ApproveLoan(ctx, loanID)
	if err != nil {
		return api.Loan{}, err
	}
	j.recordLoan(ctx, repository.StepSigned, loan)
	return loan, nil
}

// Release disburses an approved loan. Any other status means the backend
// already handled it, so the loan comes back unchanged.
func (j *Journey) Release(ctx context.Context, loan api.Loan) (api.Loan, error) {
	if loan.Status != api.StatusApproved {
		j.End(ctx, repository.OutcomeReleased)
		return loan, nil
	}
	rel, err := j.Backend.ReleaseLoan(ctx, loan.ID)
	if err != nil {
		return api.Loan{}, err
	}
	released := loan
	if rel.Loan != nil {
		released = *rel.Loan
	} else {
		released.Status = api.StatusReleased
	}
	j.recordLoan(ctx, repository.StepReleased, released)
	j.End(ctx, repository.OutcomeReleased)
	return released, nil
}

// History lists the customer's loans, newest first as the backend sends them.
func (j *Journey) History(ctx context.Context, customerID int64) ([]api.Loan, error) {
	return j.Backend.ListLoans(ctx, customerID)
}

// Digest returns the hex BLAKE2b-256 of the CPF digits keyed with DigestKey.
func (j *Journey) Digest(cpf string) string {
	digits := format.Digits(cpf)
	if digits == "" {
		return ""
	}
	h, err := blake2b.New256(j.DigestKey)
	if err != nil {
		// Keys longer than 64 bytes are the only failure mode.
		j.log().Error("cpf digest key rejected", zap.Error(err))
		return ""
	}
	h.Write([]byte(digits))
	return hex.EncodeToString(h.Sum(nil))
}

func (j *Journey) setRejected(v bool) {
	j.mu.Lock()
	j.rejected = v
	j.mu.Unlock()
}

func (j *Journey) recordLoan(ctx context.Context, step string, loan api.Loan) {
	id := loan.ID
	customer := loan.CustomerID
	e := repository.Entry{
		Step:         step,
		LoanID:       &id,
		AmountCents:  cents(loan.Released()),
		Installments: loan.Installments,
		Rate:         loan.InterestRate,
		Status:       string(loan.Status),
	}
	if customer != 0 {
		e.CustomerID = &customer
	}
	j.record(ctx, e)
}

func (j *Journey) record(ctx context.Context, e repository.Entry) {
	j.log().Info("journey step", zap.String("step", e.Step))
	if j.Journal == nil {
		return
	}
	e.SessionID = j.Session()
	if e.SessionID == "" {
		return
	}
	if _, err := j.Journal.Append(ctx, e); err != nil {
		j.log().Warn("journal append failed", zap.String("step", e.Step), zap.Error(err))
	}
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
