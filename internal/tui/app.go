package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/flow"
	"github.com/jask/creditofacil/internal/service"
	"github.com/jask/creditofacil/internal/validation"
)

const (
	minAmount     = 500.0
	amountStep    = 100.0
	defaultAmount = 1000.0
)

var installmentOptions = []int{6, 12, 18, 24, 36, 48}

const defaultInstallments = 12

const acceptTermsMessage = "Você deve aceitar os termos do contrato para continuar."

// App is the wizard. The flow controller owns the screen and the records
// collected so far; App owns everything the screens show on the way.
type App struct {
	ctx     context.Context
	journey *service.Journey
	flow    *flow.Controller
	log     *zap.Logger
	tz      *time.Location
	now     func() time.Time

	width, height int
	cursorMode    cursor.Mode

	task    task
	seq     uint64
	spinner spinner.Model
	status  string
	err     string

	form registrationForm

	// analysis is the latest answer, shown before the user continues.
	analysis *api.CreditAnalysis

	amount       float64
	installments int
	sim          *api.Simulation

	contract viewport.Model
	accepted bool
	signedAt time.Time

	released    *api.Loan
	history     []api.Loan
	showHistory bool
}

// task is the one backend call a screen may have in flight.
type task struct {
	seq     uint64
	cancel  context.CancelFunc
	running bool
	label   string
}

// Option tweaks an App at construction.
type Option func(*App)

// WithCursorMode sets the cursor of every form input. The default blinks.
func WithCursorMode(m cursor.Mode) Option {
	return func(a *App) { a.cursorMode = m }
}

func New(ctx context.Context, journey *service.Journey, log *zap.Logger, tz *time.Location, opts ...Option) *App {
	if log == nil {
		log = zap.NewNop()
	}
	if tz == nil {
		tz = time.Local
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = infoStyle

	a := &App{
		ctx:          ctx,
		journey:      journey,
		log:          log,
		tz:           tz,
		now:          time.Now,
		spinner:      s,
		cursorMode:   cursor.CursorBlink,
		installments: defaultInstallments,
		contract:     viewport.New(76, 16),
		width:        80,
		height:       30,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.form = newRegistrationForm(a.cursorMode)
	a.flow = flow.New(flow.OnTransition(func(t flow.Transition) {
		a.log.Info("screen transition",
			zap.String("from", t.From.String()),
			zap.String("to", t.To.String()),
			zap.String("action", string(t.Action)))
	}))
	return a
}

// Screen is the current wizard step.
func (a *App) Screen() flow.Screen { return a.flow.Screen() }

// State is a copy of the records collected so far.
func (a *App) State() flow.WizardState { return a.flow.State() }

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.contract.Width = max(m.Width-4, 20)
		a.contract.Height = max(m.Height-14, 5)
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case spinner.TickMsg:
		if !a.task.running {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(m)
		return a, cmd
	case taskResult:
		if !a.task.running || m.taskSeq() != a.task.seq {
			a.log.Debug("dropping stale result", zap.Uint64("seq", m.taskSeq()))
			return a, nil
		}
		a.task.running = false
		a.task.cancel()
		return a.handleResult(msg)
	}
	// cursor blinks and the like belong to the focused input
	if a.flow.Screen() == flow.Registration {
		return a, a.form.update(msg)
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, keys.ForceQuit):
		return a, a.quit()
	case key.Matches(m, keys.Restart):
		return a, a.restart()
	case key.Matches(m, keys.Back) && a.flow.Screen() != flow.Initial:
		if a.showHistory {
			a.showHistory = false
			return a, nil
		}
		return a, a.back()
	case key.Matches(m, keys.Quit) && !a.inputFocused():
		return a, a.quit()
	}

	switch a.flow.Screen() {
	case flow.Initial:
		if key.Matches(m, keys.Enter) {
			return a, a.start()
		}
	case flow.Registration:
		return a, a.updateRegistration(m)
	case flow.CreditAnalysis:
		return a, a.updateAnalysis(m)
	case flow.Simulation:
		return a, a.updateSimulation(m)
	case flow.Contract:
		return a, a.updateContract(m)
	case flow.Release:
		return a, a.updateRelease(m)
	}
	return a, nil
}

func (a *App) inputFocused() bool {
	return a.flow.Screen() == flow.Registration && a.form.inputFocused()
}

// startTask cancels whatever the screen was waiting for and runs fn under a
// fresh context. Results carry the sequence number so late answers from the
// cancelled task are dropped.
func (a *App) startTask(label string, fn func(ctx context.Context, seq uint64) tea.Msg) tea.Cmd {
	a.cancelTask()
	a.seq++
	seq := a.seq
	ctx, cancel := context.WithCancel(a.ctx)
	a.task = task{seq: seq, cancel: cancel, running: true, label: label}
	a.err = ""
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		return fn(ctx, seq)
	})
}

func (a *App) cancelTask() {
	if a.task.running {
		a.task.cancel()
		a.task.running = false
	}
}

// transitions

// start opens the journal session for the new run. Begin closes whatever
// session a previous run left open, so restart needs no command of its own.
func (a *App) start() tea.Cmd {
	a.form = newRegistrationForm(a.cursorMode)
	a.status = ""
	a.err = ""
	a.flow.Start()
	journey := a.journey
	ctx := a.ctx
	return tea.Batch(a.form.focusCmd(), func() tea.Msg {
		journey.Begin(ctx)
		return nil
	})
}

func (a *App) back() tea.Cmd {
	a.cancelTask()
	a.err = ""
	a.status = ""
	a.flow.Back()
	return a.enter()
}

func (a *App) restart() tea.Cmd {
	a.cancelTask()
	a.flow.Restart()
	a.resetScreens()
	return nil
}

func (a *App) quit() tea.Cmd {
	a.cancelTask()
	journey := a.journey
	ctx := a.ctx
	return tea.Sequence(func() tea.Msg {
		journey.Abandon(ctx)
		return nil
	}, tea.Quit)
}

func (a *App) resetScreens() {
	a.form = newRegistrationForm(a.cursorMode)
	a.analysis = nil
	a.amount = 0
	a.installments = defaultInstallments
	a.sim = nil
	a.accepted = false
	a.signedAt = time.Time{}
	a.released = nil
	a.history = nil
	a.showHistory = false
	a.status = ""
	a.err = ""
}

// enter runs the on-arrival work of the current screen.
func (a *App) enter() tea.Cmd {
	state := a.flow.State()
	switch a.flow.Screen() {
	case flow.CreditAnalysis:
		a.analysis = nil
		return a.analyze(state)
	case flow.Simulation:
		if state.Analysis == nil {
			return nil
		}
		if a.amount == 0 {
			a.amount = clampAmount(defaultAmount, state.Analysis.CreditLimit)
		}
		return a.simulate()
	case flow.Contract:
		a.accepted = false
		a.renderContract(state)
	case flow.Release:
		a.released = nil
		a.history = nil
		a.showHistory = false
		return a.release(state)
	}
	return nil
}

// results

type taskResult interface {
	taskSeq() uint64
}

type result struct {
	seq uint64
	err error
}

func (r result) taskSeq() uint64 { return r.seq }

type registeredMsg struct {
	result
	customer api.Customer
}

type analysedMsg struct {
	result
	analysis api.CreditAnalysis
}

type simulatedMsg struct {
	result
	sim api.Simulation
}

type requestedMsg struct {
	result
	loan api.Loan
}

type signedMsg struct {
	result
	loan api.Loan
}

type releasedMsg struct {
	result
	loan api.Loan
}

type historyMsg struct {
	result
	loans []api.Loan
}

func (a *App) handleResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case registeredMsg:
		if m.err != nil {
			var verr *validation.Error
			if errors.As(m.err, &verr) {
				a.form.errs = verr
				a.err = "Verifique os campos destacados"
				if msg := collateralProblem(verr); msg != "" {
					a.err += ". " + msg
				}
				return a, nil
			}
			a.fail("register", m.err, "Erro ao cadastrar cliente. Tente novamente.")
			return a, nil
		}
		a.form.errs = nil
		a.flow.CompleteRegistration(m.customer)
		return a, a.enter()

	case analysedMsg:
		if m.err != nil {
			a.fail("analyze", m.err, "Erro ao analisar crédito. Tente novamente.")
			return a, nil
		}
		analysis := m.analysis
		a.analysis = &analysis
		a.status = analysis.Message

	case simulatedMsg:
		if m.err != nil {
			a.sim = nil
			a.fail("simulate", m.err, "Erro ao simular empréstimo")
			return a, nil
		}
		sim := m.sim
		a.sim = &sim

	case requestedMsg:
		if m.err != nil {
			a.fail("request loan", m.err, "Erro ao solicitar empréstimo")
			return a, nil
		}
		a.flow.CompleteSimulation(m.loan)
		return a, a.enter()

	case signedMsg:
		if m.err != nil {
			a.fail("sign", m.err, "Erro ao assinar contrato. Tente novamente.")
			return a, nil
		}
		a.flow.CompleteContract(m.loan)
		return a, a.enter()

	case releasedMsg:
		if m.err != nil {
			a.fail("release", m.err, "Erro ao liberar o empréstimo. Tente novamente.")
			return a, nil
		}
		loan := m.loan
		a.released = &loan
		a.status = "Empréstimo liberado com sucesso!"

	case historyMsg:
		if m.err != nil {
			a.fail("history", m.err, "Erro ao carregar histórico")
			return a, nil
		}
		a.history = m.loans
		a.showHistory = true
	}
	return a, nil
}

func (a *App) fail(op string, err error, fallback string) {
	a.log.Warn("step failed", zap.String("op", op), zap.String("screen", a.flow.Screen().String()), zap.Error(err))
	a.err = api.UserMessage(err, fallback)
}

func collateralProblem(verr *validation.Error) string {
	for _, f := range verr.Fields {
		if _, known := fieldByName(f.Field); !known {
			return f.Field + ": " + f.Message
		}
	}
	return ""
}

func fieldByName(name string) (formField, bool) {
	for field, n := range schemaFields {
		if n == name {
			return field, true
		}
	}
	return 0, false
}

// commands

func (a *App) register() tea.Cmd {
	form := a.form.build()
	journey := a.journey
	return a.startTask("Cadastrando...", func(ctx context.Context, seq uint64) tea.Msg {
		customer, err := journey.Register(ctx, form)
		return registeredMsg{result: result{seq, err}, customer: customer}
	})
}

func (a *App) analyze(state flow.WizardState) tea.Cmd {
	if state.Customer == nil {
		return nil
	}
	id := state.Customer.ID
	journey := a.journey
	return a.startTask("Analisando seu crédito...", func(ctx context.Context, seq uint64) tea.Msg {
		analysis, err := journey.Analyze(ctx, id)
		return analysedMsg{result: result{seq, err}, analysis: analysis}
	})
}

func (a *App) simulate() tea.Cmd {
	state := a.flow.State()
	if state.Analysis == nil {
		return nil
	}
	req := api.SimulationRequest{Amount: a.amount, Installments: a.installments, InterestRate: state.Analysis.InterestRate}
	journey := a.journey
	return a.startTask("Simulando...", func(ctx context.Context, seq uint64) tea.Msg {
		sim, err := journey.Simulate(ctx, req)
		return simulatedMsg{result: result{seq, err}, sim: sim}
	})
}

func (a *App) requestLoan() tea.Cmd {
	state := a.flow.State()
	if state.Customer == nil || state.Analysis == nil || a.sim == nil {
		return nil
	}
	customerID, analysis, sim := state.Customer.ID, *state.Analysis, *a.sim
	journey := a.journey
	return a.startTask(labelRequest, func(ctx context.Context, seq uint64) tea.Msg {
		loan, err := journey.RequestLoan(ctx, customerID, analysis, sim)
		return requestedMsg{result: result{seq, err}, loan: loan}
	})
}

func (a *App) sign() tea.Cmd {
	state := a.flow.State()
	if state.Loan == nil {
		return nil
	}
	id := state.Loan.ID
	journey := a.journey
	return a.startTask("Assinando contrato...", func(ctx context.Context, seq uint64) tea.Msg {
		loan, err := journey.Sign(ctx, id)
		return signedMsg{result: result{seq, err}, loan: loan}
	})
}

func (a *App) release(state flow.WizardState) tea.Cmd {
	if state.Loan == nil {
		return nil
	}
	loan := *state.Loan
	journey := a.journey
	return a.startTask("Liberando seu empréstimo...", func(ctx context.Context, seq uint64) tea.Msg {
		out, err := journey.Release(ctx, loan)
		return releasedMsg{result: result{seq, err}, loan: out}
	})
}

func (a *App) loadHistory() tea.Cmd {
	state := a.flow.State()
	if state.Customer == nil {
		return nil
	}
	id := state.Customer.ID
	journey := a.journey
	return a.startTask("Carregando histórico...", func(ctx context.Context, seq uint64) tea.Msg {
		loans, err := journey.History(ctx, id)
		return historyMsg{result: result{seq, err}, loans: loans}
	})
}

func clampAmount(v, limit float64) float64 {
	if v > limit {
		v = limit
	}
	if v < minAmount {
		v = minAmount
	}
	return v
}
