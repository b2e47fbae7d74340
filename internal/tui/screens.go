package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/creditofacil/internal/contract"
	"github.com/jask/creditofacil/internal/flow"
)

const labelRequest = "Solicitando empréstimo..."

func (a *App) updateRegistration(m tea.KeyMsg) tea.Cmd {
	if a.task.running {
		return nil
	}
	f := &a.form
	switch {
	case key.Matches(m, keys.Next):
		return f.move(1)
	case key.Matches(m, keys.Prev):
		return f.move(-1)
	case key.Matches(m, keys.DropLast):
		f.dropLastCollateral()
		return nil
	case key.Matches(m, keys.Enter):
		if f.inCollateralSection() {
			f.addCollateral()
			return nil
		}
		return a.register()
	case f.focus == fieldCollateralToggle && key.Matches(m, keys.Toggle):
		f.toggleCollateral()
		return nil
	}
	return f.update(m)
}

func (a *App) updateAnalysis(m tea.KeyMsg) tea.Cmd {
	if a.task.running {
		return nil
	}
	switch {
	case key.Matches(m, keys.Enter) && a.analysis != nil && a.analysis.Approved:
		analysis := *a.analysis
		a.status = ""
		a.flow.CompleteAnalysis(analysis)
		return a.enter()
	case key.Matches(m, keys.Retry) && (a.analysis == nil || !a.analysis.Approved):
		a.status = ""
		return a.analyze(a.flow.State())
	}
	return nil
}

func (a *App) updateSimulation(m tea.KeyMsg) tea.Cmd {
	state := a.flow.State()
	if state.Analysis == nil || (a.task.running && a.task.label == labelRequest) {
		return nil
	}
	limit := state.Analysis.CreditLimit
	switch {
	case key.Matches(m, keys.Less):
		return a.setAmount(clampAmount(a.amount-amountStep, limit))
	case key.Matches(m, keys.More):
		return a.setAmount(clampAmount(a.amount+amountStep, limit))
	case key.Matches(m, keys.Up):
		return a.stepInstallments(1)
	case key.Matches(m, keys.Down):
		return a.stepInstallments(-1)
	case key.Matches(m, keys.Retry) && a.sim == nil && !a.task.running:
		return a.simulate()
	case key.Matches(m, keys.Enter):
		if a.task.running || !a.simCurrent() {
			a.status = "Aguarde a simulação terminar"
			return nil
		}
		a.status = ""
		return a.requestLoan()
	}
	return nil
}

func (a *App) simCurrent() bool {
	return a.sim != nil && a.sim.Amount == a.amount && a.sim.Installments == a.installments
}

func (a *App) setAmount(v float64) tea.Cmd {
	if v == a.amount {
		return nil
	}
	a.amount = v
	return a.simulate()
}

func (a *App) stepInstallments(delta int) tea.Cmd {
	idx := installmentIndex(a.installments) + delta
	if idx < 0 || idx >= len(installmentOptions) {
		return nil
	}
	a.installments = installmentOptions[idx]
	return a.simulate()
}

func installmentIndex(n int) int {
	for i, opt := range installmentOptions {
		if opt == n {
			return i
		}
	}
	return installmentIndex(defaultInstallments)
}

func (a *App) updateContract(m tea.KeyMsg) tea.Cmd {
	if a.task.running {
		return nil
	}
	switch {
	case key.Matches(m, keys.Toggle):
		a.accepted = !a.accepted
		if a.accepted && a.err == acceptTermsMessage {
			a.err = ""
		}
		return nil
	case key.Matches(m, keys.Enter):
		if !a.accepted {
			a.err = acceptTermsMessage
			return nil
		}
		return a.sign()
	case key.Matches(m, keys.Retry) && a.err != "" && a.accepted:
		return a.sign()
	}
	var cmd tea.Cmd
	a.contract, cmd = a.contract.Update(m)
	return cmd
}

func (a *App) renderContract(state flow.WizardState) {
	a.signedAt = a.now().In(a.tz)
	if state.Customer == nil || state.Loan == nil {
		a.contract.SetContent("")
		return
	}
	text, err := contract.Render(contract.Terms{Customer: *state.Customer, Loan: *state.Loan, SignedAt: a.signedAt})
	if err != nil {
		a.log.Error("contract render failed", zap.Error(err))
		a.err = "Erro ao gerar o contrato"
	}
	a.contract.SetContent(text)
	a.contract.GotoTop()
}

func (a *App) updateRelease(m tea.KeyMsg) tea.Cmd {
	if a.task.running {
		return nil
	}
	switch {
	case key.Matches(m, keys.Retry) && a.released == nil && a.err != "":
		return a.release(a.flow.State())
	case key.Matches(m, keys.History) && a.released != nil:
		if a.showHistory {
			a.showHistory = false
			return nil
		}
		return a.loadHistory()
	case key.Matches(m, keys.Enter) && a.released != nil:
		return a.restart()
	}
	return nil
}
