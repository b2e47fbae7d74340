package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/contract"
	"github.com/jask/creditofacil/internal/flow"
	"github.com/jask/creditofacil/internal/format"
)

var screenTitles = map[flow.Screen]string{
	flow.Initial:        "Bem-vindo",
	flow.Registration:   "Cadastro",
	flow.CreditAnalysis: "Análise de Crédito",
	flow.Simulation:     "Simulação",
	flow.Contract:       "Contrato",
	flow.Release:        "Liberação",
}

const previewInstallments = 3

func (a *App) View() string {
	screen := a.flow.Screen()
	header := titleStyle.Render("Crédito Fácil") + "  " + labelStyle.Render(screenTitles[screen])

	var body string
	switch screen {
	case flow.Registration:
		body = a.renderRegistration()
	case flow.CreditAnalysis:
		body = a.renderAnalysis()
	case flow.Simulation:
		body = a.renderSimulation()
	case flow.Contract:
		body = a.renderContractScreen()
	case flow.Release:
		body = a.renderRelease()
	default:
		body = a.renderInitial()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, a.renderFooter())
}

func (a *App) renderFooter() string {
	screen := a.flow.Screen()
	var lines []string
	if a.task.running {
		lines = append(lines, a.spinner.View()+" "+a.task.label)
	}
	if a.status != "" {
		lines = append(lines, infoStyle.Render(a.status))
	}
	if a.err != "" {
		lines = append(lines, errorPanelStyle.Render(errorStyle.Render(a.err)))
	}
	step := fmt.Sprintf("Etapa %d/%d", screen.Position(), flow.Steps())
	lines = append(lines, footerStyle.Render(step+"  "+a.screenHelp()))
	return strings.Join(lines, "\n")
}

func (a *App) screenHelp() string {
	switch a.flow.Screen() {
	case flow.Initial:
		return help(keys.Enter, keys.Quit)
	case flow.Registration:
		return help(keys.Next, keys.Prev, keys.Toggle, keys.Enter, keys.DropLast, keys.Back, keys.Restart, keys.ForceQuit)
	case flow.CreditAnalysis:
		return help(keys.Enter, keys.Retry, keys.Back, keys.Restart, keys.Quit)
	case flow.Simulation:
		return help(keys.Less, keys.More, keys.Up, keys.Down, keys.Enter, keys.Back, keys.Quit)
	case flow.Contract:
		return help(keys.Toggle, keys.Enter, keys.Back, keys.Quit)
	case flow.Release:
		return help(keys.History, keys.Retry, keys.Enter, keys.Restart, keys.Quit)
	}
	return ""
}

func (a *App) renderInitial() string {
	lines := []string{
		valueStyle.Render("Empréstimo pessoal rápido e sem burocracia."),
		"",
		"  • Análise de crédito na hora",
		"  • Taxas a partir de " + format.FormatRate(2.5),
		"  • Dinheiro na conta via PIX",
		"  • Parcelas de 6 a 48 meses",
		"",
		"Pressione enter para começar.",
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderRegistration() string {
	return a.form.view()
}

func (a *App) renderAnalysis() string {
	if a.analysis == nil {
		if a.task.running {
			return "Estamos analisando seu perfil de crédito. Isso leva poucos segundos."
		}
		return mutedStyle.Render("Nenhuma análise disponível.")
	}
	an := a.analysis
	if !an.Approved {
		msg := an.Message
		if msg == "" {
			msg = "Crédito não aprovado."
		}
		return errorStyle.Render(msg)
	}
	guarantee := "Não"
	if an.HasCollateral {
		guarantee = "Sim (" + format.FormatBRL(an.CollateralTotal) + ")"
	}
	rows := []string{
		successStyle.Render("Crédito aprovado!"),
		kv("Limite disponível", format.FormatAmount(an.CreditLimit)),
		kv("Taxa de juros", format.FormatRate(an.InterestRate)),
		kv("Garantia", guarantee),
	}
	return panelStyle.Render(strings.Join(rows, "\n")) + "\n\nPressione enter para simular seu empréstimo."
}

func (a *App) renderSimulation() string {
	state := a.flow.State()
	if state.Analysis == nil {
		return mutedStyle.Render("Sem análise de crédito.")
	}
	limit := state.Analysis.CreditLimit
	var b strings.Builder
	b.WriteString(kv("Valor desejado", valueStyle.Render(format.FormatAmount(a.amount))) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  mínimo %s, máximo %s", format.FormatAmount(minAmount), format.FormatAmount(limit))) + "\n\n")

	opts := make([]string, len(installmentOptions))
	for i, n := range installmentOptions {
		label := fmt.Sprintf("%dx", n)
		if n == a.installments {
			label = focusStyle.Render("[" + label + "]")
		} else {
			label = mutedStyle.Render(" " + label + " ")
		}
		opts[i] = label
	}
	b.WriteString(kv("Parcelas", strings.Join(opts, " ")) + "\n")
	b.WriteString(kv("Taxa de juros", format.FormatRate(state.Analysis.InterestRate)) + "\n\n")

	if a.sim == nil {
		return b.String()
	}
	sim := *a.sim
	rows := []string{
		kv("Valor da parcela", valueStyle.Render(format.FormatBRL(sim.InstallmentValue))),
		kv("Total a pagar", format.FormatBRL(sim.Total)),
		kv("Juros totais", format.FormatBRL(sim.Total-sim.Amount)),
		"",
		labelStyle.Render("Próximas parcelas"),
	}
	for _, inst := range contract.Schedule(sim, a.now().In(a.tz), previewInstallments) {
		rows = append(rows, fmt.Sprintf("  %2d  %s  %s", inst.Number, format.FormatDate(inst.DueOn), format.FormatBRL(inst.Value)))
	}
	if rest := contract.Remaining(sim, previewInstallments); rest > 0 {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  ... e mais %d parcelas", rest)))
	}
	b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	if !a.simCurrent() {
		b.WriteString("\n" + warnStyle.Render("atualizando simulação..."))
	}
	return b.String()
}

func (a *App) renderContractScreen() string {
	box := "[ ]"
	if a.accepted {
		box = successStyle.Render("[x]")
	}
	scroll := mutedStyle.Render(fmt.Sprintf("%3.0f%%", a.contract.ScrollPercent()*100))
	return panelStyle.Render(a.contract.View()) + "\n" + scroll + "\n" +
		box + " Li e aceito os termos do contrato"
}

func (a *App) renderRelease() string {
	if a.released == nil {
		if a.task.running {
			return "Estamos liberando seu empréstimo."
		}
		return mutedStyle.Render("Empréstimo ainda não liberado.")
	}
	loan := *a.released
	signed := a.signedAt
	if signed.IsZero() {
		signed = a.now().In(a.tz)
	}
	rows := []string{
		successStyle.Render("Empréstimo liberado!"),
		kv("Valor liberado", valueStyle.Render(format.FormatBRL(loan.Released()))),
		kv("Parcelas", fmt.Sprintf("%dx de %s", loan.Installments, format.FormatBRL(loan.InstallmentValue))),
		kv("Primeiro vencimento", format.FormatDate(contract.FirstDueDate(signed))),
		"",
		mutedStyle.Render("O valor será depositado via PIX em até 2 horas úteis."),
	}
	out := panelStyle.Render(strings.Join(rows, "\n"))
	if a.showHistory {
		out += "\n\n" + renderHistory(a.history)
	}
	return out + "\n\nPressione enter para um novo empréstimo."
}

func renderHistory(loans []api.Loan) string {
	title := labelStyle.Render("Histórico de empréstimos")
	if len(loans) == 0 {
		return title + "\n" + mutedStyle.Render("  nenhum empréstimo encontrado")
	}
	lines := []string{title}
	for _, l := range loans {
		requested := "-"
		if l.RequestedAt != nil {
			requested = format.FormatDate(l.RequestedAt.Time)
		}
		lines = append(lines, fmt.Sprintf("  #%-4d %s  %-14s %2dx  %s",
			l.ID, requested, format.FormatBRL(l.Amount), l.Installments, statusStyle(l.Status).Render(l.Status.Label())))
	}
	return strings.Join(lines, "\n")
}

func statusStyle(s api.LoanStatus) lipgloss.Style {
	switch s {
	case api.StatusReleased, api.StatusApproved:
		return successStyle
	case api.StatusRejected:
		return errorStyle
	default:
		return warnStyle
	}
}

func kv(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}
