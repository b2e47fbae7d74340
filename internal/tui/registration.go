package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/format"
	"github.com/jask/creditofacil/internal/validation"
)

type formField int

const (
	fieldName formField = iota
	fieldCPF
	fieldAddress
	fieldPhone
	fieldEmail
	fieldIdentity
	fieldIncome
	fieldCollateralToggle
	fieldKind
	fieldDescription
	fieldValue
	fieldCount
)

var fieldLabels = map[formField]string{
	fieldName:        "Nome completo",
	fieldCPF:         "CPF",
	fieldAddress:     "Endereço completo",
	fieldPhone:       "Telefone",
	fieldEmail:       "E-mail",
	fieldIdentity:    "Documento de identidade (arquivo)",
	fieldIncome:      "Comprovante de renda (arquivo)",
	fieldKind:        "Tipo do bem",
	fieldDescription: "Descrição",
	fieldValue:       "Valor estimado (R$)",
}

// schemaFields maps inputs to the names validation errors use.
var schemaFields = map[formField]string{
	fieldName:    "nome_completo",
	fieldCPF:     "cpf",
	fieldAddress: "endereco_completo",
	fieldPhone:   "telefone",
	fieldEmail:   "email",
}

// registrationForm is the customer form plus the collateral sub-form.
type registrationForm struct {
	inputs        map[formField]*textinput.Model
	focus         formField
	hasCollateral bool
	collaterals   []api.Collateral
	errs          *validation.Error
	note          string
	cursorMode    cursor.Mode
}

func newRegistrationForm(mode cursor.Mode) registrationForm {
	f := registrationForm{inputs: map[formField]*textinput.Model{}, cursorMode: mode}
	for field, label := range fieldLabels {
		inp := textinput.New()
		inp.Prompt = ""
		inp.Placeholder = label
		inp.Cursor.SetMode(mode)
		switch field {
		case fieldCPF:
			inp.CharLimit = 14
			inp.Placeholder = "000.000.000-00"
		case fieldPhone:
			inp.CharLimit = 15
			inp.Placeholder = "(00) 00000-0000"
		case fieldKind:
			inp.Placeholder = "carro, casa ou outros"
		}
		f.inputs[field] = &inp
	}
	f.focusOn(fieldName)
	return f
}

// focusCmd starts the cursor blink of the focused input.
func (f *registrationForm) focusCmd() tea.Cmd {
	if f.cursorMode != cursor.CursorBlink || !f.inputFocused() {
		return nil
	}
	return cursor.Blink
}

// inputFocused reports whether keystrokes currently go to a text input.
func (f *registrationForm) inputFocused() bool {
	_, ok := f.inputs[f.focus]
	return ok
}

func (f *registrationForm) fieldCount() formField {
	if f.hasCollateral {
		return fieldCount
	}
	return fieldCollateralToggle + 1
}

func (f *registrationForm) focusOn(field formField) tea.Cmd {
	if inp, ok := f.inputs[f.focus]; ok {
		inp.Blur()
	}
	f.focus = field
	if inp, ok := f.inputs[field]; ok {
		return inp.Focus()
	}
	return nil
}

func (f *registrationForm) move(delta int) tea.Cmd {
	n := int(f.fieldCount())
	next := (int(f.focus) + delta + n) % n
	return f.focusOn(formField(next))
}

func (f *registrationForm) value(field formField) string {
	if inp, ok := f.inputs[field]; ok {
		return strings.TrimSpace(inp.Value())
	}
	return ""
}

func (f *registrationForm) toggleCollateral() {
	f.hasCollateral = !f.hasCollateral
	f.note = ""
}

func (f *registrationForm) inCollateralSection() bool {
	return f.hasCollateral && f.focus >= fieldKind
}

// update feeds a key to the focused input and reapplies the CPF and phone
// masks.
func (f *registrationForm) update(msg tea.Msg) tea.Cmd {
	inp, ok := f.inputs[f.focus]
	if !ok {
		return nil
	}
	updated, cmd := inp.Update(msg)
	*inp = updated
	switch f.focus {
	case fieldCPF:
		remask(inp, format.FormatCPF)
	case fieldPhone:
		remask(inp, format.FormatPhone)
	}
	return cmd
}

func remask(inp *textinput.Model, mask func(string) string) {
	masked := mask(inp.Value())
	if masked == inp.Value() {
		return
	}
	inp.SetValue(masked)
	inp.CursorEnd()
}

// addCollateral moves the collateral sub-form into the list. Incomplete
// entries are ignored.
func (f *registrationForm) addCollateral() {
	kindText := f.value(fieldKind)
	kind, ok := validation.ResolveCollateralKind(kindText)
	if kindText != "" && !ok {
		f.note = fmt.Sprintf("Tipo de bem desconhecido: %q", kindText)
		return
	}
	value, err := parseMoney(f.value(fieldValue))
	if err != nil {
		f.note = "Valor estimado inválido"
		return
	}
	c := api.Collateral{Kind: string(kind), Description: f.value(fieldDescription), EstimatedValue: value}
	if !validation.CanAddCollateral(c) {
		f.note = "Informe o tipo e a descrição do bem"
		return
	}
	f.collaterals = append(f.collaterals, c)
	for _, field := range []formField{fieldKind, fieldDescription, fieldValue} {
		f.inputs[field].SetValue("")
	}
	f.note = fmt.Sprintf("%s adicionado", kind.Label())
	f.focusOn(fieldKind)
}

func (f *registrationForm) dropLastCollateral() {
	if len(f.collaterals) == 0 {
		return
	}
	f.collaterals = f.collaterals[:len(f.collaterals)-1]
	f.note = "Último bem removido"
}

func (f *registrationForm) build() api.RegistrationForm {
	form := api.RegistrationForm{
		FullName:         f.value(fieldName),
		CPF:              f.value(fieldCPF),
		Address:          f.value(fieldAddress),
		Phone:            f.value(fieldPhone),
		Email:            f.value(fieldEmail),
		IdentityDocument: f.value(fieldIdentity),
		IncomeProof:      f.value(fieldIncome),
		HasCollateral:    f.hasCollateral,
	}
	if f.hasCollateral {
		form.Collaterals = append([]api.Collateral(nil), f.collaterals...)
	}
	return form
}

func (f *registrationForm) collateralTotal() float64 {
	total := 0.0
	for _, c := range f.collaterals {
		total += c.EstimatedValue
	}
	return total
}

// parseMoney accepts "60000", "60.000,50" and "60000.50". Blank means zero.
func parseMoney(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case thousandsOnly(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	return strconv.ParseFloat(s, 64)
}

// thousandsOnly reports whether every dot in s separates a group of three
// digits, as in "1.500" or "60.000".
func thousandsOnly(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

func (f *registrationForm) view() string {
	var b strings.Builder
	order := []formField{fieldName, fieldCPF, fieldAddress, fieldPhone, fieldEmail, fieldIdentity, fieldIncome}
	for _, field := range order {
		b.WriteString(f.row(field))
	}

	box := "[ ]"
	if f.hasCollateral {
		box = "[x]"
	}
	line := box + " Possuo bens para oferecer como garantia"
	if f.focus == fieldCollateralToggle {
		line = focusStyle.Render("▶ " + line)
	} else {
		line = "  " + line
	}
	b.WriteString(line + "\n")

	if f.hasCollateral {
		b.WriteString("\n" + labelStyle.Render("Bens em garantia") + "\n")
		if len(f.collaterals) == 0 {
			b.WriteString(mutedStyle.Render("  nenhum bem adicionado") + "\n")
		}
		for _, c := range f.collaterals {
			b.WriteString(fmt.Sprintf("  • %s: %s  %s\n",
				validation.CollateralKind(c.Kind).Label(), c.Description, format.FormatBRL(c.EstimatedValue)))
		}
		if len(f.collaterals) > 0 {
			b.WriteString(fmt.Sprintf("  Total: %s\n", valueStyle.Render(format.FormatBRL(f.collateralTotal()))))
		}
		for _, field := range []formField{fieldKind, fieldDescription, fieldValue} {
			b.WriteString(f.row(field))
		}
		b.WriteString(mutedStyle.Render("  enter no bem adiciona à lista") + "\n")
	}
	if f.note != "" {
		b.WriteString(infoStyle.Render(f.note) + "\n")
	}
	return b.String()
}

func (f *registrationForm) row(field formField) string {
	inp := f.inputs[field]
	marker := "  "
	label := labelStyle.Render(fieldLabels[field] + ":")
	if f.focus == field {
		marker = focusStyle.Render("▶ ")
	}
	out := marker + label + " " + inp.View() + "\n"
	if f.errs != nil {
		if name, ok := schemaFields[field]; ok {
			if msg := f.errs.For(name); msg != "" {
				out += "    " + errorStyle.Render(msg) + "\n"
			}
		}
	}
	return out
}
