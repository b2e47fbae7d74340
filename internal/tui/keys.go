package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Enter     key.Binding
	Back      key.Binding
	Restart   key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Next      key.Binding
	Prev      key.Binding
	Toggle    key.Binding
	Less      key.Binding
	More      key.Binding
	Up        key.Binding
	Down      key.Binding
	Retry     key.Binding
	History   key.Binding
	DropLast  key.Binding
}

var keys = keyMap{
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continuar")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "voltar")),
	Restart:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "recomeçar")),
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "sair")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "sair")),
	Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "próximo campo")),
	Prev:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "campo anterior")),
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("espaço", "marcar")),
	Less:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-R$ 100")),
	More:      key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+R$ 100")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "mais parcelas")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "menos parcelas")),
	Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "tentar de novo")),
	History:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "histórico")),
	DropLast:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "remover último bem")),
}

// help renders a one-line key legend.
func help(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		h := b.Help()
		if i > 0 {
			out += "  "
		}
		out += "[" + h.Key + "] " + h.Desc
	}
	return out
}
