package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/creditofacil/internal/tui"
)

func wizardCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Run the loan wizard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(cmd, app)
		},
	}
}

func runWizard(cmd *cobra.Command, app *appContext) error {
	ctx := cmd.Context()
	model := tui.New(ctx, app.journey(), app.log.Named("tui"), app.cfg.Location())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return nil
}
