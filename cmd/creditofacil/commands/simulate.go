package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/contract"
	"github.com/jask/creditofacil/internal/format"
)

var installmentChoices = []int{6, 12, 18, 24, 36, 48}

func simulateCmd(app *appContext) *cobra.Command {
	var req api.SimulationRequest
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Quote installments without registering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Amount <= 0 {
				return fmt.Errorf("--valor must be positive")
			}
			if !slices.Contains(installmentChoices, req.Installments) {
				return fmt.Errorf("--parcelas must be one of %v", installmentChoices)
			}
			if req.InterestRate < 0 {
				return fmt.Errorf("--taxa cannot be negative")
			}
			sim, err := app.client.Simulate(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s", api.UserMessage(err, err.Error()))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Valor solicitado: %s\n", format.FormatBRL(sim.Amount))
			fmt.Fprintf(out, "Taxa de juros:    %s\n", format.FormatRate(sim.InterestRate))
			fmt.Fprintf(out, "Parcelas:         %dx %s\n", sim.Installments, format.FormatBRL(sim.InstallmentValue))
			fmt.Fprintf(out, "Total a pagar:    %s\n", format.FormatBRL(sim.Total))

			now := app.now().In(app.cfg.Location())
			rows := [][]string{}
			for _, inst := range contract.Schedule(sim, now, sim.Installments) {
				rows = append(rows, []string{fmt.Sprint(inst.Number), format.FormatDate(inst.DueOn), format.FormatBRL(inst.Value)})
			}
			return printTable(out, []string{"#", "Vencimento", "Valor"}, rows)
		},
	}
	cmd.Flags().Float64Var(&req.Amount, "valor", 0, "amount requested in BRL")
	cmd.Flags().IntVar(&req.Installments, "parcelas", 12, "number of installments")
	cmd.Flags().Float64Var(&req.InterestRate, "taxa", 4.5, "monthly interest rate in percent")
	_ = cmd.MarkFlagRequired("valor")
	return cmd
}
