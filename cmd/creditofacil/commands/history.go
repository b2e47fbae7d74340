package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/format"
)

func historyCmd(app *appContext) *cobra.Command {
	var customerID int64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a customer's loans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if customerID <= 0 {
				return fmt.Errorf("--cliente must be a positive customer id")
			}
			loans, err := app.client.ListLoans(cmd.Context(), customerID)
			if err != nil {
				return fmt.Errorf("%s", api.UserMessage(err, err.Error()))
			}
			out := cmd.OutOrStdout()
			if len(loans) == 0 {
				_, err := fmt.Fprintln(out, "Nenhum empréstimo encontrado.")
				return err
			}
			rows := make([][]string, 0, len(loans))
			for _, l := range loans {
				requested := "-"
				if l.RequestedAt != nil {
					requested = format.FormatDate(l.RequestedAt.Time)
				}
				rows = append(rows, []string{
					strconv.FormatInt(l.ID, 10),
					requested,
					format.FormatBRL(l.Amount),
					fmt.Sprintf("%dx %s", l.Installments, format.FormatBRL(l.InstallmentValue)),
					format.FormatRate(l.InterestRate),
					l.Status.Label(),
				})
			}
			return printTable(out, []string{"ID", "Data", "Valor", "Parcelas", "Taxa", "Status"}, rows)
		},
	}
	cmd.Flags().Int64Var(&customerID, "cliente", 0, "customer id")
	_ = cmd.MarkFlagRequired("cliente")
	return cmd
}
