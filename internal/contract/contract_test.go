package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/creditofacil/internal/api"
)

func sampleTerms(withCollateral bool) Terms {
	return Terms{
		Customer: api.Customer{
			ID:       1,
			FullName: "Maria Silva",
			CPF:      "123.456.789-01",
			Address:  "Rua das Flores, 10",
			Phone:    "(11) 99999-8888",
			Email:    "maria@example.com",
		},
		Loan: api.Loan{
			ID:               5,
			Amount:           1500,
			InterestRate:     2.5,
			Installments:     12,
			InstallmentValue: 146.23,
			HasCollateral:    withCollateral,
		},
		SignedAt: time.Date(2026, time.March, 7, 9, 0, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	text, err := Render(sampleTerms(false))
	require.NoError(t, err)

	require.Contains(t, text, "CONTRATANTE: Maria Silva")
	require.Contains(t, text, "CNPJ: 12.345.678/0001-90")
	require.Contains(t, text, "VALOR DO EMPRÉSTIMO: R$ 1.500,00")
	require.Contains(t, text, "TAXA DE JUROS: 2,5% ao mês")
	require.Contains(t, text, "VALOR DA PARCELA: R$ 146,23")
	require.Contains(t, text, "sempre no dia 7 de cada mês")
	require.Contains(t, text, "O primeiro vencimento ocorrerá em 06/04/2026.")
	require.Contains(t, text, "multa de 2% sobre")
	require.Contains(t, text, "Juros de mora de 1% ao mês")
	require.Contains(t, text, "não possui garantias adicionais")
	require.Contains(t, text, "São Paulo, 07/03/2026")
}

func TestRenderWithCollateral(t *testing.T) {
	text, err := Render(sampleTerms(true))
	require.NoError(t, err)
	require.Contains(t, text, "5. DAS GARANTIAS\n5.1. Este empréstimo possui garantias adicionais")
	require.NotContains(t, text, "não possui garantias")
}

func TestFirstDueDate(t *testing.T) {
	signed := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), FirstDueDate(signed))
}

func TestSchedule(t *testing.T) {
	from := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	sim := api.Simulation{Installments: 12, InstallmentValue: 100.46}

	rows := Schedule(sim, from, 3)
	require.Len(t, rows, 3)
	require.Equal(t, 1, rows[0].Number)
	require.Equal(t, time.Date(2026, time.April, 7, 0, 0, 0, 0, time.UTC), rows[0].DueOn)
	require.Equal(t, time.Date(2026, time.June, 7, 0, 0, 0, 0, time.UTC), rows[2].DueOn)
	require.Equal(t, 100.46, rows[2].Value)
	require.Equal(t, 9, Remaining(sim, 3))

	short := api.Simulation{Installments: 2, InstallmentValue: 10}
	require.Len(t, Schedule(short, from, 3), 2)
	require.Zero(t, Remaining(short, 3))
	require.Nil(t, Schedule(api.Simulation{}, from, 3))
}
