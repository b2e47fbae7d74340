package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/creditofacil/internal/api"
	"github.com/jask/creditofacil/internal/database"
	"github.com/jask/creditofacil/internal/database/repository"
	"github.com/jask/creditofacil/internal/format"
	"github.com/jask/creditofacil/internal/secrets"
	"github.com/jask/creditofacil/internal/testdata"
)

// isolate points HOME, the config file and the database at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("CREDITOFACIL_CONFIG", filepath.Join(dir, "missing.toml"))
	dbPath := filepath.Join(dir, "journal.db")
	t.Setenv("CREDITOFACIL_DATABASE_PATH", dbPath)
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestHistoryCommand(t *testing.T) {
	isolate(t)
	backend := testdata.NewBackend()
	defer backend.Close()

	id := backend.AddCustomer(api.Customer{FullName: "Maria Silva", CPF: "123.456.789-01"}, 0)
	requested := api.Timestamp{Time: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	backend.AddLoan(api.Loan{
		CustomerID:       id,
		Amount:           5000,
		InterestRate:     4.5,
		Installments:     12,
		InstallmentValue: 548.33,
		Status:           api.StatusReleased,
		RequestedAt:      &requested,
	})

	out, err := execute(t, "history", "--cliente", strconv.FormatInt(id, 10), "--api", backend.URL)
	require.NoError(t, err)
	require.Contains(t, out, "R$ 5.000,00")
	require.Contains(t, out, "15/03/2024")
	require.Contains(t, out, "Liberado")
	require.Contains(t, out, "4,5% a.m.")
}

func TestHistoryCommandEmpty(t *testing.T) {
	isolate(t)
	backend := testdata.NewBackend()
	defer backend.Close()

	out, err := execute(t, "history", "--cliente", "99", "--api", backend.URL)
	require.NoError(t, err)
	require.Contains(t, out, "Nenhum empréstimo encontrado.")
}

func TestHistoryCommandRequiresCustomer(t *testing.T) {
	isolate(t)
	_, err := execute(t, "history")
	require.Error(t, err)
}

func TestSimulateCommand(t *testing.T) {
	isolate(t)
	backend := testdata.NewBackend()
	defer backend.Close()

	out, err := execute(t, "simulate", "--valor", "1000", "--parcelas", "12", "--taxa", "2.5", "--api", backend.URL)
	require.NoError(t, err)
	require.Contains(t, out, "12x "+format.FormatBRL(testdata.Installment(1000, 2.5, 12)))
	require.Contains(t, out, "Total a pagar")
	require.Contains(t, out, "Vencimento")
	require.Equal(t, []string{"POST /api/emprestimos/simular"}, backend.Calls())
}

func TestSimulateCommandRejectsBadInput(t *testing.T) {
	isolate(t)
	backend := testdata.NewBackend()
	defer backend.Close()

	_, err := execute(t, "simulate", "--valor", "1000", "--parcelas", "7", "--api", backend.URL)
	require.ErrorContains(t, err, "--parcelas")
	_, err = execute(t, "simulate", "--valor", "-5", "--api", backend.URL)
	require.ErrorContains(t, err, "--valor")
	require.Empty(t, backend.Calls())
}

func TestAPIFlagIsValidated(t *testing.T) {
	isolate(t)
	_, err := execute(t, "simulate", "--valor", "1000", "--api", "ftp://example.com")
	require.ErrorContains(t, err, "api.base_url")
}

func TestJournalCommands(t *testing.T) {
	dbPath := isolate(t)
	ctx := context.Background()

	out, err := execute(t, "journal", "list")
	require.NoError(t, err)
	require.Contains(t, out, "journal is empty")

	// seed one session directly
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	repo := repository.NewJournalRepo(db)
	s, err := repo.StartSession(ctx)
	require.NoError(t, err)
	_, err = repo.Append(ctx, repository.Entry{SessionID: s.ID, Step: repository.StepRegistered, CPFDigest: "abc"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err = execute(t, "journal", "list")
	require.NoError(t, err)
	require.Contains(t, out, s.ID)
	require.Contains(t, out, repository.OutcomeInProgress)

	out, err = execute(t, "journal", "export", "--format", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "step: registered")
	require.Contains(t, out, "cpf_digest: abc")

	out, err = execute(t, "journal", "export")
	require.NoError(t, err)
	require.Contains(t, out, `"step": "registered"`)

	_, err = execute(t, "journal", "export", "--format", "csv")
	require.Error(t, err)

	out, err = execute(t, "journal", "purge")
	require.NoError(t, err)
	require.Contains(t, out, "removed 0 sessions")

	key, err := secrets.EnsureKey(journalKeyName)
	require.NoError(t, err)

	out, err = execute(t, "journal", "purge", "--all")
	require.NoError(t, err)
	require.Contains(t, out, "journal cleared")

	rotated, err := secrets.EnsureKey(journalKeyName)
	require.NoError(t, err)
	require.NotEqual(t, key, rotated)

	out, err = execute(t, "journal", "list")
	require.NoError(t, err)
	require.Contains(t, out, "journal is empty")
}

func TestUISettingsReachOutput(t *testing.T) {
	isolate(t)
	t.Cleanup(func() { format.Configure(format.Options{}) })
	t.Setenv("CREDITOFACIL_UI_CURRENCY_SYMBOL", "BRL")
	t.Setenv("CREDITOFACIL_UI_DATE_FORMAT", "2006-01-02")
	backend := testdata.NewBackend()
	defer backend.Close()

	out, err := execute(t, "simulate", "--valor", "1000", "--parcelas", "6", "--api", backend.URL)
	require.NoError(t, err)
	require.Contains(t, out, "Valor solicitado: BRL 1.000,00")
	require.NotContains(t, out, "R$")
	require.Regexp(t, regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), out)
}

func TestBadDateFormatIsRejected(t *testing.T) {
	isolate(t)
	t.Setenv("CREDITOFACIL_UI_DATE_FORMAT", "dd/mm/yyyy")
	_, err := execute(t, "config", "path")
	require.ErrorContains(t, err, "ui.date_format")
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	path := os.Getenv("CREDITOFACIL_CONFIG")

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	require.Equal(t, path+"\n", out)

	out, err = execute(t, "config", "init", "--api", "https://credito.example.com")
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "https://credito.example.com")

	_, err = execute(t, "config", "init")
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--force", "--api", "https://outro.example.com")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "https://outro.example.com")
	require.NotContains(t, string(data), "https://credito.example.com")
}
