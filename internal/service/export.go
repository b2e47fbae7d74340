package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jask/creditofacil/internal/database/repository"
)

// JournalExport is the document written by ExportJournal.
type JournalExport struct {
	Sessions []repository.Session `json:"sessions" yaml:"sessions"`
	Entries  []repository.Entry   `json:"entries" yaml:"entries"`
}

// ExportJournal writes every session and entry to w as json or yaml.
func ExportJournal(ctx context.Context, repo *repository.JournalRepo, w io.Writer, format string) error {
	sessions, err := repo.ListSessions(ctx, 0)
	if err != nil {
		return err
	}
	entries, err := repo.All(ctx)
	if err != nil {
		return err
	}
	doc := JournalExport{Sessions: sessions, Entries: entries}
	if doc.Sessions == nil {
		doc.Sessions = []repository.Session{}
	}
	if doc.Entries == nil {
		doc.Entries = []repository.Entry{}
	}

	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("export: unknown format %q (want json or yaml)", format)
	}
}
