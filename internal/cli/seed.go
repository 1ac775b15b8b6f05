package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gmp-id/gmpcms/internal/crud"
	"github.com/gmp-id/gmpcms/internal/handlers"
)

// seedFile maps a section name to the documents inserted into it.
type seedFile map[string][]map[string]any

// seeder inserts one document; *handlers.Handlers satisfies it.
type seeder interface {
	Seed(ctx context.Context, section string, doc []byte) (crud.Record, error)
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load content from a YAML file",
	Long: `Insert content described in a YAML file through the same validation as
the admin API. Top-level keys are sections; each holds a list of records
using the API's field names.

Sections: ` + strings.Join(handlers.SeedOrder, ", ") + `

Example file:
  authors:
    - first_name: Sari
      last_name: Wulandari
      category: peneliti
  events:
    - title: Temu Warga Bandung
      event_date: "2025-03-01"

Example:
  gmpcms seed content.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := readSeedFile(args[0])
		if err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return runSeed(cmd.Context(), handlers.NewHandlers(crud.NewStore(db)), file, cmd.OutOrStdout())
	},
}

func readSeedFile(path string) (seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	var unknown []string
	for section := range file {
		if !slices.Contains(handlers.SeedOrder, section) {
			unknown = append(unknown, section)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown sections: %s", strings.Join(unknown, ", "))
	}
	return file, nil
}

// runSeed inserts sections in dependency order and stops at the first failure.
func runSeed(ctx context.Context, s seeder, file seedFile, out io.Writer) error {
	total := 0
	for _, section := range handlers.SeedOrder {
		docs := file[section]
		for i, doc := range docs {
			raw, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", section, i, err)
			}
			if _, err := s.Seed(ctx, section, raw); err != nil {
				return fmt.Errorf("%s[%d]: %w", section, i, err)
			}
		}
		if len(docs) > 0 {
			fmt.Fprintf(out, "✓ %s: %d record(s)\n", section, len(docs))
			total += len(docs)
		}
	}
	fmt.Fprintf(out, "Seeded %d record(s)\n", total)
	return nil
}

func init() {
	RootCmd.AddCommand(seedCmd)
}
