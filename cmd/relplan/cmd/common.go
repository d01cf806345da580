package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/internal/catalog"
	"github.com/matthewbaird/relplan/internal/executor"
	"github.com/matthewbaird/relplan/internal/metrics"
	"github.com/matthewbaird/relplan/internal/seed"
	"github.com/matthewbaird/relplan/internal/store"
	"github.com/matthewbaird/relplan/internal/translate"
)

// defaultPlanFile is read when no plan file argument is given.
const defaultPlanFile = "sampleInput.json"

func planPath(args []string) string {
	if len(args) == 0 {
		return defaultPlanFile
	}
	return args[0]
}

// readPlanFile reads a plan from path, or from stdin when path is "-".
func readPlanFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return data, nil
}

func newTranslator() *translate.Translator {
	return translate.New(translate.WithMaxDepth(Config.Translate.MaxDepth))
}

func fixtures() ([]seed.Fixture, error) {
	if Config.Store.Fixtures == "" {
		return seed.Default(), nil
	}
	return seed.Load(Config.Store.Fixtures)
}

// openStore opens the configured store and seeds it when store.seed is set.
func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(ctx, Config.Store.DSN)
	if err != nil {
		return nil, err
	}
	if !Config.Store.Seed {
		return st, nil
	}

	fx, err := fixtures()
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := st.Seed(ctx, fx); err != nil {
		st.Close()
		return nil, err
	}
	log.Debug().Int("tables", len(fx)).Msg("store seeded")
	return st, nil
}

// newExecutor builds an executor on st, rejecting unknown tables when
// translate.strict_references is set.
func newExecutor(ctx context.Context, st *store.Store, m *metrics.Metrics) (*executor.Executor, *catalog.Registry, error) {
	cat, err := catalog.Load(ctx, st)
	if err != nil {
		return nil, nil, err
	}
	exec := executor.New(newTranslator(), st, m)
	if Config.Translate.StrictReferences {
		exec.WithCatalog(cat)
	}
	return exec, cat, nil
}
