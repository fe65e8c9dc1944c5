// Package ingest handles statement archive ingestion commands
package ingest

import (
	"errors"

	"fjacquet/alipay-ledger/cmd/root"
	"fjacquet/alipay-ledger/internal/importer"
	"fjacquet/alipay-ledger/internal/logging"
	"fjacquet/alipay-ledger/internal/store"

	"github.com/spf13/cobra"
)

var (
	dryRun bool
	dsn    string
)

// Cmd represents the ingest command
var Cmd = &cobra.Command{
	Use:   "ingest <pattern>",
	Short: "Ingest Alipay statement archives",
	Long: `Ingest every zip archive matching the glob pattern into the ledger.
All archives are processed inside a single transaction: either every
statement row lands, or the database is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: ingestFunc,
}

func init() {
	Cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and reconcile in memory without touching the database")
	Cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (overrides configuration)")
}

func ingestFunc(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	imp := importer.New(st, nil, root.Log)
	if root.Cfg != nil && root.Cfg.Import.MemberSuffix != "" {
		imp.MemberSuffix = root.Cfg.Import.MemberSuffix
	}

	summary, err := imp.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	root.Log.Info("import run completed",
		logging.Field{Key: "archives", Value: summary.Archives},
		logging.Field{Key: "members", Value: summary.Members},
		logging.Field{Key: "rows", Value: summary.Rows},
		logging.Field{Key: "applied", Value: summary.Applied},
		logging.Field{Key: "ignored", Value: summary.Ignored},
		logging.Field{Key: "skipped", Value: summary.Skipped})
	return nil
}

func openStore(cmd *cobra.Command) (store.Store, error) {
	if dryRun {
		root.Log.Warn("dry run: results will be discarded")
		return store.NewMemoryStore(), nil
	}

	connString := dsn
	if connString == "" && root.Cfg != nil {
		connString = root.Cfg.Database.DSN
	}
	if connString == "" {
		return nil, errors.New("no database configured: set DATABASE_URL, database.dsn, or pass --dsn (or use --dry-run)")
	}
	return store.NewPostgresStore(cmd.Context(), connString)
}
