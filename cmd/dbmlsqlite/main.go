package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tordrt/dbmlsqlite"
	"github.com/tordrt/dbmlsqlite/internal/config"
	"github.com/tordrt/dbmlsqlite/internal/ddl"
	"github.com/tordrt/dbmlsqlite/internal/logger"
	"github.com/tordrt/dbmlsqlite/internal/version"
)

// compileFlags are shared by the root and import commands
type compileFlags struct {
	full             bool
	half             bool
	tableIfNotExists bool
	indexIfNotExists bool
	namer            string
	jobs             int
	caseSensitiveExt bool
}

type sinkFlags struct {
	print     bool
	noPrint   bool
	write     string
	execute   string
	outputDir string
}

type importFlags struct {
	dbURL      string
	mysqlURL   string
	sqlitePath string
	tables     string
	exclude    string
	schemaName string
}

func newRootCmd() *cobra.Command {
	var debug bool
	var cf compileFlags
	var sf sinkFlags

	rootCmd := &cobra.Command{
		Use:   "dbmlsqlite SRC",
		Short: "Compile DBML schemas to SQLite DDL",
		Long: fmt.Sprintf(`dbmlsqlite compiles a .dbml file, or every .dbml file in a directory,
into SQLite CREATE TABLE and CREATE INDEX statements.

Version: %s

Enums are emulated with a lookup table (--full, the default) or an inline
CHECK constraint (--half). Settings can also come from DBMLSQLITE_*
environment variables or a .env file; explicit flags win.

SRC shares the argument position with the import and version commands: a
source directory named "import" or "version" must be given as ./import or
./version.`, version.String()),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(os.Stderr, debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := cf.resolve(cmd)
			if err != nil {
				return err
			}

			res, err := dbmlsqlite.Build(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return sf.deliver(cmd, res)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	addCompileFlags(rootCmd, &cf)
	addSinkFlags(rootCmd, &sf)

	rootCmd.AddCommand(newImportCmd(), newVersionCmd())
	return rootCmd
}

func newImportCmd() *cobra.Command {
	var cf compileFlags
	var sf sinkFlags
	var imp importFlags

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Compile the schema of a live database to SQLite DDL",
		Long: `Import reads the tables, enums, keys and indexes of a PostgreSQL, MySQL or
SQLite database and compiles them to SQLite DDL.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := imp.databaseURL()
			if err != nil {
				return err
			}
			opts, err := cf.resolve(cmd)
			if err != nil {
				return err
			}

			s, err := dbmlsqlite.ImportSchema(cmd.Context(), url, &dbmlsqlite.ImportOptions{
				Tables:        parseTableList(imp.tables),
				ExcludeTables: parseTableList(imp.exclude),
				SchemaName:    imp.schemaName,
			})
			if err != nil {
				return fmt.Errorf("failed to extract schema: %w", err)
			}

			text, err := dbmlsqlite.CompileSchema(s, opts)
			if err != nil {
				return err
			}

			res := &dbmlsqlite.Result{Units: []dbmlsqlite.Unit{{Path: imp.unitName(), Schema: s, DDL: text}}}
			return sf.deliver(cmd, res)
		},
	}

	cmd.Flags().StringVar(&imp.dbURL, "db-url", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&imp.mysqlURL, "mysql-url", "", "MySQL connection string")
	cmd.Flags().StringVar(&imp.sqlitePath, "sqlite", "", "SQLite database file path")
	cmd.Flags().StringVar(&imp.tables, "tables", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringVar(&imp.exclude, "exclude", "", "Tables to skip (comma-separated, optional)")
	cmd.Flags().StringVar(&imp.schemaName, "schema", "", "Database schema name (default: public for PostgreSQL, the URL database for MySQL)")
	addCompileFlags(cmd, &cf)
	addSinkFlags(cmd, &sf)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func addCompileFlags(cmd *cobra.Command, cf *compileFlags) {
	cmd.Flags().BoolVarP(&cf.full, "full", "f", false, "Emulate enums with a lookup table (default)")
	cmd.Flags().BoolVar(&cf.half, "half", false, "Emulate enums with an inline CHECK constraint")
	cmd.Flags().BoolVarP(&cf.tableIfNotExists, "if-table-exists", "t", false, "Emit CREATE TABLE IF NOT EXISTS")
	cmd.Flags().BoolVarP(&cf.indexIfNotExists, "if-index-exists", "i", false, "Emit CREATE INDEX IF NOT EXISTS")
	cmd.Flags().StringVar(&cf.namer, "namer", "uuid", "Names for unnamed indexes: uuid or hash")
	cmd.Flags().IntVarP(&cf.jobs, "jobs", "j", 1, "Compile up to this many files in parallel")
	cmd.Flags().BoolVar(&cf.caseSensitiveExt, "case-sensitive-ext", false, "Accept only the lower-case .dbml extension")
}

func addSinkFlags(cmd *cobra.Command, sf *sinkFlags) {
	cmd.Flags().BoolVarP(&sf.print, "print", "p", true, "Print the DDL to stdout")
	cmd.Flags().BoolVarP(&sf.noPrint, "no-print", "n", false, "Do not print the DDL")
	cmd.Flags().StringVarP(&sf.write, "write", "w", "", "Write the DDL to this file")
	cmd.Flags().StringVarP(&sf.execute, "execute", "x", "", "Execute the DDL against this SQLite database file")
	cmd.Flags().StringVarP(&sf.outputDir, "output-dir", "d", "", "Write one .sql file per source into this directory")
}

// resolve applies environment defaults to flags the user did not set and
// builds the library options
func (cf *compileFlags) resolve(cmd *cobra.Command) (*dbmlsqlite.Options, error) {
	if cf.full && cf.half {
		return nil, fmt.Errorf("cannot use both --full and --half flags")
	}

	mode := config.GetEnvWithDefault(config.EnvEmulation, string(ddl.EmulationFull))
	switch {
	case cf.half:
		mode = string(ddl.EmulationHalf)
	case cf.full:
		mode = string(ddl.EmulationFull)
	}
	emulation, err := ddl.ParseEmulation(mode)
	if err != nil {
		return nil, err
	}

	config.BoolFromEnv(cmd, "if-table-exists", config.EnvTableIfNotExists, &cf.tableIfNotExists)
	config.BoolFromEnv(cmd, "if-index-exists", config.EnvIndexIfNotExists, &cf.indexIfNotExists)
	config.StringFromEnv(cmd, "namer", config.EnvNamer, &cf.namer)
	config.IntFromEnv(cmd, "jobs", config.EnvJobs, &cf.jobs)
	config.BoolFromEnv(cmd, "case-sensitive-ext", config.EnvExtCaseSensitive, &cf.caseSensitiveExt)

	namer, err := ddl.NewNamer(cf.namer)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug("resolved options", "emulation", emulation, "namer", cf.namer, "jobs", cf.jobs)

	return &dbmlsqlite.Options{
		Emulation:              emulation,
		TableIfNotExists:       cf.tableIfNotExists,
		IndexIfNotExists:       cf.indexIfNotExists,
		Namer:                  namer,
		CaseSensitiveExtension: cf.caseSensitiveExt,
		Jobs:                   cf.jobs,
	}, nil
}

// deliver hands res to every requested sink, executing against the
// database last
func (sf *sinkFlags) deliver(cmd *cobra.Command, res *dbmlsqlite.Result) error {
	out := &dbmlsqlite.OutputOptions{File: sf.write, OutputDir: sf.outputDir}
	if sf.print && !sf.noPrint {
		out.Writer = cmd.OutOrStdout()
	}
	if err := dbmlsqlite.WriteOutput(res, out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if sf.execute != "" {
		if err := dbmlsqlite.Execute(cmd.Context(), sf.execute, res.String()); err != nil {
			return fmt.Errorf("failed to execute against %s: %w", sf.execute, err)
		}
	}
	return nil
}

func (imp *importFlags) databaseURL() (string, error) {
	dbCount := 0
	if imp.dbURL != "" {
		dbCount++
	}
	if imp.mysqlURL != "" {
		dbCount++
	}
	if imp.sqlitePath != "" {
		dbCount++
	}
	if dbCount == 0 {
		return "", fmt.Errorf("one of --db-url, --mysql-url, or --sqlite must be specified")
	}
	if dbCount > 1 {
		return "", fmt.Errorf("only one of --db-url, --mysql-url, or --sqlite can be specified")
	}

	switch {
	case imp.sqlitePath != "":
		return "sqlite://" + imp.sqlitePath, nil
	case imp.mysqlURL != "":
		if strings.HasPrefix(imp.mysqlURL, "mysql://") {
			return imp.mysqlURL, nil
		}
		return "mysql://" + imp.mysqlURL, nil
	default:
		return imp.dbURL, nil
	}
}

// unitName names the output file written under --output-dir
func (imp *importFlags) unitName() string {
	switch {
	case imp.sqlitePath != "":
		return imp.sqlitePath
	case imp.schemaName != "":
		return imp.schemaName
	default:
		return "import"
	}
}

func parseTableList(tables string) []string {
	if strings.TrimSpace(tables) == "" {
		return nil
	}
	var tableList []string
	for _, t := range strings.Split(tables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tableList = append(tableList, t)
		}
	}
	return tableList
}

func main() {
	// Load .env file if it exists (silently ignore errors)
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
