package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/creditclean/internal/config"
	"github.com/JonMunkholm/creditclean/internal/core"
	"github.com/JonMunkholm/creditclean/internal/logging"
	"github.com/JonMunkholm/creditclean/internal/store"
)

// options holds the flags shared by every subcommand.
type options struct {
	cfg       *config.Config
	in        string
	delimiter string
	sheet     string
	logLevel  string
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	o := &options{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:   "creditclean",
		Short: "Clean credit application exports",
		Long: `Clean a ';'-delimited (or xlsx) credit application export.

Rows missing the enterprise type, barrio or commune are dropped, every known
column is normalized, duplicates are removed and the index is reset.

Defaults come from CREDITCLEAN_* environment variables and the optional file
named by CREDITCLEAN_CONFIG_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := o.logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			logging.SetDefault(cmd.ErrOrStderr(), level, cfg.Logging.Format)
			return o.validate()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&o.in, "in", "i", cfg.Input.Path, "Input file (.csv or .xlsx)")
	flags.StringVarP(&o.delimiter, "delimiter", "d", cfg.Input.Delimiter, "Field separator for delimited input and output")
	flags.StringVar(&o.sheet, "sheet", cfg.Input.Sheet, "Worksheet to read from xlsx input (default: first)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(
		newCleanCmd(o),
		newDuplicatesCmd(o),
		newSummaryCmd(o),
		newSaveCmd(o),
	)
	return rootCmd
}

func newCleanCmd(o *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the input and write it as delimited text",
		Long: `Clean the input and write the result with the same delimiter.

Example: creditclean clean --in solicitudes_credito.csv --out limpias.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, report, err := o.clean(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeTable(cmd.OutOrStdout(), out, t, o.delimiterRune()); err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info("cleaned table written",
				"run_id", report.RunID,
				"rows_out", report.RowsOut,
				"out", out,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	return cmd
}

func newDuplicatesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List groups of rows that are duplicates after normalization",
		Long: `Print the duplicate groups found while cleaning as JSON. Row numbers are
the labels of the input rows; the first row of each group is the one kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, report, err := o.clean(cmd.Context())
			if err != nil {
				return err
			}
			groups := report.Duplicates
			if groups == nil {
				groups = []core.DuplicateGroup{}
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"runId":             report.RunID,
				"droppedDuplicates": report.DroppedDuplicates,
				"groups":            groups,
			})
		},
	}
}

func newSummaryCmd(o *options) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Describe the cleaned table as JSON",
		Long: `Print row and column counts, missing cells per column and the credit
amount distribution. With --raw the input is described without cleaning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var t *core.Table
			var err error
			if raw {
				t, err = o.load(cmd.Context())
			} else {
				t, _, err = o.clean(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), core.Summarize(t, core.DefaultColumns()))
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Summarize the input as loaded")
	return cmd
}

func newSaveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Clean the input and copy it into PostgreSQL",
		Long: `Clean the input and append it to the configured table under a new run id.

The connection string is read from CREDITCLEAN_DATABASE_URL (or DATABASE_URL).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !o.cfg.Database.Enabled() {
				return core.ErrStoreDisabled
			}

			t, report, err := o.clean(ctx)
			if err != nil {
				return err
			}

			st, err := store.Open(ctx, o.cfg.Database, core.DefaultColumns())
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.Save(logging.WithRunID(ctx, report.RunID), t, report.RunID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d rows to %s (run %s)\n", n, o.cfg.Database.Table, report.RunID)
			return nil
		},
	}
}

func (o *options) validate() error {
	if utf8.RuneCountInString(o.delimiter) != 1 {
		return fmt.Errorf("--delimiter must be a single character, got %q", o.delimiter)
	}
	if o.in == "" {
		return fmt.Errorf("--in is required")
	}
	return nil
}

func (o *options) delimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(o.delimiter)
	return r
}

func (o *options) load(ctx context.Context) (*core.Table, error) {
	return core.LoadFile(ctx, o.in, core.LoadOptions{
		Delimiter: o.delimiterRune(),
		MaxBytes:  o.cfg.Input.MaxFileSize,
		Sheet:     o.sheet,
	})
}

func (o *options) clean(ctx context.Context) (*core.Table, *core.Report, error) {
	t, err := o.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return core.Clean(ctx, t)
}

// writeTable writes t to path, or to stdout when path is "-" or empty.
func writeTable(stdout io.Writer, path string, t *core.Table, delimiter rune) (err error) {
	if path == "" || path == "-" {
		return core.WriteCSV(stdout, t, delimiter)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return core.WriteCSV(f, t, delimiter)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
