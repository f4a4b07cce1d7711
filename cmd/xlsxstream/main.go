// Package main provides the CLI entry point for xlsxstream.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ukaji3/xlsxstream/pkg/xlsxstream"
	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/output"
)

var (
	outputPath     string
	pretty         bool
	verbose        bool
	sheetName      string
	startCell      string
	endCell        string
	useHeader      bool
	fillMerged     bool
	noFillEmpty    bool
	jsonLines      bool
	definedName    string
	spillThreshold int64
	spillDir       string
	aliases        []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xlsxstream",
		Short: "Stream rows out of large Excel files",
		Long: `xlsxstream reads worksheet ranges from .xlsx files as typed JSON rows
without loading the whole workbook into memory.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug events to stderr")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().Int64Var(&spillThreshold, "spill-threshold", xlsxstream.DefaultSpillThreshold, "Shared-strings size in bytes above which strings spill to disk (negative: never)")
	rootCmd.PersistentFlags().StringVar(&spillDir, "spill-dir", "", "Directory for temporary files")
	rootCmd.PersistentFlags().StringArrayVar(&aliases, "alias", nil, "Sheet alias as alias=sheet (repeatable)")

	sheetsCmd := &cobra.Command{
		Use:   "sheets [input.xlsx]",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runSheets,
	}

	rangeCmd := &cobra.Command{
		Use:   "range [input.xlsx]",
		Short: "Print the used range of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runRange,
	}
	rangeCmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet name or alias (default: first sheet)")

	queryCmd := &cobra.Command{
		Use:   "query [input.xlsx]",
		Short: "Stream the rows of a sheet range as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	queryCmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet name or alias (default: first sheet)")
	queryCmd.Flags().StringVar(&startCell, "start", "", "Top-left cell, e.g. B2 (default: A1)")
	queryCmd.Flags().StringVar(&endCell, "end", "", "Bottom-right cell, inclusive (default: unbounded)")
	queryCmd.Flags().BoolVar(&useHeader, "header", false, "Use the first row as keys")
	queryCmd.Flags().BoolVar(&fillMerged, "fill-merged", false, "Fill merged cells with the anchor value")
	queryCmd.Flags().BoolVar(&noFillEmpty, "no-fill-empty", false, "Do not emit empty rows for row gaps")
	queryCmd.Flags().BoolVar(&jsonLines, "lines", false, "Write one JSON object per line as rows arrive")
	queryCmd.Flags().StringVar(&definedName, "name", "", "Query the range of a defined name instead of --sheet/--start/--end")

	namesCmd := &cobra.Command{
		Use:   "names [input.xlsx]",
		Short: "List the defined names of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runNames,
	}

	rootCmd.AddCommand(sheetsCmd, rangeCmd, queryCmd, namesCmd)
	return rootCmd
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseAliases(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		alias, sheet, ok := strings.Cut(p, "=")
		if !ok || alias == "" || sheet == "" {
			return nil, fmt.Errorf("invalid alias %q (want alias=sheet)", p)
		}
		m[alias] = sheet
	}
	return m, nil
}

func openInput(inputPath string) (*xlsxstream.Reader, error) {
	// Validate input file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", inputPath)
	}

	sheetAliases, err := parseAliases(aliases)
	if err != nil {
		return nil, err
	}
	cfg := xlsxstream.Config{
		SpillThreshold: spillThreshold,
		SpillDir:       spillDir,
		SheetAliases:   sheetAliases,
		Logger:         newLogger(),
	}
	return xlsxstream.Open(inputPath, cfg)
}

func runSheets(cmd *cobra.Command, args []string) error {
	r, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	return writeJSON(cmd, output.Sheets(r.Sheets()))
}

func runNames(cmd *cobra.Command, args []string) error {
	r, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	return writeJSON(cmd, r.DefinedNames())
}

func runRange(cmd *cobra.Command, args []string) error {
	r, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	rec, err := r.Resolve(sheetName)
	if err != nil {
		return err
	}
	ur, err := r.UsedRange(cmd.Context(), rec.Name)
	if err != nil {
		return err
	}
	return writeJSON(cmd, output.Range(rec.Name, ur))
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	r, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	fillEmpty := !noFillEmpty
	q := xlsxstream.Query{
		Sheet:           sheetName,
		StartCell:       startCell,
		EndCell:         endCell,
		UseHeaderRow:    useHeader,
		FillMergedCells: fillMerged,
		FillEmptyRows:   &fillEmpty,
	}

	rows := r.Rows(ctx, q)
	if definedName != "" {
		rows = r.NamedRange(ctx, definedName, q)
	}

	if jsonLines {
		w, closeOut, err := openOutput(cmd)
		if err != nil {
			return err
		}
		_, err = output.WriteLines(w, rows)
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		return nil
	}

	var collected []models.Row
	for row, err := range rows {
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		collected = append(collected, row)
	}
	jsonData, err := output.RowsToJSON(collected, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	return writeOutput(cmd, jsonData)
}

func writeJSON(cmd *cobra.Command, v any) error {
	jsonData, err := output.ToJSON(v, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	return writeOutput(cmd, jsonData)
}

func writeOutput(cmd *cobra.Command, jsonData []byte) error {
	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return nil
}

func openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	if outputPath == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to write output: %w", err)
	}
	return f, f.Close, nil
}
