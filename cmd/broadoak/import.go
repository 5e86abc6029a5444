package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"broadoak/internal/exporter"
	"broadoak/internal/importer"
	"broadoak/internal/model"
	"broadoak/internal/server"
)

type importOptions struct {
	sheets     []string
	apply      bool
	exportPath string
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <workbook>",
		Short: "Reconcile a rota workbook against the shift store (dry run unless --apply)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), root, args[0], opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVarP(&opts.sheets, "sheet", "s", nil, "Sheet to import (repeatable, processed in order)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Commit the changes (default is dry-run)")
	cmd.Flags().StringVar(&opts.exportPath, "export", "", "Write the reconciliation preview to this .xlsx file")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

func runImport(ctx context.Context, root *rootOptions, path string, opts importOptions, out io.Writer) error {
	cfg, _, err := root.load()
	if err != nil {
		return err
	}
	logger, err := root.logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	settings, err := importer.NewSettings(cfg)
	if err != nil {
		return err
	}
	backend, err := server.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	coordinator := importer.NewCoordinator(backend.Shifts, backend.Journal, settings, logger.Named("importer"))
	var report *importer.Report
	var runErr error
	for event := range coordinator.Import(ctx, importer.Options{
		Filename: filepath.Base(path),
		Reader:   f,
		Sheets:   opts.sheets,
		DryRun:   !opts.apply,
	}) {
		switch event.Type {
		case "done":
			report, _ = event.Data.(*importer.Report)
		case "error":
			report, _ = event.Data.(*importer.Report)
			runErr = errors.New(event.Message)
		default:
			fmt.Fprintf(out, "  %s\n", event.Message)
		}
	}
	if report == nil {
		if runErr == nil {
			runErr = ctx.Err()
		}
		return runErr
	}

	printReport(out, report)
	if opts.exportPath != "" {
		if err := writePreview(out, report, opts.exportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Preview written to %s\n", opts.exportPath)
	}
	return runErr
}

func printReport(out io.Writer, r *importer.Report) {
	mode := "dry run"
	if !r.DryRun {
		mode = string(r.Status)
	}
	fmt.Fprintf(out, "\nImport %s (%s), today is %s\n", r.ID, mode, r.Today.Format(model.DateLayout))
	fmt.Fprintf(out, "  %d candidate shift(s), %d resolved\n", r.Candidates, r.Resolved)
	fmt.Fprintf(out, "  %s\n", r.Summary())
	if r.Result.Protected > 0 {
		fmt.Fprintf(out, "  %d protected shift(s) left untouched\n", r.Result.Protected)
	}
	if !r.DryRun {
		fmt.Fprintf(out, "  %d operation(s) applied in %d batch(es)\n", r.Applied, r.Batches)
		for _, op := range r.Skipped {
			fmt.Fprintf(out, "  skipped %s of shift %s: now protected\n", op.Kind, op.TargetID())
		}
	}
	if len(r.Failures) == 0 {
		return
	}
	fmt.Fprintln(out, "\nFailures:")
	for _, f := range r.Failures {
		date := "-"
		if f.Date != nil {
			date = f.Date.Format(model.DateLayout)
		}
		fmt.Fprintf(out, "  [%s] %s %s | %q: %s\n", f.Sheet, date, f.Project, f.CellText, f.Reason)
	}
}

func writePreview(out io.Writer, r *importer.Report, path string) error {
	file, err := exporter.ExportPreview(r, func(ev exporter.ProgressEvent) {
		fmt.Fprintf(out, "Exporting preview: %3d%% %s\n", ev.Percent, ev.Stage)
	})
	if err != nil {
		return err
	}
	defer file.Close()
	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}
