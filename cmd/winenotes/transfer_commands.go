package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"winenotes/internal/exporter"
	"winenotes/internal/history"
	"winenotes/internal/importer"
	"winenotes/internal/records"
	"winenotes/internal/share"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var jsonOnly bool
	var shareArchive bool
	var keep bool

	cmd := &cobra.Command{
		Use:   "export [ref...]",
		Short: "Package tastings and their photos into a zip bundle",
		Long: `Package tastings and their photos into a zip bundle.

With no references every tasting is exported. The archive is copied into the
export directory (or --out); an existing file is never overwritten. The
working directory the archive was built in is removed when the command exits
unless --keep is given, in which case the next stale sweep removes it.

--json-only writes the records without photo references instead.
--share also sends the archive to the configured ntfy topic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := selectRecords(app, args)
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(outDir)
			if dest == "" {
				dest = app.cfg.Paths.ExportDir
			}

			if jsonOnly {
				return exportJSON(cmd, ctx, app, recs, dest)
			}
			if shareArchive && !share.Enabled(app.share) {
				return errors.New("--share needs share.ntfy_topic in the configuration")
			}

			result, err := app.exporter.Export(cmd.Context(), recs)
			if err != nil {
				app.journal(cmd.Context(), history.Entry{
					Kind:    history.KindExport,
					Records: len(recs),
					Status:  history.StatusFailed,
					Message: err.Error(),
				})
				return err
			}
			if !keep {
				defer releaseExportDir(app, result)
			}

			delivered, err := deliverArchive(cmd.Context(), app, result, dest, shareArchive)
			entry := history.Entry{
				Kind:    history.KindExport,
				Path:    delivered,
				Records: result.Records,
				Images:  result.TotalImages,
				Failed:  result.FailedImages,
				Status:  history.StatusOK,
				Message: result.Summary(),
			}
			if err != nil {
				entry.Status = history.StatusFailed
				entry.Message = err.Error()
			}
			app.journal(cmd.Context(), entry)
			if err != nil && records.Classify(err) == records.CategoryFatal {
				return err
			}

			if ctx.JSONMode() {
				payload := map[string]any{
					"archive":       delivered,
					"records":       result.Records,
					"images":        result.TotalImages,
					"failed_images": result.FailedImages,
					"manifest":      result.Manifest,
				}
				if err != nil {
					payload["share_error"] = err.Error()
				}
				if keep {
					payload["export_dir"] = result.ExportDir
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", capitalize(result.Summary()))
			fmt.Fprintf(out, "Archive: %s\n", delivered)
			if keep {
				fmt.Fprintf(out, "Bundle directory: %s\n", result.ExportDir)
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			} else if shareArchive {
				fmt.Fprintln(out, "Archive sent to ntfy")
			}
			if partial := result.Err(); partial != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", partial)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory that receives the archive (default: paths.export_dir)")
	cmd.Flags().BoolVar(&jsonOnly, "json-only", false, "Write only the records file, without photos")
	cmd.Flags().BoolVar(&shareArchive, "share", false, "Also send the archive to the configured ntfy topic")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the bundle working directory after the command exits")
	return cmd
}

func exportJSON(cmd *cobra.Command, ctx *commandContext, app *application, recs []records.WineRecord, dest string) error {
	path, err := app.exporter.ExportJSON(cmd.Context(), recs, dest)
	entry := history.Entry{
		Kind:    history.KindExport,
		Path:    path,
		Records: len(recs),
		Status:  history.StatusOK,
		Message: "records only",
	}
	if err != nil {
		entry.Status = history.StatusFailed
		entry.Message = err.Error()
	}
	app.journal(cmd.Context(), entry)
	if err != nil {
		return err
	}
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{"path": path, "records": len(recs)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d %s to %s\n", len(recs), plural(len(recs), "tasting", "tastings"), path)
	return nil
}

// deliverArchive copies the archive to dest and optionally sends it to ntfy.
// The copy is required; a failed ntfy upload is returned as a degraded error
// alongside the delivered path.
func deliverArchive(ctx context.Context, app *application, result *exporter.Result, dest string, remote bool) (string, error) {
	title := fmt.Sprintf("Wine tastings (%d)", result.Records)
	local := &share.DirSurface{Dir: dest}
	if err := local.Share(ctx, result.ArchivePath, share.MimeZip, title); err != nil {
		return "", fmt.Errorf("%w: %w", exporter.ErrExport, err)
	}
	if !remote {
		return local.Last(), nil
	}
	if err := app.share.Share(ctx, result.ArchivePath, share.MimeZip, title); err != nil {
		return local.Last(), err
	}
	return local.Last(), nil
}

// releaseExportDir replaces the grace-period cleanup with one that is due
// now, so the janitor removes the bundle directory when the command exits.
func releaseExportDir(app *application, result *exporter.Result) {
	if result.Cleanup != nil && !result.Cleanup.Cancel() {
		return
	}
	app.janitor.Schedule(result.ExportDir, 0)
}

func selectRecords(app *application, refs []string) ([]records.WineRecord, error) {
	if len(refs) == 0 {
		recs := app.store.Snapshot()
		if len(recs) == 0 {
			return nil, exporter.ErrNothingToExport
		}
		return recs, nil
	}
	ids, err := resolveIDs(app.store, refs)
	if err != nil {
		return nil, err
	}
	recs := make([]records.WineRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := app.store.Get(id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var strategyFlag string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import tastings from a bundle archive or a records file",
		Long: `Import tastings from a .zip bundle or a .json records file.

Photos found next to the records are copied into the managed album. The merge
strategy must be chosen explicitly:

  replace  swap the whole collection for the imported tastings
  append   add the imported tastings after the existing ones

--dry-run loads and checks the file, reports what it contains and leaves
the collection untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var strategy importer.Strategy
			if !dryRun {
				parsed, err := importer.ParseStrategy(strategyFlag)
				if err != nil {
					if errors.Is(err, importer.ErrStrategyRequired) {
						return fmt.Errorf("%w: pass --strategy replace or --strategy append", err)
					}
					return err
				}
				strategy = parsed
			}

			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}

			imp, err := app.importer.Load(cmd.Context(), source)
			if err != nil {
				app.journal(cmd.Context(), history.Entry{
					Kind:    history.KindImport,
					Path:    source,
					Status:  history.StatusFailed,
					Message: err.Error(),
				})
				return err
			}
			defer imp.Close()

			if dryRun {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"source":         source,
						"records":        len(imp.Records),
						"photos":         imp.AdoptedPhotos,
						"cleared_photos": imp.ClearedPhotos,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (dry run, nothing imported)\n", capitalize(imp.Summary()))
				return nil
			}

			applyErr := imp.Apply(cmd.Context(), app.store, strategy)
			entry := history.Entry{
				Kind:     history.KindImport,
				Path:     source,
				Records:  len(imp.Records),
				Images:   imp.AdoptedPhotos,
				Failed:   imp.ClearedPhotos,
				Strategy: string(strategy),
				Status:   history.StatusOK,
				Message:  imp.Summary(),
			}
			if applyErr != nil && records.Classify(applyErr) != records.CategorySilent {
				entry.Status = history.StatusFailed
				entry.Message = applyErr.Error()
			}
			app.journal(cmd.Context(), entry)
			if err := reportPersist(cmd, applyErr); err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"source":         source,
					"strategy":       strategy,
					"records":        len(imp.Records),
					"photos":         imp.AdoptedPhotos,
					"cleared_photos": imp.ClearedPhotos,
					"total":          app.store.Len(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", capitalize(imp.Summary()))
			fmt.Fprintf(out, "Imported with %s; collection now holds %d %s\n",
				strategy, app.store.Len(), plural(app.store.Len(), "tasting", "tastings"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "Merge strategy: replace or append")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check the file without importing")
	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
