package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"winenotes/internal/fileutil"
	"winenotes/internal/photos"
	"winenotes/internal/records"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var fields recordFlags
	var photoSources photoFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new tasting",
		Long: `Record a new tasting.

Winery and wine name are required. Photos are copied from the given files into
the managed photo album; the source files are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec records.WineRecord
			rec.GrapeVarieties = []records.GrapeComponent{}
			if _, err := fields.apply(cmd, &rec); err != nil {
				return err
			}
			if err := rec.Validate(); err != nil {
				return err
			}
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}

			captured, err := capturePhotos(cmd.Context(), app, photoSources, &rec)
			if err != nil {
				return err
			}
			id, err := app.store.Add(cmd.Context(), rec)
			if err := reportPersist(cmd, err); err != nil {
				for _, ref := range captured {
					app.photos.Delete(ref)
				}
				return err
			}

			if ctx.JSONMode() {
				saved, _ := app.store.Get(id)
				return writeJSON(cmd, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s (%s)\n", app.store.Len(), rec.Title(), shortID(id))
			return nil
		},
	}

	fields = addRecordFlags(cmd, "")
	photoSources = addPhotoFlags(cmd)
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded tastings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			recs := app.store.Snapshot()
			positions := make([]int, len(recs))
			for i := range positions {
				positions[i] = i
			}
			return printRecords(cmd, ctx, recs, positions)
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show every field of one tasting",
		Long:  "Show one tasting. A reference is a list number, an id, or a unique id prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			idx, err := app.store.Resolve(args[0])
			if err != nil {
				return err
			}
			rec, err := app.store.At(idx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, rec)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s\n", idx+1, rec.Title())
			fmt.Fprintf(out, "  %-22s %s\n", "ID", rec.ID)
			for _, spec := range recordFields {
				value := spec.get(&rec)
				if value == "" || value == "0" {
					continue
				}
				fmt.Fprintf(out, "  %-22s %s\n", spec.label, value)
			}
			for _, kind := range records.PhotoKinds {
				if ref := rec.Photo(kind); ref != "" {
					fmt.Fprintf(out, "  %-22s %s\n", string(kind)+" photo", fileutil.FromURI(ref))
				}
			}
			return nil
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var fields recordFlags
	var photoSources photoFlags

	cmd := &cobra.Command{
		Use:   "edit <ref>",
		Short: "Change fields of a tasting",
		Long: `Change fields of a tasting. Only the flags given are changed.

A replaced photo is removed from the managed album once the edit is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			idx, err := app.store.Resolve(args[0])
			if err != nil {
				return err
			}
			rec, err := app.store.At(idx)
			if err != nil {
				return err
			}
			changed, err := fields.apply(cmd, &rec)
			if err != nil {
				return err
			}
			if changed == 0 && !photoSources.any(cmd) {
				return errors.New("nothing to change: pass at least one field or photo flag")
			}
			if err := rec.Validate(); err != nil {
				return err
			}

			captured, err := capturePhotos(cmd.Context(), app, photoSources, &rec)
			if err != nil {
				return err
			}
			if err := reportPersist(cmd, app.store.ReplaceAt(cmd.Context(), idx, rec)); err != nil {
				for _, ref := range captured {
					app.photos.Delete(ref)
				}
				return err
			}

			if ctx.JSONMode() {
				saved, _ := app.store.At(idx)
				return writeJSON(cmd, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated #%d %s\n", idx+1, rec.Title())
			return nil
		},
	}

	fields = addRecordFlags(cmd, "New ")
	photoSources = addPhotoFlags(cmd)
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var deleteAll bool

	cmd := &cobra.Command{
		Use:   "delete [ref...]",
		Short: "Delete tastings and their photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteAll == (len(args) > 0) {
				return errors.New("pass record references or --all, not both")
			}
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}

			if deleteAll {
				count := app.store.Len()
				if err := reportPersist(cmd, app.store.RemoveAll(cmd.Context())); err != nil {
					return err
				}
				return printDeleted(cmd, ctx, count)
			}

			ids, err := resolveIDs(app.store, args)
			if err != nil {
				return err
			}
			removed := 0
			for _, id := range ids {
				if err := reportPersist(cmd, app.store.Remove(cmd.Context(), id)); err != nil {
					return err
				}
				removed++
			}
			return printDeleted(cmd, ctx, removed)
		},
	}

	cmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every tasting")
	return cmd
}

func printDeleted(cmd *cobra.Command, ctx *commandContext, n int) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{"deleted": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d %s\n", n, plural(n, "tasting", "tastings"))
	return nil
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var fields recordFlags
	var sortField string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find tastings by field",
		Long: `Find tastings by field.

Every given flag must be a case-insensitive substring of that field. With no
flags every tasting matches. --sort orders the hits by a field, given either
as a flag name (winery) or a record field name (wineryName).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := fields.filter(cmd)
			if err := filter.Validate(); err != nil {
				return err
			}
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			recs := app.store.Snapshot()
			positions := filter.Apply(recs)
			if sortField = strings.TrimSpace(sortField); sortField != "" {
				spec, ok := fieldByFlag(sortField)
				if !ok {
					return fmt.Errorf("unknown sort field %q", sortField)
				}
				if err := records.SortBy(recs, positions, spec.name); err != nil {
					return err
				}
			}
			return printRecords(cmd, ctx, recs, positions)
		},
	}

	fields = addRecordFlags(cmd, "Match ")
	cmd.Flags().StringVar(&sortField, "sort", "", "Order results by this field")
	return cmd
}

func newPhotoCommand(ctx *commandContext) *cobra.Command {
	photoCmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage the photos of a tasting",
	}
	photoCmd.AddCommand(newPhotoSetCommand(ctx))
	photoCmd.AddCommand(newPhotoClearCommand(ctx))
	return photoCmd
}

func newPhotoSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <ref> <kind> <file>",
		Short: "Store an image as a photo of a tasting",
		Long:  "Store an image as a photo of a tasting. Kind is bottle, label, backlabel or plaque.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParsePhotoKind(args[1])
			if err != nil {
				return err
			}
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			idx, err := app.store.Resolve(args[0])
			if err != nil {
				return err
			}
			rec, err := app.store.At(idx)
			if err != nil {
				return err
			}
			ref, err := capturePhoto(cmd.Context(), app, args[2])
			if err != nil {
				return err
			}
			rec.SetPhoto(kind, ref)
			if err := reportPersist(cmd, app.store.ReplaceAt(cmd.Context(), idx, rec)); err != nil {
				app.photos.Delete(ref)
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"record": rec.ID, "kind": kind, "photo": ref})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s photo for #%d: %s\n", kind, idx+1, fileutil.FromURI(ref))
			return nil
		},
	}
}

func newPhotoClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear <ref> [kind]",
		Short: "Remove photos from a tasting",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearAll == (len(args) == 2) {
				return errors.New("pass a photo kind or --all, not both")
			}
			app, err := ctx.application(cmd.Context())
			if err != nil {
				return err
			}
			idx, err := app.store.Resolve(args[0])
			if err != nil {
				return err
			}
			rec, err := app.store.At(idx)
			if err != nil {
				return err
			}
			if clearAll {
				rec.ClearPhotos()
			} else {
				kind, err := records.ParsePhotoKind(args[1])
				if err != nil {
					return err
				}
				rec.SetPhoto(kind, "")
			}
			if err := reportPersist(cmd, app.store.ReplaceAt(cmd.Context(), idx, rec)); err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Photos updated for #%d %s\n", idx+1, rec.Title())
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every photo of the tasting")
	return cmd
}

// any reports whether at least one photo flag was given.
func (p photoFlags) any(cmd *cobra.Command) bool {
	for kind := range p {
		if cmd.Flags().Changed(string(kind) + "-photo") {
			return true
		}
	}
	return false
}

// capturePhotos stores every given photo flag on rec and returns the new
// references so a failed save can release them.
func capturePhotos(ctx context.Context, app *application, sources photoFlags, rec *records.WineRecord) ([]string, error) {
	var captured []string
	for _, kind := range records.PhotoKinds {
		src := strings.TrimSpace(*sources[kind])
		if src == "" {
			continue
		}
		ref, err := capturePhoto(ctx, app, src)
		if err != nil {
			for _, done := range captured {
				app.photos.Delete(done)
			}
			return nil, fmt.Errorf("--%s-photo: %w", kind, err)
		}
		captured = append(captured, ref)
		rec.SetPhoto(kind, ref)
	}
	return captured, nil
}

func capturePhoto(ctx context.Context, app *application, src string) (string, error) {
	path := fileutil.FromURI(strings.TrimSpace(src))
	if !fileutil.Exists(path) {
		return "", fmt.Errorf("image %s does not exist", path)
	}
	camera := photos.FileCamera{Source: path, StagingDir: app.cfg.Paths.TransientDir}
	ref, err := app.photos.CaptureWith(ctx, camera)
	if err != nil {
		return "", err
	}
	if ref == "" {
		return "", fmt.Errorf("image %s could not be read", path)
	}
	return ref, nil
}

// reportPersist downgrades a failed disk write to a warning: the change is
// applied but will not survive this process.
func reportPersist(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if records.Classify(err) != records.CategorySilent {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	return nil
}

func printRecords(cmd *cobra.Command, ctx *commandContext, recs []records.WineRecord, positions []int) error {
	if ctx.JSONMode() {
		out := make([]records.WineRecord, 0, len(positions))
		for _, pos := range positions {
			out = append(out, recs[pos])
		}
		return writeJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	if len(positions) == 0 {
		fmt.Fprintln(w, "No tastings found")
		return nil
	}
	rows := make([][]string, 0, len(positions))
	for _, pos := range positions {
		rec := &recs[pos]
		rows = append(rows, []string{
			listNumber(pos),
			shortID(rec.ID),
			rec.WineryName,
			rec.WineName,
			rec.HarvestYear,
			rec.WineType,
			rec.Color,
			strconv.Itoa(len(rec.Photos())),
		})
	}
	renderRows(w,
		[]string{"#", "ID", "Winery", "Wine", "Harvest", "Type", "Color", "Photos"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
	if isTerminal(w) {
		fmt.Fprintf(w, "%d %s\n", len(positions), plural(len(positions), "tasting", "tastings"))
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
