package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"zodiac-snapshot/internal/snapshot"
	"zodiac-snapshot/internal/storage"
	"zodiac-snapshot/internal/zodiac"
)

// Show prints recent snapshots and transitions.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show snapshots")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Stdout, "no snapshots found")
		return nil
	}
	if err := writeSnapshotTable(a.Stdout, records); err != nil {
		return err
	}

	transitions, err := store.ListRecentTransitions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(transitions) > 0 {
		fmt.Fprintln(a.Stdout)
		writeTransitionTable(a.Stdout, transitions)
	}
	return nil
}

func writeSnapshotTable(out io.Writer, records []storage.SnapshotRecord) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := []string{"Time (UTC)"}
	for _, body := range zodiac.TrackedBodies() {
		header = append(header, body.Glyph+" "+body.Name)
	}
	fmt.Fprintln(writer, strings.Join(header, "\t"))

	for _, rec := range records {
		snap, err := snapshot.Decode(rec.Payload)
		if err != nil {
			return fmt.Errorf("decode snapshot %s: %w", rec.GeneratedAt.UTC().Format(time.RFC3339), err)
		}

		row := []string{rec.GeneratedAt.UTC().Format(time.RFC3339)}
		for _, p := range snap.Planets {
			row = append(row, formatPlacement(p))
		}
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}

	return writer.Flush()
}

func writeTransitionTable(out io.Writer, transitions []storage.TransitionRecord) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tBody\tKind\tFrom\tTo\tChannels")
	for _, tr := range transitions {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			tr.OccurredAt.UTC().Format(time.RFC3339),
			tr.Body,
			tr.Kind,
			tr.FromSign,
			tr.ToSign,
			strings.Join(tr.Channels, ","),
		)
	}
	writer.Flush()
}

func formatPlacement(p snapshot.Placement) string {
	cell := fmt.Sprintf("%s %s %5.2f", p.SignGlyph, p.Sign, p.Deg)
	if p.Retrograde {
		cell += " R"
	}
	return cell
}
