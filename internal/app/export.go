package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"zodiac-snapshot/internal/storage"
	"zodiac-snapshot/internal/zodiac"
)

// Export renders one body's placement history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	body, ok := zodiac.LookupBody(opts.Body)
	if !ok {
		return fmt.Errorf("unknown body %q", opts.Body)
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	from, to, err := a.exportWindow(opts)
	if err != nil {
		return err
	}

	placements, err := store.ListBodyPlacementsBetween(ctx, body.Name, from, to)
	if err != nil {
		return err
	}
	if len(placements) == 0 {
		a.Logger.Info().Str("body", body.Name).Msg("no placements found for export window")
		return nil
	}

	downsampled := downsamplePlacements(placements, opts.MaxPoints)
	a.Logger.Info().
		Str("body", body.Name).
		Int("total", len(placements)).
		Int("exported", len(downsampled)).
		Msg("exporting placements")

	if opts.CSVPath != "" {
		if err := writePlacementsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePlacementsPNG(opts.PNGPath, body, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) exportWindow(opts ExportOptions) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must be before to")
	}
	return from, to, nil
}

func downsamplePlacements(placements []storage.PlacementRecord, max int) []storage.PlacementRecord {
	if max <= 0 || len(placements) <= max {
		return placements
	}
	if max == 1 {
		return placements[:1]
	}

	result := make([]storage.PlacementRecord, 0, max)
	step := float64(len(placements)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(placements) {
			idx = len(placements) - 1
		}
		result = append(result, placements[idx])
	}
	return result
}

func writePlacementsCSV(path string, placements []storage.PlacementRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"generated_at", "body", "longitude", "speed", "sign", "deg", "retrograde"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range placements {
		record := []string{
			p.GeneratedAt.UTC().Format(time.RFC3339),
			p.Body,
			p.Longitude.String(),
			p.Speed.String(),
			p.Sign,
			p.Deg.StringFixed(2),
			strconv.FormatBool(p.Retrograde),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writePlacementsPNG(path string, body zodiac.Body, placements []storage.PlacementRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(placements))
	longitude := make([]float64, len(placements))
	speed := make([]float64, len(placements))

	for i, p := range placements {
		x[i] = p.GeneratedAt
		longitude[i] = p.Longitude.InexactFloat64()
		speed[i] = p.Speed.InexactFloat64()
	}

	degFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  body.Name,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Longitude (deg)",
			ValueFormatter: degFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: 360},
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Speed (deg/day)",
			ValueFormatter: degFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Longitude",
				XValues: x,
				YValues: longitude,
			},
			chart.TimeSeries{
				Name:    "Speed",
				XValues: x,
				YValues: speed,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
