package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"zodiac-snapshot/internal/resolver"
	"zodiac-snapshot/internal/zodiac"
)

const (
	degreePlaces = 2

	timestampLayout      = "2006-01-02T15:04:05Z"
	timestampMicroLayout = "2006-01-02T15:04:05.000000Z"
)

// maxDegree is the largest rounded degree that stays inside a sign.
var maxDegree = decimal.New(2999, -degreePlaces)

// Placement is the zodiac position of one body.
type Placement struct {
	Planet      string  `json:"planet"`
	PlanetGlyph string  `json:"planetGlyph"`
	Sign        string  `json:"sign"`
	SignGlyph   string  `json:"signGlyph"`
	Deg         float64 `json:"deg"`
	Retrograde  bool    `json:"retrograde"`
}

// Snapshot is the serialized payload for one instant.
type Snapshot struct {
	GeneratedAtUTC string      `json:"generatedAtUTC"`
	Planets        []Placement `json:"planets"`
}

// Assemble builds a snapshot from samples aligned with bodies.
func Assemble(generatedAt time.Time, bodies []zodiac.Body, samples []resolver.Sample) (Snapshot, error) {
	if len(bodies) != len(samples) {
		return Snapshot{}, fmt.Errorf("assemble snapshot: %d bodies but %d samples", len(bodies), len(samples))
	}

	placements := make([]Placement, 0, len(bodies))
	for i, body := range bodies {
		placements = append(placements, Place(body, samples[i]))
	}

	return Snapshot{
		GeneratedAtUTC: FormatTimestamp(generatedAt),
		Planets:        placements,
	}, nil
}

// Place maps one raw sample onto its sign.
func Place(body zodiac.Body, sample resolver.Sample) Placement {
	sign := zodiac.SignOf(sample.Longitude)
	return Placement{
		Planet:      body.Name,
		PlanetGlyph: body.Glyph,
		Sign:        sign.Name,
		SignGlyph:   sign.Glyph,
		Deg:         RoundDegree(zodiac.DegreeInSign(sample.Longitude)),
		Retrograde:  sample.Retrograde(),
	}
}

// RoundDegree rounds half away from zero to two places. Values that would
// round up to 30 are held at 29.99 so the degree never leaves its sign.
func RoundDegree(deg float64) float64 {
	d := decimal.NewFromFloat(deg).Round(degreePlaces)
	if d.GreaterThan(maxDegree) {
		d = maxDegree
	}
	return d.InexactFloat64()
}

// FormatTimestamp renders t in UTC as ISO-8601 with a literal Z designator.
// Microseconds are included only when non-zero.
func FormatTimestamp(t time.Time) string {
	u := t.UTC()
	if u.Nanosecond()/int(time.Microsecond) == 0 {
		return u.Format(timestampLayout)
	}
	return u.Format(timestampMicroLayout)
}

// Encode serializes s as UTF-8 JSON without escaping glyphs. A non-empty
// indent pretty-prints the payload.
func Encode(s Snapshot, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a payload produced by Encode.
func Decode(payload []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
