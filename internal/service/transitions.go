package service

import (
	"zodiac-snapshot/internal/alerting"
	"zodiac-snapshot/internal/snapshot"
	"zodiac-snapshot/internal/storage"
)

// Transition is a change of sign or direction between two snapshots.
type Transition struct {
	Body      string
	BodyGlyph string
	Kind      string
	FromSign  string
	ToSign    string
	SignGlyph string
	Deg       float64
}

// Event returns the alerting.events key that enables this transition.
func (t Transition) Event() string {
	switch t.Kind {
	case alerting.KindStationRetrograde, alerting.KindStationDirect:
		return "station"
	default:
		return t.Kind
	}
}

// DetectTransitions compares the previous placements with the current
// snapshot. Bodies missing from previous are ignored.
func DetectTransitions(previous []storage.PlacementRecord, current snapshot.Snapshot) []Transition {
	prev := make(map[string]storage.PlacementRecord, len(previous))
	for _, p := range previous {
		prev[p.Body] = p
	}

	var out []Transition
	for _, cur := range current.Planets {
		before, ok := prev[cur.Planet]
		if !ok {
			continue
		}

		base := Transition{
			Body:      cur.Planet,
			BodyGlyph: cur.PlanetGlyph,
			FromSign:  before.Sign,
			ToSign:    cur.Sign,
			SignGlyph: cur.SignGlyph,
			Deg:       cur.Deg,
		}

		if before.Sign != cur.Sign {
			tr := base
			tr.Kind = alerting.KindIngress
			out = append(out, tr)
		}

		if before.Retrograde != cur.Retrograde {
			tr := base
			if cur.Retrograde {
				tr.Kind = alerting.KindStationRetrograde
			} else {
				tr.Kind = alerting.KindStationDirect
			}
			out = append(out, tr)
		}
	}
	return out
}
