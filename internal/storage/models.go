package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRecord is a persisted snapshot together with its raw placements.
type SnapshotRecord struct {
	GeneratedAt time.Time
	Payload     json.RawMessage
	Placements  []PlacementRecord
	CreatedAt   time.Time
}

// PlacementRecord keeps the raw oracle values next to the derived sign so
// history can be charted by longitude.
type PlacementRecord struct {
	GeneratedAt time.Time
	Position    int
	Body        string
	Longitude   decimal.Decimal
	Speed       decimal.Decimal
	Sign        string
	Deg         decimal.Decimal
	Retrograde  bool
}

// TransitionRecord captures an announced sign ingress or station.
type TransitionRecord struct {
	ID         int64
	OccurredAt time.Time
	Body       string
	Kind       string
	FromSign   string
	ToSign     string
	Channels   []string
	CreatedAt  time.Time
}
