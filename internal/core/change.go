package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation names a confirmed mutation.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpDeleted Operation = "deleted"
	OpClosed  Operation = "closed"
)

// Change records a mutation the API has confirmed. It is what gets mirrored
// into the ledger, so it carries enough to write a row without refetching.
type Change struct {
	ID         uuid.UUID       `json:"id"`
	Collection string          `json:"collection"`
	Operation  Operation       `json:"operation"`
	EntityID   int64           `json:"entity_id"`
	Amount     decimal.Decimal `json:"amount"`
	Label      string          `json:"label,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewChange stamps a change with a fresh id and the current time.
func NewChange(collection string, op Operation, entityID int64, amount decimal.Decimal, label string) Change {
	return Change{
		ID:         uuid.New(),
		Collection: collection,
		Operation:  op,
		EntityID:   entityID,
		Amount:     amount,
		Label:      label,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON converts the change to JSON bytes
func (c Change) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// ChangeFromJSON decodes a change and rejects payloads without identity.
func ChangeFromJSON(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, err
	}
	if c.ID == uuid.Nil || c.Collection == "" || c.Operation == "" {
		return Change{}, ErrMalformedChange
	}
	return c, nil
}

// Row renders the change as a ledger row.
func (c Change) Row() []any {
	return []any{
		c.OccurredAt.Format(time.RFC3339),
		c.Collection,
		string(c.Operation),
		c.EntityID,
		FormatAmount(c.Amount),
		c.Label,
		c.ID.String(),
	}
}
