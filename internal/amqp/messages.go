package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEvent announces a committed change to the expense ledger.
// Consumers re-read the rows by id; the event carries no amounts.
type LedgerEvent struct {
	Type       string    `json:"type"`
	ExpenseIDs []int64   `json:"expense_ids"`
	Count      int64     `json:"count"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType string, ids []int64, count int64) *LedgerEvent {
	if ids == nil {
		ids = []int64{}
	}
	return &LedgerEvent{
		Type:       eventType,
		ExpenseIDs: ids,
		Count:      count,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
