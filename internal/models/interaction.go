package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPayloadNotObject is returned when a payload is neither an object nor null
var ErrPayloadNotObject = errors.New("payload must be a JSON object or null")

// CustomerInteraction is one recorded customer event
type CustomerInteraction struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CustomerID       string    `json:"customer_id" gorm:"column:customer_id;not null;index"`
	EventType        string    `json:"event_type" gorm:"column:event_type;not null;index"`
	Payload          Payload   `json:"payload" gorm:"column:payload"`
	ReceivedAtServer time.Time `json:"received_at_server" gorm:"column:received_at_server;not null;default:CURRENT_TIMESTAMP"`
	IngestedAt       time.Time `json:"ingested_at" gorm:"column:ingested_at;not null"`
}

// TableName overrides the gorm default
func (CustomerInteraction) TableName() string {
	return "customer_interactions"
}

// InteractionInput holds the client-supplied fields for create and update
type InteractionInput struct {
	CustomerID string  `json:"customer_id" binding:"required"`
	EventType  string  `json:"event_type" binding:"required"`
	Payload    Payload `json:"payload"`
}

// NewInteraction builds a record from client input, stamped with ingestedAt
func NewInteraction(in *InteractionInput, ingestedAt time.Time) *CustomerInteraction {
	return &CustomerInteraction{
		CustomerID: in.CustomerID,
		EventType:  in.EventType,
		Payload:    in.Payload,
		IngestedAt: ingestedAt,
	}
}

// Payload is an opaque JSON object stored in a json column. A nil Payload
// is stored as NULL and rendered as null. Numbers are kept as json.Number so
// they round-trip exactly.
type Payload map[string]interface{}

// GormDataType sets the column type used by AutoMigrate
func (Payload) GormDataType() string {
	return "json"
}

// Value implements driver.Valuer
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]interface{}(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *Payload) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Payload", value)
	}

	decoded, err := decodePayload(raw)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Payload) UnmarshalJSON(data []byte) error {
	decoded, err := decodePayload(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func decodePayload(raw []byte) (Payload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '{' {
		return nil, ErrPayloadNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid payload JSON: %w", err)
	}
	return m, nil
}
