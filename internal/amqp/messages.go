package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is an event body published to the exchange.
type Message interface {
	Type() string
	ToJSON() ([]byte, error)
}

const (
	TypeBudgetChanged  = "budget.changed"
	TypeRatesRefreshed = "rates.refreshed"
)

// BudgetChangedMessage announces a persisted change. Kind names what changed,
// e.g. "income.added" or "settings.currency". ID and Month are set when the
// change concerns a single transaction.
type BudgetChangedMessage struct {
	EventType string    `json:"type"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetChangedMessage(kind, id, month string, at time.Time) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		EventType: TypeBudgetChanged,
		Kind:      kind,
		ID:        id,
		Month:     month,
		Timestamp: at,
	}
}

func (m *BudgetChangedMessage) Type() string { return TypeBudgetChanged }

func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RatesRefreshedMessage carries the rates installed by a refresh, keyed by
// currency code, as decimal strings.
type RatesRefreshedMessage struct {
	EventType string            `json:"type"`
	Rates     map[string]string `json:"rates"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func NewRatesRefreshedMessage(rates map[string]string, at time.Time) *RatesRefreshedMessage {
	return &RatesRefreshedMessage{
		EventType: TypeRatesRefreshed,
		Rates:     rates,
		UpdatedAt: at,
	}
}

func (m *RatesRefreshedMessage) Type() string { return TypeRatesRefreshed }

func (m *RatesRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a published body back into its concrete message type.
func DecodeMessage(data []byte) (Message, error) {
	var head struct {
		EventType string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.EventType {
	case TypeBudgetChanged:
		var m BudgetChangedMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case TypeRatesRefreshed:
		var m RatesRefreshedMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	}
	return nil, fmt.Errorf("unknown message type %q", head.EventType)
}
