package amqp

import (
	"encoding/json"
	"time"
)

// Sources of a category change.
const (
	SourceApply  = "apply"
	SourceManual = "manual"
)

// CategoryChangeMessage is published for every successful category write.
// The audit worker consumes these into the category_audit table.
type CategoryChangeMessage struct {
	TransactionID string    `json:"transactionId"`
	CategoryID    string    `json:"categoryId"`
	RuleID        string    `json:"ruleId,omitempty"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewCategoryChangeMessage creates a message stamped with the current time.
// RuleID is empty for manual edits.
func NewCategoryChangeMessage(transactionID, categoryID, ruleID, source string) *CategoryChangeMessage {
	return &CategoryChangeMessage{
		TransactionID: transactionID,
		CategoryID:    categoryID,
		RuleID:        ruleID,
		Source:        source,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CategoryChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func CategoryChangeMessageFromJSON(data []byte) (*CategoryChangeMessage, error) {
	var msg CategoryChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
