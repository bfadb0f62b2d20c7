package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ledgerinsight/internal/insight"
)

// LedgerChangedMessage announces that the ledger was modified. It carries no
// transaction data; consumers reload the snapshot.
type LedgerChangedMessage struct {
	TransactionID string    `json:"transactionId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	// At pins the evaluation instant for replays. Zero means "use the clock".
	At time.Time `json:"at,omitempty"`
}

// NewLedgerChangedMessage creates a change notification for one transaction.
func NewLedgerChangedMessage(transactionID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportMessage carries a computed insight report.
type ReportMessage struct {
	ID          string         `json:"id"`
	TriggeredBy string         `json:"triggeredBy,omitempty"`
	Report      insight.Report `json:"report"`
}

// NewReportMessage wraps a report with a fresh id.
func NewReportMessage(report insight.Report, triggeredBy string) *ReportMessage {
	return &ReportMessage{
		ID:          uuid.NewString(),
		TriggeredBy: triggeredBy,
		Report:      report,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportMessageFromJSON creates a message from JSON bytes
func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
