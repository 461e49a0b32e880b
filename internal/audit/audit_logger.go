package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type AuditEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	EventType string           `json:"event_type"`
	ActorID   string           `json:"actor_id,omitempty"`
	SubjectID string           `json:"subject_id,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Status    string           `json:"status"`
	Details   any              `json:"details,omitempty"`
}

// Logger records security and money-moving events as single JSON lines.
type Logger interface {
	LogPayment(feeID, actorID string, amount decimal.Decimal, status, receiptNumber string)
	LogLogin(adminID, email, status string)
	LogLockout(adminID string, until time.Time)
	LogError(subjectID, actorID string, err error)
}

type AuditLogger struct {
	now func() time.Time
	out func(string, ...any)
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{now: time.Now, out: log.Printf}
}

func (a *AuditLogger) LogPayment(feeID, actorID string, amount decimal.Decimal, status, receiptNumber string) {
	event := AuditEvent{
		EventType: "FEE_PAYMENT",
		ActorID:   actorID,
		SubjectID: feeID,
		Amount:    &amount,
		Status:    status,
	}
	if receiptNumber != "" {
		event.Details = map[string]string{"receipt_number": receiptNumber}
	}
	a.log(event)
}

func (a *AuditLogger) LogLogin(adminID, email, status string) {
	a.log(AuditEvent{
		EventType: "ADMIN_LOGIN",
		SubjectID: adminID,
		Status:    status,
		Details:   map[string]string{"email": email},
	})
}

func (a *AuditLogger) LogLockout(adminID string, until time.Time) {
	a.log(AuditEvent{
		EventType: "ADMIN_LOCKOUT",
		SubjectID: adminID,
		Status:    "LOCKED",
		Details:   map[string]string{"lock_until": until.UTC().Format(time.RFC3339)},
	})
}

func (a *AuditLogger) LogError(subjectID, actorID string, err error) {
	a.log(AuditEvent{
		EventType: "ERROR",
		ActorID:   actorID,
		SubjectID: subjectID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	event.Timestamp = a.now()
	data, _ := json.Marshal(event)
	a.out("AUDIT: %s", string(data))
}
