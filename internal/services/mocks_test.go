package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogPayment(feeID, actorID string, amount decimal.Decimal, status, receiptNumber string) {
	m.Called(feeID, actorID, amount, status, receiptNumber)
}

func (m *MockAuditLogger) LogLogin(adminID, email, status string) {
	m.Called(adminID, email, status)
}

func (m *MockAuditLogger) LogLockout(adminID string, until time.Time) {
	m.Called(adminID, until)
}

func (m *MockAuditLogger) LogError(subjectID, actorID string, err error) {
	m.Called(subjectID, actorID, err)
}

// quietAudit accepts any audit call.
func quietAudit() *MockAuditLogger {
	m := &MockAuditLogger{}
	m.On("LogPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("LogLogin", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("LogLockout", mock.Anything, mock.Anything).Maybe()
	m.On("LogError", mock.Anything, mock.Anything, mock.Anything).Maybe()
	return m
}
