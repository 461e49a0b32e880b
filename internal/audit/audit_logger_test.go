package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*AuditLogger, *[]string) {
	var lines []string
	fixed := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	return &AuditLogger{
		now: func() time.Time { return fixed },
		out: func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) },
	}, &lines
}

func decode(t *testing.T, line string) map[string]any {
	t.Helper()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))
	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "AUDIT: ")), &event))
	return event
}

func TestAuditLogger_LogPayment(t *testing.T) {
	logger, lines := captureLogger()

	logger.LogPayment("fee-1", "admin-1", decimal.NewFromInt(2500), "Paid", "REC-1-CS01")

	require.Len(t, *lines, 1)
	event := decode(t, (*lines)[0])
	assert.Equal(t, "FEE_PAYMENT", event["event_type"])
	assert.Equal(t, "fee-1", event["subject_id"])
	assert.Equal(t, "admin-1", event["actor_id"])
	assert.Equal(t, "2500", event["amount"])
	assert.Equal(t, "Paid", event["status"])
	assert.Equal(t, "2024-06-15T10:00:00Z", event["timestamp"])
}

func TestAuditLogger_LogLockoutAndError(t *testing.T) {
	logger, lines := captureLogger()

	logger.LogLockout("admin-1", time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	logger.LogError("fee-1", "admin-1", errors.New("optimistic lock failed"))

	require.Len(t, *lines, 2)
	lockout := decode(t, (*lines)[0])
	assert.Equal(t, "ADMIN_LOCKOUT", lockout["event_type"])
	assert.Equal(t, "2024-06-15T12:00:00Z", lockout["details"].(map[string]any)["lock_until"])

	failure := decode(t, (*lines)[1])
	assert.Equal(t, "FAILED", failure["status"])
	assert.Equal(t, "optimistic lock failed", failure["details"].(map[string]any)["error"])
}
