package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestFeeDetail_Recompute(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name       string
		fee        FeeDetail
		wantDue    decimal.Decimal
		wantStatus PaymentStatus
	}{
		{
			name:       "nothing paid before due date",
			fee:        FeeDetail{TotalAmount: d(10000), DueDate: tomorrow},
			wantDue:    d(10000),
			wantStatus: PaymentStatusPending,
		},
		{
			name:       "nothing paid after due date",
			fee:        FeeDetail{TotalAmount: d(10000), DueDate: yesterday},
			wantDue:    d(10000),
			wantStatus: PaymentStatusOverdue,
		},
		{
			name:       "partially paid",
			fee:        FeeDetail{TotalAmount: d(10000), PaidAmount: d(4000), DueDate: tomorrow},
			wantDue:    d(6000),
			wantStatus: PaymentStatusPartial,
		},
		{
			name:       "partially paid and late",
			fee:        FeeDetail{TotalAmount: d(10000), PaidAmount: d(4000), DueDate: yesterday},
			wantDue:    d(6000),
			wantStatus: PaymentStatusOverdue,
		},
		{
			name:       "fully paid with fine and discount",
			fee:        FeeDetail{TotalAmount: d(10000), PaidAmount: d(9700), Fine: d(200), Discount: d(500), DueDate: yesterday},
			wantDue:    d(0),
			wantStatus: PaymentStatusPaid,
		},
		{
			name:       "overpaid keeps negative due",
			fee:        FeeDetail{TotalAmount: d(1000), PaidAmount: d(1500), DueDate: yesterday},
			wantDue:    d(-500),
			wantStatus: PaymentStatusPaid,
		},
		{
			name:       "discount larger than total with nothing paid",
			fee:        FeeDetail{TotalAmount: d(100), Discount: d(300), DueDate: yesterday},
			wantDue:    d(-200),
			wantStatus: PaymentStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := tt.fee
			fee.Recompute(now)
			assert.True(t, tt.wantDue.Equal(fee.DueAmount), "due amount: want %s got %s", tt.wantDue, fee.DueAmount)
			assert.Equal(t, tt.wantStatus, fee.PaymentStatus)
		})
	}
}

func TestFeeDetail_RecomputeSettledIsNeverOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	fee := FeeDetail{TotalAmount: d(100), PaidAmount: d(100), Fine: d(50), Discount: d(50), DueDate: now.Add(-time.Hour)}
	fee.Recompute(now)
	assert.Equal(t, PaymentStatusPaid, fee.PaymentStatus)
	assert.True(t, fee.DueAmount.IsZero())
}

func TestComputeFeeDerivedFields_DoesNotMutateInput(t *testing.T) {
	now := time.Now()
	in := FeeDetail{TotalAmount: d(500), DueDate: now.Add(time.Hour)}
	out := ComputeFeeDerivedFields(in, now)

	assert.True(t, in.DueAmount.IsZero())
	assert.Equal(t, PaymentStatus(""), in.PaymentStatus)
	assert.True(t, d(500).Equal(out.DueAmount))
	assert.Equal(t, PaymentStatusPending, out.PaymentStatus)
}

func TestFeeDetail_RecomputeProperties(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		total := d(rapid.Int64Range(0, 1_000_000).Draw(t, "total"))
		paid := d(rapid.Int64Range(0, 1_000_000).Draw(t, "paid"))
		fine := d(rapid.Int64Range(0, 10_000).Draw(t, "fine"))
		discount := d(rapid.Int64Range(0, 10_000).Draw(t, "discount"))
		dueDate := base.Add(time.Duration(rapid.IntRange(-1000, 1000).Draw(t, "dueOffsetHours")) * time.Hour)

		fee := FeeDetail{TotalAmount: total, PaidAmount: paid, Fine: fine, Discount: discount, DueDate: dueDate}
		fee.Recompute(base)

		wantDue := total.Sub(paid).Add(fine).Sub(discount)
		if !fee.DueAmount.Equal(wantDue) {
			t.Fatalf("due %s, want %s", fee.DueAmount, wantDue)
		}

		overdue := wantDue.IsPositive() && base.After(dueDate)
		settlement := total.Add(fine).Sub(discount)

		var want PaymentStatus
		switch {
		case overdue:
			want = PaymentStatusOverdue
		case paid.IsZero():
			want = PaymentStatusPending
		case paid.GreaterThanOrEqual(settlement):
			want = PaymentStatusPaid
		default:
			want = PaymentStatusPartial
		}
		if fee.PaymentStatus != want {
			t.Fatalf("status %s, want %s", fee.PaymentStatus, want)
		}
	})
}

func TestFeeDetail_ApplyPayment(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	t.Run("overdue fee settled in full", func(t *testing.T) {
		fee := FeeDetail{RollNumber: "CS2024001", TotalAmount: d(10000), DueDate: now.Add(-24 * time.Hour), PaymentMode: PaymentModeNotPaid}
		fee.Recompute(now)
		require.Equal(t, PaymentStatusOverdue, fee.PaymentStatus)

		err := fee.ApplyPayment(Payment{Amount: d(10000), Mode: PaymentModeUPI}, now)
		require.NoError(t, err)

		assert.True(t, d(10000).Equal(fee.PaidAmount))
		assert.True(t, fee.DueAmount.IsZero())
		assert.Equal(t, PaymentStatusPaid, fee.PaymentStatus)
		assert.Equal(t, PaymentModeUPI, fee.PaymentMode)
		require.NotNil(t, fee.PaymentDate)
		assert.True(t, now.Equal(*fee.PaymentDate))
		assert.Equal(t, ReceiptNumber(now, "CS2024001"), fee.ReceiptNumber)
	})

	t.Run("partial payment has no receipt", func(t *testing.T) {
		fee := FeeDetail{RollNumber: "CS2024001", TotalAmount: d(10000), PaidAmount: d(1000), TransactionID: "TXN-1", Remarks: "first", DueDate: now.Add(24 * time.Hour)}

		err := fee.ApplyPayment(Payment{Amount: d(2000), Mode: PaymentModeCash}, now)
		require.NoError(t, err)

		assert.True(t, d(3000).Equal(fee.PaidAmount))
		assert.Equal(t, PaymentStatusPartial, fee.PaymentStatus)
		assert.Empty(t, fee.ReceiptNumber)
		assert.Equal(t, "TXN-1", fee.TransactionID)
		assert.Equal(t, "first", fee.Remarks)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		fee := FeeDetail{TotalAmount: d(100)}
		assert.ErrorIs(t, fee.ApplyPayment(Payment{Amount: d(0), Mode: PaymentModeCash}, now), ErrInvalidPaymentAmount)
		assert.ErrorIs(t, fee.ApplyPayment(Payment{Amount: d(-5), Mode: PaymentModeCash}, now), ErrInvalidPaymentAmount)
		assert.True(t, fee.PaidAmount.IsZero())
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		fee := FeeDetail{TotalAmount: d(100)}
		assert.ErrorIs(t, fee.ApplyPayment(Payment{Amount: d(10), Mode: PaymentModeNotPaid}, now), ErrInvalidPaymentMode)
	})
}

func TestFeeDetail_ApplyPaymentIsIncrement(t *testing.T) {
	now := time.Now()
	rapid.Check(t, func(t *rapid.T) {
		paid := d(rapid.Int64Range(0, 100_000).Draw(t, "paid"))
		amount := d(rapid.Int64Range(1, 100_000).Draw(t, "amount"))

		fee := FeeDetail{TotalAmount: d(50_000), PaidAmount: paid, DueDate: now}
		if err := fee.ApplyPayment(Payment{Amount: amount, Mode: PaymentModeCard}, now); err != nil {
			t.Fatal(err)
		}
		if !fee.PaidAmount.Equal(paid.Add(amount)) {
			t.Fatalf("paid %s, want %s", fee.PaidAmount, paid.Add(amount))
		}
	})
}

func TestFeeDetail_ValidateAmounts(t *testing.T) {
	cents := decimal.RequireFromString

	tests := []struct {
		name string
		fee  FeeDetail
		want error
	}{
		{"whole amounts", FeeDetail{TotalAmount: d(10)}, nil},
		{"two decimal places", FeeDetail{TotalAmount: cents("100.25"), Fine: cents("0.05")}, nil},
		{"trailing zeros are exact", FeeDetail{TotalAmount: cents("100.000")}, nil},
		{"largest storable amount", FeeDetail{TotalAmount: cents("9999999999.99")}, nil},
		{"negative fine", FeeDetail{TotalAmount: d(10), Fine: d(-1)}, ErrNegativeAmount},
		{"sub-cent total", FeeDetail{TotalAmount: cents("100.004"), PaidAmount: d(100)}, ErrAmountPrecision},
		{"sub-cent discount", FeeDetail{TotalAmount: d(100), Discount: cents("0.001")}, ErrAmountPrecision},
		{"total overflows the column", FeeDetail{TotalAmount: d(10_000_000_000)}, ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fee.ValidateAmounts()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestFeeDetail_ApplyPaymentRejectsUnstorableAmounts(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	fee := FeeDetail{TotalAmount: d(100), DueDate: now}
	err := fee.ApplyPayment(Payment{Amount: decimal.RequireFromString("99.999"), Mode: PaymentModeUPI}, now)
	assert.ErrorIs(t, err, ErrAmountPrecision)
	assert.True(t, fee.PaidAmount.IsZero())
	assert.Nil(t, fee.PaymentDate)

	fee = FeeDetail{TotalAmount: d(100), PaidAmount: decimal.RequireFromString("9999999999"), DueDate: now}
	err = fee.ApplyPayment(Payment{Amount: d(5), Mode: PaymentModeUPI}, now)
	assert.ErrorIs(t, err, ErrAmountTooLarge)
	assert.True(t, fee.PaidAmount.Equal(decimal.RequireFromString("9999999999")))
}

func TestValidationErrorsMatchErrValidation(t *testing.T) {
	for _, err := range []error{ErrInvalidPaymentAmount, ErrInvalidPaymentMode, ErrNegativeAmount, ErrAmountPrecision, ErrAmountTooLarge} {
		assert.ErrorIs(t, err, ErrValidation, err.Error())
	}
	fee := FeeDetail{TotalAmount: d(100)}
	assert.ErrorIs(t, fee.ApplyPayment(Payment{Amount: d(1), Mode: "Barter"}, time.Now()), ErrValidation)
}

// A fee that passes ValidateAmounts is stored without rounding, so reloading
// the row and recomputing yields the same derived fields.
func TestFeeDetail_RecomputeSurvivesStorage(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	cents := func(t *rapid.T, label string) decimal.Decimal {
		return decimal.New(rapid.Int64Range(0, 999_999_999_999).Draw(t, label), -AmountScale)
	}
	rapid.Check(t, func(t *rapid.T) {
		fee := FeeDetail{
			TotalAmount: cents(t, "total"),
			PaidAmount:  cents(t, "paid"),
			Fine:        cents(t, "fine"),
			Discount:    cents(t, "discount"),
			DueDate:     now.Add(time.Duration(rapid.IntRange(-48, 48).Draw(t, "hours")) * time.Hour),
		}
		if err := fee.ValidateAmounts(); err != nil {
			t.Fatal(err)
		}
		fee.Recompute(now)

		stored := FeeDetail{
			TotalAmount: fee.TotalAmount.Round(AmountScale),
			PaidAmount:  fee.PaidAmount.Round(AmountScale),
			Fine:        fee.Fine.Round(AmountScale),
			Discount:    fee.Discount.Round(AmountScale),
			DueDate:     fee.DueDate,
		}
		stored.Recompute(now)
		if !stored.DueAmount.Equal(fee.DueAmount.Round(AmountScale)) || !stored.DueAmount.Equal(fee.DueAmount) {
			t.Fatalf("due %s reloads as %s", fee.DueAmount, stored.DueAmount)
		}
		if stored.PaymentStatus != fee.PaymentStatus {
			t.Fatalf("status %s reloads as %s", fee.PaymentStatus, stored.PaymentStatus)
		}
	})
}

func TestFeeStats_Add(t *testing.T) {
	var stats FeeStats
	stats.Add(FeeDetail{TotalAmount: d(100), PaidAmount: d(100), PaymentStatus: PaymentStatusPaid})
	stats.Add(FeeDetail{TotalAmount: d(200), PaidAmount: d(50), DueAmount: d(150), PaymentStatus: PaymentStatusOverdue})

	assert.Equal(t, int64(2), stats.TotalFees)
	assert.Equal(t, int64(1), stats.PaidCount)
	assert.Equal(t, int64(1), stats.OverdueCount)
	assert.True(t, stats.Amounts.TotalAmount.Equal(d(300)))
	assert.True(t, stats.Amounts.TotalPaid.Equal(d(150)))
	assert.True(t, stats.Amounts.TotalDue.Equal(d(150)))
}
