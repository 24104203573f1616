package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 13:00-17:00，利雅得时区
func afternoonWindow() PackageTimeWindow {
	return PackageTimeWindow{StartMinute: 13 * 60, EndMinute: 17 * 60, Timezone: "Asia/Riyadh"}
}

func riyadhTime(hour, minute int) time.Time {
	loc, _ := time.LoadLocation("Asia/Riyadh")
	return time.Date(2025, 6, 15, hour, minute, 0, 0, loc)
}

func TestTimeWindowContains(t *testing.T) {
	w := afternoonWindow()

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"起始边界含", riyadhTime(13, 0), true},
		{"时段中间", riyadhTime(15, 30), true},
		{"结束前一分钟", riyadhTime(16, 59), true},
		{"结束边界不含", riyadhTime(17, 0), false},
		{"时段之前", riyadhTime(12, 59), false},
		{"时段之后", riyadhTime(18, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.Contains(tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeWindowContainsProjectsTimezone(t *testing.T) {
	w := afternoonWindow()

	// UTC 11:00 = 利雅得 14:00，在时段内
	inWindow, err := w.Contains(time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, inWindow)

	// UTC 15:00 = 利雅得 18:00，在时段外
	inWindow, err = w.Contains(time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, inWindow)
}

func TestTimeWindowContainsBadTimezone(t *testing.T) {
	w := PackageTimeWindow{StartMinute: 0, EndMinute: 1440, Timezone: "Mars/Olympus"}
	_, err := w.Contains(time.Now())
	assert.Error(t, err)
}

func TestInRedemptionWindow(t *testing.T) {
	t.Run("未配置时段全天可核销", func(t *testing.T) {
		pkg := &Package{}
		ok, err := pkg.InRedemptionWindow(riyadhTime(3, 0))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("多时段命中任意一个即可", func(t *testing.T) {
		pkg := &Package{TimeWindows: []PackageTimeWindow{
			{StartMinute: 9 * 60, EndMinute: 11 * 60, Timezone: "Asia/Riyadh"},
			afternoonWindow(),
		}}

		ok, err := pkg.InRedemptionWindow(riyadhTime(10, 0))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = pkg.InRedemptionWindow(riyadhTime(12, 0))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestWalletEffectiveStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	days30 := 30

	t.Run("永久有效", func(t *testing.T) {
		w := &UserPackage{Status: WalletStatusActive, PurchasedAt: now.AddDate(-1, 0, 0)}
		assert.Equal(t, WalletStatusActive, w.EffectiveStatus(nil, now))
	})

	t.Run("有效期内", func(t *testing.T) {
		w := &UserPackage{Status: WalletStatusActive, PurchasedAt: now.AddDate(0, 0, -10)}
		assert.Equal(t, WalletStatusActive, w.EffectiveStatus(&days30, now))
	})

	t.Run("超期视为过期", func(t *testing.T) {
		w := &UserPackage{Status: WalletStatusActive, PurchasedAt: now.AddDate(0, 0, -31)}
		assert.Equal(t, WalletStatusExpired, w.EffectiveStatus(&days30, now))
	})

	t.Run("过期是终态不会复活", func(t *testing.T) {
		w := &UserPackage{Status: WalletStatusExpired, PurchasedAt: now}
		assert.Equal(t, WalletStatusExpired, w.EffectiveStatus(nil, now))
	})

	t.Run("待确认状态不受有效期影响", func(t *testing.T) {
		w := &UserPackage{Status: WalletStatusPending, PurchasedAt: now.AddDate(0, 0, -31)}
		assert.Equal(t, WalletStatusPending, w.EffectiveStatus(&days30, now))
	})
}

func TestStatusMachines(t *testing.T) {
	assert.True(t, CanTransactionTransitionTo(TransactionStatusPending, TransactionStatusCompleted))
	assert.True(t, CanTransactionTransitionTo(TransactionStatusPending, TransactionStatusFailed))
	assert.True(t, CanTransactionTransitionTo(TransactionStatusCompleted, TransactionStatusRefunded))
	assert.False(t, CanTransactionTransitionTo(TransactionStatusCompleted, TransactionStatusPending))
	assert.False(t, CanTransactionTransitionTo(TransactionStatusFailed, TransactionStatusCompleted))

	assert.True(t, CanPaymentTransitionTo(PaymentStatusDue, PaymentStatusPaid))
	assert.True(t, CanPaymentTransitionTo(PaymentStatusDue, PaymentStatusCancelled))
	assert.False(t, CanPaymentTransitionTo(PaymentStatusPaid, PaymentStatusDue))
	assert.False(t, CanPaymentTransitionTo(PaymentStatusCancelled, PaymentStatusDue))
}
