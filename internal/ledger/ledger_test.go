package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(t *testing.T, typ TransactionType, v string) FundTransaction {
	t.Helper()
	a, err := ParseAmount(CurrencyUSD, v)
	require.NoError(t, err)
	return FundTransaction{ID: uuid.New(), Type: typ, Amount: a}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"25.50", "25.50", true},
		{"30", "30.00", true},
		{" 0.01 ", "0.01", true},
		{"1.500", "1.50", true},
		{"9999999999.99", "9999999999.99", true},
		{"0", "", false},
		{"-5", "", false},
		{"1.234", "", false},
		{"10000000000.00", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		a, err := ParseAmount(CurrencyUSD, c.in)
		if !c.ok {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, FormatAmount(a), c.in)
	}
}

func TestParseAmount_ScaleZeroCurrency(t *testing.T) {
	a, err := ParseAmount(CurrencyVND, "150000")
	require.NoError(t, err)
	assert.Equal(t, "150000.00", FormatAmount(a))
	assert.Equal(t, "VND", a.Curr().Code())
}

func TestTally_OrderIndependent(t *testing.T) {
	rows := []FundTransaction{
		row(t, TxFundIn, "100.00"),
		row(t, TxDeposit, "0.10"),
		row(t, TxExpense, "25.50"),
		row(t, TxFundOut, "0.20"),
		row(t, TxWithdrawal, "4.40"),
	}
	want := "70.00"
	for shift := 0; shift < len(rows); shift++ {
		rotated := append(append([]FundTransaction{}, rows[shift:]...), rows[:shift]...)
		totals, err := Tally(CurrencyUSD, rotated)
		require.NoError(t, err)
		bal, err := totals.Balance()
		require.NoError(t, err)
		assert.Equal(t, want, FormatAmount(bal))
	}
}

func TestTally_EmptyAndUnknown(t *testing.T) {
	totals, err := Tally(CurrencyIDR, nil)
	require.NoError(t, err)
	bal, err := totals.Balance()
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	_, err = Tally(CurrencyUSD, []FundTransaction{row(t, "refund", "1.00")})
	assert.Error(t, err)
}

func TestTally_NegativeAllowed(t *testing.T) {
	totals, err := Tally(CurrencyUSD, []FundTransaction{row(t, TxExpense, "12.34")})
	require.NoError(t, err)
	bal, err := totals.Balance()
	require.NoError(t, err)
	assert.Equal(t, "-12.34", FormatAmount(bal))
}

func TestStateOf(t *testing.T) {
	for in, want := range map[string]BalanceState{
		"0":        BalanceOK,
		"12.00":    BalanceOK,
		"-0.01":    BalanceNegative,
		"-1000.00": BalanceNegative,
		"-1000.01": BalanceSignificantlyNegative,
	} {
		a := mustAmount(t, in)
		assert.Equal(t, want, StateOf(a), in)
	}
}

func mustAmount(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.ParseAmount("USD", s)
	require.NoError(t, err)
	return a
}

func TestTransactionType(t *testing.T) {
	assert.True(t, TxDeposit.IsCredit())
	assert.True(t, TxWithdrawal.IsDebit())
	assert.False(t, TxExpense.IsCredit())
	assert.Equal(t, TxFundIn, TxDeposit.Canonical())
	assert.Equal(t, TxFundOut, TxWithdrawal.Canonical())
	assert.Equal(t, TxExpense, TxExpense.Canonical())
}

func TestNewestFirst(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hist := []ExpenseEdit{
		{Reason: "first", CreatedAt: t0},
		{Reason: "second", CreatedAt: t0.Add(time.Hour)},
		{Reason: "third", CreatedAt: t0.Add(2 * time.Hour)},
	}
	got := NewestFirst(hist)
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Edit.Reason)
	assert.Equal(t, 3, got[0].Number)
	assert.Equal(t, "first", got[2].Edit.Reason)
	assert.Equal(t, 1, got[2].Number)
	assert.Equal(t, "first", hist[0].Reason, "input is not reordered")
}

func TestParseCurrencyAndCategory(t *testing.T) {
	c, ok := ParseCurrency(" php ")
	assert.True(t, ok)
	assert.Equal(t, CurrencyPHP, c)
	_, ok = ParseCurrency("EUR")
	assert.False(t, ok)

	assert.True(t, Category("Meals").IsCanonical())
	assert.False(t, Category("Food").IsCanonical())
}
