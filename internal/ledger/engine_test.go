package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinladder/internal/models"
)

func tx(kind models.TransactionKind, qty, invested, unitPrice string, at time.Time) models.Transaction {
	return models.Transaction{
		OwnerID:        "owner-1",
		AssetSymbol:    "BTC",
		Kind:           kind,
		Quantity:       decimal.RequireFromString(qty),
		AmountInvested: decimal.RequireFromString(invested),
		UnitPrice:      decimal.RequireFromString(unitPrice),
		OccurredAt:     at,
	}
}

func TestComputeHolding_AveragePrice(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx(models.KindAcquire, "1", "30000", "30000", base),
		tx(models.KindAcquire, "1", "10000", "10000", base.Add(time.Hour)),
	}

	h, err := ComputeHolding(txs)
	require.NoError(t, err)

	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("2")), "quantity = %s", h.Quantity)
	assert.True(t, h.InvestedAmount.Equal(decimal.RequireFromString("40000")), "invested = %s", h.InvestedAmount)
	assert.True(t, h.AveragePrice.Equal(decimal.RequireFromString("20000")), "avg = %s", h.AveragePrice)
}

func TestComputeHolding_ProportionalReduction(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx(models.KindAcquire, "1", "30000", "30000", base),
		tx(models.KindAcquire, "1", "10000", "10000", base.Add(time.Hour)),
		// Dispose with an explicit invested amount: that amount is the
		// reduction basis and the average price must not move.
		tx(models.KindDispose, "1", "20000", "25000", base.Add(2*time.Hour)),
	}

	h, err := ComputeHolding(txs)
	require.NoError(t, err)

	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("1")))
	assert.True(t, h.InvestedAmount.Equal(decimal.RequireFromString("20000")))
	assert.True(t, h.AveragePrice.Equal(decimal.RequireFromString("20000")))
}

func TestComputeHolding_ReductionFallbackToUnitPrice(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx(models.KindAcquire, "2", "40000", "20000", base),
		// No invested amount on the dispose: the reduction basis falls back
		// to quantity*unitPrice, which here drags the average price down.
		tx(models.KindDispose, "1", "0", "25000", base.Add(time.Hour)),
	}

	h, err := ComputeHolding(txs)
	require.NoError(t, err)

	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("1")))
	assert.True(t, h.InvestedAmount.Equal(decimal.RequireFromString("15000")), "invested = %s", h.InvestedAmount)
	assert.True(t, h.AveragePrice.Equal(decimal.RequireFromString("15000")))
}

func TestComputeHolding_AllKindsAccumulate(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx(models.KindAcquire, "1", "100", "100", base),
		tx(models.KindTransferIn, "1", "50", "50", base.Add(time.Hour)),
		tx(models.KindStake, "1", "0", "0", base.Add(2*time.Hour)),
		tx(models.KindReward, "0.5", "0", "0", base.Add(3*time.Hour)),
	}

	h, err := ComputeHolding(txs)
	require.NoError(t, err)

	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("3.5")))
	assert.True(t, h.InvestedAmount.Equal(decimal.RequireFromString("150")))
}

func TestComputeHolding_ClampsAtZero(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx(models.KindAcquire, "1", "1000", "1000", base),
		tx(models.KindTransferOut, "5", "9000", "1000", base.Add(time.Hour)),
	}

	h, err := ComputeHolding(txs)
	require.NoError(t, err)

	assert.True(t, h.Quantity.IsZero(), "quantity = %s", h.Quantity)
	assert.True(t, h.InvestedAmount.IsZero(), "invested = %s", h.InvestedAmount)
	assert.True(t, h.AveragePrice.IsZero(), "average price must be zero for an empty position")
}

func TestComputeHolding_Deterministic(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx(models.KindAcquire, "1.23456789", "37037.03", "30000", base),
		tx(models.KindDispose, "0.5", "0", "31000", base.Add(time.Hour)),
		tx(models.KindReward, "0.001", "0", "0", base.Add(2*time.Hour)),
	}

	first, err := ComputeHolding(txs)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ComputeHolding(txs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeHolding_TimestampTiesKeepInsertionOrder(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Same timestamp: the acquire was inserted first so the dispose reduces
	// an existing position instead of clamping against an empty one.
	txs := []models.Transaction{
		tx(models.KindAcquire, "2", "40000", "20000", at),
		tx(models.KindDispose, "1", "20000", "20000", at),
	}

	h, err := ComputeHolding(txs)
	require.NoError(t, err)

	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("1")))
	assert.True(t, h.InvestedAmount.Equal(decimal.RequireFromString("20000")))
}

func TestComputeHolding_UnsortedInputIsSorted(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Dispose appears first in the slice but occurred last.
	txs := []models.Transaction{
		tx(models.KindDispose, "1", "20000", "20000", base.Add(2*time.Hour)),
		tx(models.KindAcquire, "1", "30000", "30000", base),
		tx(models.KindAcquire, "1", "10000", "10000", base.Add(time.Hour)),
	}

	h, err := ComputeHolding(txs)
	require.NoError(t, err)

	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("1")))
	assert.True(t, h.AveragePrice.Equal(decimal.RequireFromString("20000")))
}

func TestComputeHolding_RejectsBadInput(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("NegativeQuantity", func(t *testing.T) {
		bad := tx(models.KindAcquire, "1", "100", "100", base)
		bad.Quantity = decimal.RequireFromString("-1")

		_, err := ComputeHolding([]models.Transaction{bad})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "quantity", verr.Field)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		bad := tx("AIRDROP", "1", "100", "100", base)

		_, err := ComputeHolding([]models.Transaction{bad})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "kind", verr.Field)
	})

	t.Run("EmptySlice", func(t *testing.T) {
		_, err := ComputeHolding(nil)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("MixedScope", func(t *testing.T) {
		a := tx(models.KindAcquire, "1", "100", "100", base)
		b := tx(models.KindAcquire, "1", "100", "100", base)
		b.AssetSymbol = "ETH"

		_, err := ComputeHolding([]models.Transaction{a, b})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestComputeHolding_NonNegativity(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sequences := [][]models.Transaction{
		{tx(models.KindDispose, "3", "0", "100", base)},
		{
			tx(models.KindAcquire, "1", "100", "100", base),
			tx(models.KindDispose, "2", "500", "100", base.Add(time.Hour)),
			tx(models.KindDispose, "2", "500", "100", base.Add(2*time.Hour)),
		},
		{
			tx(models.KindReward, "1", "0", "0", base),
			tx(models.KindTransferOut, "0.5", "0", "50", base.Add(time.Hour)),
		},
	}

	for _, seq := range sequences {
		h, err := ComputeHolding(seq)
		require.NoError(t, err)
		assert.False(t, h.Quantity.IsNegative())
		assert.False(t, h.InvestedAmount.IsNegative())
	}
}
