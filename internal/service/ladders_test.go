package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coinladder/internal/models"
)

const rulesPayload = `[
	{"target_mode":"PERCENT_OF_AVERAGE","target_input":"50","sell_percentage":"25"},
	{"target_mode":"EXACT_PRICE","target_input":"45000","sell_percentage":"25"}
]`

func setupLadderTest(t *testing.T) (*HoldingService, *LadderService) {
	t.Helper()
	repo := setupRepo(t)
	return NewHoldingService(zap.NewNop(), repo), NewLadderService(zap.NewNop(), repo)
}

func seedHolding(t *testing.T, holdings *HoldingService) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := holdings.RecordTransaction(context.Background(), acquire("1", "30000", base))
	require.NoError(t, err)
	_, err = holdings.RecordTransaction(context.Background(), acquire("1", "10000", base.Add(time.Hour)))
	require.NoError(t, err)
}

func TestAttachLadder(t *testing.T) {
	holdings, ladders := setupLadderTest(t)
	seedHolding(t, holdings)
	ctx := context.Background()

	steps, err := ladders.AttachLadder(ctx, "owner-1", "BTC", "", []byte(rulesPayload))
	require.NoError(t, err)
	require.Len(t, steps, 2)

	// Derived against the 20k average and 2-unit snapshot.
	assert.True(t, steps[0].TargetPrice.Equal(decimal.RequireFromString("30000")))
	assert.True(t, steps[1].TargetPrice.Equal(decimal.RequireFromString("45000")))
	assert.True(t, steps[0].SellQuantity.Equal(decimal.RequireFromString("0.5")))

	got, warn, err := ladders.GetLadder(ctx, "owner-1", "BTC", "")
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Len(t, got, 2)
}

func TestAttachLadder_ReplacesPrevious(t *testing.T) {
	holdings, ladders := setupLadderTest(t)
	seedHolding(t, holdings)
	ctx := context.Background()

	_, err := ladders.AttachLadder(ctx, "owner-1", "BTC", "", []byte(rulesPayload))
	require.NoError(t, err)

	steps, err := ladders.AttachLadder(ctx, "owner-1", "BTC", "",
		[]byte(`[{"target_mode":"EXACT_PRICE","target_input":"50000","sell_percentage":"100"}]`))
	require.NoError(t, err)
	require.Len(t, steps, 1)

	got, _, err := ladders.GetLadder(ctx, "owner-1", "BTC", "")
	require.NoError(t, err)
	assert.Len(t, got, 1, "attaching replaces the old ladder wholesale")
}

func TestAttachLadder_Rejections(t *testing.T) {
	holdings, ladders := setupLadderTest(t)
	seedHolding(t, holdings)
	ctx := context.Background()

	t.Run("MalformedPayload", func(t *testing.T) {
		_, err := ladders.AttachLadder(ctx, "owner-1", "BTC", "", []byte(`{"oops`))
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("NoHolding", func(t *testing.T) {
		_, err := ladders.AttachLadder(ctx, "owner-1", "DOGE", "", []byte(rulesPayload))
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestGetLadder_ReportsStaleness(t *testing.T) {
	holdings, ladders := setupLadderTest(t)
	seedHolding(t, holdings)
	ctx := context.Background()

	steps, err := ladders.AttachLadder(ctx, "owner-1", "BTC", "", []byte(rulesPayload))
	require.NoError(t, err)
	originalSell := steps[0].SellQuantity

	// A new acquisition moves the holding after the ladder was built.
	_, err = holdings.RecordTransaction(ctx, acquire("1", "25000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	got, warn, err := ladders.GetLadder(ctx, "owner-1", "BTC", "")
	require.NoError(t, err)
	require.NotNil(t, warn, "expected a stale ladder warning")
	assert.True(t, warn.SnapshotQuantity.Equal(decimal.RequireFromString("2")))
	assert.True(t, warn.CurrentQuantity.Equal(decimal.RequireFromString("3")))

	// The derived numbers are served unchanged; rebuild is the caller's call.
	assert.True(t, got[0].SellQuantity.Equal(originalSell))
}

func TestObservePrice_PersistsTransitions(t *testing.T) {
	holdings, ladders := setupLadderTest(t)
	seedHolding(t, holdings)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := ladders.AttachLadder(ctx, "owner-1", "BTC", "", []byte(rulesPayload))
	require.NoError(t, err)

	changed, err := ladders.ObservePrice(ctx, "owner-1", "BTC", "", decimal.RequireFromString("31000"), now)
	require.NoError(t, err)
	require.Len(t, changed, 1, "only the 30k step crosses at 31k")
	assert.Equal(t, models.StepTriggered, changed[0].State)

	// Observation is idempotent once triggered.
	changed, err = ladders.ObservePrice(ctx, "owner-1", "BTC", "", decimal.RequireFromString("31000"), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, changed)

	got, _, err := ladders.GetLadder(ctx, "owner-1", "BTC", "")
	require.NoError(t, err)
	assert.Equal(t, models.StepTriggered, got[0].State)
	assert.Equal(t, models.StepPending, got[1].State)
}

func TestConfirmStep(t *testing.T) {
	holdings, ladders := setupLadderTest(t)
	seedHolding(t, holdings)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	steps, err := ladders.AttachLadder(ctx, "owner-1", "BTC", "", []byte(rulesPayload))
	require.NoError(t, err)

	// Pending step cannot be confirmed.
	_, err = ladders.ConfirmStep(ctx, steps[0].ID, now)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = ladders.ObservePrice(ctx, "owner-1", "BTC", "", decimal.RequireFromString("31000"), now)
	require.NoError(t, err)

	done, err := ladders.ConfirmStep(ctx, steps[0].ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.StepDone, done.State)

	t.Run("UnknownStep", func(t *testing.T) {
		_, err := ladders.ConfirmStep(ctx, uuid.New(), now)
		require.ErrorAs(t, err, &verr)
	})
}
