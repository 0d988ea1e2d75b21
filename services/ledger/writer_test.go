package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/services/event"
	"rewards-controlplane/services/promotion"
	"rewards-controlplane/services/testutil"
)

func newTestWriter(t *testing.T) (*Writer, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&promotion.Usage{},
		&event.Event{},
		&Transaction{},
		&Balance{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewWriter(node), db
}

func applyStatus(t *testing.T, err error) errutil.CoreStatus {
	t.Helper()
	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	return be.Status()
}

func TestLockBalanceCreatesZeroRow(t *testing.T) {
	w, db := newTestWriter(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		b, err := w.LockBalance(tx, "m1")
		require.NoError(t, err)
		require.Zero(t, b.Balance)
		return nil
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&Balance{}).Where("member_id = ?", "m1").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestApplyRejectsNegativeBalance(t *testing.T) {
	w, db := newTestWriter(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		return w.Apply(tx, WriteSet{BalanceDeltas: map[string]int64{"m1": -10}})
	})
	require.Equal(t, errutil.StatusInsufficientBalance, applyStatus(t, err))

	err = db.Transaction(func(tx *gorm.DB) error {
		return w.Apply(tx, WriteSet{
			BalanceDeltas: map[string]int64{"m1": -10},
			AllowNegative: true,
		})
	})
	require.NoError(t, err)

	var b Balance
	require.NoError(t, db.First(&b, "member_id = ?", "m1").Error)
	require.Equal(t, int64(-10), b.Balance)
}

func TestApplyConsumesUsageOnce(t *testing.T) {
	w, db := newTestWriter(t)

	usage := &promotion.Usage{ID: "u1", PromotionID: "p1", MemberID: "m1"}
	require.NoError(t, db.Create(usage).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return w.Apply(tx, WriteSet{ConsumeUsageIDs: []string{"u1"}})
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return w.Apply(tx, WriteSet{ConsumeUsageIDs: []string{"u1"}})
	})
	require.Equal(t, errutil.StatusInvalidPromotion, applyStatus(t, err))
}

func TestApplyGuardsPoolDecrement(t *testing.T) {
	w, db := newTestWriter(t)

	e := &event.Event{
		ID:           "ev1",
		Name:         "pool test",
		StartsAt:     time.Now(),
		EndsAt:       time.Now().Add(time.Hour),
		Capacity:     5,
		PointsRemain: 40,
	}
	require.NoError(t, db.Create(e).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return w.Apply(tx, WriteSet{Pool: &PoolDelta{EventID: "ev1", Points: 50}})
	})
	require.Equal(t, errutil.StatusCapacityExceeded, applyStatus(t, err))

	err = db.Transaction(func(tx *gorm.DB) error {
		return w.Apply(tx, WriteSet{Pool: &PoolDelta{EventID: "ev1", Points: 40}})
	})
	require.NoError(t, err)

	var got event.Event
	require.NoError(t, db.First(&got, "id = ?", "ev1").Error)
	require.Zero(t, got.PointsRemain)
	require.Equal(t, int64(40), got.PointsAwarded)
}
