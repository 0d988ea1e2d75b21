package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &Promotion{}, &Usage{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParams{DB: db, Node: node}), db
}

func requireStatus(t *testing.T, err error, status errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, status, be.Status())
}

func createActive(t *testing.T, svc *Service, req CreatePromotionRequest) *Promotion {
	t.Helper()
	now := time.Now()
	if req.StartsAt.IsZero() {
		req.StartsAt = now.Add(-time.Hour)
	}
	if req.EndsAt.IsZero() {
		req.EndsAt = now.Add(time.Hour)
	}
	p, err := svc.CreatePromotion(context.Background(), req)
	require.NoError(t, err)
	return p
}

func TestCreatePromotionValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	_, err := svc.CreatePromotion(ctx, CreatePromotionRequest{
		Name:     "backwards",
		Type:     TypeAutomatic,
		StartsAt: now,
		EndsAt:   now.Add(-time.Hour),
	})
	requireStatus(t, err, errutil.StatusBadRequest)

	_, err = svc.CreatePromotion(ctx, CreatePromotionRequest{
		Name:     "bad type",
		Type:     Type("weekly"),
		StartsAt: now,
		EndsAt:   now.Add(time.Hour),
	})
	requireStatus(t, err, errutil.StatusBadRequest)
}

func TestActiveAtWindowIsHalfOpen(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	p := &Promotion{StartsAt: start, EndsAt: end}

	require.True(t, p.ActiveAt(start))
	require.True(t, p.ActiveAt(end.Add(-time.Second)))
	require.False(t, p.ActiveAt(end))
	require.False(t, p.ActiveAt(start.Add(-time.Second)))
}

func TestBonusFor(t *testing.T) {
	p := &Promotion{
		Rate:   decimal.NewNullDecimal(decimal.RequireFromString("0.01")),
		Points: 5,
	}
	// floor(0.01 * 1550 cents) + 5 = 15 + 5
	require.Equal(t, int64(20), p.BonusFor(decimal.RequireFromString("15.50")))

	flat := &Promotion{Points: 7}
	require.Equal(t, int64(7), flat.BonusFor(decimal.NewFromInt(100)))
}

func TestAssignOneTime(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p := createActive(t, svc, CreatePromotionRequest{Name: "welcome", Type: TypeOneTime, Points: 10})

	u, err := svc.Assign(ctx, p.ID, "m1")
	require.NoError(t, err)
	require.False(t, u.Used)

	_, err = svc.Assign(ctx, p.ID, "m1")
	requireStatus(t, err, errutil.StatusConflict)

	auto := createActive(t, svc, CreatePromotionRequest{Name: "auto", Type: TypeAutomatic})
	_, err = svc.Assign(ctx, auto.ID, "m1")
	requireStatus(t, err, errutil.StatusBadRequest)
}

func TestValidateAllOrNothing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	good := createActive(t, svc, CreatePromotionRequest{Name: "good", Type: TypeAutomatic, Points: 10})

	spend := decimal.NewFromInt(20)
	now := time.Now()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Validate(ctx, tx, "m1", []string{good.ID, "missing"}, &spend, now)
		return err
	})
	requireStatus(t, err, errutil.StatusInvalidPromotion)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Validate(ctx, tx, "m1", []string{good.ID, good.ID}, &spend, now)
		return err
	})
	requireStatus(t, err, errutil.StatusInvalidPromotion)

	err = db.Transaction(func(tx *gorm.DB) error {
		applied, err := svc.Validate(ctx, tx, "m1", []string{good.ID}, &spend, now)
		require.NoError(t, err)
		require.Len(t, applied, 1)
		require.Empty(t, applied[0].UsageID)
		return nil
	})
	require.NoError(t, err)
}

func TestValidateExpiredPromotion(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	expired, err := svc.CreatePromotion(ctx, CreatePromotionRequest{
		Name:     "expired",
		Type:     TypeAutomatic,
		StartsAt: now.Add(-2 * time.Hour),
		EndsAt:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	spend := decimal.NewFromInt(20)
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Validate(ctx, tx, "m1", []string{expired.ID}, &spend, now)
		return err
	})
	requireStatus(t, err, errutil.StatusInvalidPromotion)
}

func TestValidateOneTimeUsage(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	p := createActive(t, svc, CreatePromotionRequest{Name: "once", Type: TypeOneTime, Points: 10})

	spend := decimal.NewFromInt(20)
	now := time.Now()

	// Not assigned yet.
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Validate(ctx, tx, "m1", []string{p.ID}, &spend, now)
		return err
	})
	requireStatus(t, err, errutil.StatusInvalidPromotion)

	u, err := svc.Assign(ctx, p.ID, "m1")
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		applied, err := svc.Validate(ctx, tx, "m1", []string{p.ID}, &spend, now)
		require.NoError(t, err)
		require.Equal(t, u.ID, applied[0].UsageID)
		return nil
	})
	require.NoError(t, err)

	// Consumed usage no longer validates.
	require.NoError(t, db.Model(&Usage{}).Where("id = ?", u.ID).Update("used", true).Error)
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Validate(ctx, tx, "m1", []string{p.ID}, &spend, now)
		return err
	})
	requireStatus(t, err, errutil.StatusInvalidPromotion)
}

func TestValidateNilSpendSkipsMinimum(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	p := createActive(t, svc, CreatePromotionRequest{
		Name:        "min spend",
		Type:        TypeAutomatic,
		MinSpending: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Points:      10,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		applied, err := svc.Validate(ctx, tx, "m1", []string{p.ID}, nil, time.Now())
		require.NoError(t, err)
		require.Len(t, applied, 1)
		return nil
	})
	require.NoError(t, err)
}
