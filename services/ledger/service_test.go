package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/db/pagination"
	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/services/event"
	"rewards-controlplane/services/member"
	"rewards-controlplane/services/promotion"
	"rewards-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type seqStub struct {
	n atomic.Int64
}

func (s *seqStub) NextTransactionCode(ctx context.Context) (string, error) {
	return fmt.Sprintf("TXN-TEST-%06d", s.n.Add(1)), nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&member.Member{},
		&promotion.Promotion{},
		&promotion.Usage{},
		&event.Event{},
		&event.Guest{},
		&Transaction{},
		&Balance{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	promoSvc := promotion.NewService(promotion.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{
		DB:         db,
		Node:       node,
		Sequence:   &seqStub{},
		Promotions: promoSvc,
	})
	return svc, db
}

func seedMember(t *testing.T, db *gorm.DB, id string, role member.Role, verified, suspicious bool) *member.Member {
	t.Helper()
	m := &member.Member{
		ID:         id,
		Name:       id,
		Email:      id + "@example.com",
		Verified:   verified,
		Suspicious: suspicious,
		Role:       role,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func requireStatus(t *testing.T, err error, status errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, status, be.Status())
}

func currentBalance(t *testing.T, svc *Service, memberID string) int64 {
	t.Helper()
	b, err := svc.GetBalance(context.Background(), memberID)
	require.NoError(t, err)
	return b.Balance
}

func TestRecordPurchaseBasic(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	trx, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("20.00"),
		Remark:    "groceries",
	})
	require.NoError(t, err)
	require.Equal(t, TypePurchase, trx.Type)
	require.Equal(t, int64(80), trx.Amount)
	require.False(t, trx.Suspicious)
	require.NotEmpty(t, trx.Code)
	require.Equal(t, "c1", trx.CreatedBy)

	require.Equal(t, int64(80), currentBalance(t, svc, "m1"))
}

func TestRecordPurchaseFloorsBasePoints(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	// 4 points per dollar, floored: $5.30 -> 21 points, never 21.2.
	trx, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("5.30"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(21), trx.Amount)
}

func TestRecordPurchaseOneTimePromotion(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	now := time.Now()
	promo, err := svc.promotions.CreatePromotion(ctx, promotion.CreatePromotionRequest{
		Name:        "welcome bonus",
		Type:        promotion.TypeOneTime,
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(time.Hour),
		MinSpending: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Points:      100,
	})
	require.NoError(t, err)
	_, err = svc.promotions.Assign(ctx, promo.ID, "m1")
	require.NoError(t, err)

	trx, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:     "m1",
		CashierID:    "c1",
		Spend:        decimal.RequireFromString("15.00"),
		PromotionIDs: []string{promo.ID},
	})
	require.NoError(t, err)
	require.Equal(t, int64(160), trx.Amount)
	require.Equal(t, []string{promo.ID}, trx.AppliedPromotionIDs())
	require.Equal(t, int64(160), currentBalance(t, svc, "m1"))

	var usage promotion.Usage
	require.NoError(t, db.Where("promotion_id = ? AND member_id = ?", promo.ID, "m1").First(&usage).Error)
	require.True(t, usage.Used)
	require.NotNil(t, usage.UsedAt)

	// Second citation fails whole-request, nothing moves.
	_, err = svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:     "m1",
		CashierID:    "c1",
		Spend:        decimal.RequireFromString("15.00"),
		PromotionIDs: []string{promo.ID},
	})
	requireStatus(t, err, errutil.StatusInvalidPromotion)
	require.Equal(t, int64(160), currentBalance(t, svc, "m1"))
}

func TestRecordPurchaseRateBonus(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	now := time.Now()
	promo, err := svc.promotions.CreatePromotion(ctx, promotion.CreatePromotionRequest{
		Name:     "double saturday",
		Type:     promotion.TypeAutomatic,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		Rate:     decimal.NewNullDecimal(decimal.RequireFromString("0.01")),
	})
	require.NoError(t, err)

	// base floor(10.00*4)=40, bonus floor(0.01*1000 cents)=10
	trx, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:     "m1",
		CashierID:    "c1",
		Spend:        decimal.RequireFromString("10.00"),
		PromotionIDs: []string{promo.ID},
	})
	require.NoError(t, err)
	require.Equal(t, int64(50), trx.Amount)
}

func TestRecordPurchaseMinimumSpendNotMet(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	now := time.Now()
	promo, err := svc.promotions.CreatePromotion(ctx, promotion.CreatePromotionRequest{
		Name:        "big spender",
		Type:        promotion.TypeAutomatic,
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(time.Hour),
		MinSpending: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		Points:      500,
	})
	require.NoError(t, err)

	_, err = svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:     "m1",
		CashierID:    "c1",
		Spend:        decimal.RequireFromString("20.00"),
		PromotionIDs: []string{promo.ID},
	})
	requireStatus(t, err, errutil.StatusMinimumSpendNotMet)

	// Failed validation leaves no trace.
	var count int64
	require.NoError(t, db.Model(&Transaction{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, currentBalance(t, svc, "m1"))
}

func TestRecordPurchaseUnknownMember(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	_, err := svc.RecordPurchase(context.Background(), RecordPurchaseRequest{
		MemberID:  "ghost",
		CashierID: "c1",
		Spend:     decimal.NewFromInt(10),
	})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestRecordPurchaseRequiresCashierRole(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "m2", member.RoleRegular, true, false)

	_, err := svc.RecordPurchase(context.Background(), RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "m2",
		Spend:     decimal.NewFromInt(10),
	})
	requireStatus(t, err, errutil.StatusUnauthorized)
}

func TestRecordPurchaseSuspiciousCashier(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, true)

	trx, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("20.00"),
	})
	require.NoError(t, err)
	// Full earned amount is recorded for audit, balance stays untouched.
	require.Equal(t, int64(80), trx.Amount)
	require.True(t, trx.Suspicious)
	require.Zero(t, currentBalance(t, svc, "m1"))

	// Clearing the flag releases exactly the recorded amount.
	cleared, err := svc.SetSuspicious(ctx, trx.ID, false)
	require.NoError(t, err)
	require.False(t, cleared.Suspicious)
	require.Equal(t, int64(80), currentBalance(t, svc, "m1"))
}

func TestRecordAdjustment(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)
	seedMember(t, db, "mgr", member.RoleManager, true, false)

	purchase, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(40), currentBalance(t, svc, "m1"))

	adj, err := svc.RecordAdjustment(ctx, RecordAdjustmentRequest{
		MemberID:  "m1",
		Delta:     -100,
		RelatedID: purchase.ID,
		Remark:    "over-redemption correction",
		ActorID:   "mgr",
	})
	require.NoError(t, err)
	require.Equal(t, TypeAdjustment, adj.Type)
	require.Equal(t, purchase.ID, *adj.RelatedID)
	// Corrections may push the balance below zero.
	require.Equal(t, int64(-60), currentBalance(t, svc, "m1"))
}

func TestRecordAdjustmentRelatedNotFound(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "mgr", member.RoleManager, true, false)

	_, err := svc.RecordAdjustment(context.Background(), RecordAdjustmentRequest{
		MemberID:  "m1",
		Delta:     10,
		RelatedID: "missing",
		ActorID:   "mgr",
	})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestTransfer(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "alice", member.RoleRegular, true, false)
	seedMember(t, db, "bob", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	_, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "alice",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)

	before := currentBalance(t, svc, "alice") + currentBalance(t, svc, "bob")

	debit, credit, err := svc.Transfer(ctx, TransferRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Amount:      40,
		Remark:      "thanks",
	})
	require.NoError(t, err)
	require.Equal(t, int64(-40), debit.Amount)
	require.Equal(t, int64(40), credit.Amount)
	require.Equal(t, "bob", *debit.RelatedID)
	require.Equal(t, "alice", *credit.RelatedID)
	require.Equal(t, "alice", credit.CreatedBy)

	require.Equal(t, int64(60), currentBalance(t, svc, "alice"))
	require.Equal(t, int64(40), currentBalance(t, svc, "bob"))
	require.Equal(t, before, currentBalance(t, svc, "alice")+currentBalance(t, svc, "bob"))
}

func TestTransferUnverifiedSender(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "alice", member.RoleRegular, false, false)
	seedMember(t, db, "bob", member.RoleRegular, true, false)

	_, _, err := svc.Transfer(context.Background(), TransferRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Amount:      10,
	})
	requireStatus(t, err, errutil.StatusUnverified)
}

func TestTransferInsufficientBalance(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "alice", member.RoleRegular, true, false)
	seedMember(t, db, "bob", member.RoleRegular, true, false)

	_, _, err := svc.Transfer(context.Background(), TransferRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Amount:      10,
	})
	requireStatus(t, err, errutil.StatusInsufficientBalance)

	var count int64
	require.NoError(t, db.Model(&Transaction{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRedemptionLifecycle(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	_, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(50), currentBalance(t, svc, "m1"))

	// Request phase leaves the balance spendable.
	req, err := svc.RequestRedemption(ctx, RequestRedemptionRequest{MemberID: "m1", Amount: 50})
	require.NoError(t, err)
	require.Equal(t, TypeRedemption, req.Type)
	require.Nil(t, req.ProcessedBy)
	require.Equal(t, int64(50), currentBalance(t, svc, "m1"))

	processed, err := svc.ProcessRedemption(ctx, req.ID, "c1")
	require.NoError(t, err)
	require.NotNil(t, processed.ProcessedBy)
	require.Equal(t, "c1", *processed.ProcessedBy)
	require.Zero(t, currentBalance(t, svc, "m1"))

	_, err = svc.ProcessRedemption(ctx, req.ID, "c1")
	requireStatus(t, err, errutil.StatusAlreadyProcessed)
	require.Zero(t, currentBalance(t, svc, "m1"))
}

func TestRequestRedemptionExceedsBalance(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "m1", member.RoleRegular, true, false)

	_, err := svc.RequestRedemption(context.Background(), RequestRedemptionRequest{MemberID: "m1", Amount: 10})
	requireStatus(t, err, errutil.StatusInsufficientBalance)
}

func TestRequestRedemptionUnverified(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "m1", member.RoleRegular, false, false)

	_, err := svc.RequestRedemption(context.Background(), RequestRedemptionRequest{MemberID: "m1", Amount: 0})
	requireStatus(t, err, errutil.StatusUnverified)
}

func TestProcessRedemptionWrongType(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	purchase, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	_, err = svc.ProcessRedemption(ctx, purchase.ID, "c1")
	requireStatus(t, err, errutil.StatusWrongType)

	_, err = svc.ProcessRedemption(ctx, "missing", "c1")
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestProcessRedemptionConcurrent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)
	seedMember(t, db, "c2", member.RoleCashier, true, false)

	_, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)

	req, err := svc.RequestRedemption(ctx, RequestRedemptionRequest{MemberID: "m1", Amount: 100})
	require.NoError(t, err)

	cashiers := []string{"c1", "c2", "c1", "c2"}
	errs := make([]error, len(cashiers))
	var wg sync.WaitGroup
	for i, cashierID := range cashiers {
		wg.Add(1)
		go func(i int, cashierID string) {
			defer wg.Done()
			_, errs[i] = svc.ProcessRedemption(ctx, req.ID, cashierID)
		}(i, cashierID)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var be errutil.BaseError
		require.True(t, errors.As(err, &be))
		require.Equal(t, errutil.StatusAlreadyProcessed, be.Status())
		losses++
	}
	require.Equal(t, 1, wins)
	require.Equal(t, len(cashiers)-1, losses)

	// Exactly one decrement.
	require.Zero(t, currentBalance(t, svc, "m1"))
}

func TestAwardEventPoints(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "org", member.RoleOrganizer, true, false)
	seedMember(t, db, "g1", member.RoleRegular, true, false)
	seedMember(t, db, "g2", member.RoleRegular, true, false)

	e := &event.Event{
		ID:           "ev1",
		Name:         "launch party",
		StartsAt:     time.Now(),
		EndsAt:       time.Now().Add(time.Hour),
		Capacity:     10,
		PointsRemain: 100,
	}
	require.NoError(t, db.Create(e).Error)
	require.NoError(t, db.Create(&event.Guest{ID: "gst1", EventID: "ev1", MemberID: "g1"}).Error)
	require.NoError(t, db.Create(&event.Guest{ID: "gst2", EventID: "ev1", MemberID: "g2"}).Error)

	records, err := svc.AwardEventPoints(ctx, AwardEventPointsRequest{
		EventID: "ev1",
		ActorID: "org",
		Points:  30,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, TypeEvent, r.Type)
		require.Equal(t, int64(30), r.Amount)
		require.Equal(t, "ev1", *r.RelatedID)
	}
	require.Equal(t, int64(30), currentBalance(t, svc, "g1"))
	require.Equal(t, int64(30), currentBalance(t, svc, "g2"))

	var got event.Event
	require.NoError(t, db.First(&got, "id = ?", "ev1").Error)
	require.Equal(t, int64(40), got.PointsRemain)
	require.Equal(t, int64(60), got.PointsAwarded)
}

func TestAwardEventPointsNamedRecipient(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "org", member.RoleOrganizer, true, false)
	seedMember(t, db, "g1", member.RoleRegular, true, false)
	seedMember(t, db, "outsider", member.RoleRegular, true, false)

	e := &event.Event{
		ID:           "ev1",
		Name:         "meetup",
		StartsAt:     time.Now(),
		EndsAt:       time.Now().Add(time.Hour),
		Capacity:     5,
		PointsRemain: 50,
	}
	require.NoError(t, db.Create(e).Error)
	require.NoError(t, db.Create(&event.Guest{ID: "gst1", EventID: "ev1", MemberID: "g1"}).Error)

	recipient := "g1"
	records, err := svc.AwardEventPoints(ctx, AwardEventPointsRequest{
		EventID:     "ev1",
		ActorID:     "org",
		Points:      20,
		RecipientID: &recipient,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int64(20), currentBalance(t, svc, "g1"))

	stranger := "outsider"
	_, err = svc.AwardEventPoints(ctx, AwardEventPointsRequest{
		EventID:     "ev1",
		ActorID:     "org",
		Points:      20,
		RecipientID: &stranger,
	})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestAwardEventPointsPoolExhausted(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "org", member.RoleOrganizer, true, false)
	seedMember(t, db, "g1", member.RoleRegular, true, false)
	seedMember(t, db, "g2", member.RoleRegular, true, false)

	e := &event.Event{
		ID:           "ev1",
		Name:         "small pool",
		StartsAt:     time.Now(),
		EndsAt:       time.Now().Add(time.Hour),
		Capacity:     5,
		PointsRemain: 50,
	}
	require.NoError(t, db.Create(e).Error)
	require.NoError(t, db.Create(&event.Guest{ID: "gst1", EventID: "ev1", MemberID: "g1"}).Error)
	require.NoError(t, db.Create(&event.Guest{ID: "gst2", EventID: "ev1", MemberID: "g2"}).Error)

	_, err := svc.AwardEventPoints(ctx, AwardEventPointsRequest{
		EventID: "ev1",
		ActorID: "org",
		Points:  30,
	})
	requireStatus(t, err, errutil.StatusCapacityExceeded)

	// No partial award.
	var count int64
	require.NoError(t, db.Model(&Transaction{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, currentBalance(t, svc, "g1"))
	var got event.Event
	require.NoError(t, db.First(&got, "id = ?", "ev1").Error)
	require.Equal(t, int64(50), got.PointsRemain)
}

func TestAwardEventPointsRequiresOrganizer(t *testing.T) {
	svc, db := newTestService(t)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	_, err := svc.AwardEventPoints(context.Background(), AwardEventPointsRequest{
		EventID: "ev1",
		ActorID: "c1",
		Points:  10,
	})
	requireStatus(t, err, errutil.StatusUnauthorized)
}

func TestSetSuspiciousRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	trx, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
		MemberID:  "m1",
		CashierID: "c1",
		Spend:     decimal.RequireFromString("20.00"),
	})
	require.NoError(t, err)
	before := currentBalance(t, svc, "m1")

	flagged, err := svc.SetSuspicious(ctx, trx.ID, true)
	require.NoError(t, err)
	require.True(t, flagged.Suspicious)
	require.Equal(t, before-trx.Amount, currentBalance(t, svc, "m1"))

	// No-op toggle moves nothing.
	again, err := svc.SetSuspicious(ctx, trx.ID, true)
	require.NoError(t, err)
	require.True(t, again.Suspicious)
	require.Equal(t, before-trx.Amount, currentBalance(t, svc, "m1"))

	cleared, err := svc.SetSuspicious(ctx, trx.ID, false)
	require.NoError(t, err)
	require.False(t, cleared.Suspicious)
	require.Equal(t, before, currentBalance(t, svc, "m1"))
}

func TestSetSuspiciousWrongType(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)

	req, err := svc.RequestRedemption(ctx, RequestRedemptionRequest{MemberID: "m1", Amount: 0})
	require.NoError(t, err)

	_, err = svc.SetSuspicious(ctx, req.ID, true)
	requireStatus(t, err, errutil.StatusWrongType)
}

func TestGetBalanceUnknownMemberNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetBalance(context.Background(), "ghost")
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestListTransactionsByMember(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedMember(t, db, "m1", member.RoleRegular, true, false)
	seedMember(t, db, "m2", member.RoleRegular, true, false)
	seedMember(t, db, "c1", member.RoleCashier, true, false)

	for _, memberID := range []string{"m1", "m2", "m1"} {
		_, err := svc.RecordPurchase(ctx, RecordPurchaseRequest{
			MemberID:  memberID,
			CashierID: "c1",
			Spend:     decimal.NewFromInt(1),
		})
		require.NoError(t, err)
	}

	list, err := svc.ListTransactions(ctx, "m1", pagination.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, trx := range list {
		require.Equal(t, "m1", trx.MemberID)
	}
}
