package ledger

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/db/option"
	"rewards-controlplane/pkg/db/pagination"
	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/pkg/repository"
	"rewards-controlplane/pkg/sequence"
	"rewards-controlplane/pkg/task"
	"rewards-controlplane/services/event"
	"rewards-controlplane/services/member"
	"rewards-controlplane/services/promotion"
)

// pointsPerDollar converts spend to base points: 1 point per $0.25,
// floored. Deterministic, no float arithmetic anywhere in the chain.
var pointsPerDollar = decimal.NewFromInt(4)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	writer   *Writer
	sequence sequence.Generator
	enqueuer task.Enqueuer

	promotions *promotion.Service

	transactions repository.Repository[Transaction]
	balances     repository.Repository[Balance]
	members      repository.Repository[member.Member]
	events       repository.Repository[event.Event]
	guests       repository.Repository[event.Guest]
}

type ServiceParams struct {
	fx.In
	DB         *gorm.DB
	Node       *snowflake.Node
	Sequence   sequence.Generator
	Promotions *promotion.Service
	Enqueuer   task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		writer:   NewWriter(p.Node),
		sequence: p.Sequence,
		enqueuer: p.Enqueuer,

		promotions: p.Promotions,

		transactions: repository.ProvideStore[Transaction](p.DB),
		balances:     repository.ProvideStore[Balance](p.DB),
		members:      repository.ProvideStore[member.Member](p.DB),
		events:       repository.ProvideStore[event.Event](p.DB),
		guests:       repository.ProvideStore[event.Guest](p.DB),
	}
}

type RecordPurchaseRequest struct {
	MemberID     string          `json:"member_id" binding:"required"`
	CashierID    string          `json:"cashier_id" binding:"required"`
	Spend        decimal.Decimal `json:"spend" binding:"required"`
	PromotionIDs []string        `json:"promotion_ids"`
	Remark       string          `json:"remark"`
}

// RecordPurchase converts spend into points and appends a purchase record.
// A purchase by a suspicious cashier still records the full earned amount,
// flagged, with a zero balance delta; un-flagging later restores exactly
// that amount.
func (s *Service) RecordPurchase(ctx context.Context, req RecordPurchaseRequest) (*Transaction, error) {
	if req.Spend.IsNegative() {
		return nil, errutil.BadRequest("spend must not be negative")
	}

	if _, err := s.getMember(ctx, req.MemberID); err != nil {
		return nil, err
	}
	cashier, err := s.getMember(ctx, req.CashierID)
	if err != nil {
		return nil, err
	}
	if !cashier.Role.AtLeast(member.RoleCashier) {
		return nil, errutil.Unauthorized("acting identity cannot record purchases")
	}

	code, err := s.sequence.NextTransactionCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to allocate transaction code", errutil.WithErr(err))
	}

	var record *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		applied, err := s.promotions.Validate(ctx, tx, req.MemberID, req.PromotionIDs, &req.Spend, now)
		if err != nil {
			return err
		}

		earned := req.Spend.Mul(pointsPerDollar).Floor().IntPart()
		var usageIDs []string
		for _, a := range applied {
			earned += a.Promotion.BonusFor(req.Spend)
			if a.UsageID != "" {
				usageIDs = append(usageIDs, a.UsageID)
			}
		}

		record = NewPurchase(
			s.node.Generate().String(), code,
			req.MemberID, earned, req.Spend, req.PromotionIDs,
			cashier.Suspicious, req.Remark, cashier.ID,
		)

		delta := earned
		if cashier.Suspicious {
			delta = 0
		}

		return s.writer.Apply(tx, WriteSet{
			Records:         []*Transaction{record},
			BalanceDeltas:   map[string]int64{req.MemberID: delta},
			ConsumeUsageIDs: usageIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	if cashier.Suspicious {
		s.enqueueSuspiciousReview(record, cashier.ID)
	}
	return record, nil
}

type RecordAdjustmentRequest struct {
	MemberID     string   `json:"member_id" binding:"required"`
	Delta        int64    `json:"delta" binding:"required"`
	RelatedID    string   `json:"related_id" binding:"required"`
	PromotionIDs []string `json:"promotion_ids"`
	Remark       string   `json:"remark"`
	ActorID      string   `json:"actor_id" binding:"required"`
}

// RecordAdjustment appends a manager-issued correction tied to an existing
// transaction. The delta always applies in full and may push the balance
// negative.
func (s *Service) RecordAdjustment(ctx context.Context, req RecordAdjustmentRequest) (*Transaction, error) {
	if _, err := s.getMember(ctx, req.MemberID); err != nil {
		return nil, err
	}
	actor, err := s.getMember(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(member.RoleManager) {
		return nil, errutil.Unauthorized("acting identity cannot issue adjustments")
	}

	related, err := s.transactions.FindOne(ctx, &Transaction{ID: req.RelatedID})
	if err != nil {
		return nil, err
	}
	if related == nil {
		return nil, errutil.NotFound("related transaction not found")
	}

	code, err := s.sequence.NextTransactionCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to allocate transaction code", errutil.WithErr(err))
	}

	var record *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// No spend on an adjustment, so the minimum-spend rule is skipped.
		applied, err := s.promotions.Validate(ctx, tx, req.MemberID, req.PromotionIDs, nil, time.Now())
		if err != nil {
			return err
		}
		var usageIDs []string
		for _, a := range applied {
			if a.UsageID != "" {
				usageIDs = append(usageIDs, a.UsageID)
			}
		}

		record = NewAdjustment(
			s.node.Generate().String(), code,
			req.MemberID, req.Delta, related.ID, req.PromotionIDs,
			req.Remark, actor.ID,
		)

		return s.writer.Apply(tx, WriteSet{
			Records:         []*Transaction{record},
			BalanceDeltas:   map[string]int64{req.MemberID: req.Delta},
			ConsumeUsageIDs: usageIDs,
			AllowNegative:   true,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

type TransferRequest struct {
	SenderID    string `json:"sender_id" binding:"required"`
	RecipientID string `json:"recipient_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Remark      string `json:"remark"`
}

// Transfer moves points between members as a paired debit and credit in one
// atomic unit.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*Transaction, *Transaction, error) {
	if req.Amount <= 0 {
		return nil, nil, errutil.BadRequest("transfer amount must be positive")
	}
	if req.SenderID == req.RecipientID {
		return nil, nil, errutil.BadRequest("cannot transfer to self")
	}

	sender, err := s.getMember(ctx, req.SenderID)
	if err != nil {
		return nil, nil, err
	}
	if !sender.Verified {
		return nil, nil, errutil.Unverified("sender is not verified")
	}
	if _, err := s.getMember(ctx, req.RecipientID); err != nil {
		return nil, nil, err
	}

	debitCode, err := s.sequence.NextTransactionCode(ctx)
	if err != nil {
		return nil, nil, errutil.Internal("failed to allocate transaction code", errutil.WithErr(err))
	}
	creditCode, err := s.sequence.NextTransactionCode(ctx)
	if err != nil {
		return nil, nil, errutil.Internal("failed to allocate transaction code", errutil.WithErr(err))
	}

	var debit, credit *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.writer.LockBalance(tx, req.SenderID)
		if err != nil {
			return err
		}
		if balance.Balance < req.Amount {
			return errutil.InsufficientBalance("sender balance below transfer amount")
		}

		debit, credit = NewTransferPair(
			s.node.Generate().String(), s.node.Generate().String(),
			debitCode, creditCode,
			req.SenderID, req.RecipientID, req.Amount, req.Remark,
		)

		return s.writer.Apply(tx, WriteSet{
			Records: []*Transaction{debit, credit},
			BalanceDeltas: map[string]int64{
				req.SenderID:    -req.Amount,
				req.RecipientID: req.Amount,
			},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return debit, credit, nil
}

type RequestRedemptionRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Amount   int64  `json:"amount"`
	Remark   string `json:"remark"`
}

// RequestRedemption opens the two-phase redemption: the record is created
// with no processor and no balance movement. Points stay spendable until a
// cashier processes the redemption.
func (s *Service) RequestRedemption(ctx context.Context, req RequestRedemptionRequest) (*Transaction, error) {
	if req.Amount < 0 {
		return nil, errutil.BadRequest("redemption amount must not be negative")
	}

	m, err := s.getMember(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if !m.Verified {
		return nil, errutil.Unverified("member is not verified")
	}

	code, err := s.sequence.NextTransactionCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to allocate transaction code", errutil.WithErr(err))
	}

	var record *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.writer.LockBalance(tx, req.MemberID)
		if err != nil {
			return err
		}
		if balance.Balance < req.Amount {
			return errutil.InsufficientBalance("requested amount exceeds current balance")
		}

		record = NewRedemption(s.node.Generate().String(), code, req.MemberID, req.Amount, req.Remark)
		return s.writer.Apply(tx, WriteSet{Records: []*Transaction{record}})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ProcessRedemption finishes a requested redemption. The winner of the
// conditional update keyed on `processed_by IS NULL` debits the balance;
// every other concurrent caller observes AlreadyProcessed.
func (s *Service) ProcessRedemption(ctx context.Context, transactionID, cashierID string) (*Transaction, error) {
	cashier, err := s.getMember(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if !cashier.Role.AtLeast(member.RoleCashier) {
		return nil, errutil.Unauthorized("acting identity cannot process redemptions")
	}

	var record *Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trx := s.transactions.WithTrx(tx)

		found, err := trx.FindOne(ctx, &Transaction{ID: transactionID})
		if err != nil {
			return err
		}
		if found == nil {
			return errutil.NotFound("transaction not found")
		}
		if found.Type != TypeRedemption {
			return errutil.WrongType("transaction is not a redemption")
		}
		if found.ProcessedBy != nil {
			return errutil.AlreadyProcessed("redemption already processed")
		}

		if _, err := s.writer.LockBalance(tx, found.MemberID); err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&Transaction{}).
			Where("id = ? AND type = ? AND processed_by IS NULL", transactionID, TypeRedemption).
			Updates(map[string]interface{}{
				"processed_by": cashier.ID,
				"processed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return errutil.Internal("failed to claim redemption", errutil.WithErr(res.Error))
		}
		if res.RowsAffected != 1 {
			return errutil.AlreadyProcessed("redemption already processed")
		}

		if err := s.writer.Apply(tx, WriteSet{
			BalanceDeltas: map[string]int64{found.MemberID: -found.Amount},
		}); err != nil {
			return err
		}

		record = found
		record.ProcessedBy = &cashier.ID
		record.ProcessedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

type AwardEventPointsRequest struct {
	EventID     string  `json:"event_id"`
	ActorID     string  `json:"actor_id" binding:"required"`
	Points      int64   `json:"points"`
	RecipientID *string `json:"recipient_id"`
	Remark      string  `json:"remark"`
}

// AwardEventPoints credits event points to one named guest or, with no
// recipient, to every current guest. The pool decrement, the records and the
// balance credits land together or not at all.
func (s *Service) AwardEventPoints(ctx context.Context, req AwardEventPointsRequest) ([]*Transaction, error) {
	if req.Points < 0 {
		return nil, errutil.BadRequest("points per recipient must not be negative")
	}

	actor, err := s.getMember(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(member.RoleOrganizer) {
		return nil, errutil.Unauthorized("acting identity cannot award event points")
	}

	e, err := s.events.FindOne(ctx, &event.Event{ID: req.EventID})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errutil.NotFound("event not found")
	}

	var records []*Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guestTx := s.guests.WithTrx(tx)

		var recipients []string
		if req.RecipientID != nil {
			g, err := guestTx.FindOne(ctx, &event.Guest{EventID: req.EventID, MemberID: *req.RecipientID})
			if err != nil {
				return err
			}
			if g == nil {
				return errutil.NotFound("recipient is not a guest of the event")
			}
			recipients = []string{*req.RecipientID}
		} else {
			guests, err := guestTx.Find(ctx, &event.Guest{EventID: req.EventID})
			if err != nil {
				return err
			}
			for _, g := range guests {
				recipients = append(recipients, g.MemberID)
			}
		}
		if len(recipients) == 0 {
			return nil
		}

		total := req.Points * int64(len(recipients))
		if e.PointsRemain < total {
			return errutil.CapacityExceeded("event reward pool exhausted")
		}

		records = make([]*Transaction, 0, len(recipients))
		deltas := make(map[string]int64, len(recipients))
		for _, memberID := range recipients {
			code, err := s.sequence.NextTransactionCode(ctx)
			if err != nil {
				return errutil.Internal("failed to allocate transaction code", errutil.WithErr(err))
			}
			records = append(records, NewEventAward(
				s.node.Generate().String(), code,
				memberID, req.Points, req.EventID, req.Remark, actor.ID,
			))
			deltas[memberID] += req.Points
		}

		return s.writer.Apply(tx, WriteSet{
			Records:       records,
			BalanceDeltas: deltas,
			Pool:          &PoolDelta{EventID: req.EventID, Points: total},
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SetSuspicious flips a transaction's suspicious flag and compensates the
// member's balance by the recorded amount, exactly once per flip. The flag
// update is keyed on the current value so a racing toggle cannot double the
// compensation. Adjustments never retro-modify the flagged record; only its
// own recorded amount moves.
func (s *Service) SetSuspicious(ctx context.Context, transactionID string, suspicious bool) (*Transaction, error) {
	var record *Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trx := s.transactions.WithTrx(tx)

		found, err := trx.FindOne(ctx, &Transaction{ID: transactionID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if found == nil {
			return errutil.NotFound("transaction not found")
		}
		if !found.CanFlagSuspicious() {
			return errutil.WrongType("transaction type has no suspicious concept")
		}
		if found.Suspicious == suspicious {
			record = found
			return nil
		}

		if _, err := s.writer.LockBalance(tx, found.MemberID); err != nil {
			return err
		}

		res := tx.Model(&Transaction{}).
			Where("id = ? AND suspicious = ?", transactionID, !suspicious).
			Updates(map[string]interface{}{
				"suspicious": suspicious,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return errutil.Internal("failed to update suspicious flag", errutil.WithErr(res.Error))
		}
		if res.RowsAffected != 1 {
			return errutil.Conflict("suspicious flag changed concurrently")
		}

		delta := found.Amount
		if suspicious {
			delta = -delta
		}
		if err := s.writer.Apply(tx, WriteSet{
			BalanceDeltas: map[string]int64{found.MemberID: delta},
			AllowNegative: true,
		}); err != nil {
			return err
		}

		record = found
		record.Suspicious = suspicious
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetBalance returns the member's balance, zero when the member has never
// held points.
func (s *Service) GetBalance(ctx context.Context, memberID string) (*Balance, error) {
	if _, err := s.getMember(ctx, memberID); err != nil {
		return nil, err
	}
	b, err := s.balances.FindOne(ctx, &Balance{MemberID: memberID})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &Balance{MemberID: memberID}, nil
	}
	return b, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	t, err := s.transactions.FindOne(ctx, &Transaction{ID: id})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errutil.NotFound("transaction not found")
	}
	return t, nil
}

func (s *Service) ListTransactions(ctx context.Context, memberID string, p pagination.Pagination) ([]*Transaction, error) {
	query := &Transaction{}
	if memberID != "" {
		query.MemberID = memberID
	}
	return s.transactions.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(p),
	)
}

func (s *Service) getMember(ctx context.Context, id string) (*member.Member, error) {
	m, err := s.members.FindOne(ctx, &member.Member{ID: id})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errutil.NotFound("member not found")
	}
	return m, nil
}

func (s *Service) enqueueSuspiciousReview(record *Transaction, cashierID string) {
	if s.enqueuer == nil {
		return
	}
	t, err := NewSuspiciousReviewTask(record.ID, cashierID)
	if err != nil {
		zap.L().Error("failed to build suspicious review task", zap.Error(err))
		return
	}
	if _, err := s.enqueuer.Enqueue(t); err != nil {
		zap.L().Error("failed to enqueue suspicious review task",
			zap.String("transaction_id", record.ID),
			zap.String("cashier_id", cashierID),
			zap.Error(err),
		)
	}
}
