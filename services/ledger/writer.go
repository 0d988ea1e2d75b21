package ledger

import (
	"errors"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/db/option"
	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/services/event"
	"rewards-controlplane/services/promotion"
)

// PoolDelta consumes points from an event reward pool. The decrement is
// guarded so the pool can never go negative.
type PoolDelta struct {
	EventID string
	Points  int64
}

// WriteSet is one atomic unit of ledger work: the records to append, the
// balance movements they imply, the one-time promotion usages they consume
// and at most one event pool decrement. Apply commits all of it or none.
type WriteSet struct {
	Records         []*Transaction
	BalanceDeltas   map[string]int64
	ConsumeUsageIDs []string
	Pool            *PoolDelta
	// AllowNegative lifts the non-negative balance guard. Manager-issued
	// corrections and suspicion compensations may push a balance below zero.
	AllowNegative bool
}

// Writer owns every mutation of balances, promotion usages and event pools.
// Services validate, build a WriteSet and hand it here inside a db
// transaction.
type Writer struct {
	node *snowflake.Node
}

func NewWriter(node *snowflake.Node) *Writer {
	return &Writer{node: node}
}

// LockBalance loads the member's balance row under a row lock, creating a
// zero row first if the member has never held points. Callers must hold an
// open transaction.
func (w *Writer) LockBalance(tx *gorm.DB, memberID string) (*Balance, error) {
	var balance Balance
	err := tx.Scopes(option.LockingUpdate).
		Where("member_id = ?", memberID).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.Internal("ledger write failed", errutil.WithErr(err))
	}

	balance = Balance{
		ID:       w.node.Generate().String(),
		MemberID: memberID,
	}
	if err := tx.Create(&balance).Error; err != nil {
		return nil, errutil.Internal("ledger write failed", errutil.WithErr(err))
	}
	return &balance, nil
}

// Apply commits the WriteSet on the given transaction. Balance rows are
// locked in sorted member order so concurrent writers touching the same
// members cannot deadlock. Each balance update is guarded against going
// negative, each usage consume against double use and the pool decrement
// against exhaustion; a failed guard aborts the whole unit.
func (w *Writer) Apply(tx *gorm.DB, set WriteSet) error {
	members := make([]string, 0, len(set.BalanceDeltas))
	for memberID := range set.BalanceDeltas {
		members = append(members, memberID)
	}
	sort.Strings(members)

	for _, memberID := range members {
		if _, err := w.LockBalance(tx, memberID); err != nil {
			return err
		}
	}

	if len(set.Records) > 0 {
		if err := tx.Create(&set.Records).Error; err != nil {
			return errutil.Internal("ledger write failed", errutil.WithErr(err))
		}
	}

	now := time.Now()
	for _, memberID := range members {
		delta := set.BalanceDeltas[memberID]
		if delta == 0 {
			continue
		}
		query := tx.Model(&Balance{}).Where("member_id = ?", memberID)
		if !set.AllowNegative {
			query = query.Where("balance + ? >= 0", delta)
		}
		res := query.
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", delta),
				"updated_at": now,
			})
		if res.Error != nil {
			return errutil.Internal("ledger write failed", errutil.WithErr(res.Error))
		}
		if res.RowsAffected != 1 {
			return errutil.InsufficientBalance("balance would fall below zero")
		}
	}

	for _, usageID := range set.ConsumeUsageIDs {
		res := tx.Model(&promotion.Usage{}).
			Where("id = ? AND used = ?", usageID, false).
			Updates(map[string]interface{}{
				"used":    true,
				"used_at": now,
			})
		if res.Error != nil {
			return errutil.Internal("ledger write failed", errutil.WithErr(res.Error))
		}
		if res.RowsAffected != 1 {
			return errutil.InvalidPromotion("one-time promotion already used")
		}
	}

	if set.Pool != nil {
		res := tx.Model(&event.Event{}).
			Where("id = ? AND points_remain >= ?", set.Pool.EventID, set.Pool.Points).
			Updates(map[string]interface{}{
				"points_remain":  gorm.Expr("points_remain - ?", set.Pool.Points),
				"points_awarded": gorm.Expr("points_awarded + ?", set.Pool.Points),
				"updated_at":     now,
			})
		if res.Error != nil {
			return errutil.Internal("ledger write failed", errutil.WithErr(res.Error))
		}
		if res.RowsAffected != 1 {
			return errutil.CapacityExceeded("event reward pool exhausted")
		}
	}

	return nil
}
