package ledger

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Type string

const (
	TypePurchase   Type = "purchase"
	TypeAdjustment Type = "adjustment"
	TypeRedemption Type = "redemption"
	TypeTransfer   Type = "transfer"
	TypeEvent      Type = "event"
)

// Transaction is the immutable ledger record. Amount never changes after
// creation; the only mutable fields are the suspicious flag and, for
// redemptions, the processor identity, each set at most once. Records are
// built through the per-kind constructors below so every kind carries
// exactly its required fields.
type Transaction struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	Code      string    `gorm:"column:code;uniqueIndex"`
	MemberID  string    `gorm:"column:member_id;index;not null"`
	Type      Type      `gorm:"column:type;type:varchar(20);not null"`
	// Amount is the signed point effect. Purchases always record the full
	// earned amount even when the suspicious flag suppressed the balance
	// credit, so a later un-flag can restore exactly that amount.
	Amount int64               `gorm:"column:amount;not null"`
	Spend  decimal.NullDecimal `gorm:"column:spend;type:numeric(12,2)"`
	// RelatedID points at the source transaction (adjustment), the
	// counterparty member (transfer) or the event (event award).
	RelatedID    *string        `gorm:"column:related_id;index"`
	PromotionIDs datatypes.JSON `gorm:"column:promotion_ids"`
	Suspicious   bool           `gorm:"column:suspicious;not null;default:false"`
	Remark       string         `gorm:"column:remark;type:text"`
	CreatedBy    string         `gorm:"column:created_by;not null"`
	ProcessedBy  *string        `gorm:"column:processed_by"`
	ProcessedAt  *time.Time     `gorm:"column:processed_at"`
}

// CanFlagSuspicious reports whether the suspicious flag applies to this
// record's kind. Redemptions and transfers have no suspicious concept.
func (t *Transaction) CanFlagSuspicious() bool {
	switch t.Type {
	case TypePurchase, TypeAdjustment, TypeEvent:
		return true
	default:
		return false
	}
}

// AppliedPromotionIDs decodes the ordered promotion id list.
func (t *Transaction) AppliedPromotionIDs() []string {
	if len(t.PromotionIDs) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(t.PromotionIDs, &ids); err != nil {
		return nil
	}
	return ids
}

func encodePromotionIDs(ids []string) datatypes.JSON {
	if len(ids) == 0 {
		return nil
	}
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}

func NewPurchase(id, code, memberID string, earned int64, spend decimal.Decimal, promotionIDs []string, suspicious bool, remark, cashierID string) *Transaction {
	return &Transaction{
		ID:           id,
		Code:         code,
		MemberID:     memberID,
		Type:         TypePurchase,
		Amount:       earned,
		Spend:        decimal.NullDecimal{Decimal: spend, Valid: true},
		PromotionIDs: encodePromotionIDs(promotionIDs),
		Suspicious:   suspicious,
		Remark:       remark,
		CreatedBy:    cashierID,
	}
}

func NewAdjustment(id, code, memberID string, delta int64, relatedID string, promotionIDs []string, remark, actorID string) *Transaction {
	return &Transaction{
		ID:           id,
		Code:         code,
		MemberID:     memberID,
		Type:         TypeAdjustment,
		Amount:       delta,
		RelatedID:    &relatedID,
		PromotionIDs: encodePromotionIDs(promotionIDs),
		Remark:       remark,
		CreatedBy:    actorID,
	}
}

// NewTransferPair builds the paired debit and credit records of a transfer.
// Each record's RelatedID names the counterparty; both carry the sender as
// creator.
func NewTransferPair(debitID, creditID, debitCode, creditCode, senderID, recipientID string, amount int64, remark string) (*Transaction, *Transaction) {
	debit := &Transaction{
		ID:        debitID,
		Code:      debitCode,
		MemberID:  senderID,
		Type:      TypeTransfer,
		Amount:    -amount,
		RelatedID: &recipientID,
		Remark:    remark,
		CreatedBy: senderID,
	}
	credit := &Transaction{
		ID:        creditID,
		Code:      creditCode,
		MemberID:  recipientID,
		Type:      TypeTransfer,
		Amount:    amount,
		RelatedID: &senderID,
		Remark:    remark,
		CreatedBy: senderID,
	}
	return debit, credit
}

func NewRedemption(id, code, memberID string, amount int64, remark string) *Transaction {
	return &Transaction{
		ID:        id,
		Code:      code,
		MemberID:  memberID,
		Type:      TypeRedemption,
		Amount:    amount,
		Remark:    remark,
		CreatedBy: memberID,
	}
}

func NewEventAward(id, code, memberID string, points int64, eventID, remark, actorID string) *Transaction {
	return &Transaction{
		ID:        id,
		Code:      code,
		MemberID:  memberID,
		Type:      TypeEvent,
		Amount:    points,
		RelatedID: &eventID,
		Remark:    remark,
		CreatedBy: actorID,
	}
}

// Balance is the mutable per-member point balance derived from the
// transaction history. Only the Writer mutates it.
type Balance struct {
	ID        string    `gorm:"column:id;primaryKey"`
	MemberID  string    `gorm:"column:member_id;uniqueIndex;not null"`
	Balance   int64     `gorm:"column:balance;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
