package promotion

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	// TypeAutomatic applies on every eligible purchase, usage is not tracked.
	TypeAutomatic Type = "automatic"
	// TypeOneTime may be consumed at most once per member, gated by a Usage row.
	TypeOneTime Type = "one_time"
)

func (t Type) Valid() bool {
	return t == TypeAutomatic || t == TypeOneTime
}

type Promotion struct {
	ID          string    `gorm:"column:id;primaryKey"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;type:text"`
	Type        Type      `gorm:"column:type;type:varchar(20);not null"`
	// Validity window is [StartsAt, EndsAt).
	StartsAt    time.Time           `gorm:"column:starts_at;not null"`
	EndsAt      time.Time           `gorm:"column:ends_at;not null"`
	MinSpending decimal.NullDecimal `gorm:"column:min_spending;type:numeric(12,2)"`
	// Rate is the fraction of spend-in-cents converted to bonus points.
	Rate   decimal.NullDecimal `gorm:"column:rate;type:numeric(8,4)"`
	Points int64               `gorm:"column:points;not null;default:0"`
}

// ActiveAt reports whether now falls inside the promotion's validity window.
func (p *Promotion) ActiveAt(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// BonusFor computes the bonus points this promotion adds to a purchase:
// floor(rate * spend_in_cents) when a rate is set, plus the flat points.
// Arithmetic stays in decimal until the final floor, no float rounding drift.
func (p *Promotion) BonusFor(spend decimal.Decimal) int64 {
	var bonus int64
	if p.Rate.Valid {
		cents := spend.Mul(decimal.NewFromInt(100))
		bonus += p.Rate.Decimal.Mul(cents).Floor().IntPart()
	}
	bonus += p.Points
	return bonus
}

// Usage is the per (member, promotion) consumption gate for one-time
// promotions. Flipping Used to true happens inside the same database
// transaction as the ledger record that consumed it.
type Usage struct {
	ID          string     `gorm:"column:id;primaryKey"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PromotionID string     `gorm:"column:promotion_id;index:idx_usage_member_promo,unique;not null"`
	MemberID    string     `gorm:"column:member_id;index:idx_usage_member_promo,unique;not null"`
	Used        bool       `gorm:"column:used;not null;default:false"`
	UsedAt      *time.Time `gorm:"column:used_at"`
}
