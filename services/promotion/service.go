package promotion

import (
	"context"
	"fmt"
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
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	promotions repository.Repository[Promotion]
	usages     repository.Repository[Usage]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		promotions: repository.ProvideStore[Promotion](p.DB),
		usages:     repository.ProvideStore[Usage](p.DB),
	}
}

type CreatePromotionRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Type        Type                `json:"type" binding:"required"`
	StartsAt    time.Time           `json:"starts_at" binding:"required"`
	EndsAt      time.Time           `json:"ends_at" binding:"required"`
	MinSpending decimal.NullDecimal `json:"min_spending"`
	Rate        decimal.NullDecimal `json:"rate"`
	Points      int64               `json:"points"`
}

func (s *Service) CreatePromotion(ctx context.Context, req CreatePromotionRequest) (*Promotion, error) {
	if !req.Type.Valid() {
		return nil, errutil.BadRequest("unknown promotion type")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, errutil.BadRequest("promotion window must end after it starts")
	}
	if req.Points < 0 {
		return nil, errutil.BadRequest("flat points must not be negative")
	}
	if req.Rate.Valid && req.Rate.Decimal.IsNegative() {
		return nil, errutil.BadRequest("rate must not be negative")
	}

	p := &Promotion{
		ID:          s.node.Generate().String(),
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		MinSpending: req.MinSpending,
		Rate:        req.Rate,
		Points:      req.Points,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.promotions.Create(ctx, p); err != nil {
		zap.L().Error("failed to create promotion", zap.Error(err))
		return nil, err
	}

	return p, nil
}

func (s *Service) GetPromotion(ctx context.Context, id string) (*Promotion, error) {
	p, err := s.promotions.FindOne(ctx, &Promotion{ID: id})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("promotion not found")
	}
	return p, nil
}

func (s *Service) ListPromotions(ctx context.Context, p pagination.Pagination) ([]*Promotion, error) {
	return s.promotions.Find(ctx, &Promotion{},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(p),
	)
}

// Assign creates the unused Usage row granting a one-time promotion to a
// member. Automatic promotions need no assignment.
func (s *Service) Assign(ctx context.Context, promotionID, memberID string) (*Usage, error) {
	p, err := s.GetPromotion(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if p.Type != TypeOneTime {
		return nil, errutil.BadRequest("only one-time promotions are assigned per member")
	}

	exist, err := s.usages.FindOne(ctx, &Usage{PromotionID: promotionID, MemberID: memberID})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("promotion already assigned to member")
	}

	u := &Usage{
		ID:          s.node.Generate().String(),
		PromotionID: promotionID,
		MemberID:    memberID,
		CreatedAt:   time.Now(),
	}

	if err := s.usages.Create(ctx, u); err != nil {
		zap.L().Error("failed to assign promotion", zap.Error(err))
		return nil, err
	}

	return u, nil
}

// Applied is one validated promotion ready to take effect. UsageID names the
// one-time Usage row the caller must consume in the same transaction; it is
// empty for automatic promotions.
type Applied struct {
	Promotion *Promotion
	UsageID   string
}

// Validate checks every requested promotion against the member's usage state
// inside the caller's transaction, all-or-nothing: the first invalid id
// rejects the whole request before any effect is applied. A nil spend skips
// the minimum-spend rule (adjustments carry no spend amount).
func (s *Service) Validate(ctx context.Context, tx *gorm.DB, memberID string, promotionIDs []string, spend *decimal.Decimal, now time.Time) ([]Applied, error) {
	if len(promotionIDs) == 0 {
		return nil, nil
	}

	promoTx := s.promotions.WithTrx(tx)
	usageTx := s.usages.WithTrx(tx)

	seen := make(map[string]bool, len(promotionIDs))
	applied := make([]Applied, 0, len(promotionIDs))

	for _, id := range promotionIDs {
		if seen[id] {
			return nil, errutil.InvalidPromotion(fmt.Sprintf("promotion %s requested more than once", id))
		}
		seen[id] = true

		p, err := promoTx.FindOne(ctx, &Promotion{ID: id})
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, errutil.InvalidPromotion(fmt.Sprintf("promotion %s does not exist", id))
		}
		if !p.ActiveAt(now) {
			return nil, errutil.InvalidPromotion(fmt.Sprintf("promotion %s is outside its validity window", id))
		}

		if spend != nil && p.MinSpending.Valid && spend.LessThan(p.MinSpending.Decimal) {
			return nil, errutil.MinimumSpendNotMet(fmt.Sprintf("promotion %s requires spending of at least %s", id, p.MinSpending.Decimal))
		}

		a := Applied{Promotion: p}
		if p.Type == TypeOneTime {
			u, err := usageTx.FindOne(ctx, &Usage{PromotionID: id, MemberID: memberID}, option.WithLockingUpdate())
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, errutil.InvalidPromotion(fmt.Sprintf("promotion %s is not assigned to member", id))
			}
			if u.Used {
				return nil, errutil.InvalidPromotion(fmt.Sprintf("promotion %s already used", id))
			}
			a.UsageID = u.ID
		}

		applied = append(applied, a)
	}

	return applied, nil
}
