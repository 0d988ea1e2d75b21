package member

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
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

	members repository.Repository[Member]
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

		members: repository.ProvideStore[Member](p.DB),
	}
}

type CreateMemberRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  Role   `json:"role"`
}

func (s *Service) CreateMember(ctx context.Context, req CreateMemberRequest) (*Member, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	role := req.Role
	if role == "" {
		role = RoleRegular
	}
	if !role.Valid() {
		return nil, errutil.BadRequest("unknown role")
	}

	exist, err := s.members.FindOne(ctx, &Member{Email: req.Email})
	if err != nil {
		zapLog.Error("failed to query member by email", zap.Error(err))
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("member already exists")
	}

	m := &Member{
		ID:        s.node.Generate().String(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.members.Create(ctx, m); err != nil {
		zapLog.Error("failed to create member", zap.Error(err))
		return nil, err
	}

	return m, nil
}

func (s *Service) GetMember(ctx context.Context, id string) (*Member, error) {
	m, err := s.members.FindOne(ctx, &Member{ID: id})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errutil.NotFound("member not found")
	}
	return m, nil
}

func (s *Service) ListMembers(ctx context.Context, p pagination.Pagination) ([]*Member, error) {
	return s.members.Find(ctx, &Member{},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(p),
	)
}

func (s *Service) SetVerified(ctx context.Context, id string, verified bool) (*Member, error) {
	return s.patch(ctx, id, map[string]any{
		"verified":   verified,
		"updated_at": time.Now(),
	})
}

func (s *Service) SetSuspicious(ctx context.Context, id string, suspicious bool) (*Member, error) {
	return s.patch(ctx, id, map[string]any{
		"suspicious": suspicious,
		"updated_at": time.Now(),
	})
}

func (s *Service) SetRole(ctx context.Context, id string, role Role) (*Member, error) {
	if !role.Valid() {
		return nil, errutil.BadRequest("unknown role")
	}
	return s.patch(ctx, id, map[string]any{
		"role":       role,
		"updated_at": time.Now(),
	})
}

func (s *Service) patch(ctx context.Context, id string, updates map[string]any) (*Member, error) {
	m, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.members.Update(ctx, m.ID, updates); err != nil {
		zap.L().Error("failed to update member", zap.String("member_id", id), zap.Error(err))
		return nil, err
	}

	return s.GetMember(ctx, id)
}
