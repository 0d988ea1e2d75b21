package event

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/db/option"
	"rewards-controlplane/pkg/db/pagination"
	"rewards-controlplane/pkg/errutil"
	"rewards-controlplane/pkg/repository"
	"rewards-controlplane/services/member"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	events  repository.Repository[Event]
	guests  repository.Repository[Guest]
	members repository.Repository[member.Member]
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

		events:  repository.ProvideStore[Event](p.DB),
		guests:  repository.ProvideStore[Guest](p.DB),
		members: repository.ProvideStore[member.Member](p.DB),
	}
}

type CreateEventRequest struct {
	Name     string    `json:"name" binding:"required"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
	Capacity int       `json:"capacity" binding:"required"`
	Points   int64     `json:"points"`
}

func (s *Service) CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, errutil.BadRequest("event must end after it starts")
	}
	if req.Capacity <= 0 {
		return nil, errutil.BadRequest("capacity must be positive")
	}
	if req.Points < 0 {
		return nil, errutil.BadRequest("point pool must not be negative")
	}

	e := &Event{
		ID:           s.node.Generate().String(),
		Name:         req.Name,
		Location:     req.Location,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Capacity:     req.Capacity,
		PointsRemain: req.Points,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.events.Create(ctx, e); err != nil {
		zap.L().Error("failed to create event", zap.Error(err))
		return nil, err
	}

	return e, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	e, err := s.events.FindOne(ctx, &Event{ID: id})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errutil.NotFound("event not found")
	}
	return e, nil
}

func (s *Service) ListEvents(ctx context.Context, p pagination.Pagination) ([]*Event, error) {
	return s.events.Find(ctx, &Event{},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(p),
	)
}

func (s *Service) AddGuest(ctx context.Context, eventID, memberID string) (*Guest, error) {
	e, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	m, err := s.members.FindOne(ctx, &member.Member{ID: memberID})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errutil.NotFound("member not found")
	}

	exist, err := s.guests.FindOne(ctx, &Guest{EventID: eventID, MemberID: memberID})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("member is already a guest")
	}

	total, err := s.guests.Count(ctx, &Guest{EventID: eventID})
	if err != nil {
		return nil, err
	}
	if total >= int64(e.Capacity) {
		return nil, errutil.CapacityExceeded("event guest capacity reached")
	}

	g := &Guest{
		ID:        s.node.Generate().String(),
		EventID:   eventID,
		MemberID:  memberID,
		CreatedAt: time.Now(),
	}

	if err := s.guests.Create(ctx, g); err != nil {
		zap.L().Error("failed to add guest", zap.Error(err))
		return nil, err
	}

	return g, nil
}

func (s *Service) RemoveGuest(ctx context.Context, eventID, memberID string) error {
	g, err := s.guests.FindOne(ctx, &Guest{EventID: eventID, MemberID: memberID})
	if err != nil {
		return err
	}
	if g == nil {
		return errutil.NotFound("guest not found")
	}

	return s.db.WithContext(ctx).Delete(&Guest{}, "id = ?", g.ID).Error
}

func (s *Service) ListGuests(ctx context.Context, eventID string) ([]*Guest, error) {
	return s.guests.Find(ctx, &Guest{EventID: eventID})
}
