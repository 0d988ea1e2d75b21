package main

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/config"
	"rewards-controlplane/pkg/db"
	"rewards-controlplane/services/event"
	"rewards-controlplane/services/ledger"
	"rewards-controlplane/services/member"
	"rewards-controlplane/services/promotion"
)

// Seeds a development database with a handful of members, an active
// promotion of each type and an event with a reward pool.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	zap.ReplaceGlobals(logger)

	cfg := config.LoadConfig()
	conn := db.New(cfg, db.Dialect(cfg))

	if err := conn.AutoMigrate(
		&member.Member{},
		&promotion.Promotion{},
		&promotion.Usage{},
		&event.Event{},
		&event.Guest{},
		&ledger.Transaction{},
		&ledger.Balance{},
	); err != nil {
		zap.L().Fatal("migration failed", zap.Error(err))
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		zap.L().Fatal("failed to create snowflake node", zap.Error(err))
	}

	ctx := context.Background()
	if err := seed(ctx, conn, node); err != nil {
		zap.L().Fatal("seed failed", zap.Error(err))
	}
	zap.L().Info("seed complete")
}

func seed(ctx context.Context, conn *gorm.DB, node *snowflake.Node) error {
	members := member.NewService(member.ServiceParams{DB: conn, Node: node})
	promotions := promotion.NewService(promotion.ServiceParams{DB: conn, Node: node})
	events := event.NewService(event.ServiceParams{DB: conn, Node: node})

	seedMembers := []struct {
		name string
		role member.Role
	}{
		{"Dana Manager", member.RoleManager},
		{"Casey Cashier", member.RoleCashier},
		{"Olive Organizer", member.RoleOrganizer},
		{"Rae Regular", member.RoleRegular},
	}

	var regularID string
	for _, sm := range seedMembers {
		m, err := members.CreateMember(ctx, member.CreateMemberRequest{
			Name:  sm.name,
			Email: string(sm.role) + "@example.com",
			Role:  sm.role,
		})
		if err != nil {
			return err
		}
		if _, err := members.SetVerified(ctx, m.ID, true); err != nil {
			return err
		}
		if sm.role == member.RoleRegular {
			regularID = m.ID
		}
	}

	now := time.Now()
	if _, err := promotions.CreatePromotion(ctx, promotion.CreatePromotionRequest{
		Name:     "Grand Opening Double Points",
		Type:     promotion.TypeAutomatic,
		StartsAt: now,
		EndsAt:   now.AddDate(0, 1, 0),
		Rate:     decimal.NewNullDecimal(decimal.RequireFromString("0.04")),
	}); err != nil {
		return err
	}

	welcome, err := promotions.CreatePromotion(ctx, promotion.CreatePromotionRequest{
		Name:        "Welcome Bonus",
		Type:        promotion.TypeOneTime,
		StartsAt:    now,
		EndsAt:      now.AddDate(1, 0, 0),
		MinSpending: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Points:      100,
	})
	if err != nil {
		return err
	}
	if _, err := promotions.Assign(ctx, welcome.ID, regularID); err != nil {
		return err
	}

	e, err := events.CreateEvent(ctx, event.CreateEventRequest{
		Name:     "Launch Party",
		Location: "Main Hall",
		StartsAt: now.AddDate(0, 0, 7),
		EndsAt:   now.AddDate(0, 0, 7).Add(4 * time.Hour),
		Capacity: 50,
		Points:   5000,
	})
	if err != nil {
		return err
	}
	if _, err := events.AddGuest(ctx, e.ID, regularID); err != nil {
		return err
	}

	return nil
}
