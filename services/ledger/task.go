package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-controlplane/pkg/rediskey"
)

const (
	// TaskSuspiciousReview is enqueued whenever a suspicious cashier records
	// a purchase, so review tooling can pick the case up out of band.
	TaskSuspiciousReview = "ledger:suspicious_review"
)

type SuspiciousReviewPayload struct {
	TransactionID string `json:"transaction_id"`
	CashierID     string `json:"cashier_id"`
}

func NewSuspiciousReviewTask(transactionID, cashierID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SuspiciousReviewPayload{
		TransactionID: transactionID,
		CashierID:     cashierID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSuspiciousReview, payload, asynq.Queue("default")), nil
}

var TaskModule = fx.Module("task.ledger",
	fx.Provide(NewTask),
	fx.Invoke(registerTaskHandlers),
)

type Task struct {
	db    *gorm.DB
	redis *redis.Client
}

type TaskParams struct {
	fx.In

	DB    *gorm.DB
	Redis *redis.Client
}

func NewTask(p TaskParams) *Task {
	return &Task{
		db:    p.DB,
		redis: p.Redis,
	}
}

func registerTaskHandlers(mux *asynq.ServeMux, t *Task) {
	mux.HandleFunc(TaskSuspiciousReview, t.HandleSuspiciousReviewTask)
}

// HandleSuspiciousReviewTask bumps the per-cashier suspicious purchase
// counter that review tooling reads. The counter is advisory; the ledger
// record itself is the source of truth.
func (s *Task) HandleSuspiciousReviewTask(ctx context.Context, t *asynq.Task) error {
	var payload SuspiciousReviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("transaction_id", payload.TransactionID),
		zap.String("cashier_id", payload.CashierID),
	)

	var record Transaction
	if err := s.db.WithContext(ctx).
		Where("id = ?", payload.TransactionID).
		First(&record).Error; err != nil {
		zapLog.Error("failed to find flagged transaction", zap.Error(err))
		return err
	}

	key := rediskey.BuildCashierSuspectsKey(payload.CashierID)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		zapLog.Error("failed to bump suspicious counter", zap.Error(err))
		return err
	}

	zapLog.Info("suspicious purchase recorded for review",
		zap.Int64("amount", record.Amount),
		zap.Int64("cashier_suspect_count", count),
	)
	return nil
}
