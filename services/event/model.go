package event

import (
	"time"
)

// Event owns a fixed point pool partitioned into remaining and awarded
// counters. The counters move only inside the ledger's atomic unit.
type Event struct {
	ID            string    `gorm:"column:id;primaryKey"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
	Name          string    `gorm:"column:name;not null"`
	Location      string    `gorm:"column:location"`
	StartsAt      time.Time `gorm:"column:starts_at;not null"`
	EndsAt        time.Time `gorm:"column:ends_at;not null"`
	Capacity      int       `gorm:"column:capacity;not null"`
	PointsRemain  int64     `gorm:"column:points_remain;not null"`
	PointsAwarded int64     `gorm:"column:points_awarded;not null;default:0"`
}

type Guest struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	EventID   string    `gorm:"column:event_id;index:idx_guest_event_member,unique;not null"`
	MemberID  string    `gorm:"column:member_id;index:idx_guest_event_member,unique;not null"`
}
