package member

import (
	"time"
)

type Role string

const (
	RoleRegular   Role = "regular"
	RoleCashier   Role = "cashier"
	RoleOrganizer Role = "organizer"
	RoleManager   Role = "manager"
	RoleSuperuser Role = "superuser"
)

var roleRank = map[Role]int{
	RoleRegular:   0,
	RoleCashier:   1,
	RoleOrganizer: 2,
	RoleManager:   3,
	RoleSuperuser: 4,
}

// AtLeast reports whether r carries the capability of want or higher.
func (r Role) AtLeast(want Role) bool {
	return roleRank[r] >= roleRank[want]
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Member carries identity and trust state. The point balance lives in the
// ledger service and is never written through this model.
type Member struct {
	ID         string    `gorm:"column:id;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
	Name       string    `gorm:"column:name;not null"`
	Email      string    `gorm:"column:email;uniqueIndex"`
	Verified   bool      `gorm:"column:verified;not null;default:false"`
	Suspicious bool      `gorm:"column:suspicious;not null;default:false"`
	Role       Role      `gorm:"column:role;type:varchar(20);not null;default:'regular'"`
}
