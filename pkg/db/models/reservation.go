package models

import "time"

// Reservation ties a book to a user for a period. A reservation moves from
// active to returned exactly once.
type Reservation struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	BookID     int64      `gorm:"column:book_id;not null;index"`
	UserID     int64      `gorm:"column:user_id;not null;index"`
	ReservedAt time.Time  `gorm:"column:reserved_at;not null"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	IsReturned bool       `gorm:"column:is_returned;not null;default:false"`
	ReturnedAt *time.Time `gorm:"column:returned_at"`
	Book       *Book      `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Reservation) TableName() string { return "reservations" }
