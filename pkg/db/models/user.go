package models

import "time"

// User represents a library patron.
type User struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email     string    `gorm:"column:email;type:varchar(50);not null;uniqueIndex"`
	Name      *string   `gorm:"column:name;type:varchar(50)"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string { return "users" }
