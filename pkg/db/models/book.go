package models

import "time"

// Book is a catalog entry. IsAvailable is owned by the reservation ledger.
type Book struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string    `gorm:"column:title;type:varchar(100);not null;uniqueIndex:books_title_author_key,priority:1"`
	Author      string    `gorm:"column:author;type:varchar(50);not null;uniqueIndex:books_title_author_key,priority:2"`
	Genre       *string   `gorm:"column:genre;type:varchar(30)"`
	IsAvailable bool      `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Book) TableName() string { return "books" }
