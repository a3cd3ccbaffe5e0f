package models

import "time"

// SubmissionReceipt represents submission_receipts table
type SubmissionReceipt struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"size:255;not null;index" json:"email"`
	CentreName string    `gorm:"size:255" json:"centre_name"`
	Saved      int       `gorm:"not null" json:"saved"`
	ItemCount  int       `gorm:"not null" json:"item_count"`
	DateUTC    string    `gorm:"column:date_utc;size:10" json:"date_utc"`
	TimeUTC    string    `gorm:"column:time_utc;size:8" json:"time_utc"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SubmissionReceipt) TableName() string {
	return "submission_receipts"
}

// AllModels returns the models migrated at start-up
func AllModels() []interface{} {
	return []interface{}{
		&SubmissionReceipt{},
	}
}
