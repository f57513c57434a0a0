package models

import "time"

const (
	NotificationTypeInfo    = "info"
	NotificationTypeSuccess = "success"
	NotificationTypeWarning = "warning"
	NotificationTypeError   = "error"
)

type Notification struct {
	NotificationID      int        `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	UserID              string     `gorm:"column:user_id;size:64;index" json:"user_id"`
	Title               string     `gorm:"column:title" json:"title"`
	Message             string     `gorm:"column:message;type:text" json:"message"`
	Type                string     `gorm:"column:type;size:16" json:"type"` // info|success|warning|error
	RelatedSubmissionID *int       `gorm:"column:related_submission_id" json:"related_submission_id,omitempty"`
	IsRead              bool       `gorm:"column:is_read" json:"is_read"`
	CreateAt            time.Time  `gorm:"column:create_at" json:"created_at"`
	UpdateAt            *time.Time `gorm:"column:update_at" json:"-"`
}

func (Notification) TableName() string { return "notifications" }
