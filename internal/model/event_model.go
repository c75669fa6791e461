package model

import (
	"time"
)

// EventModel 托管通知记录
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EscrowId   int64  `json:"escrow_id" gorm:"not null;index"`
	EventType  string `json:"event_type" gorm:"not null"`
	Attributes string `json:"attributes" gorm:"type:text"` // 变更字段的JSON快照
	Processed  bool   `json:"processed" gorm:"default:false"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
