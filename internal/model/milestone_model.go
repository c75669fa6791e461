package model

import (
	"time"
)

// MilestoneModel 里程碑镜像，按 (escrow_id, idx) 唯一
type MilestoneModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EscrowId    int64      `json:"escrow_id" gorm:"not null;uniqueIndex:uk_escrow_idx"`
	Idx         int        `json:"idx" gorm:"not null;uniqueIndex:uk_escrow_idx"`
	Description string     `json:"description" gorm:"not null"`
	Weight      int        `json:"weight" gorm:"not null"` // 占总金额的百分比
	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TableName 自定义表名
func (MilestoneModel) TableName() string {
	return "milestone"
}
