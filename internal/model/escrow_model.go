package model

import (
	"time"
)

// EscrowModel 托管记录镜像
// 权威状态在内存状态机中，本表由快照任务维护，供外部查询与审计
type EscrowModel struct {
	Id        int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string `json:"title" gorm:"not null"`
	Beneficiary string `json:"beneficiary" gorm:"not null"`
	Depositor   string `json:"depositor" gorm:"not null"`
	TotalAmount int64  `json:"total_amount" gorm:"not null"`

	// 状态标签：Completed 与 Refunded 互斥
	Funded    bool `json:"funded" gorm:"default:false"`
	Completed bool `json:"completed" gorm:"default:false"`
	Refunded  bool `json:"refunded" gorm:"default:false"`

	Progress   int        `json:"progress" gorm:"default:0"` // 已完成权重之和 0-100
	ResolvedAt *time.Time `json:"resolved_at"`
}

// TableName 自定义表名
func (EscrowModel) TableName() string {
	return "escrow"
}
