package model

import (
	"time"
)

// TransferRecordModel 资金转移记录
// 每次成功的注资/释放/退款在通知处理时落一条，供审计核对
type TransferRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EscrowId  int64  `json:"escrow_id" gorm:"not null;index"`
	Direction string `json:"direction" gorm:"not null"` // pull, push
	Address   string `json:"address" gorm:"not null"`   // 对手方地址
	Amount    int64  `json:"amount" gorm:"not null"`
	Reason    string `json:"reason" gorm:"not null"` // fund, release, refund
}

// TransferDirection 转移方向
type TransferDirection string

const (
	TransferDirectionPull TransferDirection = "pull" // 外部余额划入托收账户
	TransferDirectionPush TransferDirection = "push" // 托收账户划出
)

// TableName 自定义表名
func (TransferRecordModel) TableName() string {
	return "transfer_record"
}
