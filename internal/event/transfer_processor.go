package event

import (
	"fmt"
	"strconv"

	"github.com/blues/ess/internal/escrow"
	"github.com/blues/ess/internal/model"
	"gorm.io/gorm"
)

// TransferProcessor 把注资/释放/退款通知转成资金转移记录，供审计核对
type TransferProcessor struct {
	db *gorm.DB
}

// NewTransferProcessor 创建转移记录处理器
func NewTransferProcessor(db *gorm.DB) *TransferProcessor {
	return &TransferProcessor{db: db}
}

// Name 处理器名称
func (p *TransferProcessor) Name() string {
	return "transfer_recorder"
}

// Process 只处理伴随转账的三种终态通知，其余类型忽略
func (p *TransferProcessor) Process(evt *escrow.Event) error {
	var record model.TransferRecordModel

	switch evt.Type {
	case escrow.EventTypeFunded:
		record = model.TransferRecordModel{
			Direction: string(model.TransferDirectionPull),
			Address:   evt.Attributes["depositor"],
			Reason:    "fund",
		}
	case escrow.EventTypeReleased:
		record = model.TransferRecordModel{
			Direction: string(model.TransferDirectionPush),
			Address:   evt.Attributes["beneficiary"],
			Reason:    "release",
		}
	case escrow.EventTypeRefunded:
		record = model.TransferRecordModel{
			Direction: string(model.TransferDirectionPush),
			Address:   evt.Attributes["depositor"],
			Reason:    "refund",
		}
	default:
		return nil
	}

	amount, err := strconv.ParseInt(evt.Attributes["total_amount"], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid total_amount in %s event: %w", evt.Type, err)
	}
	record.EscrowId = int64(evt.EscrowID)
	record.Amount = amount

	if err := p.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to persist transfer record: %w", err)
	}

	return nil
}
