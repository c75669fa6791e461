package event

import (
	"encoding/json"
	"fmt"

	"github.com/blues/ess/internal/escrow"
	"github.com/blues/ess/internal/model"
	"gorm.io/gorm"
)

// RecordProcessor 把每条托管通知落库，形成审计事件流
type RecordProcessor struct {
	db *gorm.DB
}

// NewRecordProcessor 创建事件落库处理器
func NewRecordProcessor(db *gorm.DB) *RecordProcessor {
	return &RecordProcessor{db: db}
}

// Name 处理器名称
func (p *RecordProcessor) Name() string {
	return "event_recorder"
}

// Process 序列化通知属性并写入事件表
func (p *RecordProcessor) Process(evt *escrow.Event) error {
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal event attributes: %w", err)
	}

	record := model.EventModel{
		EscrowId:   int64(evt.EscrowID),
		EventType:  evt.Type,
		Attributes: string(attrs),
		Processed:  true,
	}
	if err := p.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to persist event record: %w", err)
	}

	return nil
}
