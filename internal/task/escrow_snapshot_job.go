package task

import (
	"errors"
	"time"

	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/escrow"
	"github.com/blues/ess/internal/logger"
	"github.com/blues/ess/internal/model"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// EscrowSnapshotJob 托管快照任务
// 周期性把内存状态机中的记录镜像到数据库，供外部查询与审计
// 权威状态始终在状态机一侧，本任务只写不读
type EscrowSnapshotJob struct {
	db     *gorm.DB
	store  *escrow.Store
	config *config.Config
}

// NewEscrowSnapshotJob 创建托管快照任务
func NewEscrowSnapshotJob(db *gorm.DB, store *escrow.Store, cfg *config.Config) *EscrowSnapshotJob {
	return &EscrowSnapshotJob{
		db:     db,
		store:  store,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *EscrowSnapshotJob) GetName() string {
	return "escrow_snapshot_updater"
}

// GetSchedule 获取调度配置
func (j *EscrowSnapshotJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *EscrowSnapshotJob) Execute() {
	logger.Debug("Starting escrow snapshot task")

	snapshotCount := 0
	for _, esc := range j.store.List() {
		if err := j.snapshotEscrow(esc); err != nil {
			logger.Error("Failed to snapshot escrow %d: %v", esc.ID, err)
			continue
		}
		snapshotCount++
	}

	logger.Debug("Escrow snapshot task completed. Mirrored %d records", snapshotCount)
}

// snapshotEscrow 镜像单条托管记录及其里程碑
func (j *EscrowSnapshotJob) snapshotEscrow(esc *escrow.Escrow) error {
	record := model.EscrowModel{
		Id:          int64(esc.ID),
		Title:       esc.Title,
		Beneficiary: esc.Beneficiary,
		Depositor:   esc.Depositor,
		TotalAmount: esc.TotalAmount,
		Funded:      esc.Funded,
		Completed:   esc.Completed,
		Refunded:    esc.Refunded,
		Progress:    esc.Progress(),
	}
	if !esc.CompletedAt.IsZero() {
		resolvedAt := esc.CompletedAt
		record.ResolvedAt = &resolvedAt
	}

	// 主键固定为托管ID，Save 即为 upsert
	if err := j.db.Save(&record).Error; err != nil {
		return err
	}

	for i, m := range esc.Milestones {
		if err := j.snapshotMilestone(int64(esc.ID), i, m); err != nil {
			return err
		}
	}

	return nil
}

// snapshotMilestone 镜像单个里程碑，按 (escrow_id, idx) 更新或插入
func (j *EscrowSnapshotJob) snapshotMilestone(escrowId int64, idx int, m escrow.Milestone) error {
	updates := map[string]interface{}{
		"description": m.Description,
		"weight":      m.Weight,
		"completed":   m.Completed,
	}
	if !m.CompletedAt.IsZero() {
		completedAt := m.CompletedAt
		updates["completed_at"] = &completedAt
	}

	var existing model.MilestoneModel
	err := j.db.Where("escrow_id = ? AND idx = ?", escrowId, idx).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := model.MilestoneModel{
			EscrowId:    escrowId,
			Idx:         idx,
			Description: m.Description,
			Weight:      m.Weight,
			Completed:   m.Completed,
		}
		if !m.CompletedAt.IsZero() {
			completedAt := m.CompletedAt
			record.CompletedAt = &completedAt
		}
		return j.db.Create(&record).Error
	}
	if err != nil {
		return err
	}

	return j.db.Model(&existing).Updates(updates).Error
}
