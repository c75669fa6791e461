package task

import (
	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/escrow"
	"github.com/blues/ess/internal/logger"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// TaskManager 任务管理器
type TaskManager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	store     *escrow.Store
	config    *config.Config
}

// NewTaskManager 创建新的任务管理器
func NewTaskManager(db *gorm.DB, store *escrow.Store, cfg *config.Config) *TaskManager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &TaskManager{
		scheduler: s,
		db:        db,
		store:     store,
		config:    cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, store *escrow.Store, cfg *config.Config) *TaskManager {
	manager := NewTaskManager(db, store, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *TaskManager) RegisterJobs() {
	// 注册托管快照任务
	m.RegisterEscrowSnapshotJob()
}

// RegisterEscrowSnapshotJob 注册托管快照任务
func (m *TaskManager) RegisterEscrowSnapshotJob() {
	job := NewEscrowSnapshotJob(m.db, m.store, m.config)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *TaskManager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
