package main

import (
	"github.com/blues/ess/internal/chain"
	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/database"
	"github.com/blues/ess/internal/escrow"
	"github.com/blues/ess/internal/event"
	"github.com/blues/ess/internal/logger"
	"github.com/blues/ess/internal/router"
	"github.com/blues/ess/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	initLogger(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化金库合约客户端
	vault, err := chain.Init(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize chain client: %v", err)
	}

	// 初始化通知监控器
	monitor, err := event.NewMonitor(cfg.Monitor)
	if err != nil {
		logger.Fatal("Failed to initialize event monitor: %v", err)
	}
	monitor.RegisterAll(event.NewRecordProcessor(db))
	monitor.Register(escrow.EventTypeFunded, event.NewTransferProcessor(db))
	monitor.Register(escrow.EventTypeReleased, event.NewTransferProcessor(db))
	monitor.Register(escrow.EventTypeRefunded, event.NewTransferProcessor(db))
	monitor.Start()
	defer monitor.Stop()

	// 初始化托管状态机
	store := escrow.NewStore()
	store.SetEmitter(monitor)

	engine := escrow.NewEngine(store, vault, escrow.OperatorAuthorizer{
		Operator: cfg.Escrow.OperatorAddress,
	})
	engine.SetCustodyAddress(cfg.Escrow.CustodyAddress)
	engine.SetEmitter(monitor)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(store, engine)

	// 启动定时任务
	manager := task.Start(db, store, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// initLogger 按配置初始化默认日志器
func initLogger(cfg config.LogConfig) {
	level := logger.ParseLogLevel(cfg.Level)

	if cfg.Output == "file" && cfg.File != "" {
		l, err := logger.NewWithFileRotation(level, cfg.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(l)
		return
	}

	l, err := logger.New(level)
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}
