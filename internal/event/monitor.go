package event

import (
	"sync"

	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/escrow"
	"github.com/blues/ess/internal/logger"
	"github.com/panjf2000/ants/v2"
)

// matchAll 注册到所有事件类型的通配键
const matchAll = "*"

// Processor 通知处理器
type Processor interface {
	Name() string
	Process(evt *escrow.Event) error
}

// Monitor 托管通知监控器，实现 escrow.Emitter
// 通知先进缓冲队列，再由协程池分发给注册的处理器
// 投递是 fire-and-forget：队列满时丢弃并告警，处理失败只记日志
type Monitor struct {
	queue      chan *escrow.Event
	pool       *ants.Pool
	mu         sync.RWMutex
	processors map[string][]Processor
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewMonitor 创建通知监控器
func NewMonitor(cfg config.MonitorConfig) (*Monitor, error) {
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		queue:      make(chan *escrow.Event, cfg.QueueSize),
		pool:       pool,
		processors: make(map[string][]Processor),
		stopCh:     make(chan struct{}),
	}, nil
}

// Register 注册指定事件类型的处理器
func (m *Monitor) Register(eventType string, p Processor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processors[eventType] = append(m.processors[eventType], p)
}

// RegisterAll 注册接收所有事件类型的处理器
func (m *Monitor) RegisterAll(p Processor) {
	m.Register(matchAll, p)
}

// Emit 实现 escrow.Emitter，非阻塞入队
func (m *Monitor) Emit(evt *escrow.Event) {
	if evt == nil {
		return
	}
	select {
	case m.queue <- evt:
	default:
		logger.Warn("Event queue full, dropping event %s for escrow %d", evt.Type, evt.EscrowID)
	}
}

// Start 启动分发循环
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case evt := <-m.queue:
				m.submit(evt)
			case <-m.stopCh:
				// 排空剩余通知后退出
				for {
					select {
					case evt := <-m.queue:
						m.submit(evt)
					default:
						return
					}
				}
			}
		}
	}()
	logger.Info("Event monitor started")
}

// Stop 停止分发并释放协程池
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	m.pool.Release()
	logger.Info("Event monitor stopped")
}

func (m *Monitor) submit(evt *escrow.Event) {
	if err := m.pool.Submit(func() { m.dispatch(evt) }); err != nil {
		logger.Error("Failed to submit event %s to pool: %v", evt.Type, err)
	}
}

func (m *Monitor) dispatch(evt *escrow.Event) {
	m.mu.RLock()
	targets := make([]Processor, 0, len(m.processors[evt.Type])+len(m.processors[matchAll]))
	targets = append(targets, m.processors[evt.Type]...)
	targets = append(targets, m.processors[matchAll]...)
	m.mu.RUnlock()

	for _, p := range targets {
		if err := p.Process(evt); err != nil {
			logger.Error("Processor %s failed on event %s for escrow %d: %v",
				p.Name(), evt.Type, evt.EscrowID, err)
		}
	}
}
