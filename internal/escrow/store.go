package escrow

import (
	"strings"
	"sync"
	"time"
)

// record 存储条目，每条记录携带独立的互斥锁
// 记录之间逻辑独立，跨记录不需要加锁
type record struct {
	mu  sync.Mutex
	esc *Escrow
}

// Store 托管记录的权威集合
// ID 从0开始顺序分配、永不复用；记录只增不删，终结后仍可查询（审计需要）
type Store struct {
	mu      sync.RWMutex
	records []*record
	emitter Emitter
	nowFn   func() time.Time
}

// NewStore 创建托管集合
func NewStore() *Store {
	return &Store{
		emitter: NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetEmitter 配置通知发射器，传入 nil 时重置为空实现
func (s *Store) SetEmitter(emitter Emitter) {
	if emitter == nil {
		s.emitter = NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetNowFunc 覆盖时间源，主要供测试使用
func (s *Store) SetNowFunc(now func() time.Time) {
	if now == nil {
		s.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	s.nowFn = now
}

// Create 校验并创建一条托管记录，返回分配的ID
// 任一校验失败时返回 ValidationError，不落任何部分记录
func (s *Store) Create(title, beneficiary, depositor string, totalAmount int64, specs []MilestoneSpec) (uint64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, newValidationError("title", "标题不能为空")
	}
	if strings.TrimSpace(beneficiary) == "" {
		return 0, newValidationError("beneficiary", "受益人不能为空")
	}
	if strings.TrimSpace(depositor) == "" {
		return 0, newValidationError("depositor", "存款人不能为空")
	}
	if totalAmount <= 0 {
		return 0, newValidationError("total_amount", "托管金额必须大于0")
	}
	if err := validateMilestoneSpecs(specs); err != nil {
		return 0, err
	}

	milestones := make([]Milestone, len(specs))
	for i, spec := range specs {
		milestones[i] = Milestone{
			Description: strings.TrimSpace(spec.Description),
			Weight:      spec.Weight,
		}
	}

	s.mu.Lock()
	esc := &Escrow{
		ID:          uint64(len(s.records)),
		Title:       strings.TrimSpace(title),
		Beneficiary: beneficiary,
		Depositor:   depositor,
		TotalAmount: totalAmount,
		Milestones:  milestones,
		CreatedAt:   s.nowFn(),
	}
	s.records = append(s.records, &record{esc: esc})
	s.mu.Unlock()

	s.emitter.Emit(NewCreatedEvent(esc))
	return esc.ID, nil
}

// Get 按ID获取托管记录的副本
func (s *Store) Get(id uint64) (*Escrow, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.esc.Clone(), nil
}

// GetMilestone 获取指定序号的里程碑副本
func (s *Store) GetMilestone(id uint64, index int) (*Milestone, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if index < 0 || index >= len(rec.esc.Milestones) {
		return nil, ErrMilestoneIndexInvalid
	}
	m := rec.esc.Milestones[index]
	return &m, nil
}

// Count 历史累计创建的记录数，单调不减
func (s *Store) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.records))
}

// List 返回全部记录的副本，按ID升序
func (s *Store) List() []*Escrow {
	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()

	result := make([]*Escrow, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		result = append(result, rec.esc.Clone())
		rec.mu.Unlock()
	}
	return result
}

// mutate 在记录锁内执行检查和变更，供引擎使用
// fn 返回错误时不得改动记录
func (s *Store) mutate(id uint64, fn func(*Escrow) error) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return fn(rec.esc)
}

func (s *Store) record(id uint64) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.records)) {
		return nil, ErrEscrowNotFound
	}
	return s.records[id], nil
}
