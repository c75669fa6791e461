package escrow

import (
	"fmt"
	"time"
)

// TransferPort 外部价值转移接口
// Pull 把金额从 from 的外部余额划入托管托收账户，需要 from 事先在外部完成授权
// Push 把金额从托管托收账户划给 to
// 两者失败时都不得遗留任何托管状态变更
type TransferPort interface {
	Pull(from, to string, amount int64) error
	Push(to string, amount int64) error
}

// Authorizer 运营者权限校验口，在构造时注入以便测试替换身份
type Authorizer interface {
	IsOperator(caller string) bool
}

// OperatorAuthorizer 单一运营者地址的权限实现
type OperatorAuthorizer struct {
	Operator string
}

func (a OperatorAuthorizer) IsOperator(caller string) bool {
	return caller != "" && caller == a.Operator
}

// Engine 托管生命周期引擎，负责状态机转移与两段式转账协议
// 状态机（单条记录）：Created → Funded → {Released | Refunded}
//
// 并发纪律：所有门控转账的状态位必须在发起外部转账调用之前置位，
// 这样转账回调重入时会被同一套前置检查拒绝；转账失败则回滚状态位，
// 对外表现为整个操作原子地未发生
type Engine struct {
	store   *Store
	port    TransferPort
	auth    Authorizer
	custody string // 托收账户地址，Pull 的入账方
	emitter Emitter
	nowFn   func() time.Time
}

// NewEngine 创建生命周期引擎
func NewEngine(store *Store, port TransferPort, auth Authorizer) *Engine {
	return &Engine{
		store:   store,
		port:    port,
		auth:    auth,
		emitter: NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetEmitter 配置通知发射器，传入 nil 时重置为空实现
func (e *Engine) SetEmitter(emitter Emitter) {
	if emitter == nil {
		e.emitter = NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc 覆盖时间源，主要供测试使用
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// SetCustodyAddress 配置托收账户地址
func (e *Engine) SetCustodyAddress(addr string) { e.custody = addr }

// Fund 存款人注资
// 先置 Funded 再发起 Pull：重入的第二次 Fund 会命中 ErrAlreadyFunded；
// Pull 失败则回滚 Funded，保持可重试
func (e *Engine) Fund(id uint64, caller string) error {
	var esc *Escrow
	err := e.store.mutate(id, func(rec *Escrow) error {
		if caller != rec.Depositor {
			return ErrUnauthorized
		}
		if rec.Funded {
			return ErrAlreadyFunded
		}
		if rec.Resolved() {
			return ErrInvalidState
		}
		rec.Funded = true
		esc = rec.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.port.Pull(caller, e.custody, esc.TotalAmount); err != nil {
		e.rollback(id, func(rec *Escrow) { rec.Funded = false })
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.emit(NewFundedEvent(esc))
	return nil
}

// CompleteMilestone 运营者标记里程碑完成
// 里程碑之间没有顺序约束，托管未终结期间任意未完成项都可完成
func (e *Engine) CompleteMilestone(id uint64, index int, caller string) error {
	var esc *Escrow
	err := e.store.mutate(id, func(rec *Escrow) error {
		if !e.auth.IsOperator(caller) {
			return ErrUnauthorized
		}
		if !rec.Funded {
			return ErrNotFunded
		}
		if rec.Resolved() {
			return ErrAlreadyResolved
		}
		if index < 0 || index >= len(rec.Milestones) {
			return ErrMilestoneIndexInvalid
		}
		m := &rec.Milestones[index]
		if m.Completed {
			return ErrMilestoneCompleted
		}
		m.Completed = true
		m.CompletedAt = e.nowFn()
		esc = rec.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	e.emit(NewMilestoneCompletedEvent(esc, index))
	return nil
}

// Release 全部里程碑完成后，运营者一次性释放全额给受益人
// Completed 与 CompletedAt 在发起 Push 之前写入，这是核心防重入手段：
// 转账回调期间重入的 Release/Refund 会观察到 Completed==true 而被拒绝，
// 因此无论收款方重入多少次，每条记录至多发生一次转账
func (e *Engine) Release(id uint64, caller string) error {
	var esc *Escrow
	err := e.store.mutate(id, func(rec *Escrow) error {
		if !e.auth.IsOperator(caller) {
			return ErrUnauthorized
		}
		if !rec.Funded {
			return ErrNotFunded
		}
		if rec.Resolved() {
			return ErrAlreadyResolved
		}
		if idx := rec.FirstIncompleteMilestone(); idx >= 0 {
			return fmt.Errorf("%w: 序号 %d", ErrMilestonesIncomplete, idx)
		}
		rec.Completed = true
		rec.CompletedAt = e.nowFn()
		esc = rec.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.port.Push(esc.Beneficiary, esc.TotalAmount); err != nil {
		e.rollback(id, func(rec *Escrow) {
			rec.Completed = false
			rec.CompletedAt = time.Time{}
		})
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.emit(NewReleasedEvent(esc))
	return nil
}

// Refund 终结前把全额退还存款人，不要求里程碑完成
// 状态位先行与失败回滚的纪律与 Release 完全一致
func (e *Engine) Refund(id uint64, caller string) error {
	var esc *Escrow
	err := e.store.mutate(id, func(rec *Escrow) error {
		if !e.auth.IsOperator(caller) {
			return ErrUnauthorized
		}
		if !rec.Funded {
			return ErrNotFunded
		}
		if rec.Resolved() {
			return ErrAlreadyResolved
		}
		rec.Refunded = true
		rec.CompletedAt = e.nowFn()
		esc = rec.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.port.Push(esc.Depositor, esc.TotalAmount); err != nil {
		e.rollback(id, func(rec *Escrow) {
			rec.Refunded = false
			rec.CompletedAt = time.Time{}
		})
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.emit(NewRefundedEvent(esc))
	return nil
}

// GetEscrow 查询托管记录
func (e *Engine) GetEscrow(id uint64) (*Escrow, error) {
	return e.store.Get(id)
}

// GetMilestone 查询单个里程碑
func (e *Engine) GetMilestone(id uint64, index int) (*Milestone, error) {
	return e.store.GetMilestone(id, index)
}

// MilestoneCount 里程碑数量
func (e *Engine) MilestoneCount(id uint64) (int, error) {
	esc, err := e.store.Get(id)
	if err != nil {
		return 0, err
	}
	return len(esc.Milestones), nil
}

// GetProgress 已完成里程碑权重之和（0-100）
func (e *Engine) GetProgress(id uint64) (int, error) {
	esc, err := e.store.Get(id)
	if err != nil {
		return 0, err
	}
	return esc.Progress(), nil
}

// AllMilestonesCompleted 是否全部里程碑已完成
func (e *Engine) AllMilestonesCompleted(id uint64) (bool, error) {
	esc, err := e.store.Get(id)
	if err != nil {
		return false, err
	}
	return esc.AllMilestonesCompleted(), nil
}

// rollback 转账失败后撤销已置位的状态标志
// 记录必然存在（刚刚成功 mutate 过），忽略查找错误
func (e *Engine) rollback(id uint64, fn func(*Escrow)) {
	_ = e.store.mutate(id, func(rec *Escrow) error {
		fn(rec)
		return nil
	})
}

func (e *Engine) emit(evt *Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}
