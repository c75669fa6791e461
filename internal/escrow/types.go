package escrow

import (
	"strings"
	"time"
)

// Milestone 单个交付节点
type Milestone struct {
	Description string    `json:"description"`
	Weight      int       `json:"weight"` // 占总金额的百分比
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

// MilestoneSpec 创建托管时的里程碑定义，创建后不可增删改
type MilestoneSpec struct {
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

// Escrow 一笔托管合约实例
// Funded/Completed/Refunded 三个布尔构成状态标签：
// Completed 与 Refunded 永远互斥，且二者任一为真时 Funded 必为真
type Escrow struct {
	ID          uint64      `json:"id"`
	Title       string      `json:"title"`
	Beneficiary string      `json:"beneficiary"`
	Depositor   string      `json:"depositor"`
	TotalAmount int64       `json:"total_amount"` // 创建时固定，永不变更
	Milestones  []Milestone `json:"milestones"`
	Funded      bool        `json:"funded"`
	Completed   bool        `json:"completed"`
	Refunded    bool        `json:"refunded"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt time.Time   `json:"completed_at"` // release/refund 二者之一写入一次
}

// Clone 深拷贝，调用方可以安全改动副本而不影响存储中的实例
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if len(e.Milestones) > 0 {
		clone.Milestones = make([]Milestone, len(e.Milestones))
		copy(clone.Milestones, e.Milestones)
	}
	return &clone
}

// Resolved 托管是否已经终结（释放或退款）
func (e *Escrow) Resolved() bool {
	return e.Completed || e.Refunded
}

// Progress 已完成里程碑的权重之和，0-100，随完成单调不减
func (e *Escrow) Progress() int {
	total := 0
	for _, m := range e.Milestones {
		if m.Completed {
			total += m.Weight
		}
	}
	return total
}

// AllMilestonesCompleted 是否所有里程碑均已完成
func (e *Escrow) AllMilestonesCompleted() bool {
	return e.FirstIncompleteMilestone() < 0
}

// FirstIncompleteMilestone 返回第一个未完成里程碑的序号，全部完成时返回 -1
func (e *Escrow) FirstIncompleteMilestone() int {
	for i, m := range e.Milestones {
		if !m.Completed {
			return i
		}
	}
	return -1
}

// validateMilestoneSpecs 校验里程碑定义：非空、每项权重大于0、权重之和等于100
func validateMilestoneSpecs(specs []MilestoneSpec) error {
	if len(specs) == 0 {
		return newValidationError("milestones", "至少需要一个里程碑")
	}
	sum := 0
	for _, spec := range specs {
		if strings.TrimSpace(spec.Description) == "" {
			return newValidationError("milestones.description", "里程碑描述不能为空")
		}
		if spec.Weight <= 0 {
			return newValidationError("milestones.weight", "里程碑权重必须大于0")
		}
		sum += spec.Weight
	}
	if sum != 100 {
		return newValidationError("milestones.weight", "里程碑权重之和必须等于100")
	}
	return nil
}
