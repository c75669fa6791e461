package handler

import (
	"github.com/blues/ess/internal/escrow"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// MilestoneSpecRequest 创建请求中的里程碑定义
type MilestoneSpecRequest struct {
	Description string `json:"description" binding:"required"`
	Weight      int    `json:"weight" binding:"required"`
}

// CreateEscrowRequest 创建托管请求
type CreateEscrowRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Beneficiary string                 `json:"beneficiary" binding:"required"`
	Depositor   string                 `json:"depositor" binding:"required"`
	TotalAmount int64                  `json:"total_amount" binding:"required"`
	Milestones  []MilestoneSpecRequest `json:"milestones" binding:"required"`
}

// Specs 转换为领域层的里程碑定义
func (r *CreateEscrowRequest) Specs() []escrow.MilestoneSpec {
	specs := make([]escrow.MilestoneSpec, len(r.Milestones))
	for i, m := range r.Milestones {
		specs[i] = escrow.MilestoneSpec{Description: m.Description, Weight: m.Weight}
	}
	return specs
}

// CallerRequest 携带调用方身份的变更请求
// 身份校验由外部协作方负责，这里只透传 caller 地址
type CallerRequest struct {
	Caller string `json:"caller" binding:"required"`
}

// ProgressResponse 进度查询响应
type ProgressResponse struct {
	EscrowId       uint64 `json:"escrow_id"`
	Progress       int    `json:"progress"` // 0-100
	MilestoneCount int    `json:"milestone_count"`
	AllCompleted   bool   `json:"all_completed"`
}
