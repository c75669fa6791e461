package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/ess/internal/escrow"
	"github.com/gin-gonic/gin"
)

// EscrowHandler 托管接口
type EscrowHandler struct {
	store  *escrow.Store
	engine *escrow.Engine
}

// NewEscrowHandler 创建托管接口
func NewEscrowHandler(store *escrow.Store, engine *escrow.Engine) *EscrowHandler {
	return &EscrowHandler{store: store, engine: engine}
}

// CreateEscrow 创建托管
func (h *EscrowHandler) CreateEscrow(c *gin.Context) {
	var req CreateEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.Create(req.Title, req.Beneficiary, req.Depositor, req.TotalAmount, req.Specs())
	if err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	esc, err := h.store.Get(id)
	if err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "托管创建成功", esc)
}

// GetEscrows 获取托管列表
func (h *EscrowHandler) GetEscrows(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "", gin.H{
		"escrows": h.store.List(),
		"total":   h.store.Count(),
	})
}

// GetEscrow 获取单个托管详情
func (h *EscrowHandler) GetEscrow(c *gin.Context) {
	id, ok := h.escrowId(c)
	if !ok {
		return
	}

	esc, err := h.store.Get(id)
	if err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", esc)
}

// GetMilestone 获取单个里程碑
func (h *EscrowHandler) GetMilestone(c *gin.Context) {
	id, ok := h.escrowId(c)
	if !ok {
		return
	}
	index, ok := h.milestoneIndex(c)
	if !ok {
		return
	}

	m, err := h.store.GetMilestone(id, index)
	if err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", m)
}

// GetProgress 获取托管进度
func (h *EscrowHandler) GetProgress(c *gin.Context) {
	id, ok := h.escrowId(c)
	if !ok {
		return
	}

	esc, err := h.store.Get(id)
	if err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", ProgressResponse{
		EscrowId:       esc.ID,
		Progress:       esc.Progress(),
		MilestoneCount: len(esc.Milestones),
		AllCompleted:   esc.AllMilestonesCompleted(),
	})
}

// FundEscrow 存款人注资
func (h *EscrowHandler) FundEscrow(c *gin.Context) {
	id, ok := h.escrowId(c)
	if !ok {
		return
	}
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Fund(id, req.Caller); err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "注资成功", nil)
}

// CompleteMilestone 运营者标记里程碑完成
func (h *EscrowHandler) CompleteMilestone(c *gin.Context) {
	id, ok := h.escrowId(c)
	if !ok {
		return
	}
	index, ok := h.milestoneIndex(c)
	if !ok {
		return
	}
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.CompleteMilestone(id, index, req.Caller); err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "里程碑已完成", nil)
}

// ReleaseEscrow 释放全额给受益人
func (h *EscrowHandler) ReleaseEscrow(c *gin.Context) {
	id, ok := h.escrowId(c)
	if !ok {
		return
	}
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Release(id, req.Caller); err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "资金已释放", nil)
}

// RefundEscrow 退款给存款人
func (h *EscrowHandler) RefundEscrow(c *gin.Context) {
	id, ok := h.escrowId(c)
	if !ok {
		return
	}
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Refund(id, req.Caller); err != nil {
		EscrowErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "已退款", nil)
}

func (h *EscrowHandler) escrowId(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的托管ID")
		return 0, false
	}
	return id, true
}

func (h *EscrowHandler) milestoneIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的里程碑序号")
		return 0, false
	}
	return index, true
}
