package controller

import (
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ToolController struct {
	FraudService *service.FraudAnalysisService
}

func NewToolController(fraud *service.FraudAnalysisService) *ToolController {
	return &ToolController{FraudService: fraud}
}

type CheckURLRequest struct {
	URL string `json:"url" binding:"required,max=2048"`
}

type CheckMessageRequest struct {
	Text string `json:"text" binding:"required,max=5000"`
}

// CheckURL godoc
// @Summary 钓鱼链接检测
// @Tags 工具
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CheckURLRequest true "待检测链接"
// @Success 200 {object} util.Response{data=service.RiskReport}
// @Failure 400 {object} util.Response
// @Router /tools/url-check [post]
func (c *ToolController) CheckURL(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CheckURLRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	report, err := c.FraudService.CheckURL(ctx.Request.Context(), userID, req.URL)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// CheckMessage godoc
// @Summary 诈骗短信检测
// @Tags 工具
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CheckMessageRequest true "短信内容"
// @Success 200 {object} util.Response{data=service.RiskReport}
// @Router /tools/message-check [post]
func (c *ToolController) CheckMessage(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CheckMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, c.FraudService.CheckMessage(ctx.Request.Context(), userID, req.Text))
}
