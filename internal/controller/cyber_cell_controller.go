package controller

import (
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultNearestLimit = 5
	maxNearestLimit     = 20
)

type CyberCellController struct {
	LocatorService *service.LocatorService
}

func NewCyberCellController(locator *service.LocatorService) *CyberCellController {
	return &CyberCellController{LocatorService: locator}
}

// Nearest godoc
// @Summary 查找最近的网络犯罪报案点
// @Description 按大圆距离排序，同时记一次 cyber_cell_locator 工具使用
// @Tags 工具
// @Produce json
// @Security ApiKeyAuth
// @Param lat query number true "纬度"
// @Param lng query number true "经度"
// @Param limit query int false "返回数量" default(5)
// @Success 200 {object} util.Response{data=service.NearestResult}
// @Failure 400 {object} util.Response
// @Router /cyber-cells/nearest [get]
func (c *CyberCellController) Nearest(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		util.BadRequest(ctx, "invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		util.BadRequest(ctx, "invalid lng")
		return
	}
	limit := util.ParseLimit(ctx.Query("limit"), defaultNearestLimit, maxNearestLimit)

	res, err := c.LocatorService.Nearest(ctx.Request.Context(), userID, lat, lng, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// List godoc
// @Summary 报案点列表
// @Tags 工具
// @Produce json
// @Security ApiKeyAuth
// @Param state query string false "邦/州"
// @Success 200 {object} util.Response{data=[]model.CyberCell}
// @Router /cyber-cells [get]
func (c *CyberCellController) List(ctx *gin.Context) {
	cells, err := c.LocatorService.List(ctx.Request.Context(), ctx.Query("state"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, cells)
}
