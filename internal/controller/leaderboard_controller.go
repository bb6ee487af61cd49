package controller

import (
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	LeaderboardService *service.LeaderboardService
}

func NewLeaderboardController(leaderboardService *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{LeaderboardService: leaderboardService}
}

// GetLeaderboard godoc
// @Summary XP 排行榜
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数，默认 10"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /leaderboard [get]
func (c *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	limit := util.ParseLimit(ctx.Query("limit"), 10, 0)
	entries, err := c.LeaderboardService.Top(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
