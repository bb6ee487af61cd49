package controller

import (
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	BadgeService *service.BadgeService
}

func NewBadgeController(badgeService *service.BadgeService) *BadgeController {
	return &BadgeController{BadgeService: badgeService}
}

type FavoriteRequest struct {
	IsFavorite *bool `json:"isFavorite" binding:"required"`
}

type BadgeActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// GetCatalog godoc
// @Summary 徽章目录
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /badges [get]
func (c *BadgeController) GetCatalog(ctx *gin.Context) {
	badges, err := c.BadgeService.Catalog(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// GetMyBadges godoc
// @Summary 当前用户已获得的徽章
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.UserBadgeView}
// @Router /badges/me [get]
func (c *BadgeController) GetMyBadges(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	badges, err := c.BadgeService.Earned(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// SetFavorite godoc
// @Summary 收藏或取消收藏徽章
// @Tags 徽章
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "徽章名称"
// @Param body body FavoriteRequest true "是否收藏"
// @Success 200 {object} util.Response{data=service.UserBadgeView}
// @Failure 404 {object} util.Response
// @Router /badges/{name}/favorite [patch]
func (c *BadgeController) SetFavorite(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req FavoriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.BadgeService.SetFavorite(ctx.Request.Context(), userID, ctx.Param("name"), *req.IsFavorite)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// AdminListBadges godoc
// @Summary 全部徽章（含停用）
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /admin/badges [get]
func (c *BadgeController) AdminListBadges(ctx *gin.Context) {
	badges, err := c.BadgeService.AllBadges(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// SetActive godoc
// @Summary 启用或停用徽章
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "徽章名称"
// @Param body body BadgeActiveRequest true "是否启用"
// @Success 200 {object} util.Response
// @Router /admin/badges/{name}/active [patch]
func (c *BadgeController) SetActive(ctx *gin.Context) {
	var req BadgeActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.BadgeService.SetActive(ctx.Request.Context(), ctx.Param("name"), *req.IsActive); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"name": ctx.Param("name"), "isActive": *req.IsActive})
}
