package ai

import (
	"errors"
	"time"

	"github.com/flowdeck/core/internal/middleware"
	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/pkg/pagination"
	"github.com/flowdeck/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ai")
	g.GET("/quota", authMW, h.getQuota)
	g.GET("/logs", authMW, h.listLogs)
	g.GET("/usage", authMW, h.getUsage)
	g.GET("/insights", authMW, h.listInsights)
	g.POST("/insights/:id/read", authMW, h.markInsightRead)
	g.POST("/insights/generate", authMW, h.generateInsight)
	g.GET("/jobs/:id", authMW, h.getJob)

	g.GET("/templates", authMW, h.listTemplates)
	g.POST("/templates", authMW, h.createTemplate)
	g.PUT("/templates/:id", authMW, h.updateTemplate)
	g.DELETE("/templates/:id", authMW, h.deleteTemplate)
}

func (h *Handler) getQuota(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	var quotas []models.AIQuotaModel
	if err := h.svc.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&quotas).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	now := time.Now()
	out := make([]gin.H, 0, len(quotas))
	for i := range quotas {
		if err := ResetQuotaIfElapsed(h.svc.db, &quotas[i], now); err != nil {
			response.InternalError(c, err)
			return
		}
		out = append(out, gin.H{
			"period":             quotas[i].Period,
			"max_requests":       quotas[i].MaxRequests,
			"max_tokens":         quotas[i].MaxTokens,
			"used_requests":      quotas[i].UsedRequests,
			"used_tokens":        quotas[i].UsedTokens,
			"requests_remaining": quotas[i].RequestsRemaining(),
			"tokens_remaining":   quotas[i].TokensRemaining(),
			"reset_at":           quotas[i].ResetAt,
		})
	}
	response.OK(c, out)
}

func (h *Handler) listLogs(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	q := h.svc.db.Model(&models.AIRequestLogModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if requestType := c.Query("type"); requestType != "" {
		q = q.Where("request_type = ?", requestType)
	}
	if success := c.Query("success"); success == "true" || success == "false" {
		q = q.Where("success = ?", success == "true")
	}

	var logs []models.AIRequestLogModel
	page, err := pagination.Paginate(q, pagination.FromContext(c), &logs)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, logs, page)
}

func (h *Handler) getUsage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	since := time.Now().Add(-30 * 24 * time.Hour)

	var agg struct {
		Requests    int
		Successful  int
		TokensTotal int
		CostUSD     float64
		AvgLatency  float64
	}
	err := h.svc.db.Model(&models.AIRequestLogModel{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Select("count(*) as requests, " +
			"sum(case when success then 1 else 0 end) as successful, " +
			"coalesce(sum(tokens_total), 0) as tokens_total, " +
			"coalesce(sum(cost_usd), 0) as cost_usd, " +
			"coalesce(avg(response_time), 0) as avg_latency").
		Scan(&agg).Error
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"window_days":  30,
		"requests":     agg.Requests,
		"successful":   agg.Successful,
		"tokens_total": agg.TokensTotal,
		"cost_usd":     agg.CostUSD,
		"avg_latency":  agg.AvgLatency,
	})
}

func (h *Handler) listInsights(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	now := time.Now()
	q := h.svc.db.Model(&models.AIInsightModel{}).
		Where("user_id = ?", userID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC")
	if c.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}

	var insights []models.AIInsightModel
	page, err := pagination.Paginate(q, pagination.FromContext(c), &insights)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, insights, page)
}

func (h *Handler) markInsightRead(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	res := h.svc.db.Model(&models.AIInsightModel{}).
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Update("is_read", true)
	if res.Error != nil {
		response.InternalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFound(c)
		return
	}
	response.NoContent(c)
}

func (h *Handler) generateInsight(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	task, err := h.svc.EnqueueInsights(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"job_id": task.ID, "status": task.Status})
}

func (h *Handler) getJob(c *gin.Context) {
	task, err := h.svc.queue.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

type templateDTO struct {
	Name          string   `json:"name" binding:"required"`
	TemplateType  string   `json:"template_type" binding:"required"`
	PromptText    string   `json:"prompt_text" binding:"required"`
	SystemMessage string   `json:"system_message"`
	MaxTokens     int      `json:"max_tokens"`
	Temperature   *float64 `json:"temperature"`
	IsActive      *bool    `json:"is_active"`
}

func (h *Handler) listTemplates(c *gin.Context) {
	q := h.svc.db.Model(&models.AITemplateModel{}).Order("template_type ASC, name ASC")
	if templateType := c.Query("type"); templateType != "" {
		q = q.Where("template_type = ?", templateType)
	}
	var templates []models.AITemplateModel
	page, err := pagination.Paginate(q, pagination.FromContext(c), &templates)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, templates, page)
}

func (h *Handler) createTemplate(c *gin.Context) {
	var dto templateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tpl := models.AITemplateModel{
		Name:          dto.Name,
		TemplateType:  dto.TemplateType,
		PromptText:    dto.PromptText,
		SystemMessage: dto.SystemMessage,
		MaxTokens:     dto.MaxTokens,
		IsActive:      true,
	}
	if tpl.MaxTokens <= 0 {
		tpl.MaxTokens = 150
	}
	if dto.Temperature != nil {
		tpl.Temperature = *dto.Temperature
	} else {
		tpl.Temperature = 0.7
	}
	if dto.IsActive != nil {
		tpl.IsActive = *dto.IsActive
	}
	if err := h.svc.db.Create(&tpl).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, tpl)
}

func (h *Handler) updateTemplate(c *gin.Context) {
	var tpl models.AITemplateModel
	if err := h.svc.db.First(&tpl, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	var dto templateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tpl.Name = dto.Name
	tpl.TemplateType = dto.TemplateType
	tpl.PromptText = dto.PromptText
	tpl.SystemMessage = dto.SystemMessage
	if dto.MaxTokens > 0 {
		tpl.MaxTokens = dto.MaxTokens
	}
	if dto.Temperature != nil {
		tpl.Temperature = *dto.Temperature
	}
	if dto.IsActive != nil {
		tpl.IsActive = *dto.IsActive
	}
	if err := h.svc.db.Save(&tpl).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tpl)
}

func (h *Handler) deleteTemplate(c *gin.Context) {
	res := h.svc.db.Delete(&models.AITemplateModel{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		response.InternalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFound(c)
		return
	}
	response.NoContent(c)
}
