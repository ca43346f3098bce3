package note

import (
	"github.com/flowdeck/core/internal/middleware"
	"github.com/flowdeck/core/internal/pkg/pagination"
	"github.com/flowdeck/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/notes", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/process", h.process)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	notes, pag, err := h.svc.List(userID, pagination.FromContext(c), c.Query("status"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, notes, pag)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	note, err := h.svc.GetByID(userID, c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if note == nil {
		response.NotFound(c)
		return
	}
	h.svc.Touch(note.ID)
	response.OK(c, note)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateNoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := middleware.CurrentUserID(c)
	note, err := h.svc.Create(c.Request.Context(), userID, dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, note)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateNoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := middleware.CurrentUserID(c)
	note, err := h.svc.Update(c.Request.Context(), userID, c.Param("id"), dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if note == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, note)
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	ok, err := h.svc.Delete(userID, c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !ok {
		response.NotFound(c)
		return
	}
	response.NoContent(c)
}

func (h *Handler) process(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	task, err := h.svc.Process(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"job_id": task.ID, "status": task.Status})
}
