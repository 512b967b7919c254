package directory

import (
	"net/http"
	"strconv"

	"insulead-core/pkg/db/pagination"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: util.NewValidator()}
}

func (h *Handler) RegisterRoutes(_ *gin.RouterGroup, admin *gin.RouterGroup) {
	admin.GET("/contractors", h.list)
	admin.GET("/contractors/:id", h.get)
	admin.PATCH("/contractors/:id/status", h.setStatus)
	admin.PUT("/contractors/:id/credits", h.setCredits)
	admin.DELETE("/contractors/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	status := Status(c.DefaultQuery("status", string(StatusPending)))

	page := pagination.Pagination{Cursor: c.Query("cursor")}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(errutil.ValidationFailed("limit must be an integer", err))
			return
		}
		page.Limit = n
	}

	out, info, err := h.svc.ListByStatus(c.Request.Context(), status, page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": out, "page_info": info})
}

func (h *Handler) get(c *gin.Context) {
	out, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) setStatus(c *gin.Context) {
	var in StatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		_ = c.Error(errutil.FromValidation(err))
		return
	}

	out, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), in.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) setCredits(c *gin.Context) {
	var in CreditsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		_ = c.Error(errutil.FromValidation(err))
		return
	}

	out, err := h.svc.SetCredits(c.Request.Context(), c.Param("id"), *in.Credits)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
