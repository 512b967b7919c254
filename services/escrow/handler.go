package escrow

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

func (h *Handler) RegisterRoutes(public *gin.RouterGroup, admin *gin.RouterGroup) {
	public.POST("/escrow-jobs", h.create)
	public.GET("/escrow-jobs/:id", h.get)
	public.PATCH("/escrow-jobs/:id", h.transition)

	admin.GET("/jobs/:id", h.get)
	admin.PATCH("/jobs/:id", h.adminTransition)
	admin.GET("/contractors/:id/jobs", h.listByContractor)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	job, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *Handler) get(c *gin.Context) {
	job, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) transition(c *gin.Context) {
	var in ContractorTransitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		_ = c.Error(errutil.FromValidation(err))
		return
	}

	job, err := h.svc.TransitionAs(c.Request.Context(), c.Param("id"), in.ContractorID, in.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) adminTransition(c *gin.Context) {
	var in TransitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		_ = c.Error(errutil.FromValidation(err))
		return
	}

	job, err := h.svc.Transition(c.Request.Context(), c.Param("id"), in.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) listByContractor(c *gin.Context) {
	page := pagination.Pagination{Cursor: c.Query("cursor")}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(errutil.ValidationFailed("limit must be an integer", err))
			return
		}
		page.Limit = n
	}

	out, info, err := h.svc.ListByContractor(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "page_info": info})
}
