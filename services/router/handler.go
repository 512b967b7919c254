package router

import (
	"net/http"
	"time"

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
	admin.POST("/leads/:id/assignments", h.assign)
	admin.POST("/leads/:id/invitations", h.invite)
}

func (h *Handler) assign(c *gin.Context) {
	var in AssignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		_ = c.Error(errutil.FromValidation(err))
		return
	}

	out, err := h.svc.RouteDirect(c.Request.Context(), c.Param("id"), in.ContractorID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) invite(c *gin.Context) {
	var in InviteInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(errutil.ValidationFailed("invalid request body", err))
			return
		}
	}
	if err := h.validate.Struct(in); err != nil {
		_ = c.Error(errutil.FromValidation(err))
		return
	}

	ttl := h.svc.DefaultTTL()
	if in.TTLHours != nil {
		ttl = time.Duration(*in.TTLHours) * time.Hour
	}

	var (
		out *InvitationResult
		err error
	)
	// an omitted list auto-selects; an explicit empty one is an empty candidate set
	if in.ContractorIDs == nil {
		out, err = h.svc.AutoRoute(c.Request.Context(), c.Param("id"), ttl)
	} else {
		out, err = h.svc.RouteByInvitation(c.Request.Context(), c.Param("id"), in.ContractorIDs, ttl)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, out)
}
