package gatekeeper

import (
	"net/http"

	"insulead-core/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public *gin.RouterGroup, _ *gin.RouterGroup) {
	public.POST("/registrations", h.register)
	public.POST("/registrations/verify", h.verify)
}

func (h *Handler) register(c *gin.Context) {
	var in Submission
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}
	in.RemoteAddr = c.ClientIP()

	reg, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		if reg != nil {
			c.JSON(errutil.CodeOf(err).HTTPStatus(), gin.H{
				"success": false,
				"userId":  reg.UserID,
				"error":   gin.H{"code": errutil.CodeOf(err), "message": "registration saved but the verification email could not be sent"},
			})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "userId": reg.UserID})
}

func (h *Handler) verify(c *gin.Context) {
	var in VerifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	out, err := h.svc.Verify(c.Request.Context(), in.Token)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "userId": out.UserID, "notification_queued": out.NotificationQueued})
}
