package invitation

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

func (h *Handler) RegisterRoutes(public *gin.RouterGroup, admin *gin.RouterGroup) {
	public.GET("/invitations/:token", h.resolve)
	public.POST("/invitations/:token/quote", h.redeem)
	admin.GET("/leads/:id/invitations", h.listByLead)
}

func (h *Handler) resolve(c *gin.Context) {
	out, err := h.svc.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) redeem(c *gin.Context) {
	var in QuoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return
	}

	out, err := h.svc.Redeem(c.Request.Context(), c.Param("token"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"quote":               out.Quote,
		"notification_queued": out.NotificationQueued,
	})
}

func (h *Handler) listByLead(c *gin.Context) {
	out, err := h.svc.ListByLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
