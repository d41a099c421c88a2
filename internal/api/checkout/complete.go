package checkout

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"compliance-training/internal/provisioning"

	"github.com/gin-gonic/gin"
)

const eventStreamTimeout = time.Minute

// GET /checkout/complete?session_id=
//
// The provider sends the buyer here after payment. Browsers are redirected to
// the page matching the resolved state; clients asking for JSON get the state
// itself.
func (h *Handler) Complete(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		h.respondResolution(c, "", provisioning.Resolution{State: provisioning.StatePending})
		return
	}
	res := h.resolver.Resolve(c.Request.Context(), sessionID)
	h.respondResolution(c, sessionID, res)
}

func (h *Handler) respondResolution(c *gin.Context, sessionID string, res provisioning.Resolution) {
	target := h.redirectFor(sessionID, res)
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, gin.H{
			"state":    res.State,
			"redirect": target,
			"trail":    res.Trail,
			"fallback": res.Fallback,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *Handler) redirectFor(sessionID string, res provisioning.Resolution) string {
	switch res.State {
	case provisioning.StateResolvedTeam:
		return h.opts.AppURL + "/teams/" + res.AccountID.String() + "/seats?purchase=success"
	case provisioning.StateResolvedPersonal:
		return h.opts.AppURL + "/courses/my?purchase=success"
	default:
		q := url.Values{"purchase": {"pending"}}
		if sessionID != "" {
			q.Set("session_id", sessionID)
		}
		return h.opts.AppURL + "/courses/my?" + q.Encode()
	}
}

// GET /checkout/events?session_id=
//
// Streams a single "provisioned" server-sent event once the purchase has been
// applied, or "timeout" if it was not applied within a minute.
func (h *Handler) Events(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	if h.waiter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates are not enabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), eventStreamTimeout)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ev, err := h.waiter.WaitProvisioned(ctx, sessionID)
	if err != nil {
		c.SSEvent("timeout", gin.H{"session_id": sessionID})
		return
	}
	c.SSEvent("provisioned", ev)
}
