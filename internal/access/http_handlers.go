package access

import (
	"fmt"
	"net/http"

	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler serves the provider's pre-call access check.
//
// The body shape is controlled by the provider; anything that is not a JSON
// object is treated as an empty payload.
type Handler struct {
	Gate *Gate
}

func (h Handler) CheckAccess(c *gin.Context) {
	log := logger.FromGin(c)
	p := PolicyOpen
	if h.Gate != nil {
		p = h.Gate.policy()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("access check panicked", "panic", fmt.Sprint(r))
			h.writeError(c, p)
		}
	}()

	if h.Gate == nil {
		log.Error("access gate not configured")
		h.writeError(c, p)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Warn("access check payload not a json object", "err", err)
	}
	cc := ParseCallContext(payload)

	d, err := h.Gate.Check(logger.With(c.Request.Context(), log), cc)
	if err != nil {
		log.Error("access check failed", "err", err)
		h.writeError(c, p)
		return
	}
	c.JSON(d.Status, d)
}

// writeError applies the policy's behavior for unexpected failures: open lets
// the call through, strict refuses it.
func (h Handler) writeError(c *gin.Context, p Policy) {
	if c.Writer.Written() {
		return
	}
	if p == PolicyStrict {
		c.AbortWithStatusJSON(http.StatusInternalServerError, Decision{
			Allowed: false,
			Reason:  "internal error",
			Message: msgUnidentified,
			Action:  ActionReject,
		})
		return
	}
	c.JSON(http.StatusOK, allow(ReasonErrorOpen, ""))
}
