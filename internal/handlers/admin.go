package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"usersvc/api/internal/jobs"
	"usersvc/api/internal/service"
)

// AdminStats serves the cached stats snapshot, falling back to a live
// count when the scheduler has not populated the cache yet.
func (h HandlerSet) AdminStats(c *gin.Context) {
	if h.cache != nil {
		raw, err := h.cache.Get(c.Request.Context(), jobs.StatsKey).Result()
		if err == nil {
			var stats service.UserStats
			if err := json.Unmarshal([]byte(raw), &stats); err == nil {
				c.JSON(http.StatusOK, gin.H{"stats": stats, "cached": true})
				return
			}
		}
	}

	stats, err := h.users.CollectStats(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats, "cached": false})
}
