package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firmsite/internal/background"
	"firmsite/internal/service"
	"firmsite/pkg/cache"
	"firmsite/pkg/logger"
)

// GetStatistics reports the in-process state of the admin panel.
func GetStatistics(auth *service.AuthService, scheduler *background.Scheduler, pageCache *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := gin.H{
			"time":          time.Now().UTC().Format(time.RFC3339),
			"editablePages": len(service.EditablePages),
			"cacheEnabled":  pageCache != nil && pageCache.Enabled(),
		}
		if auth != nil {
			stats["activeLoginFlows"] = auth.ActiveFlows()
		}
		if scheduler != nil {
			stats["activeJobs"] = scheduler.ActiveJobCount()
		}
		c.JSON(http.StatusOK, stats)
	}
}

// ClearCache drops cached page content and blog posts.
func ClearCache(pageCache *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pageCache.InvalidatePagesCache(); err != nil {
			logger.Error(err, "Failed to clear page cache", nil)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
			return
		}
		if err := pageCache.DeletePattern("posts:*"); err != nil {
			logger.Error(err, "Failed to clear post cache", nil)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
	}
}
