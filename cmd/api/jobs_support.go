package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/blog-api/internal/config"
	"github.com/yourusername/blog-api/internal/jobs"
	"github.com/yourusername/blog-api/internal/storage"
)

// setupJobs はファイル削除キューを初期化します。
func setupJobs(cfg *config.Config, remover storage.Remover, logger *slog.Logger) (*jobs.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	store := jobs.NewStore(redisClient, cfg.CleanupRecordTTL)
	manager, err := jobs.NewManager(cfg.QueueRedisURL, store, remover, logger)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}
	return manager, nil
}

// cleanupStatusHandler は GET /api/uploads/cleanup/:name のハンドラーを返します。
func cleanupStatusHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if strings.TrimSpace(name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "ファイル名を指定してください。",
			})
			return
		}

		record, err := manager.GetRecord(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL",
				"message": "削除ジョブ情報の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "NOT_FOUND",
				"message": "指定された削除ジョブは存在しません。",
			})
			return
		}

		payload := gin.H{
			"name":      record.Name,
			"status":    record.Status,
			"attempts":  record.Attempts,
			"updatedAt": record.UpdatedAt,
		}
		if record.Error != "" {
			payload["error"] = record.Error
		}
		c.JSON(http.StatusOK, payload)
	}
}
