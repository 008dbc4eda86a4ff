// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/InkFlowStudio/internal/config"
	"github.com/Corphon/InkFlowStudio/internal/di"
	"github.com/Corphon/InkFlowStudio/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 只从容器获取服务，不创建新实例
	container := di.GetContainer()

	libraryService, ok := container.Get("library").(*services.LibraryService)
	if !ok {
		return nil, fmt.Errorf("书架服务未正确初始化")
	}

	studioService, ok := container.Get("studio").(*services.StudioService)
	if !ok {
		return nil, fmt.Errorf("写作编排服务未正确初始化")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("统计服务未正确初始化")
	}

	focusService, ok := container.Get("focus").(*services.FocusService)
	if !ok {
		return nil, fmt.Errorf("锁定会话服务未正确初始化")
	}

	versionService, ok := container.Get("versions").(*services.VersionService)
	if !ok {
		return nil, fmt.Errorf("版本快照服务未正确初始化")
	}

	autosaveService, ok := container.Get("autosave").(*services.AutosaveService)
	if !ok {
		return nil, fmt.Errorf("自动保存服务未正确初始化")
	}

	inspirationService, ok := container.Get("inspirations").(*services.InspirationService)
	if !ok {
		return nil, fmt.Errorf("灵感服务未正确初始化")
	}

	configService, ok := container.Get("config").(*services.ConfigService)
	if !ok {
		return nil, fmt.Errorf("设置服务未正确初始化")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("导出服务未正确初始化")
	}

	reviewService, ok := container.Get("review").(*services.ReviewService)
	if !ok {
		return nil, fmt.Errorf("责编服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("AI服务未正确初始化")
	}

	handler := NewHandler(
		libraryService,
		studioService,
		statsService,
		focusService,
		versionService,
		autosaveService,
		inspirationService,
		configService,
		exportService,
		reviewService,
		llmService,
	)

	// 锁定会话进度桥接到 WebSocket 推送
	StartFocusRelay(focusService)
	autosaveService.SetOnSaved(BroadcastSaved)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(corsMiddleware())

	// 静态文件服务（前端构建产物）
	r.Static("/static", cfg.StaticDir)

	// WebSocket 支持
	r.GET("/ws/studio", handler.StudioWebSocket)

	api := r.Group("/api")
	{
		// 书架
		api.GET("/books", handler.ListBooks)
		api.POST("/books", handler.CreateBook)
		api.GET("/books/:id", handler.GetBook)
		api.PUT("/books/:id", handler.RenameBook)
		api.DELETE("/books/:id", handler.DeleteBook)
		api.PUT("/books/:id/cover", handler.SetBookCover)
		api.POST("/books/:id/select", handler.SelectBook)
		api.POST("/books/:id/finish", handler.FinishBook)
		api.GET("/books/:id/export", handler.ExportBook)
		api.PUT("/books/:id/chapter-order", handler.ReorderChapters)

		// 章节
		api.POST("/books/:id/chapters", handler.AddChapter)
		api.GET("/books/:id/chapters/:chapter_id", handler.GetChapter)
		api.DELETE("/books/:id/chapters/:chapter_id", handler.DeleteChapter)
		api.POST("/books/:id/chapters/:chapter_id/select", handler.SelectChapter)
		api.PUT("/books/:id/chapters/:chapter_id/content", handler.UpdateChapterContent)
		api.PUT("/books/:id/chapters/:chapter_id/title", handler.SetChapterTitle)
		api.PUT("/books/:id/chapters/:chapter_id/synopsis", handler.SetChapterSynopsis)
		api.POST("/books/:id/chapters/:chapter_id/format", handler.FormatChapter)
		api.GET("/books/:id/chapters/:chapter_id/export", handler.ExportChapter)

		// 版本快照
		api.GET("/books/:id/chapters/:chapter_id/versions", handler.ListVersions)
		api.POST("/books/:id/chapters/:chapter_id/versions", handler.SnapshotChapter)
		api.POST("/books/:id/chapters/:chapter_id/versions/:version_id/revert", handler.RevertChapter)

		// 统计与保存
		api.GET("/stats", handler.GetStats)
		api.GET("/save/status", handler.GetSaveStatus)
		api.POST("/save", handler.SaveNow)

		// 锁定模式
		api.GET("/focus", handler.GetFocusStatus)
		api.POST("/focus/configure", handler.ConfigureFocus)
		api.POST("/focus/start", handler.StartFocus)
		api.POST("/focus/cancel", handler.CancelFocus)
		api.POST("/focus/exit", handler.ExitFocus)

		// 灵感
		api.GET("/inspirations", handler.ListInspirations)
		api.POST("/inspirations", handler.AddInspiration)
		api.DELETE("/inspirations/:id", handler.DeleteInspiration)

		// 设置
		api.GET("/settings", handler.GetSettings)
		api.PUT("/settings", handler.UpdateSettings)
		api.GET("/llm/status", handler.GetLLMStatus)

		// AI责编
		api.POST("/review/chapter", handler.ReviewChapter)
		api.POST("/review/dialogue", handler.Dialogue)
		api.POST("/review/research", handler.Research)
		api.POST("/review/sync-synopsis", handler.SyncSynopsis)
		api.POST("/review/sync-next", handler.SyncNextChapter)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
