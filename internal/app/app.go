// internal/app/app.go
package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Corphon/InkFlowStudio/internal/config"
	"github.com/Corphon/InkFlowStudio/internal/di"
	"github.com/Corphon/InkFlowStudio/internal/services"
	"github.com/Corphon/InkFlowStudio/internal/storage"
	"github.com/Corphon/InkFlowStudio/internal/utils"

	// 注册AI提供商
	_ "github.com/Corphon/InkFlowStudio/internal/llm/providers/google"
	_ "github.com/Corphon/InkFlowStudio/internal/llm/providers/openrouter"
)

// InitServices 按依赖顺序初始化所有服务并注册到容器
//
// 顺序: 存储 -> 数据服务(书架/统计/设置/灵感) -> 会话与快照 ->
// 编排 -> AI -> 导出 -> 自动保存。自动保存最后启动，
// 启动时所有数据服务都已就绪。
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()
	logger := utils.GetLogger()

	store, err := storage.NewSlotStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("初始化存储失败: %w", err)
	}
	container.Register("storage", store)

	libraryService, err := services.NewLibraryService(store)
	if err != nil {
		return fmt.Errorf("初始化书架服务失败: %w", err)
	}
	container.Register("library", libraryService)

	statsService, err := services.NewStatsService(store)
	if err != nil {
		return fmt.Errorf("初始化统计服务失败: %w", err)
	}
	container.Register("stats", statsService)

	configService, err := services.NewConfigService(store)
	if err != nil {
		return fmt.Errorf("初始化设置服务失败: %w", err)
	}
	container.Register("config", configService)

	inspirationService, err := services.NewInspirationService(store)
	if err != nil {
		return fmt.Errorf("初始化灵感服务失败: %w", err)
	}
	container.Register("inspirations", inspirationService)

	focusService := services.NewFocusService()
	container.Register("focus", focusService)

	versionService := services.NewVersionService(libraryService)
	container.Register("versions", versionService)

	studioService := services.NewStudioService(libraryService, statsService, focusService, versionService)
	container.Register("studio", studioService)

	llmService := services.NewLLMService()
	container.Register("llm", llmService)

	reviewService := services.NewReviewService(llmService, libraryService)
	container.Register("review", reviewService)

	exportService := services.NewExportService(libraryService, store)
	container.Register("export", exportService)

	settings := configService.GetSettings()
	autosaveService := services.NewAutosaveService(
		time.Duration(settings.AutoSaveInterval)*time.Second,
		studioService,
		libraryService,
		statsService,
		configService,
		inspirationService,
	)
	container.Register("autosave", autosaveService)

	// 设置变更联动：保存间隔与AI提供商即时生效
	configService.SetOnIntervalChange(func(seconds int) {
		autosaveService.SetInterval(time.Duration(seconds) * time.Second)
	})
	configService.SetOnLLMChange(func(provider string, providerConfig map[string]string) {
		if err := llmService.ReloadProvider(provider, providerConfig); err != nil {
			logger.Warnf("切换AI提供商失败: %v", err)
		}
	})

	autosaveService.Start()

	logger.Infof("服务初始化完成，共注册%d个服务", len(container.GetNames()))
	return nil
}

// Shutdown 停止后台任务并做最后一次落盘
func Shutdown() {
	container := di.GetContainer()

	if autosave, ok := container.Get("autosave").(*services.AutosaveService); ok {
		autosave.Stop()
	}
	utils.GetLogger().Infof("服务已关闭，数据已落盘")
}

// InitLogging 初始化日志输出
func InitLogging() error {
	cfg := config.GetCurrentConfig()

	logFile := filepath.Join(cfg.LogDir, "inkflow.log")
	if err := utils.InitLogger(logFile); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	if cfg.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}
	return nil
}
