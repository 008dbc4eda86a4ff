// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/InkFlowStudio/internal/api"
	"github.com/Corphon/InkFlowStudio/internal/app"
	"github.com/Corphon/InkFlowStudio/internal/config"
	"github.com/Corphon/InkFlowStudio/internal/di"
)

func main() {
	log.Println("启动 InkFlow Studio 服务器...")

	// 1. 加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 创建必要的目录
	createDirectories(baseConfig)

	// 3. 初始化配置系统
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("初始化配置系统失败: %v", err)
	}

	// 4. 初始化日志
	if err := app.InitLogging(); err != nil {
		log.Printf("警告: %v", err)
	}

	// 5. 初始化所有服务（按依赖顺序）
	if err := app.InitServices(); err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	log.Println("所有服务初始化完成")

	// 6. 设置路由（只获取服务，不创建）
	if err := performHealthCheck(); err != nil {
		log.Printf("警告: 服务健康检查未通过: %v", err)
	}

	router, err := api.SetupRouter()
	if err != nil {
		log.Fatalf("设置路由失败: %v", err)
	}

	// 7. 启动服务器
	log.Printf("服务器启动在端口 %s", baseConfig.Port)
	log.Printf("访问地址: http://localhost:%s", baseConfig.Port)

	setupGracefulShutdown(router, baseConfig.Port)
}

// createDirectories 创建数据、静态文件和日志目录
func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "exports"),
		cfg.StaticDir,
		cfg.LogDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("警告: 创建目录失败 %s: %v", dir, err)
		}
	}
}

// performHealthCheck 检查关键服务是否已注册
func performHealthCheck() error {
	container := di.GetContainer()

	criticalServices := []string{"library", "studio", "stats", "autosave", "config"}
	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("关键服务未注册: %s", serviceName)
		}
	}
	return nil
}

// setupGracefulShutdown 优雅关闭：落盘后退出
func setupGracefulShutdown(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("服务器强制关闭: %v", err)
	}

	// 停止自动保存并做最后一次落盘
	app.Shutdown()
	log.Println("服务器已退出")
}
