// internal/services/llm_service.go
package services

import (
	"context"
	"sync"

	"github.com/Corphon/InkFlowStudio/internal/config"
	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/llm"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

// LLMService 管理当前激活的AI提供商
//
// 密钥未配置时服务保持未就绪状态，责编功能返回不可用错误，
// 其余功能不受影响。
type LLMService struct {
	mu           sync.RWMutex
	provider     llm.Provider
	providerName string

	logger *utils.Logger
}

// NewLLMService 根据应用配置创建AI服务
func NewLLMService() *LLMService {
	s := &LLMService{
		logger: utils.GetLogger(),
	}

	cfg := config.GetCurrentConfig()
	if cfg.LLMProvider != "" && cfg.LLMConfig["api_key"] != "" {
		if err := s.ReloadProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
			s.logger.Warnf("初始化AI提供商失败: %v", err)
		}
	} else {
		s.logger.Infof("AI提供商未配置，责编功能暂不可用")
	}

	return s
}

// ReloadProvider 切换或重新初始化AI提供商
func (s *LLMService) ReloadProvider(name string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(name, providerConfig)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.provider = provider
	s.providerName = name
	s.mu.Unlock()

	s.logger.Infof("AI提供商已就绪: %s", provider.GetName())
	return nil
}

// IsReady AI提供商是否已配置就绪
func (s *LLMService) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider != nil
}

// CompleteText 调用当前提供商生成文本
func (s *LLMService) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.RLock()
	provider := s.provider
	s.mu.RUnlock()

	if provider == nil {
		return nil, apperrors.NewUnavailableError("AI提供商未配置，请在设置中填写API密钥", nil)
	}

	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return nil, apperrors.NewProcessingError("AI生成失败", err)
	}
	return resp, nil
}

// Status 当前提供商的状态信息
func (s *LLMService) Status() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]interface{}{
		"ready":     s.provider != nil,
		"providers": llm.ListProviders(),
	}
	if s.provider != nil {
		status["provider"] = s.providerName
		status["models"] = s.provider.GetSupportedModels()
	}
	return status
}
