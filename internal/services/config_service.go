// internal/services/config_service.go
package services

import (
	"fmt"
	"sync"

	"github.com/Corphon/InkFlowStudio/internal/config"
	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/storage"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

const slotSettings = "settings"

// ConfigService 用户偏好设置的读写
//
// 设置整体作为一个存储槽持久化；槽损坏时回落到默认值，
// 不影响作品和统计数据的加载。
type ConfigService struct {
	mu       sync.RWMutex
	settings *models.AppSettings
	dirty    bool

	store  *storage.SlotStore
	logger *utils.Logger

	onIntervalChange func(int)
	onLLMChange      func(provider string, cfg map[string]string)
}

// NewConfigService 创建设置服务并加载设置槽
func NewConfigService(store *storage.SlotStore) (*ConfigService, error) {
	s := &ConfigService{
		store:  store,
		logger: utils.GetLogger(),
	}

	var settings models.AppSettings
	if err := store.LoadSlot(slotSettings, &settings); err != nil {
		if err != storage.ErrSlotNotFound {
			s.logger.Warnf("加载设置失败，使用默认设置: %v", err)
		}
		s.settings = models.DefaultSettings()
		s.dirty = true
	} else {
		s.settings = &settings
	}

	return s, nil
}

// SetOnIntervalChange 注册自动保存间隔变化的回调
func (s *ConfigService) SetOnIntervalChange(fn func(seconds int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIntervalChange = fn
}

// SetOnLLMChange 注册责编配置变化的回调
func (s *ConfigService) SetOnLLMChange(fn func(provider string, cfg map[string]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLLMChange = fn
}

// GetSettings 返回当前设置的副本
func (s *ConfigService) GetSettings() *models.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := *s.settings
	if s.settings.LLMConfig != nil {
		settings.LLMConfig = make(map[string]string, len(s.settings.LLMConfig))
		for k, v := range s.settings.LLMConfig {
			settings.LLMConfig[k] = v
		}
	}
	return &settings
}

// UpdateSettings 整体替换用户设置
func (s *ConfigService) UpdateSettings(settings *models.AppSettings) error {
	if settings == nil {
		return apperrors.NewValidationError("设置不能为空", nil)
	}
	if settings.FontSize < 12 || settings.FontSize > 40 {
		return apperrors.NewValidationError("字号超出允许范围(12-40)", nil)
	}
	if settings.LineHeight < 1.0 || settings.LineHeight > 3.0 {
		return apperrors.NewValidationError("行高超出允许范围(1.0-3.0)", nil)
	}
	if settings.AutoSaveInterval < 3 {
		return apperrors.NewValidationError("自动保存间隔不能小于3秒", nil)
	}

	s.mu.Lock()
	prev := s.settings
	s.settings = settings
	s.dirty = true
	onIntervalChange := s.onIntervalChange
	onLLMChange := s.onLLMChange
	s.mu.Unlock()

	if onIntervalChange != nil && prev.AutoSaveInterval != settings.AutoSaveInterval {
		onIntervalChange(settings.AutoSaveInterval)
	}
	if onLLMChange != nil && llmConfigChanged(prev, settings) {
		if err := config.UpdateLLMConfig(settings.LLMProvider, settings.LLMConfig); err != nil {
			s.logger.Warnf("保存责编配置失败: %v", err)
		}
		onLLMChange(settings.LLMProvider, settings.LLMConfig)
	}
	return nil
}

// llmConfigChanged 责编配置是否有变化
func llmConfigChanged(prev, next *models.AppSettings) bool {
	if prev.LLMProvider != next.LLMProvider {
		return true
	}
	if len(prev.LLMConfig) != len(next.LLMConfig) {
		return true
	}
	for k, v := range next.LLMConfig {
		if prev.LLMConfig[k] != v {
			return true
		}
	}
	return false
}

// Dirty 是否有未落盘的改动
func (s *ConfigService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Flush 将设置写入存储槽，无改动时直接返回
func (s *ConfigService) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.store.SaveSlot(slotSettings, s.settings); err != nil {
		return fmt.Errorf("保存设置失败: %w", err)
	}
	s.dirty = false
	return nil
}
