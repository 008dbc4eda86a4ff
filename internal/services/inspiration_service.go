// internal/services/inspiration_service.go
package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/storage"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

const slotInspirations = "inspirations"

// InspirationService 灵感碎片的收集箱，最新的排在最前
type InspirationService struct {
	mu           sync.RWMutex
	inspirations []*models.Inspiration
	dirty        bool

	store  *storage.SlotStore
	logger *utils.Logger
}

// NewInspirationService 创建灵感服务并加载灵感槽
func NewInspirationService(store *storage.SlotStore) (*InspirationService, error) {
	s := &InspirationService{
		store:  store,
		logger: utils.GetLogger(),
	}

	var inspirations []*models.Inspiration
	if err := store.LoadSlot(slotInspirations, &inspirations); err != nil {
		if err != storage.ErrSlotNotFound {
			s.logger.Warnf("加载灵感数据失败，从空列表开始: %v", err)
		}
		inspirations = []*models.Inspiration{}
	}
	s.inspirations = inspirations

	return s, nil
}

// Add 记录一条灵感
func (s *InspirationService) Add(text string) (*models.Inspiration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("灵感内容不能为空", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inspiration := &models.Inspiration{
		ID:        uuid.New().String(),
		Text:      text,
		Timestamp: time.Now(),
	}
	s.inspirations = append([]*models.Inspiration{inspiration}, s.inspirations...)
	s.dirty = true

	created := *inspiration
	return &created, nil
}

// List 返回全部灵感，最新在前
func (s *InspirationService) List() []*models.Inspiration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.Inspiration, len(s.inspirations))
	for i, insp := range s.inspirations {
		item := *insp
		list[i] = &item
	}
	return list
}

// Delete 删除一条灵感
func (s *InspirationService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, insp := range s.inspirations {
		if insp.ID == id {
			s.inspirations = append(s.inspirations[:i], s.inspirations[i+1:]...)
			s.dirty = true
			return nil
		}
	}
	return apperrors.NewNotFoundError(fmt.Sprintf("灵感不存在: %s", id), nil)
}

// Dirty 是否有未落盘的改动
func (s *InspirationService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Flush 将灵感列表写入存储槽，无改动时直接返回
func (s *InspirationService) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.store.SaveSlot(slotInspirations, s.inspirations); err != nil {
		return fmt.Errorf("保存灵感数据失败: %w", err)
	}
	s.dirty = false
	return nil
}
