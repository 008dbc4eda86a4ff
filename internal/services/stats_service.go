// internal/services/stats_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/storage"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

const slotStats = "stats"

// StatsService 维护按自然日累计的创作字数账本
//
// 账本只进不退：只有正向增量会被记录，删除正文不回扣当日数字。
type StatsService struct {
	mu    sync.RWMutex
	stats *models.WritingStats
	dirty bool

	store  *storage.SlotStore
	logger *utils.Logger

	// 测试用，可替换为固定时间
	now func() time.Time
}

// NewStatsService 创建统计服务并从存储槽加载历史账本
func NewStatsService(store *storage.SlotStore) (*StatsService, error) {
	s := &StatsService{
		store:  store,
		logger: utils.GetLogger(),
		now:    time.Now,
	}

	var stats models.WritingStats
	if err := store.LoadSlot(slotStats, &stats); err != nil {
		if err != storage.ErrSlotNotFound {
			s.logger.Warnf("加载创作统计失败，从空账本开始: %v", err)
		}
		s.stats = models.NewWritingStats()
		s.dirty = true
	} else {
		if stats.WritingHistory == nil {
			stats.WritingHistory = make(map[string]int)
		}
		s.stats = &stats
	}

	return s, nil
}

// RecordDelta 将一次正向字数增量记入当日账本
//
// 零与负增量直接忽略，调用方无需预先过滤。
func (s *StatsService) RecordDelta(delta int) {
	if delta <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := utils.DayKey(s.now())
	s.stats.WritingHistory[key] += delta
	s.stats.LastUpdated = s.now()
	s.dirty = true
}

// TodayCount 今日累计字数
func (s *StatsService) TodayCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats.WritingHistory[utils.DayKey(s.now())]
}

// Streak 连续创作天数
//
// 今天还没写不打断连续纪录，但也不计入；从昨天起出现断档即停止。
func (s *StatsService) Streak() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := s.now()
	streak := 0

	if s.stats.WritingHistory[utils.DayKey(day)] > 0 {
		streak++
	}
	day = day.AddDate(0, 0, -1)

	for s.stats.WritingHistory[utils.DayKey(day)] > 0 {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// recentDays 返回最近n天的逐日产量，时间正序
func (s *StatsService) recentDays(n int) []models.DayCount {
	days := make([]models.DayCount, 0, n)
	for i := n - 1; i >= 0; i-- {
		key := utils.DayKey(s.now().AddDate(0, 0, -i))
		days = append(days, models.DayCount{
			DayKey: key,
			Count:  s.stats.WritingHistory[key],
		})
	}
	return days
}

// WeeklyTrend 最近7天的逐日产量
func (s *StatsService) WeeklyTrend() []models.DayCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentDays(7)
}

// Recent30 最近30天的逐日产量，热力图用
func (s *StatsService) Recent30() []models.DayCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentDays(30)
}

// Report 统计面板的聚合视图
func (s *StatsService) Report() *models.StatsReport {
	return &models.StatsReport{
		TodayCount:  s.TodayCount(),
		Streak:      s.Streak(),
		WeeklyTrend: s.WeeklyTrend(),
		Recent30:    s.Recent30(),
	}
}

// History 账本的完整副本
func (s *StatsService) History() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make(map[string]int, len(s.stats.WritingHistory))
	for k, v := range s.stats.WritingHistory {
		history[k] = v
	}
	return history
}

// Dirty 是否有未落盘的改动
func (s *StatsService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Flush 将账本写入存储槽，无改动时直接返回
func (s *StatsService) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.store.SaveSlot(slotStats, s.stats); err != nil {
		return fmt.Errorf("保存创作统计失败: %w", err)
	}
	s.dirty = false
	return nil
}
