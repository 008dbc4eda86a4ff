// internal/services/autosave_service.go
package services

import (
	"sync"
	"time"

	"github.com/Corphon/InkFlowStudio/internal/utils"
)

// Flusher 可被自动保存服务调度的持久化单元
type Flusher interface {
	Dirty() bool
	Flush() error
}

// AutosaveService 持久化调度器
//
// 周期性检查各服务的脏标记，只有有改动时才落盘，空闲时零写入。
// 各存储槽独立写入，单个槽失败不影响其余槽。
type AutosaveService struct {
	mu       sync.Mutex
	interval time.Duration
	flushers []Flusher
	studio   *StudioService

	ticker    *time.Ticker
	stopCh    chan struct{}
	running   bool
	lastSaved time.Time
	onSaved   func(time.Time)

	logger *utils.Logger
}

// NewAutosaveService 创建自动保存服务
func NewAutosaveService(interval time.Duration, studio *StudioService, flushers ...Flusher) *AutosaveService {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &AutosaveService{
		interval: interval,
		studio:   studio,
		flushers: flushers,
		logger:   utils.GetLogger(),
	}
}

// SetOnSaved 注册落盘完成的回调，推送保存时间用
func (s *AutosaveService) SetOnSaved(fn func(time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSaved = fn
}

// Start 启动保存循环
func (s *AutosaveService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.interval)
	s.stopCh = make(chan struct{})

	go s.loop(s.ticker, s.stopCh)
	s.logger.Infof("自动保存已启动，间隔%s", s.interval)
}

func (s *AutosaveService) loop(ticker *time.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-stop:
			return
		}
	}
}

// Stop 停止保存循环并做最后一次落盘
func (s *AutosaveService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.Flush()
	s.logger.Infof("自动保存已停止")
}

// SetInterval 调整保存间隔，运行中时重启循环
func (s *AutosaveService) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	s.interval = interval
	wasRunning := s.running
	if wasRunning {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	if wasRunning {
		s.Start()
	}
}

// Flush 立即检查并落盘所有有改动的服务
//
// 任何一个服务有改动时，落盘前先为当前章节创建历史快照。
func (s *AutosaveService) Flush() error {
	anyDirty := false
	for _, f := range s.flushers {
		if f.Dirty() {
			anyDirty = true
			break
		}
	}
	if !anyDirty {
		return nil
	}

	if s.studio != nil {
		s.studio.SnapshotBeforeFlush()
	}

	var firstErr error
	for _, f := range s.flushers {
		if err := f.Flush(); err != nil {
			s.logger.Errorf("自动保存失败: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.lastSaved = now
	onSaved := s.onSaved
	s.mu.Unlock()

	if onSaved != nil {
		onSaved(now)
	}
	return firstErr
}

// LastSaved 最近一次成功落盘的时间
func (s *AutosaveService) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Running 保存循环是否在运行
func (s *AutosaveService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
