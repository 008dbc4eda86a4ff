// internal/services/focus_service.go
package services

import (
	"sync"
	"time"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

// FocusService 锁定模式（小黑屋）的会话状态机
//
// 状态流转: idle -> configuring -> active -> idle。
// active 状态只能通过达标退出，configuring 状态才允许取消。
// 订阅者通过通道接收进度推送，发送永不阻塞。
type FocusService struct {
	mu      sync.RWMutex
	state   models.FocusState
	session *models.FocusSession

	subscribers map[chan *models.FocusStatus]bool
	ticker      *time.Ticker
	stopTicker  chan struct{}

	logger *utils.Logger
	now    func() time.Time
}

// NewFocusService 创建锁定会话服务
//
// 会话状态不持久化：进程重启即视为会话结束，这是有意的逃生通道。
func NewFocusService() *FocusService {
	return &FocusService{
		state:       models.FocusStateIdle,
		subscribers: make(map[chan *models.FocusStatus]bool),
		logger:      utils.GetLogger(),
		now:         time.Now,
	}
}

// BeginConfiguring 进入配置状态，展示目标选择
func (s *FocusService) BeginConfiguring() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.FocusStateActive {
		return apperrors.NewConflictError("锁定会话进行中，无法重新配置", nil)
	}
	s.state = models.FocusStateConfiguring
	return nil
}

// Cancel 放弃配置，回到空闲状态
//
// 只有 configuring 状态可以取消，active 状态必须达标后退出。
func (s *FocusService) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.FocusStateConfiguring {
		return apperrors.NewConflictError("当前状态不允许取消锁定", nil)
	}
	s.state = models.FocusStateIdle
	s.session = nil
	return nil
}

// Start 启动锁定会话
//
// observedTotal 为启动时当前章节的总字数，作为字数基准线；
// time 模式的目标单位为分钟。
func (s *FocusService) Start(mode models.FocusMode, target int, observedTotal int) error {
	if mode != models.FocusModeWord && mode != models.FocusModeTime {
		return apperrors.NewValidationError("未知的锁定模式", nil)
	}
	if target <= 0 {
		return apperrors.NewValidationError("锁定目标必须大于0", nil)
	}

	s.mu.Lock()
	if s.state == models.FocusStateActive {
		s.mu.Unlock()
		return apperrors.NewConflictError("已有进行中的锁定会话", nil)
	}

	s.state = models.FocusStateActive
	s.session = &models.FocusSession{
		Active:            true,
		Mode:              mode,
		Target:            target,
		CurrentProgress:   0,
		LastObservedTotal: observedTotal,
		StartTime:         s.now(),
	}

	if mode == models.FocusModeTime {
		s.startTickerLocked()
	}
	s.mu.Unlock()

	s.logger.Infof("锁定会话开始: 模式=%s 目标=%d", mode, target)
	s.notify()
	return nil
}

// startTickerLocked 每秒推送一次剩余时间，调用方需持有锁
func (s *FocusService) startTickerLocked() {
	s.ticker = time.NewTicker(time.Second)
	s.stopTicker = make(chan struct{})

	go func(ticker *time.Ticker, stop chan struct{}) {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.notify()
			case <-stop:
				return
			}
		}
	}(s.ticker, s.stopTicker)
}

// Checkpoint 上报当前章节的总字数，推进字数模式会话的进度
//
// 进度只加不减：总字数下降（删除）时进度保持不变，
// 但基准线始终跟随最新观测值，重写同样的文本不会被双重计入。
// 时间模式只看时钟，不累计字数；会话未激活时为空操作。
func (s *FocusService) Checkpoint(observedTotal int) {
	s.mu.Lock()
	if s.state != models.FocusStateActive || s.session.Mode != models.FocusModeWord {
		s.mu.Unlock()
		return
	}

	delta := observedTotal - s.session.LastObservedTotal
	if delta > 0 {
		s.session.CurrentProgress += delta
	}
	s.session.LastObservedTotal = observedTotal
	s.mu.Unlock()

	s.notify()
}

// RebaseTo 切换章节时重置字数基准线，不改变已累计的进度
func (s *FocusService) RebaseTo(observedTotal int) {
	s.mu.Lock()
	if s.state != models.FocusStateActive {
		s.mu.Unlock()
		return
	}
	s.session.LastObservedTotal = observedTotal
	s.mu.Unlock()
}

// canExitLocked 达标判定，调用方需持有锁
func (s *FocusService) canExitLocked() bool {
	if s.state != models.FocusStateActive {
		return false
	}
	switch s.session.Mode {
	case models.FocusModeWord:
		return s.session.CurrentProgress >= s.session.Target
	case models.FocusModeTime:
		return s.now().Sub(s.session.StartTime) >= time.Duration(s.session.Target)*time.Minute
	}
	return false
}

// CanExit 当前是否允许退出锁定
func (s *FocusService) CanExit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canExitLocked()
}

// Exit 结束锁定会话，未达标时拒绝
func (s *FocusService) Exit() error {
	s.mu.Lock()
	if s.state != models.FocusStateActive {
		s.mu.Unlock()
		return apperrors.NewConflictError("没有进行中的锁定会话", nil)
	}
	if !s.canExitLocked() {
		s.mu.Unlock()
		return apperrors.NewConflictError("尚未达成锁定目标，无法退出", nil)
	}

	s.state = models.FocusStateIdle
	s.session = nil
	if s.stopTicker != nil {
		close(s.stopTicker)
		s.stopTicker = nil
		s.ticker = nil
	}
	s.mu.Unlock()

	s.logger.Infof("锁定会话结束")
	s.notify()
	return nil
}

// statusLocked 生成状态快照，调用方需持有锁
func (s *FocusService) statusLocked() *models.FocusStatus {
	status := &models.FocusStatus{
		State:   s.state,
		CanExit: s.canExitLocked(),
	}
	if s.session == nil {
		return status
	}

	status.Mode = s.session.Mode
	status.Target = s.session.Target
	status.CurrentProgress = s.session.CurrentProgress

	switch s.session.Mode {
	case models.FocusModeWord:
		if s.session.Target > 0 {
			status.ProgressPercent = float64(s.session.CurrentProgress) / float64(s.session.Target) * 100
		}
	case models.FocusModeTime:
		total := time.Duration(s.session.Target) * time.Minute
		elapsed := s.now().Sub(s.session.StartTime)
		remaining := total - elapsed
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingSecs = int(remaining.Seconds())
		if total > 0 {
			status.ProgressPercent = float64(elapsed) / float64(total) * 100
		}
	}
	if status.ProgressPercent > 100 {
		status.ProgressPercent = 100
	}
	return status
}

// Status 对外暴露的会话状态快照
func (s *FocusService) Status() *models.FocusStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

// Subscribe 订阅进度推送
func (s *FocusService) Subscribe() chan *models.FocusStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *models.FocusStatus, 16)
	s.subscribers[ch] = true
	return ch
}

// Unsubscribe 取消订阅并关闭通道
func (s *FocusService) Unsubscribe(ch chan *models.FocusStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers[ch] {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// notify 向所有订阅者推送当前状态，通道已满时丢弃
func (s *FocusService) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.statusLocked()
	for ch := range s.subscribers {
		select {
		case ch <- status:
		default:
		}
	}
}
