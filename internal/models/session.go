// internal/models/session.go
package models

import (
	"time"
)

// FocusMode 锁定模式的目标类型
type FocusMode string

const (
	// FocusModeWord 按新增字数锁定
	FocusModeWord FocusMode = "word"
	// FocusModeTime 按专注时长锁定（目标单位：分钟）
	FocusModeTime FocusMode = "time"
)

// FocusState 锁定会话的状态机状态
type FocusState string

const (
	FocusStateIdle        FocusState = "idle"
	FocusStateConfiguring FocusState = "configuring"
	FocusStateActive      FocusState = "active"
)

// FocusSession 锁定会话配置与进度
//
// CurrentProgress 只加不减：删后重写同样的文本不会被双重计入，
// 因为 LastObservedTotal 始终跟随最近一次观测到的总字数。
type FocusSession struct {
	Active            bool      `json:"active"`
	Mode              FocusMode `json:"mode"`
	Target            int       `json:"target"`
	CurrentProgress   int       `json:"current_progress"`    // 累计新增字数（word模式）
	LastObservedTotal int       `json:"last_observed_total"` // 上次检查点时的文档总字数
	StartTime         time.Time `json:"start_time,omitempty"`
}

// FocusStatus 对外暴露的会话状态快照
type FocusStatus struct {
	State           FocusState `json:"state"`
	Mode            FocusMode  `json:"mode,omitempty"`
	Target          int        `json:"target,omitempty"`
	CurrentProgress int        `json:"current_progress"`
	ProgressPercent float64    `json:"progress_percent"`
	RemainingSecs   int        `json:"remaining_secs,omitempty"` // time模式
	CanExit         bool       `json:"can_exit"`
}
