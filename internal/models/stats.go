// internal/models/stats.go
package models

import (
	"time"
)

// WritingStats 创作统计：按自然日累计的有效字数
//
// WritingHistory 只累加正向增量，删除正文不会回扣当日记录，
// 统计的是"产出努力"而非文档净长度变化。
type WritingStats struct {
	StartTime      time.Time      `json:"start_time"`
	WritingHistory map[string]int `json:"writing_history"` // 日期键(2006-01-02) -> 累计字数
	LastUpdated    time.Time      `json:"last_updated"`
}

// NewWritingStats 创建空的统计数据
func NewWritingStats() *WritingStats {
	return &WritingStats{
		StartTime:      time.Now(),
		WritingHistory: make(map[string]int),
		LastUpdated:    time.Now(),
	}
}

// DayCount 单日产量，用于趋势图
type DayCount struct {
	DayKey string `json:"day_key"`
	Count  int    `json:"count"`
}

// StatsReport 统计面板的聚合视图
type StatsReport struct {
	TodayCount  int        `json:"today_count"`
	Streak      int        `json:"streak"` // 连续创作天数
	WeeklyTrend []DayCount `json:"weekly_trend"`
	Recent30    []DayCount `json:"recent_30"`
}

// Inspiration 灵感碎片
type Inspiration struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
