// internal/services/stats_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/Corphon/InkFlowStudio/internal/storage"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

func newTestStatsService(t *testing.T) *StatsService {
	t.Helper()
	store, err := storage.NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	svc, err := NewStatsService(store)
	if err != nil {
		t.Fatalf("创建统计服务失败: %v", err)
	}
	return svc
}

func TestRecordDeltaAccumulates(t *testing.T) {
	svc := newTestStatsService(t)

	svc.RecordDelta(100)
	svc.RecordDelta(50)
	if got := svc.TodayCount(); got != 150 {
		t.Errorf("今日字数应累加: 期望=150 实际=%d", got)
	}
}

func TestRecordDeltaIgnoresNonPositive(t *testing.T) {
	svc := newTestStatsService(t)

	svc.RecordDelta(100)
	svc.RecordDelta(0)
	svc.RecordDelta(-300)
	if got := svc.TodayCount(); got != 100 {
		t.Errorf("零与负增量应被忽略: 期望=100 实际=%d", got)
	}
}

func TestStreakTodayGrace(t *testing.T) {
	svc := newTestStatsService(t)
	now := time.Now()

	// 昨天写了，今天还没写：连续1天
	svc.stats.WritingHistory[utils.DayKey(now.AddDate(0, 0, -1))] = 50
	if got := svc.Streak(); got != 1 {
		t.Errorf("今天未写不应打断昨天的纪录: 期望=1 实际=%d", got)
	}

	// 今天也写了：连续2天
	svc.stats.WritingHistory[utils.DayKey(now)] = 30
	if got := svc.Streak(); got != 2 {
		t.Errorf("今天写了应计入: 期望=2 实际=%d", got)
	}
}

func TestStreakBrokenByGap(t *testing.T) {
	svc := newTestStatsService(t)
	now := time.Now()

	// 只有前天写过，昨天断档：纪录归零
	svc.stats.WritingHistory[utils.DayKey(now.AddDate(0, 0, -2))] = 50
	if got := svc.Streak(); got != 0 {
		t.Errorf("昨天断档应归零: 期望=0 实际=%d", got)
	}
}

func TestStreakLongRun(t *testing.T) {
	svc := newTestStatsService(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		svc.stats.WritingHistory[utils.DayKey(now.AddDate(0, 0, -i))] = 10
	}
	if got := svc.Streak(); got != 5 {
		t.Errorf("连续5天: 期望=5 实际=%d", got)
	}
}

func TestWeeklyTrendShape(t *testing.T) {
	svc := newTestStatsService(t)
	svc.RecordDelta(80)

	trend := svc.WeeklyTrend()
	if len(trend) != 7 {
		t.Fatalf("周趋势应覆盖7天: 实际=%d", len(trend))
	}
	// 最后一项是今天
	last := trend[6]
	if last.DayKey != utils.TodayKey() {
		t.Errorf("趋势最后一项应是今天: %s", last.DayKey)
	}
	if last.Count != 80 {
		t.Errorf("今天的产量错误: 期望=80 实际=%d", last.Count)
	}
	// 没写的天返回0而非缺项
	if trend[0].Count != 0 {
		t.Errorf("无记录的日期应为0: %+v", trend[0])
	}
}

func TestStatsFlushAndReload(t *testing.T) {
	store, err := storage.NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	svc, err := NewStatsService(store)
	if err != nil {
		t.Fatalf("创建统计服务失败: %v", err)
	}
	svc.RecordDelta(200)

	if !svc.Dirty() {
		t.Fatalf("记录增量后应置脏标记")
	}
	if err := svc.Flush(); err != nil {
		t.Fatalf("落盘失败: %v", err)
	}
	if svc.Dirty() {
		t.Errorf("落盘后脏标记应清除")
	}

	reloaded, err := NewStatsService(store)
	if err != nil {
		t.Fatalf("重新加载统计服务失败: %v", err)
	}
	if got := reloaded.TodayCount(); got != 200 {
		t.Errorf("重新加载后账本不一致: 期望=200 实际=%d", got)
	}
}
