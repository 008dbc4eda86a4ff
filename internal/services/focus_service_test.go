// internal/services/focus_service_test.go
package services

import (
	"testing"
	"time"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
)

func TestFocusProgressOnlyGrows(t *testing.T) {
	svc := NewFocusService()

	if err := svc.Start(models.FocusModeWord, 1000, 2000); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}

	// 写500字
	svc.Checkpoint(2500)
	// 删掉200字
	svc.Checkpoint(2300)
	// 重写200字
	svc.Checkpoint(2500)

	status := svc.Status()
	if status.CurrentProgress != 700 {
		t.Errorf("进度应为500+200=700: 实际=%d", status.CurrentProgress)
	}
	if status.CanExit {
		t.Errorf("未达标时不应允许退出")
	}
}

func TestFocusDeleteThenRewriteNotDoubleCounted(t *testing.T) {
	svc := NewFocusService()

	if err := svc.Start(models.FocusModeWord, 300, 1000); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}

	svc.Checkpoint(900)  // 删100字，进度不变
	svc.Checkpoint(1000) // 写回100字

	if got := svc.Status().CurrentProgress; got != 100 {
		t.Errorf("删后重写只应计一次: 期望=100 实际=%d", got)
	}
}

func TestFocusExitGating(t *testing.T) {
	svc := NewFocusService()

	if err := svc.Start(models.FocusModeWord, 500, 0); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}

	if err := svc.Exit(); !apperrors.IsConflictError(err) {
		t.Errorf("未达标退出应返回冲突错误: %v", err)
	}

	svc.Checkpoint(500)
	if !svc.CanExit() {
		t.Fatalf("达标后应允许退出")
	}
	if err := svc.Exit(); err != nil {
		t.Fatalf("达标退出失败: %v", err)
	}
	if svc.Status().State != models.FocusStateIdle {
		t.Errorf("退出后应回到空闲状态")
	}
}

func TestFocusCancelOnlyWhileConfiguring(t *testing.T) {
	svc := NewFocusService()

	// 空闲状态不可取消
	if err := svc.Cancel(); !apperrors.IsConflictError(err) {
		t.Errorf("空闲状态取消应返回冲突错误: %v", err)
	}

	if err := svc.BeginConfiguring(); err != nil {
		t.Fatalf("进入配置状态失败: %v", err)
	}
	if err := svc.Cancel(); err != nil {
		t.Fatalf("配置状态取消失败: %v", err)
	}

	// 激活状态不可取消
	if err := svc.Start(models.FocusModeWord, 100, 0); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}
	if err := svc.Cancel(); !apperrors.IsConflictError(err) {
		t.Errorf("激活状态取消应返回冲突错误: %v", err)
	}
}

func TestFocusRebaseOnChapterSwitch(t *testing.T) {
	svc := NewFocusService()

	if err := svc.Start(models.FocusModeWord, 1000, 3000); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}
	svc.Checkpoint(3200) // 进度200

	// 切到另一章（字数500），基准线重置，进度不变
	svc.RebaseTo(500)
	if got := svc.Status().CurrentProgress; got != 200 {
		t.Errorf("切章不应改变进度: 期望=200 实际=%d", got)
	}

	// 在新章节接着写100字
	svc.Checkpoint(600)
	if got := svc.Status().CurrentProgress; got != 300 {
		t.Errorf("切章后的增量应正常累计: 期望=300 实际=%d", got)
	}
}

func TestFocusTimeMode(t *testing.T) {
	svc := NewFocusService()
	base := time.Now()
	svc.now = func() time.Time { return base }

	if err := svc.Start(models.FocusModeTime, 30, 0); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}
	if svc.CanExit() {
		t.Errorf("时间未到不应允许退出")
	}

	status := svc.Status()
	if status.RemainingSecs != 30*60 {
		t.Errorf("剩余时间错误: 期望=%d 实际=%d", 30*60, status.RemainingSecs)
	}

	// 时间推进31分钟
	svc.mu.Lock()
	svc.now = func() time.Time { return base.Add(31 * time.Minute) }
	svc.mu.Unlock()
	if !svc.CanExit() {
		t.Errorf("时间到了应允许退出")
	}
	if err := svc.Exit(); err != nil {
		t.Fatalf("达标退出失败: %v", err)
	}
}

func TestFocusTimeModeIgnoresCheckpoints(t *testing.T) {
	svc := NewFocusService()
	base := time.Now()
	svc.now = func() time.Time { return base }

	if err := svc.Start(models.FocusModeTime, 30, 0); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}

	// 时间模式只看时钟，字数上报不应累计进度
	svc.Checkpoint(500)
	svc.Checkpoint(800)
	if got := svc.Status().CurrentProgress; got != 0 {
		t.Errorf("时间模式不应累计字数进度: 实际=%d", got)
	}

	svc.mu.Lock()
	svc.now = func() time.Time { return base.Add(31 * time.Minute) }
	svc.mu.Unlock()
	if err := svc.Exit(); err != nil {
		t.Fatalf("达标退出失败: %v", err)
	}
}

func TestFocusCanExitOnlyWhileActive(t *testing.T) {
	svc := NewFocusService()

	if svc.CanExit() {
		t.Errorf("空闲状态没有可退出的会话")
	}

	if err := svc.BeginConfiguring(); err != nil {
		t.Fatalf("进入配置状态失败: %v", err)
	}
	if svc.CanExit() {
		t.Errorf("配置状态没有可退出的会话")
	}
}

func TestFocusStartValidation(t *testing.T) {
	svc := NewFocusService()

	if err := svc.Start("sprint", 100, 0); err == nil {
		t.Errorf("未知模式应被拒绝")
	}
	if err := svc.Start(models.FocusModeWord, 0, 0); err == nil {
		t.Errorf("目标为0应被拒绝")
	}
	if err := svc.Start(models.FocusModeWord, 100, 0); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}
	if err := svc.Start(models.FocusModeWord, 100, 0); !apperrors.IsConflictError(err) {
		t.Errorf("重复启动应返回冲突错误: %v", err)
	}
}

func TestFocusSubscribeReceivesUpdates(t *testing.T) {
	svc := NewFocusService()
	ch := svc.Subscribe()
	defer svc.Unsubscribe(ch)

	if err := svc.Start(models.FocusModeWord, 100, 0); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}

	select {
	case status := <-ch:
		if status.State != models.FocusStateActive {
			t.Errorf("推送的状态错误: %+v", status)
		}
	case <-time.After(time.Second):
		t.Errorf("启动后未收到进度推送")
	}
}
