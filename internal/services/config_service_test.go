// internal/services/config_service_test.go
package services

import (
	"testing"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/storage"
)

func newTestConfig(t *testing.T) (*ConfigService, *storage.SlotStore) {
	t.Helper()
	store, err := storage.NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	svc, err := NewConfigService(store)
	if err != nil {
		t.Fatalf("创建设置服务失败: %v", err)
	}
	return svc, store
}

func TestConfigDefaults(t *testing.T) {
	svc, _ := newTestConfig(t)

	settings := svc.GetSettings()
	if settings.FontSize != 20 || settings.Theme != "cream" {
		t.Errorf("默认设置不符: %+v", settings)
	}
	if settings.AutoSaveInterval != 10 {
		t.Errorf("默认自动保存间隔错误: %d", settings.AutoSaveInterval)
	}
	if !svc.Dirty() {
		t.Errorf("首次启动的默认设置应标记为待落盘")
	}
}

func TestConfigValidation(t *testing.T) {
	svc, _ := newTestConfig(t)

	cases := []struct {
		name   string
		mutate func(*models.AppSettings)
	}{
		{"字号过小", func(s *models.AppSettings) { s.FontSize = 8 }},
		{"字号过大", func(s *models.AppSettings) { s.FontSize = 48 }},
		{"行高过小", func(s *models.AppSettings) { s.LineHeight = 0.5 }},
		{"行高过大", func(s *models.AppSettings) { s.LineHeight = 3.5 }},
		{"保存间隔过短", func(s *models.AppSettings) { s.AutoSaveInterval = 1 }},
	}
	for _, tc := range cases {
		settings := models.DefaultSettings()
		tc.mutate(settings)
		if err := svc.UpdateSettings(settings); !apperrors.IsValidationError(err) {
			t.Errorf("%s: 应返回验证错误, 实际=%v", tc.name, err)
		}
	}
	if err := svc.UpdateSettings(nil); !apperrors.IsValidationError(err) {
		t.Errorf("空设置应返回验证错误: %v", err)
	}
}

func TestConfigIntervalCallback(t *testing.T) {
	svc, _ := newTestConfig(t)

	var got int
	svc.SetOnIntervalChange(func(seconds int) { got = seconds })

	settings := models.DefaultSettings()
	settings.AutoSaveInterval = 30
	if err := svc.UpdateSettings(settings); err != nil {
		t.Fatalf("更新设置失败: %v", err)
	}
	if got != 30 {
		t.Errorf("间隔变化回调未触发: got=%d", got)
	}

	// 间隔不变时不应重复触发
	got = 0
	next := models.DefaultSettings()
	next.AutoSaveInterval = 30
	next.FontSize = 24
	if err := svc.UpdateSettings(next); err != nil {
		t.Fatalf("更新设置失败: %v", err)
	}
	if got != 0 {
		t.Errorf("间隔未变化不应触发回调")
	}
}

func TestConfigFlushAndReload(t *testing.T) {
	svc, store := newTestConfig(t)

	settings := models.DefaultSettings()
	settings.Theme = "dark"
	settings.FontFamily = "sans"
	if err := svc.UpdateSettings(settings); err != nil {
		t.Fatalf("更新设置失败: %v", err)
	}
	if err := svc.Flush(); err != nil {
		t.Fatalf("落盘失败: %v", err)
	}
	if svc.Dirty() {
		t.Errorf("落盘后不应再有待保存改动")
	}

	reloaded, err := NewConfigService(store)
	if err != nil {
		t.Fatalf("重新加载设置服务失败: %v", err)
	}
	got := reloaded.GetSettings()
	if got.Theme != "dark" || got.FontFamily != "sans" {
		t.Errorf("重新加载后设置丢失: %+v", got)
	}
}
