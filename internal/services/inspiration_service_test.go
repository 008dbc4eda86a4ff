// internal/services/inspiration_service_test.go
package services

import (
	"testing"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/storage"
)

func newTestInspirations(t *testing.T) (*InspirationService, *storage.SlotStore) {
	t.Helper()
	store, err := storage.NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	svc, err := NewInspirationService(store)
	if err != nil {
		t.Fatalf("创建灵感服务失败: %v", err)
	}
	return svc, store
}

func TestInspirationNewestFirst(t *testing.T) {
	svc, _ := newTestInspirations(t)

	svc.Add("旧灵感")
	svc.Add("新灵感")

	list := svc.List()
	if len(list) != 2 {
		t.Fatalf("灵感数量错误: %d", len(list))
	}
	if list[0].Text != "新灵感" {
		t.Errorf("最新的灵感应排在最前: %q", list[0].Text)
	}
}

func TestInspirationValidation(t *testing.T) {
	svc, _ := newTestInspirations(t)

	if _, err := svc.Add("  \n\t"); !apperrors.IsValidationError(err) {
		t.Errorf("空白灵感应返回验证错误: %v", err)
	}
}

func TestInspirationDelete(t *testing.T) {
	svc, _ := newTestInspirations(t)

	added, _ := svc.Add("待删灵感")
	if err := svc.Delete(added.ID); err != nil {
		t.Fatalf("删除灵感失败: %v", err)
	}
	if len(svc.List()) != 0 {
		t.Errorf("删除后列表应为空")
	}
	if err := svc.Delete("ghost"); !apperrors.IsNotFoundError(err) {
		t.Errorf("删除不存在的灵感应返回未找到错误: %v", err)
	}
}

func TestInspirationFlushAndReload(t *testing.T) {
	svc, store := newTestInspirations(t)

	svc.Add("跨重启的灵感")
	if err := svc.Flush(); err != nil {
		t.Fatalf("落盘失败: %v", err)
	}

	reloaded, err := NewInspirationService(store)
	if err != nil {
		t.Fatalf("重新加载灵感服务失败: %v", err)
	}
	list := reloaded.List()
	if len(list) != 1 || list[0].Text != "跨重启的灵感" {
		t.Errorf("重新加载后灵感丢失: %+v", list)
	}
}
