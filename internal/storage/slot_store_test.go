// internal/storage/slot_store_test.go
package storage

import (
	"os"
	"path/filepath"
	"testing"
)

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveAndLoadSlot(t *testing.T) {
	store, err := NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	saved := &testPayload{Name: "稿件", Count: 42}
	if err := store.SaveSlot("books", saved); err != nil {
		t.Fatalf("保存存储槽失败: %v", err)
	}

	var loaded testPayload
	if err := store.LoadSlot("books", &loaded); err != nil {
		t.Fatalf("读取存储槽失败: %v", err)
	}
	if loaded.Name != saved.Name || loaded.Count != saved.Count {
		t.Errorf("读取的数据与保存的不一致: %+v", loaded)
	}
}

func TestLoadMissingSlot(t *testing.T) {
	store, err := NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	var payload testPayload
	if err := store.LoadSlot("missing", &payload); err != ErrSlotNotFound {
		t.Errorf("缺失的槽应返回 ErrSlotNotFound，实际: %v", err)
	}
}

func TestCorruptSlotDoesNotAffectOthers(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSlotStore(dir)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	if err := store.SaveSlot("stats", &testPayload{Name: "统计", Count: 7}); err != nil {
		t.Fatalf("保存存储槽失败: %v", err)
	}

	// 手动损坏另一个槽
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{broken"), 0644); err != nil {
		t.Fatalf("写入损坏文件失败: %v", err)
	}

	var broken testPayload
	if err := store.LoadSlot("settings", &broken); err == nil {
		t.Errorf("损坏的槽应返回解析错误")
	}

	// 损坏的槽不影响正常槽的加载
	var ok testPayload
	if err := store.LoadSlot("stats", &ok); err != nil {
		t.Errorf("正常槽受到了损坏槽的影响: %v", err)
	}
	if ok.Count != 7 {
		t.Errorf("正常槽数据错误: %+v", ok)
	}
}

func TestAtomicWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSlotStore(dir)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	if err := store.SaveSlot("books", &testPayload{Name: "a"}); err != nil {
		t.Fatalf("保存存储槽失败: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "books.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("写入完成后临时文件未被清理")
	}
}

func TestDeleteSlot(t *testing.T) {
	store, err := NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	if err := store.SaveSlot("books", &testPayload{}); err != nil {
		t.Fatalf("保存存储槽失败: %v", err)
	}
	if !store.SlotExists("books") {
		t.Fatalf("保存后槽应存在")
	}
	if err := store.DeleteSlot("books"); err != nil {
		t.Fatalf("删除存储槽失败: %v", err)
	}
	if store.SlotExists("books") {
		t.Errorf("删除后槽仍然存在")
	}

	// 删除不存在的槽不报错
	if err := store.DeleteSlot("missing"); err != nil {
		t.Errorf("删除不存在的槽不应报错: %v", err)
	}
}

func TestSaveTextFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSlotStore(dir)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	path, err := store.SaveTextFile("exports", "作品_全本导出.txt", []byte("【第 1 章】\n\n正文"))
	if err != nil {
		t.Fatalf("保存文本文件失败: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取导出文件失败: %v", err)
	}
	if string(content) != "【第 1 章】\n\n正文" {
		t.Errorf("导出文件内容不一致: %q", string(content))
	}
}
