// internal/services/library_service_test.go
package services

import (
	"testing"
	"time"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/storage"
)

func newTestLibrary(t *testing.T) (*LibraryService, *storage.SlotStore) {
	t.Helper()
	store, err := storage.NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	svc, err := NewLibraryService(store)
	if err != nil {
		t.Fatalf("创建书架服务失败: %v", err)
	}
	return svc, store
}

func TestLibrarySeedsDefaultBook(t *testing.T) {
	svc, _ := newTestLibrary(t)

	books := svc.Books()
	if len(books) != 1 {
		t.Fatalf("首次启动应有一本默认作品: 实际=%d", len(books))
	}
	if books[0].ChapterCount != 1 {
		t.Errorf("默认作品应带一个章节: 实际=%d", books[0].ChapterCount)
	}
	if svc.CurrentBookID() != books[0].ID {
		t.Errorf("默认作品应被选中")
	}
}

func TestDeleteSoleChapterRefused(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()

	err := svc.DeleteChapter(book.ID, book.Chapters[0].ID)
	if !apperrors.IsConflictError(err) {
		t.Errorf("删除唯一章节应返回冲突错误: %v", err)
	}
}

func TestDeleteCurrentChapterMovesPointer(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()

	if _, err := svc.AddChapter(book.ID); err != nil {
		t.Fatalf("新建章节失败: %v", err)
	}
	third, err := svc.AddChapter(book.ID)
	if err != nil {
		t.Fatalf("新建章节失败: %v", err)
	}

	// 删除当前章节（第三章），指针应回到剩余章节里的第一章
	if err := svc.DeleteChapter(book.ID, third.ID); err != nil {
		t.Fatalf("删除章节失败: %v", err)
	}
	after, _ := svc.GetBook(book.ID)
	if after.CurrentChapterID != book.Chapters[0].ID {
		t.Errorf("删除当前章节后指针应回到第一章")
	}
}

func TestAddChapterAutoTitle(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()

	second, err := svc.AddChapter(book.ID)
	if err != nil {
		t.Fatalf("新建章节失败: %v", err)
	}
	if second.Title != "第 2 章" {
		t.Errorf("章节自动标题错误: %s", second.Title)
	}
	if second.Synopsis != "在这里输入本章梗概..." {
		t.Errorf("新章节应带梗概占位文案: %q", second.Synopsis)
	}

	third, _ := svc.AddChapter(book.ID)
	if third.Title != "第 3 章" {
		t.Errorf("章节自动标题错误: %s", third.Title)
	}

	// 新章节应被选中
	after, _ := svc.GetBook(book.ID)
	if after.CurrentChapterID != third.ID {
		t.Errorf("新建章节后应切换到它")
	}
}

func TestReorderChaptersValidation(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()
	second, _ := svc.AddChapter(book.ID)
	first := book.Chapters[0]

	// 数量不符
	if err := svc.ReorderChapters(book.ID, []string{first.ID}); err == nil {
		t.Errorf("数量不符应被拒绝")
	}
	// ID重复
	if err := svc.ReorderChapters(book.ID, []string{first.ID, first.ID}); err == nil {
		t.Errorf("重复ID应被拒绝")
	}
	// 不属于该作品的ID
	if err := svc.ReorderChapters(book.ID, []string{first.ID, "stranger"}); err == nil {
		t.Errorf("陌生ID应被拒绝")
	}

	// 正常重排
	if err := svc.ReorderChapters(book.ID, []string{second.ID, first.ID}); err != nil {
		t.Fatalf("重排失败: %v", err)
	}
	after, _ := svc.GetBook(book.ID)
	if after.Chapters[0].ID != second.ID {
		t.Errorf("重排未生效")
	}
}

func TestBooksSortedUnfinishedFirst(t *testing.T) {
	svc, _ := newTestLibrary(t)

	older, _ := svc.CreateBook("旧作")
	newer, _ := svc.CreateBook("新作")

	// 人为拉开创建时间
	svc.mu.Lock()
	svc.findBook(older.ID).CreatedAt = time.Now().Add(-time.Hour)
	svc.findBook(newer.ID).CreatedAt = time.Now()
	svc.mu.Unlock()

	if _, err := svc.FinishBook(newer.ID); err != nil {
		t.Fatalf("完结作品失败: %v", err)
	}

	books := svc.Books()
	if books[len(books)-1].ID != newer.ID {
		t.Errorf("完结的作品应排在最后")
	}
	for i := 0; i < len(books)-1; i++ {
		if books[i].IsFinished {
			t.Errorf("未完结的作品应排在前面")
		}
	}
}

func TestFinishBookStats(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()

	if err := svc.SetChapterContent(book.ID, book.Chapters[0].ID, "月落乌啼霜满天"); err != nil {
		t.Fatalf("写入正文失败: %v", err)
	}

	stats, err := svc.FinishBook(book.ID)
	if err != nil {
		t.Fatalf("完结作品失败: %v", err)
	}
	if stats.TotalWords != 7 {
		t.Errorf("完结字数统计错误: 期望=7 实际=%d", stats.TotalWords)
	}
	if stats.TotalChapters != 1 {
		t.Errorf("完结章节数错误: 实际=%d", stats.TotalChapters)
	}

	// 重复完结被拒绝
	if _, err := svc.FinishBook(book.ID); !apperrors.IsConflictError(err) {
		t.Errorf("重复完结应返回冲突错误: %v", err)
	}
}

func TestDeleteLastBookReseeds(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()

	if err := svc.DeleteBook(book.ID); err != nil {
		t.Fatalf("删除作品失败: %v", err)
	}

	books := svc.Books()
	if len(books) != 1 {
		t.Fatalf("删除最后一本后应自动补一本: 实际=%d", len(books))
	}
	if books[0].ID == book.ID {
		t.Errorf("补的应是新作品")
	}
	if svc.CurrentBookID() != books[0].ID {
		t.Errorf("新作品应被选中")
	}
}

func TestGetBookReturnsDeepCopy(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()

	copy1, _ := svc.GetBook(book.ID)
	copy1.Chapters[0].Content = "篡改"
	copy1.Title = "篡改标题"

	copy2, _ := svc.GetBook(book.ID)
	if copy2.Chapters[0].Content == "篡改" || copy2.Title == "篡改标题" {
		t.Errorf("读取副本的修改不应影响存储状态")
	}
}

func TestLibraryFlushAndReload(t *testing.T) {
	store, err := storage.NewSlotStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	svc, err := NewLibraryService(store)
	if err != nil {
		t.Fatalf("创建书架服务失败: %v", err)
	}
	book, _ := svc.CurrentBook()
	if err := svc.SetChapterContent(book.ID, book.Chapters[0].ID, "落霞与孤鹜齐飞"); err != nil {
		t.Fatalf("写入正文失败: %v", err)
	}
	if err := svc.Flush(); err != nil {
		t.Fatalf("落盘失败: %v", err)
	}

	reloaded, err := NewLibraryService(store)
	if err != nil {
		t.Fatalf("重新加载书架失败: %v", err)
	}
	after, err := reloaded.GetBook(book.ID)
	if err != nil {
		t.Fatalf("重新加载后作品丢失: %v", err)
	}
	if after.Chapters[0].Content != "落霞与孤鹜齐飞" {
		t.Errorf("重新加载后正文不一致: %q", after.Chapters[0].Content)
	}
	if reloaded.CurrentBookID() != book.ID {
		t.Errorf("当前作品指针未恢复")
	}
}

func TestSelectChapterFallback(t *testing.T) {
	svc, _ := newTestLibrary(t)
	book, _ := svc.CurrentBook()

	if err := svc.SelectChapter(book.ID, "ghost"); !apperrors.IsNotFoundError(err) {
		t.Errorf("选择不存在的章节应返回未找到错误: %v", err)
	}

	// 指针失效时 CurrentChapter 回退到第一章
	svc.mu.Lock()
	svc.findBook(book.ID).CurrentChapterID = "ghost"
	svc.mu.Unlock()

	after, _ := svc.GetBook(book.ID)
	if current := after.CurrentChapter(); current == nil || current.ID != book.Chapters[0].ID {
		t.Errorf("失效指针应回退到第一章")
	}
}
