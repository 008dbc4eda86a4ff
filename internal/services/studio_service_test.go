// internal/services/studio_service_test.go
package services

import (
	"testing"

	"github.com/Corphon/InkFlowStudio/internal/models"
)

func newTestStudio(t *testing.T) (*StudioService, *LibraryService, *StatsService, *FocusService, string, string) {
	t.Helper()
	library, store := newTestLibrary(t)
	stats, err := NewStatsService(store)
	if err != nil {
		t.Fatalf("创建统计服务失败: %v", err)
	}
	focus := NewFocusService()
	versions := NewVersionService(library)
	studio := NewStudioService(library, stats, focus, versions)

	book, _ := library.CurrentBook()
	return studio, library, stats, focus, book.ID, book.Chapters[0].ID
}

func TestUpdateContentRecordsPositiveDelta(t *testing.T) {
	studio, _, stats, _, bookID, chapterID := newTestStudio(t)

	result, err := studio.UpdateContent(bookID, chapterID, "白日依山尽")
	if err != nil {
		t.Fatalf("更新正文失败: %v", err)
	}
	if result.WordCount != 5 || result.Delta != 5 || result.Recorded != 5 {
		t.Errorf("首次写入结果错误: %+v", result)
	}
	if stats.TodayCount() != 5 {
		t.Errorf("账本应记录5字: 实际=%d", stats.TodayCount())
	}
}

func TestUpdateContentDeletionNotRecorded(t *testing.T) {
	studio, _, stats, _, bookID, chapterID := newTestStudio(t)

	studio.UpdateContent(bookID, chapterID, "白日依山尽黄河入海流")
	result, err := studio.UpdateContent(bookID, chapterID, "白日依山尽")
	if err != nil {
		t.Fatalf("更新正文失败: %v", err)
	}
	if result.Delta != -5 {
		t.Errorf("删除的增量应为-5: 实际=%d", result.Delta)
	}
	if result.Recorded != 0 {
		t.Errorf("删除不应计入账本: 实际=%d", result.Recorded)
	}
	if stats.TodayCount() != 10 {
		t.Errorf("账本应保持10字: 实际=%d", stats.TodayCount())
	}
}

func TestDeleteThenRewriteCountedOnce(t *testing.T) {
	studio, _, stats, _, bookID, chapterID := newTestStudio(t)

	studio.UpdateContent(bookID, chapterID, "床前明月光")  // +5
	studio.UpdateContent(bookID, chapterID, "床前")     // 删3，不计
	studio.UpdateContent(bookID, chapterID, "床前明月光") // 重写3，+3

	if got := stats.TodayCount(); got != 8 {
		t.Errorf("删后重写应再次计入: 期望=8 实际=%d", got)
	}
}

func TestChapterSwitchDoesNotPolluteLedger(t *testing.T) {
	studio, library, stats, _, bookID, firstID := newTestStudio(t)

	studio.UpdateContent(bookID, firstID, "第一章的五个字")

	second, err := library.AddChapter(bookID)
	if err != nil {
		t.Fatalf("新建章节失败: %v", err)
	}
	if _, err := studio.Navigate(bookID, second.ID); err != nil {
		t.Fatalf("切换章节失败: %v", err)
	}

	// 在空的第二章写3字：只应计3字，而不是相对第一章的差值
	before := stats.TodayCount()
	studio.UpdateContent(bookID, second.ID, "新章节")
	if got := stats.TodayCount() - before; got != 3 {
		t.Errorf("切章后的首次编辑计数错误: 期望=3 实际=%d", got)
	}
}

func TestEditUntrackedChapterUsesStoredBaseline(t *testing.T) {
	studio, library, stats, _, bookID, firstID := newTestStudio(t)

	studio.UpdateContent(bookID, firstID, "一二三四五六七八九十")

	// 不经过 Navigate，直接编辑另一章节
	second, _ := library.AddChapter(bookID)
	before := stats.TodayCount()
	result, err := studio.UpdateContent(bookID, second.ID, "两个字…不止")
	if err != nil {
		t.Fatalf("更新正文失败: %v", err)
	}
	if result.Delta != 5 {
		t.Errorf("未跟踪章节应以存储内容为基准: 期望=5 实际=%d", result.Delta)
	}
	if stats.TodayCount()-before != 5 {
		t.Errorf("账本增量错误")
	}
}

func TestUpdateContentFeedsFocusSession(t *testing.T) {
	studio, _, _, focus, bookID, chapterID := newTestStudio(t)

	if err := focus.Start(models.FocusModeWord, 10, 0); err != nil {
		t.Fatalf("启动锁定会话失败: %v", err)
	}

	result, err := studio.UpdateContent(bookID, chapterID, "春眠不觉晓")
	if err != nil {
		t.Fatalf("更新正文失败: %v", err)
	}
	if result.Focus == nil || result.Focus.CurrentProgress != 5 {
		t.Errorf("锁定会话进度未跟进: %+v", result.Focus)
	}
}

func TestSmartFormat(t *testing.T) {
	input := "  第一段开头\n\n\n第二段  \n　　已有缩进的段落\n"
	want := "　　第一段开头\n\n　　第二段\n\n　　已有缩进的段落"

	if got := SmartFormat(input); got != want {
		t.Errorf("智能排版结果错误:\n期望=%q\n实际=%q", want, got)
	}
}

func TestFormatChapterKeepsLedgerUnchanged(t *testing.T) {
	studio, library, stats, _, bookID, chapterID := newTestStudio(t)

	studio.UpdateContent(bookID, chapterID, "第一段\n第二段")
	before := stats.TodayCount()

	result, err := studio.FormatChapter(bookID, chapterID)
	if err != nil {
		t.Fatalf("智能排版失败: %v", err)
	}
	// 排版只动空白，有效字数不变
	if result.Delta != 0 {
		t.Errorf("排版不应产生字数增量: 实际=%d", result.Delta)
	}
	if stats.TodayCount() != before {
		t.Errorf("排版污染了账本")
	}

	chapter, _ := library.GetChapter(bookID, chapterID)
	if chapter.Content != "　　第一段\n\n　　第二段" {
		t.Errorf("排版结果错误: %q", chapter.Content)
	}
	// 排版前应有快照兜底
	if len(chapter.Versions) == 0 {
		t.Errorf("排版前应创建历史快照")
	}
}

func TestRevertChapterRebasesWithoutLedger(t *testing.T) {
	studio, library, stats, _, bookID, chapterID := newTestStudio(t)
	versions := NewVersionService(library)

	studio.UpdateContent(bookID, chapterID, "短稿")
	old, _ := versions.Snapshot(bookID, chapterID)
	studio.UpdateContent(bookID, chapterID, "这是一份长得多的稿子")

	before := stats.TodayCount()
	if err := studio.RevertChapter(bookID, chapterID, old.ID); err != nil {
		t.Fatalf("回滚失败: %v", err)
	}
	if stats.TodayCount() != before {
		t.Errorf("回滚不应改变账本")
	}

	// 回滚后继续写作，增量以回滚后的字数为基准
	result, _ := studio.UpdateContent(bookID, chapterID, "短稿加一点")
	if result.Delta != 3 {
		t.Errorf("回滚后的基准线错误: 期望=3 实际=%d", result.Delta)
	}
}
