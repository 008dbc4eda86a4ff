// internal/services/export_service_test.go
package services

import (
	"os"
	"strings"
	"testing"
)

func TestExportChapterFormat(t *testing.T) {
	library, store := newTestLibrary(t)
	svc := NewExportService(library, store)

	book, _ := library.CurrentBook()
	chapterID := book.Chapters[0].ID
	library.SetChapterTitle(book.ID, chapterID, "初入江湖")
	library.SetChapterContent(book.ID, chapterID, "少年负剑出门去。")

	result, err := svc.ExportChapter(book.ID, chapterID)
	if err != nil {
		t.Fatalf("导出章节失败: %v", err)
	}

	want := "【初入江湖】\n\n少年负剑出门去。\n\n"
	if result.Content != want {
		t.Errorf("导出格式错误:\n期望=%q\n实际=%q", want, result.Content)
	}
	if result.WordCount != 7 {
		t.Errorf("导出字数错误: 期望=7 实际=%d", result.WordCount)
	}

	// 文件确实写到了导出目录
	content, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("读取导出文件失败: %v", err)
	}
	if string(content) != want {
		t.Errorf("导出文件内容不一致")
	}
}

func TestExportBookWithSeparators(t *testing.T) {
	library, store := newTestLibrary(t)
	svc := NewExportService(library, store)

	book, _ := library.CurrentBook()
	library.SetChapterContent(book.ID, book.Chapters[0].ID, "第一章正文")
	second, _ := library.AddChapter(book.ID)
	library.SetChapterContent(book.ID, second.ID, "第二章正文")

	result, err := svc.ExportBook(book.ID)
	if err != nil {
		t.Fatalf("导出作品失败: %v", err)
	}

	if !strings.Contains(result.Content, "--- 分章线 ---") {
		t.Errorf("全本导出应包含分章线")
	}
	if strings.Count(result.Content, "--- 分章线 ---") != 1 {
		t.Errorf("两章之间应只有一条分章线")
	}
	if !strings.HasPrefix(result.Content, "【第 1 章】\n\n第一章正文\n\n") {
		t.Errorf("全本导出开头格式错误: %q", result.Content[:min(60, len(result.Content))])
	}
	if result.ExportType != "book" {
		t.Errorf("导出类型错误: %s", result.ExportType)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"我的书", "我的书"},
		{"a/b\\c:d", "a_b_c_d"},
		{"   ", "未命名"},
		{"问号?书*名", "问号_书_名"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("文件名清洗错误: 输入=%q 期望=%q 实际=%q", tc.in, tc.want, got)
		}
	}
}
