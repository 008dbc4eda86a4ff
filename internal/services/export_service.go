// internal/services/export_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/storage"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

const exportDir = "exports"

// chapterSeparator 全本导出时章节之间的分隔线
const chapterSeparator = "--- 分章线 ---\n\n"

// ExportService 作品与章节的纯文本导出
type ExportService struct {
	library *LibraryService
	store   *storage.SlotStore
	logger  *utils.Logger
}

// NewExportService 创建导出服务
func NewExportService(library *LibraryService, store *storage.SlotStore) *ExportService {
	return &ExportService{
		library: library,
		store:   store,
		logger:  utils.GetLogger(),
	}
}

// formatChapterBlock 单章的导出格式：标题加空行加正文
func formatChapterBlock(c *models.Chapter) string {
	return fmt.Sprintf("【%s】\n\n%s\n\n", c.Title, c.Content)
}

// ExportChapter 导出单个章节为txt文件
func (s *ExportService) ExportChapter(bookID, chapterID string) (*models.ExportResult, error) {
	book, err := s.library.GetBook(bookID)
	if err != nil {
		return nil, err
	}
	chapter, _ := book.FindChapter(chapterID)
	if chapter == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("章节不存在: %s", chapterID), nil)
	}

	content := formatChapterBlock(chapter)
	filename := fmt.Sprintf("%s_%s.txt", sanitizeFilename(book.Title), sanitizeFilename(chapter.Title))

	filePath, err := s.store.SaveTextFile(exportDir, filename, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("导出章节失败: %w", err)
	}

	s.logger.Infof("已导出章节: %s", filePath)
	return &models.ExportResult{
		BookID:      bookID,
		ChapterID:   chapterID,
		Title:       chapter.Title,
		Format:      "txt",
		Content:     content,
		GeneratedAt: time.Now(),
		ExportType:  "chapter",
		FilePath:    filePath,
		FileSize:    int64(len(content)),
		WordCount:   utils.CountMeaningfulChars(chapter.Content),
	}, nil
}

// ExportBook 导出整本作品为txt文件，章节之间加分隔线
func (s *ExportService) ExportBook(bookID string) (*models.ExportResult, error) {
	book, err := s.library.GetBook(bookID)
	if err != nil {
		return nil, err
	}

	blocks := make([]string, 0, len(book.Chapters))
	wordCount := 0
	for _, c := range book.Chapters {
		blocks = append(blocks, formatChapterBlock(c))
		wordCount += utils.CountMeaningfulChars(c.Content)
	}
	content := strings.Join(blocks, chapterSeparator)

	filename := fmt.Sprintf("%s_全本导出.txt", sanitizeFilename(book.Title))
	filePath, err := s.store.SaveTextFile(exportDir, filename, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("导出作品失败: %w", err)
	}

	s.logger.Infof("已导出作品: %s", filePath)
	return &models.ExportResult{
		BookID:      bookID,
		Title:       book.Title,
		Format:      "txt",
		Content:     content,
		GeneratedAt: time.Now(),
		ExportType:  "book",
		FilePath:    filePath,
		FileSize:    int64(len(content)),
		WordCount:   wordCount,
	}, nil
}

// sanitizeFilename 去掉文件名中的路径分隔符和控制字符
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "未命名"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r < 0x20:
			// 跳过控制字符
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "未命名"
	}
	return b.String()
}
