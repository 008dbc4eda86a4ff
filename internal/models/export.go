// internal/models/export.go
package models

import (
	"time"
)

// ExportResult 导出结果
type ExportResult struct {
	BookID      string    `json:"book_id"`
	ChapterID   string    `json:"chapter_id,omitempty"` // 整本导出时为空
	Title       string    `json:"title"`
	Format      string    `json:"format"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
	ExportType  string    `json:"export_type"` // chapter / book
	FilePath    string    `json:"file_path"`   // 导出文件路径
	FileSize    int64     `json:"file_size"`   // 文件大小
	WordCount   int       `json:"word_count"`  // 导出内容的有效字数
}
