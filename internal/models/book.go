// internal/models/book.go
package models

import (
	"time"
)

// Book 表示一部作品：有序的章节集合与当前章节指针
type Book struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	CoverColor       string     `json:"cover_color"`
	CoverImage       string     `json:"cover_image,omitempty"` // Base64 或 URL
	Chapters         []*Chapter `json:"chapters"`
	CurrentChapterID string     `json:"current_chapter_id"`
	IsFinished       bool       `json:"is_finished"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Chapter 表示一个章节
type Chapter struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	Synopsis     string            `json:"synopsis,omitempty"` // 章节梗概/大纲
	LastModified time.Time         `json:"last_modified"`
	Versions     []*ChapterVersion `json:"versions,omitempty"` // 最新在前，上限200条
}

// ChapterVersion 章节的不可变历史快照，仅由快照服务创建
type ChapterVersion struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Title     string    `json:"title"`
	WordCount int       `json:"word_count"` // 捕获时的有效字数
}

// MaxChapterVersions 每章节保留的历史快照上限，超出后淘汰最旧的
const MaxChapterVersions = 200

// CurrentChapter 返回当前章节；指针失效时回退到第一章
func (b *Book) CurrentChapter() *Chapter {
	for _, c := range b.Chapters {
		if c.ID == b.CurrentChapterID {
			return c
		}
	}
	if len(b.Chapters) > 0 {
		return b.Chapters[0]
	}
	return nil
}

// FindChapter 按ID查找章节及其下标，未找到时返回-1
func (b *Book) FindChapter(chapterID string) (*Chapter, int) {
	for i, c := range b.Chapters {
		if c.ID == chapterID {
			return c, i
		}
	}
	return nil, -1
}

// Clone 返回作品的深拷贝，调用方可以自由修改而不影响存储中的状态
func (b *Book) Clone() *Book {
	clone := *b
	clone.Chapters = make([]*Chapter, len(b.Chapters))
	for i, c := range b.Chapters {
		clone.Chapters[i] = c.Clone()
	}
	return &clone
}

// Clone 返回章节的深拷贝
func (c *Chapter) Clone() *Chapter {
	clone := *c
	if c.Versions != nil {
		clone.Versions = make([]*ChapterVersion, len(c.Versions))
		for i, v := range c.Versions {
			vc := *v
			clone.Versions[i] = &vc
		}
	}
	return &clone
}

// BookSummary 书架列表用的轻量视图，不携带章节正文
type BookSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CoverColor   string    `json:"cover_color"`
	CoverImage   string    `json:"cover_image,omitempty"`
	ChapterCount int       `json:"chapter_count"`
	IsFinished   bool      `json:"is_finished"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"` // 所有章节中最近的修改时间
}

// Summary 生成作品的书架视图
func (b *Book) Summary() *BookSummary {
	s := &BookSummary{
		ID:           b.ID,
		Title:        b.Title,
		CoverColor:   b.CoverColor,
		CoverImage:   b.CoverImage,
		ChapterCount: len(b.Chapters),
		IsFinished:   b.IsFinished,
		CreatedAt:    b.CreatedAt,
	}
	for _, c := range b.Chapters {
		if c.LastModified.After(s.LastActive) {
			s.LastActive = c.LastModified
		}
	}
	return s
}

// FinishStats 完结时展示的作品统计
type FinishStats struct {
	TotalWords    int `json:"total_words"`    // 全书有效字数
	TotalChapters int `json:"total_chapters"` // 章节数
	TotalMinutes  int `json:"total_minutes"`  // 自创建以来的分钟数
}
