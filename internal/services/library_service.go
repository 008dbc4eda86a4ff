// internal/services/library_service.go
package services

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/storage"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

const (
	slotBooks       = "books"
	slotCurrentBook = "current_book"
)

// currentBookSlot current_book 槽的持久化结构
type currentBookSlot struct {
	CurrentBookID string `json:"current_book_id"`
}

// LibraryService 管理书架：所有作品及其章节的唯一内存副本
//
// 所有读取操作返回深拷贝，调用方不可能绕过服务直接修改存储状态；
// 所有修改操作在锁内完成并置脏标记，由自动保存服务统一落盘。
type LibraryService struct {
	mu            sync.RWMutex
	books         []*models.Book
	currentBookID string
	dirty         bool

	store  *storage.SlotStore
	logger *utils.Logger
}

// NewLibraryService 创建书架服务并从存储槽加载数据
//
// books 槽缺失或损坏时从一本默认作品重新开始，不影响其他槽。
func NewLibraryService(store *storage.SlotStore) (*LibraryService, error) {
	s := &LibraryService{
		store:  store,
		logger: utils.GetLogger(),
	}

	var books []*models.Book
	if err := store.LoadSlot(slotBooks, &books); err != nil {
		if err != storage.ErrSlotNotFound {
			s.logger.Warnf("加载作品数据失败，使用默认书架: %v", err)
		}
		books = nil
	}

	if len(books) == 0 {
		book := newDefaultBook("我的第一部小说")
		books = []*models.Book{book}
		s.dirty = true
	}
	s.books = books

	var current currentBookSlot
	if err := store.LoadSlot(slotCurrentBook, &current); err == nil {
		s.currentBookID = current.CurrentBookID
	}
	if s.findBook(s.currentBookID) == nil {
		s.currentBookID = s.books[0].ID
		s.dirty = true
	}

	return s, nil
}

// coverColors 新建作品时随机选用的封面色板
var coverColors = []string{
	"bg-amber-700", "bg-emerald-800", "bg-blue-900",
	"bg-red-900", "bg-indigo-900", "bg-slate-800",
}

// synopsisPlaceholder 新章节梗概区的占位文案
const synopsisPlaceholder = "在这里输入本章梗概..."

// newDefaultBook 创建带一个空章节的新作品
func newDefaultBook(title string) *models.Book {
	chapter := &models.Chapter{
		ID:           uuid.New().String(),
		Title:        "第 1 章",
		Synopsis:     synopsisPlaceholder,
		LastModified: time.Now(),
	}
	return &models.Book{
		ID:               uuid.New().String(),
		Title:            title,
		CoverColor:       coverColors[rand.Intn(len(coverColors))],
		Chapters:         []*models.Chapter{chapter},
		CurrentChapterID: chapter.ID,
		CreatedAt:        time.Now(),
	}
}

// findBook 按ID查找作品，调用方需持有锁
func (s *LibraryService) findBook(bookID string) *models.Book {
	for _, b := range s.books {
		if b.ID == bookID {
			return b
		}
	}
	return nil
}

// Books 返回书架视图：未完结的在前，组内按创建时间倒序
func (s *LibraryService) Books() []*models.BookSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]*models.BookSummary, 0, len(s.books))
	for _, b := range s.books {
		summaries = append(summaries, b.Summary())
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].IsFinished != summaries[j].IsFinished {
			return !summaries[i].IsFinished
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// GetBook 获取指定作品的深拷贝
func (s *LibraryService) GetBook(bookID string) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book := s.findBook(bookID)
	if book == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	return book.Clone(), nil
}

// CurrentBookID 当前选中的作品ID
func (s *LibraryService) CurrentBookID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentBookID
}

// CurrentBook 获取当前作品的深拷贝
func (s *LibraryService) CurrentBook() (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book := s.findBook(s.currentBookID)
	if book == nil {
		if len(s.books) == 0 {
			return nil, apperrors.NewNotFoundError("书架为空", nil)
		}
		book = s.books[0]
	}
	return book.Clone(), nil
}

// SelectBook 切换当前作品
func (s *LibraryService) SelectBook(bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findBook(bookID) == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	if s.currentBookID != bookID {
		s.currentBookID = bookID
		s.dirty = true
	}
	return nil
}

// CreateBook 新建作品并切换到它
func (s *LibraryService) CreateBook(title string) (*models.Book, error) {
	if title == "" {
		title = "未命名大作"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book := newDefaultBook(title)
	s.books = append(s.books, book)
	s.currentBookID = book.ID
	s.dirty = true

	s.logger.Infof("新建作品: %s (%s)", book.Title, book.ID)
	return book.Clone(), nil
}

// RenameBook 重命名作品
func (s *LibraryService) RenameBook(bookID, title string) error {
	if title == "" {
		return apperrors.NewValidationError("作品名称不能为空", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	book.Title = title
	s.dirty = true
	return nil
}

// SetBookCover 设置作品封面颜色或封面图
func (s *LibraryService) SetBookCover(bookID, coverColor, coverImage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	if coverColor != "" {
		book.CoverColor = coverColor
	}
	book.CoverImage = coverImage
	s.dirty = true
	return nil
}

// DeleteBook 删除作品
//
// 删除最后一本作品后会自动补一本空白作品，书架不会出现空状态。
func (s *LibraryService) DeleteBook(bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := -1
	for i, b := range s.books {
		if b.ID == bookID {
			index = i
			break
		}
	}
	if index < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}

	s.books = append(s.books[:index], s.books[index+1:]...)
	if len(s.books) == 0 {
		s.books = []*models.Book{newDefaultBook("我的第一部小说")}
	}
	if s.currentBookID == bookID {
		s.currentBookID = s.books[0].ID
	}
	s.dirty = true

	s.logger.Infof("删除作品: %s", bookID)
	return nil
}

// FinishBook 将作品标记为完结并返回完结统计
func (s *LibraryService) FinishBook(bookID string) (*models.FinishStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	if book.IsFinished {
		return nil, apperrors.NewConflictError("作品已完结", nil)
	}

	book.IsFinished = true
	s.dirty = true

	totalWords := 0
	for _, c := range book.Chapters {
		totalWords += utils.CountMeaningfulChars(c.Content)
	}
	stats := &models.FinishStats{
		TotalWords:    totalWords,
		TotalChapters: len(book.Chapters),
		TotalMinutes:  int(time.Since(book.CreatedAt).Minutes()),
	}

	s.logger.Infof("作品完结: %s，共%d章%d字", book.Title, stats.TotalChapters, stats.TotalWords)
	return stats, nil
}

// AddChapter 追加新章节并切换到它，标题自动取"第 N 章"
func (s *LibraryService) AddChapter(bookID string) (*models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}

	chapter := &models.Chapter{
		ID:           uuid.New().String(),
		Title:        fmt.Sprintf("第 %d 章", len(book.Chapters)+1),
		Synopsis:     synopsisPlaceholder,
		LastModified: time.Now(),
	}
	book.Chapters = append(book.Chapters, chapter)
	book.CurrentChapterID = chapter.ID
	s.dirty = true

	return chapter.Clone(), nil
}

// DeleteChapter 删除章节，作品至少保留一章
//
// 删除的是当前章节时，指针回落到剩余章节中的第一章。
func (s *LibraryService) DeleteChapter(bookID, chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	if len(book.Chapters) <= 1 {
		return apperrors.NewConflictError("无法删除唯一的章节", nil)
	}

	_, index := book.FindChapter(chapterID)
	if index < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("章节不存在: %s", chapterID), nil)
	}

	book.Chapters = append(book.Chapters[:index], book.Chapters[index+1:]...)
	if book.CurrentChapterID == chapterID {
		book.CurrentChapterID = book.Chapters[0].ID
	}
	s.dirty = true
	return nil
}

// SelectChapter 切换作品内的当前章节
func (s *LibraryService) SelectChapter(bookID, chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	if chapter, _ := book.FindChapter(chapterID); chapter == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("章节不存在: %s", chapterID), nil)
	}
	if book.CurrentChapterID != chapterID {
		book.CurrentChapterID = chapterID
		s.dirty = true
	}
	return nil
}

// ReorderChapters 按给定ID顺序重排章节
//
// orderedIDs 必须与现有章节构成同一集合，否则拒绝整个操作。
func (s *LibraryService) ReorderChapters(bookID string, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	if len(orderedIDs) != len(book.Chapters) {
		return apperrors.NewValidationError("章节顺序列表与现有章节数量不一致", nil)
	}

	reordered := make([]*models.Chapter, 0, len(orderedIDs))
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return apperrors.NewValidationError(fmt.Sprintf("章节ID重复: %s", id), nil)
		}
		seen[id] = true

		chapter, _ := book.FindChapter(id)
		if chapter == nil {
			return apperrors.NewValidationError(fmt.Sprintf("章节ID不属于该作品: %s", id), nil)
		}
		reordered = append(reordered, chapter)
	}

	book.Chapters = reordered
	s.dirty = true
	return nil
}

// GetChapter 获取章节的深拷贝
func (s *LibraryService) GetChapter(bookID, chapterID string) (*models.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book := s.findBook(bookID)
	if book == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	chapter, _ := book.FindChapter(chapterID)
	if chapter == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("章节不存在: %s", chapterID), nil)
	}
	return chapter.Clone(), nil
}

// SetChapterContent 更新章节正文并刷新修改时间
func (s *LibraryService) SetChapterContent(bookID, chapterID, content string) error {
	return s.mutateChapter(bookID, chapterID, func(c *models.Chapter) error {
		c.Content = content
		c.LastModified = time.Now()
		return nil
	})
}

// SetChapterTitle 更新章节标题
func (s *LibraryService) SetChapterTitle(bookID, chapterID, title string) error {
	if title == "" {
		return apperrors.NewValidationError("章节标题不能为空", nil)
	}
	return s.mutateChapter(bookID, chapterID, func(c *models.Chapter) error {
		c.Title = title
		c.LastModified = time.Now()
		return nil
	})
}

// SetChapterSynopsis 更新章节梗概
func (s *LibraryService) SetChapterSynopsis(bookID, chapterID, synopsis string) error {
	return s.mutateChapter(bookID, chapterID, func(c *models.Chapter) error {
		c.Synopsis = synopsis
		return nil
	})
}

// mutateChapter 在锁内对章节执行修改函数并置脏标记
func (s *LibraryService) mutateChapter(bookID, chapterID string, fn func(*models.Chapter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.findBook(bookID)
	if book == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("作品不存在: %s", bookID), nil)
	}
	chapter, _ := book.FindChapter(chapterID)
	if chapter == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("章节不存在: %s", chapterID), nil)
	}

	if err := fn(chapter); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Dirty 是否有未落盘的改动
func (s *LibraryService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Flush 将书架数据写入存储槽，无改动时直接返回
func (s *LibraryService) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.store.SaveSlot(slotBooks, s.books); err != nil {
		return fmt.Errorf("保存作品数据失败: %w", err)
	}
	if err := s.store.SaveSlot(slotCurrentBook, &currentBookSlot{CurrentBookID: s.currentBookID}); err != nil {
		return fmt.Errorf("保存当前作品指针失败: %w", err)
	}
	s.dirty = false
	return nil
}
