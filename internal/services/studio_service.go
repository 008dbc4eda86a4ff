// internal/services/studio_service.go
package services

import (
	"strings"
	"sync"

	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

// UpdateResult 一次正文更新后的聚合反馈
type UpdateResult struct {
	WordCount int                 `json:"word_count"` // 更新后的章节有效字数
	Delta     int                 `json:"delta"`      // 相对基准线的变化，可为负
	Recorded  int                 `json:"recorded"`   // 实际计入账本的增量
	Focus     *models.FocusStatus `json:"focus"`      // 更新后的锁定会话状态
}

// StudioService 写作现场的编排层
//
// 正文的每次更新都经过这里：统计有效字数、换算相对基准线的增量、
// 喂给账本和锁定会话，最后写入书架。基准线跟随"上一次观测到的
// 字数"而非文档历史，所以切换章节不会把旧章节的字数算成新增。
type StudioService struct {
	mu sync.Mutex

	library  *LibraryService
	stats    *StatsService
	focus    *FocusService
	versions *VersionService

	// 增量基准线，只对被跟踪的章节有效
	trackedBookID     string
	trackedChapterID  string
	lastObservedCount int

	logger *utils.Logger
}

// NewStudioService 创建编排服务
func NewStudioService(library *LibraryService, stats *StatsService, focus *FocusService, versions *VersionService) *StudioService {
	return &StudioService{
		library:  library,
		stats:    stats,
		focus:    focus,
		versions: versions,
		logger:   utils.GetLogger(),
	}
}

// baselineFor 计算本次更新的增量基准线，调用方需持有锁
//
// 正在跟踪同一章节时沿用上次观测值；否则以存储中该章节的
// 当前字数为基准，避免章节切换后的首次编辑污染账本。
func (s *StudioService) baselineFor(bookID, chapterID string) (int, error) {
	if s.trackedBookID == bookID && s.trackedChapterID == chapterID {
		return s.lastObservedCount, nil
	}
	chapter, err := s.library.GetChapter(bookID, chapterID)
	if err != nil {
		return 0, err
	}
	return utils.CountMeaningfulChars(chapter.Content), nil
}

// UpdateContent 更新章节正文并推进统计与锁定会话
func (s *StudioService) UpdateContent(bookID, chapterID, content string) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	baseline, err := s.baselineFor(bookID, chapterID)
	if err != nil {
		return nil, err
	}

	count := utils.CountMeaningfulChars(content)
	delta := count - baseline

	if err := s.library.SetChapterContent(bookID, chapterID, content); err != nil {
		return nil, err
	}

	recorded := 0
	if delta > 0 {
		s.stats.RecordDelta(delta)
		recorded = delta
	}
	s.focus.Checkpoint(count)

	s.trackedBookID = bookID
	s.trackedChapterID = chapterID
	s.lastObservedCount = count

	return &UpdateResult{
		WordCount: count,
		Delta:     delta,
		Recorded:  recorded,
		Focus:     s.focus.Status(),
	}, nil
}

// Navigate 切换当前章节并重置增量基准线
//
// 锁定会话的字数基准线同步切换，跨章节继续写作时进度不断档。
func (s *StudioService) Navigate(bookID, chapterID string) (*models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.library.SelectBook(bookID); err != nil {
		return nil, err
	}
	if err := s.library.SelectChapter(bookID, chapterID); err != nil {
		return nil, err
	}

	chapter, err := s.library.GetChapter(bookID, chapterID)
	if err != nil {
		return nil, err
	}

	count := utils.CountMeaningfulChars(chapter.Content)
	s.trackedBookID = bookID
	s.trackedChapterID = chapterID
	s.lastObservedCount = count
	s.focus.RebaseTo(count)

	return chapter, nil
}

// AddChapterAndNavigate 新建章节并跳转到它
func (s *StudioService) AddChapterAndNavigate(bookID string) (*models.Chapter, error) {
	chapter, err := s.library.AddChapter(bookID)
	if err != nil {
		return nil, err
	}
	return s.Navigate(bookID, chapter.ID)
}

// FormatChapter 智能排版当前章节
//
// 每段去除首尾空白、丢弃空行、加全角缩进、段间空一行。
// 排版前先创建历史快照，不满意可以回滚。
func (s *StudioService) FormatChapter(bookID, chapterID string) (*UpdateResult, error) {
	chapter, err := s.library.GetChapter(bookID, chapterID)
	if err != nil {
		return nil, err
	}

	if _, err := s.versions.Snapshot(bookID, chapterID); err != nil {
		return nil, err
	}

	return s.UpdateContent(bookID, chapterID, SmartFormat(chapter.Content))
}

// SmartFormat 中文小说排版：全角缩进加段间空行
func SmartFormat(content string) string {
	lines := strings.Split(content, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		p := strings.TrimSpace(line)
		if p == "" {
			continue
		}
		paragraphs = append(paragraphs, "　　"+p)
	}
	return strings.Join(paragraphs, "\n\n")
}

// RevertChapter 回滚章节到指定快照并重置增量基准线
//
// 回滚导致的字数变化不计入账本，基准线直接跳到回滚后的字数。
func (s *StudioService) RevertChapter(bookID, chapterID, versionID string) error {
	if err := s.versions.Revert(bookID, chapterID, versionID); err != nil {
		return err
	}

	chapter, err := s.library.GetChapter(bookID, chapterID)
	if err != nil {
		return err
	}
	count := utils.CountMeaningfulChars(chapter.Content)

	s.mu.Lock()
	s.trackedBookID = bookID
	s.trackedChapterID = chapterID
	s.lastObservedCount = count
	s.mu.Unlock()

	s.focus.RebaseTo(count)
	return nil
}

// SnapshotBeforeFlush 落盘前为当前章节补一条快照
//
// 自动保存服务在写盘前调用，保证每个落盘时刻都有对应的历史版本。
func (s *StudioService) SnapshotBeforeFlush() {
	s.mu.Lock()
	bookID, chapterID := s.trackedBookID, s.trackedChapterID
	s.mu.Unlock()

	// 还没跟踪过任何编辑时退回到当前选中的章节
	if bookID == "" || chapterID == "" {
		book, err := s.library.CurrentBook()
		if err != nil {
			return
		}
		chapter := book.CurrentChapter()
		if chapter == nil {
			return
		}
		bookID, chapterID = book.ID, chapter.ID
	}
	if _, err := s.versions.Snapshot(bookID, chapterID); err != nil {
		s.logger.Warnf("落盘前快照失败: %v", err)
	}
}
