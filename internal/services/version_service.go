// internal/services/version_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

// VersionService 章节历史快照的创建与回滚
//
// 快照是不可变的：创建后任何操作都不会修改既有快照的内容。
// 每章保留最近 MaxChapterVersions 条，最新的排在最前。
type VersionService struct {
	library *LibraryService
	logger  *utils.Logger
}

// NewVersionService 创建版本快照服务
func NewVersionService(library *LibraryService) *VersionService {
	return &VersionService{
		library: library,
		logger:  utils.GetLogger(),
	}
}

// Snapshot 捕获章节当前内容为一条历史快照
func (s *VersionService) Snapshot(bookID, chapterID string) (*models.ChapterVersion, error) {
	var snapshot *models.ChapterVersion

	err := s.library.mutateChapter(bookID, chapterID, func(c *models.Chapter) error {
		snapshot = &models.ChapterVersion{
			ID:        uuid.New().String(),
			Timestamp: time.Now(),
			Content:   c.Content,
			Title:     c.Title,
			WordCount: utils.CountMeaningfulChars(c.Content),
		}

		// 最新在前，超出上限时淘汰最旧的
		c.Versions = append([]*models.ChapterVersion{snapshot}, c.Versions...)
		if len(c.Versions) > models.MaxChapterVersions {
			c.Versions = c.Versions[:models.MaxChapterVersions]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := *snapshot
	return &created, nil
}

// Versions 返回章节的历史快照列表，最新在前
func (s *VersionService) Versions(bookID, chapterID string) ([]*models.ChapterVersion, error) {
	chapter, err := s.library.GetChapter(bookID, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter.Versions == nil {
		return []*models.ChapterVersion{}, nil
	}
	return chapter.Versions, nil
}

// Revert 将章节内容回滚到指定快照
//
// 回滚前先为当前内容创建一条快照，误回滚永远可以再滚回来。
func (s *VersionService) Revert(bookID, chapterID, versionID string) error {
	chapter, err := s.library.GetChapter(bookID, chapterID)
	if err != nil {
		return err
	}

	var target *models.ChapterVersion
	for _, v := range chapter.Versions {
		if v.ID == versionID {
			target = v
			break
		}
	}
	if target == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("历史快照不存在: %s", versionID), nil)
	}

	if _, err := s.Snapshot(bookID, chapterID); err != nil {
		return fmt.Errorf("回滚前创建快照失败: %w", err)
	}

	err = s.library.mutateChapter(bookID, chapterID, func(c *models.Chapter) error {
		c.Content = target.Content
		c.Title = target.Title
		c.LastModified = time.Now()
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infof("章节 %s 已回滚到快照 %s", chapterID, versionID)
	return nil
}
