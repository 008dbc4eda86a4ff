// internal/api/handlers.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/services"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	Library      *services.LibraryService     // 书架服务
	Studio       *services.StudioService      // 写作编排服务
	Stats        *services.StatsService       // 创作统计服务
	Focus        *services.FocusService       // 锁定会话服务
	Versions     *services.VersionService     // 版本快照服务
	Autosave     *services.AutosaveService    // 自动保存服务
	Inspirations *services.InspirationService // 灵感服务
	Config       *services.ConfigService      // 设置服务
	Export       *services.ExportService      // 导出服务
	Review       *services.ReviewService      // AI责编服务
	LLM          *services.LLMService         // AI提供商服务
	Response     *ResponseHelper              // 响应助手
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewHandler 创建API处理器
func NewHandler(
	library *services.LibraryService,
	studio *services.StudioService,
	stats *services.StatsService,
	focus *services.FocusService,
	versions *services.VersionService,
	autosave *services.AutosaveService,
	inspirations *services.InspirationService,
	configService *services.ConfigService,
	export *services.ExportService,
	review *services.ReviewService,
	llm *services.LLMService,
) *Handler {
	return &Handler{
		Library:      library,
		Studio:       studio,
		Stats:        stats,
		Focus:        focus,
		Versions:     versions,
		Autosave:     autosave,
		Inspirations: inspirations,
		Config:       configService,
		Export:       export,
		Review:       review,
		LLM:          llm,
		Response:     NewResponseHelper(),
	}
}

// ========================================
// 书架
// ========================================

// ListBooks 书架列表，未完结的在前
func (h *Handler) ListBooks(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"books":           h.Library.Books(),
		"current_book_id": h.Library.CurrentBookID(),
	})
}

// CreateBookRequest 新建作品
type CreateBookRequest struct {
	Title string `json:"title"`
}

// CreateBook 新建作品并切换到它
func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	book, err := h.Library.CreateBook(req.Title)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, book, "作品创建成功")
}

// GetBook 获取作品详情
func (h *Handler) GetBook(c *gin.Context) {
	book, err := h.Library.GetBook(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, book)
}

// RenameBookRequest 重命名作品
type RenameBookRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameBook 重命名作品
func (h *Handler) RenameBook(c *gin.Context) {
	var req RenameBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if err := h.Library.RenameBook(c.Param("id"), req.Title); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "作品已重命名")
}

// SetBookCoverRequest 设置封面
type SetBookCoverRequest struct {
	CoverColor string `json:"cover_color"`
	CoverImage string `json:"cover_image"`
}

// SetBookCover 设置作品封面
func (h *Handler) SetBookCover(c *gin.Context) {
	var req SetBookCoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if err := h.Library.SetBookCover(c.Param("id"), req.CoverColor, req.CoverImage); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "封面已更新")
}

// DeleteBook 删除作品，必须显式带confirm参数
func (h *Handler) DeleteBook(c *gin.Context) {
	if c.Query("confirm") != "true" {
		h.Response.BadRequest(c, "删除作品需要确认参数 confirm=true")
		return
	}

	if err := h.Library.DeleteBook(c.Param("id")); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "作品已删除")
}

// SelectBook 切换当前作品
func (h *Handler) SelectBook(c *gin.Context) {
	bookID := c.Param("id")
	if err := h.Library.SelectBook(bookID); err != nil {
		h.Response.FromError(c, err)
		return
	}

	book, err := h.Library.GetBook(bookID)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	// 切换作品后把写作现场对准它的当前章节
	if current := book.CurrentChapter(); current != nil {
		if _, err := h.Studio.Navigate(bookID, current.ID); err != nil {
			h.Response.FromError(c, err)
			return
		}
	}
	h.Response.Success(c, book)
}

// FinishBook 标记作品完结
func (h *Handler) FinishBook(c *gin.Context) {
	stats, err := h.Library.FinishBook(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, stats, "恭喜完结")
}

// ========================================
// 章节
// ========================================

// AddChapter 新建章节并跳转
func (h *Handler) AddChapter(c *gin.Context) {
	chapter, err := h.Studio.AddChapterAndNavigate(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, chapter, "章节创建成功")
}

// ReorderChaptersRequest 章节重排
type ReorderChaptersRequest struct {
	ChapterIDs []string `json:"chapter_ids" binding:"required"`
}

// ReorderChapters 按给定顺序重排章节
func (h *Handler) ReorderChapters(c *gin.Context) {
	var req ReorderChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if err := h.Library.ReorderChapters(c.Param("id"), req.ChapterIDs); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "章节顺序已更新")
}

// GetChapter 获取章节详情
func (h *Handler) GetChapter(c *gin.Context) {
	chapter, err := h.Library.GetChapter(c.Param("id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, chapter)
}

// DeleteChapter 删除章节
func (h *Handler) DeleteChapter(c *gin.Context) {
	if err := h.Library.DeleteChapter(c.Param("id"), c.Param("chapter_id")); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "章节已删除")
}

// SelectChapter 切换当前章节
func (h *Handler) SelectChapter(c *gin.Context) {
	chapter, err := h.Studio.Navigate(c.Param("id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, chapter)
}

// UpdateContentRequest 更新正文
type UpdateContentRequest struct {
	Content string `json:"content"`
}

// UpdateChapterContent 更新章节正文，推进统计与锁定会话
func (h *Handler) UpdateChapterContent(c *gin.Context) {
	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	result, err := h.Studio.UpdateContent(c.Param("id"), c.Param("chapter_id"), req.Content)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// SetChapterTitleRequest 更新章节标题
type SetChapterTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// SetChapterTitle 更新章节标题
func (h *Handler) SetChapterTitle(c *gin.Context) {
	var req SetChapterTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if err := h.Library.SetChapterTitle(c.Param("id"), c.Param("chapter_id"), req.Title); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "章节标题已更新")
}

// SetChapterSynopsisRequest 更新章节梗概
type SetChapterSynopsisRequest struct {
	Synopsis string `json:"synopsis"`
}

// SetChapterSynopsis 更新章节梗概
func (h *Handler) SetChapterSynopsis(c *gin.Context) {
	var req SetChapterSynopsisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if err := h.Library.SetChapterSynopsis(c.Param("id"), c.Param("chapter_id"), req.Synopsis); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "梗概已更新")
}

// FormatChapter 智能排版当前章节
func (h *Handler) FormatChapter(c *gin.Context) {
	result, err := h.Studio.FormatChapter(c.Param("id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result, "排版完成")
}

// ========================================
// 版本快照
// ========================================

// ListVersions 章节历史快照列表
func (h *Handler) ListVersions(c *gin.Context) {
	versions, err := h.Versions.Versions(c.Param("id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, versions)
}

// SnapshotChapter 手动创建历史快照
func (h *Handler) SnapshotChapter(c *gin.Context) {
	version, err := h.Versions.Snapshot(c.Param("id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, version, "快照已创建")
}

// RevertChapter 回滚章节到指定快照
func (h *Handler) RevertChapter(c *gin.Context) {
	err := h.Studio.RevertChapter(c.Param("id"), c.Param("chapter_id"), c.Param("version_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	chapter, err := h.Library.GetChapter(c.Param("id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, chapter, "回滚成功")
}

// ========================================
// 导出
// ========================================

// ExportBook 导出整本作品
func (h *Handler) ExportBook(c *gin.Context) {
	result, err := h.Export.ExportBook(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.ExportResponse(c, result, c.Query("download") == "true")
}

// ExportChapter 导出单个章节
func (h *Handler) ExportChapter(c *gin.Context) {
	result, err := h.Export.ExportChapter(c.Param("id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.ExportResponse(c, result, c.Query("download") == "true")
}

// ========================================
// 统计与保存
// ========================================

// GetStats 统计面板数据
func (h *Handler) GetStats(c *gin.Context) {
	h.Response.Success(c, h.Stats.Report())
}

// GetSaveStatus 自动保存状态
func (h *Handler) GetSaveStatus(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"last_saved": h.Autosave.LastSaved(),
		"running":    h.Autosave.Running(),
	})
}

// SaveNow 立即落盘
func (h *Handler) SaveNow(c *gin.Context) {
	if err := h.Autosave.Flush(); err != nil {
		h.Response.InternalError(c, "保存失败", err.Error())
		return
	}
	h.Response.Success(c, gin.H{"last_saved": h.Autosave.LastSaved()}, "已保存")
}

// ========================================
// 锁定模式
// ========================================

// GetFocusStatus 锁定会话状态
func (h *Handler) GetFocusStatus(c *gin.Context) {
	h.Response.Success(c, h.Focus.Status())
}

// ConfigureFocus 进入锁定配置
func (h *Handler) ConfigureFocus(c *gin.Context) {
	if err := h.Focus.BeginConfiguring(); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, h.Focus.Status())
}

// StartFocusRequest 启动锁定会话
type StartFocusRequest struct {
	Mode   string `json:"mode" binding:"required"`
	Target int    `json:"target" binding:"required"`
}

// StartFocus 启动锁定会话，以当前章节字数为基准线
func (h *Handler) StartFocus(c *gin.Context) {
	var req StartFocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	observed := 0
	if book, err := h.Library.CurrentBook(); err == nil {
		if chapter := book.CurrentChapter(); chapter != nil {
			observed = utils.CountMeaningfulChars(chapter.Content)
		}
	}

	if err := h.Focus.Start(models.FocusMode(req.Mode), req.Target, observed); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, h.Focus.Status(), "锁定会话已开始")
}

// CancelFocus 取消锁定配置
func (h *Handler) CancelFocus(c *gin.Context) {
	if err := h.Focus.Cancel(); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, h.Focus.Status())
}

// ExitFocus 结束锁定会话，未达标时拒绝
func (h *Handler) ExitFocus(c *gin.Context) {
	if err := h.Focus.Exit(); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, h.Focus.Status(), "锁定会话已结束")
}

// ========================================
// 灵感
// ========================================

// ListInspirations 灵感列表，最新在前
func (h *Handler) ListInspirations(c *gin.Context) {
	h.Response.Success(c, h.Inspirations.List())
}

// AddInspirationRequest 记录灵感
type AddInspirationRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddInspiration 记录一条灵感
func (h *Handler) AddInspiration(c *gin.Context) {
	var req AddInspirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	inspiration, err := h.Inspirations.Add(req.Text)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, inspiration, "灵感已记录")
}

// DeleteInspiration 删除一条灵感
func (h *Handler) DeleteInspiration(c *gin.Context) {
	if err := h.Inspirations.Delete(c.Param("id")); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "灵感已删除")
}

// ========================================
// 设置
// ========================================

// GetSettings 获取用户设置
func (h *Handler) GetSettings(c *gin.Context) {
	h.Response.Success(c, h.Config.GetSettings())
}

// UpdateSettings 更新用户设置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var settings models.AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	if err := h.Config.UpdateSettings(&settings); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, h.Config.GetSettings(), "设置已更新")
}

// GetLLMStatus AI提供商状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	h.Response.Success(c, h.LLM.Status())
}

// ========================================
// AI责编
// ========================================

// ReviewChapterRequest 章节评估
type ReviewChapterRequest struct {
	BookID    string `json:"book_id" binding:"required"`
	ChapterID string `json:"chapter_id" binding:"required"`
}

// ReviewChapter 让责编评估章节
func (h *Handler) ReviewChapter(c *gin.Context) {
	var req ReviewChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	result, err := h.Review.ReviewChapter(c.Request.Context(), req.BookID, req.ChapterID)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// DialogueRequest 责编对话
type DialogueRequest struct {
	BookID  string                 `json:"book_id" binding:"required"`
	Message string                 `json:"message" binding:"required"`
	History []services.ChatMessage `json:"history"`
}

// Dialogue 与责编讨论创作，完结暗号直接触发全书完结
func (h *Handler) Dialogue(c *gin.Context) {
	var req DialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	result, err := h.Review.Dialogue(c.Request.Context(), req.BookID, req.History, req.Message)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	if result.BookFinished {
		stats, err := h.Library.FinishBook(req.BookID)
		if err != nil {
			h.Response.FromError(c, err)
			return
		}
		h.Response.Success(c, gin.H{
			"book_finished": true,
			"finish_stats":  stats,
		}, "恭喜完结")
		return
	}
	h.Response.Success(c, result)
}

// ResearchRequest 资料检索
type ResearchRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// Research 资料检索
func (h *Handler) Research(c *gin.Context) {
	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	material, err := h.Review.Research(c.Request.Context(), req.Topic)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"material": material})
}

// SyncSynopsisRequest 同步复盘到梗概区
type SyncSynopsisRequest struct {
	BookID    string `json:"book_id" binding:"required"`
	ChapterID string `json:"chapter_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// SyncSynopsis 把评估复盘同步到本章梗概区
func (h *Handler) SyncSynopsis(c *gin.Context) {
	var req SyncSynopsisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	clean, err := h.Review.SyncSynopsis(req.BookID, req.ChapterID, req.Text)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"synopsis": clean}, "已更新本章复盘")
}

// SyncNextChapterRequest 同步方向总结到新章节
type SyncNextChapterRequest struct {
	BookID string `json:"book_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// SyncNextChapter 新建下一章并写入方向总结
func (h *Handler) SyncNextChapter(c *gin.Context) {
	var req SyncNextChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	chapterID, clean, err := h.Review.SyncNextChapter(req.BookID, req.Text)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	chapter, err := h.Studio.Navigate(req.BookID, chapterID)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, gin.H{
		"chapter":  chapter,
		"synopsis": clean,
	}, "已同步下一章方向到梗概区")
}
