// internal/services/review_service.go
package services

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	apperrors "github.com/Corphon/InkFlowStudio/internal/errors"
	"github.com/Corphon/InkFlowStudio/internal/llm"
	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/utils"
)

// 章节评估的四个固定小节标题
const (
	SectionRecap      = "剧情复盘"
	SectionAssessment = "文本评估"
	SectionDirections = "剧情走向建议"
	SectionNextHint   = "下一章方向总结"
)

// FinishSentinel 作者在对话中输入这句话表示全书完结
const FinishSentinel = "本文完结"

// minReviewChars 章节字数达到这个下限才接受评估请求
const minReviewChars = 50

// maxSynopsisRunes 梗概区的长度上限
const maxSynopsisRunes = 100

// ChatMessage 责编对话的一条消息
type ChatMessage struct {
	Role    string `json:"role"` // user / assistant
	Content string `json:"content"`
}

// ReviewSection 评估报告的一个小节
type ReviewSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// ReviewResult 一次章节评估的解析结果
type ReviewResult struct {
	Sections   []ReviewSection `json:"sections"`
	Raw        string          `json:"raw"`
	Generation int64           `json:"generation"`
}

// DialogueResult 一次责编对话的结果
type DialogueResult struct {
	Reply        string   `json:"reply"`
	Paragraphs   []string `json:"paragraphs"` // 按空行拆分的逐段回复
	BookFinished bool     `json:"book_finished"`
}

// ReviewService AI责编：章节评估、创作讨论与梗概同步
//
// 每次评估递增会话代数，旧请求的迟到响应会被直接丢弃，
// 作者连续点击评估时不会看到过期报告。
type ReviewService struct {
	llm     *LLMService
	library *LibraryService
	logger  *utils.Logger

	generation atomic.Int64
}

// NewReviewService 创建责编服务
func NewReviewService(llmService *LLMService, library *LibraryService) *ReviewService {
	return &ReviewService{
		llm:     llmService,
		library: library,
		logger:  utils.GetLogger(),
	}
}

// ErrStaleReview 评估响应返回时已有更新的评估在进行
var ErrStaleReview = apperrors.NewConflictError("评估结果已过期", nil)

// reviewPrompt 章节评估的提示词
func reviewPrompt(content string) string {
	return `作为一个资深网文责编，请对以下章节进行全面评估。
请按以下结构输出，并在每一项后空两行：
1. ##剧情复盘：概括本章核心剧情（50字内）。
2. ##文本评估：简述文笔、节奏及人物互动亮点与改进空间。
3. ##剧情走向建议：基于现有文本提供3个逻辑自洽的后续方向。
4. ##下一章方向总结：根据最合理的预期给出引导式总结（50字内）。

要求：语气专业干练，禁止倾斜字体，对关键点进行加粗。禁止包含markdown代码块。

章节内容：
` + content
}

// dialogueSystemPrompt 责编对话的系统提示词
const dialogueSystemPrompt = `你是一个资深文学责编。作者正在和你讨论创作。
1. 仅提供方向建议，不要直接帮作者写正文。
2. 语气简洁专业，对关键词加粗。
3. 若达成下一章共识，请以 "##下一章方向总结" 开头总结。`

// ReviewChapter 让责编对章节进行结构化评估
func (s *ReviewService) ReviewChapter(ctx context.Context, bookID, chapterID string) (*ReviewResult, error) {
	chapter, err := s.library.GetChapter(bookID, chapterID)
	if err != nil {
		return nil, err
	}
	if utils.CountMeaningfulChars(chapter.Content) < minReviewChars {
		return nil, apperrors.NewValidationError("写多一点再来让责编评估吧", nil)
	}

	gen := s.generation.Add(1)

	resp, err := s.llm.CompleteText(ctx, llm.CompletionRequest{
		Prompt:      reviewPrompt(chapter.Content),
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	// 评估期间又发起了新评估，这份结果作废
	if s.generation.Load() != gen {
		return nil, ErrStaleReview
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = "未能生成评估。"
	}
	return &ReviewResult{
		Sections:   ParseReviewSections(text),
		Raw:        text,
		Generation: gen,
	}, nil
}

// ParseReviewSections 将评估文本按 ##标题 拆分为小节
//
// 无法识别任何小节标题时，整段文本归入一个无标题小节。
func ParseReviewSections(text string) []ReviewSection {
	sections := []ReviewSection{}
	current := ReviewSection{}
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if current.Heading != "" || content != "" {
			current.Body = content
			sections = append(sections, current)
		}
		current = ReviewSection{}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := parseHeading(trimmed); ok {
			flush()
			current.Heading = heading
			rest := headingRemainder(trimmed)
			if rest != "" {
				body.WriteString(rest)
				body.WriteString("\n")
			}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return sections
}

// parseHeading 识别 "##标题" 形式的小节标题行，容忍序号前缀
func parseHeading(line string) (string, bool) {
	idx := strings.Index(line, "##")
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(line[idx+2:], "#")
	for _, h := range []string{SectionRecap, SectionAssessment, SectionDirections, SectionNextHint} {
		if strings.HasPrefix(rest, h) {
			return h, true
		}
	}
	return "", false
}

// headingRemainder 标题行中标题之后的正文部分
func headingRemainder(line string) string {
	idx := strings.Index(line, "##")
	rest := strings.TrimLeft(line[idx+2:], "#")
	for _, h := range []string{SectionRecap, SectionAssessment, SectionDirections, SectionNextHint} {
		if strings.HasPrefix(rest, h) {
			rest = strings.TrimPrefix(rest, h)
			break
		}
	}
	rest = strings.TrimLeft(rest, ":： ")
	return strings.TrimSpace(rest)
}

// Dialogue 与责编展开创作讨论
//
// 作者输入完结暗号时不调用AI，直接标记全书完结。
func (s *ReviewService) Dialogue(ctx context.Context, bookID string, history []ChatMessage, message string) (*DialogueResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("消息不能为空", nil)
	}

	if strings.Contains(message, FinishSentinel) {
		return &DialogueResult{BookFinished: true}, nil
	}

	prompt := message
	if len(history) > 0 {
		var b strings.Builder
		b.WriteString("此前的讨论记录：\n")
		for _, m := range history {
			if m.Role == "user" {
				b.WriteString("作者：")
			} else {
				b.WriteString("责编：")
			}
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n作者的新消息：")
		b.WriteString(message)
		prompt = b.String()
	}

	resp, err := s.llm.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: dialogueSystemPrompt,
		Temperature:  0.8,
	})
	if err != nil {
		return nil, err
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		reply = "思绪中断。"
	}

	paragraphs := []string{}
	for _, p := range strings.Split(reply, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(p))
		}
	}

	return &DialogueResult{
		Reply:      reply,
		Paragraphs: paragraphs,
	}, nil
}

// CleanSynopsis 将责编的输出清洗为纯文本梗概
//
// 去掉小节标题、第一处冒号、所有井号和加粗标记，
// 只保留第一段并截断到长度上限。
func CleanSynopsis(text, heading string) string {
	clean := strings.Replace(text, "##"+heading, "", 1)
	clean = strings.Replace(clean, heading, "", 1)

	if idx := strings.IndexAny(clean, ":："); idx >= 0 {
		_, width := utf8.DecodeRuneInString(clean[idx:])
		clean = clean[:idx] + clean[idx+width:]
	}

	clean = strings.ReplaceAll(clean, "#", "")
	clean = strings.ReplaceAll(clean, "**", "")
	clean = strings.TrimSpace(clean)

	if idx := strings.Index(clean, "\n"); idx >= 0 {
		clean = clean[:idx]
	}
	runes := []rune(clean)
	if len(runes) > maxSynopsisRunes {
		clean = string(runes[:maxSynopsisRunes])
	}
	return clean
}

// Research 资料检索：就一个写作主题生成背景材料
func (s *ReviewService) Research(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", apperrors.NewValidationError("检索主题不能为空", nil)
	}

	resp, err := s.llm.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       topic,
		SystemPrompt: "你是一个小说创作的资料助手。针对作者给出的主题，提供简明准确的背景资料和可用于创作的细节，分段输出。",
		Temperature:  0.5,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// SyncSynopsis 把评估中的剧情复盘同步到本章梗概区
func (s *ReviewService) SyncSynopsis(bookID, chapterID, sectionText string) (string, error) {
	clean := CleanSynopsis(sectionText, SectionRecap)
	if clean == "" {
		return "", apperrors.NewValidationError("没有可同步的复盘内容", nil)
	}
	if err := s.library.SetChapterSynopsis(bookID, chapterID, clean); err != nil {
		return "", err
	}
	return clean, nil
}

// SyncNextChapter 把方向总结写入下一章的梗概区
//
// 当前章节已有后继章节时直接复用它，只有写到最后一章时才新建。
func (s *ReviewService) SyncNextChapter(bookID, sectionText string) (string, string, error) {
	clean := CleanSynopsis(sectionText, SectionNextHint)
	if clean == "" {
		return "", "", apperrors.NewValidationError("没有可同步的方向总结", nil)
	}

	book, err := s.library.GetBook(bookID)
	if err != nil {
		return "", "", err
	}

	var next *models.Chapter
	if current := book.CurrentChapter(); current != nil {
		if _, index := book.FindChapter(current.ID); index >= 0 && index+1 < len(book.Chapters) {
			next = book.Chapters[index+1]
		}
	}
	if next == nil {
		next, err = s.library.AddChapter(bookID)
		if err != nil {
			return "", "", err
		}
	}

	if err := s.library.SetChapterSynopsis(bookID, next.ID, clean); err != nil {
		return "", "", err
	}
	return next.ID, clean, nil
}
