package ai

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/flowdeck/core/internal/config"
	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tokenEstimateFactor is the pre-flight admission heuristic, not the billed
// amount.
const tokenEstimateFactor = 1.3

// Service orchestrates one provider call end to end: quota admission,
// template resolution, the call itself, logging and quota consumption.
type Service struct {
	db       *gorm.DB
	provider Client
	queue    *taskqueue.Service
	cfg      config.AIConfig
	logger   *zap.Logger
}

func NewService(db *gorm.DB, provider Client, queue *taskqueue.Service, cfg config.AIConfig, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		provider: provider,
		queue:    queue,
		cfg:      cfg,
		logger:   logger.Named("AIService"),
	}
}

func (s *Service) DB() *gorm.DB { return s.db }

// ProcessInput describes one orchestrated request.
type ProcessInput struct {
	UserID       string
	RequestType  string
	TemplateName string
	Variables    map[string]string
	InputText    string
	RefType      string
	RefID        string
	IPAddress    string
	UserAgent    string
}

// ProcessResult is the successful outcome plus its log row.
type ProcessResult struct {
	Text        string
	TokensTotal int
	Log         *models.AIRequestLogModel
}

// EstimateTokens approximates the token cost of a text for quota admission.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * tokenEstimateFactor)
}

// Process runs the fixed orchestration sequence. Quota is consumed only
// after a confirmed successful response; failed provider calls are logged
// with success=false and cost the user nothing. Failures before the provider
// call (quota, template) write no log.
func (s *Service) Process(ctx context.Context, in ProcessInput) (*ProcessResult, error) {
	estimated := EstimateTokens(in.InputText)
	if err := CheckQuota(s.db, in.UserID, estimated); err != nil {
		return nil, err
	}

	tpl, err := ResolveTemplate(s.db, in.RequestType, in.TemplateName)
	if err != nil {
		return nil, err
	}
	prompt, err := RenderTemplate(tpl, in.Variables)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, 2)
	if strings.TrimSpace(tpl.SystemMessage) != "" {
		messages = append(messages, Message{Role: "system", Content: tpl.SystemMessage})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	completion, callErr := s.provider.Complete(ctx, CompletionRequest{
		Messages:    messages,
		MaxTokens:   tpl.MaxTokens,
		Temperature: tpl.Temperature,
	})

	logRow := &models.AIRequestLogModel{
		UserID:        in.UserID,
		RequestType:   in.RequestType,
		ModelUsed:     s.provider.ModelName(),
		TemplateID:    tpl.ID,
		InputText:     in.InputText,
		PromptSent:    prompt,
		SystemMessage: tpl.SystemMessage,
		RefType:       in.RefType,
		RefID:         in.RefID,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
	}

	if callErr != nil {
		logRow.Success = false
		logRow.ErrorCode = string(providerErrorKind(callErr))
		logRow.ErrorMessage = callErr.Error()
		if err := s.db.Create(logRow).Error; err != nil {
			s.logger.Error("persist failed request log", zap.Error(err))
		}
		return nil, &ServiceError{Op: in.RequestType, Err: callErr}
	}

	logRow.Success = true
	logRow.ResponseText = completion.Text
	logRow.TokensInput = completion.TokensInput
	logRow.TokensOutput = completion.TokensOutput
	logRow.TokensTotal = completion.TokensTotal
	logRow.ResponseTime = completion.LatencySeconds
	logRow.CostUSD = float64(completion.TokensTotal) / 1000 * s.cfg.CostPer1KTokens
	if err := s.db.Create(logRow).Error; err != nil {
		s.logger.Error("persist request log", zap.Error(err))
	}
	if err := ConsumeQuota(s.db, in.UserID, completion.TokensTotal); err != nil {
		s.logger.Error("consume quota", zap.Error(err), zap.String("user", in.UserID))
	}

	return &ProcessResult{
		Text:        completion.Text,
		TokensTotal: completion.TokensTotal,
		Log:         logRow,
	}, nil
}

func providerErrorKind(err error) ProviderErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrKindUnknown
}

// Typed operations. Each is one orchestrated call plus the matching parser.

// Summarize produces a summary of the content. Length selects the template
// variant: short, medium or long.
func (s *Service) Summarize(ctx context.Context, userID, content, length string, ref Ref) (string, error) {
	name := ""
	switch length {
	case "short", "medium", "long":
		name = "summarize_" + length
	}
	res, err := s.Process(ctx, ProcessInput{
		UserID:       userID,
		RequestType:  models.RequestTypeSummarize,
		TemplateName: name,
		Variables:    map[string]string{"content": content},
		InputText:    content,
		RefType:      ref.Type,
		RefID:        ref.ID,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// ExtractKeywords returns up to count keywords for the content.
func (s *Service) ExtractKeywords(ctx context.Context, userID, content string, count int, ref Ref) ([]string, error) {
	if count <= 0 {
		count = 10
	}
	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypeExtractKeywords,
		Variables: map[string]string{
			"content": content,
			"count":   strconv.Itoa(count),
		},
		InputText: content,
		RefType:   ref.Type,
		RefID:     ref.ID,
	})
	if err != nil {
		return nil, err
	}
	return ParseKeywords(res.Text, count), nil
}

// AnalyzeSentiment classifies the content's sentiment.
func (s *Service) AnalyzeSentiment(ctx context.Context, userID, content string, ref Ref) (string, error) {
	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypeAnalyzeSentiment,
		Variables:   map[string]string{"content": content},
		InputText:   content,
		RefType:     ref.Type,
		RefID:       ref.ID,
	})
	if err != nil {
		return "", err
	}
	return ParseSentiment(res.Text), nil
}

// SuggestTags proposes up to five tags given the user's existing tags.
func (s *Service) SuggestTags(ctx context.Context, userID, content string, existing []string, ref Ref) ([]string, error) {
	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypeSuggestTags,
		Variables: map[string]string{
			"content":       content,
			"existing_tags": strings.Join(existing, ", "),
		},
		InputText: content,
		RefType:   ref.Type,
		RefID:     ref.ID,
	})
	if err != nil {
		return nil, err
	}
	return ParseTags(res.Text), nil
}

// IdentifyTopics lists the main topics of the content.
func (s *Service) IdentifyTopics(ctx context.Context, userID, content string, ref Ref) ([]string, error) {
	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypeIdentifyTopics,
		Variables:   map[string]string{"content": content},
		InputText:   content,
		RefType:     ref.Type,
		RefID:       ref.ID,
	})
	if err != nil {
		return nil, err
	}
	return ParseTopics(res.Text), nil
}

// BreakDownTask splits a task description into subtasks.
func (s *Service) BreakDownTask(ctx context.Context, userID, content string, ref Ref) ([]string, error) {
	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypeTaskBreakdown,
		Variables:   map[string]string{"content": content},
		InputText:   content,
		RefType:     ref.Type,
		RefID:       ref.ID,
	})
	if err != nil {
		return nil, err
	}
	return ParseSubtasks(res.Text), nil
}

// AnalyzePriority suggests a priority for a task.
func (s *Service) AnalyzePriority(ctx context.Context, userID, content string, ref Ref) (string, error) {
	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypePriorityAnalysis,
		Variables:   map[string]string{"content": content},
		InputText:   content,
		RefType:     ref.Type,
		RefID:       ref.ID,
	})
	if err != nil {
		return "", err
	}
	return ParsePriority(res.Text), nil
}

// EstimateTime suggests a duration in minutes for a task.
func (s *Service) EstimateTime(ctx context.Context, userID, content string, ref Ref) (int, error) {
	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypeTimeEstimation,
		Variables:   map[string]string{"content": content},
		InputText:   content,
		RefType:     ref.Type,
		RefID:       ref.ID,
	})
	if err != nil {
		return 0, err
	}
	return ParseMinutes(res.Text), nil
}

// Ref is the polymorphic back-reference to the originating entity.
type Ref struct {
	Type string
	ID   string
}
