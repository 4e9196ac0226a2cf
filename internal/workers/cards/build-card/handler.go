package buildcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "hub-connectors/internal/common/errors"
	"hub-connectors/internal/common/logger"
	"hub-connectors/internal/common/metrics"
	"hub-connectors/internal/common/observability"
	"hub-connectors/internal/common/validation"
	"hub-connectors/pkg/card"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "build-card"

type Handler struct {
	config       *Config
	validator    *validation.CardValidator
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, validator *validation.CardValidator, obs *observability.Observability, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		validator:    validator,
		obs:          obs,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInvalidCardRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, apperrors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey": job.Key,
		"cardId": output.CardID,
		"hash":   output.Hash,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

// Execute builds and validates the card described by input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.validateInput(input); err != nil {
		return nil, err
	}

	start := h.now()
	b, err := h.builder(input, start)
	if err != nil {
		return nil, err
	}

	var c *card.Card
	if h.config.Strict {
		if c, err = b.BuildStrict(); err != nil {
			return nil, strictError(err)
		}
	} else {
		c = b.Build()
	}

	if h.validator != nil {
		result, err := h.validator.ValidateCard(c)
		if err != nil {
			return nil, apperrors.NewCardBuildFailedError(TaskType, err)
		}
		if !result.Valid {
			metrics.CardValidationFailures.WithLabelValues(input.Name).Inc()
			return nil, apperrors.NewCardValidationFailedError(result.Summary())
		}
	}

	metrics.CardsBuilt.WithLabelValues(input.Name).Inc()
	h.obs.RecordCardsBuilt(ctx, input.Name, 1, time.Since(start))

	return &Output{Card: c, CardID: c.ID().String(), Hash: c.Hash()}, nil
}

func (h *Handler) validateInput(input *Input) error {
	var missing []string
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if input.Header == nil || strings.TrimSpace(input.Header.Title) == "" {
		missing = append(missing, "header.title")
	}
	if input.ExpiresInSeconds < 0 {
		return apperrors.NewInvalidCardRequestError("expires_in_seconds must not be negative")
	}
	if len(missing) > 0 {
		return apperrors.NewInvalidCardRequestError(fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// strictError maps a strict construction failure onto CARD_VALIDATION_FAILED.
func strictError(err error) error {
	var verr *card.ValidationError
	if errors.As(err, &verr) {
		return apperrors.NewCardValidationFailedError(validation.FromWarnings(verr.Warnings).Summary())
	}
	return apperrors.NewCardBuildFailedError(TaskType, err)
}

func (h *Handler) builder(input *Input, now time.Time) (*card.Builder, error) {
	b := card.NewBuilder().
		SetName(input.Name).
		SetCreationDate(now).
		SetHeader(card.NewHeaderBuilder().
			SetTitle(input.Header.Title).
			AddSubtitle(input.Header.Subtitles...).
			Build())

	if input.Template != "" {
		b.SetTemplate(card.NewLink(input.Template))
	}
	if input.Image != "" {
		b.SetImage(card.NewLink(input.Image))
	}
	if input.Body != nil {
		b.SetBody(buildBody(input.Body))
	}
	for i, a := range input.Actions {
		action, err := buildAction(a, h.config.Strict)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		b.AddAction(action)
	}
	if len(input.Tags) > 0 {
		b.AddTag(input.Tags...)
	}
	for _, l := range input.Links {
		lb := card.NewOpenInLinkBuilder().SetHref(l.Href)
		if l.Text != "" {
			lb.SetText(l.Text)
		}
		b.AddLinks(lb.Build())
	}
	if input.Importance != nil {
		b.SetImportance(*input.Importance)
	}
	if input.ExpiresInSeconds > 0 {
		b.SetExpirationDate(now.Add(time.Duration(input.ExpiresInSeconds) * time.Second))
	}
	if input.Hash != "" {
		b.SetHash(input.Hash)
	}
	return b, nil
}

func buildBody(in *BodyInput) *card.Body {
	b := card.NewBodyBuilder()
	if in.Description != "" {
		b.SetDescription(in.Description)
	}
	for _, f := range in.Fields {
		fb := card.NewBodyFieldBuilder().SetType(f.Type)
		if f.Title != "" {
			fb.SetTitle(f.Title)
		}
		if f.Description != "" {
			fb.SetDescription(f.Description)
		}
		for _, content := range f.Content {
			fb.AddContent(content)
		}
		b.AddField(fb.Build())
	}
	return b.Build()
}

// buildAction refuses input fields the builder would have to repair when
// strict is set.
func buildAction(in ActionInput, strict bool) (*card.Action, error) {
	b := card.NewActionBuilder().
		SetActionKey(in.ActionKey).
		SetLabel(in.Label).
		SetPrimary(in.Primary)
	if in.URL != "" {
		b.SetURL(card.NewLink(in.URL))
	}
	if in.CompletedLabel != "" {
		b.SetCompletedLabel(in.CompletedLabel)
	}
	if in.Type != "" {
		b.SetType(in.Type)
	}
	for k, v := range in.Request {
		b.AddRequestParam(k, v)
	}
	for j, f := range in.UserInput {
		fb := card.NewActionInputFieldBuilder().
			SetID(f.ID).
			SetLabel(f.Label).
			SetMinLength(f.MinLength).
			SetMaxLength(f.MaxLength)
		if f.Format != "" {
			fb.SetFormat(f.Format)
		}
		if !strict {
			b.AddUserInput(fb.Build())
			continue
		}
		field, err := fb.BuildStrict()
		if err != nil {
			return nil, strictError(prefixed(fmt.Sprintf("user_input[%d]", j), err))
		}
		b.AddUserInput(field)
	}
	return b.Build(), nil
}

// prefixed qualifies the warning fields of a *card.ValidationError.
func prefixed(prefix string, err error) error {
	var verr *card.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	ws := make([]card.Warning, len(verr.Warnings))
	for i, w := range verr.Warnings {
		w.Field = prefix + "." + w.Field
		ws[i] = w
	}
	return &card.ValidationError{Object: verr.Object, Warnings: ws}
}
