// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/queue"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

type CampaignProcessor interface {
	Process(ctx context.Context, id int64, opts service.ProcessOptions) (*service.Result, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepSummary, error)
}

type CampaignController struct {
	Processor  CampaignProcessor
	Poller     Sweeper
	Queue      queue.Queue
	Topic      string
	CronSecret string
	Logger     *zap.Logger

	validate *validator.Validate
}

func NewCampaignController(p CampaignProcessor, s Sweeper, q queue.Queue, cronSecret string, logger *zap.Logger) *CampaignController {
	return &CampaignController{
		Processor:  p,
		Poller:     s,
		Queue:      q,
		Topic:      queue.TriggerTopic,
		CronSecret: cronSecret,
		Logger:     logging.OrNop(logger),
		validate:   validator.New(),
	}
}

type dispatchRequest struct {
	CampaignID int64  `json:"campaign_id" validate:"omitempty,gt=0"`
	TestEmail  string `json:"test_email" validate:"omitempty,email"`
}

type triggerRequest struct {
	TriggerType string `json:"trigger_type" validate:"required"`
	UserEmail   string `json:"user_email" validate:"omitempty,email"`
}

// Dispatch runs the schedule sweep when called by the cron caller without
// a campaign id, or one manual pass when campaign_id is given.
func (c *CampaignController) Dispatch(w http.ResponseWriter, r *http.Request) {
	var body dispatchRequest
	if err := decodeOptional(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := c.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if body.CampaignID == 0 {
		if !c.authorizedCron(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		summary, err := c.Poller.Sweep(r.Context())
		if err != nil {
			c.Logger.Error("sweep failed", zap.Error(err))
			c.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	c.process(w, r, body.CampaignID, body.TestEmail)
}

// SendCampaign runs one manual pass over the campaign in the URL.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	var body struct {
		TestEmail string `json:"test_email" validate:"omitempty,email"`
	}
	if err := decodeOptional(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := c.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c.process(w, r, id, body.TestEmail)
}

// Trigger publishes an application event for the trigger router.
func (c *CampaignController) Trigger(w http.ResponseWriter, r *http.Request) {
	var body triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := c.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	triggerType := model.TriggerType(body.TriggerType)
	if !triggerType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown trigger type "+body.TriggerType)
		return
	}

	ev := model.TriggerEvent{TriggerType: triggerType, UserEmail: body.UserEmail}
	if err := queue.PublishTrigger(r.Context(), c.Queue, c.Topic, ev); err != nil {
		c.Logger.Error("failed to publish trigger", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to enqueue trigger")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":       true,
		"trigger_type": triggerType,
	})
}

func (c *CampaignController) process(w http.ResponseWriter, r *http.Request, id int64, testEmail string) {
	result, err := c.Processor.Process(r.Context(), id, service.ProcessOptions{OverrideRecipient: testEmail})
	if err != nil {
		c.Logger.Warn("manual pass failed", zap.Int64("campaign_id", id), zap.Error(err))
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *CampaignController) fail(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, appErrors.ErrCampaignNotClaimable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (c *CampaignController) authorizedCron(r *http.Request) bool {
	if c.CronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.CronSecret)) == 1
}

// decodeOptional decodes a JSON body and accepts an empty one.
func decodeOptional(body io.Reader, v any) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
