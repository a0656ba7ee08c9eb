package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voicedesk/internal/calls"
	"voicedesk/internal/messages"
	"voicedesk/internal/reporting"
	"voicedesk/internal/telephony"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Tracker   *calls.Tracker
	Messages  *messages.Service
	Resolver  *telephony.Resolver
	Reporting *reporting.Service

	CallHistory    calls.Ledger
	MessageHistory messages.Ledger

	// VoicePrompt is played to inbound callers.
	VoicePrompt telephony.PromptSpec

	// Timeout bounds handlers that dispatch to the provider.
	Timeout time.Duration
}

func (h Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Calls ---

type startCallRequest struct {
	To             string `json:"to"`
	From           string `json:"from,omitempty"`
	TwiMLURL       string `json:"twimlUrl,omitempty"`
	StatusCallback string `json:"statusCallback,omitempty"`
}

func (h Handlers) StartCall(c *gin.Context) {
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Malformed bodies map to 500, missing fields to 400.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to read request body"})
		return
	}
	if req.To == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to is required"})
		return
	}

	id, err := h.Tracker.Start(c.Request.Context(), req.To, calls.StartOptions{
		From:           req.From,
		TwiMLURL:       req.TwiMLURL,
		StatusCallback: req.StatusCallback,
	})
	switch {
	case errors.Is(err, calls.ErrCallActive):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a call is already active"})
		return
	case errors.Is(err, calls.ErrInvalidNumber):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to start call"})
		return
	}

	capability := h.Resolver.Capability()
	c.JSON(http.StatusOK, gin.H{
		"sid":       id,
		"status":    string(calls.StatusInitiating),
		"simulated": capability.Mode == telephony.ModeSimulated,
	})
}

func (h Handlers) EndCall(c *gin.Context) {
	rec, err := h.Tracker.End()
	if errors.Is(err, calls.ErrNoActiveCall) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no active call"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) AnswerCall(c *gin.Context) {
	rec, err := h.Tracker.Answer()
	switch {
	case errors.Is(err, calls.ErrNoActiveCall):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no active call"})
		return
	case errors.Is(err, calls.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call is not an inbound ringing call"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) RejectCall(c *gin.Context) {
	rec, err := h.Tracker.Reject()
	switch {
	case errors.Is(err, calls.ErrNoActiveCall):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no active call"})
		return
	case errors.Is(err, calls.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call is not an inbound ringing call"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) ActiveCall(c *gin.Context) {
	rec, ok := h.Tracker.Active()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "call": rec})
}

func (h Handlers) ListCalls(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"calls": h.CallHistory.List()})
}

func (h Handlers) CallsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.Reporting.CallsSummary())
}

// --- Messages ---

type sendMessageRequest struct {
	To        string   `json:"to"`
	Body      string   `json:"body"`
	From      string   `json:"from,omitempty"`
	MediaURLs []string `json:"mediaUrls,omitempty"`
}

func (h Handlers) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to read request body"})
		return
	}
	if req.To == "" || req.Body == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to and body are required"})
		return
	}

	rec, err := h.Messages.Send(c.Request.Context(), req.To, req.Body, messages.SendOptions{
		From:      req.From,
		MediaURLs: req.MediaURLs,
	})
	if errors.Is(err, messages.ErrInvalidNumber) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.MessageHistory.List()})
}

func (h Handlers) MessagesSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.Reporting.MessagesSummary())
}

// --- Access tokens ---

type tokenRequest struct {
	Identity string `json:"identity"`
}

// Token mints a browser access token. Identity comes from the query
// string on GET or the JSON body on POST; a random one is assigned
// when absent.
func (h Handlers) Token(c *gin.Context) {
	identity := c.Query("identity")
	if identity == "" && c.Request.Method == http.MethodPost {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			identity = req.Identity
		}
	}

	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	tok, err := h.Resolver.Client().CreateAccessToken(ctx, telephony.TokenParams{Identity: identity})
	if err != nil {
		h.Resolver.ReportFailure(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, tok)
}

// --- Capability ---

func (h Handlers) Capability(c *gin.Context) {
	c.JSON(http.StatusOK, h.Resolver.Capability())
}

// --- Webhooks ---

// StatusWebhook ingests provider status callbacks, form-encoded or
// JSON, and forwards them to the tracker.
func (h Handlers) StatusWebhook(c *gin.Context) {
	ev, err := telephony.ParseStatusCallback(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to parse status callback"})
		return
	}
	h.Tracker.HandleStatusEvent(ev)
	c.JSON(http.StatusOK, gin.H{"success": true, "callSid": ev.CallSID, "status": ev.Status})
}

// VoiceWebhook answers the provider's TwiML fetch for inbound calls.
func (h Handlers) VoiceWebhook(c *gin.Context) {
	body, err := telephony.RenderVoicePrompt(h.VoicePrompt)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to render voice response"})
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(body))
}
