package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voicedesk/internal/config"
)

const defaultAPIBase = "https://api.twilio.com"

// TwilioClient talks to the Twilio REST API directly over net/http.
// It intentionally avoids the provider SDK; the surface we need is
// two form POSTs and an account probe.
type TwilioClient struct {
	cfg     config.TwilioConfig
	baseURL string
	http    *http.Client
}

func NewTwilioClient(cfg config.TwilioConfig, timeout time.Duration) *TwilioClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TwilioClient{
		cfg:     cfg,
		baseURL: defaultAPIBase,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at a different API host. Used by tests.
func (c *TwilioClient) WithBaseURL(base string) *TwilioClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func (c *TwilioClient) Name() string    { return "twilio" }
func (c *TwilioClient) Simulated() bool { return false }

// HealthCheck fetches the account resource as a lightweight probe that
// the credentials work and the API is reachable.
func (c *TwilioClient) HealthCheck(ctx context.Context) error {
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", c.baseURL, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &ProviderError{Op: "health_check", err: err}
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Op: "health_check", Unreachable: true, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Op: "health_check", StatusCode: resp.StatusCode, Message: fmt.Sprintf("account fetch returned %d", resp.StatusCode)}
	}
	return nil
}

func (c *TwilioClient) CreateCall(ctx context.Context, p CallParams) (Dispatch, error) {
	form := url.Values{}
	form.Set("To", p.To)
	form.Set("From", c.fromNumber(p.From))
	if u := firstNonEmpty(p.TwiMLURL, c.cfg.TwiMLURL); u != "" {
		form.Set("Url", u)
	}
	if cb := firstNonEmpty(p.StatusCallback, c.cfg.StatusCallback); cb != "" {
		form.Set("StatusCallback", cb)
		form.Set("StatusCallbackMethod", http.MethodPost)
		for _, ev := range []string{"initiated", "ringing", "answered", "completed"} {
			form.Add("StatusCallbackEvent", ev)
		}
	}
	return c.postResource(ctx, "create_call", "Calls", form)
}

func (c *TwilioClient) CreateMessage(ctx context.Context, p MessageParams) (Dispatch, error) {
	form := url.Values{}
	form.Set("To", p.To)
	form.Set("From", c.fromNumber(p.From))
	form.Set("Body", p.Body)
	for _, m := range p.MediaURLs {
		form.Add("MediaUrl", m)
	}
	return c.postResource(ctx, "create_message", "Messages", form)
}

// CreateAccessToken mints the token locally: Twilio access tokens are
// JWTs signed with the API key secret, no network round trip needed.
func (c *TwilioClient) CreateAccessToken(_ context.Context, p TokenParams) (AccessToken, error) {
	keySID, secret := c.cfg.TokenSigningKey()
	return mintAccessToken(tokenSigner{
		KeySID:     keySID,
		Secret:     secret,
		AccountSID: c.cfg.AccountSID,
		AppSID:     c.cfg.AppSID,
	}, p)
}

func (c *TwilioClient) fromNumber(override string) string {
	if override != "" {
		return override
	}
	return c.cfg.PhoneNumber
}

type twilioResource struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *TwilioClient) postResource(ctx context.Context, op, resource string, form url.Values) (Dispatch, error) {
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/%s.json", c.baseURL, c.cfg.AccountSID, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return Dispatch{}, &ProviderError{Op: op, err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Dispatch{}, &ProviderError{Op: op, Unreachable: isTransportError(err), err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Dispatch{}, &ProviderError{Op: op, err: err}
	}

	var res twilioResource
	if err := json.Unmarshal(body, &res); err != nil {
		return Dispatch{}, &ProviderError{Op: op, StatusCode: resp.StatusCode, Message: "unparseable provider response", err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Dispatch{}, &ProviderError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Code:       res.Code,
			Message:    firstNonEmpty(res.Message, fmt.Sprintf("provider returned %d", resp.StatusCode)),
		}
	}
	return Dispatch{SID: res.SID, Status: res.Status}, nil
}

// isTransportError classifies errors from http.Client.Do. Everything
// surfaced there is a transport failure (the request never produced a
// response), including context deadline expiry.
func isTransportError(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
