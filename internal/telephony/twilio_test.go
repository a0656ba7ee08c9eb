package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voicedesk/internal/config"
)

func testTwilioConfig() config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID:  "AC1",
		AuthToken:   "tok",
		PhoneNumber: "+15005550006",
	}
}

func TestTwilioClient_CreateCall(t *testing.T) {
	var gotPath, gotTo, gotFrom string
	var gotEvents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotEvents = r.PostForm["StatusCallbackEvent"]
		if u, p, ok := r.BasicAuth(); !ok || u != "AC1" || p != "tok" {
			t.Fatalf("missing basic auth")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA777","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(testTwilioConfig(), time.Second).WithBaseURL(srv.URL)
	d, err := c.CreateCall(context.Background(), CallParams{
		To:             "+15551234567",
		StatusCallback: "https://example.com/status",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.SID != "CA777" || d.Status != "queued" {
		t.Fatalf("unexpected dispatch: %+v", d)
	}
	if gotPath != "/2010-04-01/Accounts/AC1/Calls.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotTo != "+15551234567" || gotFrom != "+15005550006" {
		t.Fatalf("unexpected to/from: %q %q", gotTo, gotFrom)
	}
	if len(gotEvents) != 4 {
		t.Fatalf("expected 4 status callback events, got %v", gotEvents)
	}
}

func TestTwilioClient_CreateMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.URL.Path != "/2010-04-01/Accounts/AC1/Messages.json" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.PostFormValue("Body") != "hello" {
			t.Fatalf("unexpected body %q", r.PostFormValue("Body"))
		}
		if got := r.PostForm["MediaUrl"]; len(got) != 1 || got[0] != "https://example.com/p.png" {
			t.Fatalf("unexpected media urls %v", got)
		}
		w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(testTwilioConfig(), time.Second).WithBaseURL(srv.URL)
	d, err := c.CreateMessage(context.Background(), MessageParams{
		To:        "+15551234567",
		Body:      "hello",
		MediaURLs: []string{"https://example.com/p.png"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.SID != "SM42" {
		t.Fatalf("unexpected dispatch: %+v", d)
	}
}

func TestTwilioClient_APIErrorIsNotUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number."}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(testTwilioConfig(), time.Second).WithBaseURL(srv.URL)
	_, err := c.CreateCall(context.Background(), CallParams{To: "+1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if pe.Unreachable {
		t.Fatalf("API rejection must not be flagged unreachable")
	}
	if pe.Code != 21211 || pe.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected error detail: %+v", pe)
	}
}

func TestTwilioClient_TransportErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewTwilioClient(testTwilioConfig(), time.Second).WithBaseURL(srv.URL)
	_, err := c.CreateCall(context.Background(), CallParams{To: "+15551234567"})
	var pe *ProviderError
	if !errors.As(err, &pe) || !pe.Unreachable {
		t.Fatalf("expected unreachable ProviderError, got %v", err)
	}
}

func TestTwilioClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC1.json" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"sid":"AC1","status":"active"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(testTwilioConfig(), time.Second).WithBaseURL(srv.URL)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
}
