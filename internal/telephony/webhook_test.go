package telephony

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseStatusCallback_Form(t *testing.T) {
	body := strings.NewReader("CallSid=CA123&CallStatus=completed&From=%2B15551234567&To=%2B15557654321&Direction=outbound-api&CallDuration=42&RecordingUrl=https%3A%2F%2Fexample.com%2Frec&RecordingSid=RE1")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ev, err := ParseStatusCallback(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.CallSID != "CA123" || ev.Status != "completed" {
		t.Fatalf("unexpected sid/status: %q %q", ev.CallSID, ev.Status)
	}
	if ev.From != "+15551234567" || ev.To != "+15557654321" {
		t.Fatalf("unexpected from/to: %q %q", ev.From, ev.To)
	}
	if ev.DurationSeconds != 42 {
		t.Fatalf("expected duration 42, got %d", ev.DurationSeconds)
	}
	if ev.RecordingURL == "" || ev.RecordingSID != "RE1" {
		t.Fatalf("expected recording fields")
	}
	if ev.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at stamp")
	}
}

func TestParseStatusCallback_JSON(t *testing.T) {
	body := strings.NewReader(`{"CallSid":"CA9","CallStatus":"ringing","Direction":"inbound","From":"+15550001111","To":"+15550002222","CallDuration":"0"}`)
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", body)
	r.Header.Set("Content-Type", "application/json")

	ev, err := ParseStatusCallback(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.CallSID != "CA9" || ev.Status != "ringing" || ev.Direction != "inbound" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseStatusCallback_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", strings.NewReader("{not json"))
	r.Header.Set("Content-Type", "application/json")

	if _, err := ParseStatusCallback(r); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

func TestParseStatusCallback_MissingDurationDefaultsZero(t *testing.T) {
	body := strings.NewReader("CallSid=CA1&CallStatus=in-progress")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ev, err := ParseStatusCallback(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.DurationSeconds != 0 {
		t.Fatalf("expected zero duration, got %d", ev.DurationSeconds)
	}
}
