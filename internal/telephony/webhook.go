package telephony

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusEvent is the internal form of a provider status callback.
// Status carries the provider's vocabulary (queued, ringing,
// in-progress, completed, ...); the call tracker maps it onto the
// internal lifecycle.
type StatusEvent struct {
	CallSID         string    `json:"call_sid"`
	Status          string    `json:"status"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Direction       string    `json:"direction"`
	DurationSeconds int       `json:"duration_seconds"`
	RecordingURL    string    `json:"recording_url,omitempty"`
	RecordingSID    string    `json:"recording_sid,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ParseStatusCallback extracts the status webhook fields. The provider
// sends application/x-www-form-urlencoded by default, but JSON bodies
// are accepted too since test tooling posts them.
func ParseStatusCallback(r *http.Request) (StatusEvent, error) {
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		return parseStatusJSON(r)
	}
	return parseStatusForm(r)
}

func parseStatusForm(r *http.Request) (StatusEvent, error) {
	if err := r.ParseForm(); err != nil {
		return StatusEvent{}, err
	}
	dur, _ := strconv.Atoi(r.PostFormValue("CallDuration"))
	return StatusEvent{
		CallSID:         r.PostFormValue("CallSid"),
		Status:          r.PostFormValue("CallStatus"),
		From:            r.PostFormValue("From"),
		To:              r.PostFormValue("To"),
		Direction:       r.PostFormValue("Direction"),
		DurationSeconds: dur,
		RecordingURL:    r.PostFormValue("RecordingUrl"),
		RecordingSID:    r.PostFormValue("RecordingSid"),
		OccurredAt:      time.Now().UTC(),
	}, nil
}

func parseStatusJSON(r *http.Request) (StatusEvent, error) {
	var body struct {
		CallSid      string `json:"CallSid"`
		CallStatus   string `json:"CallStatus"`
		From         string `json:"From"`
		To           string `json:"To"`
		Direction    string `json:"Direction"`
		CallDuration string `json:"CallDuration"`
		RecordingURL string `json:"RecordingUrl"`
		RecordingSid string `json:"RecordingSid"`
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		return StatusEvent{}, err
	}
	dur, _ := strconv.Atoi(body.CallDuration)
	return StatusEvent{
		CallSID:         body.CallSid,
		Status:          body.CallStatus,
		From:            body.From,
		To:              body.To,
		Direction:       body.Direction,
		DurationSeconds: dur,
		RecordingURL:    body.RecordingURL,
		RecordingSID:    body.RecordingSid,
		OccurredAt:      time.Now().UTC(),
	}, nil
}
