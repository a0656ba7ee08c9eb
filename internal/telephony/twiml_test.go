package telephony

import (
	"strings"
	"testing"
)

func TestRenderVoicePrompt_SayOnly(t *testing.T) {
	out, err := RenderVoicePrompt(PromptSpec{Greeting: "Hello, this is your notary service.", Voice: "alice"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "<Say voice=\"alice\">Hello, this is your notary service.</Say>") {
		t.Fatalf("missing Say verb:\n%s", out)
	}
	if strings.Contains(out, "<Gather") {
		t.Fatalf("unexpected Gather verb:\n%s", out)
	}
}

func TestRenderVoicePrompt_GatherWrapsSay(t *testing.T) {
	out, err := RenderVoicePrompt(PromptSpec{
		Greeting:     "Press 1 to schedule an appointment.",
		GatherAction: "/webhooks/twilio/voice/input",
		NumDigits:    1,
		Timeout:      5,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, `action="/webhooks/twilio/voice/input"`) {
		t.Fatalf("missing gather action:\n%s", out)
	}
	if !strings.Contains(out, `numDigits="1"`) {
		t.Fatalf("missing numDigits:\n%s", out)
	}
	gatherIdx := strings.Index(out, "<Gather")
	sayIdx := strings.Index(out, "<Say")
	if gatherIdx == -1 || sayIdx == -1 || sayIdx < gatherIdx {
		t.Fatalf("Say must be nested inside Gather:\n%s", out)
	}
}

func TestRenderVoicePrompt_RejectsEmpty(t *testing.T) {
	if _, err := RenderVoicePrompt(PromptSpec{}); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestRenderDial(t *testing.T) {
	out, err := RenderDial("+15551234567")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "<Number>+15551234567</Number>") {
		t.Fatalf("missing dial number:\n%s", out)
	}

	if _, err := RenderDial(" "); err == nil {
		t.Fatalf("expected error for empty target")
	}
}

func TestRenderRejectAndHangup(t *testing.T) {
	rej, err := RenderReject()
	if err != nil || !strings.Contains(rej, `<Reject reason="busy"></Reject>`) {
		t.Fatalf("unexpected reject output (%v):\n%s", err, rej)
	}
	hng, err := RenderHangup()
	if err != nil || !strings.Contains(hng, "<Hangup></Hangup>") {
		t.Fatalf("unexpected hangup output (%v):\n%s", err, hng)
	}
}
