package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// Minimal TwiML builder. It intentionally avoids any provider SDK
// dependency; only the verbs the voice flow renders are modeled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName   xml.Name  `xml:"Gather"`
	Action    string    `xml:"action,attr,omitempty"`
	Method    string    `xml:"method,attr,omitempty"`
	Input     string    `xml:"input,attr,omitempty"`
	NumDigits int       `xml:"numDigits,attr,omitempty"`
	Timeout   int       `xml:"timeout,attr,omitempty"`
	Say       *twimlSay `xml:"Say,omitempty"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Number  string   `xml:"Number,omitempty"`
}

type twimlRecord struct {
	XMLName   xml.Name `xml:"Record"`
	Action    string   `xml:"action,attr,omitempty"`
	MaxLength int      `xml:"maxLength,attr,omitempty"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

// PromptSpec describes one dialog step: an optional spoken greeting and
// an optional input-gathering directive.
type PromptSpec struct {
	Greeting string
	Voice    string

	// GatherAction, when set, wraps the prompt in a Gather posting
	// digits to the given URL.
	GatherAction string
	NumDigits    int
	Timeout      int

	// RecordAction, when set, appends a Record verb.
	RecordAction string
}

// RenderVoicePrompt builds the TwiML for a dialog step.
func RenderVoicePrompt(p PromptSpec) (string, error) {
	if strings.TrimSpace(p.Greeting) == "" && p.GatherAction == "" {
		return "", errors.New("telephony: empty voice prompt")
	}

	var r twimlResponse
	say := &twimlSay{Voice: p.Voice, Text: p.Greeting}

	if p.GatherAction != "" {
		g := twimlGather{
			Action:    p.GatherAction,
			Method:    "POST",
			Input:     "dtmf speech",
			NumDigits: p.NumDigits,
			Timeout:   p.Timeout,
		}
		if p.Greeting != "" {
			g.Say = say
		}
		r.Verbs = append(r.Verbs, g)
	} else {
		r.Verbs = append(r.Verbs, *say)
	}

	if p.RecordAction != "" {
		r.Verbs = append(r.Verbs, twimlRecord{Action: p.RecordAction, MaxLength: 3600})
	}

	return encodeTwiML(r)
}

// RenderDial connects the call to a PSTN number.
func RenderDial(number string) (string, error) {
	if strings.TrimSpace(number) == "" {
		return "", errors.New("telephony: dial target required")
	}
	return encodeTwiML(twimlResponse{Verbs: []any{twimlDial{Number: number}}})
}

// RenderHangup terminates the call politely.
func RenderHangup() (string, error) {
	return encodeTwiML(twimlResponse{Verbs: []any{twimlHangup{}}})
}

// RenderReject declines an incoming call before it connects.
func RenderReject() (string, error) {
	return encodeTwiML(twimlResponse{Verbs: []any{twimlReject{Reason: "busy"}}})
}

// RenderRedirect hands the call to another TwiML document.
func RenderRedirect(url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("telephony: redirect url required")
	}
	return encodeTwiML(twimlResponse{Verbs: []any{twimlRedirect{URL: url}}})
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
