package access

import (
	"strconv"
	"strings"
)

// Extractor pulls one logical value out of a loosely shaped provider payload.
type Extractor func(payload map[string]any) (string, bool)

// Path extracts a non-empty string (or number) found by walking nested
// objects along keys.
func Path(keys ...string) Extractor {
	return func(payload map[string]any) (string, bool) {
		var cur any = payload
		for _, k := range keys {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			if cur, ok = m[k]; !ok {
				return "", false
			}
		}
		switch v := cur.(type) {
		case string:
			v = strings.TrimSpace(v)
			return v, v != ""
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		default:
			return "", false
		}
	}
}

// FirstOf tries extractors in order; the first success wins.
func FirstOf(extractors ...Extractor) Extractor {
	return func(payload map[string]any) (string, bool) {
		for _, ex := range extractors {
			if v, ok := ex(payload); ok {
				return v, true
			}
		}
		return "", false
	}
}

var (
	assistantID = FirstOf(
		Path("assistantId"),
		Path("message", "assistantId"),
		Path("message", "call", "assistantId"),
		Path("message", "assistant", "id"),
		Path("call", "assistantId"),
		Path("assistant", "id"),
	)

	phoneNumberID = FirstOf(
		Path("phoneNumberId"),
		Path("message", "phoneNumberId"),
		Path("message", "call", "phoneNumberId"),
		Path("message", "phoneNumber", "id"),
		Path("call", "phoneNumberId"),
		Path("phoneNumber", "id"),
	)

	destination = FirstOf(
		Path("to"),
		Path("phoneNumber", "number"),
		Path("message", "phoneNumber", "number"),
		Path("message", "call", "phoneNumber", "number"),
		Path("call", "to"),
		Path("call", "phoneNumber", "number"),
	)
)

// CallContext is what the gate could learn about the call from the payload.
// Any field may be empty.
type CallContext struct {
	AssistantID   string
	PhoneNumberID string
	Destination   string
}

func (c CallContext) Empty() bool {
	return c.AssistantID == "" && c.PhoneNumberID == "" && c.Destination == ""
}

// ParseCallContext searches payload for the identifiers the gate understands.
func ParseCallContext(payload map[string]any) CallContext {
	var cc CallContext
	if payload == nil {
		return cc
	}
	cc.AssistantID, _ = assistantID(payload)
	cc.PhoneNumberID, _ = phoneNumberID(payload)
	cc.Destination, _ = destination(payload)
	return cc
}
