package agents

import "testing"

func TestMatchAssistant(t *testing.T) {
	a := AgentConfig{InboundAgentID: "asst_in", OutboundAgentID: "asst_out", InboundEnabled: true}

	if d, ok := a.MatchAssistant("asst_in"); !ok || d != DirectionInbound {
		t.Fatalf("expected inbound match, got %q %v", d, ok)
	}
	if d, ok := a.MatchAssistant("asst_out"); !ok || d != DirectionOutbound {
		t.Fatalf("expected outbound match, got %q %v", d, ok)
	}
	if _, ok := a.MatchAssistant("other"); ok {
		t.Fatalf("expected no match")
	}
	if _, ok := (AgentConfig{}).MatchAssistant(""); ok {
		t.Fatalf("empty id must never match unset assistants")
	}
	if !a.Enabled(DirectionInbound) || a.Enabled(DirectionOutbound) {
		t.Fatalf("unexpected enable flags")
	}
}

func TestOutboundReady(t *testing.T) {
	if (AgentConfig{OutboundEnabled: true}).OutboundReady() {
		t.Fatalf("expected not ready without assistant id")
	}
	if (AgentConfig{OutboundAgentID: "a"}).OutboundReady() {
		t.Fatalf("expected not ready when disabled")
	}
	if !(AgentConfig{OutboundAgentID: "a", OutboundEnabled: true}).OutboundReady() {
		t.Fatalf("expected ready")
	}
}
