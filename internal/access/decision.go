package access

import "net/http"

// Decision is the gate's answer for one call.
//
// Message is read or acted on by the calling AI agent. Action is only
// populated under the strict policy.
type Decision struct {
	Allowed        bool   `json:"allowed"`
	Reason         string `json:"reason"`
	Message        string `json:"message,omitempty"`
	Action         Action `json:"action,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`

	// Status is the HTTP status the handler answers with.
	Status int `json:"-"`
}

type Action string

const (
	ActionReject Action = "reject"
	ActionHangup Action = "hangup"
)

// Policy selects how the gate treats ambiguity and paid plans.
type Policy string

const (
	// PolicyOpen allows unidentified calls and errors through and trusts the
	// stored paid plan.
	PolicyOpen Policy = "open"
	// PolicyStrict rejects unidentified calls and verifies paid plans against
	// the payments provider.
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, bool) {
	switch p := Policy(s); p {
	case PolicyOpen, PolicyStrict:
		return p, true
	default:
		return "", false
	}
}

const (
	msgHangup = "Tell the caller the business cannot take calls right now, then hang up immediately."

	msgTrialExpired    = "This account's free trial has expired. " + msgHangup
	msgNoSubscription  = "This account has no active subscription. " + msgHangup
	msgSubscriptionEnd = "This account's subscription has ended. " + msgHangup
	msgDirectionOff    = "This assistant is disabled for this call direction. " + msgHangup
	msgUnidentified    = "This call could not be matched to an account. Do not continue the call."
)

func allow(reason, orgID string) Decision {
	return Decision{Allowed: true, Reason: reason, OrganizationID: orgID, Status: http.StatusOK}
}

// deny builds a refusal shaped by policy: strict answers 403 with an action,
// open answers 200 with the message only.
func (p Policy) deny(reason, message string, action Action, orgID string) Decision {
	d := Decision{Allowed: false, Reason: reason, Message: message, OrganizationID: orgID, Status: http.StatusOK}
	if p == PolicyStrict {
		d.Action = action
		d.Status = http.StatusForbidden
	}
	return d
}
