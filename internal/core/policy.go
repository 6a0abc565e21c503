package core

import (
	"context"
	"strings"
	"time"
)

const (
	PolicyFileAccess      = "nexus_context_read_v1"
	PolicyNetworkOutbound = "nexus_restricted_egress_v1"
	PolicyScriptExecution = "nexus_sandbox_isolation_v1"
	PolicyDefaultAllow    = "default_allow"

	allowedEgressPrefix = "https://google.com"
)

type PolicyResult struct {
	Authorized bool   `json:"authorized"`
	Policy     string `json:"policy"`
	Details    string `json:"details"`
}

// PolicyEngine is a simulated policy check using plain string rules.
// It is exposed on the API only and is not consulted by the turn pipeline.
type PolicyEngine struct {
	evalDelay time.Duration
}

func NewPolicyEngine(evalDelay time.Duration) *PolicyEngine {
	return &PolicyEngine{evalDelay: evalDelay}
}

func (p *PolicyEngine) Authorize(ctx context.Context, action string, metadata map[string]string) (PolicyResult, error) {
	if err := sleepContext(ctx, p.evalDelay); err != nil {
		return PolicyResult{}, err
	}

	if strings.Contains(action, "eval") || strings.Contains(action, "exec") {
		return PolicyResult{
			Authorized: false,
			Policy:     PolicyScriptExecution,
			Details:    "Execution of arbitrary code is strictly forbidden in this environment.",
		}, nil
	}

	if action == "network_fetch" && !strings.HasPrefix(metadata["url"], allowedEgressPrefix) {
		return PolicyResult{
			Authorized: false,
			Policy:     PolicyNetworkOutbound,
			Details:    "External egress to " + metadata["url"] + " is blocked by OPA policy.",
		}, nil
	}

	return PolicyResult{
		Authorized: true,
		Policy:     PolicyDefaultAllow,
		Details:    "Action validated against standard security constraints.",
	}, nil
}
