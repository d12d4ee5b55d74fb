// Package hydrator implements the C9 graph-state hydrator of spec §4.9: it
// fuses the immutable kernels of pkg/kernel (C8) with the mutable agent
// subgraph of pkg/graphstate (C3) into a single runtime HydratedAgentContext,
// and pre-filters proposed actions against the agent's CRITICAL directives.
package hydrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentops-dev/substrate/pkg/graphstate"
)

// HydratedAgentContext is the fused runtime view an agent's tool-dispatch and
// planning loop consults before acting (spec §4.9).
type HydratedAgentContext struct {
	AgentID               string
	Designation           string
	Role                  string
	Mission               string
	AuthorityLevel        string
	SupervisorID          string
	ResponsibilityLines   []string
	CriticalDirectives    []string
	SOPs                  map[string][]string
	AvailableTools        []string
	ToolsRequiringApproval []string
	SafetyConstraints     []string
	SystemPrompt          string
}

// buildContext fuses an agent's graph subgraph with its activated kernel
// content into a HydratedAgentContext. Kernel content supplies
// SafetyConstraints (from the Safety kernel's "constraints" array, if
// present) and is otherwise additive to the graph-sourced fields.
func buildContext(state graphstate.AgentState, kernelConstraints []string) HydratedAgentContext {
	hc := HydratedAgentContext{
		AgentID:        state.Agent.AgentID,
		Designation:    state.Agent.Designation,
		Role:           state.Agent.Role,
		Mission:        state.Agent.Mission,
		AuthorityLevel: state.Agent.AuthorityLevel,
		SupervisorID:   state.Agent.SupervisorID,
		SOPs:           make(map[string][]string, len(state.SOPs)),
		SafetyConstraints: kernelConstraints,
	}

	responsibilities := append([]graphstate.Responsibility(nil), state.Responsibilities...)
	sort.Slice(responsibilities, func(i, j int) bool { return responsibilities[i].Priority < responsibilities[j].Priority })
	for _, r := range responsibilities {
		hc.ResponsibilityLines = append(hc.ResponsibilityLines, fmt.Sprintf("%s: %s", r.Title, r.Description))
	}

	for _, d := range state.Directives {
		if d.Severity == graphstate.SeverityCritical {
			hc.CriticalDirectives = append(hc.CriticalDirectives, d.Text)
		}
	}

	for _, s := range state.SOPs {
		hc.SOPs[s.Name] = append([]string(nil), s.Steps...)
	}

	for _, t := range state.Tools {
		hc.AvailableTools = append(hc.AvailableTools, t.Name)
		if t.RequiresApproval {
			hc.ToolsRequiringApproval = append(hc.ToolsRequiringApproval, t.Name)
		}
	}
	sort.Strings(hc.AvailableTools)
	sort.Strings(hc.ToolsRequiringApproval)

	hc.SystemPrompt = renderSystemPrompt(hc)
	return hc
}

// renderSystemPrompt emits the stable textual format suitable for prepending
// to LLM prompts (spec §4.9). The format is intentionally plain: headers
// followed by bullet lines, in a fixed section order.
func renderSystemPrompt(hc HydratedAgentContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s (%s).\n", hc.Designation, hc.AgentID)
	if hc.Role != "" {
		fmt.Fprintf(&b, "Role: %s\n", hc.Role)
	}
	if hc.Mission != "" {
		fmt.Fprintf(&b, "Mission: %s\n", hc.Mission)
	}
	if hc.SupervisorID != "" {
		fmt.Fprintf(&b, "Reports to: %s\n", hc.SupervisorID)
	}

	if len(hc.ResponsibilityLines) > 0 {
		b.WriteString("\nResponsibilities:\n")
		for _, line := range hc.ResponsibilityLines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	if len(hc.CriticalDirectives) > 0 {
		b.WriteString("\nCritical directives (must never be violated):\n")
		for _, d := range hc.CriticalDirectives {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}

	if len(hc.SafetyConstraints) > 0 {
		b.WriteString("\nSafety constraints:\n")
		for _, c := range hc.SafetyConstraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if len(hc.SOPs) > 0 {
		names := make([]string, 0, len(hc.SOPs))
		for name := range hc.SOPs {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nStandard operating procedures:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "- %s:\n", name)
			for i, step := range hc.SOPs[name] {
				fmt.Fprintf(&b, "    %d. %s\n", i+1, step)
			}
		}
	}

	if len(hc.AvailableTools) > 0 {
		fmt.Fprintf(&b, "\nAvailable tools: %s\n", strings.Join(hc.AvailableTools, ", "))
	}
	if len(hc.ToolsRequiringApproval) > 0 {
		fmt.Fprintf(&b, "Tools requiring approval: %s\n", strings.Join(hc.ToolsRequiringApproval, ", "))
	}

	return b.String()
}
