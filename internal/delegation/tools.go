package delegation

import (
	"fmt"
	"strings"

	"github.com/orbitalmind/kernel/internal/types"
)

// ToolContract describes how to invoke one external CLI agent: its binary,
// the flags used to pass a prompt and to resume a prior session, and
// whether it emits newline-delimited JSON events on stdout or a single
// one-shot response.
type ToolContract struct {
	Name          string
	Binary        string
	PromptFlag    string
	ResumeFlag    string
	ModelFlag     string
	Streaming     bool

	// NotFoundPatterns and AuthPatterns are lowercase substrings matched
	// against a failed invocation's stderr tail, on top of the exec-level
	// binary-missing check. An auth-pattern match is still reported as
	// KindSubprocessError (the taxonomy has no separate auth kind) but
	// logged distinctly so operators can tell it apart from a generic
	// nonzero exit.
	NotFoundPatterns []string
	AuthPatterns     []string
}

var defaultNotFoundPatterns = []string{"command not found", "no such file or directory", "executable file not found"}
var defaultAuthPatterns = []string{"unauthorized", "authentication failed", "invalid api key", "401"}

// ClassifyFailure maps a failed invocation's stderr tail to the stable error
// taxonomy. A missing binary is KindSubprocessNotFound (terminal, distinct
// from a generic failure); everything else, including an auth-pattern match,
// is KindSubprocessError.
func (c ToolContract) ClassifyFailure(stderrTail string) (kind types.ErrorKind, auth bool) {
	lower := strings.ToLower(stderrTail)
	for _, p := range append(append([]string{}, c.NotFoundPatterns...), defaultNotFoundPatterns...) {
		if p != "" && strings.Contains(lower, p) {
			return types.KindSubprocessNotFound, false
		}
	}
	for _, p := range append(append([]string{}, c.AuthPatterns...), defaultAuthPatterns...) {
		if p != "" && strings.Contains(lower, p) {
			return types.KindSubprocessError, true
		}
	}
	return types.KindSubprocessError, false
}

// Contracts is the fixed set of supported delegation tools. Each entry
// mirrors a real CLI agent's invocation shape; unknown tool names are
// rejected at the RPC boundary before a job is ever queued.
var Contracts = map[string]ToolContract{
	"call_gem": {
		Name: "call_gem", Binary: "gemini", PromptFlag: "--prompt", ResumeFlag: "--session-id", ModelFlag: "--model", Streaming: true,
		AuthPatterns: []string{"quota exceeded", "api key not valid"},
	},
	"call_codex": {
		Name: "call_codex", Binary: "codex", PromptFlag: "exec", ResumeFlag: "--resume", ModelFlag: "--model", Streaming: true,
		AuthPatterns: []string{"not logged in", "please run codex login"},
	},
	"call_cc": {
		Name: "call_cc", Binary: "claude", PromptFlag: "--print", ResumeFlag: "--resume", ModelFlag: "--model", Streaming: true,
		AuthPatterns: []string{"please run /login", "oauth token expired"},
	},
	"call_vibe": {
		Name: "call_vibe", Binary: "vibe", PromptFlag: "--task", ResumeFlag: "--continue", ModelFlag: "--model", Streaming: false,
	},
	"call_warp": {
		Name: "call_warp", Binary: "warp-agent", PromptFlag: "--prompt", ResumeFlag: "--session", ModelFlag: "--model", Streaming: false,
	},
}

// Resolve looks up the contract for a tool name, erroring for anything
// outside the closed set.
func Resolve(tool string) (ToolContract, error) {
	c, ok := Contracts[tool]
	if !ok {
		return ToolContract{}, fmt.Errorf("unknown delegation tool %q", tool)
	}
	return c, nil
}

// BuildArgs renders the command-line arguments for one invocation, resuming
// a prior session when sessionID is non-empty.
func (c ToolContract) BuildArgs(prompt, sessionID, modelOverride string) []string {
	var args []string
	if c.PromptFlag != "" && c.PromptFlag[0] != '-' {
		args = append(args, c.PromptFlag) // subcommand-style, e.g. "exec"
		args = append(args, prompt)
	} else {
		args = append(args, c.PromptFlag, prompt)
	}
	if sessionID != "" {
		args = append(args, c.ResumeFlag, sessionID)
	}
	if modelOverride != "" {
		args = append(args, c.ModelFlag, modelOverride)
	}
	return args
}
