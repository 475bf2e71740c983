package delegation

import (
	"encoding/json"
	"regexp"

	"github.com/orbitalmind/kernel/internal/store"
)

var sessionIDLine = regexp.MustCompile(`(?i)"session_id"\s*:\s*"([a-zA-Z0-9_\-]+)"`)

// extractSessionID looks for a reported session id in one line of tool
// output. Tools report this either as a bare JSON event or embedded in a
// larger line; both are handled by a regex scan rather than requiring every
// line to be valid JSON, since non-streaming tools interleave plain text.
func extractSessionID(line string) string {
	if m := sessionIDLine.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	var event struct {
		SessionID string `json:"session_id"`
	}
	if json.Unmarshal([]byte(line), &event) == nil && event.SessionID != "" {
		return event.SessionID
	}
	return ""
}

// ResumeSessionID returns the last known session id for (tool,
// agentInstance), or empty if no exchange has ever reported one.
func ResumeSessionID(st *store.Store, tool, agentInstance string) (string, error) {
	ts, err := st.GetToolSession(tool, agentInstance)
	if err != nil {
		return "", err
	}
	if ts == nil {
		return "", nil
	}
	return ts.LastSessionID, nil
}

// RecordSessionOnSuccess updates the resume pointer, but only when the
// exchange both succeeded and reported a session id. This is the gate
// that keeps the resume pointer from ever being set by a failed or
// sessionless exchange.
func RecordSessionOnSuccess(st *store.Store, tool, agentInstance string, exchangeErr error, reportedSessionID string) error {
	if exchangeErr != nil || reportedSessionID == "" {
		return nil
	}
	return st.SetToolSession(tool, agentInstance, reportedSessionID)
}
