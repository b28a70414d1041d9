package models

// ToolRequest is one webhook call from the voice agent. The agent replays every
// field gathered so far on each turn; nothing is remembered between calls.
type ToolRequest struct {
	Action   string `json:"action"`
	ToolName string `json:"tool_name"`

	Service   string `json:"service,omitempty"`
	ServiceID int    `json:"service_id,omitempty"`
	WorkerID  *int   `json:"worker_id,omitempty"`
	Location  string `json:"location,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Note      string `json:"note,omitempty"`
	Query     string `json:"query,omitempty"`
}

// ActionName returns whichever discriminator the caller filled in.
func (r ToolRequest) ActionName() string {
	if r.Action != "" {
		return r.Action
	}
	return r.ToolName
}

// ToolReply always carries a speakable Response.
type ToolReply struct {
	Response string         `json:"response"`
	Success  bool           `json:"success"`
	Data     map[string]any `json:"-"`
}

// JSON flattens Data next to response/success, as the voice agent expects.
func (r ToolReply) JSON() map[string]any {
	out := make(map[string]any, len(r.Data)+2)
	for k, v := range r.Data {
		out[k] = v
	}
	out["response"] = r.Response
	out["success"] = r.Success
	return out
}
