package assistant

import "encoding/json"

// ChatInput is the body of POST /assistant/chat.
type ChatInput struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Reply is the assistant's answer. HTML is Markdown rendered for display.
type Reply struct {
	ConversationID string `json:"conversationId,omitempty"`
	Markdown       string `json:"markdown"`
	HTML           string `json:"html"`
}

// agentReply accepts the field names the chat agent has used for its
// answer.
type agentReply struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
	Response       string `json:"response"`
	Message        string `json:"message"`
}

func (a agentReply) text() string {
	for _, s := range []string{a.Reply, a.Response, a.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

// UnmarshalJSON also accepts a bare JSON string.
func (a *agentReply) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = agentReply{Reply: s}
		return nil
	}
	type plain agentReply
	return json.Unmarshal(data, (*plain)(a))
}
