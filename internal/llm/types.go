// Package llm drives a stateful, tool-calling completion service (the
// OpenAI Responses API) through multi-round conversational turns. It
// compiles tool schemas into the service's strict wire format, dispatches
// requested tool calls against a registry, and loops until the service
// produces a final answer.
package llm

import "encoding/json"

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Output item types emitted by the service.
const (
	ItemMessage            = "message"
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
)

// Content part types. User-supplied text and assistant-produced text are
// tagged differently on the wire and are not interchangeable.
const (
	PartInputText  = "input_text"
	PartInputImage = "input_image"
	PartOutputText = "output_text"
)

// Image detail hints.
const (
	DetailLow  = "low"
	DetailHigh = "high"
	DetailAuto = "auto"
)

// Message is one caller-supplied turn of conversation history: a plain
// role/text pair. Tool calls never appear in persisted history; they live
// and die inside a single turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageAttachment is an inline-encoded image (data URL or https URL)
// attached to the newest user message.
type ImageAttachment struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"` // low, high, or auto
}

// ContentPart is one element of a message's content list.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// InputTextPart builds a user/system text part.
func InputTextPart(text string) ContentPart {
	return ContentPart{Type: PartInputText, Text: text}
}

// OutputTextPart builds an assistant text part for echoed history.
func OutputTextPart(text string) ContentPart {
	return ContentPart{Type: PartOutputText, Text: text}
}

// ImagePart builds an inline image part with a resolution hint.
func ImagePart(url, detail string) ContentPart {
	if detail == "" {
		detail = DetailAuto
	}
	return ContentPart{Type: PartInputImage, ImageURL: url, Detail: detail}
}

// InputMessage is a conversation message in wire form.
type InputMessage struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// NewInputMessage builds a wire message from a role and content parts.
func NewInputMessage(role string, parts ...ContentPart) InputMessage {
	return InputMessage{Type: ItemMessage, Role: role, Content: parts}
}

// FunctionCallOutput resolves one pending tool call in a continuation
// request. CallID must echo the id of the originating call exactly.
type FunctionCallOutput struct {
	Type   string `json:"type"` // always "function_call_output"
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// Request is one round's request to the completion service. Input is
// heterogeneous on the wire: message items on the first round, echoed
// output items plus function call outputs on continuations.
type Request struct {
	Model              string         `json:"model"`
	Instructions       string         `json:"instructions,omitempty"`
	Input              []any          `json:"input"`
	Tools              []FunctionTool `json:"tools,omitempty"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
	ParallelToolCalls  bool           `json:"parallel_tool_calls"`
	Temperature        *float64       `json:"temperature,omitempty"`
	MaxOutputTokens    *int           `json:"max_output_tokens,omitempty"`
}

// FunctionCall is a tool invocation requested by the service. Arguments is
// the raw argument string: expected to be JSON, treated as untrusted.
type FunctionCall struct {
	CallID    string
	Name      string
	Arguments string
}

// OutputItem is one item of a response's output list. The original wire
// bytes are retained so continuation requests can echo items verbatim,
// preserving any state the service attached to them.
type OutputItem struct {
	ID        string        `json:"id,omitempty"`
	Type      string        `json:"type"`
	Role      string        `json:"role,omitempty"`
	Status    string        `json:"status,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps the raw bytes.
func (o *OutputItem) UnmarshalJSON(b []byte) error {
	type plain OutputItem
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = OutputItem(p)
	o.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON re-emits the original wire bytes when available, so echoed
// items round-trip exactly.
func (o OutputItem) MarshalJSON() ([]byte, error) {
	if o.raw != nil {
		return o.raw, nil
	}
	type plain OutputItem
	return json.Marshal(plain(o))
}

// Usage tracks the service's token counters. Absent fields default to 0.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates another round's usage into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the service's reply for one round.
type Response struct {
	ID         string       `json:"id"`
	Model      string       `json:"model,omitempty"`
	Status     string       `json:"status,omitempty"`
	Output     []OutputItem `json:"output"`
	OutputText string       `json:"output_text,omitempty"`
	Usage      Usage        `json:"usage"`
}

// HasFunctionCalls reports whether the response requests any tool calls.
func (r *Response) HasFunctionCalls() bool {
	for _, item := range r.Output {
		if item.Type == ItemFunctionCall {
			return true
		}
	}
	return false
}

// Text extracts the assistant-visible text from the response. It prefers
// the output_text convenience field; when absent it walks the output
// items, concatenating the text parts of assistant messages joined by
// newlines. Returns "" when the response carries no final text, which
// callers should treat as a warning condition rather than an error.
func (r *Response) Text() string {
	if r.OutputText != "" {
		return r.OutputText
	}

	var sb []byte
	for _, item := range r.Output {
		if item.Type != ItemMessage || item.Role != RoleAssistant {
			continue
		}
		for _, part := range item.Content {
			if part.Type != PartOutputText && part.Type != "text" {
				continue
			}
			if part.Text == "" {
				continue
			}
			if len(sb) > 0 {
				sb = append(sb, '\n')
			}
			sb = append(sb, part.Text...)
		}
	}
	return trimSpace(string(sb))
}

// trimSpace avoids importing strings for a single call site elsewhere.
func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
