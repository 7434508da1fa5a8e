// Package agent implements the conversational market data analyst. An
// Analyst owns a tool registry bound to live data sources, a sliding
// conversation memory, and drives multi-round tool-calling turns against
// the completion service.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/finchat-ai/finchat/internal/agent/prompts"
	"github.com/finchat-ai/finchat/internal/llm"
	"github.com/finchat-ai/finchat/pkg/utils"
)

// Memory manages conversation history with a sliding window. When the
// window overflows, the oldest exchanges are dropped.
type Memory struct {
	mu       sync.RWMutex
	messages []llm.Message
	maxSize  int
}

// NewMemory creates a conversation memory with the given window size.
func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 40
	}
	return &Memory{maxSize: maxSize, messages: make([]llm.Message, 0, maxSize)}
}

// Add appends a message, trimming the oldest when the window overflows.
func (m *Memory) Add(msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	if len(m.messages) > m.maxSize {
		m.messages = m.messages[len(m.messages)-m.maxSize:]
	}
}

// Messages returns a copy of the current window.
func (m *Memory) Messages() []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]llm.Message(nil), m.messages...)
}

// Size returns the number of messages in the window.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Clear resets the memory.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = m.messages[:0]
}

// Result is the outcome of one analyst turn.
type Result struct {
	Content   string               `json:"content"`
	Aborted   bool                 `json:"aborted,omitempty"`
	ToolCalls []llm.ToolCallRecord `json:"tool_calls,omitempty"`
	Tokens    int                  `json:"tokens"`
	Duration  time.Duration        `json:"duration"`
}

// Config configures an Analyst.
type Config struct {
	Client      *llm.Client
	Sources     Sources
	Model       string
	Temperature float64
	MaxRounds   int
	MemorySize  int
	Logger      *slog.Logger
}

// Analyst answers market data questions over a tool-calling loop.
type Analyst struct {
	client      *llm.Client
	registry    *llm.Registry
	memory      *Memory
	model       string
	temperature *float64
	maxRounds   int
	logger      *slog.Logger
}

// NewAnalyst builds an analyst with its tool set bound to the given data
// sources.
func NewAnalyst(cfg Config) *Analyst {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := llm.NewRegistry()
	for _, t := range buildTools(cfg.Sources) {
		registry.Register(t)
	}

	a := &Analyst{
		client:    cfg.Client,
		registry:  registry,
		memory:    NewMemory(cfg.MemorySize),
		model:     cfg.Model,
		maxRounds: cfg.MaxRounds,
		logger:    logger,
	}
	if cfg.Temperature > 0 {
		a.temperature = &cfg.Temperature
	}
	return a
}

// Registry exposes the analyst's tools, e.g. for the API's tool listing.
func (a *Analyst) Registry() *llm.Registry { return a.registry }

// Memory exposes the conversation memory.
func (a *Analyst) Memory() *Memory { return a.memory }

// Ask answers a one-shot question without touching conversation memory.
func (a *Analyst) Ask(ctx context.Context, question string, attachments []llm.ImageAttachment, onToolCall func(llm.ToolCallRecord)) (*Result, error) {
	return a.run(ctx, question, nil, attachments, onToolCall, false)
}

// Chat answers a question in the context of the ongoing conversation and
// records the exchange in memory.
func (a *Analyst) Chat(ctx context.Context, question string, attachments []llm.ImageAttachment, onToolCall func(llm.ToolCallRecord)) (*Result, error) {
	return a.run(ctx, question, a.memory.Messages(), attachments, onToolCall, true)
}

func (a *Analyst) run(ctx context.Context, question string, history []llm.Message, attachments []llm.ImageAttachment, onToolCall func(llm.ToolCallRecord), remember bool) (*Result, error) {
	start := time.Now()

	instructions := prompts.WithMarketStatus(utils.MarketStatusAt(time.Now()))
	turn, err := llm.RunTurn(ctx, a.client, a.registry, llm.TurnRequest{
		Instructions: instructions,
		History:      history,
		UserMessage:  question,
		Attachments:  attachments,
		MaxRounds:    a.maxRounds,
		Model:        a.model,
		Temperature:  a.temperature,
		OnToolCall:   onToolCall,
		Logger:       a.logger,
	})
	if err != nil {
		return nil, err
	}

	content := turn.Text
	if content == "" && turn.Aborted {
		content = "I could not finish gathering data for that question. Try narrowing it down."
	}

	if remember {
		a.memory.Add(llm.Message{Role: llm.RoleUser, Content: question})
		if content != "" {
			a.memory.Add(llm.Message{Role: llm.RoleAssistant, Content: content})
		}
	}

	a.logger.Info("analyst turn complete",
		"rounds", turn.Rounds,
		"tool_calls", len(turn.ToolCalls),
		"tokens", turn.Usage.TotalTokens,
		"aborted", turn.Aborted,
		"duration", time.Since(start))

	return &Result{
		Content:   content,
		Aborted:   turn.Aborted,
		ToolCalls: turn.ToolCalls,
		Tokens:    turn.Usage.TotalTokens,
		Duration:  time.Since(start),
	}, nil
}
