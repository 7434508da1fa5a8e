package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxRounds caps tool-call rounds per turn. A turn that is still
// requesting tools after this many continuations is aborted.
const DefaultMaxRounds = 8

// TurnRequest describes one conversational turn.
type TurnRequest struct {
	// Instructions is the system prompt, sent on the first round only.
	Instructions string

	// History is prior conversation as plain role/text pairs.
	History []Message

	// UserMessage is the newest user message.
	UserMessage string

	// Attachments are appended as extra content parts on the newest user
	// message, never as a separate message.
	Attachments []ImageAttachment

	// MaxRounds overrides DefaultMaxRounds when positive.
	MaxRounds int

	// Model overrides the client's default model when non-empty.
	Model string

	Temperature     *float64
	MaxOutputTokens *int

	// OnToolCall, if non-nil, is invoked for each tool call as it is
	// dispatched.
	OnToolCall func(ToolCallRecord)

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	// Text is the final assistant text. Best effort when Aborted.
	Text string

	// Aborted is set when the round cap was hit while the service was
	// still requesting tools.
	Aborted bool

	// Rounds is the number of service calls made.
	Rounds int

	// ToolCalls is every tool invocation of the turn, in dispatch order.
	ToolCalls []ToolCallRecord

	// Usage is token usage summed across all rounds.
	Usage Usage

	// ResponseID identifies the last response, for downstream chaining.
	ResponseID string
}

// RunTurn drives one turn to completion: it sends the conversation,
// executes every requested tool call, feeds results back, and repeats
// until the service stops calling tools or the round cap is reached.
//
// Tool failures never fail the turn; they surface to the service as
// error payloads. Transport and service failures are fatal. When the
// round cap is reached, the pending tool results are still delivered in
// one final continuation so every call id receives its output, then the
// turn returns with Aborted set.
func RunTurn(ctx context.Context, client *Client, registry *Registry, req TurnRequest) (*TurnResult, error) {
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRounds := req.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	tools := registry.Compiled()
	log := NewCallLog(req.OnToolCall)

	first := &Request{
		Model:             req.Model,
		Instructions:      req.Instructions,
		Input:             buildInput(req),
		Tools:             tools,
		ParallelToolCalls: true,
		Temperature:       req.Temperature,
		MaxOutputTokens:   req.MaxOutputTokens,
	}

	resp, err := client.CreateResponse(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("completion service: %w", err)
	}

	var usage Usage
	rounds := 1

	for {
		usage.Add(resp.Usage)
		calls := pendingCalls(resp, logger)

		if len(calls) == 0 {
			text := resp.Text()
			if text == "" {
				logger.Warn("turn finished without final text", "response_id", resp.ID, "rounds", rounds)
			}
			return &TurnResult{
				Text:       text,
				Rounds:     rounds,
				ToolCalls:  log.Records(),
				Usage:      usage,
				ResponseID: resp.ID,
			}, nil
		}

		outputs := dispatchAll(ctx, registry, calls, log)

		cont := &Request{
			Model:              req.Model,
			Input:              continuationInput(resp, outputs),
			Tools:              tools,
			PreviousResponseID: resp.ID,
			ParallelToolCalls:  true,
			Temperature:        req.Temperature,
			MaxOutputTokens:    req.MaxOutputTokens,
		}

		resp, err = client.CreateResponse(ctx, cont)
		if err != nil {
			return nil, fmt.Errorf("completion service: %w", err)
		}
		rounds++

		if rounds > maxRounds {
			usage.Add(resp.Usage)
			result := &TurnResult{
				Text:       resp.Text(),
				Rounds:     rounds,
				ToolCalls:  log.Records(),
				Usage:      usage,
				ResponseID: resp.ID,
			}
			// The cap only aborts a turn that still wants more tools.
			if len(pendingCalls(resp, logger)) > 0 {
				result.Aborted = true
				logger.Warn("turn aborted at round cap", "max_rounds", maxRounds, "tool_calls", len(result.ToolCalls))
			} else if result.Text == "" {
				logger.Warn("turn finished without final text", "response_id", resp.ID, "rounds", rounds)
			}
			return result, nil
		}
	}
}

// buildInput assembles the first round's input: history messages followed
// by the newest user message with any attachments inlined.
func buildInput(req TurnRequest) []any {
	input := make([]any, 0, len(req.History)+1)
	for _, m := range req.History {
		part := InputTextPart(m.Content)
		if m.Role == RoleAssistant {
			part = OutputTextPart(m.Content)
		}
		input = append(input, NewInputMessage(m.Role, part))
	}

	parts := []ContentPart{InputTextPart(req.UserMessage)}
	for _, att := range req.Attachments {
		parts = append(parts, ImagePart(att.URL, att.Detail))
	}
	input = append(input, NewInputMessage(RoleUser, parts...))
	return input
}

// pendingCalls extracts well-formed function calls from a response.
// Items missing a call id or a name cannot be answered and are skipped
// with a warning.
func pendingCalls(resp *Response, logger *slog.Logger) []FunctionCall {
	var calls []FunctionCall
	for _, item := range resp.Output {
		if item.Type != ItemFunctionCall {
			continue
		}
		if item.CallID == "" || item.Name == "" {
			logger.Warn("skipping malformed function call item", "item_id", item.ID, "call_id", item.CallID, "name", item.Name)
			continue
		}
		calls = append(calls, FunctionCall{CallID: item.CallID, Name: item.Name, Arguments: item.Arguments})
	}
	return calls
}

// dispatchAll runs every requested call concurrently and returns outputs
// positionally matched to calls. Dispatch never returns an error, so the
// group exists for fan-out and context plumbing only.
func dispatchAll(ctx context.Context, registry *Registry, calls []FunctionCall, log *CallLog) []FunctionCallOutput {
	outputs := make([]FunctionCallOutput, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			outputs[i] = FunctionCallOutput{
				Type:   ItemFunctionCallOutput,
				CallID: call.CallID,
				Output: registry.Dispatch(gctx, call, log),
			}
			return nil
		})
	}
	g.Wait()
	return outputs
}

// continuationInput echoes the prior response's output items verbatim,
// then appends one function_call_output per resolved call.
func continuationInput(resp *Response, outputs []FunctionCallOutput) []any {
	input := make([]any, 0, len(resp.Output)+len(outputs))
	for i := range resp.Output {
		input = append(input, &resp.Output[i])
	}
	for _, out := range outputs {
		input = append(input, out)
	}
	return input
}
