package agent

import (
	"context"
	"sync"
)

// ScriptedEngine is a deterministic Engine implementation driven by a queue
// of prepared responses. It backs tests and the offline demo mode.
type ScriptedEngine struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	requests  []Request
}

// ScriptedResponse is one queued engine response, optionally replaced by an
// error.
type ScriptedResponse struct {
	Response Response
	Err      error
}

// NewScriptedEngine creates an engine that replays the given responses in
// order. Once the queue is exhausted, further calls return an empty
// finalize-only response so loops always terminate.
func NewScriptedEngine(responses ...ScriptedResponse) *ScriptedEngine {
	return &ScriptedEngine{responses: responses}
}

// Enqueue appends responses to the script.
func (e *ScriptedEngine) Enqueue(responses ...ScriptedResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses = append(e.responses, responses...)
}

// Complete pops the next scripted response.
func (e *ScriptedEngine) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.requests = append(e.requests, req)

	if len(e.responses) == 0 {
		return Response{
			Finalize: &FinalizePayload{
				ShouldSkip: true,
				NextAction: string(ActionContinue),
			},
		}, nil
	}

	next := e.responses[0]
	e.responses = e.responses[1:]
	return next.Response, next.Err
}

// Requests returns a copy of every request the engine has seen, in order.
func (e *ScriptedEngine) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// FinalizeResponse is a convenience constructor for a response that
// finalizes immediately.
func FinalizeResponse(fp FinalizePayload) ScriptedResponse {
	return ScriptedResponse{Response: Response{Finalize: &fp}}
}

// InvokeResponse is a convenience constructor for a response requesting
// capability invocations.
func InvokeResponse(invs ...Invocation) ScriptedResponse {
	return ScriptedResponse{Response: Response{Invocations: invs}}
}

// ErrorResponse is a convenience constructor for a failing engine call.
func ErrorResponse(err error) ScriptedResponse {
	return ScriptedResponse{Err: err}
}
