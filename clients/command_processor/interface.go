package command_processor

import "context"

// Usage carries token accounting from the downstream model call.
type Usage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is what the processor produces for one recorded command.
type Result struct {
	Transcript string
	Response   string
	Usage      Usage
}

// Interface is the boundary to the command processor: one call per finished
// recording, possibly seconds of latency, errors contained by the caller.
type Interface interface {
	Process(ctx context.Context, wavPath string) (*Result, error)
}
