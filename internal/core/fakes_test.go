package core

import (
	"context"
	"sync"
)

// fakeCompleter records every request and answers through respond.
type fakeCompleter struct {
	mu       sync.Mutex
	requests []CompletionRequest
	respond  func(req CompletionRequest) (*CompletionResponse, error)
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return &CompletionResponse{}, nil
	}
	return respond(req)
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeCompleter) last() CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func replyWith(text string) func(CompletionRequest) (*CompletionResponse, error) {
	return func(CompletionRequest) (*CompletionResponse, error) {
		return &CompletionResponse{Text: text}, nil
	}
}

// blockTexts flattens blocks for assertions; inline blocks render as "<inline:mime>".
func blockTexts(blocks []Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Inline != nil {
			out = append(out, "<inline:"+b.Inline.MIMEType+">")
			continue
		}
		out = append(out, b.Text)
	}
	return out
}
