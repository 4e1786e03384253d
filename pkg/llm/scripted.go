package llm

import (
	"context"
	"sync"
)

type reply struct {
	text string
	err  error
}

// ScriptedGenerator replays canned replies per purpose. When a purpose has
// no reply left it answers ErrUnavailable, which drives callers onto their
// deterministic fallbacks.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies map[string][]reply
	calls   []Request
}

func NewScripted() *ScriptedGenerator {
	return &ScriptedGenerator{replies: make(map[string][]reply)}
}

// Reply queues a successful answer for purpose.
func (s *ScriptedGenerator) Reply(purpose, text string) *ScriptedGenerator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[purpose] = append(s.replies[purpose], reply{text: text})
	return s
}

// Fail queues an error for purpose.
func (s *ScriptedGenerator) Fail(purpose string, err error) *ScriptedGenerator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[purpose] = append(s.replies[purpose], reply{err: err})
	return s
}

func (s *ScriptedGenerator) Name() string { return "scripted" }

func (s *ScriptedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	queue := s.replies[req.Purpose]
	if len(queue) == 0 {
		return "", ErrUnavailable
	}
	next := queue[0]
	s.replies[req.Purpose] = queue[1:]
	return next.text, next.err
}

// Calls returns the requests seen so far.
func (s *ScriptedGenerator) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}

// CallsFor counts requests with the given purpose.
func (s *ScriptedGenerator) CallsFor(purpose string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Purpose == purpose {
			n++
		}
	}
	return n
}
