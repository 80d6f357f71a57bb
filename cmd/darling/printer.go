package main

import (
	"fmt"
	"io"
	"sync"

	"darling/internal/domain"
)

// chatPrinter writes transcript entries to a terminal. It is called from
// the event loop, so writes are serialized with a mutex.
type chatPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	echoUser bool
}

func newChatPrinter(out io.Writer, echoUser bool) *chatPrinter {
	return &chatPrinter{out: out, echoUser: echoUser}
}

func (p *chatPrinter) Post(message domain.ChatMessage) {
	if message.Role == domain.RoleUser && !p.echoUser {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, renderMessage(message))
}

// Println writes a line outside of the transcript.
func (p *chatPrinter) Println(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}
