package email

import (
	"sync"

	"sparkreview_backend/internal/logger"
)

// MockProvider records sent mail instead of delivering it. Used in
// development environments and in tests.
type MockProvider struct {
	mu   sync.Mutex
	sent []SentMail
}

type SentMail struct {
	To      string
	Subject string
	Body    string
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Send(to, subject, body string) error {
	p.mu.Lock()
	p.sent = append(p.sent, SentMail{To: to, Subject: subject, Body: body})
	p.mu.Unlock()

	logger.Debug("mock email sent", "to", to, "subject", subject)
	return nil
}

// Sent returns a copy of everything sent so far.
func (p *MockProvider) Sent() []SentMail {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SentMail, len(p.sent))
	copy(out, p.sent)
	return out
}

func (p *MockProvider) Close() error {
	return nil
}
