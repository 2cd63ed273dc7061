package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

// SimulatedSender logs messages instead of delivering them. It is the
// default sink for environments without live credentials.
type SimulatedSender struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []string
}

// NewSimulatedSender builds a simulated sender.
func NewSimulatedSender(logger *zap.Logger) *SimulatedSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedSender{logger: logger}
}

// Send records and logs the message without touching the network.
func (s *SimulatedSender) Send(_ context.Context, _ models.NotificationSettings, to, body string) error {
	s.mu.Lock()
	s.sent = append(s.sent, body)
	s.mu.Unlock()

	s.logger.Sugar().Infow("simulated whatsapp message", "to", to, "body", body)
	return nil
}

// Sent returns a copy of the delivered messages, for tests.
func (s *SimulatedSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}
