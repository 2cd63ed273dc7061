package notify

import (
	"context"
	"fmt"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

// Event types carried in attendance notifications.
const (
	EventCheckIn  = "Check-in"
	EventCheckOut = "Check-out"
)

// Sender delivers one formatted attendance message.
type Sender interface {
	Send(ctx context.Context, settings models.NotificationSettings, to, body string) error
}

// FormatMessage renders the attendance message body.
func FormatMessage(name, eventType, timeStr string) string {
	return fmt.Sprintf("Hi %s, Attendance Marked: %s at %s.", name, eventType, timeStr)
}
