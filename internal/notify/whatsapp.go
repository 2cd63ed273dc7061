package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

// WhatsAppSender delivers messages through the WhatsApp Cloud API. The phone
// number id and access token come from the settings store per attempt, so an
// admin can rotate credentials without a restart.
type WhatsAppSender struct {
	BaseURL string
	HTTP    *http.Client
}

// NewWhatsAppSender builds a sender against the given API base URL.
func NewWhatsAppSender(baseURL string, timeout time.Duration) *WhatsAppSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppSender{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Send posts one text message to the destination phone number.
func (s *WhatsAppSender) Send(ctx context.Context, settings models.NotificationSettings, to, body string) error {
	if !settings.Configured() {
		return fmt.Errorf("whatsapp credentials not configured")
	}
	if to == "" {
		return fmt.Errorf("destination phone required")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})
	if err != nil {
		return fmt.Errorf("encode whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.BaseURL, settings.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+settings.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp error %s: %s", resp.Status, string(respBody))
	}
	return nil
}
