package models

// Setting is a single key-value configuration row.
type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

// Settings keys for the WhatsApp notification channel.
const (
	SettingWhatsAppPhoneID = "whatsapp_phone_id"
	SettingWhatsAppToken   = "whatsapp_token"
)

// NotificationSettings groups the WhatsApp Cloud API credentials.
type NotificationSettings struct {
	PhoneID string `json:"phone_id"`
	Token   string `json:"token"`
}

// Configured reports whether both credentials are present.
func (s NotificationSettings) Configured() bool {
	return s.PhoneID != "" && s.Token != ""
}
