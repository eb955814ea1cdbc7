package notifications

// Channel is a single notification transport. The core never depends on
// channel-specific semantics beyond Send.
type Channel interface {
	// Name identifies the channel in logs.
	Name() string
	// Send delivers one message. A non-nil error means the message was not
	// delivered on this channel; it never affects other channels or the run.
	Send(subject, body string) error
}

// Discord delivers messages to a Discord webhook.
type Discord struct {
	WebhookURL string
}

// Telegram delivers messages through the Telegram bot API.
type Telegram struct {
	BotToken string
	ChatID   string

	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

// Email delivers messages over authenticated SMTP. The original setup targets
// Gmail and sends to the account's own address.
type Email struct {
	Address  string
	Password string
	Host     string
	Port     int
}
