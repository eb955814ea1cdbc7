package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

type telegramPayload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Send delivers the message via the bot API's sendMessage method.
func (t *Telegram) Send(subject, body string) error {
	base := t.BaseURL
	if base == "" {
		base = telegramAPIBase
	}

	payload, err := json.Marshal(telegramPayload{
		ChatID: t.ChatID,
		Text:   subject + "\n" + body,
	})
	if err != nil {
		return err
	}

	client := http.Client{
		Timeout: 30 * time.Second,
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification via Telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send notification via Telegram: %d", resp.StatusCode)
	}

	return nil
}
