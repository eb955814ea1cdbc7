package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type discordPayload struct {
	Content string `json:"content"`
}

func (d *Discord) Name() string {
	return "discord"
}

// Send posts the message to the configured webhook. Discord answers 204 on
// success; any 2xx is accepted.
func (d *Discord) Send(subject, body string) error {
	payload, err := json.Marshal(discordPayload{Content: subject + "\n" + body})
	if err != nil {
		return err
	}

	client := http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequest(http.MethodPost, d.WebhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification via Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send notification via Discord webhook: %d", resp.StatusCode)
	}

	return nil
}
