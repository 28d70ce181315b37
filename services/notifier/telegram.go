package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"youngcheol/moneyhunter/internal/classify"
	"youngcheol/moneyhunter/pkg/errors"
	"youngcheol/moneyhunter/services/store"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends deal notifications through the Telegram Bot API
type TelegramNotifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewTelegramNotifier creates a Telegram notifier
func NewTelegramNotifier(token, chatID string, timeout time.Duration) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPIBase,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Notify delivers a deal message and returns nil only on confirmed delivery
func (t *TelegramNotifier) Notify(ctx context.Context, deal store.Deal, tags []classify.Tag, siteLabel string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  FormatDealMessage(deal, tags, siteLabel),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return errors.NewNotify(deal.SiteName, "failed to encode message", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.NewNotify(deal.SiteName, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.NewNotify(deal.SiteName, "telegram request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return errors.NewNotify(deal.SiteName, "failed to read telegram response", err)
	}

	// Error responses still carry a JSON body with the failure reason
	var result sendMessageResponse
	_ = json.Unmarshal(body, &result)
	if resp.StatusCode != http.StatusOK || !result.OK {
		return errors.NewNotify(deal.SiteName,
			fmt.Sprintf("telegram delivery failed: HTTP %d %s", resp.StatusCode, result.Description), nil)
	}

	return nil
}
