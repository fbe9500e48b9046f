package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Client sends messages through the Telegram Bot API. It is treated as
// an untrusted remote: any non-2xx reply or transport error surfaces as
// an error and the caller decides what to roll back.
type Client struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewClient(botToken, chatID string) (*Client, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("telegram bot token required")
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("telegram chat id required")
	}
	return &Client{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultAPIBaseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NewClientWithBaseURL is for tests pointing at a stub server.
func NewClientWithBaseURL(botToken, chatID, baseURL string) (*Client, error) {
	c, err := NewClient(botToken, chatID)
	if err != nil {
		return nil, err
	}
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c, nil
}

func (c *Client) SendMessage(ctx context.Context, text string) error {
	if c == nil {
		return fmt.Errorf("telegram client not configured")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("telegram message text required")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID: c.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	rawBody, _ := io.ReadAll(resp.Body)
	if err := errorFromResponse(rawBody); err != nil {
		return err
	}
	return fmt.Errorf("telegram send failed: status %d: %s", resp.StatusCode, string(rawBody))
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiErrorResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func errorFromResponse(body []byte) error {
	if len(body) == 0 {
		return fmt.Errorf("telegram send failed: empty response")
	}
	var resp apiErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("telegram send failed: %s", string(body))
	}
	if resp.Description == "" {
		return nil
	}
	return fmt.Errorf("telegram send failed: %d %s", resp.ErrorCode, resp.Description)
}
