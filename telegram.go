package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	maxMessageLen     = 4000
	maxPhotoCaption   = 1024
	maxGroupCaption   = 100
	maxMediaGroupSize = 10

	telegramAPIBase = "https://api.telegram.org"
)

// MediaItem is one element of a Telegram media group.
type MediaItem struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// Notifier delivers watch results to an external chat. All sends are
// best-effort: failures are logged, never propagated, and never retried.
type Notifier interface {
	SendText(text string)
	SendPhoto(photoURL, caption string) bool
	SendMediaGroup(items []MediaItem) bool
}

// NewNotifier returns a Telegram-backed notifier, or a no-op implementation
// when notifications are disabled.
func NewNotifier(cfg TelegramSettings) Notifier {
	if !cfg.Enabled {
		return noopNotifier{}
	}
	client := resty.New()
	// Albums upload slower than single messages; one deadline covers both.
	client.SetTimeout(45 * time.Second)
	return &telegramNotifier{
		client:  client,
		baseURL: telegramAPIBase,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
	}
}

type noopNotifier struct{}

func (noopNotifier) SendText(string) {}

func (noopNotifier) SendPhoto(string, string) bool { return true }

func (noopNotifier) SendMediaGroup([]MediaItem) bool { return true }

type telegramNotifier struct {
	client  *resty.Client
	baseURL string
	token   string
	chatID  string
}

func (n *telegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.baseURL, n.token, method)
}

// SendText posts one plain-text message. No-op when credentials or text are
// empty; non-200 responses are logged and swallowed.
func (n *telegramNotifier) SendText(text string) {
	if n.token == "" || n.chatID == "" || text == "" {
		return
	}
	resp, err := n.client.R().
		SetBody(map[string]interface{}{
			"chat_id":                  n.chatID,
			"text":                     text,
			"disable_web_page_preview": true,
		}).
		Post(n.endpoint("sendMessage"))
	if err != nil {
		log.Printf("TELEGRAM_SEND_ERROR: %v", err)
		return
	}
	if resp.StatusCode() != http.StatusOK {
		log.Printf("TELEGRAM_SEND_ERROR: %d %s", resp.StatusCode(), truncateRunes(resp.String(), 300))
	}
}

// SendPhoto posts one image message and reports success so the caller can
// fall back to text.
func (n *telegramNotifier) SendPhoto(photoURL, caption string) bool {
	if n.token == "" || n.chatID == "" || photoURL == "" {
		return false
	}
	resp, err := n.client.R().
		SetBody(map[string]interface{}{
			"chat_id": n.chatID,
			"photo":   photoURL,
			"caption": truncateRunes(caption, maxPhotoCaption),
		}).
		Post(n.endpoint("sendPhoto"))
	if err != nil {
		log.Printf("TELEGRAM_PHOTO_ERROR: %v", err)
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		log.Printf("TELEGRAM_PHOTO_ERROR: %d %s", resp.StatusCode(), truncateRunes(resp.String(), 300))
		return false
	}
	return true
}

// SendMediaGroup posts up to ten images as one album. Silent no-op when
// empty; reports success so the caller can fall back to text.
func (n *telegramNotifier) SendMediaGroup(items []MediaItem) bool {
	if len(items) == 0 {
		return true
	}
	if n.token == "" || n.chatID == "" {
		return false
	}
	if len(items) > maxMediaGroupSize {
		items = items[:maxMediaGroupSize]
	}
	for i := range items {
		items[i].Caption = truncateRunes(items[i].Caption, maxGroupCaption)
	}

	resp, err := n.client.R().
		SetBody(map[string]interface{}{
			"chat_id": n.chatID,
			"media":   items,
		}).
		Post(n.endpoint("sendMediaGroup"))
	if err != nil {
		log.Printf("TELEGRAM_MEDIA_ERROR: %v", err)
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		log.Printf("TELEGRAM_MEDIA_ERROR: %d %s", resp.StatusCode(), truncateRunes(resp.String(), 300))
		return false
	}
	return true
}

// splitMessage breaks text into chunks of at most limit bytes, preferring to
// break at the last newline within the limit.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for text != "" {
		if len(text) <= limit {
			chunks = append(chunks, text)
			break
		}
		chunk := text[:limit]
		if cut := strings.LastIndex(chunk, "\n"); cut > 0 {
			chunks = append(chunks, chunk[:cut])
			text = text[cut+1:]
		} else {
			chunks = append(chunks, chunk)
			text = text[limit:]
		}
	}
	return chunks
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
