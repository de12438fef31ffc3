package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

const (
	DefaultBaseURL = "https://api.telegram.org"

	captionLimit    = 1024
	inviteNameLimit = 32
	companionLimit  = 10000
)

// APIError é a recusa devolvida pela Bot API (ok=false).
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client fala com a Bot API. O token vem em cada chamada porque um processo atende vários bots.
type Client struct {
	baseURL string
	http    *http.Client

	// mídia enviada antes do texto de uma legenda longa, pela chave do texto
	mu         sync.Mutex
	companions map[string]int64
	order      []string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 15 * time.Second},
		companions: map[string]int64{},
	}
}

func (c *Client) SendText(ctx context.Context, token, chatID, text string, buttons []entity.Button) (int64, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if kb := keyboard(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	var msg sentMessage
	if err := c.call(ctx, token, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendMedia escolhe sendVideo ou sendPhoto pela extensão. Legenda acima do limite vai numa
// mensagem de texto separada, que leva os botões; o id devolvido é o do texto e apagá-lo
// apaga a mídia junto.
func (c *Client) SendMedia(ctx context.Context, token, chatID, mediaURL, caption string, buttons []entity.Button) (int64, error) {
	method, field := "sendPhoto", "photo"
	switch strings.ToLower(path.Ext(strings.SplitN(mediaURL, "?", 2)[0])) {
	case ".mp4", ".mov", ".webm":
		method, field = "sendVideo", "video"
	case ".gif":
		method, field = "sendAnimation", "animation"
	}

	longCaption := utf8.RuneCountInString(caption) > captionLimit
	payload := map[string]any{
		"chat_id": chatID,
		field:     mediaURL,
	}
	if !longCaption {
		payload["caption"] = caption
		payload["parse_mode"] = "HTML"
		if kb := keyboard(buttons); kb != nil {
			payload["reply_markup"] = kb
		}
	}

	var msg sentMessage
	if err := c.call(ctx, token, method, payload, &msg); err != nil {
		return 0, err
	}
	if longCaption {
		textID, err := c.SendText(ctx, token, chatID, caption, buttons)
		if err != nil {
			return 0, err
		}
		c.link(token, chatID, textID, msg.MessageID)
		return textID, nil
	}
	return msg.MessageID, nil
}

func (c *Client) DeleteMessage(ctx context.Context, token, chatID string, messageID int64) error {
	err := c.deleteOne(ctx, token, chatID, messageID)
	if mediaID, ok := c.unlink(token, chatID, messageID); ok {
		if mErr := c.deleteOne(ctx, token, chatID, mediaID); err == nil {
			err = mErr
		}
	}
	return err
}

func (c *Client) deleteOne(ctx context.Context, token, chatID string, messageID int64) error {
	return c.call(ctx, token, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

func companionKey(token, chatID string, messageID int64) string {
	return fmt.Sprintf("%s|%s|%d", token, chatID, messageID)
}

func (c *Client) link(token, chatID string, textID, mediaID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.companions == nil {
		c.companions = map[string]int64{}
	}
	key := companionKey(token, chatID, textID)
	c.companions[key] = mediaID
	c.order = append(c.order, key)
	for len(c.order) > companionLimit {
		delete(c.companions, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *Client) unlink(token, chatID string, textID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := companionKey(token, chatID, textID)
	mediaID, ok := c.companions[key]
	if ok {
		delete(c.companions, key)
	}
	return mediaID, ok
}

// SoftKick bane e desbane em seguida: o membro sai do canal mas pode voltar com novo convite.
func (c *Client) SoftKick(ctx context.Context, token, chatID, userID string) error {
	if err := c.call(ctx, token, "banChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}, nil); err != nil {
		return err
	}
	return c.Unban(ctx, token, chatID, userID)
}

func (c *Client) Unban(ctx context.Context, token, chatID, userID string) error {
	return c.call(ctx, token, "unbanChatMember", map[string]any{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": true,
	}, nil)
}

// CreateInviteLink cria um convite de uso único.
func (c *Client) CreateInviteLink(ctx context.Context, token, chatID, name string) (string, error) {
	if utf8.RuneCountInString(name) > inviteNameLimit {
		name = string([]rune(name)[:inviteNameLimit])
	}
	var link inviteLink
	err := c.call(ctx, token, "createChatInviteLink", map[string]any{
		"chat_id":      chatID,
		"member_limit": 1,
		"name":         name,
	}, &link)
	if err != nil {
		return "", err
	}
	return link.InviteLink, nil
}

func (c *Client) AnswerCallback(ctx context.Context, token, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, token, "answerCallbackQuery", payload, nil)
}

// SetWebhook registra a URL de webhook do bot, pedindo também os eventos de membros do canal.
func (c *Client) SetWebhook(ctx context.Context, token, url string) error {
	return c.call(ctx, token, "setWebhook", map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "callback_query", "chat_member"},
	}, nil)
}

func (c *Client) call(ctx context.Context, token, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao serializar %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro na conexão com telegram (%s): %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("erro ao ler resposta do telegram (%s, status %d): %w", method, resp.StatusCode, err)
	}
	if !apiResp.OK {
		return &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
	}
	if out != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("erro ao ler resultado de %s: %w", method, err)
		}
	}
	return nil
}

func keyboard(buttons []entity.Button) *replyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]inlineButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []inlineButton{{Text: b.Text, CallbackData: b.CallbackData}})
	}
	return &replyMarkup{InlineKeyboard: rows}
}
