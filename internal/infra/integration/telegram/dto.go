package telegram

import (
	"encoding/json"
	"strconv"

	"github.com/xavierca1/ligue-funnel/internal/entity"
)

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

type inviteLink struct {
	InviteLink string `json:"invite_link"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

// Update é o corpo que o Telegram manda no webhook. Só os campos usados pelo funil.
type Update struct {
	UpdateID      int64              `json:"update_id"`
	Message       *Message           `json:"message,omitempty"`
	CallbackQuery *CallbackQuery     `json:"callback_query,omitempty"`
	ChatMember    *ChatMemberUpdated `json:"chat_member,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

func (u User) Entity() entity.User {
	return entity.User{
		ID:        strconv.FormatInt(u.ID, 10),
		FirstName: u.FirstName,
		Username:  u.Username,
		IsBot:     u.IsBot,
	}
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

func (c Chat) IDString() string {
	return strconv.FormatInt(c.ID, 10)
}

type Message struct {
	MessageID      int64  `json:"message_id"`
	From           *User  `json:"from,omitempty"`
	Chat           Chat   `json:"chat"`
	Text           string `json:"text"`
	NewChatMembers []User `json:"new_chat_members,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

type ChatMember struct {
	Status string `json:"status"`
	User   User   `json:"user"`
}

type ChatMemberUpdated struct {
	Chat          Chat       `json:"chat"`
	From          User       `json:"from"`
	OldChatMember ChatMember `json:"old_chat_member"`
	NewChatMember ChatMember `json:"new_chat_member"`
}

// Joined diz se a atualização é uma entrada no chat (de fora para membro).
func (c *ChatMemberUpdated) Joined() bool {
	was := c.OldChatMember.Status
	now := c.NewChatMember.Status
	outside := was == "left" || was == "kicked" || was == ""
	return outside && (now == "member" || now == "restricted")
}
