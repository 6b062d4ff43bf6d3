// Package telegram talks to the Telegram Bot API: it saves prepared inline
// messages for the share-handle provider and sends relayed media to a chat
// for the CLI's native-share fallback.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/negroni/relay/internal/domain"
)

// maxPhotoBytes is the Bot API ceiling for sendPhoto; larger images go out as documents.
const maxPhotoBytes = 10 << 20

// ErrRejected wraps errors the Bot API answered with ok=false.
var ErrRejected = errors.New("telegram rejected request")

// Client wraps a bot account.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// New authenticates the bot token (getMe). endpoint uses the
// tgbotapi.APIEndpoint format; empty means the public Bot API.
func New(token, endpoint string, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	log = log.With(slog.String("adapter", "telegram"))
	if err := tgbotapi.SetLogger(&slogBotLogger{log: log}); err != nil {
		return nil, fmt.Errorf("set telegram logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	log.Info("bot authorized", slog.String("username", bot.Self.UserName))
	return &Client{bot: bot, logger: log}, nil
}

// PrepareRequest describes the media a prepared inline message should carry.
type PrepareRequest struct {
	UserID   int64
	MediaURL string
	Asset    domain.Asset
}

type preparedInlineMessage struct {
	ID             string `json:"id"`
	ExpirationDate int64  `json:"expiration_date"`
}

// SavePreparedInlineMessage stores an inline result the Mini App can share
// through WebApp.shareMessage and returns its handle.
func (c *Client) SavePreparedInlineMessage(ctx context.Context, req PrepareRequest) (domain.Handle, error) {
	if err := ctx.Err(); err != nil {
		return domain.Handle{}, err
	}

	params := tgbotapi.Params{}
	params.AddNonZero64("user_id", req.UserID)
	if err := params.AddInterface("result", inlineResult(req)); err != nil {
		return domain.Handle{}, fmt.Errorf("encode inline result: %w", err)
	}
	params.AddBool("allow_user_chats", true)
	params.AddBool("allow_bot_chats", true)
	params.AddBool("allow_group_chats", true)
	params.AddBool("allow_channel_chats", true)

	resp, err := c.bot.MakeRequest("savePreparedInlineMessage", params)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return domain.Handle{}, fmt.Errorf("%w: %s", ErrRejected, apiErr.Message)
		}
		return domain.Handle{}, fmt.Errorf("save prepared inline message: %w", err)
	}

	var msg preparedInlineMessage
	if err := json.Unmarshal(resp.Result, &msg); err != nil {
		return domain.Handle{}, fmt.Errorf("decode prepared inline message: %w", err)
	}
	if msg.ID == "" {
		return domain.Handle{}, fmt.Errorf("decode prepared inline message: empty id")
	}

	h := domain.Handle{ID: msg.ID}
	if msg.ExpirationDate > 0 {
		h.ExpiresAt = time.Unix(msg.ExpirationDate, 0)
	}
	c.logger.Info("prepared inline message saved",
		slog.Int64("user_id", req.UserID),
		slog.String("id", h.ID),
		slog.Int64("expiration_date", msg.ExpirationDate),
	)
	return h, nil
}

func inlineResult(req PrepareRequest) any {
	id := uuid.NewString()
	if req.Asset.IsImage() {
		photo := tgbotapi.NewInlineQueryResultPhotoWithThumb(id, req.MediaURL, req.MediaURL)
		photo.MimeType = req.Asset.ContentType
		return photo
	}
	title := req.Asset.Name
	if title == "" {
		title = domain.DefaultAssetName
	}
	return tgbotapi.NewInlineQueryResultDocument(id, req.MediaURL, title, req.Asset.ContentType)
}

// ChatSharer sends relayed media straight into one chat. It is the
// native-share fallback when the host platform cannot share prepared messages.
type ChatSharer struct {
	client *Client
	chatID int64
}

// NewChatSharer targets chatID; a zero chatID disables sharing.
func NewChatSharer(client *Client, chatID int64) *ChatSharer {
	return &ChatSharer{client: client, chatID: chatID}
}

// CanShare reports whether asset can be delivered to the configured chat.
func (s *ChatSharer) CanShare(asset domain.Asset) bool {
	return s != nil && s.client != nil && s.chatID != 0 && len(asset.Data) > 0
}

// Share uploads asset to the chat as a photo, or as a document when it is
// not an image or exceeds the photo ceiling.
func (s *ChatSharer) Share(ctx context.Context, asset domain.Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := asset.Name
	if name == "" {
		name = domain.DefaultAssetName
	}
	file := tgbotapi.FileBytes{Name: name, Bytes: asset.Data}

	var msg tgbotapi.Chattable
	if asset.IsImage() && len(asset.Data) <= maxPhotoBytes {
		msg = tgbotapi.NewPhoto(s.chatID, file)
	} else {
		msg = tgbotapi.NewDocument(s.chatID, file)
	}
	if _, err := s.client.bot.Send(msg); err != nil {
		s.client.logger.Error("send media failed", slog.Int64("chat_id", s.chatID), slog.Any("error", err))
		return fmt.Errorf("send media: %w", err)
	}
	return nil
}
