// Package telegram wraps the Bot API calls the reconciliation engine
// needs: membership revocation, invite links and outbound messages.
// Raw API errors are classified into gateway kinds so callers never
// inspect Bot API strings themselves.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/evseev/channelgate/internal/config"
	"github.com/evseev/channelgate/internal/domain"
)

// Button is one inline keyboard button attached to a message.
type Button struct {
	Text         string
	CallbackData string
}

type Gateway struct {
	bot     *bot.Bot
	timeout time.Duration
}

func NewGateway(b *bot.Bot) *Gateway {
	return &Gateway{
		bot:     b,
		timeout: config.OutboundCallTimeout,
	}
}

// RevokeMembership removes a user from a channel without leaving them
// banned: ban, then immediately unban, so a future invite link still
// works. A user already absent from the channel counts as success, the
// desired end state holds.
func (g *Gateway) RevokeMembership(ctx context.Context, chatID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.bot.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("ban member: %w", err)
	}

	_, err = g.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       chatID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
	if err != nil {
		// The user is out of the channel but still banned; a later
		// re-purchase would fail to rejoin, so surface this loudly.
		slog.Error("unban after kick failed, user left banned",
			"chat_id", chatID, "user_id", userID, "error", err)
		return fmt.Errorf("unban member: %w", classify(err))
	}

	return nil
}

// CreateInviteLink makes a single-use invite link that expires at the
// given time.
func (g *Gateway) CreateInviteLink(ctx context.Context, chatID int64, name string, expireAt time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	link, err := g.bot.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:      chatID,
		Name:        name,
		ExpireDate:  int(expireAt.Unix()),
		MemberLimit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", classify(err))
	}
	return link.InviteLink, nil
}

// SendMessage delivers a text message with an optional inline keyboard.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string, buttons []Button) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb := inlineKeyboard(buttons); kb != nil {
		params.ReplyMarkup = kb
	}

	_, err := g.bot.SendMessage(ctx, params)
	if err != nil {
		// Fallback to plain text when HTML parsing is rejected.
		if errors.Is(err, bot.ErrorBadRequest) {
			params.ParseMode = ""
			_, err = g.bot.SendMessage(ctx, params)
		}
		if err != nil {
			return fmt.Errorf("send message: %w", classify(err))
		}
	}
	return nil
}

// SendMedia delivers a photo, video or document by file id with a
// caption. An unknown media type falls back to a plain text message.
func (g *Gateway) SendMedia(ctx context.Context, chatID int64, mediaType domain.MediaType, fileID, caption string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var err error
	switch mediaType {
	case domain.MediaTypePhoto:
		_, err = g.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    chatID,
			Photo:     &models.InputFileString{Data: fileID},
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
	case domain.MediaTypeVideo:
		_, err = g.bot.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:    chatID,
			Video:     &models.InputFileString{Data: fileID},
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
	case domain.MediaTypeDocument:
		_, err = g.bot.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:    chatID,
			Document:  &models.InputFileString{Data: fileID},
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
	default:
		return g.SendMessage(ctx, chatID, caption, nil)
	}

	if err != nil {
		return fmt.Errorf("send media: %w", classify(err))
	}
	return nil
}

func inlineKeyboard(buttons []Button) *models.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: b.Text, CallbackData: b.CallbackData},
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
