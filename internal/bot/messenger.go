package bot

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"github.com/tbourn/go-keyword-bot/internal/domain"
)

// Messenger implements the services.Messenger port over a telebot instance.
// The context arguments are accepted for interface symmetry; telebot manages
// its own request deadlines.
type Messenger struct {
	tb *tele.Bot
}

// NewMessenger wraps a telebot instance.
func NewMessenger(tb *tele.Bot) *Messenger { return &Messenger{tb: tb} }

func sendOpts(buttons []domain.ButtonLink, protect bool) *tele.SendOptions {
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		Protected:             protect,
	}
	if len(buttons) > 0 {
		m := &tele.ReplyMarkup{}
		row := make([]tele.Btn, 0, len(buttons))
		for _, b := range buttons {
			row = append(row, m.URL(b.Label, b.URL))
		}
		m.Inline(m.Row(row...))
		opts.ReplyMarkup = m
	}
	return opts
}

func ref(msg *tele.Message) domain.MessageRef {
	return domain.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}

// SendText sends an HTML text message.
func (m *Messenger) SendText(_ context.Context, chatID int64, html string, buttons []domain.ButtonLink, protect bool) (domain.MessageRef, error) {
	msg, err := m.tb.Send(tele.ChatID(chatID), html, sendOpts(buttons, protect))
	if err != nil {
		return domain.MessageRef{}, err
	}
	return ref(msg), nil
}

// SendPhoto sends a stored photo with an HTML caption.
func (m *Messenger) SendPhoto(_ context.Context, chatID int64, fileID, caption string, buttons []domain.ButtonLink, protect bool) (domain.MessageRef, error) {
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	msg, err := m.tb.Send(tele.ChatID(chatID), photo, sendOpts(buttons, protect))
	if err != nil {
		return domain.MessageRef{}, err
	}
	return ref(msg), nil
}

// SendVideo sends a stored video, optionally with an HTML caption.
func (m *Messenger) SendVideo(_ context.Context, chatID int64, fileID, caption string, buttons []domain.ButtonLink, protect bool) (domain.MessageRef, error) {
	video := &tele.Video{File: tele.File{FileID: fileID}, Caption: caption}
	msg, err := m.tb.Send(tele.ChatID(chatID), video, sendOpts(buttons, protect))
	if err != nil {
		return domain.MessageRef{}, err
	}
	return ref(msg), nil
}

// DeleteMessage removes a previously sent message.
func (m *Messenger) DeleteMessage(_ context.Context, r domain.MessageRef) error {
	return m.tb.Delete(tele.StoredMessage{
		MessageID: strconv.Itoa(r.MessageID),
		ChatID:    r.ChatID,
	})
}

// PinMessage pins a previously sent message without notification.
func (m *Messenger) PinMessage(_ context.Context, r domain.MessageRef) error {
	return m.tb.Pin(tele.StoredMessage{
		MessageID: strconv.Itoa(r.MessageID),
		ChatID:    r.ChatID,
	}, tele.Silent)
}
