package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	tele "gopkg.in/telebot.v3"

	"github.com/tbourn/go-keyword-bot/internal/config"
	"github.com/tbourn/go-keyword-bot/internal/domain"
	"github.com/tbourn/go-keyword-bot/internal/metrics"
	"github.com/tbourn/go-keyword-bot/internal/repo"
	"github.com/tbourn/go-keyword-bot/internal/services"
	"github.com/tbourn/go-keyword-bot/internal/sysutil"
)

const cbCheckSub = "check_sub"

// usage strings for admin commands with missing arguments.
const (
	usageAttach    = "Usage: /attach <keyword> [text] (reply to text/photo/video to attach media)"
	usageDelete    = "Usage: /delete <keyword>"
	usageBroadcast = "Usage: /broadcast <keyword> | /broadcast -pin (reply to a video)"
	usageList      = "Usage: /list [mJan|w]"
)

// Deliverer is the delivery-engine slice the handlers need.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, bundle *domain.ContentBundle, opts services.DeliverOptions) []domain.MessageRef
}

// Broadcaster is the broadcast-service slice the handlers need.
type Broadcaster interface {
	Broadcast(ctx context.Context, keyword string, pin bool) (sent, skipped int, err error)
}

// Bot owns the Telegram event stream and dispatches it onto the services.
type Bot struct {
	tb  *tele.Bot
	cfg config.Config
	log zerolog.Logger

	keywords   *services.KeywordService
	delivery   Deliverer
	broadcast  Broadcaster
	recipients *repo.RecipientRepo
	accessLogs *repo.AccessLogRepo
	deleter    services.Deleter
	msgr       *Messenger
	cooldown   *Cooldown

	forceSub *tele.Chat // nil when the gate is disabled
}

// New opens the Telegram connection, resolves the optional force-subscribe
// channel, and registers all handlers. The services are attached afterwards
// with Bind; handlers only fire once Start is called, so the two-step
// construction is safe and breaks the messenger/scheduler/delivery cycle.
func New(cfg config.Config, log zerolog.Logger) (*Bot, error) {
	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("handler error")
		},
	})
	if err != nil {
		return nil, err
	}

	b := &Bot{
		tb:       tb,
		cfg:      cfg,
		log:      log,
		msgr:     NewMessenger(tb),
		cooldown: NewCooldown(cfg.Cooldown),
	}
	if err := b.resolveForceSub(); err != nil {
		return nil, err
	}
	b.registerHandlers()
	return b, nil
}

// Bind attaches the application services. Must be called before Start.
func (b *Bot) Bind(
	keywords *services.KeywordService,
	delivery Deliverer,
	broadcast Broadcaster,
	recipients *repo.RecipientRepo,
	accessLogs *repo.AccessLogRepo,
	deleter services.Deleter,
) {
	b.keywords = keywords
	b.delivery = delivery
	b.broadcast = broadcast
	b.recipients = recipients
	b.accessLogs = accessLogs
	b.deleter = deleter
}

// Messenger exposes the platform adapter built on this bot's connection.
func (b *Bot) Messenger() *Messenger { return b.msgr }

// Start begins long polling. It blocks until Stop is called.
func (b *Bot) Start() { b.tb.Start() }

// Stop terminates the polling loop.
func (b *Bot) Stop() { b.tb.Stop() }

func (b *Bot) resolveForceSub() error {
	ch := b.cfg.ForceSubChannel
	if ch == "" {
		return nil
	}
	if strings.HasPrefix(ch, "@") {
		chat, err := b.tb.ChatByUsername(ch)
		if err != nil {
			return fmt.Errorf("force-sub channel %s: %w", ch, err)
		}
		b.forceSub = chat
		return nil
	}
	id, err := strconv.ParseInt(ch, 10, 64)
	if err != nil {
		return fmt.Errorf("force-sub channel %q: not a username or chat id", ch)
	}
	b.forceSub = &tele.Chat{ID: id}
	return nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/attach", b.handleAttach)
	b.tb.Handle("/delete", b.handleDelete)
	b.tb.Handle("/broadcast", b.handleBroadcast)
	b.tb.Handle("/list", b.handleList)
	b.tb.Handle("/logs", b.handleLogs)
	b.tb.Handle(tele.OnText, b.handleText)
	b.tb.Handle(&tele.Btn{Unique: cbCheckSub}, b.handleCheckSub)
}

func (b *Bot) isAdmin(c tele.Context) bool {
	return c.Sender() != nil && b.cfg.IsAdmin(c.Sender().ID)
}

// --- onboarding ---

func (b *Bot) handleStart(c tele.Context) error {
	if payload := strings.TrimSpace(c.Message().Payload); payload != "" {
		// Deep link: https://t.me/<bot>?start=<keyword>
		return b.trigger(c, payload)
	}

	welcome := "<b>Welcome!</b>\n\n" +
		"Send me a keyword and I will fetch the matching content for you.\n" +
		"Links are temporary, grab them before they expire."
	ref, err := b.msgr.SendText(context.Background(), c.Chat().ID, welcome,
		[]domain.ButtonLink{{Label: b.cfg.InfoButtonLabel, URL: b.cfg.InfoButtonURL}}, false)
	if err != nil {
		return err
	}
	b.touchRecipient(c)
	// Onboarding messages expire faster than content deliveries.
	b.deleter.ScheduleDelete(ref, b.cfg.OnboardDeleteAfter, primitive.NilObjectID)
	return nil
}

// --- keyword trigger path ---

func (b *Bot) handleText(c tele.Context) error {
	if c.Message() == nil || c.Sender() == nil {
		return nil
	}
	return b.trigger(c, c.Message().Text)
}

// trigger runs the ordinary resolution path: cooldown, force-sub gate,
// contact upsert, resolve, deliver. Unknown keywords stay silent so plain
// chat text never produces an error reply.
func (b *Bot) trigger(c tele.Context, raw string) error {
	if repo.Normalize(raw) == "" {
		return nil
	}
	chatID := c.Chat().ID

	if !b.isAdmin(c) && !b.cooldown.Allow(chatID) {
		metrics.CooldownDrops.Inc()
		return nil
	}
	if !b.subscribed(c.Sender().ID) {
		return b.sendJoinGate(c)
	}

	ctx := context.Background()
	b.touchRecipient(c)

	bundle, err := b.keywords.Resolve(ctx, raw)
	if err != nil {
		b.log.Error().Err(err).Str("text", raw).Msg("resolve failed")
		return nil
	}
	if bundle == nil {
		return nil
	}

	b.delivery.Deliver(ctx, chatID, bundle, services.DeliverOptions{
		Requester: &services.Requester{
			UserID:    c.Sender().ID,
			Username:  c.Sender().Username,
			FirstName: c.Sender().FirstName,
		},
	})
	return nil
}

func (b *Bot) touchRecipient(c tele.Context) {
	err := b.recipients.UpsertContact(context.Background(),
		c.Chat().ID, c.Sender().FirstName, c.Sender().Username, time.Now().UTC())
	if err != nil {
		b.log.Warn().Err(err).Int64("chat", c.Chat().ID).Msg("recipient upsert failed")
	}
}

// --- force-subscribe gate ---

func (b *Bot) subscribed(userID int64) bool {
	if b.forceSub == nil {
		return true
	}
	member, err := b.tb.ChatMemberOf(b.forceSub, &tele.User{ID: userID})
	if err != nil {
		// Fail open: a gate outage must not block the bot.
		b.log.Warn().Err(err).Int64("user", userID).Msg("membership check failed")
		return true
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true
	default:
		return false
	}
}

func (b *Bot) sendJoinGate(c tele.Context) error {
	m := &tele.ReplyMarkup{}
	var rows []tele.Row
	if b.forceSub.Username != "" {
		rows = append(rows, m.Row(m.URL("Join Channel", "https://t.me/"+strings.TrimPrefix(b.forceSub.Username, "@"))))
	}
	rows = append(rows, m.Row(m.Data("I have joined", cbCheckSub)))
	m.Inline(rows...)
	return c.Send("You need to join our channel before using the bot.", m)
}

func (b *Bot) handleCheckSub(c tele.Context) error {
	if !b.subscribed(c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "You have not joined yet."})
	}
	_ = c.Delete()
	return c.Respond(&tele.CallbackResponse{Text: "Verified! Send your keyword again."})
}

// --- admin commands ---

func (b *Bot) handleAttach(c tele.Context) error {
	if !b.isAdmin(c) {
		return nil
	}
	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		return c.Send(usageAttach)
	}

	reply := c.Message().ReplyTo
	keyword, inline := payload, ""
	if reply == nil {
		// Without a reply the first token is the keyword and the remainder
		// is the content text; with a reply the whole payload is the keyword.
		parts := strings.SplitN(payload, " ", 2)
		keyword = parts[0]
		if len(parts) == 2 {
			inline = strings.TrimSpace(parts[1])
		}
	}

	in := services.AttachInput{}
	if inline != "" {
		in.Text = &inline
	}
	if reply != nil {
		if text := sysutil.FirstNonEmpty(reply.Text, reply.Caption); in.Text == nil && text != "" {
			in.Text = &text
		}
		if reply.Photo != nil {
			id := reply.Photo.FileID
			in.PosterID = &id
		}
		if reply.Video != nil {
			id := reply.Video.FileID
			in.SampleID = &id
		}
	}

	key, err := b.keywords.Attach(context.Background(), keyword, in)
	switch {
	case err == services.ErrEmptyKeyword, err == services.ErrNoContent:
		return c.Send(usageAttach)
	case err != nil:
		b.log.Error().Err(err).Str("keyword", keyword).Msg("attach failed")
		return c.Send("Could not save the keyword, try again.")
	}
	return c.Send(fmt.Sprintf("Saved: %s", key))
}

func (b *Bot) handleDelete(c tele.Context) error {
	if !b.isAdmin(c) {
		return nil
	}
	keyword := strings.TrimSpace(c.Message().Payload)
	if keyword == "" {
		return c.Send(usageDelete)
	}
	existed, err := b.keywords.Delete(context.Background(), keyword)
	if err != nil {
		if err == services.ErrEmptyKeyword {
			return c.Send(usageDelete)
		}
		b.log.Error().Err(err).Str("keyword", keyword).Msg("delete failed")
		return c.Send("Could not delete the keyword, try again.")
	}
	if !existed {
		return c.Send("No such keyword.")
	}
	return c.Send("Deleted.")
}

func (b *Bot) handleBroadcast(c tele.Context) error {
	if !b.isAdmin(c) {
		return nil
	}
	keyword, pin := parseBroadcastArgs(c.Message().Payload)

	if keyword == "" {
		if !pin || c.Message().ReplyTo == nil || c.Message().ReplyTo.Video == nil {
			return c.Send(usageBroadcast)
		}
		return b.broadcastVideo(c, c.Message().ReplyTo.Video.FileID)
	}

	sent, skipped, err := b.broadcast.Broadcast(context.Background(), keyword, pin)
	if err != nil {
		if err == services.ErrEmptyKeyword {
			return c.Send("No such keyword.")
		}
		b.log.Error().Err(err).Str("keyword", keyword).Msg("broadcast failed")
		return c.Send("Broadcast failed, check the logs.")
	}
	return c.Send(fmt.Sprintf("Broadcast done: %d sent, %d already had it.", sent, skipped))
}

// parseBroadcastArgs splits the /broadcast payload into a keyword and the pin
// flag. Only a bare leading "-pin" token toggles pinning; a keyword that
// merely starts with "-pin" (say "-pinned") is passed through unchanged.
func parseBroadcastArgs(payload string) (keyword string, pin bool) {
	payload = strings.TrimSpace(payload)
	if payload == "-pin" {
		return "", true
	}
	if rest, ok := strings.CutPrefix(payload, "-pin "); ok {
		return strings.TrimSpace(rest), true
	}
	return payload, false
}

// broadcastVideo fans a replied-to video out to every recipient as pinned,
// permanent content. Per-recipient failures are logged and skipped.
func (b *Bot) broadcastVideo(c tele.Context, fileID string) error {
	ctx := context.Background()
	recipients, err := b.recipients.All(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("recipient list failed")
		return c.Send("Broadcast failed, check the logs.")
	}
	var sent int
	for _, r := range recipients {
		ref, err := b.msgr.SendVideo(ctx, r.ID, fileID, "", nil, true)
		if err != nil {
			b.log.Warn().Err(err).Int64("chat", r.ID).Msg("pinned broadcast send failed")
			continue
		}
		if err := b.msgr.PinMessage(ctx, ref); err != nil {
			b.log.Warn().Err(err).Int64("chat", r.ID).Msg("pin failed")
		}
		sent++
		metrics.BroadcastSends.Inc()
	}
	return c.Send(fmt.Sprintf("Pinned broadcast sent to %d recipients.", sent))
}

func (b *Bot) handleList(c tele.Context) error {
	if !b.isAdmin(c) {
		return nil
	}
	ctx := context.Background()
	arg := strings.TrimSpace(c.Message().Payload)

	switch {
	case arg == "":
		kws, err := b.keywords.List(ctx)
		if err != nil {
			b.log.Error().Err(err).Msg("keyword list failed")
			return c.Send("Could not list keywords.")
		}
		if len(kws) == 0 {
			return c.Send("No keywords stored.")
		}
		return c.Send("Stored keywords:\n\n" + strings.Join(kws, "\n"))

	case arg == "w":
		until := time.Now().UTC()
		return b.sendUsageReport(c, "last 7 days", until.AddDate(0, 0, -7), until)

	case strings.HasPrefix(arg, "m"):
		month, err := time.Parse("Jan", arg[1:])
		if err != nil {
			return c.Send(usageList)
		}
		now := time.Now().UTC()
		since := time.Date(now.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
		return b.sendUsageReport(c, arg[1:], since, since.AddDate(0, 1, 0))

	default:
		return c.Send(usageList)
	}
}

func (b *Bot) sendUsageReport(c tele.Context, label string, since, until time.Time) error {
	counts, err := b.accessLogs.CountByKeyword(context.Background(), since, until)
	if err != nil {
		b.log.Error().Err(err).Msg("usage report failed")
		return c.Send("Could not build the report.")
	}
	if len(counts) == 0 {
		return c.Send("No activity for " + label + ".")
	}
	return c.Send(formatUsageReport(label, counts))
}

// formatUsageReport renders keyword counts in stable alphabetical order.
func formatUsageReport(label string, counts map[string]int64) string {
	keywords := make([]string, 0, len(counts))
	for kw := range counts {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage (%s):\n\n", label)
	for _, kw := range keywords {
		fmt.Fprintf(&sb, "%s: %d\n", kw, counts[kw])
	}
	return sb.String()
}

func (b *Bot) handleLogs(c tele.Context) error {
	if !b.isAdmin(c) {
		return nil
	}
	n := int64(10)
	if arg := strings.TrimSpace(c.Message().Payload); arg != "" {
		if v, err := strconv.ParseInt(arg, 10, 64); err == nil && v > 0 {
			if v > 100 {
				v = 100
			}
			n = v
		}
	}
	entries, err := b.accessLogs.Recent(context.Background(), n)
	if err != nil {
		b.log.Error().Err(err).Msg("log fetch failed")
		return c.Send("Could not fetch logs.")
	}
	if len(entries) == 0 {
		return c.Send("No logs yet.")
	}
	var sb strings.Builder
	sb.WriteString("Recent access:\n\n")
	for _, e := range entries {
		who := sysutil.FirstNonEmpty(e.Username, e.FirstName, strconv.FormatInt(e.UserID, 10))
		fmt.Fprintf(&sb, "%s • %s • %s • deleted=%t\n",
			e.RequestedAt.Format("2006-01-02 15:04"), e.Keyword, who, e.Deleted)
	}
	return c.Send(sb.String())
}
