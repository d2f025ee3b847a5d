// Package bot implements the Telegram ordering conversation. Each update is
// handled independently; the only state is the order rows in the store.
package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/tomoca-dev/Tomo-web/pkg/logger"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/events"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/repository"
)

// Sender is the subset of *tgbotapi.BotAPI used by the bot.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, evt events.OrderCreated) error
}

type Bot struct {
	sender    Sender
	catalog   repository.CatalogRepository
	orders    repository.OrderRepository
	events    EventPublisher
	metrics   *Metrics
	adminChat string
	log       zerolog.Logger
}

type Option func(*Bot)

// WithAdminChat enables order notifications to a chat id or @channel.
func WithAdminChat(chat string) Option {
	return func(b *Bot) { b.adminChat = strings.TrimSpace(chat) }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(b *Bot) { b.events = p }
}

func WithMetrics(m *Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

func WithLogger(log zerolog.Logger) Option {
	return func(b *Bot) { b.log = log }
}

func New(sender Sender, repo repository.Repository, opts ...Option) *Bot {
	b := &Bot{
		sender:  sender,
		catalog: repo,
		orders:  repo,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleUpdate processes one inbound update. Failures are reported to the
// user where possible and logged; nothing is returned to the transport.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := b.log.With().Int("update_id", update.UpdateID).Logger()
	ctx = log.WithContext(ctx)

	switch {
	case update.CallbackQuery != nil:
		b.metrics.update("callback")
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	default:
		b.metrics.update("ignored")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		b.metrics.update("ignored")
		return
	}

	if msg.Contact != nil {
		b.metrics.update("contact")
		b.handleContact(ctx, msg)
		return
	}

	if cmd, args, ok := parseCommand(msg.Text); ok {
		b.metrics.update("command")
		switch cmd {
		case "start":
			b.handleStart(ctx, msg.Chat.ID, args)
		case "shop":
			b.reply(ctx, msg.Chat.ID, msgChooseCategory, categoriesMenu())
		case "help":
			b.reply(ctx, msg.Chat.ID, msgHelpCommand, nil)
		}
		return
	}

	if msg.Text != "" {
		b.metrics.update("text")
		b.handleAddress(ctx, msg)
		return
	}
	b.metrics.update("ignored")
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("answer callback query failed")
	}

	chatID := callbackChatID(cq)
	if chatID == 0 {
		return
	}

	data := cq.Data
	switch {
	case data == actionShop:
		b.reply(ctx, chatID, msgChooseCategory, categoriesMenu())
	case data == actionHelp:
		b.reply(ctx, chatID, msgHelpAction, nil)
	case strings.HasPrefix(data, prefixCategory) && len(data) > len(prefixCategory):
		b.showCategory(ctx, chatID, strings.TrimPrefix(data, prefixCategory))
	case strings.HasPrefix(data, prefixProduct) && len(data) > len(prefixProduct):
		b.showProduct(ctx, chatID, strings.TrimPrefix(data, prefixProduct))
	case strings.HasPrefix(data, prefixOrder) && len(data) > len(prefixOrder) && cq.From != nil:
		b.placeOrder(ctx, chatID, cq.From, strings.TrimPrefix(data, prefixOrder))
	default:
		logger.FromContext(ctx).Debug().Str("data", data).Msg("unknown callback data")
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	b.send(ctx, msg)
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("telegram send failed")
	}
}

// parseCommand splits "/cmd@BotName args" into its lowercase command and
// trimmed arguments.
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func callbackChatID(cq *tgbotapi.CallbackQuery) int64 {
	if cq.Message != nil && cq.Message.Chat != nil {
		return cq.Message.Chat.ID
	}
	if cq.From != nil {
		return cq.From.ID
	}
	return 0
}

func userKey(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}
