package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tomoca-dev/Tomo-web/pkg/logger"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/events"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/repository"
)

// placeOrder writes the order and its single item as two separate inserts.
// A failed item insert leaves the order row behind.
func (b *Bot) placeOrder(ctx context.Context, chatID int64, from *tgbotapi.User, productID string) {
	log := logger.FromContext(ctx)

	product, ok := b.lookupProduct(ctx, chatID, productID)
	if !ok {
		return
	}

	userID := userKey(from)
	order, err := b.orders.CreateOrder(ctx, userID)
	if err != nil {
		b.metrics.orderFailed("order")
		log.Error().Err(err).Str("telegram_user_id", userID).Msg("create order failed")
		b.reply(ctx, chatID, msgOrderFailed, nil)
		return
	}

	item := domain.OrderItem{
		OrderID:   order.ID,
		ProductID: product.ID,
		Qty:       1,
		Price:     product.Price,
	}
	if err := b.orders.AddOrderItem(ctx, item); err != nil {
		b.metrics.orderFailed("order_item")
		log.Error().Err(err).Str("order_id", order.ID).Msg("create order item failed")
		b.reply(ctx, chatID, msgOrderFailed, nil)
		return
	}

	b.metrics.orderCreated()
	log.Info().Str("order_id", order.ID).Str("product_id", product.ID).Msg("order created")

	b.reply(ctx, chatID, fmt.Sprintf(fmtOrderCreated, product.Name), contactKeyboard())

	b.notifyAdmin(ctx, order, userID, product)
	b.publishOrderCreated(ctx, order, product)
}

func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	order, ok := b.latestOrder(ctx, msg, true)
	if !ok {
		return
	}

	phone := strings.TrimSpace(msg.Contact.PhoneNumber)
	status := domain.OrderStatusConfirmed
	err := b.orders.UpdateOrder(ctx, order.ID, domain.OrderPatch{Phone: &phone, Status: &status})
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("order_id", order.ID).Msg("save phone failed")
		b.reply(ctx, msg.Chat.ID, msgPhoneSaveFailed, nil)
		return
	}

	b.reply(ctx, msg.Chat.ID, msgPhoneSaved, tgbotapi.NewRemoveKeyboard(true))
}

// handleAddress treats any plain text as the delivery address of the user's
// most recent order, whatever state that order is in.
func (b *Bot) handleAddress(ctx context.Context, msg *tgbotapi.Message) {
	order, ok := b.latestOrder(ctx, msg, false)
	if !ok {
		return
	}

	address := msg.Text
	if err := b.orders.UpdateOrder(ctx, order.ID, domain.OrderPatch{Address: &address}); err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("order_id", order.ID).Msg("save address failed")
		b.reply(ctx, msg.Chat.ID, msgAddressSaveFailed, nil)
		return
	}

	order.Address = &address
	if order.IsComplete() {
		b.metrics.orderCompleted()
		logger.FromContext(ctx).Info().Str("order_id", order.ID).Msg("order ready for delivery")
	}

	b.reply(ctx, msg.Chat.ID, msgAddressSaved, mainMenu())
}

// latestOrder resolves the order a follow-up message belongs to. With
// announceMissing the user is told when there is none; otherwise the message
// is dropped silently.
func (b *Bot) latestOrder(ctx context.Context, msg *tgbotapi.Message, announceMissing bool) (*domain.Order, bool) {
	order, err := b.orders.LatestOrderForUser(ctx, userKey(msg.From))
	if errors.Is(err, repository.ErrOrderNotFound) {
		if announceMissing {
			b.reply(ctx, msg.Chat.ID, msgNoActiveOrder, mainMenu())
		}
		return nil, false
	}
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("latest order lookup failed")
		b.reply(ctx, msg.Chat.ID, msgOrderLookupFailed, nil)
		return nil, false
	}
	return order, true
}

func (b *Bot) notifyAdmin(ctx context.Context, order *domain.Order, userID string, product *domain.Product) {
	if b.adminChat == "" {
		return
	}

	text := fmt.Sprintf(fmtAdminOrder, order.ID, userID, product.Name, product.Price.String())

	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(b.adminChat, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(b.adminChat, text)
	}

	if _, err := b.sender.Send(msg); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("admin notification failed")
	}
}

func (b *Bot) publishOrderCreated(ctx context.Context, order *domain.Order, product *domain.Product) {
	if b.events == nil {
		return
	}

	err := b.events.PublishOrderCreated(ctx, events.OrderCreated{
		OrderID:        order.ID,
		TelegramUserID: order.TelegramUserID,
		ProductID:      product.ID,
		ProductName:    product.Name,
		Qty:            1,
		Price:          product.Price,
		CreatedAt:      order.CreatedAt,
	})
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("publish order event failed")
	}
}
