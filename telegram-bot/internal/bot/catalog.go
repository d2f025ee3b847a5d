package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tomoca-dev/Tomo-web/pkg/logger"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/repository"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64, payload string) {
	if productID, ok := domain.ParseDeepLink(payload); ok {

		product, err := b.catalog.GetActiveProduct(ctx, productID)
		if errors.Is(err, repository.ErrProductNotFound) {
			b.reply(ctx, chatID, msgDeepLinkNotFound, mainMenu())
			return
		}
		if err != nil {
			logger.FromContext(ctx).Error().Err(err).Str("product_id", productID).Msg("deep link lookup failed")
			b.reply(ctx, chatID, msgProductLoadFailed, mainMenu())
			return
		}
		b.sendProduct(ctx, chatID, product, backToShopLabel)
		return
	}

	b.reply(ctx, chatID, msgWelcome, mainMenu())
}

func (b *Bot) showCategory(ctx context.Context, chatID int64, category string) {
	products, err := b.catalog.ListActiveByCategory(ctx, category)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("category", category).Msg("load products failed")
		b.reply(ctx, chatID, msgProductsLoadFailed, nil)
		return
	}

	if len(products) == 0 {
		b.reply(ctx, chatID, msgNoProducts, categoriesMenu())
		return
	}

	b.reply(ctx, chatID, fmt.Sprintf(fmtProductsIn, category), productListMenu(products))
}

func (b *Bot) showProduct(ctx context.Context, chatID int64, productID string) {
	product, ok := b.lookupProduct(ctx, chatID, productID)
	if !ok {
		return
	}
	b.sendProduct(ctx, chatID, product, backLabel)
}

// lookupProduct replies on its own when the product cannot be shown.
func (b *Bot) lookupProduct(ctx context.Context, chatID int64, productID string) (*domain.Product, bool) {
	product, err := b.catalog.GetActiveProduct(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		b.reply(ctx, chatID, msgProductNotFound, categoriesMenu())
		return nil, false
	}
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("product_id", productID).Msg("load product failed")
		b.reply(ctx, chatID, msgProductLoadFailed, nil)
		return nil, false
	}
	return product, true
}

func (b *Bot) sendProduct(ctx context.Context, chatID int64, p *domain.Product, back string) {
	if img := p.Image(); img != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(img))
		photo.Caption = p.Name
		b.send(ctx, photo)
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(fmtProductDetail, p.Name, p.Price.String(), p.Details()))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = productMenu(p.ID, back)
	b.send(ctx, msg)
}
