package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
)

// Callback data values and prefixes carried by inline buttons.
const (
	actionShop = "SHOP"
	actionHelp = "HELP"

	prefixCategory = "CAT_"
	prefixProduct  = "PROD_"
	prefixOrder    = "ORDER_"
)

const (
	backLabel        = "⬅️ Back"
	backToShopLabel  = "⬅️ Back to Shop"
	sharePhoneButton = "📞 Share phone number"
)

var categoryLabels = map[string]string{
	"coffee":      "☕ Coffee",
	"accessories": "🎁 Accessories",
	"other":       "🧁 Other",
}

func mainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛍️ Shop", actionShop)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", actionHelp)),
	)
}

func categoriesMenu() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		label, ok := categoryLabels[c]
		if !ok {
			label = c
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, prefixCategory+c),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productListMenu(products []domain.Product) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products))
	for _, p := range products {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s - %s", p.Name, p.Price.String()), prefixProduct+p.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productMenu(productID, back string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Order", prefixOrder+productID)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(back, actionShop)),
	)
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(sharePhoneButton)),
	)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}
