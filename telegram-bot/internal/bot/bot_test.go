package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoca-dev/Tomo-web/pkg/metrics"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/events"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/repository"
)

const (
	customerID int64 = 555
	adminChat        = "-100200300"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	failSend func(c tgbotapi.Chattable) error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		if err := f.failSend(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// messages returns the text messages sent to chatID.
func (f *fakeSender) messages(chatID int64) []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) last(t *testing.T, chatID int64) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages(chatID)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (f *fakeSender) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.OrderCreated
	err    error
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, evt events.OrderCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

// failingRepo overrides selected repository calls with errors.
type failingRepo struct {
	*repository.MemoryRepository
	listErr   error
	getErr    error
	createErr error
	itemErr   error
	latestErr error
	updateErr error
}

func (r *failingRepo) ListActiveByCategory(ctx context.Context, c string) ([]domain.Product, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.MemoryRepository.ListActiveByCategory(ctx, c)
}

func (r *failingRepo) GetActiveProduct(ctx context.Context, id string) (*domain.Product, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.MemoryRepository.GetActiveProduct(ctx, id)
}

func (r *failingRepo) CreateOrder(ctx context.Context, userID string) (*domain.Order, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.MemoryRepository.CreateOrder(ctx, userID)
}

func (r *failingRepo) AddOrderItem(ctx context.Context, item domain.OrderItem) error {
	if r.itemErr != nil {
		return r.itemErr
	}
	return r.MemoryRepository.AddOrderItem(ctx, item)
}

func (r *failingRepo) LatestOrderForUser(ctx context.Context, userID string) (*domain.Order, error) {
	if r.latestErr != nil {
		return nil, r.latestErr
	}
	return r.MemoryRepository.LatestOrderForUser(ctx, userID)
}

func (r *failingRepo) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.MemoryRepository.UpdateOrder(ctx, id, patch)
}

func strPtr(s string) *string { return &s }

func harar() domain.Product {
	return domain.Product{
		ID:          "p-100",
		Name:        "Harar",
		Price:       decimal.NewFromInt(100),
		ImageURL:    strPtr("https://cdn.example/harar.jpg"),
		Description: strPtr("Blueberry notes"),
		Category:    strPtr("coffee"),
		IsActive:    true,
	}
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: customerID},
			Chat:      &tgbotapi.Chat{ID: customerID, Type: "private"},
			Text:      text,
		},
	}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-" + data,
			From:    &tgbotapi.User{ID: customerID},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: customerID}},
			Data:    data,
		},
	}
}

func contactUpdate(phone string) tgbotapi.Update {
	u := textUpdate("")
	u.Message.Contact = &tgbotapi.Contact{PhoneNumber: phone, FirstName: "Abebe", UserID: customerID}
	return u
}

func inlineData(t *testing.T, markup interface{}) [][]string {
	t.Helper()
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "expected inline keyboard, got %T", markup)
	var rows [][]string
	for _, row := range kb.InlineKeyboard {
		var data []string
		for _, btn := range row {
			require.NotNil(t, btn.CallbackData)
			data = append(data, *btn.CallbackData)
		}
		rows = append(rows, data)
	}
	return rows
}

func TestOrderFlow_HappyPath(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(harar())
	sender := &fakeSender{}
	pub := &fakePublisher{}
	reg := metrics.New("bot_test")
	m := NewMetrics(reg)
	b := New(sender, repo, WithAdminChat(adminChat), WithEventPublisher(pub), WithMetrics(m))

	b.HandleUpdate(ctx, textUpdate("/start"))
	welcome := sender.last(t, customerID)
	assert.Equal(t, msgWelcome, welcome.Text)
	assert.Equal(t, [][]string{{"SHOP"}, {"HELP"}}, inlineData(t, welcome.ReplyMarkup))

	b.HandleUpdate(ctx, callbackUpdate("SHOP"))
	cats := sender.last(t, customerID)
	assert.Equal(t, msgChooseCategory, cats.Text)
	assert.Equal(t, [][]string{{"CAT_coffee"}, {"CAT_accessories"}, {"CAT_other"}}, inlineData(t, cats.ReplyMarkup))

	b.HandleUpdate(ctx, callbackUpdate("CAT_coffee"))
	list := sender.last(t, customerID)
	assert.Equal(t, "Products in coffee:", list.Text)
	kb := list.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "Harar - 100", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "PROD_p-100", *kb.InlineKeyboard[0][0].CallbackData)

	b.HandleUpdate(ctx, callbackUpdate("PROD_p-100"))
	photos := sender.photos()
	require.Len(t, photos, 1)
	assert.Equal(t, "Harar", photos[0].Caption)
	assert.Equal(t, tgbotapi.FileURL("https://cdn.example/harar.jpg"), photos[0].File)
	detail := sender.last(t, customerID)
	assert.Equal(t, "*Harar*\nPrice: 100\n\nBlueberry notes", detail.Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, detail.ParseMode)
	assert.Equal(t, [][]string{{"ORDER_p-100"}, {"SHOP"}}, inlineData(t, detail.ReplyMarkup))

	b.HandleUpdate(ctx, callbackUpdate("ORDER_p-100"))
	created := sender.last(t, customerID)
	assert.Equal(t, "✅ Order created!\nItem: Harar\nQty: 1\n\nNext: send your phone number.", created.Text)
	contactKb, ok := created.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, contactKb.OneTimeKeyboard)
	assert.True(t, contactKb.ResizeKeyboard)
	assert.True(t, contactKb.Keyboard[0][0].RequestContact)

	orders := repo.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusNew, orders[0].Status)

	admin := sender.last(t, -100200300)
	assert.Equal(t, "🧾 New Order\nOrder ID: "+orders[0].ID+"\nUser: 555\nProduct: Harar\nPrice: 100", admin.Text)
	require.Len(t, pub.events, 1)
	assert.Equal(t, orders[0].ID, pub.events[0].OrderID)

	b.HandleUpdate(ctx, contactUpdate("+251911000000"))
	phoneSaved := sender.last(t, customerID)
	assert.Equal(t, msgPhoneSaved, phoneSaved.Text)
	remove, ok := phoneSaved.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
	require.True(t, ok)
	assert.True(t, remove.RemoveKeyboard)

	b.HandleUpdate(ctx, textUpdate("pickup"))
	done := sender.last(t, customerID)
	assert.Equal(t, msgAddressSaved, done.Text)
	assert.Equal(t, [][]string{{"SHOP"}, {"HELP"}}, inlineData(t, done.ReplyMarkup))

	orders = repo.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusConfirmed, orders[0].Status)
	assert.Equal(t, "+251911000000", *orders[0].Phone)
	assert.Equal(t, "pickup", *orders[0].Address)
	assert.True(t, orders[0].IsComplete())
	assert.Equal(t, "555", orders[0].TelegramUserID)

	items := repo.OrderItems()
	require.Len(t, items, 1)
	assert.Equal(t, orders[0].ID, items[0].OrderID)
	assert.Equal(t, "p-100", items[0].ProductID)
	assert.Equal(t, 1, items[0].Qty)
	assert.True(t, decimal.NewFromInt(100).Equal(items[0].Price))

	// every callback query was answered
	assert.Len(t, sender.requests, 4)
	for _, r := range sender.requests {
		_, ok := r.(tgbotapi.CallbackConfig)
		assert.True(t, ok)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ordersCompleted))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.updates.WithLabelValues("callback")))
}

func TestDeepLink_ActiveProduct(t *testing.T) {
	repo := repository.NewMemoryRepository(harar())
	sender := &fakeSender{}
	b := New(sender, repo)

	b.HandleUpdate(context.Background(), textUpdate("/start product_p-100"))

	require.Len(t, sender.photos(), 1)
	detail := sender.last(t, customerID)
	assert.Equal(t, "*Harar*\nPrice: 100\n\nBlueberry notes", detail.Text)
	kb := detail.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "⬅️ Back to Shop", kb.InlineKeyboard[1][0].Text)
}

func TestDeepLink_InactiveProduct(t *testing.T) {
	p := harar()
	p.IsActive = false
	repo := repository.NewMemoryRepository(p)
	sender := &fakeSender{}
	b := New(sender, repo)

	b.HandleUpdate(context.Background(), textUpdate("/start product_p-100"))

	msg := sender.last(t, customerID)
	assert.Equal(t, msgDeepLinkNotFound, msg.Text)
	assert.Equal(t, [][]string{{"SHOP"}, {"HELP"}}, inlineData(t, msg.ReplyMarkup))
	assert.Empty(t, sender.photos())
	assert.Empty(t, repo.Orders())
	assert.Empty(t, repo.OrderItems())
}

func TestDeepLink_LookupError(t *testing.T) {
	repo := &failingRepo{MemoryRepository: repository.NewMemoryRepository(), getErr: errors.New("timeout")}
	sender := &fakeSender{}
	New(sender, repo).HandleUpdate(context.Background(), textUpdate("/start product_p-100"))

	assert.Equal(t, msgProductLoadFailed, sender.last(t, customerID).Text)
}

func TestStart_WithBotMention(t *testing.T) {
	sender := &fakeSender{}
	New(sender, repository.NewMemoryRepository()).HandleUpdate(context.Background(), textUpdate("/start@Tomocashopbot"))
	assert.Equal(t, msgWelcome, sender.last(t, customerID).Text)
}

func TestCategory_Empty(t *testing.T) {
	repo := repository.NewMemoryRepository(harar())
	sender := &fakeSender{}
	New(sender, repo).HandleUpdate(context.Background(), callbackUpdate("CAT_other"))

	msg := sender.last(t, customerID)
	assert.Equal(t, msgNoProducts, msg.Text)
	assert.Equal(t, [][]string{{"CAT_coffee"}, {"CAT_accessories"}, {"CAT_other"}}, inlineData(t, msg.ReplyMarkup))
}

func TestCategory_LoadError(t *testing.T) {
	repo := &failingRepo{MemoryRepository: repository.NewMemoryRepository(), listErr: errors.New("boom")}
	sender := &fakeSender{}
	New(sender, repo).HandleUpdate(context.Background(), callbackUpdate("CAT_coffee"))

	msg := sender.last(t, customerID)
	assert.Equal(t, msgProductsLoadFailed, msg.Text)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestProduct_NotFound(t *testing.T) {
	sender := &fakeSender{}
	New(sender, repository.NewMemoryRepository()).HandleUpdate(context.Background(), callbackUpdate("PROD_missing"))

	msg := sender.last(t, customerID)
	assert.Equal(t, msgProductNotFound, msg.Text)
	assert.Equal(t, [][]string{{"CAT_coffee"}, {"CAT_accessories"}, {"CAT_other"}}, inlineData(t, msg.ReplyMarkup))
}

func TestProduct_WithoutImage(t *testing.T) {
	p := harar()
	p.ImageURL = nil
	p.Description = nil
	sender := &fakeSender{}
	New(sender, repository.NewMemoryRepository(p)).HandleUpdate(context.Background(), callbackUpdate("PROD_p-100"))

	assert.Empty(t, sender.photos())
	assert.Equal(t, "*Harar*\nPrice: 100\n\n", sender.last(t, customerID).Text)
}

func TestOrder_ProductNotFound(t *testing.T) {
	repo := repository.NewMemoryRepository()
	sender := &fakeSender{}
	New(sender, repo, WithAdminChat(adminChat)).HandleUpdate(context.Background(), callbackUpdate("ORDER_gone"))

	assert.Equal(t, msgProductNotFound, sender.last(t, customerID).Text)
	assert.Empty(t, repo.Orders())
	assert.Empty(t, sender.messages(-100200300))
}

func TestOrder_CreateFails(t *testing.T) {
	repo := &failingRepo{MemoryRepository: repository.NewMemoryRepository(harar()), createErr: errors.New("insert failed")}
	sender := &fakeSender{}
	New(sender, repo, WithAdminChat(adminChat)).HandleUpdate(context.Background(), callbackUpdate("ORDER_p-100"))

	assert.Equal(t, msgOrderFailed, sender.last(t, customerID).Text)
	assert.Empty(t, sender.messages(-100200300))
}

func TestOrder_ItemInsertFailsLeavesOrphanOrder(t *testing.T) {
	repo := &failingRepo{MemoryRepository: repository.NewMemoryRepository(harar()), itemErr: errors.New("fk violation")}
	sender := &fakeSender{}
	reg := metrics.New("bot_orphan")
	m := NewMetrics(reg)
	pub := &fakePublisher{}
	New(sender, repo, WithAdminChat(adminChat), WithMetrics(m), WithEventPublisher(pub)).
		HandleUpdate(context.Background(), callbackUpdate("ORDER_p-100"))

	assert.Equal(t, msgOrderFailed, sender.last(t, customerID).Text)
	assert.Len(t, repo.Orders(), 1)
	assert.Empty(t, repo.OrderItems())
	assert.Empty(t, sender.messages(-100200300))
	assert.Empty(t, pub.events)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.orderFailures.WithLabelValues("order_item")))
}

func TestOrder_AdminNotificationFailureDoesNotAffectCustomer(t *testing.T) {
	repo := repository.NewMemoryRepository(harar())
	sender := &fakeSender{failSend: func(c tgbotapi.Chattable) error {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID != customerID {
			return errors.New("chat not found")
		}
		return nil
	}}
	pub := &fakePublisher{err: errors.New("kafka down")}
	New(sender, repo, WithAdminChat(adminChat), WithEventPublisher(pub)).
		HandleUpdate(context.Background(), callbackUpdate("ORDER_p-100"))

	assert.Contains(t, sender.last(t, customerID).Text, "Order created!")
	assert.Len(t, repo.OrderItems(), 1)
}

func TestOrder_AdminChannelUsername(t *testing.T) {
	repo := repository.NewMemoryRepository(harar())
	sender := &fakeSender{}
	New(sender, repo, WithAdminChat("@tomoca_orders")).HandleUpdate(context.Background(), callbackUpdate("ORDER_p-100"))

	var found bool
	for _, c := range sender.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChannelUsername == "@tomoca_orders" {
			found = true
			assert.Contains(t, m.Text, "🧾 New Order")
		}
	}
	assert.True(t, found)
}

func TestContact_NoOrder(t *testing.T) {
	sender := &fakeSender{}
	New(sender, repository.NewMemoryRepository()).HandleUpdate(context.Background(), contactUpdate("+251911000000"))

	msg := sender.last(t, customerID)
	assert.Equal(t, msgNoActiveOrder, msg.Text)
	assert.Equal(t, [][]string{{"SHOP"}, {"HELP"}}, inlineData(t, msg.ReplyMarkup))
}

func TestContact_UpdateFails(t *testing.T) {
	repo := &failingRepo{MemoryRepository: repository.NewMemoryRepository(harar())}
	_, err := repo.CreateOrder(context.Background(), "555")
	require.NoError(t, err)
	repo.updateErr = errors.New("write failed")

	sender := &fakeSender{}
	New(sender, repo).HandleUpdate(context.Background(), contactUpdate("+251911000000"))
	assert.Equal(t, msgPhoneSaveFailed, sender.last(t, customerID).Text)
}

func TestText_NoOrderIsIgnored(t *testing.T) {
	sender := &fakeSender{}
	New(sender, repository.NewMemoryRepository()).HandleUpdate(context.Background(), textUpdate("Bole, Addis Ababa"))
	assert.Empty(t, sender.sent)
}

func TestText_LookupError(t *testing.T) {
	repo := &failingRepo{MemoryRepository: repository.NewMemoryRepository(), latestErr: errors.New("timeout")}
	sender := &fakeSender{}
	New(sender, repo).HandleUpdate(context.Background(), textUpdate("pickup"))
	assert.Equal(t, msgOrderLookupFailed, sender.last(t, customerID).Text)
}

func TestText_AttachesToLatestOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(harar())
	sender := &fakeSender{}
	m := NewMetrics(metrics.New("bot_latest"))
	b := New(sender, repo, WithMetrics(m))

	b.HandleUpdate(ctx, callbackUpdate("ORDER_p-100"))
	b.HandleUpdate(ctx, callbackUpdate("ORDER_p-100"))
	b.HandleUpdate(ctx, textUpdate("pickup"))

	orders := repo.Orders()
	require.Len(t, orders, 2)
	assert.Nil(t, orders[0].Address)
	require.NotNil(t, orders[1].Address)
	assert.Equal(t, "pickup", *orders[1].Address)
	// no phone yet, so the order is not ready
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ordersCompleted))
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	b := New(sender, repository.NewMemoryRepository())

	b.HandleUpdate(ctx, textUpdate("/shop"))
	assert.Equal(t, msgChooseCategory, sender.last(t, customerID).Text)

	b.HandleUpdate(ctx, textUpdate("/help"))
	help := sender.last(t, customerID)
	assert.Equal(t, msgHelpCommand, help.Text)
	assert.Nil(t, help.ReplyMarkup)

	b.HandleUpdate(ctx, callbackUpdate("HELP"))
	assert.Equal(t, msgHelpAction, sender.last(t, customerID).Text)

	sender.reset()
	b.HandleUpdate(ctx, textUpdate("/unknown"))
	assert.Empty(t, sender.sent)
}

func TestUnknownCallbackIsAnswered(t *testing.T) {
	sender := &fakeSender{}
	New(sender, repository.NewMemoryRepository()).HandleUpdate(context.Background(), callbackUpdate("NOPE"))

	assert.Len(t, sender.requests, 1)
	assert.Empty(t, sender.sent)
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in        string
		cmd, args string
		ok        bool
	}{
		{"/start", "start", "", true},
		{"/start product_1", "start", "product_1", true},
		{"/Start@Tomocashopbot  product_1 ", "start", "product_1", true},
		{"hello", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		cmd, args, ok := parseCommand(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.cmd, cmd, tc.in)
		assert.Equal(t, tc.args, args, tc.in)
	}
}
