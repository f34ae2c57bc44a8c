package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-style-bot/internal/application"
	"telegram-style-bot/internal/config"
	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/adapter"
	"telegram-style-bot/internal/infra/logging"
	red "telegram-style-bot/internal/infra/redis"
	"telegram-style-bot/internal/usecase"
)

var (
	_ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)
	_ adapter.PhotoFetcher       = (*RealTelegramBotAdapter)(nil)
)

// laneIdleTTL is how long a per-user lane may sit empty before its goroutine
// exits and the lane is dropped from the map.
const laneIdleTTL = 5 * time.Minute

// userLane serializes all updates of one user. Ordering within a user is
// strict; different users run concurrently on their own lanes.
type userLane struct {
	ch chan tgbotapi.Update
}

// RealTelegramBotAdapter polls updates via tgbotapi and delegates to
// BotFacade. It also implements the outbound send port and photo fetching.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger
	httpClient  *http.Client

	laneMu sync.Mutex
	lanes  map[int64]*userLane
	laneWG sync.WaitGroup

	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	return &RealTelegramBotAdapter{
		bot:         bot,
		cfg:         cfg,
		rateLimiter: rateLimiter,
		log:         logger,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		lanes:       make(map[int64]*userLane),
	}, nil
}

// SetFacade wires the application layer in. The transform usecase inside the
// facade needs this adapter as its photo fetcher, so the facade is built
// after the adapter and attached before polling starts.
func (r *RealTelegramBotAdapter) SetFacade(f *application.BotFacade) {
	r.facade = f
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade not set")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	for {
		select {
		case <-ctx.Done():
			r.laneWG.Wait()
			return ctx.Err()
		case up := <-updates:
			tgID := updateUserID(up)
			if tgID == 0 {
				continue
			}
			r.enqueue(ctx, tgID, up)
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func updateUserID(up tgbotapi.Update) int64 {
	if up.Message != nil && up.Message.From != nil {
		return up.Message.From.ID
	}
	if up.CallbackQuery != nil && up.CallbackQuery.From != nil {
		return up.CallbackQuery.From.ID
	}
	return 0
}

// enqueue hands the update to the user's lane, creating one on demand. The
// send happens under laneMu so a lane can never vanish between lookup and
// send; a full lane drops the update instead of blocking the poll loop.
func (r *RealTelegramBotAdapter) enqueue(ctx context.Context, tgID int64, up tgbotapi.Update) {
	r.laneMu.Lock()
	defer r.laneMu.Unlock()

	ln, ok := r.lanes[tgID]
	if !ok {
		ln = &userLane{ch: make(chan tgbotapi.Update, 16)}
		r.lanes[tgID] = ln
		r.laneWG.Add(1)
		go r.runLane(ctx, tgID, ln)
	}
	select {
	case ln.ch <- up:
	default:
		r.log.Warn().Int64("tg_id", tgID).Msg("user lane full, update dropped")
	}
}

func (r *RealTelegramBotAdapter) runLane(ctx context.Context, tgID int64, ln *userLane) {
	defer r.laneWG.Done()
	idle := time.NewTimer(laneIdleTTL)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			r.laneMu.Lock()
			delete(r.lanes, tgID)
			r.laneMu.Unlock()
			return
		case up := <-ln.ch:
			uctx := logging.WithTraceID(ctx, ulid.Make().String())
			uctx = logging.WithTgID(uctx, tgID)
			if err := r.handleUpdate(uctx, up); err != nil {
				r.log.Error().Err(err).Int64("tg_id", tgID).Msg("update handling failed")
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(laneIdleTTL)
		case <-idle.C:
			// Only retire the lane when nothing is queued. The check runs
			// under laneMu, so enqueue cannot race a dying lane.
			r.laneMu.Lock()
			if len(ln.ch) == 0 {
				delete(r.lanes, tgID)
				r.laneMu.Unlock()
				return
			}
			r.laneMu.Unlock()
			idle.Reset(laneIdleTTL)
		}
	}
}

// LaneCount reports active per-user lanes, used by tests and ops endpoints.
func (r *RealTelegramBotAdapter) LaneCount() int {
	r.laneMu.Lock()
	defer r.laneMu.Unlock()
	return len(r.lanes)
}

// SendMessage implements the adapter port.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendButtons sends a message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = buildMarkup(rows)
	_, err := r.bot.Send(msg)
	return err
}

// SendPhoto uploads raw image bytes with an optional caption and keyboard.
func (r *RealTelegramBotAdapter) SendPhoto(ctx context.Context, tgID int64, image []byte, caption string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := tgbotapi.NewPhoto(tgID, tgbotapi.FileBytes{Name: "result.png", Bytes: image})
	msg.Caption = caption
	if len(rows) > 0 {
		msg.ReplyMarkup = buildMarkup(rows)
	}
	_, err := r.bot.Send(msg)
	return err
}

func buildMarkup(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			kbRow = append(kbRow, kb)
		}
		kbRows = append(kbRows, kbRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

// DownloadPhoto implements adapter.PhotoFetcher by resolving the file ID to a
// direct URL and fetching the bytes.
func (r *RealTelegramBotAdapter) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	tgUser := update.Message.From
	tgID := tgUser.ID

	fields := strings.Fields(update.Message.Text)
	command := "message"
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		command = fields[0]
	}
	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, command), 20, time.Minute)
		if err != nil {
			r.log.Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			return r.SendMessage(ctx, tgID, "Rate limit exceeded. Please try again later.")
		}
	}

	// Shared contact (phone number)
	if update.Message.Contact != nil && update.Message.Contact.UserID == tgID {
		if err := r.facade.UserUC.UpdatePhoneNumber(ctx, tgID, update.Message.Contact.PhoneNumber); err != nil {
			return r.SendMessage(ctx, tgID, "Could not save your phone number.")
		}
		return r.SendButtons(ctx, tgID, "📱 Phone number saved.", mainMenuRows())
	}

	// Photo upload
	if len(update.Message.Photo) > 0 {
		return r.handlePhoto(ctx, tgID, update.Message.Photo)
	}

	switch command {
	case "/start":
		text, err := r.facade.HandleStart(ctx, tgID, tgUser.UserName)
		if err != nil {
			return r.SendMessage(ctx, tgID, "Failed to initialize. Try again with /start.")
		}
		return r.SendButtons(ctx, tgID, text, mainMenuRows())

	case "/profile":
		return r.sendProfile(ctx, tgID)

	case "/balance":
		text, err := r.facade.HandleBalance(ctx, tgID)
		if err != nil {
			text = "Failed to get balance."
		}
		return r.SendButtons(ctx, tgID, text, profileRows())

	case "/help":
		reply := "Commands:\n/start - main menu\n/profile - your profile\n/balance - token balance\n\nSend a photo to restyle it."
		return r.SendMessage(ctx, tgID, reply)

	default:
		// Any other text nudges back to the flow.
		return r.SendButtons(ctx, tgID, "Use the buttons below, or just send a photo to transform it.", mainMenuRows())
	}
}

// handlePhoto picks the largest rendition Telegram offers and advances the
// conversation to style selection.
func (r *RealTelegramBotAdapter) handlePhoto(ctx context.Context, tgID int64, sizes []tgbotapi.PhotoSize) error {
	fileID := sizes[len(sizes)-1].FileID

	text, err := r.facade.HandlePhoto(ctx, tgID, fileID)
	switch {
	case err == nil:
		return r.SendButtons(ctx, tgID, text, styleMenuRows())
	case errors.Is(err, domain.ErrInsufficientTokens):
		return r.SendButtons(ctx, tgID, "❌ Not enough tokens. Top up to continue.", packsRows(r.facade.Packs))
	case errors.Is(err, domain.ErrInvalidState):
		return r.SendButtons(ctx, tgID, "Tap \"Transform photo\" first, then send the photo.", mainMenuRows())
	default:
		r.log.Error().Err(err).Int64("tg_id", tgID).Msg("photo intake failed")
		return r.SendMessage(ctx, tgID, "Something went wrong. Please try again.")
	}
}

type cbHandler func(ctx context.Context, tgID int64, data string) error

// Exact-match callbacks
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		cbToMain: func(ctx context.Context, id int64, _ string) error {
			if err := r.facade.ConvUC.Reset(ctx, id); err != nil {
				return err
			}
			return r.SendButtons(ctx, id, "🏠 Main menu", mainMenuRows())
		},
		cbProfile: func(ctx context.Context, id int64, _ string) error {
			return r.sendProfile(ctx, id)
		},
		cbBalance: func(ctx context.Context, id int64, _ string) error {
			text, err := r.facade.HandleBalance(ctx, id)
			if err != nil {
				text = "Failed to get balance."
			}
			return r.SendButtons(ctx, id, text, profileRows())
		},
		cbBuyTokens: func(ctx context.Context, id int64, _ string) error {
			return r.SendButtons(ctx, id, "💰 Pick a token pack:", packsRows(r.facade.Packs))
		},
		cbTransform: func(ctx context.Context, id int64, _ string) error {
			text, err := r.facade.HandleTransformRequest(ctx, id)
			if errors.Is(err, domain.ErrInsufficientTokens) {
				return r.SendButtons(ctx, id, "❌ Not enough tokens. Top up to continue.", packsRows(r.facade.Packs))
			}
			if err != nil {
				return err
			}
			return r.SendMessage(ctx, id, text)
		},
		cbNewPhoto: func(ctx context.Context, id int64, _ string) error {
			text, err := r.facade.HandleNewPhoto(ctx, id)
			if err != nil {
				return err
			}
			return r.SendMessage(ctx, id, text)
		},
		cbNewStyle: func(ctx context.Context, id int64, _ string) error {
			text, err := r.facade.HandleNewStyle(ctx, id)
			switch {
			case err == nil:
				return r.SendButtons(ctx, id, text, styleMenuRows())
			case errors.Is(err, domain.ErrInsufficientTokens):
				return r.SendButtons(ctx, id, "❌ Not enough tokens. Top up to continue.", packsRows(r.facade.Packs))
			case usecase.IsUserFacing(err):
				return r.SendButtons(ctx, id, "Send a photo first.", mainMenuRows())
			default:
				return err
			}
		},
	}
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []struct {
	Prefix string
	Fn     cbHandler
} {
	return []struct {
		Prefix string
		Fn     cbHandler
	}{
		{Prefix: cbStylePrefix, Fn: r.handleStyleCallback},
		{Prefix: cbBuyTokensPrefix, Fn: r.handleBuyCallback},
		{Prefix: cbCheckPaymentPrefix, Fn: r.handleCheckCallback},
	}
}

func (r *RealTelegramBotAdapter) handleStyleCallback(ctx context.Context, tgID int64, data string) error {
	styleID := strings.TrimPrefix(data, cbStylePrefix)

	_ = r.SendMessage(ctx, tgID, "✨ Working on your image, this takes a moment...")

	res, err := r.facade.HandleStyle(ctx, tgID, styleID)
	switch {
	case err == nil:
		caption := fmt.Sprintf("✅ Done! Balance: %d tokens.", res.NewBalance)
		return r.SendPhoto(ctx, tgID, res.Image, caption, afterTransformRows())
	case errors.Is(err, domain.ErrInsufficientTokens):
		return r.SendButtons(ctx, tgID, "❌ Not enough tokens. Top up to continue.", packsRows(r.facade.Packs))
	case usecase.IsUserFacing(err):
		return r.SendButtons(ctx, tgID, "Send a photo first, then pick a style.", mainMenuRows())
	default:
		// The token was already refunded inside the transform flow.
		r.log.Error().Err(err).Int64("tg_id", tgID).Str("style", styleID).Msg("transform failed")
		return r.SendButtons(ctx, tgID, "❌ Transformation failed. Your token was returned.", retryRows())
	}
}

func (r *RealTelegramBotAdapter) handleBuyCallback(ctx context.Context, tgID int64, data string) error {
	tokens, price, err := parseBuyTokens(data)
	if err != nil {
		return r.SendButtons(ctx, tgID, "Unknown token pack.", packsRows(r.facade.Packs))
	}

	intent, err := r.facade.HandlePurchase(ctx, tgID, tokens, price)
	if errors.Is(err, domain.ErrInvalidArgument) {
		return r.SendButtons(ctx, tgID, "Unknown token pack.", packsRows(r.facade.Packs))
	}
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", tgID).Msg("purchase failed")
		return r.SendMessage(ctx, tgID, "❌ Failed to create the payment. Please try again later.")
	}

	text := fmt.Sprintf("💳 Payment for %d tokens — %d₽\n\nPay via the link, then tap \"Check payment\".", tokens, price)
	return r.SendButtons(ctx, tgID, text, paymentRows(intent.RedirectURL, intent.ID, tokens))
}

func (r *RealTelegramBotAdapter) handleCheckCallback(ctx context.Context, tgID int64, data string) error {
	intentID, tokens, err := parseCheckPayment(data)
	if err != nil {
		return r.SendMessage(ctx, tgID, "This payment button is no longer valid.")
	}

	status, err := r.facade.HandleCheckPayment(ctx, tgID, intentID, tokens)
	if err != nil {
		r.log.Warn().Err(err).Str("intent_id", intentID).Msg("payment check failed")
		return r.SendButtons(ctx, tgID, "⏳ Could not check the payment right now. Try again shortly.", checkAgainRows(intentID, tokens))
	}

	switch status {
	case model.IntentStatusCompleted:
		text, berr := r.facade.HandleBalance(ctx, tgID)
		if berr != nil {
			text = "✅ Payment received, tokens credited."
		} else {
			text = "✅ Payment received!\n\n" + text
		}
		return r.SendButtons(ctx, tgID, text, mainMenuRows())
	case model.IntentStatusCancelled:
		return r.SendButtons(ctx, tgID, "❌ The payment was cancelled.", packsRows(r.facade.Packs))
	case model.IntentStatusExpired:
		return r.SendButtons(ctx, tgID, "⌛ The payment expired. If you already paid, tap \"Check again\".", checkAgainRows(intentID, tokens))
	default:
		return r.SendButtons(ctx, tgID, "⏳ Payment not confirmed yet. Pay via the link, then check again.", checkAgainRows(intentID, tokens))
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	tgID := query.From.ID
	data := strings.TrimSpace(query.Data)

	if r.rateLimiter != nil {
		if allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, "callback"), 30, time.Minute); err == nil && !allowed {
			return r.SendMessage(ctx, tgID, "Rate limit exceeded. Please try again later.")
		}
	}

	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, tgID, data)
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, tgID, data)
		}
	}
	return fmt.Errorf("unknown callback data %q", data)
}

func (r *RealTelegramBotAdapter) sendProfile(ctx context.Context, tgID int64) error {
	text, err := r.facade.HandleProfile(ctx, tgID)
	if err != nil {
		text = "No profile found. Try /start first."
	}
	return r.SendButtons(ctx, tgID, text, profileRows())
}
