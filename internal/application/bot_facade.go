package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/usecase"
)

// BotFacade composes usecases into high-level bot commands. Methods return
// plain strings (or a TransformResult) so the Telegram adapter just forwards
// them to the chat; keyboard layout stays in the adapter.
type BotFacade struct {
	UserUC  usecase.UserUseCase
	Ledger  usecase.LedgerUseCase
	ConvUC  usecase.ConversationUseCase
	Trans   usecase.TransformUseCase
	Tracker *usecase.PaymentTracker
	Packs   []model.TokenPack
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	ledger usecase.LedgerUseCase,
	convUC usecase.ConversationUseCase,
	trans usecase.TransformUseCase,
	tracker *usecase.PaymentTracker,
	packs []model.TokenPack,
) *BotFacade {
	return &BotFacade{
		UserUC:  userUC,
		Ledger:  ledger,
		ConvUC:  convUC,
		Trans:   trans,
		Tracker: tracker,
		Packs:   packs,
	}
}

// HandleStart registers or fetches the user, resets the conversation and
// returns a welcome string. Re-entrant from any state.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username string) (string, error) {
	u, err := b.UserUC.RegisterOrFetch(ctx, tgID, username)
	if err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	if err := b.ConvUC.Reset(ctx, tgID); err != nil {
		return "", fmt.Errorf("reset conversation: %w", err)
	}
	name := u.Username
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("👋 Welcome, %s!\n\nSend a photo and pick a style to restyle it.\nYour balance: %d tokens.", name, u.TokenCount), nil
}

// HandleTransformRequest starts the photo flow if the balance allows.
func (b *BotFacade) HandleTransformRequest(ctx context.Context, tgID int64) (string, error) {
	balance, err := b.Ledger.Balance(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	if err := b.ConvUC.BeginTransform(ctx, tgID, balance); err != nil {
		return "", err
	}
	return fmt.Sprintf("📸 Send the photo you want restyled.\nSupported formats: JPG, PNG\n\n💰 Cost: %d token\n💳 Your balance: %d tokens",
		usecase.TransformCost, balance), nil
}

// HandlePhoto stores the photo reference and moves on to style selection.
func (b *BotFacade) HandlePhoto(ctx context.Context, tgID int64, photoRef string) (string, error) {
	balance, err := b.Ledger.Balance(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	if err := b.ConvUC.PhotoReceived(ctx, tgID, photoRef, balance); err != nil {
		return "", err
	}
	return "🎨 Choose a transform style.\nComposition and poses are preserved.\n\n💰 Cost: 1 token", nil
}

// HandleStyle runs the transform for the pending photo. The conversation
// stays in ChoosingStyle so the user can pick another style for the same
// photo afterwards.
func (b *BotFacade) HandleStyle(ctx context.Context, tgID int64, styleID string) (*usecase.TransformResult, error) {
	photoRef, err := b.ConvUC.StyleContext(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if _, ok := model.StyleByID(styleID); !ok {
		return nil, domain.ErrInvalidArgument
	}
	return b.Trans.Execute(ctx, tgID, photoRef, styleID)
}

// HandleNewPhoto discards the pending photo and waits for a fresh upload.
func (b *BotFacade) HandleNewPhoto(ctx context.Context, tgID int64) (string, error) {
	if err := b.ConvUC.RequestNewPhoto(ctx, tgID); err != nil {
		return "", err
	}
	balance, _ := b.Ledger.Balance(ctx, tgID)
	return fmt.Sprintf("📸 Send a new photo to transform.\n\n💳 Your balance: %d tokens", balance), nil
}

// HandleNewStyle re-offers the style menu for the already uploaded photo.
func (b *BotFacade) HandleNewStyle(ctx context.Context, tgID int64) (string, error) {
	if _, err := b.ConvUC.StyleContext(ctx, tgID); err != nil {
		return "", err
	}
	balance, err := b.Ledger.Balance(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	if balance < usecase.TransformCost {
		return "", domain.ErrInsufficientTokens
	}
	return fmt.Sprintf("🎨 Choose another style for the same photo.\n\n💳 Your balance: %d tokens", balance), nil
}

// HandleProfile formats the profile view.
func (b *BotFacade) HandleProfile(ctx context.Context, tgID int64) (string, error) {
	u, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("user: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("👤 Your profile\n\n")
	sb.WriteString(fmt.Sprintf("🆔 ID: %d\n", u.TelegramID))
	if u.Username != "" {
		sb.WriteString(fmt.Sprintf("👤 Name: %s\n", u.Username))
	}
	sb.WriteString(fmt.Sprintf("💰 Tokens: %d\n", u.TokenCount))
	sb.WriteString(fmt.Sprintf("📅 Registered: %s\n", u.RegisteredAt.Format("02.01.2006")))
	if u.PhoneNumber != "" {
		sb.WriteString(fmt.Sprintf("📱 Phone: %s\n", u.PhoneNumber))
	}
	return sb.String(), nil
}

// HandleBalance formats the balance view with the purchase hint.
func (b *BotFacade) HandleBalance(ctx context.Context, tgID int64) (string, error) {
	balance, err := b.Ledger.Balance(ctx, tgID)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	return fmt.Sprintf("💰 Your token balance\n\nAvailable tokens: %d\n\nℹ️ One token = one image generation.", balance), nil
}

// HandlePurchase validates the pack against configuration and opens a
// payment intent. Arbitrary token/price pairs from callback data are
// rejected; only configured packs are payable.
func (b *BotFacade) HandlePurchase(ctx context.Context, tgID int64, tokens int, price int64) (*model.PaymentIntent, error) {
	if !b.validPack(tokens, price) {
		return nil, domain.ErrInvalidArgument
	}
	intent, err := b.Tracker.CreateIntent(ctx, tgID, tokens, price)
	if err != nil {
		return nil, err
	}
	if err := b.ConvUC.AwaitPayment(ctx, tgID); err != nil {
		return intent, err
	}
	return intent, nil
}

// HandleCheckPayment is the manual "check payment" button. After a restart
// the intent may be unknown locally; it is re-registered from the callback
// args before polling the gateway.
func (b *BotFacade) HandleCheckPayment(ctx context.Context, tgID int64, intentID string, tokens int) (model.IntentStatus, error) {
	if _, err := b.Tracker.Get(intentID); errors.Is(err, domain.ErrIntentNotFound) {
		b.Tracker.Recover(intentID, tgID, tokens)
	}
	return b.Tracker.CheckNow(ctx, intentID)
}

func (b *BotFacade) validPack(tokens int, price int64) bool {
	for _, p := range b.Packs {
		if p.Tokens == tokens && p.Price == price {
			return true
		}
	}
	return false
}
