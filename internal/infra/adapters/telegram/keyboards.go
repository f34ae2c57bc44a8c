package telegram

import (
	"fmt"

	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/adapter"
)

func mainMenuRows() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "🎨 Transform photo", Data: cbTransform}},
		{{Text: "👤 Profile", Data: cbProfile}, {Text: "💰 Balance", Data: cbBalance}},
	}
}

func styleMenuRows() [][]adapter.InlineButton {
	catalog := model.Styles()
	rows := make([][]adapter.InlineButton, 0, len(catalog)+1)
	for _, s := range catalog {
		rows = append(rows, []adapter.InlineButton{{Text: s.Label, Data: cbStylePrefix + s.ID}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: "🔙 Back", Data: cbToMain}})
	return rows
}

func profileRows() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "💰 Buy tokens", Data: cbBuyTokens}},
		{{Text: "🏠 Main menu", Data: cbToMain}},
	}
}

func packsRows(packs []model.TokenPack) [][]adapter.InlineButton {
	rows := make([][]adapter.InlineButton, 0, len(packs)+1)
	for _, p := range packs {
		label := fmt.Sprintf("%d tokens — %d₽", p.Tokens, p.Price)
		rows = append(rows, []adapter.InlineButton{{Text: label, Data: buyTokensData(p.Tokens, p.Price)}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: "🔙 Back", Data: cbProfile}})
	return rows
}

func paymentRows(payURL, intentID string, tokens int) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "💳 Pay", URL: payURL}},
		{{Text: "✅ Check payment", Data: checkPaymentData(intentID, tokens)}},
		{{Text: "🔙 Back", Data: cbProfile}},
	}
}

func checkAgainRows(intentID string, tokens int) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "🔄 Check again", Data: checkPaymentData(intentID, tokens)}},
		{{Text: "🔙 Back", Data: cbProfile}},
	}
}

func afterTransformRows() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "🔄 Another style", Data: cbNewStyle}},
		{{Text: "📸 New photo", Data: cbNewPhoto}},
		{{Text: "🏠 Main menu", Data: cbToMain}},
	}
}

func retryRows() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: "🔄 Try again", Data: cbNewPhoto}},
		{{Text: "🏠 Main menu", Data: cbToMain}},
	}
}
