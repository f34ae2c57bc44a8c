package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data codes. Exact codes are matched before prefixes, so the bare
// "buy_tokens" menu code never collides with "buy_tokens_<n>_<price>".
const (
	cbToMain    = "to_main"
	cbProfile   = "profile"
	cbBalance   = "balance"
	cbBuyTokens = "buy_tokens"
	cbTransform = "transform_photo"
	cbNewPhoto  = "new_photo"
	cbNewStyle  = "new_style"

	cbStylePrefix        = "style_"
	cbBuyTokensPrefix    = "buy_tokens_"
	cbCheckPaymentPrefix = "check_payment_"
)

func buyTokensData(tokens int, price int64) string {
	return fmt.Sprintf("%s%d_%d", cbBuyTokensPrefix, tokens, price)
}

func parseBuyTokens(data string) (tokens int, price int64, err error) {
	rest := strings.TrimPrefix(data, cbBuyTokensPrefix)
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed buy callback %q", data)
	}
	tokens, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed buy callback %q: %w", data, err)
	}
	price, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed buy callback %q: %w", data, err)
	}
	return tokens, price, nil
}

func checkPaymentData(intentID string, tokens int) string {
	return fmt.Sprintf("%s%s_%d", cbCheckPaymentPrefix, intentID, tokens)
}

// parseCheckPayment splits on the last underscore. Provider payment IDs use
// dashes, so the ID itself never contains the separator, but splitting from
// the right keeps this safe either way.
func parseCheckPayment(data string) (intentID string, tokens int, err error) {
	rest := strings.TrimPrefix(data, cbCheckPaymentPrefix)
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return "", 0, fmt.Errorf("malformed check callback %q", data)
	}
	tokens, err = strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed check callback %q: %w", data, err)
	}
	return rest[:i], tokens, nil
}
