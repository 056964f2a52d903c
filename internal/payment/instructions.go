package payment

import (
	"encoding/json"
	"strings"
)

const (
	// QR scanned from any Mongolian bank app
	MethodQPayQR = "QPAY_QR"
	// Bank or wallet deep link opened on the same phone
	MethodQPayDeeplink = "QPAY_DEEPLINK"
)

var InstructionMap = map[string][]string{
	MethodQPayQR: {
		"Open your bank's mobile app or the QPay wallet",
		"Choose Scan QR",
		"Scan the QR code shown on this page",
		"Check that the amount is {{amount}} and the merchant is correct",
		"Confirm the payment and keep the receipt",
	},

	MethodQPayDeeplink: {
		"Tap your bank below to open its app",
		"Check that the amount is {{amount}}",
		"Confirm the payment in the app",
		"Return to this page, your order updates automatically",
	},
}

func GetInstructions(method string) []string {
	if steps, ok := InstructionMap[method]; ok {
		return steps
	}

	return []string{
		"Follow the payment instructions shown on this page",
	}
}

type InstructionVars map[string]string

func InjectVariables(
	steps []string,
	vars InstructionVars,
) []string {
	result := make([]string, 0, len(steps))

	for _, step := range steps {
		updated := step
		for key, value := range vars {
			updated = strings.ReplaceAll(
				updated,
				"{{"+key+"}}",
				value,
			)
		}
		result = append(result, updated)
	}

	return result
}

// InstructionProvider is implemented by providers that can explain to a
// shopper how to complete a session.
type InstructionProvider interface {
	Instructions(data json.RawMessage) (method string, steps []string)
}
