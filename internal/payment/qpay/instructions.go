package qpay

import (
	"encoding/json"
	"fmt"
	"strings"

	"salbar-be/internal/payment"
)

// Instructions picks deep-link steps when the invoice came back with bank
// links and QR steps otherwise.
func (p *Provider) Instructions(data json.RawMessage) (string, []string) {
	method := payment.MethodQPayQR
	vars := payment.InstructionVars{}

	if s, err := decodeSession(data); err == nil {
		if len(s.URLs) > 0 {
			method = payment.MethodQPayDeeplink
		}
		vars["amount"] = fmt.Sprintf("%d %s", s.Amount, strings.ToUpper(s.CurrencyCode))
	}
	return method, payment.InjectVariables(payment.GetInstructions(method), vars)
}
