package logger

import "strings"

// RedactAccountID masks a customer/account identifier for safe logging.
// "123-456-7890" → "123-***"
// Identifiers of 3 or fewer characters are fully masked.
func RedactAccountID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 3 {
		return "***"
	}
	return id[:3] + "-***"
}

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "customer") || strings.Contains(key, "account") {
		return RedactAccountID(val)
	}
	return val
}
