package cache

import "fmt"

// LoginCodeKey holds the hashed one-time login code issued to a phone number.
func LoginCodeKey(phone string) string {
	return fmt.Sprintf("login_code:%s", phone)
}

// LoginCodeCooldownKey blocks re-issuing a code to the same phone for a short window.
func LoginCodeCooldownKey(phone string) string {
	return fmt.Sprintf("login_code:cooldown:%s", phone)
}

// RateLimitKey is the fixed-window counter for a resource and caller.
func RateLimitKey(resource, id string) string {
	return fmt.Sprintf("rl:%s:%s", resource, id)
}
