package utils

import "strings"

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the lowercase domain part of an email address, or ""
// when the address has none.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return NormalizeEmail(email[at+1:])
}

// NormalizeDomain turns user input such as " @Acme.com " into "acme.com".
func NormalizeDomain(domain string) string {
	return strings.TrimPrefix(NormalizeEmail(domain), "@")
}
