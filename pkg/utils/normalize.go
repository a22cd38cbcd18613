package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// legal suffixes dropped when comparing company names
var companySuffixes = map[string]bool{
	"inc": true, "incorporated": true, "llc": true, "ltd": true, "limited": true,
	"corp": true, "corporation": true, "co": true, "gmbh": true, "plc": true,
}

// freeMailDomains never identify an employer.
var freeMailDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "live.com": true, "icloud.com": true, "me.com": true,
	"aol.com": true, "proton.me": true, "protonmail.com": true,
}

// IsFreeMailDomain reports whether domain is a consumer mailbox provider.
func IsFreeMailDomain(domain string) bool {
	return freeMailDomains[strings.ToLower(strings.TrimSpace(domain))]
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName lowercases, trims and collapses inner whitespace.
func NormalizeName(name string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

// NormalizeCompanyName reduces a company name to a comparison key:
// "The Acme Corp., Inc." and "acme" both become "acme".
func NormalizeCompanyName(name string) string {
	cleaned := punctuationRe.ReplaceAllString(strings.ToLower(name), " ")
	words := strings.Fields(cleaned)
	if len(words) > 1 && words[0] == "the" {
		words = words[1:]
	}
	for len(words) > 1 && companySuffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// DomainFromURL extracts a bare host from a website value such as
// "https://www.Acme.com/about" or "acme.com:443".
func DomainFromURL(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}

// EmailDomain returns the lowercased part after '@', or "".
func EmailDomain(email string) string {
	email = NormalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// SplitFullName splits on the first space: "Mary Ann Smith" -> "Mary", "Ann Smith".
func SplitFullName(full string) (string, string) {
	full = whitespaceRe.ReplaceAllString(strings.TrimSpace(full), " ")
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// JoinName builds a full name from its parts, skipping empty ones.
func JoinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
