package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	urlRegex      = regexp.MustCompile(`https?://[^\s<>]+`)
	bareLinkRegex = regexp.MustCompile(`(?i)(?:^|\s)((?:[\p{L}\p{N}-]+\.)+[\p{L}]{2,}/[^\s<>]*)`)
)

var inviteHosts = map[string]struct{}{
	"discord.gg": {},
	"discord.me": {},
	"discord.io": {},
	"dsc.gg":     {},
}

var invitePathHosts = map[string]struct{}{
	"discord.com":    {},
	"discordapp.com": {},
}

// ExtractURLs returns links with a scheme plus scheme-less host/path tokens.
func ExtractURLs(content string) []string {
	links := urlRegex.FindAllString(content, -1)
	stripped := urlRegex.ReplaceAllString(content, " ")
	for _, match := range bareLinkRegex.FindAllStringSubmatch(stripped, -1) {
		links = append(links, match[1])
	}
	return links
}

// NormalizeURL lower-cases the host, converts it to ASCII and drops
// fragments and credentials. It returns the normalized URL and host.
func NormalizeURL(raw string) (string, string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.ToLower(parsed.Hostname())
	if asciiHost, err := idna.Lookup.ToASCII(host); err == nil {
		host = asciiHost
	}
	host = strings.TrimPrefix(host, "www.")

	parsed.Host = host
	parsed.Fragment = ""
	parsed.User = nil
	return parsed.String(), host, nil
}

// IsInviteLink reports whether raw points at a Discord server invite.
func IsInviteLink(raw string) bool {
	normalized, host, err := NormalizeURL(raw)
	if err != nil {
		return false
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	path := strings.Trim(parsed.Path, "/")
	if _, ok := inviteHosts[host]; ok {
		return path != ""
	}
	if _, ok := invitePathHosts[host]; ok {
		code := strings.TrimPrefix(path, "invite/")
		return code != path && code != ""
	}
	return false
}

// ContainsInvite reports whether any link in content is an invite.
func ContainsInvite(content string) bool {
	for _, link := range ExtractURLs(content) {
		if IsInviteLink(link) {
			return true
		}
	}
	return false
}
