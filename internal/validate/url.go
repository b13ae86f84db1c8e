package validate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ytget/media-downloader/internal/model"
)

// DefaultTrustedDomains is used when no allowlist is configured
var DefaultTrustedDomains = []string{
	"youtube.com",
	"tiktok.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"spotify.com",
	"soundcloud.com",
	"amazonmusic.com",
	"deezer.com",
}

// ValidateURL checks that rawURL points at a trusted host. An empty trusted
// list means DefaultTrustedDomains. Subdomains of a trusted domain are
// accepted ("www.youtube.com" matches "youtube.com").
func ValidateURL(rawURL string, trusted []string) error {
	if len(trusted) == 0 {
		trusted = DefaultTrustedDomains
	}

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: cannot parse URL %q: %v", model.ErrUntrustedSource, rawURL, err)
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: URL has no host: %q", model.ErrUntrustedSource, rawURL)
	}

	if !IsTrustedHost(host, trusted) {
		return fmt.Errorf("URL is from an %w: %s", model.ErrUntrustedSource, host)
	}
	return nil
}

// IsTrustedHost reports whether host equals or is a subdomain of any entry
func IsTrustedHost(host string, trusted []string) bool {
	host = strings.ToLower(host)
	for _, domain := range trusted {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
