// Package detect infers a content category from URL substrings.
package detect

import (
	"strings"

	"github.com/ytget/media-downloader/internal/model"
)

// Rule maps a content type to the identifiers that select it
type Rule struct {
	Type        model.ContentType
	Identifiers []string
}

// Rules is scanned in order; the first identifier found wins
var Rules = []Rule{
	{model.ContentVideo, []string{"youtube", "tiktok", "facebook", "instagram", "twitter"}},
	{model.ContentAudio, []string{"spotify", "soundcloud", "amazonmusic", "deezer"}},
	{model.ContentImage, []string{".jpg", ".png", ".gif", ".jpeg", ".bmp", ".webp"}},
	{model.ContentPDF, []string{".pdf"}},
	{model.ContentText, []string{".txt"}},
	{model.ContentZip, []string{".zip"}},
	{model.ContentRar, []string{".rar"}},
	{model.Content7z, []string{".7z"}},
}

// DetectContentType classifies rawURL, returning ContentUnknown when no
// identifier matches
func DetectContentType(rawURL string) model.ContentType {
	lower := strings.ToLower(rawURL)
	for _, rule := range Rules {
		for _, identifier := range rule.Identifiers {
			if strings.Contains(lower, identifier) {
				return rule.Type
			}
		}
	}
	return model.ContentUnknown
}
