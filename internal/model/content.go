package model

// ContentType is the media category inferred from a URL
type ContentType string

const (
	ContentVideo   ContentType = "video"
	ContentAudio   ContentType = "audio"
	ContentImage   ContentType = "image"
	ContentPDF     ContentType = "pdf"
	ContentText    ContentType = "text"
	ContentZip     ContentType = "zip"
	ContentRar     ContentType = "rar"
	Content7z      ContentType = "7z"
	ContentUnknown ContentType = "unknown"
)

// String returns the string representation of ContentType
func (ct ContentType) String() string {
	return string(ct)
}

// IsFile reports whether the content is fetched as a plain file over HTTP
func (ct ContentType) IsFile() bool {
	switch ct {
	case ContentImage, ContentPDF, ContentText, ContentZip, ContentRar, Content7z:
		return true
	}
	return false
}

// IsStream reports whether the content is fetched through yt-dlp
func (ct ContentType) IsStream() bool {
	return ct == ContentVideo || ct == ContentAudio
}
