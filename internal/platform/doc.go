package platform

// Package platform contains OS integration glue: filesystem helpers, locating
// files yt-dlp wrote under a different extension, and OS reveal.
