package download

// Package download fetches media for the pipeline. Video and audio go
// through yt-dlp (via github.com/lrstanley/go-ytdlp); plain files are fetched
// over HTTP with the retrying client from github.com/ytget/ytdlp/v2/client.
// Every failure is labelled with model.ErrDownload.
