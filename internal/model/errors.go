package model

import "errors"

var (
	// ErrUntrustedSource indicates the URL host is not in the allowlist.
	ErrUntrustedSource = errors.New("untrusted source")
	// ErrDownload indicates a delegated download failed.
	ErrDownload = errors.New("download error")
	// ErrWatermarkRemoval indicates inpainting or re-encoding failed.
	ErrWatermarkRemoval = errors.New("watermark removal error")
	// ErrFileNotFound indicates an input media file could not be opened.
	ErrFileNotFound = errors.New("file not found")
)
