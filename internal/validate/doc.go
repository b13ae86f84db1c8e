package validate

// Package validate gates downloads on a fixed allowlist of trusted hosts.
