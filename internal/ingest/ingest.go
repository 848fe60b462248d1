package ingest

import (
	"io"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrorText is the literal surfaced to the conversation when a file cannot be
// processed. It flows through the orchestrator like any other user text.
const ErrorText = "Error processing file."

// DefaultMaxBytes bounds how much of an upload is folded into an utterance.
const DefaultMaxBytes = 64 << 10

// Extract converts an uploaded document into plain text. Only plain-text
// formats are handled; anything else, oversized input and undecodable bytes
// all degrade to ErrorText.
func Extract(name string, r io.Reader, maxBytes int64) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".text", "":
	default:
		log.Printf("unsupported upload format: %s", name)
		return ErrorText
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		log.Printf("upload read failed for %s: %v", name, err)
		return ErrorText
	}
	if int64(len(data)) > maxBytes {
		log.Printf("upload too large: %s", name)
		return ErrorText
	}
	if !utf8.Valid(data) {
		log.Printf("upload is not valid text: %s", name)
		return ErrorText
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return ErrorText
	}
	return text
}

// AsUtterance prefixes extracted file content the way the chat input expects.
func AsUtterance(name, content string) string {
	return "[File: " + name + "]\n\n" + content
}
