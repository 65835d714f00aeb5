package tools

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeSource turns raw file bytes into text. Valid UTF-8 is kept as is;
// anything else is read as ISO-8859-1 so every byte maps to one character.
func DecodeSource(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(decoded)
}

// SplitLines splits decoded text on newlines the way tree-sitter counts rows:
// only "\n" ends a line, and a trailing newline does not open an empty line.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// ReadSourceLines reads a file and returns its decoded lines.
func ReadSourceLines(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return SplitLines(DecodeSource(content)), nil
}
