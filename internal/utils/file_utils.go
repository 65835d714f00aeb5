package utils

import (
	"path/filepath"
	"strings"
)

// DetectLanguageFromFilePath maps a file extension to a language profile tag.
// Headers map to the cpp profile, which is the only one that accepts them.
func DetectLanguageFromFilePath(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))

	languageMap := map[string]string{
		"c":    "c",
		"h":    "cpp",
		"cpp":  "cpp",
		"cc":   "cpp",
		"cxx":  "cpp",
		"hpp":  "cpp",
		"go":   "go",
		"py":   "python",
		"java": "java",
		"ts":   "typescript",
		"tsx":  "typescript",
	}

	return languageMap[ext]
}
