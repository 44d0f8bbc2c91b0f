// Package codefile turns an uploaded source file into the code snippet and
// language attached to a bug report.
package codefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const DefaultLanguage = "javascript"

var extensionLanguages = map[string]string{
	"js":   "javascript",
	"jsx":  "javascript",
	"ts":   "typescript",
	"tsx":  "typescript",
	"py":   "python",
	"java": "java",
	"cpp":  "cpp",
	"c":    "c",
	"cs":   "csharp",
	"rb":   "ruby",
	"go":   "go",
	"rs":   "rust",
	"php":  "php",
	"html": "html",
	"css":  "css",
	"json": "json",
	"xml":  "xml",
	"sql":  "sql",
}

type Language struct {
	ID    string
	Label string
}

var languages = []Language{
	{"javascript", "JavaScript"},
	{"typescript", "TypeScript"},
	{"python", "Python"},
	{"java", "Java"},
	{"cpp", "C++"},
	{"c", "C"},
	{"csharp", "C#"},
	{"ruby", "Ruby"},
	{"go", "Go"},
	{"rust", "Rust"},
	{"php", "PHP"},
	{"html", "HTML"},
	{"css", "CSS"},
	{"json", "JSON"},
	{"xml", "XML"},
	{"sql", "SQL"},
}

// Languages returns the selectable languages in menu order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

func IsKnownLanguage(id string) bool {
	for _, l := range languages {
		if l.ID == id {
			return true
		}
	}
	return false
}

// AcceptedExtensions is the upload picker filter. ".txt" is accepted but has
// no language of its own.
func AcceptedExtensions() []string {
	return []string{
		".js", ".jsx", ".ts", ".tsx", ".py", ".java", ".cpp", ".c", ".cs", ".rb",
		".go", ".rs", ".php", ".html", ".css", ".json", ".xml", ".sql", ".txt",
	}
}

// LanguageForFilename maps the text after the last dot to a language,
// falling back to DefaultLanguage.
func LanguageForFilename(name string) string {
	name = filepath.Base(name)
	ext := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	if lang, ok := extensionLanguages[strings.ToLower(ext)]; ok {
		return lang
	}
	return DefaultLanguage
}

type Code struct {
	Text     string
	Language string
}

// Decode reads file bytes as text the way a browser's readAsText does:
// UTF-8 unless a BOM says otherwise, BOM removed, bad sequences replaced.
func Decode(name string, data []byte) (Code, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	text, _, err := transform.Bytes(dec, data)
	if err != nil {
		return Code{}, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	return Code{
		Text:     string(text),
		Language: LanguageForFilename(name),
	}, nil
}

// Load reads and decodes a file from disk.
func Load(path string) (Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Code{}, fmt.Errorf("read code file: %w", err)
	}
	return Decode(path, data)
}
