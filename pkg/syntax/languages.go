package syntax

import (
	"path"
	"strings"
	"sync"
	"unsafe"

	"github.com/alexaandru/go-sitter-forest/c_sharp"
	"github.com/alexaandru/go-sitter-forest/java"
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/kotlin"
	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"

	golang "github.com/alexaandru/go-sitter-forest/go"
)

// languageFuncs maps language names to their tree-sitter GetLanguage functions.
// Only the languages the miner extracts edits from are included.
var languageFuncs = map[string]func() unsafe.Pointer{
	"c_sharp":    c_sharp.GetLanguage,
	"go":         golang.GetLanguage,
	"java":       java.GetLanguage,
	"javascript": javascript.GetLanguage,
	"kotlin":     kotlin.GetLanguage,
	"python":     python.GetLanguage,
}

// extensionLangs routes file extensions to language names.
var extensionLangs = map[string]string{
	".cs":   "c_sharp",
	".go":   "go",
	".java": "java",
	".js":   "javascript",
	".jsx":  "javascript",
	".kt":   "kotlin",
	".kts":  "kotlin",
	".mjs":  "javascript",
	".py":   "python",
}

// enryLangs maps enry's language names to ours, for files whose extension is
// ambiguous or missing.
var enryLangs = map[string]string{
	"C#":         "c_sharp",
	"Go":         "go",
	"Java":       "java",
	"JavaScript": "javascript",
	"Kotlin":     "kotlin",
	"Python":     "python",
}

var languageCache sync.Map

// GetLanguage returns the tree-sitter Language for the given name, or nil if
// not supported. Languages are initialized lazily and cached.
func GetLanguage(name string) *sitter.Language {
	if cached, ok := languageCache.Load(name); ok {
		lang, castOK := cached.(*sitter.Language)
		if castOK {
			return lang
		}
	}

	fn, ok := languageFuncs[name]
	if !ok {
		return nil
	}

	lang := sitter.NewLanguage(fn())
	languageCache.Store(name, lang)

	return lang
}

// SupportedLanguages returns the names of all languages with a registered grammar.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languageFuncs))
	for name := range languageFuncs {
		names = append(names, name)
	}

	return names
}

// DetectLanguage returns the language name for a file, or empty if the file is
// not written in a supported language. Extension routing is tried first; when
// the extension is unknown, enry classifies the content.
func DetectLanguage(filename string, content []byte) string {
	ext := strings.ToLower(path.Ext(filename))
	if lang, ok := extensionLangs[ext]; ok {
		return lang
	}

	detected := enry.GetLanguage(path.Base(filename), content)
	if lang, ok := enryLangs[detected]; ok {
		return lang
	}

	return ""
}
