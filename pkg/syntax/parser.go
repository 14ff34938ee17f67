package syntax

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/revisar/pkg/safeconv"
)

// Sentinel errors for parser operations.
var (
	errUnsupportedLanguage = errors.New("unsupported language")
	errNoRootNode          = errors.New("parse produced no root node")
	errPoolType            = errors.New("parser pool returned unexpected type")
)

// Parser parses source files into syntax trees. It is safe for concurrent use;
// tree-sitter parser instances are pooled per language.
type Parser struct {
	mu    sync.Mutex
	pools map[string]*sync.Pool
}

// NewParser creates a parser supporting all registered languages.
func NewParser() *Parser {
	return &Parser{pools: make(map[string]*sync.Pool)}
}

// IsSupported returns true if the filename maps to a supported language.
func (p *Parser) IsSupported(filename string) bool {
	return DetectLanguage(filename, nil) != ""
}

// Parse detects the file's language and parses its content.
func (p *Parser) Parse(ctx context.Context, filename string, content []byte) (*Node, error) {
	lang := DetectLanguage(filename, content)
	if lang == "" {
		return nil, fmt.Errorf("%w: %s", errUnsupportedLanguage, filename)
	}

	return p.ParseLanguage(ctx, lang, content)
}

// ParseLanguage parses content as the named language.
func (p *Parser) ParseLanguage(ctx context.Context, language string, content []byte) (*Node, error) {
	pool, err := p.pool(language)
	if err != nil {
		return nil, err
	}

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}
	defer pool.Put(tsParser)

	tree, parseErr := tsParser.ParseString(ctx, nil, content)
	if parseErr != nil {
		return nil, fmt.Errorf("parse %s: %w", language, parseErr)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	return convertNode(root, content), nil
}

// pool returns the parser pool for a language, creating it on first use.
func (p *Parser) pool(language string) (*sync.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.pools[language]; ok {
		return pool, nil
	}

	lang := GetLanguage(language)
	if lang == nil {
		return nil, fmt.Errorf("%w: %s", errUnsupportedLanguage, language)
	}

	pool := &sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}
	p.pools[language] = pool

	return pool, nil
}

// convertNode converts a tree-sitter node and its named descendants into the
// neutral node model. Leaf tokens are copied out of the source buffer.
func convertNode(tsNode sitter.Node, src []byte) *Node {
	start := tsNode.StartPoint()
	end := tsNode.EndPoint()

	converted := &Node{
		Kind: tsNode.Type(),
		Span: Span{
			StartLine: start.Row + 1,
			StartCol:  start.Column + 1,
			StartByte: tsNode.StartByte(),
			EndLine:   end.Row + 1,
			EndCol:    end.Column + 1,
			EndByte:   tsNode.EndByte(),
		},
	}

	childCount := tsNode.NamedChildCount()
	if childCount == 0 {
		converted.Token = nodeText(tsNode, src)

		return converted
	}

	converted.Children = make([]*Node, 0, childCount)

	for idx := range childCount {
		child := tsNode.NamedChild(idx)
		if child.IsNull() {
			continue
		}

		converted.Children = append(converted.Children, convertNode(child, src))
	}

	return converted
}

// nodeText extracts the source text covered by a tree-sitter node.
func nodeText(tsNode sitter.Node, src []byte) string {
	startByte := tsNode.StartByte()
	endByte := tsNode.EndByte()

	if endByte > safeconv.MustIntToUint(len(src)) || startByte > endByte {
		return ""
	}

	return string(src[startByte:endByte])
}
