// Package javasrc wraps tree-sitter parsing of decompiled Java sources. It
// exposes the syntax tree plus the parse-quality measurements the rewrite
// engine gates on: decompiler output is frequently broken Java, and a tree
// full of error nodes must not be rewritten structurally.
package javasrc

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Parser parses Java source into tree-sitter syntax trees. Not safe for
// concurrent use; give each worker its own.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Java parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{parser: p}
}

// Parse parses content into a syntax tree. The caller owns the tree and must
// Close it.
func (p *Parser) Parse(ctx context.Context, content []byte) (*sitter.Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse java source: %w", err)
	}
	return tree, nil
}

// ParseQualityError reports a syntax tree too broken to rewrite structurally.
// Callers are expected to fall back to a non-structural strategy.
type ParseQualityError struct {
	Path      string
	Ratio     float64
	Threshold float64
}

func (e *ParseQualityError) Error() string {
	return fmt.Sprintf("parse quality below threshold for %s: %.2f%% error nodes (max %.2f%%)",
		e.Path, e.Ratio*100, e.Threshold*100)
}

// ErrorRatio reports the fraction of nodes in the tree that are error or
// missing nodes. An empty tree counts as fully broken.
func ErrorRatio(root *sitter.Node) float64 {
	total, bad := countNodes(root)
	if total == 0 {
		return 1
	}
	return float64(bad) / float64(total)
}

func countNodes(node *sitter.Node) (total, bad int) {
	if node == nil {
		return 0, 0
	}
	total = 1
	if node.Type() == "ERROR" || node.IsMissing() {
		bad = 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		t, b := countNodes(node.Child(i))
		total += t
		bad += b
	}
	return total, bad
}
