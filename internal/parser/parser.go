package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/python"
)

// Language identifies a supported source language
type Language string

const (
	LanguagePython Language = "python"
	LanguageC      Language = "c"
)

// languageExtensions maps file extensions to languages
var languageExtensions = map[string]Language{
	".py":  LanguagePython,
	".pyi": LanguagePython,
	".c":   LanguageC,
	".h":   LanguageC,
}

// DetectLanguage returns the language of a file by extension
func DetectLanguage(filename string) (Language, bool) {
	lang, ok := languageExtensions[strings.ToLower(filepath.Ext(filename))]
	return lang, ok
}

// SupportedExtensions returns every recognized source extension
func SupportedExtensions() []string {
	return []string{".py", ".pyi", ".c", ".h"}
}

// Parser wraps a tree-sitter parser for one language
type Parser struct {
	parser   *sitter.Parser
	language Language
}

// NewParser creates a new parser for the given language
func NewParser(lang Language) (*Parser, error) {
	var tsLang *sitter.Language
	switch lang {
	case LanguagePython:
		tsLang = python.GetLanguage()
	case LanguageC:
		tsLang = c.GetLanguage()
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	p := sitter.NewParser()
	p.SetLanguage(tsLang)
	return &Parser{parser: p, language: lang}, nil
}

// NewPythonParser creates a new Python parser
func NewPythonParser() *Parser {
	p, _ := NewParser(LanguagePython)
	return p
}

// NewCParser creates a new C parser
func NewCParser() *Parser {
	p, _ := NewParser(LanguageC)
	return p
}

// Language returns the language this parser handles
func (p *Parser) Language() Language {
	return p.language
}

// SyntaxError describes the first syntax error found in a file
type SyntaxError struct {
	File   string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s:%d:%d", e.File, e.Line, e.Column)
}

// ParseFile parses a source file into a normalized AST.
// Files containing syntax errors are rejected with a *SyntaxError.
func (p *Parser) ParseFile(filename string, source []byte) (*Node, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s: %v", filename, err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, fmt.Errorf("no root node in parse tree for %s", filename)
	}
	if rootNode.HasError() {
		return nil, firstSyntaxError(filename, rootNode)
	}

	var builder treeBuilder
	switch p.language {
	case LanguageC:
		builder = newCBuilder(filename, source)
	default:
		builder = newPythonBuilder(filename, source)
	}
	return builder.Build(rootNode), nil
}

// ParseString parses source code held in a string
func (p *Parser) ParseString(source string) (*Node, error) {
	name := "<input>.py"
	if p.language == LanguageC {
		name = "<input>.c"
	}
	return p.ParseFile(name, []byte(source))
}

// Close closes the parser and frees resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// ParseForLanguage selects the front-end from the file extension and parses
func ParseForLanguage(filename string, source []byte) (*Node, error) {
	lang, ok := DetectLanguage(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filename)
	}
	p, err := NewParser(lang)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.ParseFile(filename, source)
}

// firstSyntaxError locates the earliest ERROR or MISSING node
func firstSyntaxError(filename string, root *sitter.Node) *SyntaxError {
	var found *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != nil || n == nil {
			return
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)

	if found == nil {
		found = root
	}
	return &SyntaxError{
		File:   filename,
		Line:   int(found.StartPoint().Row) + 1,
		Column: int(found.StartPoint().Column) + 1,
	}
}
