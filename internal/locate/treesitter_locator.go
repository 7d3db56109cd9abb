//go:build cgo

package locate

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

const nameField = "name"

var javaScriptDeclarationNodeTypes = map[string]struct{}{
	"function_declaration":           {},
	"generator_function_declaration": {},
	"class_declaration":              {},
	"method_definition":              {},
	"variable_declarator":            {},
}

var typeScriptDeclarationNodeTypes = map[string]struct{}{
	"function_declaration":           {},
	"generator_function_declaration": {},
	"class_declaration":              {},
	"abstract_class_declaration":     {},
	"method_definition":              {},
	"method_signature":               {},
	"abstract_method_signature":      {},
	"variable_declarator":            {},
	"public_field_definition":        {},
	"property_signature":             {},
	"interface_declaration":          {},
	"type_alias_declaration":         {},
	"enum_declaration":               {},
}

var javaScriptContainerNodeTypes = map[string]struct{}{
	"class_declaration": {},
}

var typeScriptContainerNodeTypes = map[string]struct{}{
	"class_declaration":          {},
	"abstract_class_declaration": {},
	"interface_declaration":      {},
}

var pythonDeclarationNodeTypes = map[string]struct{}{
	"function_definition": {},
	"class_definition":    {},
}

var pythonContainerNodeTypes = map[string]struct{}{
	"class_definition": {},
}

type treeSitterLocator struct {
	extensions       []string
	languageForPath  func(path string) *sitter.Language
	declarationTypes map[string]struct{}
	containerTypes   map[string]struct{}
}

// NewJavaScriptLocator constructs a Locator for JavaScript sources.
func NewJavaScriptLocator() Locator {
	return treeSitterLocator{
		extensions:       []string{".js", ".mjs", ".cjs", ".jsx"},
		languageForPath:  func(string) *sitter.Language { return javascript.GetLanguage() },
		declarationTypes: javaScriptDeclarationNodeTypes,
		containerTypes:   javaScriptContainerNodeTypes,
	}
}

// NewTypeScriptLocator constructs a Locator for TypeScript sources.
func NewTypeScriptLocator() Locator {
	return treeSitterLocator{
		extensions: []string{".ts", ".mts", ".cts", ".tsx"},
		languageForPath: func(path string) *sitter.Language {
			if strings.HasSuffix(strings.ToLower(path), ".tsx") {
				return tsx.GetLanguage()
			}
			return typescript.GetLanguage()
		},
		declarationTypes: typeScriptDeclarationNodeTypes,
		containerTypes:   typeScriptContainerNodeTypes,
	}
}

// NewPythonLocator constructs a Locator for Python sources.
func NewPythonLocator() Locator {
	return treeSitterLocator{
		extensions:       []string{".py"},
		languageForPath:  func(string) *sitter.Language { return python.GetLanguage() },
		declarationTypes: pythonDeclarationNodeTypes,
		containerTypes:   pythonContainerNodeTypes,
	}
}

func (locator treeSitterLocator) Extensions() []string {
	return locator.extensions
}

func (locator treeSitterLocator) Locate(query Query) (int, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(locator.languageForPath(query.Path))
	tree := parser.Parse(nil, query.Content)
	if tree == nil {
		return 0, notFound(query)
	}
	defer tree.Close()

	declarationLine := locator.findDeclaration(tree.RootNode(), query.Content, nil, query.Symbol)
	if declarationLine == 0 {
		return 0, notFound(query)
	}
	return declarationLine, nil
}

// findDeclaration walks the tree depth-first and returns the line of the first
// declaration whose container-qualified name equals symbol.
func (locator treeSitterLocator) findDeclaration(node *sitter.Node, content []byte, containers []string, symbol string) int {
	if node == nil {
		return 0
	}
	nodeType := node.Type()
	childContainers := containers
	if _, isDeclaration := locator.declarationTypes[nodeType]; isDeclaration {
		if nameNode := node.ChildByFieldName(nameField); nameNode != nil {
			declarationName := strings.TrimSpace(nameNode.Content(content))
			qualifiedName := strings.Join(append(append([]string{}, containers...), declarationName), memberSeparator)
			if qualifiedName == symbol {
				return int(node.StartPoint().Row) + 1
			}
			if _, isContainer := locator.containerTypes[nodeType]; isContainer {
				childContainers = append(append([]string{}, containers...), declarationName)
			}
		}
	}
	for index := 0; index < int(node.NamedChildCount()); index++ {
		if line := locator.findDeclaration(node.NamedChild(index), content, childContainers, symbol); line != 0 {
			return line
		}
	}
	return 0
}
