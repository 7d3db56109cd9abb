package locate

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"strings"

	"golang.org/x/tools/go/ast/inspector"
)

const goFileExtension = ".go"

type goLocator struct{}

// NewGoLocator constructs a Locator for Go source files. Symbols take the forms
// Name, Type.Method, package.Name or an import-path-qualified name such as
// example.com/module/pkg.Type.Method.
func NewGoLocator() Locator {
	return goLocator{}
}

func (goLocator) Extensions() []string {
	return []string{goFileExtension}
}

func (goLocator) Locate(query Query) (int, error) {
	fileSet := token.NewFileSet()
	fileAST, parseError := parser.ParseFile(fileSet, query.Path, query.Content, parser.SkipObjectResolution)
	if parseError != nil {
		return 0, parseError
	}

	memberPath, qualified := stripGoQualifier(query, fileAST.Name.Name)
	if !qualified {
		return 0, notFound(query)
	}
	segments := strings.Split(memberPath, memberSeparator)
	if len(segments) > 2 {
		return 0, notFound(query)
	}

	declarationLine := 0
	fileInspector := inspector.New([]*ast.File{fileAST})
	nodeFilter := []ast.Node{(*ast.FuncDecl)(nil), (*ast.TypeSpec)(nil), (*ast.ValueSpec)(nil)}
	fileInspector.WithStack(nodeFilter, func(node ast.Node, push bool, stack []ast.Node) bool {
		if !push || declarationLine != 0 {
			return false
		}
		if insideFunctionBody(stack[:len(stack)-1]) {
			return false
		}
		if position, matched := matchGoDeclaration(node, segments); matched {
			declarationLine = fileSet.Position(position).Line
		}
		return true
	})
	if declarationLine == 0 {
		return 0, notFound(query)
	}
	return declarationLine, nil
}

// stripGoQualifier removes a package or import path qualifier from the symbol.
// The second result is false when the qualifier names a different package.
func stripGoQualifier(query Query, packageName string) (string, bool) {
	symbol := query.Symbol
	lastSlash := strings.LastIndex(symbol, "/")
	if lastSlash >= 0 {
		remainder := symbol[lastSlash+1:]
		packageSegment, memberPath, hasMember := strings.Cut(remainder, memberSeparator)
		if !hasMember {
			return "", false
		}
		importPath := symbol[:lastSlash+1] + packageSegment
		if query.ModulePath != "" {
			expectedImportPath := path.Join(query.ModulePath, path.Dir(strings.TrimPrefix(query.Path, "/")))
			if importPath != expectedImportPath {
				return "", false
			}
		} else if packageSegment != packageName {
			return "", false
		}
		return memberPath, true
	}
	if prefix, memberPath, hasMember := strings.Cut(symbol, memberSeparator); hasMember && prefix == packageName {
		return memberPath, true
	}
	return symbol, true
}

func matchGoDeclaration(node ast.Node, segments []string) (token.Pos, bool) {
	switch declaration := node.(type) {
	case *ast.FuncDecl:
		if declaration.Name.Name != segments[len(segments)-1] {
			return token.NoPos, false
		}
		receiverName := goReceiverTypeName(declaration)
		if len(segments) == 1 && receiverName == "" {
			return declaration.Pos(), true
		}
		if len(segments) == 2 && receiverName == segments[0] {
			return declaration.Pos(), true
		}
	case *ast.TypeSpec:
		if len(segments) == 1 && declaration.Name.Name == segments[0] {
			return declaration.Pos(), true
		}
		if len(segments) == 2 && declaration.Name.Name == segments[0] {
			return matchGoTypeMember(declaration, segments[1])
		}
	case *ast.ValueSpec:
		if len(segments) != 1 {
			return token.NoPos, false
		}
		for _, name := range declaration.Names {
			if name.Name == segments[0] {
				return name.Pos(), true
			}
		}
	}
	return token.NoPos, false
}

// matchGoTypeMember finds struct fields and interface methods.
func matchGoTypeMember(typeSpec *ast.TypeSpec, memberName string) (token.Pos, bool) {
	var fields *ast.FieldList
	switch typed := typeSpec.Type.(type) {
	case *ast.StructType:
		fields = typed.Fields
	case *ast.InterfaceType:
		fields = typed.Methods
	}
	if fields == nil {
		return token.NoPos, false
	}
	for _, field := range fields.List {
		for _, name := range field.Names {
			if name.Name == memberName {
				return name.Pos(), true
			}
		}
	}
	return token.NoPos, false
}

// insideFunctionBody reports whether any ancestor is a function, so local
// declarations never shadow package-level ones.
func insideFunctionBody(ancestors []ast.Node) bool {
	for _, ancestor := range ancestors {
		switch ancestor.(type) {
		case *ast.FuncDecl, *ast.FuncLit:
			return true
		}
	}
	return false
}

func goReceiverTypeName(declaration *ast.FuncDecl) string {
	if declaration.Recv == nil || len(declaration.Recv.List) == 0 {
		return ""
	}
	receiverType := declaration.Recv.List[0].Type
	for {
		switch typed := receiverType.(type) {
		case *ast.StarExpr:
			receiverType = typed.X
		case *ast.IndexExpr:
			receiverType = typed.X
		case *ast.IndexListExpr:
			receiverType = typed.X
		case *ast.ParenExpr:
			receiverType = typed.X
		case *ast.Ident:
			return typed.Name
		default:
			return ""
		}
	}
}
