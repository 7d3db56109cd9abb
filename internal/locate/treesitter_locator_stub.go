//go:build !cgo

package locate

// NewJavaScriptLocator returns nil when cgo is unavailable so the registry
// skips JavaScript files on platforms that cannot build the tree-sitter bindings.
func NewJavaScriptLocator() Locator {
	return nil
}

// NewTypeScriptLocator returns nil when cgo is unavailable.
func NewTypeScriptLocator() Locator {
	return nil
}

// NewPythonLocator returns nil when cgo is unavailable.
func NewPythonLocator() Locator {
	return nil
}
