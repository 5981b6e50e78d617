package rewrite

// TypeEnvironment tracks name -> declared type bindings during a traversal
// as a stack of lexical scopes. Scopes are pushed at block boundaries and
// popped on exit, so a variable declared in one block never leaks into a
// sibling block reusing the same name.
type TypeEnvironment struct {
	scopes []map[string]string
}

// NewTypeEnvironment creates an environment with one root scope binding
// "this" to the current class.
func NewTypeEnvironment(currentClass string) *TypeEnvironment {
	env := &TypeEnvironment{}
	env.Push()
	env.Bind("this", currentClass)
	return env
}

// Push opens a new innermost scope.
func (e *TypeEnvironment) Push() {
	e.scopes = append(e.scopes, map[string]string{})
}

// Pop closes the innermost scope. The root scope is never popped.
func (e *TypeEnvironment) Pop() {
	if len(e.scopes) > 1 {
		e.scopes = e.scopes[:len(e.scopes)-1]
	}
}

// Bind records a declaration in the innermost scope.
func (e *TypeEnvironment) Bind(name, declaredType string) {
	if name == "" || declaredType == "" {
		return
	}
	e.scopes[len(e.scopes)-1][name] = declaredType
}

// Lookup resolves a name innermost-first, honoring shadowing.
func (e *TypeEnvironment) Lookup(name string) (string, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if t, ok := e.scopes[i][name]; ok {
			return t, true
		}
	}
	return "", false
}
