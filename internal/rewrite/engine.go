// Package rewrite restores original identifiers in decompiled Java source.
// One syntax-tree traversal per compilation unit collects byte-range edits
// against the immutable source buffer; receiver types are inferred from a
// scoped type environment so member renames only fire when the static type
// is actually known.
package rewrite

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/deobf-dev/deobf/internal/javasrc"
	"github.com/deobf-dev/deobf/internal/symbols"
)

// DefaultErrorThreshold is the maximum tolerated fraction of error nodes in
// a parsed unit before the structural rewrite refuses to run.
const DefaultErrorThreshold = 0.10

// Options tunes one engine.
type Options struct {
	// ErrorThreshold overrides DefaultErrorThreshold when > 0.
	ErrorThreshold float64
	// ApplyHeuristics writes tagged low-confidence names into the source.
	// Off by default: heuristic names belong in reports, not in code.
	ApplyHeuristics bool
}

// Engine rewrites compilation units against a shared symbol index. The index
// is read-only here; the engine itself holds a parser and is not safe for
// concurrent use, so give each worker its own.
type Engine struct {
	index     *symbols.Index
	parser    *javasrc.Parser
	threshold float64
	heuristic bool
}

// NewEngine creates a rewrite engine over a warmed symbol index.
func NewEngine(index *symbols.Index, opts Options) *Engine {
	threshold := opts.ErrorThreshold
	if threshold <= 0 {
		threshold = DefaultErrorThreshold
	}
	return &Engine{
		index:     index,
		parser:    javasrc.NewParser(),
		threshold: threshold,
		heuristic: opts.ApplyHeuristics,
	}
}

// RewriteClass rewrites one compilation unit. currentClass is the unit's own
// obfuscated qualified class identity, known from its path. A
// *javasrc.ParseQualityError is returned when the tree is too broken to
// rewrite structurally; callers fall back to the legacy rewriter.
func (e *Engine) RewriteClass(ctx context.Context, source []byte, currentClass string) ([]byte, error) {
	tree, err := e.parser.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if ratio := javasrc.ErrorRatio(root); ratio > e.threshold {
		return nil, &javasrc.ParseQualityError{Path: currentClass, Ratio: ratio, Threshold: e.threshold}
	}

	run := &rewriteRun{
		engine:       e,
		source:       source,
		currentClass: currentClass,
		env:          NewTypeEnvironment(currentClass),
		edits:        NewEditSet(),
	}
	run.visit(root)
	return run.edits.Apply(source), nil
}

// rewriteRun is the per-unit traversal state.
type rewriteRun struct {
	engine       *Engine
	source       []byte
	currentClass string
	env          *TypeEnvironment
	edits        *EditSet
}

func (r *rewriteRun) text(node *sitter.Node) string {
	return node.Content(r.source)
}

func (r *rewriteRun) visit(node *sitter.Node) {
	scoped := opensScope(node.Type())
	if scoped {
		r.env.Push()
	}

	switch node.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration":
		r.handleClassDecl(node)
	case "constructor_declaration":
		r.handleConstructorDecl(node)
	case "method_declaration":
		r.handleMethodDecl(node)
	case "field_declaration":
		r.handleFieldDecl(node)
	case "import_declaration":
		r.handleImport(node)
	case "local_variable_declaration":
		r.handleLocalVarDecl(node)
	case "formal_parameter", "catch_formal_parameter":
		r.handleFormalParam(node)
	case "enhanced_for_statement":
		r.handleEnhancedFor(node)
	case "method_invocation":
		r.handleMethodInvocation(node)
	case "field_access":
		r.handleFieldAccess(node)
	case "scoped_type_identifier":
		r.handleScopedType(node)
	case "type_identifier":
		r.handleTypeIdentifier(node)
	case "string_literal":
		r.handleStringLiteral(node)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		r.visit(node.Child(i))
	}

	if scoped {
		r.env.Pop()
	}
}

func opensScope(kind string) bool {
	switch kind {
	case "block", "method_declaration", "constructor_declaration",
		"for_statement", "enhanced_for_statement", "catch_clause",
		"lambda_expression", "static_initializer":
		return true
	}
	return false
}

// handleClassDecl rewrites the declared name using the unit's own class
// identity; a context-free short-name lookup is only the fallback, and only
// when that short name is collision-free across the whole table.
func (r *rewriteRun) handleClassDecl(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := r.text(nameNode)

	if orig, ok := r.engine.index.Table().ClassName(r.currentClass); ok {
		origShort := shortOf(orig)
		if shortOf(r.currentClass) == name && origShort != name {
			r.edits.Add(nameNode.StartByte(), nameNode.EndByte(), origShort)
		}
	} else if origShort, ok := r.engine.index.Table().ShortName(name); ok {
		r.edits.Add(nameNode.StartByte(), nameNode.EndByte(), origShort)
	}

	if superNode := node.ChildByFieldName("superclass"); superNode != nil {
		r.handleTypeClause(superNode)
	}
	if ifacesNode := node.ChildByFieldName("interfaces"); ifacesNode != nil {
		r.handleTypeClause(ifacesNode)
	}
}

// handleTypeClause rewrites the type tokens of an extends/implements clause.
// Interface lists may be nested in list wrappers, hence the recursion.
func (r *rewriteRun) handleTypeClause(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type_identifier":
			if origShort, ok := r.engine.index.Table().ShortName(r.text(child)); ok {
				r.edits.Add(child.StartByte(), child.EndByte(), origShort)
			}
		case "scoped_type_identifier":
			r.handleScopedType(child)
		case "type_list", "generic_type":
			r.handleTypeClause(child)
		}
	}
}

// handleConstructorDecl keeps the constructor name in lockstep with the
// class declaration rename.
func (r *rewriteRun) handleConstructorDecl(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := r.text(nameNode)

	if orig, ok := r.engine.index.Table().ClassName(r.currentClass); ok {
		origShort := shortOf(orig)
		if shortOf(r.currentClass) == name && origShort != name {
			r.edits.Add(nameNode.StartByte(), nameNode.EndByte(), origShort)
		}
	} else if origShort, ok := r.engine.index.Table().ShortName(name); ok {
		r.edits.Add(nameNode.StartByte(), nameNode.EndByte(), origShort)
	}
}

// handleMethodDecl renames a method declared by the current class. The
// lookup walks the inheritance chain, so overrides of a renamed ancestor
// method track the ancestor's name.
func (r *rewriteRun) handleMethodDecl(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := r.text(nameNode)
	arity := 0
	if params := node.ChildByFieldName("parameters"); params != nil {
		arity = int(params.NamedChildCount())
	}
	res := r.engine.index.ResolveMethod(r.currentClass, name, arity)
	if r.accepts(res) && res.Name != name {
		r.edits.Add(nameNode.StartByte(), nameNode.EndByte(), res.Name)
	}
}

func (r *rewriteRun) handleFieldDecl(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := r.text(nameNode)
		res := r.engine.index.ResolveField(r.currentClass, name)
		if r.accepts(res) && res.Name != name {
			r.edits.Add(nameNode.StartByte(), nameNode.EndByte(), res.Name)
		}
	}
}

func (r *rewriteRun) handleImport(node *sitter.Node) {
	var pathNode *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == "scoped_identifier" {
			pathNode = child
			break
		}
	}
	if pathNode == nil {
		return
	}
	path := r.text(pathNode)

	if orig, ok := r.engine.index.Table().ClassName(path); ok {
		r.edits.Add(pathNode.StartByte(), pathNode.EndByte(), orig)
		return
	}
	// Inner-class import paths: rewrite only the trailing segment when it is
	// an unambiguous short name, keeping the rest of the path intact.
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return
	}
	if origShort, ok := r.engine.index.Table().ShortName(path[idx+1:]); ok {
		r.edits.Add(pathNode.StartByte(), pathNode.EndByte(), path[:idx+1]+origShort)
	}
}

func (r *rewriteRun) handleLocalVarDecl(node *sitter.Node) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	declared := r.typeName(typeNode)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		if nameNode := child.ChildByFieldName("name"); nameNode != nil {
			r.env.Bind(r.text(nameNode), declared)
		}
	}
}

func (r *rewriteRun) handleFormalParam(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	var declared string
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		declared = r.typeName(typeNode)
	} else {
		// catch parameters keep the type in a catch_type child.
		for i := 0; i < int(node.ChildCount()); i++ {
			if child := node.Child(i); child.Type() == "catch_type" {
				declared = r.typeName(child.NamedChild(0))
				break
			}
		}
	}
	r.env.Bind(r.text(nameNode), declared)
}

func (r *rewriteRun) handleEnhancedFor(node *sitter.Node) {
	typeNode := node.ChildByFieldName("type")
	nameNode := node.ChildByFieldName("name")
	if typeNode != nil && nameNode != nil {
		r.env.Bind(r.text(nameNode), r.typeName(typeNode))
	}
}

func (r *rewriteRun) handleMethodInvocation(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	methodName := r.text(nameNode)

	receiverType := r.currentClass
	if objNode := node.ChildByFieldName("object"); objNode != nil {
		receiverType = r.exprType(objNode)
	}
	if receiverType == "" {
		return
	}

	arity := countArguments(node.ChildByFieldName("arguments"))
	res := r.engine.index.ResolveMethod(receiverType, methodName, arity)
	if r.accepts(res) && res.Name != methodName {
		r.edits.Add(nameNode.StartByte(), nameNode.EndByte(), res.Name)
	}
}

func (r *rewriteRun) handleFieldAccess(node *sitter.Node) {
	fieldNode := node.ChildByFieldName("field")
	objNode := node.ChildByFieldName("object")
	if fieldNode == nil || objNode == nil {
		return
	}
	// When this access is the receiver of an enclosing invocation the method
	// name belongs to the outer node; the field token is still a field. Only
	// a token that *is* the outer invocation's name must be left alone.
	if parent := node.Parent(); parent != nil && parent.Type() == "method_invocation" {
		if outerName := parent.ChildByFieldName("name"); outerName != nil && outerName.Equal(fieldNode) {
			return
		}
	}

	receiverType := r.exprType(objNode)
	if receiverType == "" {
		return
	}
	fieldName := r.text(fieldNode)
	res := r.engine.index.ResolveField(receiverType, fieldName)
	if r.accepts(res) && res.Name != fieldName {
		r.edits.Add(fieldNode.StartByte(), fieldNode.EndByte(), res.Name)
	}
}

func (r *rewriteRun) handleScopedType(node *sitter.Node) {
	// Nested prefixes of an enclosing qualified name are handled with that
	// name; rewriting them independently would overlap its edit span.
	if parent := node.Parent(); parent != nil && parent.Type() == "scoped_type_identifier" {
		return
	}
	full := r.text(node)
	if orig, ok := r.engine.index.Table().ClassName(full); ok {
		r.edits.Add(node.StartByte(), node.EndByte(), orig)
		return
	}
	// Fall back to the trailing short-name segment.
	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		child := node.Child(i)
		if child.Type() != "type_identifier" {
			continue
		}
		if origShort, ok := r.engine.index.Table().ShortName(r.text(child)); ok {
			r.edits.Add(child.StartByte(), child.EndByte(), origShort)
		}
		return
	}
}

func (r *rewriteRun) handleTypeIdentifier(node *sitter.Node) {
	parent := node.Parent()
	if parent != nil {
		switch parent.Type() {
		case "scoped_type_identifier":
			return // handled as part of the qualified name
		case "class_declaration", "interface_declaration", "enum_declaration":
			return // handled with the unit's class identity
		}
	}
	if origShort, ok := r.engine.index.Table().ShortName(r.text(node)); ok {
		r.edits.Add(node.StartByte(), node.EndByte(), origShort)
	}
}

// handleStringLiteral rewrites reflection targets only. Anything outside an
// exact forName/getMethod/getDeclaredMethod argument position is never
// touched.
func (r *rewriteRun) handleStringLiteral(node *sitter.Node) {
	full := r.text(node)
	if len(full) < 4 { // quotes plus at least two characters
		return
	}
	content := full[1 : len(full)-1]

	parent := node.Parent()
	if parent == nil || parent.Type() != "argument_list" {
		return
	}
	call := parent.Parent()
	if call == nil || call.Type() != "method_invocation" {
		return
	}
	nameNode := call.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	switch r.text(nameNode) {
	case "forName":
		if objNode := call.ChildByFieldName("object"); objNode != nil {
			switch r.text(objNode) {
			case "Class", "java.lang.Class":
			default:
				return
			}
		}
		if !strings.Contains(content, ".") {
			return
		}
		if orig, ok := r.engine.index.Table().ClassName(content); ok {
			r.edits.Add(node.StartByte()+1, node.EndByte()-1, orig)
		}
	case "getMethod", "getDeclaredMethod":
		first := parent.NamedChild(0)
		if first == nil || !first.Equal(node) {
			return
		}
		if orig, ok := r.engine.index.Table().MethodRename(content); ok {
			r.edits.Add(node.StartByte()+1, node.EndByte()-1, orig)
		}
	}
}

// accepts decides whether a resolution is strong enough to write into code.
func (r *rewriteRun) accepts(res symbols.Resolution) bool {
	if res.Verified() {
		return true
	}
	return r.engine.heuristic && res.Resolved()
}

// exprType infers the static type of a receiver expression. Unknown
// expression kinds yield "", which halts resolution for that node.
func (r *rewriteRun) exprType(node *sitter.Node) string {
	switch node.Type() {
	case "identifier":
		t, _ := r.env.Lookup(r.text(node))
		return t
	case "this":
		return r.currentClass
	case "field_access":
		objNode := node.ChildByFieldName("object")
		fieldNode := node.ChildByFieldName("field")
		if objNode == nil || fieldNode == nil {
			return ""
		}
		objType := r.exprType(objNode)
		if objType == "" {
			return ""
		}
		t, _ := r.engine.index.FieldType(objType, r.text(fieldNode))
		return t
	case "method_invocation":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return ""
		}
		objType := r.currentClass
		if objNode := node.ChildByFieldName("object"); objNode != nil {
			objType = r.exprType(objNode)
		}
		if objType == "" {
			return ""
		}
		t, _ := r.engine.index.MethodReturnType(objType, r.text(nameNode))
		return t
	case "parenthesized_expression":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			return r.exprType(node.NamedChild(i))
		}
		return ""
	case "cast_expression":
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			return r.typeName(typeNode)
		}
		return ""
	}
	return ""
}

// typeName extracts a usable type name from a type node, generics reduced to
// their raw type and arrays kept as element[].
func (r *rewriteRun) typeName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "generic_type":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "type_identifier" || child.Type() == "scoped_type_identifier" {
				return r.text(child)
			}
		}
	case "array_type":
		if elem := node.ChildByFieldName("element"); elem != nil {
			return r.typeName(elem) + "[]"
		}
	}
	return r.text(node)
}

func countArguments(argsNode *sitter.Node) int {
	if argsNode == nil {
		return 0
	}
	return int(argsNode.NamedChildCount())
}

func shortOf(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
