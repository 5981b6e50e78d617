package javasrc

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ClassDecl is one type declaration found by the pre-scan: its qualified
// name plus the extends/implements pairs spelled in the source. Nested types
// use the bytecode $ separator so they line up with disassembly facts.
type ClassDecl struct {
	Name       string
	Super      string
	Interfaces []string
}

// UnitInfo is the pre-scan result for one source file.
type UnitInfo struct {
	Package string
	Classes []ClassDecl
}

// PreScan extracts package identity and inheritance pairs from one Java
// source file. It runs before any rewriting so the symbol index knows the
// full inheritance picture, including classes that exist only in source.
func (p *Parser) PreScan(ctx context.Context, content []byte) (*UnitInfo, error) {
	tree, err := p.Parse(ctx, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	info := &UnitInfo{}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "package_declaration" {
			info.Package = packageName(child, content)
			break
		}
	}
	collectClasses(root, content, info.Package, "", info)
	return info, nil
}

func packageName(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "scoped_identifier", "identifier":
			return child.Content(content)
		}
	}
	return ""
}

func collectClasses(node *sitter.Node, content []byte, pkg, outer string, info *UnitInfo) {
	switch node.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := nameNode.Content(content)
		if outer != "" {
			name = outer + "$" + name
		}
		decl := ClassDecl{Name: qualify(pkg, name)}

		if superNode := node.ChildByFieldName("superclass"); superNode != nil {
			decl.Super = firstTypeName(superNode, content)
		}
		if ifacesNode := node.ChildByFieldName("interfaces"); ifacesNode != nil {
			decl.Interfaces = typeNames(ifacesNode, content)
		}
		info.Classes = append(info.Classes, decl)

		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				collectClasses(body.NamedChild(i), content, pkg, name, info)
			}
		}
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectClasses(node.NamedChild(i), content, pkg, outer, info)
	}
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// firstTypeName returns the first type mentioned under node, generics
// stripped.
func firstTypeName(node *sitter.Node, content []byte) string {
	names := typeNames(node, content)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// typeNames collects every type identifier directly mentioned under node,
// e.g. the list after implements.
func typeNames(node *sitter.Node, content []byte) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "type_identifier", "scoped_type_identifier", "scoped_identifier":
			names = append(names, stripGenerics(n.Content(content)))
			return
		case "generic_type":
			// Keep the raw type, drop its arguments.
			names = append(names, stripGenerics(n.Content(content)))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)
	return names
}

func stripGenerics(t string) string {
	if idx := strings.Index(t, "<"); idx >= 0 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}
