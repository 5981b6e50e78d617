// Package descriptor decodes JVM type and method descriptors into display
// type names. Decoding is deliberately tolerant: obfuscators are known to
// emit malformed descriptors on purpose, so every failure path returns a
// tagged invalid marker instead of an error.
package descriptor

import "strings"

// primitiveNames maps the single-letter JVM type codes to their Java names.
var primitiveNames = map[byte]string{
	'V': "void",
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
}

// DecodeType converts a single JVM type descriptor (e.g. "I", "[J",
// "Lcom/example/Widget;") into a display name. The second return value is
// false when the descriptor is malformed; the returned string then carries an
// <invalid:...> marker so callers can log it and move on.
func DecodeType(desc string) (string, bool) {
	if desc == "" {
		return "void", true
	}

	if len(desc) == 1 {
		if name, ok := primitiveNames[desc[0]]; ok {
			return name, true
		}
	}

	if desc[0] == '[' {
		elem, ok := DecodeType(desc[1:])
		if !ok {
			return "<invalid_array:" + desc + ">", false
		}
		return elem + "[]", true
	}

	if desc[0] == 'L' && strings.HasSuffix(desc, ";") {
		full := strings.ReplaceAll(desc[1:len(desc)-1], "/", ".")
		// Classes in the default package (e.g. "La;") have no qualifier.
		if !strings.Contains(full, ".") {
			return full, true
		}
		return full[strings.LastIndex(full, ".")+1:], true
	}

	return "<invalid:" + desc + ">", false
}

// DecodeQualifiedType is DecodeType but keeps the full dotted qualifier for
// object types instead of reducing them to the short class name.
func DecodeQualifiedType(desc string) (string, bool) {
	if desc == "" {
		return "void", true
	}
	if desc[0] == '[' {
		elem, ok := DecodeQualifiedType(desc[1:])
		if !ok {
			return "<invalid_array:" + desc + ">", false
		}
		return elem + "[]", true
	}
	if desc[0] == 'L' && strings.HasSuffix(desc, ";") {
		return strings.ReplaceAll(desc[1:len(desc)-1], "/", "."), true
	}
	return DecodeType(desc)
}

// DecodeMethodDescriptor splits a method descriptor like
// "(ILjava/lang/String;)V" into decoded parameter types and a return type.
// ok is false when any portion fails to decode; decoded portions are still
// returned so diagnostics can show what was recoverable.
func DecodeMethodDescriptor(desc string) (params []string, ret string, ok bool) {
	return decodeMethod(desc, DecodeType)
}

// DecodeMethodDescriptorQualified is DecodeMethodDescriptor with fully
// qualified object type names, for callers that need to compare types across
// namespaces rather than display them.
func DecodeMethodDescriptorQualified(desc string) (params []string, ret string, ok bool) {
	return decodeMethod(desc, DecodeQualifiedType)
}

func decodeMethod(desc string, decode func(string) (string, bool)) (params []string, ret string, ok bool) {
	if desc == "" || desc[0] != '(' {
		return nil, "void", false
	}

	end := strings.IndexByte(desc, ')')
	if end < 0 {
		return nil, "<invalid_descriptor>", false
	}

	ok = true
	body := desc[1:end]
	i := 0
	for i < len(body) {
		c := body[i]

		if name, prim := primitiveNames[c]; prim && c != 'V' {
			params = append(params, name)
			i++
			continue
		}

		switch c {
		case 'L':
			semi := strings.IndexByte(body[i:], ';')
			if semi < 0 {
				params = append(params, "<truncated:"+body[i:]+">")
				return params, "<invalid_descriptor>", false
			}
			name, objOK := decode(body[i : i+semi+1])
			if !objOK {
				ok = false
			}
			params = append(params, name)
			i += semi + 1
		case '[':
			depth := 0
			for i < len(body) && body[i] == '[' {
				depth++
				i++
			}
			if i >= len(body) {
				params = append(params, "<incomplete_array>")
				return params, "<invalid_descriptor>", false
			}
			var base string
			if body[i] == 'L' {
				semi := strings.IndexByte(body[i:], ';')
				if semi < 0 {
					params = append(params, "<truncated:"+body[i:]+">")
					return params, "<invalid_descriptor>", false
				}
				var objOK bool
				base, objOK = decode(body[i : i+semi+1])
				if !objOK {
					ok = false
				}
				i += semi + 1
			} else if name, prim := primitiveNames[body[i]]; prim {
				base = name
				i++
			} else {
				base = "<invalid_base:" + string(body[i]) + ">"
				ok = false
				i++
			}
			params = append(params, base+strings.Repeat("[]", depth))
		default:
			params = append(params, "<invalid_char:"+string(c)+">")
			ok = false
			i++
		}
	}

	ret, retOK := decode(desc[end+1:])
	if !retOK {
		ok = false
	}
	return params, ret, ok
}

// ParamCount reports the number of parameters encoded in a method
// descriptor, or -1 when the descriptor cannot be parsed.
func ParamCount(desc string) int {
	params, _, ok := DecodeMethodDescriptor(desc)
	if !ok && params == nil {
		return -1
	}
	return len(params)
}
