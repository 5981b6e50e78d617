package symbols

// DefaultHeuristicPrefix tags names produced by the pattern tables so
// downstream consumers can filter them out of high-confidence output.
const DefaultHeuristicPrefix = "inferred_"

// shapeKey describes a method by return type and parameter count, which is
// all the pattern table can key on once the real name is gone.
type shapeKey struct {
	returnType string
	paramCount int
}

// methodShapePatterns maps a method shape to candidate names, most likely
// first. These are conventions observed across typical app codebases, not
// guarantees; anything produced from them is tagged low confidence.
var methodShapePatterns = map[shapeKey][]string{
	{"void", 0}:    {"init", "update", "reset", "clear", "dispose", "destroy"},
	{"void", 1}:    {"set", "add", "remove", "process", "handle", "apply"},
	{"void", 2}:    {"set", "move", "copy", "swap", "transfer"},
	{"boolean", 0}: {"isValid", "isEnabled", "isEmpty", "hasContent", "isReady"},
	{"boolean", 1}: {"equals", "contains", "matches", "accept", "canHandle"},
	{"int", 0}:     {"size", "count", "length", "hashCode", "getId"},
	{"int", 1}:     {"indexOf", "compare", "get", "computeHash"},
	{"String", 0}:  {"toString", "getName", "getDescription", "getValue"},
	{"Object", 0}:  {"get", "create", "clone", "copy"},
	{"Object", 1}:  {"get", "find", "create", "transform"},
}

// returnTypeHints is the fallback when no shape pattern applies.
var returnTypeHints = map[string][]string{
	"boolean": {"is", "has", "can", "should", "check"},
	"int":     {"get", "count", "size", "index", "calculate"},
	"long":    {"get", "getId", "getTime", "getTimestamp"},
	"float":   {"get", "getX", "getY", "getWidth", "getHeight", "calculate"},
	"double":  {"get", "calculate", "compute"},
	"String":  {"get", "getName", "toString", "getDescription", "format"},
	"void":    {"set", "update", "init", "reset", "clear", "add", "remove", "process"},
}

// guessMethodName proposes a name for a method shape, or "" when neither
// table has an opinion. Callers own tagging the result with the prefix.
func guessMethodName(returnType string, paramCount int) string {
	if paramCount >= 0 {
		if candidates := methodShapePatterns[shapeKey{returnType, paramCount}]; len(candidates) > 0 {
			return candidates[0]
		}
	}
	if hints := returnTypeHints[returnType]; len(hints) > 0 {
		return hints[0]
	}
	return ""
}
