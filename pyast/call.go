package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// AttributeChain resolves the dotted path of an attribute, call target, or
// bare identifier. For `tf.keras.backend.clear_session(...)` it returns root
// "tf" and attrs ["keras", "backend", "clear_session"]. The root is "" when
// the chain does not bottom out in a plain identifier (e.g. a call result or
// subscript as receiver).
func AttributeChain(n *sitter.Node, src []byte) (root string, attrs []string) {
	if n == nil {
		return "", nil
	}
	if n.Type() == "call" {
		n = n.ChildByFieldName("function")
	}
	for n != nil && n.Type() == "attribute" {
		attrs = append([]string{Text(n.ChildByFieldName("attribute"), src)}, attrs...)
		n = n.ChildByFieldName("object")
	}
	if n != nil && n.Type() == "identifier" {
		root = Text(n, src)
	}
	return root, attrs
}

// CallName returns the function name of a call: the final attribute for
// method calls, the identifier for plain calls, "" otherwise.
func CallName(call *sitter.Node, src []byte) string {
	if call == nil || call.Type() != "call" {
		return ""
	}
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return Text(fn, src)
	case "attribute":
		return Text(fn.ChildByFieldName("attribute"), src)
	}
	return ""
}

// CallReceiver returns the object node a method call is invoked on, or nil
// for plain function calls.
func CallReceiver(call *sitter.Node) *sitter.Node {
	if call == nil || call.Type() != "call" {
		return nil
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return nil
	}
	return fn.ChildByFieldName("object")
}

// CallArgs returns the positional argument nodes of a call in order.
func CallArgs(call *sitter.Node) []*sitter.Node {
	args := argumentList(call)
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "keyword_argument" || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// CallKeywords returns the keyword argument names of a call in order.
func CallKeywords(call *sitter.Node, src []byte) []string {
	args := argumentList(call)
	if args == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() != "keyword_argument" {
			continue
		}
		if name := child.ChildByFieldName("name"); name != nil {
			out = append(out, Text(name, src))
		}
	}
	return out
}

// HasKeyword reports whether a call passes the named keyword argument.
func HasKeyword(call *sitter.Node, src []byte, name string) bool {
	for _, kw := range CallKeywords(call, src) {
		if kw == name {
			return true
		}
	}
	return false
}

func argumentList(call *sitter.Node) *sitter.Node {
	if call == nil || call.Type() != "call" {
		return nil
	}
	return call.ChildByFieldName("arguments")
}
