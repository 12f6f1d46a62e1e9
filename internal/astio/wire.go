// Package astio reads and writes programs in the kast interchange format,
// the hand-off between an external parser and this toolchain. The same
// tree has a compact msgpack encoding (.kast) and a JSON one (.kast.json).
package astio

// schemaVersion is bumped whenever the wire layout changes.
const schemaVersion uint16 = 1

const magic = "kast"

type wireFile struct {
	Magic   string      `msgpack:"magic" json:"magic"`
	Version uint16      `msgpack:"version" json:"version"`
	Stmts   []*wireNode `msgpack:"stmts" json:"stmts"`
}

type wireSpan struct {
	Start uint32 `msgpack:"s" json:"start"`
	End   uint32 `msgpack:"e" json:"end"`
}

// wireNode is the single shape used for every statement and expression.
// Which fields are meaningful depends on T:
//
//	print, expr, return    kids[0] is the value (return may have none)
//	let                    name, flag=mutable, kids[0]
//	if                     kids[0]=cond, body, else
//	while                  kids[0]=cond, body
//	for                    name=var, kids=[start, end], body
//	fn                     name, flag=public, params, body
//	struct                 name, aux=parent, fields, methods
//	import                 name=module
//	int/float/bool/string  int/float/flag/str
//	ident                  name
//	binary                 op, kids=[left, right]
//	assign                 name, kids[0]; compound adds op
//	call                   aux=module, name, kids=args
//	method_call            name=method, kids=[recv, args...]
//	lambda                 params (names only), kids[0]=body
//	borrow                 flag=mutable, kids[0]
//	match                  kids[0], arms
//	struct_lit             name, labels[i] names kids[i]
//	field / field_assign   name=field, kids=[x] or [x, value]
//	dict                   kids alternate key, value
//	slice                  kids=[x, start, end], bounds may be null
//	comprehension          aux=list|set|dict, name=var, kids=[key, elem, iter, cond]
type wireNode struct {
	T       string        `msgpack:"t" json:"t"`
	Span    *wireSpan     `msgpack:"sp,omitempty" json:"span,omitempty"`
	Name    string        `msgpack:"n,omitempty" json:"name,omitempty"`
	Aux     string        `msgpack:"a,omitempty" json:"aux,omitempty"`
	Op      string        `msgpack:"op,omitempty" json:"op,omitempty"`
	Int     int64         `msgpack:"i,omitempty" json:"int,omitempty"`
	Float   float64       `msgpack:"f,omitempty" json:"float,omitempty"`
	Str     string        `msgpack:"s,omitempty" json:"str,omitempty"`
	Flag    bool          `msgpack:"b,omitempty" json:"flag,omitempty"`
	Kids    []*wireNode   `msgpack:"x,omitempty" json:"kids,omitempty"`
	Labels  []string      `msgpack:"l,omitempty" json:"labels,omitempty"`
	Body    []*wireNode   `msgpack:"body,omitempty" json:"body,omitempty"`
	Else    []*wireNode   `msgpack:"else,omitempty" json:"else,omitempty"`
	Params  []wireParam   `msgpack:"p,omitempty" json:"params,omitempty"`
	Fields  []wireField   `msgpack:"fl,omitempty" json:"fields,omitempty"`
	Methods []*wireMethod `msgpack:"m,omitempty" json:"methods,omitempty"`
	Arms    []wireArm     `msgpack:"arms,omitempty" json:"arms,omitempty"`
}

type wireParam struct {
	Name   string `msgpack:"n" json:"name"`
	Borrow string `msgpack:"b,omitempty" json:"borrow,omitempty"` // "", "&" or "&mut"
}

type wireField struct {
	Name    string `msgpack:"n" json:"name"`
	Type    string `msgpack:"t,omitempty" json:"type,omitempty"`
	Public  bool   `msgpack:"pub,omitempty" json:"pub,omitempty"`
	Mutable bool   `msgpack:"mut,omitempty" json:"mut,omitempty"`
}

type wireMethod struct {
	Role   string      `msgpack:"r,omitempty" json:"role,omitempty"` // "init", "destroy" or empty
	Name   string      `msgpack:"n" json:"name"`
	Public bool        `msgpack:"pub,omitempty" json:"pub,omitempty"`
	Params []wireParam `msgpack:"p,omitempty" json:"params,omitempty"`
	Body   []*wireNode `msgpack:"body,omitempty" json:"body,omitempty"`
}

type wirePattern struct {
	Kind string `msgpack:"k" json:"kind"`
	Bind string `msgpack:"n,omitempty" json:"bind,omitempty"`
	Int  int64  `msgpack:"i,omitempty" json:"int,omitempty"`
	Str  string `msgpack:"s,omitempty" json:"str,omitempty"`
}

type wireArm struct {
	Pattern wirePattern `msgpack:"p" json:"pattern"`
	Body    *wireNode   `msgpack:"body" json:"body"`
}

const (
	roleInit    = "init"
	roleDestroy = "destroy"
)
