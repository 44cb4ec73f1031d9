/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package tracker

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/convguard/internal/lang"
	"github.com/fulmenhq/convguard/internal/lattice"
)

// ParamKind is the conversion context a known callee applies to an argument.
type ParamKind uint8

const (
	ParamAny ParamKind = iota
	// ParamNumber arguments are coerced to numbers.
	ParamNumber
	// ParamString arguments are coerced to strings.
	ParamString
	// ParamQuery arguments are interpreted as query or command text.
	ParamQuery
)

func (p ParamKind) String() string {
	switch p {
	case ParamNumber:
		return "number"
	case ParamString:
		return "string"
	case ParamQuery:
		return "query"
	default:
		return "any"
	}
}

// Callee describes a function whose behavior the tracker knows.
type Callee struct {
	// Pattern matches the dotted callee path, e.g. "parseInt", "Math.*", "**.query".
	Pattern   string
	Returns   lattice.Kind
	Params    []ParamKind
	Variadic  bool
	Sanitizer bool

	glob string
}

// Param returns the context of the i-th argument.
func (c *Callee) Param(i int) ParamKind {
	if i < len(c.Params) {
		return c.Params[i]
	}
	if c.Variadic && len(c.Params) > 0 {
		return c.Params[len(c.Params)-1]
	}
	return ParamAny
}

type sourcePattern struct {
	glob string
	call bool
	arg  string
}

// Catalog holds the external-input sources and known callees of one language.
type Catalog struct {
	lang    lang.Language
	sources []sourcePattern
	callees []*Callee
}

// toGlob turns a dotted, arrow or scope path into a slash-separated doublestar pattern.
func toGlob(p string) string {
	r := strings.NewReplacer("->", "/", "::", "/", ".", "/")
	return r.Replace(strings.TrimPrefix(strings.TrimSpace(p), "\\"))
}

// NewCatalog builds the default catalog for l plus configured sources and sanitizers.
// Extra sources use the same syntax as the defaults: "req.query", "$_SESSION", "readInput()",
// "file_get_contents('php://input')". Extra sanitizers are callee patterns.
func NewCatalog(l lang.Language, extraSources, extraSanitizers []string) (*Catalog, error) {
	c := &Catalog{lang: l}

	var sources []string
	var callees []Callee
	switch l {
	case lang.JavaScript:
		sources, callees = jsSources, jsCallees
	case lang.PHP:
		sources, callees = phpSources, phpCallees
	}

	for _, s := range extraSanitizers {
		name := strings.TrimSuffix(strings.TrimSpace(s), "()")
		if err := c.addCallee(Callee{Pattern: name, Sanitizer: true}); err != nil {
			return nil, err
		}
	}
	for _, cl := range callees {
		if err := c.addCallee(cl); err != nil {
			return nil, err
		}
	}
	for _, s := range append(append([]string{}, sources...), extraSources...) {
		if err := c.addSource(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) normalizeCall(path string) string {
	if c.lang == lang.PHP {
		// PHP function names are case-insensitive.
		return strings.ToLower(path)
	}
	return path
}

func (c *Catalog) addCallee(cl Callee) error {
	cl.glob = c.normalizeCall(toGlob(cl.Pattern))
	if cl.glob == "" || !doublestar.ValidatePattern(cl.glob) {
		return fmt.Errorf("invalid callee pattern %q", cl.Pattern)
	}
	c.callees = append(c.callees, &cl)
	return nil
}

func (c *Catalog) addSource(s string) error {
	s = strings.TrimSpace(s)
	sp := sourcePattern{}
	if name, rest, ok := strings.Cut(s, "("); ok {
		sp.call = true
		sp.arg = unquote(strings.TrimSpace(strings.TrimSuffix(rest, ")")))
		sp.glob = c.normalizeCall(toGlob(name))
	} else {
		sp.glob = toGlob(s)
	}
	if sp.glob == "" || !doublestar.ValidatePattern(sp.glob) {
		return fmt.Errorf("invalid source pattern %q", s)
	}
	c.sources = append(c.sources, sp)
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && strings.ContainsRune(`'"`+"`", rune(s[0])) && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func match(glob, path string) bool {
	if ok, _ := doublestar.Match(glob, path); ok {
		return true
	}
	ok, _ := doublestar.Match(glob+"/**", path)
	return ok
}

// IsSourcePath reports whether an identifier or member path reads external input.
func (c *Catalog) IsSourcePath(path string) bool {
	if path == "" {
		return false
	}
	for _, s := range c.sources {
		if !s.call && match(s.glob, path) {
			return true
		}
	}
	return false
}

// IsSourceCall reports whether calling path with the given first argument returns external input.
func (c *Catalog) IsSourceCall(path, firstArg string) bool {
	if path == "" {
		return false
	}
	path = c.normalizeCall(path)
	for _, s := range c.sources {
		if !s.call {
			continue
		}
		if ok, _ := doublestar.Match(s.glob, path); ok && (s.arg == "" || s.arg == firstArg) {
			return true
		}
	}
	return false
}

// Lookup returns the first known callee matching path, or nil.
func (c *Catalog) Lookup(path string) *Callee {
	if path == "" {
		return nil
	}
	path = c.normalizeCall(path)
	for _, cl := range c.callees {
		if ok, _ := doublestar.Match(cl.glob, path); ok {
			return cl
		}
	}
	return nil
}

var (
	num = []ParamKind{ParamNumber}
	str = []ParamKind{ParamString}
	qry = []ParamKind{ParamQuery}
)

var jsSources = []string{
	"req.query", "req.body", "req.params", "req.cookies", "req.headers",
	"request.query", "request.body", "request.params", "request.headers",
	"ctx.query", "ctx.params", "ctx.request.body",
	"process.env", "process.argv",
	"location.search", "location.hash", "location.href",
	"window.location.search", "window.location.hash", "window.location.href",
	"document.location", "document.cookie", "document.URL", "document.referrer", "window.name",
	"getUserInput()", "prompt()",
	"localStorage.getItem()", "sessionStorage.getItem()",
	"window.localStorage.getItem()", "window.sessionStorage.getItem()",
}

var jsCallees = []Callee{
	{Pattern: "parseInt", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "parseFloat", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "Number", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "Number.parseInt", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "Number.parseFloat", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "Number.isInteger", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "Number.isNaN", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "Boolean", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "isNaN", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "Math.*", Returns: lattice.Number, Params: num, Variadic: true, Sanitizer: true},
	{Pattern: "encodeURIComponent", Returns: lattice.String, Sanitizer: true},
	{Pattern: "encodeURI", Returns: lattice.String, Sanitizer: true},
	{Pattern: "escape", Returns: lattice.String, Sanitizer: true},
	{Pattern: "DOMPurify.sanitize", Returns: lattice.String, Sanitizer: true},
	{Pattern: "validator.escape", Returns: lattice.String, Sanitizer: true},
	{Pattern: "validator.toInt", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "validator.toFloat", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "**.indexOf", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "**.lastIndexOf", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "**.includes", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "**.startsWith", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "**.endsWith", Returns: lattice.Boolean, Sanitizer: true},

	{Pattern: "String", Returns: lattice.String},
	{Pattern: "JSON.stringify", Returns: lattice.String},
	{Pattern: "JSON.parse", Returns: lattice.Unknown},
	{Pattern: "**.toString", Returns: lattice.String},
	{Pattern: "**.toFixed", Returns: lattice.String, Params: num},
	{Pattern: "**.toPrecision", Returns: lattice.String, Params: num},
	{Pattern: "**.charAt", Returns: lattice.String, Params: num},
	{Pattern: "**.repeat", Returns: lattice.String, Params: num},
	{Pattern: "**.substring", Returns: lattice.String, Params: []ParamKind{ParamNumber, ParamNumber}},
	{Pattern: "**.substr", Returns: lattice.String, Params: []ParamKind{ParamNumber, ParamNumber}},
	{Pattern: "**.padStart", Returns: lattice.String, Params: []ParamKind{ParamNumber, ParamString}},
	{Pattern: "**.padEnd", Returns: lattice.String, Params: []ParamKind{ParamNumber, ParamString}},
	{Pattern: "setTimeout", Returns: lattice.Number, Params: []ParamKind{ParamAny, ParamNumber}},
	{Pattern: "setInterval", Returns: lattice.Number, Params: []ParamKind{ParamAny, ParamNumber}},
	{Pattern: "alert", Params: str},
	{Pattern: "document.write", Params: str, Variadic: true},
	{Pattern: "document.writeln", Params: str, Variadic: true},
	{Pattern: "**.setAttribute", Params: []ParamKind{ParamAny, ParamString}},
	{Pattern: "**.insertAdjacentHTML", Params: []ParamKind{ParamAny, ParamString}},

	{Pattern: "eval", Params: qry},
	{Pattern: "exec", Params: qry},
	{Pattern: "execSync", Params: qry},
	{Pattern: "child_process.exec", Params: qry},
	{Pattern: "child_process.execSync", Params: qry},
	{Pattern: "**.query", Params: qry},
	{Pattern: "**.raw", Params: qry},
	{Pattern: "**.whereRaw", Params: qry},
	{Pattern: "**.$queryRawUnsafe", Params: qry},
	{Pattern: "**.$executeRawUnsafe", Params: qry},
}

var phpSources = []string{
	"$_GET", "$_POST", "$_REQUEST", "$_COOKIE", "$_SERVER", "$_FILES", "$_ENV",
	"$HTTP_RAW_POST_DATA", "$argv",
	"getenv()", "readline()", "getallheaders()", "apache_request_headers()",
	"file_get_contents('php://input')", "fopen('php://input')",
	"fgets(STDIN)", "fgetc(STDIN)", "fread(STDIN)", "stream_get_contents(STDIN)",
	"**.getQueryParams()", "**.getParsedBody()", "**.getCookieParams()",
}

var phpCallees = []Callee{
	{Pattern: "intval", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "floatval", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "doubleval", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "boolval", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "filter_var", Sanitizer: true},
	{Pattern: "filter_input", Sanitizer: true},
	{Pattern: "is_numeric", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "ctype_digit", Returns: lattice.Boolean, Sanitizer: true},
	{Pattern: "count", Returns: lattice.Number, Sanitizer: true},
	{Pattern: "strlen", Returns: lattice.Number, Params: str, Sanitizer: true},
	{Pattern: "htmlspecialchars", Returns: lattice.String, Sanitizer: true},
	{Pattern: "htmlentities", Returns: lattice.String, Sanitizer: true},
	{Pattern: "addslashes", Returns: lattice.String, Sanitizer: true},
	{Pattern: "mysqli_real_escape_string", Returns: lattice.String, Sanitizer: true},
	{Pattern: "mysql_real_escape_string", Returns: lattice.String, Sanitizer: true},
	{Pattern: "pg_escape_string", Returns: lattice.String, Sanitizer: true},
	{Pattern: "escapeshellarg", Returns: lattice.String, Sanitizer: true},
	{Pattern: "escapeshellcmd", Returns: lattice.String, Sanitizer: true},
	{Pattern: "urlencode", Returns: lattice.String, Sanitizer: true},
	{Pattern: "rawurlencode", Returns: lattice.String, Sanitizer: true},
	{Pattern: "**.quote", Returns: lattice.String, Sanitizer: true},
	{Pattern: "number_format", Returns: lattice.String, Params: num, Sanitizer: true},
	{Pattern: "abs", Returns: lattice.Number, Params: num, Sanitizer: true},
	{Pattern: "round", Returns: lattice.Number, Params: num, Sanitizer: true},
	{Pattern: "floor", Returns: lattice.Number, Params: num, Sanitizer: true},
	{Pattern: "ceil", Returns: lattice.Number, Params: num, Sanitizer: true},
	{Pattern: "sqrt", Returns: lattice.Number, Params: num, Sanitizer: true},
	{Pattern: "pow", Returns: lattice.Number, Params: num, Variadic: true, Sanitizer: true},
	{Pattern: "max", Returns: lattice.Number, Params: num, Variadic: true, Sanitizer: true},
	{Pattern: "min", Returns: lattice.Number, Params: num, Variadic: true, Sanitizer: true},
	{Pattern: "chr", Returns: lattice.String, Params: num, Sanitizer: true},

	{Pattern: "json_encode", Returns: lattice.String},
	{Pattern: "strval", Returns: lattice.String},
	{Pattern: "trim", Returns: lattice.String, Params: str},
	{Pattern: "strtolower", Returns: lattice.String, Params: str},
	{Pattern: "strtoupper", Returns: lattice.String, Params: str},
	{Pattern: "ucfirst", Returns: lattice.String, Params: str},
	{Pattern: "strpos", Returns: lattice.Unknown, Params: []ParamKind{ParamString, ParamString, ParamNumber}},
	{Pattern: "explode", Returns: lattice.Object, Params: []ParamKind{ParamString, ParamString, ParamNumber}},
	{Pattern: "str_repeat", Returns: lattice.String, Params: []ParamKind{ParamString, ParamNumber}},
	{Pattern: "str_pad", Returns: lattice.String, Params: []ParamKind{ParamString, ParamNumber, ParamString}},
	{Pattern: "substr", Returns: lattice.String, Params: []ParamKind{ParamString, ParamNumber, ParamNumber}},
	{Pattern: "str_split", Returns: lattice.Object, Params: []ParamKind{ParamString, ParamNumber}},
	{Pattern: "array_slice", Returns: lattice.Object, Params: []ParamKind{ParamAny, ParamNumber, ParamNumber}},
	{Pattern: "array_fill", Returns: lattice.Object, Params: []ParamKind{ParamNumber, ParamNumber}},
	{Pattern: "range", Returns: lattice.Object, Params: []ParamKind{ParamNumber, ParamNumber, ParamNumber}},
	{Pattern: "rand", Returns: lattice.Number, Params: num, Variadic: true},
	{Pattern: "mt_rand", Returns: lattice.Number, Params: num, Variadic: true},
	{Pattern: "date", Returns: lattice.String, Params: []ParamKind{ParamString, ParamNumber}},
	{Pattern: "sprintf", Returns: lattice.String, Params: str},
	{Pattern: "printf", Returns: lattice.Number, Params: str},
	{Pattern: "header", Params: str},
	{Pattern: "setcookie", Returns: lattice.Boolean, Params: []ParamKind{ParamString, ParamString, ParamNumber}},

	{Pattern: "mysql_query", Params: qry},
	{Pattern: "mysqli_query", Params: []ParamKind{ParamAny, ParamQuery}},
	{Pattern: "mysqli_multi_query", Params: []ParamKind{ParamAny, ParamQuery}},
	{Pattern: "mysqli_prepare", Params: []ParamKind{ParamAny, ParamQuery}},
	{Pattern: "pg_query", Params: qry, Variadic: true},
	{Pattern: "sqlite_query", Params: qry, Variadic: true},
	{Pattern: "system", Params: qry},
	{Pattern: "exec", Params: qry},
	{Pattern: "shell_exec", Params: qry},
	{Pattern: "passthru", Params: qry},
	{Pattern: "popen", Params: qry},
	{Pattern: "proc_open", Params: qry},
	{Pattern: "**.query", Params: qry},
	{Pattern: "**.exec", Params: qry},
	{Pattern: "**.prepare", Params: qry},
	{Pattern: "**.multi_query", Params: qry},
	{Pattern: "**.real_query", Params: qry},
	{Pattern: "**.raw", Params: qry},
	{Pattern: "**.whereRaw", Params: qry},
	{Pattern: "**.selectRaw", Params: qry},
}
