package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Template is a compiled formatter.
type Template struct {
	source string
	parts  []part
}

type part struct {
	literal string
	expr    node // nil for literal parts
}

// ErrUnterminated is returned for a "${" without a closing brace.
var ErrUnterminated = errors.New("unterminated ${ in template")

// Compile parses a formatter. A preset name compiles to the preset's
// template.
func Compile(source string) (*Template, error) {
	text := source
	if preset, ok := Presets[source]; ok {
		text = preset
	}

	t := &Template{source: source}
	for len(text) > 0 {
		start := strings.Index(text, "${")
		if start < 0 {
			t.parts = append(t.parts, part{literal: text})
			break
		}
		if start > 0 {
			t.parts = append(t.parts, part{literal: text[:start]})
		}
		end := closingBrace(text, start+2)
		if end < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnterminated, source)
		}
		expr, err := parseExpr(text[start+2 : end])
		if err != nil {
			return nil, fmt.Errorf("formatter %q: %w", source, err)
		}
		t.parts = append(t.parts, part{expr: expr})
		text = text[end+1:]
	}
	return t, nil
}

// MustCompile is like Compile but panics on error. For presets and tests.
func MustCompile(source string) *Template {
	t, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return t
}

// closingBrace finds the '}' ending an expression that starts at from,
// skipping quoted strings.
func closingBrace(s string, from int) int {
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '}':
			return i
		}
	}
	return -1
}

// String returns the source the template was compiled from.
func (t *Template) String() string {
	return t.source
}

// Execute evaluates the template for v.
func (t *Template) Execute(v float64) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.expr == nil {
			b.WriteString(p.literal)
			continue
		}
		res, err := p.expr.eval(v)
		if err != nil {
			return "", err
		}
		b.WriteString(res.String())
	}
	return b.String(), nil
}

// value is a number or a string.
type value struct {
	num   float64
	str   string
	isStr bool
}

func num(f float64) value { return value{num: f} }
func text(s string) value { return value{str: s, isStr: true} }

func (v value) String() string {
	if v.isStr {
		return v.str
	}
	return numberString(v.num)
}

func (v value) number() (float64, error) {
	if !v.isStr {
		return v.num, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", v.str)
	}
	return f, nil
}

type node interface {
	eval(x float64) (value, error)
}

type numberNode float64
type stringNode string
type variableNode struct{}

type unaryNode struct {
	op      byte
	operand node
}

type binaryNode struct {
	op          byte
	left, right node
}

type callNode struct {
	name string
	args []node
}

type methodNode struct {
	recv node
	name string
	args []node
}

func (n numberNode) eval(float64) (value, error) { return num(float64(n)), nil }
func (n stringNode) eval(float64) (value, error) { return text(string(n)), nil }
func (variableNode) eval(x float64) (value, error) {
	return num(x), nil
}

func (n unaryNode) eval(x float64) (value, error) {
	v, err := n.operand.eval(x)
	if err != nil {
		return value{}, err
	}
	f, err := v.number()
	if err != nil {
		return value{}, err
	}
	if n.op == '-' {
		f = -f
	}
	return num(f), nil
}

func (n binaryNode) eval(x float64) (value, error) {
	l, err := n.left.eval(x)
	if err != nil {
		return value{}, err
	}
	r, err := n.right.eval(x)
	if err != nil {
		return value{}, err
	}
	if n.op == '+' && (l.isStr || r.isStr) {
		return text(l.String() + r.String()), nil
	}
	a, err := l.number()
	if err != nil {
		return value{}, err
	}
	b, err := r.number()
	if err != nil {
		return value{}, err
	}
	switch n.op {
	case '+':
		return num(a + b), nil
	case '-':
		return num(a - b), nil
	case '*':
		return num(a * b), nil
	case '/':
		if b == 0 {
			return value{}, errors.New("division by zero")
		}
		return num(a / b), nil
	case '%':
		if b == 0 {
			return value{}, errors.New("modulo by zero")
		}
		return num(math.Mod(a, b)), nil
	}
	return value{}, fmt.Errorf("unknown operator %q", n.op)
}

var functions = map[string]func(args []float64) (float64, error){
	"abs":   unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"trunc": unary(math.Trunc),
	"round": unary(func(f float64) float64 { return math.Floor(f + 0.5) }),
	"min":   fold(math.Min),
	"max":   fold(math.Max),
}

var constants = map[string]float64{
	"PI": math.Pi,
	"E":  math.E,
}

func unary(f func(float64) float64) func([]float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		return f(args[0]), nil
	}
}

func fold(f func(a, b float64) float64) func([]float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) == 0 {
			return 0, errors.New("expected at least 1 argument")
		}
		acc := args[0]
		for _, a := range args[1:] {
			acc = f(acc, a)
		}
		return acc, nil
	}
}

func (n callNode) eval(x float64) (value, error) {
	fn := functions[n.name]
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(x)
		if err != nil {
			return value{}, err
		}
		if args[i], err = v.number(); err != nil {
			return value{}, err
		}
	}
	f, err := fn(args)
	if err != nil {
		return value{}, fmt.Errorf("%s: %w", n.name, err)
	}
	return num(f), nil
}

// maxPadWidth bounds padStart; a key is 90 pixels wide.
const maxPadWidth = 64

func (n methodNode) eval(x float64) (value, error) {
	recv, err := n.recv.eval(x)
	if err != nil {
		return value{}, err
	}
	args := make([]value, len(n.args))
	for i, a := range n.args {
		if args[i], err = a.eval(x); err != nil {
			return value{}, err
		}
	}

	switch n.name {
	case "toFixed":
		f, err := recv.number()
		if err != nil {
			return value{}, err
		}
		digits := 0
		if len(args) > 0 {
			d, err := args[0].number()
			if err != nil {
				return value{}, err
			}
			digits = int(d)
		}
		if digits < 0 || digits > 20 {
			return value{}, fmt.Errorf("toFixed digits out of range: %d", digits)
		}
		return text(ToFixed(f, digits)), nil

	case "padStart":
		if len(args) == 0 {
			return value{}, errors.New("padStart needs a length")
		}
		width, err := args[0].number()
		if err != nil {
			return value{}, err
		}
		if !(width <= maxPadWidth) {
			return value{}, fmt.Errorf("padStart length out of range: %g", width)
		}
		pad := " "
		if len(args) > 1 {
			pad = args[1].String()
		}
		return text(padStart(recv.String(), int(width), pad)), nil
	}
	return value{}, fmt.Errorf("unknown method %q", n.name)
}

func padStart(s string, width int, pad string) string {
	missing := width - len([]rune(s))
	if missing <= 0 || pad == "" {
		return s
	}
	padRunes := []rune(pad)
	out := make([]rune, 0, missing+len(padRunes))
	for len(out) < missing {
		out = append(out, padRunes...)
	}
	return string(out[:missing]) + s
}

// parser

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			f, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", src[i:j])
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], num: f})
			i = j
		case c == '\'' || c == '"':
			j := strings.IndexByte(src[i+1:], src[i])
			if j < 0 {
				return nil, errors.New("unterminated string literal")
			}
			toks = append(toks, token{kind: tokString, text: src[i+1 : i+1+j]})
			i += j + 2
		case c == '$' || c == '_' || unicode.IsLetter(c):
			j := i + 1
			for j < len(src) && (src[j] == '_' || unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j]))) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j]})
			i = j
		case strings.ContainsRune("+-*/%().,", c):
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

type parser struct {
	toks []token
	pos  int
}

func parseExpr(src string) (node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, errors.New("empty expression")
	}
	n, err := p.additive()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q", tok.text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isPunct(s string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == s
}

func (p *parser) expect(s string) error {
	if !p.isPunct(s) {
		return fmt.Errorf("expected %q, got %q", s, p.peek().text)
	}
	p.next()
	return nil
}

func (p *parser) additive() (node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.next().text[0]
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) multiplicative() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		op := p.next().text[0]
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.isPunct("-") || p.isPunct("+") {
		op := p.next().text[0]
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.isPunct(".") {
		p.next()
		name := p.next()
		if name.kind != tokIdent {
			return nil, fmt.Errorf("expected method name, got %q", name.text)
		}
		if name.text != "toFixed" && name.text != "padStart" {
			return nil, fmt.Errorf("unknown method %q", name.text)
		}
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		n = methodNode{recv: n, name: name.text, args: args}
	}
	return n, nil
}

func (p *parser) arguments() ([]node, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []node
	for !p.isPunct(")") {
		arg, err := p.additive()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) primary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return numberNode(tok.num), nil
	case tokString:
		return stringNode(tok.text), nil
	case tokPunct:
		if tok.text == "(" {
			n, err := p.additive()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		}
	case tokIdent:
		return p.identifier(tok.text)
	case tokEOF:
		return nil, errors.New("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %q", tok.text)
}

func (p *parser) identifier(name string) (node, error) {
	switch name {
	case "$value", "value", "v":
		return variableNode{}, nil
	case "Math":
		if err := p.expect("."); err != nil {
			return nil, err
		}
		member := p.next()
		if member.kind != tokIdent {
			return nil, fmt.Errorf("expected Math member, got %q", member.text)
		}
		if c, ok := constants[member.text]; ok {
			return numberNode(c), nil
		}
		name = member.text
	}
	if _, ok := functions[name]; !ok {
		return nil, fmt.Errorf("unknown identifier %q", name)
	}
	args, err := p.arguments()
	if err != nil {
		return nil, err
	}
	return callNode{name: name, args: args}, nil
}
