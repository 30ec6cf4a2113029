package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// CalculatorName is the registered name of the calculator tool.
const CalculatorName = "calculator"

var (
	calcAllowed   = regexp.MustCompile(`^[\d+\-*/%^().\s\w,]+$`)
	calcForbidden = []string{"import", "exec", "eval", "open", "file", "__"}

	errDivisionByZero = errors.New("division by zero")
	errMathDomain     = errors.New("math domain error")
)

// Calculator returns the arithmetic evaluation tool.
func Calculator() Tool {
	return Tool{
		Descriptor: Descriptor{
			Name:        CalculatorName,
			Description: "Evaluate mathematical expressions safely. Supports +, -, *, /, %, ** (or ^), parentheses, sqrt, sin, cos, tan, log, log10, exp, abs, round, pow and the constants pi and e.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"expression": map[string]any{
						"type":        "string",
						"description": `Arithmetic expression, e.g. "890 * 0.15" or "sqrt(16)"`,
						"minLength":   1,
					},
				},
				"required":             []string{"expression"},
				"additionalProperties": false,
			},
			Keywords:      []string{"calculate", "compute", "math", "arithmetic", "percent", "percentage", "sum", "multiply", "divide", "%"},
			Deterministic: true,
		},
		Exec: func(_ context.Context, args map[string]any) (string, error) {
			expr, _ := args["expression"].(string)
			v, err := Evaluate(expr)
			if err != nil {
				return "", err
			}
			return FormatNumber(v), nil
		},
	}
}

// Evaluate parses and evaluates an arithmetic expression.
func Evaluate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty expression")
	}
	if !calcAllowed.MatchString(expr) {
		return 0, fmt.Errorf("invalid characters in expression: only numbers, operators and functions are allowed")
	}
	lower := strings.ToLower(expr)
	for _, kw := range calcForbidden {
		if strings.Contains(lower, kw) {
			return 0, fmt.Errorf("forbidden keyword %q in expression", kw)
		}
	}

	p := &calcParser{src: expr}
	p.next()
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.tok.kind != tokEOF {
		return 0, fmt.Errorf("invalid mathematical syntax near %q", p.tok.text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

// FormatNumber rounds v to 10 decimal places and prints it without trailing
// zeros.
func FormatNumber(v float64) string {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 10, 64), 64)
	if err != nil {
		rounded = v
	}
	if rounded == 0 {
		rounded = 0 // normalizes -0
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	num  float64
}

type calcParser struct {
	src string
	pos int
	tok token
	err error
}

func (p *calcParser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF}
		return
	}
	c := p.src[p.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
			save := p.pos
			p.pos++
			if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
				p.pos++
			}
			if p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
					p.pos++
				}
			} else {
				p.pos = save
			}
		}
		text := p.src[start:p.pos]
		n, err := strconv.ParseFloat(text, 64)
		if err != nil && p.err == nil {
			p.err = fmt.Errorf("invalid number %q", text)
		}
		p.tok = token{kind: tokNum, text: text, num: n}
	case c == '_' || unicode.IsLetter(rune(c)):
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] == '_' || isDigit(p.src[p.pos]) || unicode.IsLetter(rune(p.src[p.pos]))) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: strings.ToLower(p.src[start:p.pos])}
	case c == '*' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
		p.pos += 2
		p.tok = token{kind: tokOp, text: "**"}
	case strings.IndexByte("+-*/%^", c) >= 0:
		p.pos++
		p.tok = token{kind: tokOp, text: string(c)}
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "("}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")"}
	case c == ',':
		p.pos++
		p.tok = token{kind: tokComma, text: ","}
	default:
		p.pos++
		p.tok = token{kind: tokOp, text: string(c)}
		if p.err == nil {
			p.err = fmt.Errorf("unexpected character %q", c)
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *calcParser) isOp(ops ...string) bool {
	if p.tok.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if p.tok.text == op {
			return true
		}
	}
	return false
}

// expr := term (("+" | "-") term)*
func (p *calcParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.isOp("+", "-") {
		op := p.tok.text
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
	return left, p.err
}

// term := unary (("*" | "/" | "%") unary)*
func (p *calcParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.isOp("*", "/", "%") {
		op := p.tok.text
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, errDivisionByZero
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, errDivisionByZero
			}
			// Result takes the sign of the divisor.
			m := math.Mod(left, right)
			if m != 0 && (m < 0) != (right < 0) {
				m += right
			}
			left = m
		}
	}
	return left, nil
}

// unary := ("-" | "+") unary | power
func (p *calcParser) parseUnary() (float64, error) {
	if p.isOp("-", "+") {
		neg := p.tok.text == "-"
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if neg {
			return -v, nil
		}
		return v, nil
	}
	return p.parsePower()
}

// power := primary (("**" | "^") unary)?
func (p *calcParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	if p.isOp("**", "^") {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return power(base, exp)
	}
	return base, nil
}

func (p *calcParser) parsePrimary() (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	switch p.tok.kind {
	case tokNum:
		v := p.tok.num
		p.next()
		return v, p.err
	case tokLParen:
		p.next()
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokRParen {
			return 0, fmt.Errorf("invalid mathematical syntax: missing closing parenthesis")
		}
		p.next()
		return v, nil
	case tokIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind != tokLParen {
			switch name {
			case "pi":
				return math.Pi, nil
			case "e":
				return math.E, nil
			}
			return 0, fmt.Errorf("unknown name %q", name)
		}
		p.next()
		var args []float64
		if p.tok.kind != tokRParen {
			for {
				v, err := p.parseExpr()
				if err != nil {
					return 0, err
				}
				args = append(args, v)
				if p.tok.kind != tokComma {
					break
				}
				p.next()
			}
		}
		if p.tok.kind != tokRParen {
			return 0, fmt.Errorf("invalid mathematical syntax: missing closing parenthesis after %s(", name)
		}
		p.next()
		return callFunc(name, args)
	case tokEOF:
		return 0, fmt.Errorf("invalid mathematical syntax: unexpected end of expression")
	default:
		return 0, fmt.Errorf("invalid mathematical syntax near %q", p.tok.text)
	}
}

func power(base, exp float64) (float64, error) {
	if base == 0 && exp < 0 {
		return 0, errDivisionByZero
	}
	if base < 0 && exp != math.Trunc(exp) {
		return 0, errMathDomain
	}
	return math.Pow(base, exp), nil
}

func callFunc(name string, args []float64) (float64, error) {
	arity := func(min, max int) error {
		if len(args) < min || len(args) > max {
			if min == max {
				return fmt.Errorf("%s() takes %d argument(s), got %d", name, min, len(args))
			}
			return fmt.Errorf("%s() takes %d to %d arguments, got %d", name, min, max, len(args))
		}
		return nil
	}
	unary := func(f func(float64) float64) (float64, error) {
		if err := arity(1, 1); err != nil {
			return 0, err
		}
		return f(args[0]), nil
	}

	switch name {
	case "abs":
		return unary(math.Abs)
	case "sin":
		return unary(math.Sin)
	case "cos":
		return unary(math.Cos)
	case "tan":
		return unary(math.Tan)
	case "exp":
		return unary(math.Exp)
	case "sqrt":
		if err := arity(1, 1); err != nil {
			return 0, err
		}
		if args[0] < 0 {
			return 0, errMathDomain
		}
		return math.Sqrt(args[0]), nil
	case "log10":
		if err := arity(1, 1); err != nil {
			return 0, err
		}
		if args[0] <= 0 {
			return 0, errMathDomain
		}
		return math.Log10(args[0]), nil
	case "log":
		if err := arity(1, 2); err != nil {
			return 0, err
		}
		if args[0] <= 0 {
			return 0, errMathDomain
		}
		if len(args) == 1 {
			return math.Log(args[0]), nil
		}
		if args[1] <= 0 || args[1] == 1 {
			return 0, errMathDomain
		}
		return math.Log(args[0]) / math.Log(args[1]), nil
	case "pow":
		if err := arity(2, 2); err != nil {
			return 0, err
		}
		return power(args[0], args[1])
	case "round":
		if err := arity(1, 2); err != nil {
			return 0, err
		}
		digits := 0.0
		if len(args) == 2 {
			digits = math.Trunc(args[1])
		}
		scale := math.Pow(10, digits)
		return math.RoundToEven(args[0]*scale) / scale, nil
	default:
		return 0, fmt.Errorf("unknown function %q", name)
	}
}
