package exprtree

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/emirpasic/gods/sets/treeset"
)

// Formula = Expr | name '=' Formula | Expr '?' Formula ':' Formula
// Expr = num | name | Call | Neg | Plus | Add | Sub | Mul | Div | Pow | Cmp | '(' Formula ')' | '[' Formula ']' | '{' Formula '}'
// Call = funcname | funcname Expr | funcname ArgList
// ArgList = '(' Formula { (',' | ';') Formula } ')' | '[' Formula { (',' | ';') Formula } ']' | '{' Formula { (',' | ';') Formula } '}'
// Neg = '-' Expr
// Plus = '+' Expr
// Add = Expr '+' Expr
// Sub = Expr '-' Expr
// Mul = Expr '*' Expr | Expr '×' Expr
// Div = Expr '/' Expr | Expr '÷' Expr
// Pow = Expr '^' Expr
// Cmp = Expr ('<' | '>' | '<=' | '>=' | '==' | '!=') Expr

// Parse parses a formula so it can be evaluated with a context. The given
// options are applied in order.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Formula, error) {
	scan := lex(src)
	p := parsectx{
		vars:     make(map[string]*Expr),
		names:    make(map[*Expr]string),
		assigned: make(map[string]bool),
	}
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	if p.funcs == nil {
		p.funcs = globalfuncs
	} else if !p.nodefaults {
		// Only set default functions that aren't already set.
		for k, v := range globalfuncs {
			if _, ok := p.funcs[k]; !ok {
				p.funcs[k] = v
			}
		}
	}
	n, err := parseterm(scan, &p, exprprec)
	if err != nil {
		return nil, err
	}
	tok := scan.must()
	switch tok.kind {
	case tokenEOF:
	case tokenSep:
		switch {
		case p.ceof && tok.text == ",":
		case p.seof && tok.text == ";":
		default:
			return nil, itShouldNotHaveEndedThisWay(tok, -1)
		}
	default:
		return nil, itShouldNotHaveEndedThisWay(tok, -1)
	}
	if n == nil {
		return nil, &EmptyExpressionError{Col: tok.pos, End: tok.text}
	}
	f := Formula{
		root:     n,
		names:    sortnames(p.vars),
		assigned: p.assigned,
	}
	for i, name := range f.names {
		p.vars[name].elems[0] = i
	}
	tracer().Debugf("parsed formula with %d variables", len(f.names))
	return &f, nil
}

// sortnames returns the keys of a name table in order.
func sortnames[V any](vars map[string]V) []string {
	set := treeset.NewWithStringComparator()
	for k := range vars {
		set.Add(k)
	}
	names := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		names = append(names, v.(string))
	}
	return names
}

// variable returns the placeholder for a variable name. The index of the
// placeholder is decided once the whole formula is parsed.
func (p *parsectx) variable(name string) *Expr {
	if v := p.vars[name]; v != nil {
		return v
	}
	v := P(0)
	p.vars[name] = v
	p.names[v] = name
	return v
}

// parseterm parses a single term. If there is no error, then parseterm pushes
// the last token it scans, including EOF. If the input is an empty
// subexpression, the result is nil with no error; callers must create an error
// in contexts where empty subexpressions are illegal.
func parseterm(scan *lexer, p *parsectx, until operator) (*Expr, error) {
	n, err := parselhs(scan, p, until)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	if p.resv != nil {
		// parselhs parsed a niladic function followed by a parenthesized term.
		// So, the parsing here is as if we encountered an open bracket, except
		// that the contents are already parsed and valid.
		prec := termprec
		if !prec.moreBinding(until) {
			return n, nil
		}
		n = Multiplies(n, p.resv)
		p.resv = nil
	}
	for {
		tok, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenNum, tokenIdent:
			// (parsed) x -> (parsed) * (x)
			// (parsed) x^(expr) -> (parsed) * (x^(expr))
			// a^(parsed) x -> (a^(parsed)) * (x)
			scan.push(tok)
			prec := termprec
			if !prec.moreBinding(until) {
				return n, nil
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			n = Multiplies(n, rhs)
		case tokenOp:
			if tok.text == ":" {
				// End of the middle of a conditional.
				scan.push(tok)
				return n, nil
			}
			prec := binop(tok.text)
			if prec.op == kindNone {
				return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: false}
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			switch prec.op {
			case KindIfElse:
				n, err = parsecond(scan, p, n, prec)
			case KindAssign:
				n, err = parseassign(scan, p, n, prec, tok)
			default:
				var rhs *Expr
				rhs, err = parseterm(scan, p, prec)
				if err == nil {
					err = needterm(scan, rhs)
				}
				n = binary(prec.op, n, rhs)
			}
			if err != nil {
				return nil, err
			}
		case tokenOpen:
			// Since parselhs parses functions aggressively, this is a
			// multiplication by a parenthesized term: 2 (expr) -> (2) * (expr).
			match := rightbracket(tok.text)
			prec := termprec
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseterm(scan, p, exprprec)
			if err != nil {
				return nil, err
			}
			end := scan.must()
			if end.kind != tokenClose || end.text != closebrackets[match] {
				return nil, itShouldNotHaveEndedThisWay(end, match)
			}
			if rhs == nil {
				return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
			}
			n = Multiplies(n, rhs)
		case tokenClose, tokenSep, tokenEOF:
			// End of expression.
			scan.push(tok)
			return n, nil
		default:
			panic("exprtree: unknown token: " + tok.String())
		}
	}
}

// needterm returns an error if a subexpression is empty. The token which
// ended the subexpression must be pushed.
func needterm(scan *lexer, n *Expr) error {
	if n != nil {
		return nil
	}
	end := scan.must()
	return &EmptyExpressionError{Col: end.pos, End: end.text}
}

// parsecond parses the branches of a conditional whose condition is cond.
func parsecond(scan *lexer, p *parsectx, cond *Expr, prec operator) (*Expr, error) {
	then, err := parseterm(scan, p, exprprec)
	if err != nil {
		return nil, err
	}
	if err := needterm(scan, then); err != nil {
		return nil, err
	}
	tok := scan.must()
	if tok.kind != tokenOp || tok.text != ":" {
		return nil, &ConditionalError{Col: tok.pos, End: tok.text}
	}
	els, err := parseterm(scan, p, prec)
	if err != nil {
		return nil, err
	}
	if err := needterm(scan, els); err != nil {
		return nil, err
	}
	return IfElse(cond, then, els), nil
}

// parseassign parses the value assigned to lhs, which must be a variable.
func parseassign(scan *lexer, p *parsectx, lhs *Expr, prec operator, op lexToken) (*Expr, error) {
	if p.noassign {
		return nil, &TargetError{Col: op.pos}
	}
	name, ok := p.names[lhs]
	if !ok {
		pr := printer{name: func(e *Expr) string { return p.names[e] }}
		pr.format(lhs, false)
		return nil, &TargetError{Col: op.pos, Target: pr.b.String()}
	}
	rhs, err := parseterm(scan, p, prec)
	if err != nil {
		return nil, err
	}
	if err := needterm(scan, rhs); err != nil {
		return nil, err
	}
	p.assigned[name] = true
	return Assign(lhs, rhs), nil
}

// parselhs parses the first component of a term. I.e., operators are unary,
// any encountered token must be valid as the start of a subexpression, and
// whitespace normally lexed as EOF is ignored.
func parselhs(scan *lexer, p *parsectx, until operator) (*Expr, error) {
	// Don't use EOF whitespace for LHS.
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	var n *Expr
	switch tok.kind {
	case tokenNum:
		n = Term(Number(tok.text))
	case tokenIdent:
		fn := p.funcs[tok.text]
		if fn == nil {
			n = p.variable(tok.text)
		} else {
			args, semis, exp, err := parsecall(scan, p, until, fn, tok.text)
			if err != nil {
				return nil, err
			}
			// If fn is niladic and the call is like fn(a), then there are no
			// args, and p.resv is non-nil.
			callee := &FuncRef{Name: tok.text, Fn: fn, Semis: semis}
			n = &Expr{kind: KindCall, elems: make([]any, 0, 1+len(args))}
			n.elems = append(n.elems, Term(callee))
			for _, a := range args {
				n.elems = append(n.elems, a)
			}
			if exp != nil {
				exp.elems[0] = n
				n = exp
			}
		}
	case tokenOp:
		// unary operator
		prec := unop(tok.text)
		if prec.op == kindNone {
			return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: true}
		}
		if !prec.moreBinding(until) {
			// x^-y -> x^(-y)
			// Just use the new operator's precedence to simplify.
			prec.prec, prec.right = until.prec, until.right
		}
		rhs, err := parseterm(scan, p, prec)
		if err != nil {
			return nil, err
		}
		if err := needterm(scan, rhs); err != nil {
			return nil, err
		}
		n = unary(prec.op, rhs)
	case tokenOpen:
		match := rightbracket(tok.text)
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		end := scan.must()
		if end.kind != tokenClose || end.text != closebrackets[match] {
			return nil, itShouldNotHaveEndedThisWay(end, match)
		}
		if rhs == nil {
			return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
		}
		n = rhs
	case tokenClose:
		// This might be part of niladic func(), so just let the caller decide
		// what to do.
		scan.push(tok)
		return nil, nil
	case tokenSep:
		switch tok.text {
		case ",":
			if p.ceof {
				scan.push(tok)
				return nil, nil
			}
		case ";":
			if p.seof {
				scan.push(tok)
				return nil, nil
			}
		default:
			panic("exprtree: invalid separator " + strconv.Quote(tok.text))
		}
		return nil, &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenEOF:
		return nil, &EmptyExpressionError{Col: tok.pos, End: ""}
	default:
		panic("exprtree: unknown token: " + tok.String())
	}
	return n, nil
}

// parsecall parses the arguments to a call of a given function. The third
// result, if non-nil, is an exponentiation that the function call is the base
// of; the caller fills in its left operand.
func parsecall(scan *lexer, p *parsectx, until operator, fn RealFunc, name string) ([]*Expr, []int, *Expr, error) {
	// We respect whitespace here so that pi\nx doesn't string
	// together expressions.
	tok, err := scan.next(p.wseof)
	if err != nil {
		return nil, nil, nil, err
	}
	switch tok.kind {
	case tokenOp:
		// Check for e.g. ^2 in cos^2 x. Must be an exponentiation or higher.
		// Note that the fact that exponentiation is important here:
		// func^x^y(z) parses as [func(z)]^(x^y).
		if prec := binop(tok.text); prec.op != kindNone && prec.moreBinding(powprec) {
			up, err := parseterm(scan, p, powprec)
			if err != nil {
				return nil, nil, nil, err
			}
			if err := needterm(scan, up); err != nil {
				return nil, nil, nil, err
			}
			args, semis, ee, err := parsecall(scan, p, until, fn, name)
			if err != nil {
				return nil, nil, nil, err
			}
			if ee != nil {
				// The precedence we parsed is right-associative and higher
				// than any other. With the current rules, there should never
				// be an additional exponent here.
				panic("exprtree: parsed second call exponent: " + ee.String())
			}
			// The caller fills in the base.
			exp := &Expr{kind: powprec.op, elems: []any{nil, up}}
			return args, semis, exp, nil
		}
		if unop(tok.text).op == kindNone {
			// Operators which cannot start a term end the call.
			return nil, nil, nil, endcall(scan, tok, fn, name)
		}
		// Other than exponentiations, finding an operator is the same as
		// finding a number or identifier.
		fallthrough
	case tokenNum, tokenIdent:
		switch {
		case fn.CanCall(1):
			// Single argument. exp x -> exp(x)
			scan.push(tok)
			if termprec.moreBinding(until) {
				until = termprec
			}
			rhs, err := parseterm(scan, p, until)
			if err != nil {
				return nil, nil, nil, err
			}
			if err := needterm(scan, rhs); err != nil {
				return nil, nil, nil, err
			}
			return []*Expr{rhs}, nil, nil, nil
		case fn.CanCall(0):
			// No argument. pi x -> (pi) * (x)
			scan.push(tok)
		default:
			// Any other number of arguments requires brackets.
			return nil, nil, nil, &CallError{Col: tok.pos, Func: name, Len: 1}
		}
	case tokenOpen:
		match := rightbracket(tok.text)
		args, semis, err := parsearglist(scan, p, tok.text)
		if err != nil {
			return nil, nil, nil, err
		}
		end := scan.must()
		if end.kind != tokenClose {
			panic("exprtree: parsearglist ended on " + end.String() + " instead of close bracket")
		}
		if end.text != closebrackets[match] {
			return nil, nil, nil, &BracketError{Col: end.pos, Left: tok.text, Right: end.text}
		}
		if !fn.CanCall(len(args)) {
			if p.resv != nil && fn.CanCall(0) {
				// If fn is niladic, convert from fn(a) to fn()*a.
				return nil, nil, nil, nil
			}
			p.resv = nil
			return nil, nil, nil, &CallError{Col: tok.pos, Func: name, Len: len(args)}
		}
		p.resv = nil
		return args, semis, nil, nil
	case tokenClose, tokenSep, tokenEOF:
		return nil, nil, nil, endcall(scan, tok, fn, name)
	default:
		panic("exprtree: unknown token: " + tok.String())
	}
	return nil, nil, nil, nil
}

// endcall finishes a call with no arguments at tok.
func endcall(scan *lexer, tok lexToken, fn RealFunc, name string) error {
	if !fn.CanCall(0) {
		return &CallError{Col: tok.pos, Func: name}
	}
	scan.push(tok)
	return nil
}

// parsearglist parses a bracketed list of zero or more args. The second result
// is the indices of arguments which follow semicolons.
func parsearglist(scan *lexer, p *parsectx, open string) ([]*Expr, []int, error) {
	var (
		args  []*Expr
		semis []int
	)
	pb := ""
	for {
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			// As a special case, reporting mismatched brackets is more helpful
			// than empty expression, if that's what we'd do here.
			if ee, _ := err.(*EmptyExpressionError); ee != nil && ee.End == "" {
				err = &BracketError{Col: ee.Col, Left: open}
			}
			return nil, nil, err
		}
		end := scan.must()
		switch end.kind {
		case tokenClose:
			// Caller checks that brackets match.
			scan.push(end)
			if rhs == nil {
				// No expression parsed.
				// func() is allowed, but func(a,) isn't.
				if len(args) != 0 {
					return nil, nil, &EmptyExpressionError{Col: end.pos, End: end.text}
				}
				return nil, nil, nil
			}
			if pb == ";" {
				semis = append(semis, len(args))
			}
			args = append(args, rhs)
			if len(args) == 1 {
				// func(a). If func is niladic, then this is an implicit
				// multiplication. Reserve the rhs so that the parser can
				// convert from a function call.
				p.resv = rhs
			}
			return args, semis, nil
		case tokenSep:
			if rhs == nil {
				return nil, nil, &SeparatorError{Col: end.pos, Sep: end.text}
			}
			if pb == ";" {
				semis = append(semis, len(args))
			}
			args = append(args, rhs)
			pb = end.text
		case tokenEOF:
			return nil, nil, &BracketError{Col: end.pos, Left: open, Right: ""}
		case tokenOp:
			return nil, nil, &OperatorError{Col: end.pos, Operator: end.text}
		default:
			panic("exprtree: parsearglist ended on non-end token " + end.String())
		}
	}
}

// rightbracket gets the closing bracket index for an opening bracket.
func rightbracket(left string) int {
	r, sz := utf8.DecodeRuneInString(left)
	k := strings.IndexRune(OpenBrackets, r)
	if k < 0 || sz != len(left) {
		panic("exprtree: invalid bracket " + strconv.Quote(left))
	}
	return k
}

// leftbracket gets the opening bracket matching right. If right is no bracket,
// then the result is the empty string.
func leftbracket(right int) string {
	if right == -1 {
		return ""
	}
	return openbrackets[right]
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token at the end of a subexpression. match is the bracket rune index that
// the expression should have matched, or -1 if none.
func itShouldNotHaveEndedThisWay(tok lexToken, match int) error {
	switch tok.kind {
	case tokenEOF:
		// Unexpected EOF implies an open bracket that was not closed.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: ""}
	case tokenClose:
		// A bracket could be the wrong bracket for the opening brace or any
		// bracket at the end of an input.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: tok.text}
	case tokenSep:
		// Separator outside a function call.
		return &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenOp:
		// A colon outside a conditional.
		return &OperatorError{Col: tok.pos, Operator: tok.text}
	default:
		panic("exprtree: it really should not have ended this way: " + tok.String())
	}
}

type operator struct {
	// prec is the precedence value. Lower is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op Kind
}

// kindNone marks tokens which are not operators.
const kindNone Kind = -1

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of kindNone.
func binop(text string) operator {
	switch text {
	case "+":
		return operator{1, false, KindPlus}
	case "-":
		return operator{1, false, KindMinus}
	case "*", "×":
		return operator{5, false, KindMultiplies}
	case "/", "÷":
		return operator{5, false, KindDivides}
	case "^":
		return operator{15, true, KindBitwiseXor}
	case "<":
		return operator{0, false, KindLess}
	case ">":
		return operator{0, false, KindGreater}
	case "<=":
		return operator{0, false, KindLessEqual}
	case ">=":
		return operator{0, false, KindGreaterEqual}
	case "==":
		return operator{0, false, KindEqualTo}
	case "!=":
		return operator{0, false, KindNotEqualTo}
	case "?":
		return operator{-50, true, KindIfElse}
	case "=":
		return operator{-100, true, KindAssign}
	default:
		return operator{op: kindNone}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of kindNone.
func unop(text string) operator {
	switch text {
	case "+":
		return operator{10, true, KindUnaryPlus}
	case "-":
		return operator{10, true, KindNegate}
	default:
		return operator{op: kindNone}
	}
}

var (
	// termprec is the default precedence for parsing terms. Its prec
	// should match that of multiplication.
	termprec = operator{5, true, KindMultiplies}
	// powprec is the precedence of exponentiation.
	powprec = binop("^")
	// exprprec is the precedence required to parse an entire subexpression.
	exprprec = operator{-128, true, kindNone}
)
