// Package expr implements the operator-mode query language: boolean
// expressions over a row's concatenated text.
//
// Grammar, loosest binding first:
//
//	expr   = orExpr { "NOT" orExpr }     // X NOT Y means X and not Y
//	orExpr = andExpr { "OR" andExpr }
//	andExpr = term { "AND" term }
//	term   = "(" expr ")" | word+        // adjacent words form one term
//
// NOT is binary, not unary. Operator keywords must be uppercase; lowercase
// "and", "or", "not" are ordinary search text. An unbalanced parenthesization
// never fails: the malformed expression degrades to an always-true match so
// a typo mid-query cannot blank the grid.
package expr

import (
	"strings"
)

// Kind discriminates expression tree nodes.
type Kind int

const (
	// KindTerm is a literal substring to look for.
	KindTerm Kind = iota
	// KindAnd matches when both children match.
	KindAnd
	// KindOr matches when either child matches.
	KindOr
	// KindNot matches when the left child matches and the right does not.
	KindNot
	// KindTrue always matches. Produced for empty and malformed input.
	KindTrue
)

// Node is one node of a parsed expression tree. Trees are built fresh per
// evaluation; they are cheap relative to a redraw and never cached.
type Node struct {
	Kind  Kind
	Left  *Node
	Right *Node
	Text  string
}

// Parse builds an expression tree from query text. Parse never returns an
// error: empty or unbalanced input yields an always-true node.
func Parse(query string) *Node {
	toks := tokenize(query)
	if len(toks) == 0 {
		return &Node{Kind: KindTrue}
	}
	p := &parser{toks: toks}
	n := p.parseExpr()
	if n == nil || !p.done() {
		// Leftover tokens mean an unbalanced or malformed expression.
		return &Node{Kind: KindTrue}
	}
	return n
}

// Eval reports whether the haystack satisfies the expression. Matching is a
// case-insensitive substring test per term; callers pass haystack already
// lowercased or not, and terms are lowered here.
func (n *Node) Eval(haystack string) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case KindTrue:
		return true
	case KindTerm:
		return strings.Contains(strings.ToLower(haystack), strings.ToLower(n.Text))
	case KindAnd:
		return n.Left.Eval(haystack) && n.Right.Eval(haystack)
	case KindOr:
		return n.Left.Eval(haystack) || n.Right.Eval(haystack)
	case KindNot:
		return n.Left.Eval(haystack) && !n.Right.Eval(haystack)
	default:
		return true
	}
}

// String renders the tree in prefix form, for logs and tests.
func (n *Node) String() string {
	if n == nil {
		return "TRUE"
	}
	switch n.Kind {
	case KindTrue:
		return "TRUE"
	case KindTerm:
		return "TERM(" + n.Text + ")"
	case KindAnd:
		return "AND(" + n.Left.String() + ", " + n.Right.String() + ")"
	case KindOr:
		return "OR(" + n.Left.String() + ", " + n.Right.String() + ")"
	case KindNot:
		return "NOT(" + n.Left.String() + ", " + n.Right.String() + ")"
	default:
		return "TRUE"
	}
}

// Terms collects the literal search terms, in left-to-right order. The
// highlighter uses them to mark matches in visible cells.
func (n *Node) Terms() []string {
	var out []string
	n.appendTerms(&out)
	return out
}

func (n *Node) appendTerms(out *[]string) {
	if n == nil {
		return
	}
	if n.Kind == KindTerm {
		*out = append(*out, n.Text)
		return
	}
	n.Left.appendTerms(out)
	n.Right.appendTerms(out)
}

type tokKind int

const (
	tokWord tokKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
}

func tokenize(query string) []token {
	var toks []token
	fields := strings.Fields(strings.NewReplacer("(", " ( ", ")", " ) ").Replace(query))
	for _, f := range fields {
		switch f {
		case "AND":
			toks = append(toks, token{kind: tokAnd})
		case "OR":
			toks = append(toks, token{kind: tokOr})
		case "NOT":
			toks = append(toks, token{kind: tokNot})
		case "(":
			toks = append(toks, token{kind: tokLParen})
		case ")":
			toks = append(toks, token{kind: tokRParen})
		default:
			toks = append(toks, token{kind: tokWord, text: f})
		}
	}
	return toks
}

type parser struct {
	toks []token
	pos  int
	bad  bool
}

func (p *parser) done() bool {
	return p.pos >= len(p.toks) && !p.bad
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// parseExpr handles NOT, the loosest-binding operator.
func (p *parser) parseExpr() *Node {
	left := p.parseOr()
	if left == nil {
		return nil
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokNot {
			return left
		}
		p.pos++
		right := p.parseOr()
		if right == nil {
			p.bad = true
			return nil
		}
		left = &Node{Kind: KindNot, Left: left, Right: right}
	}
}

func (p *parser) parseOr() *Node {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return left
		}
		p.pos++
		right := p.parseAnd()
		if right == nil {
			p.bad = true
			return nil
		}
		left = &Node{Kind: KindOr, Left: left, Right: right}
	}
}

func (p *parser) parseAnd() *Node {
	left := p.parseTerm()
	if left == nil {
		return nil
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			return left
		}
		p.pos++
		right := p.parseTerm()
		if right == nil {
			p.bad = true
			return nil
		}
		left = &Node{Kind: KindAnd, Left: left, Right: right}
	}
}

// parseTerm handles parenthesized groups and runs of adjacent words, which
// join into a single search term ("connection refused" without quotes).
func (p *parser) parseTerm() *Node {
	t, ok := p.peek()
	if !ok {
		p.bad = true
		return nil
	}

	if t.kind == tokLParen {
		p.pos++
		inner := p.parseExpr()
		if inner == nil {
			p.bad = true
			return nil
		}
		closing, ok := p.next()
		if !ok || closing.kind != tokRParen {
			p.bad = true
			return nil
		}
		return inner
	}

	var words []string
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokWord {
			break
		}
		words = append(words, t.text)
		p.pos++
	}
	if len(words) == 0 {
		p.bad = true
		return nil
	}
	return &Node{Kind: KindTerm, Text: strings.Join(words, " ")}
}
