package source

import (
	"bytes"
	"strings"
)

// Parse reads text into a new tree. Parsing never fails: malformed input
// produces a best-effort tree and diagnostics describing the problems.
func Parse(text []byte, opts Options) (*Tree, Diagnostics) {
	t := newTree(opts)
	diags := t.Reparse(text)
	return t, diags
}

// ParseRoot returns an empty tree with the root shape described by opts.
func ParseRoot(opts Options) *Tree {
	t, _ := Parse(nil, opts)
	return t
}

type frame struct {
	container Node
	base      *base
	children  []Node
	count     int
	// owner is the property the container is the value of.
	owner *Property
	// detached containers have no key to attach to and are dropped on close.
	detached bool
	ws       *Whitespace
}

func (f *frame) isList() bool {
	_, ok := f.container.(*List)
	return ok
}

type parser struct {
	tree        *Tree
	lines       [][]byte
	diagnostics Diagnostics
	stack       []*frame
	line        int
	eof         Position
}

func newParser(t *Tree, text []byte) *parser {
	if len(text) == 0 {
		return &parser{tree: t}
	}
	lines := bytes.Split(text, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimSuffix(line, []byte("\r"))
	}
	last := len(lines) - 1
	eof := Position{Line: last, Character: len(lines[last])}
	// a trailing newline does not start another line of content
	if last > 0 && len(lines[last]) == 0 {
		lines = lines[:last]
	}
	return &parser{tree: t, lines: lines, eof: eof}
}

func (p *parser) parse() *Dictionary {
	root := &Dictionary{}
	root.tree = p.tree
	root.index = -1
	root.childIndex = -1
	p.stack = []*frame{{container: root, base: &root.base}}

	for p.line = 0; p.line < len(p.lines); p.line++ {
		p.parseLine(p.lines[p.line])
	}

	end := p.eof
	for len(p.stack) > 1 {
		top := p.top()
		open := top.base.rng.Start
		openRange := Range{Start: open, End: Position{Line: open.Line, Character: open.Character + 1}}
		if top.isList() {
			p.report(UNT2002.New(openRange, "List is not closed."))
		} else {
			p.report(UNT2001.New(openRange, "Dictionary is not closed."))
		}
		p.closeTop(end)
	}

	rootFrame := p.stack[0]
	root.children = rootFrame.children
	root.count = rootFrame.count
	root.rng = Range{End: end}
	return root
}

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

func (p *parser) report(d Diagnostic) {
	p.diagnostics.AddDiagnostic(d)
}

func (p *parser) pos(col int) Position {
	return Position{Line: p.line, Character: col}
}

func (p *parser) lineRange(start, end int) Range {
	return Range{Start: p.pos(start), End: p.pos(end)}
}

func skipSpace(line []byte, i int) int {
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return i
}

func (p *parser) parseLine(line []byte) {
	col := skipSpace(line, 0)
	rest := line[col:]
	f := p.top()

	switch {
	case len(rest) == 0:
		p.addBlank(f, col)
		return
	case bytes.HasPrefix(rest, []byte("//")):
		c := &Comment{Text: strings.TrimSpace(string(rest[2:]))}
		c.rng = p.lineRange(col, len(line))
		p.add(f, c, &c.base)
		return
	case rest[0] == '}':
		p.closeBrace(col, '}')
		return
	case rest[0] == ']':
		p.closeBrace(col, ']')
		return
	case rest[0] == '{' || rest[0] == '[':
		p.openLine(f, col, rest[0])
		return
	}

	if f.isList() {
		v := p.readValue(line, col)
		p.add(f, v, &v.base)
		return
	}
	p.readProperty(f, line, col)
}

func (p *parser) addBlank(f *frame, col int) {
	if f.ws != nil {
		f.ws.Lines++
		f.ws.rng.End = p.pos(len(p.lines[p.line]))
		return
	}
	ws := &Whitespace{Lines: 1}
	ws.rng = Range{Start: p.pos(0), End: p.pos(col)}
	p.add(f, ws, &ws.base)
	f.ws = ws
}

// add appends n to f. b must be n's embedded base.
func (p *parser) add(f *frame, n Node, b *base) {
	b.parent = f.container
	b.tree = p.tree
	b.depth = f.base.depth + 1
	b.childIndex = len(f.children)
	if IsMetadata(n) {
		b.index = -1
	} else {
		b.index = f.count
		f.count++
	}
	f.children = append(f.children, n)
	if _, ok := n.(*Whitespace); !ok {
		f.ws = nil
	}
}

func (p *parser) setValue(prop *Property, value Node, b *base) {
	b.parent = prop
	b.tree = p.tree
	b.depth = prop.depth + 1
	b.index = -1
	b.childIndex = -1
	prop.Value = value
	prop.rng.End = b.rng.End
}

func (p *parser) newContainer(col int, brace byte) (Node, *base) {
	start := p.pos(col)
	if brace == '[' {
		l := &List{}
		l.rng = Range{Start: start, End: start}
		return l, &l.base
	}
	d := &Dictionary{}
	d.rng = Range{Start: start, End: start}
	return d, &d.base
}

// openLine handles a line that starts with an opening brace. In a dictionary
// the brace opens the value of the property on the previous line.
func (p *parser) openLine(f *frame, col int, brace byte) {
	container, b := p.newContainer(col, brace)
	next := &frame{container: container, base: b}

	if f.isList() {
		p.add(f, container, b)
		p.stack = append(p.stack, next)
		return
	}

	var prop *Property
	if len(f.children) > 0 {
		prop, _ = f.children[len(f.children)-1].(*Property)
	}
	switch {
	case prop == nil:
		p.report(UNT2013.New(p.lineRange(col, col+1), "Expected a property key before '%c'.", brace))
		b.tree = p.tree
		b.depth = f.base.depth + 1
		next.detached = true
	case prop.Value != nil:
		kind := "dictionary"
		if brace == '[' {
			kind = "list"
		}
		p.report(UNT1001.New(prop.Value.Range(), "Value given for %s key %q.", kind, prop.Key))
		p.setValue(prop, container, b)
		next.owner = prop
	default:
		p.setValue(prop, container, b)
		next.owner = prop
	}
	p.stack = append(p.stack, next)
}

func (p *parser) closeBrace(col int, brace byte) {
	end := p.pos(col + 1)
	for len(p.stack) > 1 {
		f := p.top()
		if f.isList() == (brace == ']') {
			p.closeTop(end)
			return
		}
		// mismatched closer: the inner container was never closed
		open := f.base.rng.Start
		openRange := Range{Start: open, End: Position{Line: open.Line, Character: open.Character + 1}}
		if f.isList() {
			p.report(UNT2002.New(openRange, "List is not closed."))
		} else {
			p.report(UNT2001.New(openRange, "Dictionary is not closed."))
		}
		p.closeTop(p.pos(col))
	}
	if brace == '}' {
		p.report(UNT2001.New(p.lineRange(col, col+1), "Unexpected '}' with no open dictionary."))
	} else {
		p.report(UNT2002.New(p.lineRange(col, col+1), "Unexpected ']' with no open list."))
	}
}

func (p *parser) closeTop(end Position) {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	f.base.rng.End = end
	switch c := f.container.(type) {
	case *Dictionary:
		c.children = f.children
		c.count = f.count
	case *List:
		c.children = f.children
		c.count = f.count
	}
	if f.owner != nil {
		f.owner.rng.End = end
	}
}

func (p *parser) readProperty(f *frame, line []byte, col int) {
	prop := &Property{}
	var keyEnd int
	if line[col] == '"' {
		prop.Key, keyEnd = p.readQuoted(line, col)
		prop.KeyQuoted = true
	} else {
		keyEnd = col
		for keyEnd < len(line) && line[keyEnd] != ' ' && line[keyEnd] != '\t' {
			keyEnd++
		}
		prop.Key = string(line[col:keyEnd])
	}
	prop.KeyRange = p.lineRange(col, keyEnd)
	prop.rng = prop.KeyRange
	p.add(f, prop, &prop.base)

	valueStart := skipSpace(line, keyEnd)
	if valueStart >= len(line) || bytes.HasPrefix(line[valueStart:], []byte("//")) {
		return
	}

	rest := bytes.TrimSpace(line[valueStart:])
	if len(rest) == 1 && (rest[0] == '{' || rest[0] == '[') {
		container, b := p.newContainer(valueStart, rest[0])
		p.setValue(prop, container, b)
		p.stack = append(p.stack, &frame{container: container, base: b, owner: prop})
		return
	}

	v := p.readValue(line, valueStart)
	p.setValue(prop, v, &v.base)
}

func (p *parser) readValue(line []byte, col int) *Value {
	v := &Value{}
	if line[col] == '"' {
		var end int
		v.Text, end = p.readQuoted(line, col)
		v.Quoted = true
		v.rng = p.lineRange(col, end)
		return v
	}

	end := len(line)
	if i := bytes.Index(line[col:], []byte(" //")); i >= 0 {
		end = col + i
	}
	text := bytes.TrimRight(line[col:end], " \t")
	v.Text = string(text)
	v.rng = p.lineRange(col, col+len(text))
	return v
}

// readQuoted reads a quoted string starting at the opening quote and returns
// the unescaped text and the column after the closing quote.
func (p *parser) readQuoted(line []byte, col int) (string, int) {
	var sb strings.Builder
	i := col + 1
	for i < len(line) {
		c := line[i]
		switch {
		case c == '"':
			return sb.String(), i + 1
		case c == '\\' && i+1 < len(line):
			switch line[i+1] {
			case '"', '\\':
				sb.WriteByte(line[i+1])
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				p.report(UNT1004.New(p.lineRange(i, i+2), "Unrecognized escape sequence '\\%c'.", line[i+1]))
				sb.WriteByte(c)
				sb.WriteByte(line[i+1])
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	p.report(UNT1002.New(p.lineRange(col, len(line)), "Quoted string is not terminated."))
	return sb.String(), len(line)
}
