package components

import (
	"regexp"
	str "strings"
)

// lineRegex matches
//
//	<subject/m.id> <predicate> "literal"@lang .
//	<subject/m.id> <predicate> <object/suffix> .
var lineRegex = regexp.MustCompile(`^<([^<>\s]*/m\.([a-z0-9_]+))>\s+<([^<>\s]+)>\s+(?:"(.+)"@([a-zA-Z]+(?:-[a-zA-Z0-9]+)*)|<([^<>\s]*/([^<>\s/]+))>)\s+\.$`)

const (
	groupSubject = 1 + iota
	groupID
	groupPredicate
	groupText
	groupLang
	groupObject
	groupSuffix
)

var unescaper = str.NewReplacer(`\n`, "\n", `\"`, `"`, `\\`, `\`)

// Unescape decodes the escape sequences \n, \" and \\ in a quoted literal.
// Any other backslash sequence is left as is.
func Unescape(s string) string {
	if !str.Contains(s, `\`) {
		return s
	}
	return unescaper.Replace(s)
}

// ParseLine parses one line of the dump. The second return value is false
// when the line does not have the expected shape.
func ParseLine(line string) (Statement, bool) {
	m := lineRegex.FindStringSubmatch(line)
	if m == nil {
		return Statement{}, false
	}
	st := Statement{
		Subject:   m[groupSubject],
		SubjectID: m[groupID],
		Predicate: m[groupPredicate],
	}
	if m[groupObject] != "" {
		st.Object = m[groupObject]
		st.ObjectTypeSuffix = m[groupSuffix]
	} else {
		st.LiteralValue = Unescape(m[groupText])
		st.LiteralLang = m[groupLang]
	}
	return st, true
}

// --------------------------------------------------------------------------------
// TripleParser
// --------------------------------------------------------------------------------

// TripleParser is a process that parses the lines it receives on In and
// sends the matching statements on Out. Lines that do not match are dropped
// and only counted.
type TripleParser struct {
	In  chan string
	Out chan Statement
	// Languages, when non-empty, restricts literal statements to these
	// language tags.
	Languages []string
	metrics   *Metrics
	tap       *StatementWriter
	matched   int
	skipped   int
}

func NewTripleParser(metrics *Metrics) *TripleParser {
	return &TripleParser{
		In:      make(chan string, BUFSIZE),
		Out:     make(chan Statement, BUFSIZE),
		metrics: metrics,
	}
}

// SetTap makes the parser hand every forwarded statement to w as well.
func (p *TripleParser) SetTap(w *StatementWriter) {
	p.tap = w
}

// Run runs the TripleParser process.
func (p *TripleParser) Run() {
	defer close(p.Out)
	for line := range p.In {
		st, ok := ParseLine(line)
		if !ok {
			p.skipped++
			p.metrics.lineSkipped()
			continue
		}
		if st.HasLiteral() && !p.acceptsLanguage(st.LiteralLang) {
			p.metrics.statementIgnored()
			continue
		}
		if p.tap != nil {
			p.tap.Write(st)
		}
		p.matched++
		p.Out <- st
	}
}

// Matched returns the number of statements forwarded on Out.
func (p *TripleParser) Matched() int {
	return p.matched
}

// Skipped returns the number of lines that did not match the grammar.
func (p *TripleParser) Skipped() int {
	return p.skipped
}

func (p *TripleParser) acceptsLanguage(lang string) bool {
	if len(p.Languages) == 0 {
		return true
	}
	for _, l := range p.Languages {
		if str.EqualFold(l, lang) {
			return true
		}
	}
	return false
}
