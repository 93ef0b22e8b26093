package components

import (
	"github.com/knakk/rdf"
)

const (
	BUFSIZE = 16
)

// Freebase predicates carrying the fields of an EntityRecord. Any other
// predicate is parsed but ignored.
const (
	PredicateAlias = "http://rdf.freebase.com/ns/common.topic.alias"
	PredicateName  = "http://rdf.freebase.com/ns/type.object.name"
	PredicateType  = "http://rdf.freebase.com/ns/type.object.type"
)

// --------------------------------------------------------------------------------
// IP: Statement
// --------------------------------------------------------------------------------

// Statement is one matched line of the dump. Exactly one of LiteralValue or
// ObjectTypeSuffix is set, depending on whether the object was a language
// tagged literal or an entity reference.
type Statement struct {
	Subject          string // full subject IRI
	SubjectID        string
	Predicate        string
	LiteralValue     string
	LiteralLang      string
	Object           string // full object IRI, empty for literals
	ObjectTypeSuffix string
}

// HasLiteral tells whether the object of the statement was a literal.
func (s Statement) HasLiteral() bool {
	return s.Object == ""
}

// Triple converts the statement back into an rdf.Triple.
func (s Statement) Triple() (rdf.Triple, error) {
	subj, err := rdf.NewIRI(s.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	pred, err := rdf.NewIRI(s.Predicate)
	if err != nil {
		return rdf.Triple{}, err
	}
	var obj rdf.Object
	if s.HasLiteral() {
		obj, err = rdf.NewLangLiteral(s.LiteralValue, s.LiteralLang)
	} else {
		obj, err = rdf.NewIRI(s.Object)
	}
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

// --------------------------------------------------------------------------------
// IP: EntityRecord
// --------------------------------------------------------------------------------

// EntityRecord is the summary of one entity: a title per language, aliases
// per language, and the list of types.
type EntityRecord struct {
	MID     string              `json:"mid"`
	Title   map[string]string   `json:"title"`
	Aliases map[string][]string `json:"aliases"`
	Types   []string            `json:"types"`
}

func NewEntityRecord(mid string) *EntityRecord {
	return &EntityRecord{
		MID:     mid,
		Title:   make(map[string]string),
		Aliases: make(map[string][]string),
		Types:   []string{},
	}
}

func (r *EntityRecord) SetTitle(lang, title string) {
	r.Title[lang] = title
}

func (r *EntityRecord) AddAlias(lang, alias string) {
	r.Aliases[lang] = append(r.Aliases[lang], alias)
}

func (r *EntityRecord) AddType(typ string) {
	r.Types = append(r.Types, typ)
}
