package paperless

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paperdock/paperdock/internal/errors"
)

// Kind identifies one of the server's entity collections.
type Kind int

const (
	KindTag Kind = iota
	KindCorrespondent
	KindDocType
)

// kindInfo maps a kind to its API endpoint and display format. The format
// receives id, name, slug, and document count.
var kindInfo = map[Kind]struct {
	name     string
	endpoint string
	format   string
}{
	KindTag:           {"tag", "tags", "Tag: %d '%s' %d documents"},
	KindCorrespondent: {"correspondent", "correspondents", "Correspondent: %d '%s' (%s) %d documents"},
	KindDocType:       {"document type", "document_types", "Doc Type: %d '%s' (%s) %d documents"},
}

func (k Kind) String() string {
	return kindInfo[k].name
}

// Endpoint returns the list endpoint path for this kind.
func (k Kind) Endpoint() string {
	return kindInfo[k].endpoint
}

// Kinds lists all entity kinds in registry refresh order.
func Kinds() []Kind {
	return []Kind{KindTag, KindCorrespondent, KindDocType}
}

// Entity is a tag, correspondent, or document type held by the remote
// service. Entities are immutable once materialized; a registry refresh
// replaces them wholesale.
type Entity struct {
	ID            int
	Name          string
	Slug          string
	DocumentCount int
	Kind          Kind
}

func (e Entity) String() string {
	return e.Name
}

// Display renders the entity with its kind-specific format.
func (e Entity) Display() string {
	info := kindInfo[e.Kind]
	if e.Kind == KindTag {
		return fmt.Sprintf(info.format, e.ID, e.Name, e.DocumentCount)
	}
	return fmt.Sprintf(info.format, e.ID, e.Name, e.Slug, e.DocumentCount)
}

// Identifier names an entity either by server-assigned numeric ID or by a
// human-readable string. The numeric form is already canonical.
type Identifier struct {
	id      int
	name    string
	numeric bool
}

// ID makes a numeric identifier.
func ID(id int) Identifier {
	return Identifier{id: id, numeric: true}
}

// Name makes a named identifier.
func Name(name string) Identifier {
	return Identifier{name: name}
}

// ParseIdentifier interprets user input: all-digit strings become numeric
// identifiers, anything else is a name.
func ParseIdentifier(s string) Identifier {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return ID(n)
	}
	return Name(s)
}

// ParseIdentifierList splits comma-separated user input into identifiers.
func ParseIdentifierList(s string) []Identifier {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	idents := make([]Identifier, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		idents = append(idents, ParseIdentifier(p))
	}
	return idents
}

// IsNumeric reports whether the identifier is a canonical numeric ID.
func (i Identifier) IsNumeric() bool {
	return i.numeric
}

func (i Identifier) String() string {
	if i.numeric {
		return strconv.Itoa(i.id)
	}
	return i.name
}

// Registry holds the resolved entity sets for one client session. Each kind
// is replaced atomically on refresh; readers never observe a partial set.
// The registry is owned by a single session and not safe for concurrent use.
type Registry struct {
	sets map[Kind][]Entity
}

// NewRegistry creates an empty registry. Resolution against an empty kind
// fails closed until that kind is refreshed.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[Kind][]Entity)}
}

// Replace swaps in a freshly fetched entity set for a kind.
func (r *Registry) Replace(kind Kind, entities []Entity) {
	set := make([]Entity, len(entities))
	copy(set, entities)
	for i := range set {
		set[i].Kind = kind
	}
	r.sets[kind] = set
}

// Populated reports whether the kind has been refreshed.
func (r *Registry) Populated(kind Kind) bool {
	_, ok := r.sets[kind]
	return ok
}

// All returns the entity set for a kind in server order.
func (r *Registry) All(kind Kind) []Entity {
	return r.sets[kind]
}

// Lookup finds an entity of the given kind by numeric ID.
func (r *Registry) Lookup(kind Kind, id int) (Entity, bool) {
	for _, e := range r.sets[kind] {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// Resolve maps an identifier to a canonical entity ID. Numeric identifiers
// pass through unchanged. Named identifiers match case-sensitively against
// the entity name, else case-insensitively against the slug; the first
// matching entity wins. Resolution before a refresh fails closed.
func (r *Registry) Resolve(kind Kind, ident Identifier) (int, error) {
	if ident.numeric {
		return ident.id, nil
	}
	set, ok := r.sets[kind]
	if !ok {
		return 0, errors.RegistryEmpty(fmt.Sprintf("%s registry not refreshed", kind))
	}
	lower := strings.ToLower(ident.name)
	for _, e := range set {
		if ident.name == e.Name || lower == strings.ToLower(e.Slug) {
			return e.ID, nil
		}
	}
	return 0, errors.NotFoundf("no %s matching %q", kind, ident.name)
}
