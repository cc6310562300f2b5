package metadata

import (
	"slices"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"pomegranate/internal/domain/crud"
)

// jsonFields are stored as encoded JSON text.
var jsonFields = map[string]bool{"interests": true, "options": true}

// readOnlyFields are maintained by the store or by hooks.
var readOnlyFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"like_count": true, "comment_count": true, "collect_count": true,
	"follow_count": true, "fans_count": true, "use_count": true,
}

// Inspect describes the entity served by rs.
func Inspect(rs *crud.RouteSet) EntityDef {
	cfg := rs.Config()

	def := EntityDef{
		Name:       cfg.Name,
		Label:      guessLabel(cfg.Name),
		Route:      cfg.Route,
		PrimaryKey: cfg.PrimaryKey,
		Access:     accessName(cfg.Access),
		Fields:     inspectFields(cfg),
	}
	for _, r := range rs.Routes() {
		def.Operations = append(def.Operations, string(r.Operation))
	}
	for _, c := range cfg.Cascades {
		if !slices.Contains(def.Cascades, c.Table) {
			def.Cascades = append(def.Cascades, c.Table)
		}
	}
	return def
}

// RegisterAll inspects every RouteSet of reg into a new Registry.
func RegisterAll(reg *crud.Registry) *Registry {
	out := NewRegistry()
	for _, rs := range reg.All() {
		out.Register(Inspect(rs))
	}
	return out
}

func inspectFields(cfg *crud.EntityConfig) []FieldDef {
	names := cfg.Columns
	if len(names) == 0 {
		names = cfg.Writable()
	}
	writable := cfg.Writable()

	fields := make([]FieldDef, 0, len(names)+1)
	seen := make(map[string]bool, len(names)+1)
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		f := FieldDef{
			Name:     name,
			Label:    guessLabel(name),
			Required: slices.Contains(cfg.RequiredFields, name),
			ReadOnly: readOnlyFields[name] || !slices.Contains(writable, name),
			Unique:   slices.Contains(cfg.UniqueFields, name),
			Hidden:   slices.Contains(cfg.HiddenFields, name),
			Sortable: slices.Contains(cfg.SortFields, name),
		}
		if sf, ok := cfg.SearchFields[name]; ok {
			f.Search = string(sf.Operator)
		}
		mapFieldType(&f, name, cfg)
		fields = append(fields, f)
	}

	add(cfg.PrimaryKey)
	for _, n := range names {
		add(n)
	}
	return fields
}

// mapFieldType infers a type from column naming conventions.
func mapFieldType(def *FieldDef, name string, cfg *crud.EntityConfig) {
	switch {
	case name == cfg.PrimaryKey && name == "id":
		def.Type = TypeInteger
	case jsonFields[name]:
		def.Type = TypeJSON
	case strings.HasSuffix(name, "_at"):
		def.Type = TypeDate
	case strings.HasPrefix(name, "is_"):
		def.Type = TypeBoolean
	case name == "user_id" && cfg.Table == "users":
		// the public handle, not a foreign key
		def.Type = TypeString
	case strings.HasSuffix(name, "_id"):
		def.Type = TypeReference
		def.ReferenceType = referenceOf(strings.TrimSuffix(name, "_id"))
	case strings.HasSuffix(name, "_count"), strings.HasSuffix(name, "_type"),
		name == "type", name == "gender", name == "sort_order":
		def.Type = TypeInteger
	default:
		def.Type = TypeString
	}
}

// referenceOf maps a foreign key prefix to the table it points at.
func referenceOf(base string) string {
	switch base {
	case "sender", "follower", "following":
		return "users"
	case "parent":
		return "comments"
	case "target":
		return ""
	}
	return inflection.Plural(base)
}

func accessName(a crud.Access) string {
	if a == crud.Authenticated {
		return "authenticated"
	}
	return "admin"
}

// guessLabel turns snake_case into a capitalized phrase: "survey_questions" -> "Survey questions".
func guessLabel(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
