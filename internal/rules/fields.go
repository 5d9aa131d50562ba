// internal/rules/fields.go
package rules

/*
 * Allowed fields and per-field operator suggestions.
 *
 * A rule may only reference fields from the allow-list below. Rules naming
 * any other field evaluate to false before negation. The operator table is
 * what editors offer for each field; evaluation itself accepts every known
 * operator on every allowed field.
 */

// Field names a rule may reference.
const (
	FieldPath       = "path"
	FieldKind       = "kind"
	FieldSize       = "size"
	FieldMtime      = "mtime"
	FieldTitle      = "title"
	FieldAlbum      = "album"
	FieldArtist     = "artist"
	FieldGenre      = "genre"
	FieldYear       = "year"
	FieldDuration   = "duration"
	FieldRating     = "rating"
	FieldResolution = "resolution"
	FieldBitrate    = "bitrate"
	FieldTags       = "tags"
	FieldAgeDays    = "age_days"
	FieldFilesizeMB = "filesize_mb"
)

var allowedFields = []string{
	FieldPath, FieldKind, FieldSize, FieldMtime, FieldTitle, FieldAlbum,
	FieldArtist, FieldGenre, FieldYear, FieldDuration, FieldRating,
	FieldResolution, FieldBitrate, FieldTags, FieldAgeDays, FieldFilesizeMB,
}

var allowedSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(allowedFields))
	for _, f := range allowedFields {
		m[f] = struct{}{}
	}
	return m
}()

var (
	numericOps = []Operator{OpGte, OpLte, OpEq, OpNeq, OpGt, OpLt, OpBetween}
	textOps    = []Operator{OpContains, OpNotContains, OpEq, OpNeq, OpStartsWith, OpEndsWith, OpRegex}
	timeOps    = []Operator{OpGte, OpLte, OpGt, OpLt, OpWithinHours, OpWithinDays, OpWithinWeeks, OpWithinMonths}
)

// fieldOps is the editor's operator suggestion table.
var fieldOps = map[string][]Operator{
	FieldRating:     {OpGte, OpLte, OpEq, OpGt, OpLt, OpBetween},
	FieldKind:       {OpEq, OpNeq, OpIn, OpNotContains},
	FieldDuration:   {OpGte, OpLte, OpGt, OpLt, OpBetween},
	FieldMtime:      timeOps,
	FieldGenre:      {OpContains, OpNotContains, OpEq, OpIn},
	FieldTags:       {OpHasTag, OpContains, OpNotContains},
	FieldTitle:      {OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpRegex},
	FieldAlbum:      textOps,
	FieldArtist:     textOps,
	FieldPath:       {OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpRegex},
	FieldResolution: {OpEq, OpNeq, OpIn, OpContains},
	FieldSize:       numericOps,
	FieldYear:       numericOps,
	FieldBitrate:    numericOps,
	FieldAgeDays:    numericOps,
	FieldFilesizeMB: numericOps,
}

var fallbackOps = []Operator{OpEq, OpNeq}

// AllowedFields returns the fields a rule may reference, in display order.
func AllowedFields() []string {
	out := make([]string, len(allowedFields))
	copy(out, allowedFields)
	return out
}

// IsAllowedField reports whether field is in the allow-list.
func IsAllowedField(field string) bool {
	_, ok := allowedSet[field]
	return ok
}

// OperatorsFor returns the operators an editor should offer for field.
// Fields without an entry get equality only.
func OperatorsFor(field string) []Operator {
	ops, ok := fieldOps[field]
	if !ok {
		ops = fallbackOps
	}
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// ValueProvider resolves a field name to the current entry's value.
// Absent fields resolve to nil.
type ValueProvider func(field string) any

// FieldResolver is implemented by catalog objects that expose rule fields.
// The second result is false when the object has no such field, which lets
// callers fall through to the next resolver.
type FieldResolver interface {
	Resolve(field string) (any, bool)
}

// Fields is a map-backed FieldResolver.
type Fields map[string]any

// Resolve implements FieldResolver.
func (f Fields) Resolve(field string) (any, bool) {
	v, ok := f[field]
	return v, ok
}

// Provider adapts the map to a ValueProvider.
func (f Fields) Provider() ValueProvider {
	return func(field string) any { return f[field] }
}
