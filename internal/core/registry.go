package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// EntityTemplate is the import schema of one entity type.
type EntityTemplate struct {
	Entity  EntityType
	Label   string // Display name: "Companies"
	Table   string // Destination table for executed imports
	Columns []TemplateColumn
}

var (
	registry   = make(map[EntityType]EntityTemplate)
	registryMu sync.RWMutex
)

// Register adds an entity template to the registry.
// Panics if a template for the same entity type is already registered.
func Register(tmpl EntityTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[tmpl.Entity]; exists {
		panic(fmt.Sprintf("entity template already registered: %s", tmpl.Entity))
	}

	cols := make([]TemplateColumn, len(tmpl.Columns))
	copy(cols, tmpl.Columns)
	for i := range cols {
		if cols[i].DBColumn == "" {
			cols[i].DBColumn = toDBColumnName(cols[i].Field)
		}
	}
	tmpl.Columns = cols
	if tmpl.Table == "" {
		tmpl.Table = string(tmpl.Entity)
	}

	registry[tmpl.Entity] = tmpl
}

// Lookup returns the template for an entity type.
func Lookup(entityType EntityType) (EntityTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	tmpl, ok := registry[entityType]
	return tmpl, ok
}

// All returns every registered template sorted by entity type.
func All() []EntityTemplate {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityTemplate, 0, len(registry))
	for _, tmpl := range registry {
		result = append(result, tmpl)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Entity < result[j].Entity
	})
	return result
}

// ColumnMapping returns the ordered column schema for an entity type.
// The returned slice is a copy.
func ColumnMapping(entityType EntityType) ([]TemplateColumn, error) {
	tmpl, ok := Lookup(entityType)
	if !ok {
		return nil, invalidInput("column mapping", fmt.Errorf("unknown entity type %q", entityType))
	}
	cols := make([]TemplateColumn, len(tmpl.Columns))
	copy(cols, tmpl.Columns)
	return cols, nil
}

// mustColumns is ColumnMapping for internal callers that already hold a
// validated entity type.
func mustColumns(entityType EntityType) []TemplateColumn {
	tmpl, _ := Lookup(entityType)
	return tmpl.Columns
}

// toDBColumnName converts a camelCase field name to snake_case.
func toDBColumnName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
