package engine

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/compiler"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/render"
)

type RelationKind int

const (
	// ToOne means the owner row carries the key (user.profile_id -> profiles.id).
	ToOne RelationKind = iota
	// ToMany means each related row points back at its owner (orders.user_id -> users.id).
	ToMany
)

// Relation describes how one named relation hop maps onto a table join.
// Zero-value key columns fall back to convention: a to-one key lives on
// the owner as <singular relation>_id, a to-many key on the related table
// as <singular owner table>_id, both referencing id.
type Relation struct {
	Kind       RelationKind
	Table      string
	ForeignKey string
	Reference  string
}

// Schema maps relation paths onto concrete tables for one root entity.
// The relation namespace is flat: a path segment names the same relation
// wherever it appears.
type Schema struct {
	table     string
	alias     string
	relations map[string]Relation
}

func NewSchema(table, alias string) *Schema {
	return &Schema{
		table:     table,
		alias:     alias,
		relations: make(map[string]Relation),
	}
}

func (s *Schema) Table() string {
	return s.table
}

// RootAlias returns the alias criteria fields resolve against, falling
// back to the table name when none was given.
func (s *Schema) RootAlias() string {
	if s.alias != "" {
		return s.alias
	}
	return s.table
}

// HasOne registers a to-one relation under name.
func (s *Schema) HasOne(name, table string) *Schema {
	s.relations[name] = Relation{Kind: ToOne, Table: table}
	return s
}

// HasMany registers a to-many relation under name.
func (s *Schema) HasMany(name, table string) *Schema {
	s.relations[name] = Relation{Kind: ToMany, Table: table}
	return s
}

// Register records a relation with explicit key columns, overriding the
// naming convention.
func (s *Schema) Register(name string, relation Relation) *Schema {
	s.relations[name] = relation
	return s
}

func (s *Schema) Relation(name string) (Relation, bool) {
	relation, ok := s.relations[name]
	return relation, ok
}

// joinClause renders one join spec into a "table AS alias ON condition"
// clause plus its arguments. aliasTables tracks the table behind every
// alias emitted so far, so a nested to-many hop can derive its key from
// the owner table; the new alias is recorded before returning.
func (s *Schema) joinClause(spec compiler.JoinSpec, aliasTables map[string]string) (string, []any, error) {
	parentAlias, name := splitRelationPath(spec.RelationPath(), s.RootAlias())

	table := name
	relation, known := s.relations[name]
	if known {
		table = relation.Table
	}

	condition := spec.Condition()
	overridden := condition.IsSome() && condition.Unwrap().Kind() == compiler.ConditionKindOn

	var (
		on   string
		args []any
	)
	if overridden {
		rendered, err := render.Render(condition.Unwrap().Expr(), render.Style(render.StyleQuestion))
		if err != nil {
			return "", nil, errors.Wrapf(err, "render join condition for %q", spec.Alias())
		}
		on = rendered.SQL
		args = rendered.Args
	} else {
		if !known {
			return "", nil, errors.Errorf("engine: unknown relation %q in %q", name, spec.RelationPath())
		}
		ownerTable, ok := aliasTables[parentAlias]
		if !ok {
			return "", nil, errors.Errorf("engine: unknown parent alias %q in %q", parentAlias, spec.RelationPath())
		}
		on = relationCondition(relation, name, parentAlias, spec.Alias(), ownerTable)
		if condition.IsSome() {
			rendered, err := render.Render(condition.Unwrap().Expr(), render.Style(render.StyleQuestion))
			if err != nil {
				return "", nil, errors.Wrapf(err, "render join condition for %q", spec.Alias())
			}
			on += " AND " + rendered.SQL
			args = rendered.Args
		}
	}

	aliasTables[spec.Alias()] = table
	return fmt.Sprintf("%s AS %s ON %s", table, spec.Alias(), on), args, nil
}

func relationCondition(relation Relation, name, parentAlias, alias, ownerTable string) string {
	reference := relation.Reference
	if reference == "" {
		reference = "id"
	}
	key := relation.ForeignKey
	if relation.Kind == ToOne {
		if key == "" {
			key = inflection.Singular(name) + "_id"
		}
		return fmt.Sprintf("%s.%s = %s.%s", parentAlias, key, alias, reference)
	}
	if key == "" {
		key = inflection.Singular(ownerTable) + "_id"
	}
	return fmt.Sprintf("%s.%s = %s.%s", alias, key, parentAlias, reference)
}

// splitRelationPath splits a parent-qualified relation path into its
// parent alias and relation name. A bare name belongs to the root.
func splitRelationPath(path, rootAlias string) (string, string) {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i], path[i+1:]
	}
	return rootAlias, path
}
