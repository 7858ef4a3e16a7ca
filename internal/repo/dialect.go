package repo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkordes/modelio/internal/schema"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	name         string
	numbered     bool // $1, $2 placeholders instead of ?
	backticks    bool // `ident` quoting instead of "ident"
	returning    bool // INSERT ... RETURNING is available and LastInsertId is not needed
	insertIgnore bool // INSERT IGNORE instead of ON CONFLICT DO NOTHING
}

var (
	Postgres = Dialect{name: "postgres", numbered: true, returning: true}
	SQLite   = Dialect{name: "sqlite"}
	MySQL    = Dialect{name: "mysql", backticks: true, insertIgnore: true}
)

// Name returns the dialect name.
func (d Dialect) Name() string { return d.name }

func (d Dialect) quote(ident string) string {
	if d.backticks {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d Dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// builder generates parameterised SQL for one dialect. Identifiers come from
// the schema and are always quoted; values are always bound.
type builder struct {
	d   Dialect
	reg *schema.Registry
}

// statement is generated SQL plus its bound arguments.
type statement struct {
	sql  string
	args []any
}

func (s *statement) bind(v any) {
	s.args = append(s.args, bindValue(v))
}

// pkAlias is the alias the identifier is always read under in bulk reads.
const pkAlias = "__pk"

func (b builder) selectRecords(m *schema.Model, proj []Projection, q Query) (statement, error) {
	var (
		st    statement
		cols  = []string{"t0." + b.d.quote(m.PKColumn()) + " AS " + b.d.quote(pkAlias)}
		joins []string
		seen  = map[string]string{}
	)

	for _, p := range proj {
		table := "t0"
		if p.Via != nil {
			alias, ok := seen[p.Via.Name]
			if !ok {
				related, err := b.reg.Related(*p.Via)
				if err != nil {
					return statement{}, err
				}
				alias = fmt.Sprintf("j%d", len(seen)+1)
				seen[p.Via.Name] = alias
				joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s = t0.%s",
					b.d.quote(related.Table), alias,
					alias, b.d.quote(related.PKColumn()),
					b.d.quote(p.Via.Column)))
			}
			table = alias
		}
		cols = append(cols, table+"."+b.d.quote(p.Column)+" AS "+b.d.quote(p.Alias))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.d.quote(m.Table))
	sb.WriteString(" t0")
	for _, j := range joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if q.IDs != nil {
		ph := make([]string, len(q.IDs))
		for i, id := range q.IDs {
			st.bind(id)
			ph[i] = b.d.placeholder(len(st.args))
		}
		sb.WriteString(" WHERE t0.")
		sb.WriteString(b.d.quote(m.PKColumn()))
		sb.WriteString(" IN (")
		sb.WriteString(strings.Join(ph, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" ORDER BY t0.")
	sb.WriteString(b.d.quote(m.PKColumn()))

	st.sql = sb.String()
	return st, nil
}

func (b builder) relatedValues(f schema.Field, ownerID int64, column string) (statement, error) {
	related, err := b.reg.Related(f)
	if err != nil {
		return statement{}, err
	}
	st := statement{args: []any{ownerID}}
	rpk := b.d.quote(related.PKColumn())

	switch f.Relation {
	case schema.RelManyToMany:
		st.sql = fmt.Sprintf("SELECT r.%s FROM %s r JOIN %s j ON j.%s = r.%s WHERE j.%s = %s ORDER BY r.%s",
			b.d.quote(column), b.d.quote(related.Table), b.d.quote(f.JoinTable),
			b.d.quote(f.JoinRelatedColumn), rpk,
			b.d.quote(f.JoinOwnerColumn), b.d.placeholder(1), rpk)
	case schema.RelOneToMany:
		st.sql = fmt.Sprintf("SELECT r.%s FROM %s r WHERE r.%s = %s ORDER BY r.%s",
			b.d.quote(column), b.d.quote(related.Table),
			b.d.quote(f.RelatedColumn), b.d.placeholder(1), rpk)
	default:
		return statement{}, fmt.Errorf("field %q is not a multi-valued relation", f.Name)
	}
	return st, nil
}

func (b builder) lookupID(m *schema.Model, column string, value any) statement {
	st := statement{args: []any{bindValue(value)}}
	pk := b.d.quote(m.PKColumn())
	st.sql = fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s LIMIT 1",
		pk, b.d.quote(m.Table), b.d.quote(column), b.d.placeholder(1), pk)
	return st
}

func (b builder) insert(m *schema.Model, values map[string]any) statement {
	var st statement
	cols := sortedKeys(values)

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.d.quote(m.Table))
	switch {
	case len(cols) == 0 && b.d.backticks:
		sb.WriteString(" () VALUES ()")
	case len(cols) == 0:
		sb.WriteString(" DEFAULT VALUES")
	default:
		quoted := make([]string, len(cols))
		ph := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = b.d.quote(c)
			st.bind(values[c])
			ph[i] = b.d.placeholder(len(st.args))
		}
		sb.WriteString(" (")
		sb.WriteString(strings.Join(quoted, ", "))
		sb.WriteString(") VALUES (")
		sb.WriteString(strings.Join(ph, ", "))
		sb.WriteString(")")
	}
	if b.d.returning {
		sb.WriteString(" RETURNING ")
		sb.WriteString(b.d.quote(m.PKColumn()))
	}
	st.sql = sb.String()
	return st
}

// update returns an UPDATE statement, or an existence probe when values is empty
// so that callers still learn whether the identifier exists.
func (b builder) update(m *schema.Model, id int64, values map[string]any) (st statement, probe bool) {
	pk := b.d.quote(m.PKColumn())
	cols := sortedKeys(values)
	if len(cols) == 0 {
		st.args = []any{id}
		st.sql = fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", b.d.quote(m.Table), pk, b.d.placeholder(1))
		return st, true
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		st.bind(values[c])
		sets[i] = b.d.quote(c) + " = " + b.d.placeholder(len(st.args))
	}
	st.bind(id)
	st.sql = fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		b.d.quote(m.Table), strings.Join(sets, ", "), pk, b.d.placeholder(len(st.args)))
	return st, false
}

func (b builder) addRelated(f schema.Field, ownerID, relatedID int64) (statement, error) {
	switch f.Relation {
	case schema.RelManyToMany:
		st := statement{args: []any{ownerID, relatedID}}
		cols := b.d.quote(f.JoinOwnerColumn) + ", " + b.d.quote(f.JoinRelatedColumn)
		if b.d.insertIgnore {
			st.sql = fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s, %s)",
				b.d.quote(f.JoinTable), cols, b.d.placeholder(1), b.d.placeholder(2))
		} else {
			st.sql = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s, %s) ON CONFLICT DO NOTHING",
				b.d.quote(f.JoinTable), cols, b.d.placeholder(1), b.d.placeholder(2))
		}
		return st, nil
	case schema.RelOneToMany:
		related, err := b.reg.Related(f)
		if err != nil {
			return statement{}, err
		}
		return statement{
			sql: fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
				b.d.quote(related.Table), b.d.quote(f.RelatedColumn), b.d.placeholder(1),
				b.d.quote(related.PKColumn()), b.d.placeholder(2)),
			args: []any{ownerID, relatedID},
		}, nil
	default:
		return statement{}, fmt.Errorf("field %q is not a multi-valued relation", f.Name)
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
