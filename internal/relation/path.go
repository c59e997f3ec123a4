package relation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dbsmedya/goseed/internal/fixture"
)

// ErrPathConflict is returned when a path runs through a non-object value.
var ErrPathConflict = errors.New("path conflict")

// Path is a parsed dotted field path such as "location.city".
type Path []string

// ParsePath splits a dotted path. Empty segments are rejected.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", s)
		}
	}
	return Path(segs), nil
}

// MustParsePath is ParsePath for static plan data.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Set writes value at p inside rec, creating intermediate objects. An
// existing intermediate that is not an object yields ErrPathConflict.
func (p Path) Set(rec *fixture.Record, value any) error {
	if len(p) == 0 {
		return fmt.Errorf("empty path")
	}
	if len(p) == 1 {
		rec.Set(p[0], value)
		return nil
	}

	head, _ := rec.Get(p[0])
	node, err := p.child(head, 0)
	if err != nil {
		return err
	}
	rec.Set(p[0], node)

	for i := 1; i < len(p)-1; i++ {
		next, err := p.child(node[p[i]], i)
		if err != nil {
			return err
		}
		node[p[i]] = next
		node = next
	}
	node[p[len(p)-1]] = value
	return nil
}

// child returns existing as an object, or a fresh one when it is unset.
func (p Path) child(existing any, depth int) (map[string]any, error) {
	switch v := existing.(type) {
	case nil:
		return make(map[string]any), nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %s holds %T", ErrPathConflict, Path(p[:depth+1]), existing)
	}
}

// Get reads the value at p. ok is false when any segment is missing.
func (p Path) Get(rec *fixture.Record) (any, bool) {
	if len(p) == 0 {
		return nil, false
	}
	cur, ok := rec.Get(p[0])
	for _, seg := range p[1:] {
		if !ok {
			return nil, false
		}
		m, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		cur, ok = m[seg]
	}
	return cur, ok
}

// Delete removes the value at p. Objects left empty by the removal are
// removed too. It reports whether anything was deleted.
func (p Path) Delete(rec *fixture.Record) bool {
	if len(p) == 0 {
		return false
	}
	if len(p) == 1 {
		return rec.Delete(p[0])
	}
	head, ok := rec.Get(p[0])
	if !ok {
		return false
	}
	m, isMap := head.(map[string]any)
	if !isMap || !deleteIn(m, p[1:]) {
		return false
	}
	if len(m) == 0 {
		rec.Delete(p[0])
	}
	return true
}

func deleteIn(m map[string]any, rest Path) bool {
	if len(rest) == 1 {
		if _, ok := m[rest[0]]; !ok {
			return false
		}
		delete(m, rest[0])
		return true
	}
	child, isMap := m[rest[0]].(map[string]any)
	if !isMap || !deleteIn(child, rest[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(m, rest[0])
	}
	return true
}
