// Package confidence checks that a confidence tree mirrors a data tree.
package confidence

import (
	"fmt"
	"strconv"

	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Validate co-walks data and conf and returns one message per violation.
// Paths are dot-separated for objects and bracket-indexed for arrays
// ("items[0].sku"). It never fails; an empty slice means conf is complete.
func Validate(data, conf jsonvalue.Value) []string {
	w := &walker{violations: []string{}}
	if data.IsObject() {
		if !conf.IsObject() {
			w.add("expected confidence object at top level, got %s", conf.Kind())
			return w.violations
		}
		w.object("", data, conf)
		return w.violations
	}
	w.value("", data, conf)
	return w.violations
}

type walker struct {
	violations []string
}

func (w *walker) add(format string, args ...any) {
	w.violations = append(w.violations, fmt.Sprintf(format, args...))
}

func (w *walker) object(path string, data, conf jsonvalue.Value) {
	for _, m := range data.Members() {
		p := join(path, m.Key)
		c, ok := conf.Field(m.Key)
		if !ok {
			w.add("missing confidence for field `%s`", p)
			continue
		}
		w.value(p, m.Value, c)
	}
}

func (w *walker) value(path string, data, conf jsonvalue.Value) {
	switch data.Kind() {
	case jsonvalue.Object:
		if !conf.IsObject() {
			w.add("expected confidence object for field `%s`, got %s", display(path), conf.Kind())
			return
		}
		w.object(path, data, conf)
	case jsonvalue.Array:
		switch {
		case data.Len() == 0:
			// nothing extracted: a single score or any array is acceptable
			if !conf.IsArray() {
				w.score(path, conf)
			}
		case allObjects(data):
			w.objectArray(path, data, conf)
		default:
			w.score(path, conf)
		}
	default:
		w.score(path, conf)
	}
}

func (w *walker) objectArray(path string, data, conf jsonvalue.Value) {
	if !conf.IsArray() {
		w.add("expected confidence array for field `%s`, got %s", display(path), conf.Kind())
		return
	}
	for i, elem := range data.Elements() {
		p := fmt.Sprintf("%s[%d]", path, i)
		c, ok := conf.Index(i)
		if !ok {
			w.add("missing confidence for field `%s`", p)
			continue
		}
		w.value(p, elem, c)
	}
}

func (w *walker) score(path string, conf jsonvalue.Value) {
	n, ok := conf.Number()
	if !ok {
		w.add("confidence for field `%s` must be a number, got %s", display(path), conf.Kind())
		return
	}
	if n < MinScore || n > MaxScore {
		w.add("confidence for field `%s` is out of range [%d,%d]: %s",
			display(path), MinScore, MaxScore, strconv.FormatFloat(n, 'g', -1, 64))
	}
}

func allObjects(arr jsonvalue.Value) bool {
	for _, e := range arr.Elements() {
		if !e.IsObject() {
			return false
		}
	}
	return true
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func display(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
