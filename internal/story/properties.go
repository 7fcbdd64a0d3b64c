package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
)

// Properties is a partial update keyed by JSON field name. A nil value
// unsets the field.
type Properties map[string]any

// Reserved keys are stripped before an update is merged.
var (
	ElementReservedKeys = []string{"id", "isBackground"}
	PageReservedKeys    = []string{"id", "elements", "groups"}
	StoryReservedKeys   = []string{"storyId"}
)

// Without returns a copy of p minus the given keys.
func (p Properties) Without(keys ...string) Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Pick returns a copy of p restricted to the given keys.
func (p Properties) Pick(keys ...string) Properties {
	out := make(Properties, len(keys))
	for _, k := range keys {
		if v, ok := p[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Updater computes properties from the current value. It must not modify cur.
type Updater[T any] func(cur *T) Properties

// Patch is either a plain set of properties or an updater evaluated against
// the current value. The zero Patch resolves to no properties.
type Patch[T any] struct {
	Value   Properties
	Updater Updater[T]
}

// Set returns a value patch.
func Set[T any](props Properties) Patch[T] {
	return Patch[T]{Value: props}
}

// Update returns an updater patch.
func Update[T any](fn Updater[T]) Patch[T] {
	return Patch[T]{Updater: fn}
}

// Resolve evaluates the patch against cur.
func (p Patch[T]) Resolve(cur *T) Properties {
	if p.Updater != nil {
		return p.Updater(cur)
	}
	return p.Value
}

// ErrUpdaterPatch is returned when encoding a patch that holds an updater.
var ErrUpdaterPatch = errors.New("updater patch cannot be encoded")

func (p Patch[T]) MarshalJSON() ([]byte, error) {
	if p.Updater != nil {
		return nil, ErrUpdaterPatch
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON always yields a value patch.
func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	p.Updater = nil
	return json.Unmarshal(data, &p.Value)
}

type (
	ElementPatch = Patch[Element]
	StoryPatch   = Patch[Story]
)

// ApplyElementProperties merges props into a copy of el. The second result
// is false when nothing applicable was given and el is returned untouched.
func ApplyElementProperties(el *Element, props Properties) (*Element, bool) {
	allowed := props.Without(ElementReservedKeys...)
	if len(allowed) == 0 {
		return el, false
	}
	next, changed, err := merge(el, allowed)
	if err != nil || !changed {
		return el, false
	}
	return next, true
}

// ApplyPageProperties merges props into a shallow copy of p, keeping the
// element, animation and group slices shared.
func ApplyPageProperties(p *Page, props Properties) (*Page, bool) {
	allowed := props.Without(PageReservedKeys...)
	if len(allowed) == 0 {
		return p, false
	}
	// elements are reserved; merge a detached header so element pointers survive
	header := *p
	header.Elements = nil
	next, changed, err := merge(&header, allowed)
	if err != nil || !changed {
		return p, false
	}
	next.Elements = p.Elements
	next.Groups = p.Groups
	if _, ok := allowed["animations"]; !ok {
		next.Animations = p.Animations
	}
	if _, ok := allowed["defaultBackgroundElement"]; !ok {
		next.DefaultBackgroundElement = p.DefaultBackgroundElement
	}
	// snapshot validity is keyed on the background color pointer
	if _, ok := allowed["backgroundColor"]; !ok {
		next.BackgroundColor = p.BackgroundColor
	}
	return next, true
}

// ApplyStoryProperties merges props into a copy of s.
func ApplyStoryProperties(s *Story, props Properties) (*Story, bool) {
	allowed := props.Without(StoryReservedKeys...)
	if len(allowed) == 0 {
		return s, false
	}
	if s == nil {
		s = &Story{}
	}
	next, changed, err := merge(s, allowed)
	if err != nil || !changed {
		return s, false
	}
	return next, true
}

// ApplyGroupProperties merges props into g. The second result is false when
// the merge left g unchanged.
func ApplyGroupProperties(g Group, props Properties) (Group, bool) {
	if len(props) == 0 {
		return g, false
	}
	next, changed, err := merge(&g, props)
	if err != nil || !changed {
		return g, false
	}
	return *next, true
}

// PickElementProperties returns the JSON values of the given keys that are
// set on el.
func PickElementProperties(el *Element, keys ...string) Properties {
	m, err := toMap(el)
	if err != nil {
		return Properties{}
	}
	return Properties(m).Pick(keys...)
}

// merge applies props to a copy of cur. changed is false when the result
// encodes exactly like cur.
func merge[T any](cur *T, props Properties) (next *T, changed bool, err error) {
	before, err := toMap(cur)
	if err != nil {
		return nil, false, err
	}
	m := maps.Clone(before)
	for k, v := range props {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, false, fmt.Errorf("marshal merged properties: %w", err)
	}
	next = new(T)
	if err := json.Unmarshal(data, next); err != nil {
		return nil, false, fmt.Errorf("unmarshal merged properties: %w", err)
	}
	after, err := toMap(next)
	if err != nil {
		return nil, false, err
	}
	return next, !reflect.DeepEqual(before, after), nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// --- unknown-key preservation ---

var (
	elementKeys = jsonKeys(reflect.TypeOf(Element{}))
	pageKeys    = jsonKeys(reflect.TypeOf(Page{}))
	storyKeys   = jsonKeys(reflect.TypeOf(Story{}))
)

func jsonKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = true
	}
	return keys
}

func marshalWithExtra(plain any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(plain)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func unknownKeys(data []byte, known map[string]bool) (map[string]any, error) {
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k := range m {
		if known[k] {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func (e Element) MarshalJSON() ([]byte, error) {
	type plain Element
	return marshalWithExtra(plain(e), e.Extra)
}

func (e *Element) UnmarshalJSON(data []byte) error {
	type plain Element
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownKeys(data, elementKeys)
	if err != nil {
		return err
	}
	*e = Element(p)
	e.Extra = extra
	return nil
}

func (p Page) MarshalJSON() ([]byte, error) {
	type plain Page
	return marshalWithExtra(plain(p), p.Extra)
}

func (p *Page) UnmarshalJSON(data []byte) error {
	type plain Page
	var pl plain
	if err := json.Unmarshal(data, &pl); err != nil {
		return err
	}
	extra, err := unknownKeys(data, pageKeys)
	if err != nil {
		return err
	}
	*p = Page(pl)
	p.Extra = extra
	return nil
}

func (s Story) MarshalJSON() ([]byte, error) {
	type plain Story
	return marshalWithExtra(plain(s), s.Extra)
}

func (s *Story) UnmarshalJSON(data []byte) error {
	type plain Story
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownKeys(data, storyKeys)
	if err != nil {
		return err
	}
	*s = Story(p)
	s.Extra = extra
	return nil
}
