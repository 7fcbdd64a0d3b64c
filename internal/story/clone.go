package story

import (
	"strings"

	"github.com/jinzhu/copier"
)

var deepCopy = copier.Option{CaseSensitive: true, DeepCopy: true}

// CloneElement returns a deep copy of el.
func CloneElement(el *Element) *Element {
	if el == nil {
		return nil
	}
	out := new(Element)
	if err := copier.CopyWithOption(out, el, deepCopy); err != nil {
		c := *el
		return &c
	}
	return out
}

// CloneAnimation returns a deep copy of a.
func CloneAnimation(a *Animation) *Animation {
	if a == nil {
		return nil
	}
	out := new(Animation)
	if err := copier.CopyWithOption(out, a, deepCopy); err != nil {
		c := *a
		c.Targets = append([]string(nil), a.Targets...)
		return &c
	}
	return out
}

// ClonePage returns a copy of p with its own element, animation and group
// containers. Elements themselves stay shared.
func ClonePage(p *Page) *Page {
	c := *p
	c.Elements = append([]*Element(nil), p.Elements...)
	if p.Animations != nil {
		c.Animations = append([]*Animation(nil), p.Animations...)
	}
	if p.Groups != nil {
		c.Groups = make(map[string]Group, len(p.Groups))
		for k, v := range p.Groups {
			c.Groups[k] = v
		}
	}
	return &c
}

const blobPrefix = "blob:"

// HasBlobResource reports whether el references media that only exists
// locally while an upload is in progress.
func HasBlobResource(el *Element) bool {
	if el == nil || el.Resource == nil {
		return false
	}
	return strings.HasPrefix(el.Resource.Src, blobPrefix) || strings.HasPrefix(el.Resource.Poster, blobPrefix)
}
