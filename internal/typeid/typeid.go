package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixPage      = "page"
	PrefixElement   = "el"
	PrefixGroup     = "group"
	PrefixAnimation = "anim"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewPageID() string      { return New(PrefixPage) }
func NewElementID() string   { return New(PrefixElement) }
func NewGroupID() string     { return New(PrefixGroup) }
func NewAnimationID() string { return New(PrefixAnimation) }

// Validate checks that id parses and carries expectedPrefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
