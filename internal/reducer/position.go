package reducer

import (
	"encoding/json"
	"fmt"
)

// Position is a target layer position: an absolute Index or a Direction.
type Position interface {
	resolve(current, lo, hi int) int
}

// Index is an absolute position, clamped to the movable range.
type Index int

// Direction is a position relative to the current one.
type Direction string

const (
	Front    Direction = "FRONT"
	Back     Direction = "BACK"
	Forward  Direction = "FORWARD"
	Backward Direction = "BACKWARD"
)

func (i Index) resolve(_, lo, hi int) int {
	return clamp(int(i), lo, hi)
}

func (d Direction) resolve(current, lo, hi int) int {
	switch d {
	case Front:
		return hi
	case Back:
		return lo
	case Forward:
		return clamp(current+1, lo, hi)
	case Backward:
		return clamp(current-1, lo, hi)
	default:
		return current
	}
}

// resolvePosition maps p onto [lo, hi]; a nil p keeps current.
func resolvePosition(p Position, current, lo, hi int) int {
	if p == nil {
		return current
	}
	return p.resolve(current, lo, hi)
}

// decodePosition accepts a JSON number or one of the direction names.
func decodePosition(raw json.RawMessage) (Position, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return Index(n), nil
	}
	var d Direction
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("invalid position %s: %w", raw, err)
	}
	switch d {
	case Front, Back, Forward, Backward:
		return d, nil
	}
	return nil, fmt.Errorf("invalid position %q", d)
}

func encodePosition(p Position) any {
	switch v := p.(type) {
	case Index:
		return int(v)
	case Direction:
		return string(v)
	}
	return nil
}
