package models

import "fmt"

// Direction is the seat step used when passing packs or rotating bidders.
// Left and clockwise both move to seat+1.
type Direction int

const (
	Left             Direction = 1
	Right            Direction = -1
	Clockwise                  = Left
	CounterClockwise           = Right
)

func (d Direction) Reverse() Direction {
	return -d
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "left", "clockwise":
		*d = Left
	case "right", "counter-clockwise":
		*d = Right
	default:
		return fmt.Errorf("unknown direction %q", string(b))
	}
	return nil
}
