package mission

import "strings"

// Category is the kind of situation a drone is dispatched for.
type Category int

const (
	Unrecognized Category = iota
	Medical
	BreakIn
	Overcrowding
)

// Categories in menu order.
var Categories = []Category{Medical, BreakIn, Overcrowding}

// ParseCategory accepts a menu number or a category name.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "medical", "medical emergency":
		return Medical
	case "2", "break-in", "breakin", "break_in":
		return BreakIn
	case "3", "overcrowding":
		return Overcrowding
	default:
		return Unrecognized
	}
}

func (c Category) Known() bool {
	return c == Medical || c == BreakIn || c == Overcrowding
}

// Payload is the equipment carried for the category. Unrecognized carries nothing.
func (c Category) Payload() string {
	switch c {
	case Medical:
		return "Medical aid kit"
	case BreakIn:
		return "Night vision camera"
	case Overcrowding:
		return "Speakers"
	default:
		return ""
	}
}

// MenuNumber is the 1-based menu position, 0 for Unrecognized.
func (c Category) MenuNumber() int {
	if !c.Known() {
		return 0
	}
	return int(c)
}

func (c Category) String() string {
	switch c {
	case Medical:
		return "medical"
	case BreakIn:
		return "break-in"
	case Overcrowding:
		return "overcrowding"
	default:
		return "unrecognized"
	}
}

// Title is the label shown in the operator menu.
func (c Category) Title() string {
	switch c {
	case Medical:
		return "Medical Emergency"
	case BreakIn:
		return "Break-in (nighttime)"
	case Overcrowding:
		return "Overcrowding"
	default:
		return "Unrecognized"
	}
}
