package domain

import (
	"slices"
	"strings"
)

// validItems is the list enforced by ParseItemName. Tests check it against
// MenuItems.
var validItems = [...]string{"hamburger", "fries", "cola", "water"}

const forbiddenCharacters = `/()"<>\{}`

// ItemName is the name of an item on the menu.
type ItemName struct {
	value string
}

// ParseItemName accepts only exact, case-sensitive menu item names.
func ParseItemName(s string) (ItemName, error) {
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, forbiddenCharacters) {
		return ItemName{}, invalid("", "%q item is empty or contains forbidden characters", s)
	}
	if !slices.Contains(validItems[:], s) {
		return ItemName{}, invalid("", "%q item is not in the valid item list", s)
	}
	return ItemName{value: s}, nil
}

// String returns the wrapped name.
func (i ItemName) String() string {
	return i.value
}
