package domain

// MenuItems is the published menu used by seeding, documentation and tests.
var MenuItems = []string{
	"hamburger",
	"fries",
	"cola",
	"water",
}
