package game

import (
	"image/color"
	"math"

	"golang.org/x/image/colornames"
)

// shipTints is indexed by the character sum of a player's name, so the same
// name always gets the same colour.
var shipTints = [...]color.RGBA{
	colornames.Lime,
	{R: 0x66, G: 0xFF, B: 0xAA, A: 0xFF},
	colornames.Aqua,
	colornames.Magenta,
	{R: 0xFF, G: 0xAA, B: 0xFF, A: 0xFF},
	{R: 0x00, G: 0xFF, B: 0x33, A: 0xFF},
	{R: 0x99, G: 0xFF, B: 0x44, A: 0xFF},
	colornames.Yellow,
	{R: 0xFF, G: 0x66, B: 0x00, A: 0xFF},
}

// hitFlashColor replaces the tint while a ship flashes after a hit.
var hitFlashColor = colornames.Red

// fullHealthLabel is the name label colour before any damage.
var fullHealthLabel = colornames.Lime

// TintFor returns the ship colour for a player name.
func TintFor(name string) color.RGBA {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return shipTints[sum%len(shipTints)]
}

// LabelColor fades the name label from green to red as health drops.
func LabelColor(health int) color.RGBA {
	f := float64(health) / MaxHealth
	return color.RGBA{
		R: uint8(math.Floor((1 - f) * 255)),
		G: uint8(math.Floor(f * 255)),
		A: 0xFF,
	}
}
