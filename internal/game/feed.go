package game

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	feedPanelWidth = 280
	feedMaxEntries = 60
	feedLineHeight = 11
)

// FeedEntry is a single line in the combat feed.
type FeedEntry struct {
	Tick    int
	Ship    string
	Tint    color.RGBA
	Message string
}

// CombatFeed is a ring buffer of arena events rendered as a side panel.
type CombatFeed struct {
	entries []FeedEntry
	head    int
	count   int
}

// NewCombatFeed creates a feed with a fixed capacity.
func NewCombatFeed() *CombatFeed {
	return &CombatFeed{
		entries: make([]FeedEntry, feedMaxEntries),
	}
}

// Add appends an entry, overwriting the oldest once full.
func (cf *CombatFeed) Add(tick int, ship string, tint color.RGBA, msg string) {
	cf.entries[cf.head] = FeedEntry{
		Tick:    tick,
		Ship:    ship,
		Tint:    tint,
		Message: msg,
	}
	cf.head = (cf.head + 1) % feedMaxEntries
	if cf.count < feedMaxEntries {
		cf.count++
	}
}

// Len returns how many entries are held.
func (cf *CombatFeed) Len() int { return cf.count }

// Recent returns entries in chronological order (oldest first).
func (cf *CombatFeed) Recent() []FeedEntry {
	result := make([]FeedEntry, cf.count)
	for i := 0; i < cf.count; i++ {
		idx := (cf.head - cf.count + i + feedMaxEntries) % feedMaxEntries
		result[i] = cf.entries[idx]
	}
	return result
}

// Draw renders the feed panel at panelX, panelH pixels tall.
func (cf *CombatFeed) Draw(screen *ebiten.Image, panelX int, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, float32(feedPanelWidth), float32(panelH), color.RGBA{R: 8, G: 8, B: 14, A: 240}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1.0, color.RGBA{R: 50, G: 50, B: 80, A: 255}, false)

	vector.FillRect(screen, float32(panelX), 0, float32(feedPanelWidth), 16, color.RGBA{R: 18, G: 18, B: 34, A: 255}, false)
	ebitenutil.DebugPrintAt(screen, "COMBAT FEED", panelX+8, 2)
	vector.StrokeLine(screen, float32(panelX), 16, float32(panelX+feedPanelWidth), 16, 1.0, color.RGBA{R: 50, G: 50, B: 90, A: 200}, false)

	entries := cf.Recent()

	// Newest at the bottom.
	maxVisible := (panelH - 24) / feedLineHeight
	startIdx := 0
	if len(entries) > maxVisible {
		startIdx = len(entries) - maxVisible
	}
	visible := entries[startIdx:]
	recent := 3

	y := 20
	for i, e := range visible {
		if i >= len(visible)-recent {
			vector.FillRect(screen, float32(panelX+2), float32(y), float32(feedPanelWidth-4), float32(feedLineHeight), color.RGBA{R: 30, G: 30, B: 50, A: 160}, false)
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+3), 3, 5, e.Tint, false)
		line := fmt.Sprintf("%5d %s", e.Tick, e.Message)
		ebitenutil.DebugPrintAt(screen, line, panelX+12, y)
		y += feedLineHeight
	}
}
