// Package vtrank converts raw KoVaaK's benchmark scores into normalized
// VT-Energy ratings. Everything here is pure arithmetic over the benchmark
// configuration; no network, no shared state.
package vtrank

// Difficulty is a benchmark tier.
type Difficulty string

const (
	Novice       Difficulty = "novice"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Elite        Difficulty = "elite"
)

// Difficulties lists the tiers in ascending order. Cross-tier best selection
// iterates them in this order and keeps the first on ties.
var Difficulties = []Difficulty{Novice, Intermediate, Advanced, Elite}

// energyThresholds is the master ordered energy scale, 100 through 1500 in
// steps of 100. Tier windows slice it.
var energyThresholds = []float64{
	100, 200, 300, 400, 500,
	600, 700, 800, 900, 1000,
	1100, 1200, 1300, 1400, 1500,
}

// tierWindow is a half-open slice [start:end) into energyThresholds.
type tierWindow struct {
	start, end int
}

// tierWindows maps each difficulty to its energy sub-window. Advanced and
// elite overlap (indices 8:12 vs 9:15); that mirrors the benchmark's own
// ranking design and must not be "fixed".
var tierWindows = map[Difficulty]tierWindow{
	Novice:       {0, 4},
	Intermediate: {4, 8},
	Advanced:     {8, 12},
	Elite:        {9, 15},
}

// advancedEnergyCap caps per-subcategory energy on the advanced tier.
const advancedEnergyCap = 1200

// subRankOffset is subtracted from a tier's first energy threshold to form
// the synthetic lower interpolation bound. Novice has no room below its
// first threshold.
func subRankOffset(difficulty Difficulty) float64 {
	if difficulty == Novice {
		return 0
	}
	return 100
}

// expectedSubcategories is the number of qualifying subcategories a tier
// must fully rank before its harmonic mean counts. Each difficulty's
// benchmark has three categories of two subcategories each.
var expectedSubcategories = map[Difficulty]int{
	Novice:       6,
	Intermediate: 6,
	Advanced:     6,
	Elite:        6,
}

// scenariosPerSubcategory is fixed by the benchmark layout.
const scenariosPerSubcategory = 2

// RankInfo is one entry of a tier's rank palette.
type RankInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// UnrankedInfo is returned for harmonic mean 0.
var UnrankedInfo = RankInfo{Name: "Unranked", Color: "#6b7280"}

// masterRanks is the name/color scale aligned with energyThresholds; each
// tier's palette is the window slice of this list.
var masterRanks = []RankInfo{
	{Name: "Iron", Color: "#9aa0a6"},
	{Name: "Bronze", Color: "#cd7f32"},
	{Name: "Silver", Color: "#c0c0c0"},
	{Name: "Gold", Color: "#f5c21b"},
	{Name: "Platinum", Color: "#4de3e0"},
	{Name: "Diamond", Color: "#7cb9f2"},
	{Name: "Jade", Color: "#32b07d"},
	{Name: "Master", Color: "#f06292"},
	{Name: "Grandmaster", Color: "#ffb300"},
	{Name: "Nova", Color: "#a46cf5"},
	{Name: "Astra", Color: "#5d5fef"},
	{Name: "Celestial", Color: "#e8eaf6"},
	{Name: "Divine", Color: "#ffdf6b"},
	{Name: "Immortal", Color: "#ff5252"},
	{Name: "Mythic", Color: "#00e5ff"},
}

// Palette returns the ordered rank names/colors for a tier, or nil for an
// unknown difficulty.
func Palette(difficulty Difficulty) []RankInfo {
	window, ok := tierWindows[difficulty]
	if !ok {
		return nil
	}
	return masterRanks[window.start:window.end]
}

// windowThresholds returns the tier's energy thresholds, or nil for an
// unknown difficulty.
func windowThresholds(difficulty Difficulty) []float64 {
	window, ok := tierWindows[difficulty]
	if !ok {
		return nil
	}
	return energyThresholds[window.start:window.end]
}
