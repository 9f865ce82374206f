package vtrank

import (
	"math"
	"strings"
)

// Scenario is one benchmark scenario with its raw API score and the score
// thresholds for each rank. RawScore is in API units: the real value
// multiplied by 100. A RawScore of 0 means the scenario was never played.
type Scenario struct {
	Name      string    `json:"name"`
	RawScore  int       `json:"rawScore"`
	RankMaxes []float64 `json:"rankMaxes"`
}

// Score returns the scenario's real score. Raw API scores must always pass
// through this division before any comparison or display.
func (s Scenario) Score() float64 {
	return ConvertAPIScore(s.RawScore)
}

// Subcategory groups the scenarios that feed one energy value.
type Subcategory struct {
	Name      string     `json:"name"`
	Scenarios []Scenario `json:"scenarios"`
}

// Category groups subcategories (e.g. Clicking -> Dynamic, Static).
type Category struct {
	Name          string        `json:"name"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Progress is one tier's raw benchmark state.
type Progress struct {
	Difficulty Difficulty `json:"difficulty"`
	Categories []Category `json:"categories"`
}

// SubcategoryEnergy is the derived energy for one subcategory.
type SubcategoryEnergy struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Scenario    string `json:"scenario"`
	Energy      int    `json:"energy"`
}

// Result is a tier's derived VT-Energy rating. It is recomputed on every
// fetch and never persisted independently of the progress it derives from.
type Result struct {
	Difficulty   Difficulty          `json:"difficulty"`
	Energies     []SubcategoryEnergy `json:"energies"`
	HarmonicMean float64             `json:"harmonicMean"`
	RankIndex    int                 `json:"rankIndex"` // 1-based, 0 = unranked
	Rank         RankInfo            `json:"rank"`
}

// ConvertAPIScore converts an API-unit score to its real value.
func ConvertAPIScore(apiScore int) float64 {
	return float64(apiScore) / 100
}

// excluded reports whether a subcategory is left out of aggregation.
func excluded(subcategory string) bool {
	return strings.Contains(strings.ToLower(subcategory), "strafe")
}

// preciseRank converts a real score into a fractional rank against the
// scenario's threshold list. The integer part is the 1-based index of the
// highest threshold the score meets; the fraction interpolates toward the
// next threshold. Three branches:
//
//   - below the first threshold: fraction of that threshold alone, in [0,1)
//   - between two thresholds: linear position between them
//   - past the last threshold: extrapolated using the gap between the last
//     two thresholds
func preciseRank(score float64, maxes []float64) float64 {
	if len(maxes) == 0 || score <= 0 {
		return 0
	}

	if score < maxes[0] {
		if maxes[0] <= 0 {
			return 0
		}
		return score / maxes[0]
	}

	base := 0
	for i, threshold := range maxes {
		if score >= threshold {
			base = i + 1
		}
	}

	if base == len(maxes) {
		gap := maxes[0]
		if len(maxes) > 1 {
			gap = maxes[len(maxes)-1] - maxes[len(maxes)-2]
		}
		if gap <= 0 {
			return float64(base)
		}
		return float64(base) + (score-maxes[len(maxes)-1])/gap
	}

	span := maxes[base] - maxes[base-1]
	if span <= 0 {
		return float64(base)
	}
	return float64(base) + (score-maxes[base-1])/span
}

// energyFor converts a scenario's precise rank into an integer energy value
// for the tier. The interpolation runs across a synthetic lower bound, the
// tier's real thresholds, and a synthetic upper bound one last-gap beyond the
// final threshold. Scores that never reached the first scenario threshold
// interpolate up from a scenario-local floor derived from that scenario's own
// threshold spacing.
func energyFor(difficulty Difficulty, scenario Scenario, precise float64) int {
	window := windowThresholds(difficulty)
	if window == nil || precise <= 0 {
		return 0
	}

	n := len(window)
	lower := window[0] - subRankOffset(difficulty)
	upper := window[n-1] + (window[n-1] - window[n-2])

	var energy float64
	switch {
	case precise < 1:
		energy = subThresholdEnergy(scenario, lower, window[0])
	case precise >= float64(n):
		// At or beyond the last real threshold: interpolate toward the
		// synthetic upper bound, clipped there.
		energy = window[n-1] + (precise-float64(n))*(upper-window[n-1])
		if energy > upper {
			energy = upper
		}
	default:
		base := int(precise)
		fraction := precise - float64(base)
		energy = window[base-1] + fraction*(window[base]-window[base-1])
	}

	if energy < 0 {
		energy = 0
	}
	if difficulty == Advanced && energy > advancedEnergyCap {
		energy = advancedEnergyCap
	}

	return int(math.Round(energy))
}

// subThresholdEnergy handles scored scenarios that sit below the first rank
// threshold. The interpolation floor is scenario-local: one threshold gap
// below the scenario's first threshold, clamped at zero.
func subThresholdEnergy(scenario Scenario, lower, firstEnergy float64) float64 {
	maxes := scenario.RankMaxes
	if len(maxes) == 0 || maxes[0] <= 0 {
		return 0
	}

	floor := 0.0
	if len(maxes) > 1 {
		floor = maxes[0] - (maxes[1] - maxes[0])
		if floor < 0 {
			floor = 0
		}
	}

	span := maxes[0] - floor
	if span <= 0 {
		return lower
	}

	position := (scenario.Score() - floor) / span
	if position < 0 {
		position = 0
	}
	return lower + position*(firstEnergy-lower)
}

// scenarioResult pairs a scenario with its derived numbers during selection.
type scenarioResult struct {
	scenario Scenario
	precise  float64
	energy   int
}

// bestScenario picks the subcategory's representative scenario. The higher
// precise rank wins; when both scenarios sit below rank 1 the energies are
// compared instead. A ranked scenario always beats an unranked-but-scored
// one regardless of raw score. Ties keep the first scenario.
func bestScenario(difficulty Difficulty, scenarios []Scenario) scenarioResult {
	best := scenarioResult{}
	for i, scenario := range scenarios {
		precise := preciseRank(scenario.Score(), scenario.RankMaxes)
		candidate := scenarioResult{
			scenario: scenario,
			precise:  precise,
			energy:   energyFor(difficulty, scenario, precise),
		}
		if i == 0 {
			best = candidate
			continue
		}
		if best.precise < 1 && candidate.precise < 1 {
			if candidate.energy > best.energy {
				best = candidate
			}
			continue
		}
		if candidate.precise > best.precise {
			best = candidate
		}
	}
	return best
}

// Compute derives a tier's VT-Energy result from its benchmark progress.
// Returns nil for an unknown difficulty. The harmonic mean is gated: unless
// every qualifying subcategory has positive energy and their count matches
// the tier's expected count exactly, it is 0 — fully unranked, never a
// partial average.
func Compute(progress Progress) *Result {
	window := windowThresholds(progress.Difficulty)
	if window == nil {
		return nil
	}

	energies := make([]SubcategoryEnergy, 0, expectedSubcategories[progress.Difficulty])
	for _, category := range progress.Categories {
		for _, subcategory := range category.Subcategories {
			if excluded(subcategory.Name) {
				continue
			}
			best := bestScenario(progress.Difficulty, subcategory.Scenarios)
			energies = append(energies, SubcategoryEnergy{
				Category:    category.Name,
				Subcategory: subcategory.Name,
				Scenario:    best.scenario.Name,
				Energy:      best.energy,
			})
		}
	}

	mean := harmonicMean(progress.Difficulty, energies)
	rankIndex := rankFor(window, mean)

	result := &Result{
		Difficulty:   progress.Difficulty,
		Energies:     energies,
		HarmonicMean: mean,
		RankIndex:    rankIndex,
		Rank:         UnrankedInfo,
	}
	if rankIndex > 0 {
		result.Rank = Palette(progress.Difficulty)[rankIndex-1]
	}
	return result
}

// harmonicMean computes count / sum(1/energy) over the qualifying
// subcategories, rounded to one decimal, gated to 0 on any missing or
// zero-energy subcategory.
func harmonicMean(difficulty Difficulty, energies []SubcategoryEnergy) float64 {
	if len(energies) != expectedSubcategories[difficulty] {
		return 0
	}

	sum := 0.0
	for _, entry := range energies {
		if entry.Energy <= 0 {
			return 0
		}
		sum += 1 / float64(entry.Energy)
	}
	if sum == 0 {
		return 0
	}

	mean := float64(len(energies)) / sum
	return math.Round(mean*10) / 10
}

// rankFor walks the tier thresholds from highest to lowest and returns the
// 1-based index of the highest one the mean meets, 0 when unranked.
func rankFor(window []float64, mean float64) int {
	if mean <= 0 {
		return 0
	}
	for i := len(window) - 1; i >= 0; i-- {
		if mean >= window[i] {
			return i + 1
		}
	}
	return 0
}

// BestTier returns the result with the strictly greatest harmonic mean,
// iterating tiers in ascending order so ties keep the earliest. Nil entries
// are skipped; nil is returned when no tier has a result.
func BestTier(results map[Difficulty]*Result) *Result {
	var best *Result
	for _, difficulty := range Difficulties {
		result := results[difficulty]
		if result == nil {
			continue
		}
		if best == nil || result.HarmonicMean > best.HarmonicMean {
			best = result
		}
	}
	return best
}
