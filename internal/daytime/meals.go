package daytime

import (
	"regexp"
	"strings"
	"time"
)

// Meal windows in minutes since midnight, end exclusive.
var mealWindows = map[string]struct{ start, end int }{
	"breakfast": {7 * 60, 9 * 60},
	"brunch":    {10 * 60, 14 * 60},
	"lunch":     {12 * 60, 14 * 60},
	"dinner":    {19 * 60, 21 * 60},
}

// mealOrder keeps the shift pass deterministic.
var mealOrder = []string{"breakfast", "brunch", "lunch", "dinner"}

// mealBuffer is the gap after a meal window before a slot is acceptable.
const mealBuffer = 15

var mealAvoidRes = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:avoid|avoiding|skip|skipping)\s+(?:the\s+)?(breakfast|brunch|lunch|dinner|meal)s?\s*(?:times?|hours?)?\b`),
	regexp.MustCompile(`\b(?:no|not|never)\s+(?:at\s+|during\s+)?(?:the\s+)?(breakfast|brunch|lunch|dinner)\s*(?:time)?\b`),
	regexp.MustCompile(`\b(?:outside|around)\s+(?:of\s+)?(?:the\s+)?(breakfast|brunch|lunch|dinner|meal)s?\s*(?:times?|hours?)?\b`),
	regexp.MustCompile(`\b(?:before|after)\s+(breakfast|brunch|lunch|dinner)\b`),
}

// avoidedMeals returns the meals the fragment asks to keep clear of.
// A bare "meals" expands to the three main ones.
func avoidedMeals(text string) []string {
	seen := map[string]bool{}
	var meals []string
	var add func(string)
	add = func(meal string) {
		if meal == "meal" {
			for _, m := range []string{"breakfast", "lunch", "dinner"} {
				add(m)
			}
			return
		}
		if !seen[meal] {
			seen[meal] = true
			meals = append(meals, meal)
		}
	}
	for _, re := range mealAvoidRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}
	return meals
}

// stripMealAvoidance removes the avoidance phrases so the meal words in
// them are not read as requested times.
func stripMealAvoidance(text string) string {
	for _, re := range mealAvoidRes {
		text = re.ReplaceAllString(text, " ")
	}
	return text
}

// shiftOutsideMeals moves a slot that lands inside an avoided meal window
// to just past the window's end.
func shiftOutsideMeals(t time.Time, meals []string) time.Time {
	for _, meal := range mealOrder {
		if !containsString(meals, meal) {
			continue
		}
		w := mealWindows[meal]
		mins := t.Hour()*60 + t.Minute()
		if mins >= w.start && mins < w.end {
			midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
			t = midnight.Add(time.Duration(w.end+mealBuffer) * time.Minute)
		}
	}
	return t
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func joinMeals(meals []string) string {
	return strings.Join(meals, " and ")
}
