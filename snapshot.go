package pantrychef

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// cacheKeySeparator joins ingredient IDs and history meals into a cache key.
const cacheKeySeparator = "_"

// BuildSnapshots converts raw inventory records into snapshots, resolving
// each expiry to whole days relative to now. Items are ordered soonest
// expiry first, non-perishables last, name as the tie-breaker, so the same
// inventory always produces the same snapshot sequence regardless of how
// the store enumerated it.
func BuildSnapshots(items []InventoryItem, now time.Time) []IngredientSnapshot {
	snaps := make([]IngredientSnapshot, 0, len(items))
	for _, item := range items {
		s := IngredientSnapshot{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Quantity: item.Quantity,
			Unit:     item.Unit,
		}
		if s.ID == "" {
			s.ID = strings.ToLower(item.Category + "/" + item.Name)
		}
		if item.ExpiryDate != nil {
			s.HasExpiry = true
			s.DaysLeft = daysBetween(now, *item.ExpiryDate)
		}
		snaps = append(snaps, s)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		a, b := snaps[i], snaps[j]
		if a.HasExpiry != b.HasExpiry {
			return a.HasExpiry
		}
		if a.HasExpiry && a.DaysLeft != b.DaysLeft {
			return a.DaysLeft < b.DaysLeft
		}
		return a.Name < b.Name
	})
	return snaps
}

// BuildHistory pairs recent meals, newest first, with short display dates:
// entry i is dated i days before now, formatted M/d.
func BuildHistory(meals []string, now time.Time) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(meals))
	for i, meal := range meals {
		d := now.AddDate(0, 0, -i)
		entries = append(entries, HistoryEntry{
			Date: fmt.Sprintf("%d/%d", int(d.Month()), d.Day()),
			Meal: meal,
		})
	}
	return entries
}

// CacheKey derives the deterministic fingerprint of one recommendation
// request: ingredient IDs followed by history meals, joined by a fixed
// separator. The key is order-sensitive; BuildSnapshots orders snapshots
// canonically, so logically identical inventories key identically.
func CacheKey(ingredients []IngredientSnapshot, history []HistoryEntry) string {
	parts := make([]string, 0, len(ingredients)+len(history))
	for _, ing := range ingredients {
		parts = append(parts, ing.ID)
	}
	for _, h := range history {
		parts = append(parts, h.Meal)
	}
	return strings.Join(parts, cacheKeySeparator)
}

// DecodeInventory parses an inventory artifact of the form
// {"ingredients": [...]}.
func DecodeInventory(data []byte) ([]InventoryItem, error) {
	var doc struct {
		Ingredients []InventoryItem `json:"ingredients"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode inventory artifact: %w", err)
	}
	return doc.Ingredients, nil
}

// DecodeHistory parses a meal history artifact of the form
// {"meals": [...]}, ordered newest first.
func DecodeHistory(data []byte) ([]string, error) {
	var doc struct {
		Meals []string `json:"meals"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode history artifact: %w", err)
	}
	return doc.Meals, nil
}

// daysBetween counts calendar-day boundaries between the two instants,
// ignoring time of day. Negative when to precedes from.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(t.Sub(f).Hours() / 24)
}
