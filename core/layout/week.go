package layout

import "sync"

const DaysPerWeek = 7

var dayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName returns the name of day 1 (Monday) to 7 (Sunday), or "" when out of range.
func DayName(day int) string {
	if day < 1 || day > DaysPerWeek {
		return ""
	}
	return dayNames[day-1]
}

// Week holds the placed blocks of every day-track; index 0 is Monday.
type Week [DaysPerWeek][]Placed

// Day returns the placed blocks of day 1..7.
func (w *Week) Day(day int) []Placed {
	if day < 1 || day > DaysPerWeek {
		return nil
	}
	return w[day-1]
}

// LayoutWeek splits blocks into day-tracks and lays each one out independently.
// Blocks whose day is not within 1..7 are returned in skipped.
func LayoutWeek(blocks []Block) (week Week, skipped []Block) {
	var tracks [DaysPerWeek][]Block
	for _, b := range blocks {
		if b.DayOfWeek < 1 || b.DayOfWeek > DaysPerWeek {
			skipped = append(skipped, b)
			continue
		}
		tracks[b.DayOfWeek-1] = append(tracks[b.DayOfWeek-1], b)
	}

	var wg sync.WaitGroup
	for i := range tracks {
		if len(tracks[i]) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			week[i] = LayoutDay(tracks[i])
		}(i)
	}
	wg.Wait()

	return week, skipped
}
