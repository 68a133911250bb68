package core

// Timeline geometry: maps a task's date range onto percentage offsets in
// the rendered grid. Purely presentational; the allocation engine never
// looks at these numbers.

// GridPosition returns the left offset and width of a task bar, both as
// percentages of the timeline width.
func GridPosition(start, end Date) (left, width float64) {
	startPos := quarterPosition(start)
	endPos := quarterPosition(end)
	if endPos < startPos {
		endPos = 100.0
	}

	width = endPos - startPos

	// Keep short bars legible.
	monthSpan := (end.Year()-start.Year())*12 + int(end.Time.Month()) - int(start.Time.Month())
	if width < 15 && monthSpan >= 1 {
		width = 15
	} else if width < 8 {
		width = 8
	}
	return startPos, width
}

// quarterPosition places a date inside the 2025-anchored grid: each 2025
// quarter owns a 20% band, everything later collapses onto the trailing
// band at 80%.
func quarterPosition(d Date) float64 {
	if d.Year() > 2025 {
		return 80.0
	}

	quarter := (int(d.Time.Month()) - 1) / 3
	base := float64(quarter) * 20.0

	monthInQuarter := (int(d.Time.Month()) - 1) % 3
	daysFromQuarterStart := float64(monthInQuarter*30 + d.Time.Day() - 1)
	return base + daysFromQuarterStart/90.0*20.0
}
