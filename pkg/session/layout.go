package session

import (
	"fmt"

	"github.com/ccmonitor/server/pkg/inventory"
	"github.com/ccmonitor/server/pkg/monitor"
)

// renderRows turns one aggregator view into the display lines for the
// bordered list widget: one row per item, both rate and storage views
// already ordered deterministically by the aggregator (rate descending,
// storage count descending, ties by name ascending).
func renderRows(view inventory.ReportView) []string {
	switch {
	case view.Rates != nil:
		rows := make([]string, 0, len(view.Rates))
		for _, r := range view.Rates {
			rows = append(rows, fmt.Sprintf("%-20s %6.1f/s", r.Name, r.RatePerSecond))
		}
		return rows
	case view.StorageItems != nil:
		rows := make([]string, 0, len(view.StorageItems))
		for _, it := range view.StorageItems {
			rows = append(rows, fmt.Sprintf("%-20s x%d", it.Name, it.Count))
		}
		return rows
	default:
		return nil
	}
}

// drawListFrame lays out a bordered list widget titled with title and the
// given rows, clipped to the backend's current size, and draws + flushes
// it in one go. Cells outside the frame (there are none at the monitor's
// exact size) are never touched; the whole grid is repainted every tick
// since the aggregator view can change shape tick to tick.
func drawListFrame(backend *monitor.Backend, title string, rows []string) error {
	size := backend.Size()
	if size.Width < 2 || size.Height < 2 {
		return backend.Flush()
	}

	grid := make([][]rune, size.Height)
	for y := range grid {
		line := make([]rune, size.Width)
		for x := range line {
			line[x] = ' '
		}
		grid[y] = line
	}

	for x := 0; x < size.Width; x++ {
		grid[0][x] = '-'
		grid[size.Height-1][x] = '-'
	}
	for y := 0; y < size.Height; y++ {
		grid[y][0] = '|'
		grid[y][size.Width-1] = '|'
	}
	grid[0][0], grid[0][size.Width-1] = '+', '+'
	grid[size.Height-1][0], grid[size.Height-1][size.Width-1] = '+', '+'

	placeText := func(y, x int, text string) {
		for _, r := range text {
			if x >= size.Width-1 {
				return
			}
			grid[y][x] = r
			x++
		}
	}

	placeText(0, 1, " "+title+" ")
	for i, row := range rows {
		y := i + 1
		if y >= size.Height-1 {
			break
		}
		placeText(y, 1, row)
	}

	updates := make([]monitor.Update, 0, size.Width*size.Height)
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			updates = append(updates, monitor.Update{
				X:    x,
				Y:    y,
				Cell: monitor.Cell{Char: grid[y][x], Fg: monitor.White, Bg: monitor.Black},
			})
		}
	}

	if err := backend.Clear(); err != nil {
		return err
	}
	if err := backend.Draw(updates); err != nil {
		return err
	}
	return backend.Flush()
}
