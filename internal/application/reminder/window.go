package reminder

import (
	"time"

	"github.com/go-mentoring-notifier/internal/domain"
)

const (
	// Grid is the sweep period and the alignment of every window.
	Grid = 15 * time.Minute
	// Lead is how far ahead of now a window starts looking.
	Lead = time.Hour
)

// WindowAt returns the window a sweep running at now covers: From is now+Lead
// floored to the grid, To is one millisecond before the following boundary.
// Windows of runs one Grid apart abut without overlapping.
func WindowAt(now time.Time) domain.ReminderWindow {
	from := now.Add(Lead).Truncate(Grid)
	return domain.ReminderWindow{
		From: from,
		To:   from.Add(Grid - time.Millisecond),
	}
}
