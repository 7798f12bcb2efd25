package reminder

import (
	"fmt"

	"github.com/kelola/course-engine/billing"
	"github.com/kelola/course-engine/currency"
)

// formatRemaining renders the outstanding balance for reason strings.
func formatRemaining(p *billing.Payment) string {
	return currency.Format(p.Remaining)
}

// remainingMeetingsReason renders the mid-cycle reason. The count until the
// next trigger is MeetingsPerCycle - meetingsSinceReset: a student dismissed
// after meeting 2 who then attends meetings 3 and 4 has 1 meeting to go,
// not 2.
func remainingMeetingsReason(meetingsSinceReset int) string {
	left := MeetingsPerCycle - meetingsSinceReset
	return fmt.Sprintf("%d of %d meetings since last reset; %s until next reminder",
		meetingsSinceReset, MeetingsPerCycle, currency.Meetings(left))
}
