package session

import (
	"time"

	"devlink/internal/chat/store"
)

// DateGroup is one calendar-day run of messages, labeled for display.
type DateGroup struct {
	Date     string           `json:"date"`
	Messages []*store.Message `json:"messages"`
}

// GroupByDate partitions messages into date-labeled groups by calendar day
// of creation in the viewer's local time zone. A message joins its immediate
// predecessor's group iff their labels are equal, so input order is
// preserved in a single pass.
func GroupByDate(messages []*store.Message) []DateGroup {
	return groupByDateAt(messages, time.Now())
}

func groupByDateAt(messages []*store.Message, now time.Time) []DateGroup {
	var groups []DateGroup
	for _, msg := range messages {
		label := dateLabel(msg.CreatedAt, now)
		if len(groups) == 0 || groups[len(groups)-1].Date != label {
			groups = append(groups, DateGroup{Date: label})
		}
		last := len(groups) - 1
		groups[last].Messages = append(groups[last].Messages, msg)
	}
	return groups
}

func dateLabel(ts, now time.Time) string {
	ts = ts.Local()
	now = now.Local()

	tsY, tsM, tsD := ts.Date()
	nowY, nowM, nowD := now.Date()
	if tsY == nowY && tsM == nowM && tsD == nowD {
		return "Today"
	}

	yesterday := now.AddDate(0, 0, -1)
	yY, yM, yD := yesterday.Date()
	if tsY == yY && tsM == yM && tsD == yD {
		return "Yesterday"
	}

	return ts.Format("Monday, January 2")
}
