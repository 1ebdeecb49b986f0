package services

import "time"

const weekKeyLayout = "2006-01-02"

// startOfDay is midnight of t's calendar day in the reference timezone.
func (c *Core) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location)
}

// daysBetween counts calendar days from a to b in the reference timezone
// (0 = same day, 1 = b is the day after a). DST-safe.
func (c *Core) daysBetween(a, b time.Time) int {
	ay, am, ad := a.In(c.Location).Date()
	by, bm, bd := b.In(c.Location).Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// checkinWindow reports whether a check-in is allowed at now and when the next one opens.
func (c *Core) checkinWindow(last *time.Time, now time.Time) (bool, time.Time) {
	if last == nil || c.daysBetween(*last, now) > 0 {
		return true, now
	}
	return false, c.startOfDay(now).AddDate(0, 0, 1).UTC()
}

// weekStart is Sunday 00:00 of t's week in the reference timezone.
func (c *Core) weekStart(t time.Time) time.Time {
	day := c.startOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekKey formats the week containing t as its Sunday date.
func (c *Core) WeekKey(t time.Time) string {
	return c.weekStart(t).Format(weekKeyLayout)
}

// CurrentWeekKey is WeekKey at the clock's now.
func (c *Core) CurrentWeekKey() string {
	return c.WeekKey(c.now())
}
