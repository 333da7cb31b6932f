package main

import (
	"cloud.google.com/go/civil"
)

// Clock advances one calendar day per tick. It is created once per run and
// shared by every component that needs today's date.
type Clock struct {
	dates []civil.Date
	pos   int
}

// NewClock builds a daily clock covering [start, start+days). Now is invalid
// until the first Tick.
func NewClock(start civil.Date, days int) *Clock {
	if days < 0 {
		days = 0
	}
	dates := make([]civil.Date, days)
	for i := range dates {
		dates[i] = start.AddDays(i)
	}
	return &Clock{dates: dates, pos: -1}
}

// NewClockYears builds a clock that runs for the given number of years.
func NewClockYears(start civil.Date, years int) *Clock {
	end := civil.Date{Year: start.Year + years, Month: start.Month, Day: start.Day}
	return NewClock(start, end.DaysSince(start))
}

// Now returns the current date. Before the first Tick it returns the start date.
func (c *Clock) Now() civil.Date {
	if len(c.dates) == 0 {
		return civil.Date{}
	}
	if c.pos < 0 {
		return c.dates[0]
	}
	return c.dates[c.pos]
}

// HasNext reports whether another Tick is available
func (c *Clock) HasNext() bool {
	return c.pos+1 < len(c.dates)
}

// Tick moves the clock forward one day
func (c *Clock) Tick() {
	if c.HasNext() {
		c.pos++
	}
}

// Dates returns every date the clock will visit
func (c *Clock) Dates() []civil.Date {
	return c.dates
}

// Len is the number of ticks in the run
func (c *Clock) Len() int {
	return len(c.dates)
}
