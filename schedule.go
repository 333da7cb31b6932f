package main

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// ScheduleKind identifies when a Schedule fires
type ScheduleKind int

const (
	EveryDay ScheduleKind = iota
	EveryFriday
	EveryMonth   // on Day of every month
	EveryYear    // on Day/Month of every year
	SpecificDate // once, on Date
	StartOfMonth
	EndOfMonth
)

func (k ScheduleKind) String() string {
	switch k {
	case EveryDay:
		return "EveryDay"
	case EveryFriday:
		return "EveryFriday"
	case EveryMonth:
		return "EveryMonth"
	case EveryYear:
		return "EveryYear"
	case SpecificDate:
		return "SpecificDate"
	case StartOfMonth:
		return "StartOfMonth"
	case EndOfMonth:
		return "EndOfMonth"
	default:
		return "Unknown"
	}
}

// endOfMonthDay is the day EndOfMonth fires on. It exists in every month.
const endOfMonthDay = 27

// Schedule decides whether an event triggers on a given date
type Schedule struct {
	Kind  ScheduleKind
	Day   int
	Month time.Month
	Date  civil.Date
}

func Daily() Schedule { return Schedule{Kind: EveryDay} }
func Weekly() Schedule { return Schedule{Kind: EveryFriday} }
func Monthly(day int) Schedule { return Schedule{Kind: EveryMonth, Day: day} }
func MonthStart() Schedule { return Schedule{Kind: StartOfMonth} }
func MonthEnd() Schedule { return Schedule{Kind: EndOfMonth} }
func OnDate(d civil.Date) Schedule { return Schedule{Kind: SpecificDate, Date: d} }

func Yearly(day int, m time.Month) Schedule {
	return Schedule{Kind: EveryYear, Day: day, Month: m}
}

// TaxYearSchedule is the annual settlement date used by the simulation.
func TaxYearSchedule() Schedule {
	return Yearly(1, time.April)
}

// Check reports whether the schedule triggers on d
func (s Schedule) Check(d civil.Date) bool {
	switch s.Kind {
	case EveryDay:
		return true
	case EveryFriday:
		return d.In(time.UTC).Weekday() == time.Friday
	case EveryMonth:
		return d.Day == s.Day
	case EveryYear:
		return d.Day == s.Day && d.Month == s.Month
	case SpecificDate:
		return d == s.Date
	case StartOfMonth:
		return d.Day == 1
	case EndOfMonth:
		return d.Day == endOfMonthDay
	default:
		return false
	}
}

// LastPeriod returns the start of the period that ends on d. Schedules
// without a repeating period return false.
func (s Schedule) LastPeriod(d civil.Date) (civil.Date, bool) {
	t := d.In(time.UTC)
	switch s.Kind {
	case EveryFriday:
		return d.AddDays(-7), true
	case EveryYear:
		return civil.DateOf(t.AddDate(-1, 0, 0)), true
	case EveryMonth, StartOfMonth, EndOfMonth:
		return civil.DateOf(t.AddDate(0, -1, 0)), true
	default:
		return civil.Date{}, false
	}
}

func (s Schedule) String() string {
	switch s.Kind {
	case EveryMonth:
		return fmt.Sprintf("EveryMonth(%d)", s.Day)
	case EveryYear:
		return fmt.Sprintf("EveryYear(%d %s)", s.Day, s.Month)
	case SpecificDate:
		return fmt.Sprintf("SpecificDate(%s)", s.Date)
	default:
		return s.Kind.String()
	}
}
