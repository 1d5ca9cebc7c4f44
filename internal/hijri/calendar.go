// Package hijri wraps Hijri <-> Gregorian conversion behind a Calendar
// interface and holds the occurrence arithmetic for yearly Hijri anniversaries.
package hijri

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrConversion is returned when the underlying calendar cannot map a date.
	ErrConversion = errors.New("hijri: conversion failed")
	// ErrInvalidDate is returned for month/day values outside the Hijri ranges.
	ErrInvalidDate = errors.New("hijri: invalid date")
)

// Date is a Hijri calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Compare orders dates lexicographically on (year, month, day).
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(d.Month, o.Month)
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) validate() error {
	if d.Year < 1 || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 30 {
		return fmt.Errorf("%w: %s", ErrInvalidDate, d)
	}
	return nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Calendar converts between Gregorian and Hijri dates.
//
// Gregorian values are calendar dates: FromGregorian reads the
// year/month/day of t in t's own location, and ToGregorian returns
// midnight UTC of the matching day.
type Calendar interface {
	FromGregorian(t time.Time) (Date, error)
	ToGregorian(d Date) (time.Time, error)
	DaysInMonth(year, month int) (int, error)
}

// New returns the calendar registered under name.
func New(name string) (Calendar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ummalqura", "umm-al-qura":
		return UmmAlQura{}, nil
	case "tabular", "civil":
		return Tabular{}, nil
	default:
		return nil, fmt.Errorf("unknown hijri calendar %q", name)
	}
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// monthLength derives a month's length from the Gregorian distance between
// the first day of the month and the first day of the following one.
func monthLength(c Calendar, year, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	first, err := c.ToGregorian(Date{Year: year, Month: month, Day: 1})
	if err != nil {
		return 0, err
	}
	next := Date{Year: year, Month: month + 1, Day: 1}
	if month == 12 {
		next = Date{Year: year + 1, Month: 1, Day: 1}
	}
	nextFirst, err := c.ToGregorian(next)
	if err != nil {
		return 0, err
	}
	n := int(nextFirst.Sub(first).Hours() / 24)
	if n != 29 && n != 30 {
		return 0, fmt.Errorf("%w: %04d-%02d has %d days", ErrConversion, year, month, n)
	}
	return n, nil
}
