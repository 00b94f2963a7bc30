package layout

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goerrors "github.com/TudorHulban/go-errors"
)

const MinutesPerDay = 24 * 60

// Clock is a wall-clock time of day, in minutes since midnight.
type Clock int

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "H:MM", "HH:MM" or "HH:MM:SS". Seconds are dropped.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (Clock, error) {
	invalid := func(issue string) error {
		return goerrors.ErrInvalidInput{
			Caller:     "ParseClock",
			InputName:  "clock",
			InputValue: s,
			Issue:      errors.New(issue),
		}
	}

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, invalid("expected HH:MM")
	}

	var values [3]int
	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 || (i > 0 && len(part) != 2) {
			return 0, invalid("expected HH:MM")
		}
		for j := 0; j < len(part); j++ {
			if part[j] < '0' || part[j] > '9' {
				return 0, invalid("expected HH:MM")
			}
		}
		values[i], _ = strconv.Atoi(part)
	}

	hour, minute, second := values[0], values[1], values[2]
	if minute > 59 || second > 59 {
		return 0, invalid("minutes and seconds must be below 60")
	}
	if hour > 24 || (hour == 24 && (minute > 0 || second > 0)) {
		return 0, invalid("time of day out of range")
	}
	return NewClock(hour, minute), nil
}

// MustParseClock is ParseClock for literals; it panics on malformed input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Minutes() int { return int(c) }
func (c Clock) Hour() int    { return int(c) / 60 }
func (c Clock) Minute() int  { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan reads minutes (SMALLINT) or a TIME string.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*c = Clock(v)
		return nil
	case []byte:
		return c.UnmarshalText(v)
	case string:
		return c.UnmarshalText([]byte(v))
	case nil:
		*c = 0
		return nil
	default:
		return fmt.Errorf("layout.Clock: cannot scan %T", src)
	}
}

func (c Clock) Value() (driver.Value, error) {
	return int64(c), nil
}
