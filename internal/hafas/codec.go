package hafas

import "time"

// NoTime is the time sentinel for "no time".
const NoTime = 0xFFFF

// DecodeDay converts a day count into midnight of that day; day 1 is 1 Jan 1980.
func DecodeDay(days int, loc *time.Location) time.Time {
	return time.Date(1980, time.January, days, 0, 0, 0, 0, loc)
}

// DecodeTime resolves an hours*100+minutes value against a midnight base plus
// a day offset. NoTime yields nil.
func DecodeTime(value uint16, base time.Time, dayOffset int) (*time.Time, error) {
	if value == NoTime {
		return nil, nil
	}
	hours := int(value) / 100
	minutes := int(value) % 100
	if minutes > 60 {
		return nil, malformed("minutes out of range: %d", minutes)
	}
	if base.Hour() != 0 || base.Minute() != 0 || base.Second() != 0 || base.Nanosecond() != 0 {
		return nil, malformed("base %s not on a date boundary", base.Format(time.RFC3339))
	}
	t := time.Date(base.Year(), base.Month(), base.Day()+dayOffset, hours, minutes, 0, 0, base.Location())
	return &t, nil
}

func (c *cursor) day(loc *time.Location) time.Time {
	days := c.u16()
	if c.err != nil {
		return time.Time{}
	}
	return DecodeDay(days, loc)
}

func (c *cursor) clock(base time.Time, dayOffset int) *time.Time {
	v := c.u16()
	if c.err != nil {
		return nil
	}
	t, err := DecodeTime(uint16(v), base, dayOffset)
	c.fail(err)
	return t
}
