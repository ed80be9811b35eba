package scheduler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"disclosure-lab/internal/domain"
)

// CronSpec is the component-wise alternative to a 5-field cron expression.
// Empty components default to every value.
type CronSpec struct {
	Minute    string
	Hour      string
	DayOfWeek string
}

// Expression renders the components as a standard 5-field expression.
func (c CronSpec) Expression() string {
	minute, hour, dow := c.Minute, c.Hour, c.DayOfWeek
	if minute == "" {
		minute = "*"
	}
	if hour == "" {
		hour = "*"
	}
	if dow == "" {
		dow = "*"
	}
	return fmt.Sprintf("%s %s * * %s", minute, hour, dow)
}

// parseCron parses a standard 5-field cron expression.
func parseCron(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return sched, nil
}

// scheduleFor reconstructs the trigger of a durable job definition.
func scheduleFor(def *domain.JobDefinition) (cron.Schedule, error) {
	switch def.ScheduleType {
	case domain.ScheduleCron:
		return parseCron(def.ScheduleValue)
	case domain.ScheduleInterval:
		seconds, err := strconv.ParseFloat(def.ScheduleValue, 64)
		if err != nil {
			return nil, fmt.Errorf("parse interval %q: %w", def.ScheduleValue, err)
		}
		if seconds <= 0 {
			return nil, fmt.Errorf("interval must be positive, got %q", def.ScheduleValue)
		}
		return cron.Every(time.Duration(seconds * float64(time.Second))), nil
	default:
		return nil, fmt.Errorf("unknown schedule type %q", def.ScheduleType)
	}
}

// intervalValue encodes an interval as the decimal seconds string stored in
// the job definition.
func intervalValue(every time.Duration) string {
	return strconv.FormatFloat(every.Seconds(), 'f', -1, 64)
}
