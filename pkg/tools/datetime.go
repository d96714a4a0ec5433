// Package tools holds small function tools offered to the coordinator.
package tools

import (
	"fmt"
	"time"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

const (
	CurrentDatetimeToolName = "get_current_datetime"

	datetimeLayout = "2006-01-02 15:04:05"
)

// DatetimeArgs is empty; the model calls the tool without arguments.
type DatetimeArgs struct{}

// DatetimeResult is returned to the model.
type DatetimeResult struct {
	CurrentDatetime string `json:"current_datetime" jsonschema:"Current local date and time formatted as YYYY-MM-DD HH:MM:SS."`
	TimeZone        string `json:"time_zone" jsonschema:"IANA name of the time zone used."`
}

// Clock reports the current time at a fixed location.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a wall clock for loc. A nil loc means time.Local.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Now: time.Now, Location: loc}
}

// Current formats the clock's time.
func (c Clock) Current() DatetimeResult {
	now := c.Now().In(c.Location)
	return DatetimeResult{
		CurrentDatetime: now.Format(datetimeLayout),
		TimeZone:        c.Location.String(),
	}
}

// NewCurrentDatetimeTool lets the agents anchor "latest" and "this year" to
// the real date.
func NewCurrentDatetimeTool(clock Clock) (tool.Tool, error) {
	t, err := functiontool.New(functiontool.Config{
		Name:        CurrentDatetimeToolName,
		Description: "Returns the current date and time.",
	}, func(_ tool.Context, _ DatetimeArgs) (DatetimeResult, error) {
		return clock.Current(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", CurrentDatetimeToolName, err)
	}
	return t, nil
}
