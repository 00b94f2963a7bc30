package layout

import (
	"errors"

	goerrors "github.com/TudorHulban/go-errors"
)

// Window is the visible part of the day in the grid, split into fixed rows.
type Window struct {
	StartHour  int `json:"start_hour" yaml:"start_hour"`
	EndHour    int `json:"end_hour" yaml:"end_hour"`
	RowMinutes int `json:"row_minutes" yaml:"row_minutes"`
}

var DefaultWindow = Window{StartHour: 7, EndHour: 20, RowMinutes: 30}

func (w Window) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 {
		return goerrors.ErrValidation{
			Caller: "Validate - Window",
			Issue: goerrors.ErrInvalidInput{
				InputName:  "StartHour",
				InputValue: w.StartHour,
			},
		}
	}
	if w.EndHour <= w.StartHour || w.EndHour > 24 {
		return goerrors.ErrValidation{
			Caller: "Validate - Window",
			Issue: goerrors.ErrInvalidInput{
				InputName:  "EndHour",
				InputValue: w.EndHour,
				Issue:      errors.New("end hour must be after start hour and at most 24"),
			},
		}
	}
	if w.RowMinutes <= 0 || w.Minutes()%w.RowMinutes != 0 {
		return goerrors.ErrValidation{
			Caller: "Validate - Window",
			Issue: goerrors.ErrInvalidInput{
				InputName:  "RowMinutes",
				InputValue: w.RowMinutes,
				Issue:      errors.New("rows must evenly divide the window"),
			},
		}
	}
	return nil
}

func (w Window) Start() Clock { return NewClock(w.StartHour, 0) }
func (w Window) End() Clock   { return NewClock(w.EndHour, 0) }
func (w Window) Minutes() int { return (w.EndHour - w.StartHour) * 60 }

// Rows returns the start time of every grid row.
func (w Window) Rows() []Clock {
	if w.RowMinutes <= 0 {
		return nil
	}
	rows := make([]Clock, 0, w.Minutes()/w.RowMinutes)
	for m := w.Start(); m < w.End(); m += Clock(w.RowMinutes) {
		rows = append(rows, m)
	}
	return rows
}

// Geometry positions a placed block inside the window.
// Top, Height, Left and Width are percentages; Row and RowSpan are 1-based grid rows.
type Geometry struct {
	Top     float64 `json:"top"`
	Height  float64 `json:"height"`
	Left    float64 `json:"left"`
	Width   float64 `json:"width"`
	Row     int     `json:"row"`
	RowSpan int     `json:"row_span"`
	Visible bool    `json:"visible"`
}

// Place computes the geometry of p, clipped to the window.
func (w Window) Place(p Placed) Geometry {
	count := p.ColumnCount
	if count < 1 {
		count = 1
	}
	g := Geometry{Width: 100 / float64(count)}
	g.Left = float64(p.Column) * g.Width

	winStart, winEnd := w.Start().Minutes(), w.End().Minutes()
	start, end := p.StartMinute, p.occupiedUntil()
	clipStart, clipEnd := clamp(start, winStart, winEnd), clamp(end, winStart, winEnd)

	g.Visible = clipStart < clipEnd || (start == end && start >= winStart && start < winEnd)
	if !g.Visible || w.Minutes() <= 0 {
		g.Visible = false
		return g
	}

	total := float64(w.Minutes())
	g.Top = float64(clipStart-winStart) / total * 100
	g.Height = float64(clipEnd-clipStart) / total * 100

	if w.RowMinutes > 0 {
		firstRow := (clipStart - winStart) / w.RowMinutes
		lastRow := (clipEnd - winStart + w.RowMinutes - 1) / w.RowMinutes // exclusive
		g.Row = firstRow + 1
		g.RowSpan = lastRow - firstRow
		if g.RowSpan < 1 {
			g.RowSpan = 1
		}
	}
	return g
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
