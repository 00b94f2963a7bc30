// Package rendersvc draws week layouts.
package rendersvc

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"github.com/trezcool/metricampus/core/schedule"
)

const (
	DefaultWidth     = 1200
	DefaultRowHeight = 24

	headerHeight = 32
	gutterWidth  = 56
	blockPadding = 2
	fontSize     = 11
	minBlockSize = 2
)

var palette = []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948", "#b07aa1", "#ff9da7", "#9c755f"}

type Options struct {
	Width     int // px, whole image
	RowHeight int // px per grid row
}

func (o Options) withDefaults() Options {
	if o.Width <= gutterWidth {
		o.Width = DefaultWidth
	}
	if o.RowHeight <= 0 {
		o.RowHeight = DefaultRowHeight
	}
	return o
}

// SVG draws the week: one column per day, one line per grid row, blocks positioned from their geometry.
func SVG(w io.Writer, week schedule.WeekLayout, opts Options) error {
	opts = opts.withDefaults()
	bw := bufio.NewWriter(w)

	nDays := len(week.Days)
	if nDays == 0 {
		nDays = 1
	}
	gridWidth := float64(opts.Width - gutterWidth)
	dayWidth := gridWidth / float64(nDays)
	gridHeight := float64(len(week.Rows) * opts.RowHeight)
	height := headerHeight + int(gridHeight)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="%d">`+"\n",
		opts.Width, height, opts.Width, height, fontSize)
	fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")

	// rows
	for i, row := range week.Rows {
		y := headerHeight + i*opts.RowHeight
		stroke := "#eeeeee"
		if row.Minute() == 0 {
			stroke = "#cccccc"
			fmt.Fprintf(bw, `<text x="%d" y="%d" text-anchor="end" fill="#555555">%s</text>`+"\n",
				gutterWidth-6, y+fontSize, row.String())
		}
		fmt.Fprintf(bw, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n", gutterWidth, y, opts.Width, y, stroke)
	}

	// days
	for i, day := range week.Days {
		x := float64(gutterWidth) + float64(i)*dayWidth
		fmt.Fprintf(bw, `<text x="%.2f" y="%d" text-anchor="middle" font-weight="bold">%s</text>`+"\n",
			x+dayWidth/2, headerHeight-10, escape(day.Name))
		fmt.Fprintf(bw, `<line x1="%.2f" y1="%d" x2="%.2f" y2="%d" stroke="#cccccc"/>`+"\n",
			x, headerHeight, x, height)

		for _, blk := range day.Blocks {
			if !blk.Geometry.Visible {
				continue
			}
			drawBlock(bw, blk, x, dayWidth, gridHeight)
		}
	}

	fmt.Fprintln(bw, `</svg>`)
	return bw.Flush()
}

func drawBlock(w io.Writer, blk schedule.PlacedBlock, dayX, dayWidth, gridHeight float64) {
	g := blk.Geometry
	x := dayX + g.Left*dayWidth/100 + blockPadding
	y := headerHeight + g.Top*gridHeight/100
	width := g.Width*dayWidth/100 - 2*blockPadding
	height := g.Height * gridHeight / 100
	if width < minBlockSize {
		width = minBlockSize
	}
	if height < minBlockSize {
		height = minBlockSize
	}

	title := fmt.Sprintf("%s %s-%s", blk.SubjectName, blk.StartTime, blk.EndTime)
	fmt.Fprintf(w, `<g><title>%s</title>`, escape(title))
	fmt.Fprintf(w, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="3" fill="%s" fill-opacity="0.85"/>`,
		x, y, width, height, color(blk.SubjectName))

	// as many labels as fit
	labels := []string{blk.SubjectName, blk.GroupName, blk.Room}
	lineHeight := float64(fontSize + 2)
	for i, label := range labels {
		ly := y + float64(i+1)*lineHeight
		if label == "" || ly > y+height {
			continue
		}
		fmt.Fprintf(w, `<text x="%.2f" y="%.2f" fill="#ffffff">%s</text>`, x+3, ly, escape(truncate(label, width)))
	}
	fmt.Fprintln(w, `</g>`)
}

// color picks a stable palette color per subject.
func color(subject string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(subject)))
	return palette[h.Sum32()%uint32(len(palette))]
}

// truncate shortens s to roughly fit width px.
func truncate(s string, width float64) string {
	maxChars := int(width / (fontSize * 0.6))
	runes := []rune(s)
	if maxChars < 1 {
		return ""
	}
	if len(runes) <= maxChars {
		return s
	}
	if maxChars == 1 {
		return string(runes[:1])
	}
	return string(runes[:maxChars-1]) + "…"
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
