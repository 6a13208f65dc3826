// Package prune removes expired upload blocks from the tail of the document.
package prune

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/chansync/internal/block"
	"github.com/ppiankov/chansync/internal/docs"
)

// DefaultWindow is how long an upload block is kept.
const DefaultWindow = 7 * 24 * time.Hour

// Deleter removes a character range from the document.
type Deleter interface {
	DeleteRange(ctx context.Context, start, end int64) error
}

// Plan describes the deletion a prune pass would issue.
type Plan struct {
	Start  int64     // start of the first expired block
	End    int64     // exclusive end, one before the document's final index
	Date   time.Time // date of the first expired block
	Marker string    // that block's marker paragraph
}

// Result is the outcome of one prune pass.
type Result struct {
	Cutoff  time.Time // blocks dated strictly before this are expired
	Plan    *Plan     // nil when nothing is expired
	Deleted bool
	Skipped []error // markers whose date did not parse
}

// Pruner finds and deletes expired upload blocks.
type Pruner struct {
	Window   time.Duration
	Location *time.Location
	Logger   *log.Logger
}

// New returns a pruner with the given window, using loc for marker dates.
func New(window time.Duration, loc *time.Location, logger *log.Logger) *Pruner {
	if window <= 0 {
		window = DefaultWindow
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pruner{Window: window, Location: loc, Logger: logger}
}

// Scan walks paragraphs in document order and plans deletion from the first
// block dated before now-Window through the end of the document. Blocks are
// prepended newest first, so everything below that block is older still.
func (p *Pruner) Scan(content *docs.Content, now time.Time) Result {
	res := Result{Cutoff: now.Add(-p.Window)}

	for _, el := range content.Paragraphs() {
		text := el.Text()
		date, ok, err := block.ParseMarker(text, p.Location)
		if !ok {
			continue
		}
		if err != nil {
			res.Skipped = append(res.Skipped, err)
			continue
		}
		if !date.Before(res.Cutoff) {
			continue
		}

		end := content.EndIndex() - 1
		if el.StartIndex >= end {
			break
		}
		res.Plan = &Plan{
			Start:  el.StartIndex,
			End:    end,
			Date:   date,
			Marker: text,
		}
		break
	}

	return res
}

// Prune scans content and, when an expired block is found, deletes it and
// everything after it with a single call.
func (p *Pruner) Prune(ctx context.Context, d Deleter, content *docs.Content, now time.Time) (Result, error) {
	res := p.Scan(content, now)

	for _, err := range res.Skipped {
		p.Logger.Warn("skipping upload marker", "err", err)
	}

	if res.Plan == nil {
		p.Logger.Debug("no expired upload blocks", "cutoff", res.Cutoff.Format(time.DateOnly))
		return res, nil
	}

	p.Logger.Info("deleting expired upload blocks",
		"from", res.Plan.Date.Format(block.DateLayout),
		"start", res.Plan.Start,
		"end", res.Plan.End,
	)

	if err := d.DeleteRange(ctx, res.Plan.Start, res.Plan.End); err != nil {
		return res, err
	}
	res.Deleted = true
	return res, nil
}
