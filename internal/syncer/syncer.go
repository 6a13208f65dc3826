// Package syncer runs one synchronization of a channel into the document:
// prune expired blocks, read what is already recorded, fetch the channel and
// prepend a dated block with the posts that are new.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ppiankov/chansync/internal/block"
	"github.com/ppiankov/chansync/internal/dedup"
	"github.com/ppiankov/chansync/internal/docs"
	"github.com/ppiankov/chansync/internal/filter"
	"github.com/ppiankov/chansync/internal/logging"
	"github.com/ppiankov/chansync/internal/prune"
	"github.com/ppiankov/chansync/internal/source"
)

// InsertIndex is where new blocks go: the first position of the body.
const InsertIndex = 1

// Stage names used in StageError and log fields.
const (
	StageConnect = "connect"
	StageRead    = "read"
	StagePrune   = "prune"
	StageRefetch = "refetch"
	StageSource  = "source"
	StageInsert  = "insert"
)

// Document is the subset of docs.Client a run needs.
type Document interface {
	Fetch(ctx context.Context) (*docs.Content, error)
	InsertText(ctx context.Context, text string, index int64) error
	DeleteRange(ctx context.Context, start, end int64) error
}

// Connector opens the target document, exchanging credentials as needed.
type Connector func(ctx context.Context) (Document, error)

// StageError is a failure that ended the run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Report summarizes one run.
type Report struct {
	RunID      string
	Date       time.Time // block date, in the configured location
	Fetched    int
	Duplicates int
	Excluded   int
	Inserted   int
	Pruned     bool
	PrunedFrom time.Time // date of the first deleted block
	Warnings   []error
	Block      string // inserted text, or the text a dry run would insert
}

// Syncer holds the collaborators of a run. Connect, Source and Pruner are
// required.
type Syncer struct {
	Connect  Connector
	Source   source.Source
	Tags     *filter.Tags
	Pruner   *prune.Pruner
	Location *time.Location
	Logger   *log.Logger
	Now      func() time.Time

	// DryRun performs every read but neither deletes nor inserts.
	DryRun bool
}

// Run executes one synchronization. A non-nil error is always a
// *StageError; the report is filled in up to the failing stage.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.NewString()}

	if s.Connect == nil || s.Source == nil || s.Pruner == nil {
		return rep, &StageError{Stage: StageConnect, Err: errors.New("syncer is not fully configured")}
	}

	logger := s.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("run", rep.RunID)

	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	// One clock reading drives both the retention cutoff and the block date.
	started := now().In(loc)
	rep.Date = started

	fail := func(stage string, err error) (Report, error) {
		logger.Error("run aborted", "stage", stage, "err", err)
		return rep, &StageError{Stage: stage, Err: err}
	}

	doc, err := s.Connect(ctx)
	if err != nil {
		return fail(StageConnect, err)
	}

	content, err := doc.Fetch(ctx)
	if err != nil {
		return fail(StageRead, err)
	}

	content, err = s.prune(ctx, doc, content, started, logger, &rep)
	if err != nil {
		return fail(StageRefetch, err)
	}

	index := dedup.NewIndex(content)
	logger.Debug("document loaded", "title", content.Title, "revision", content.RevisionID,
		"paragraphs", len(content.Paragraphs()), "bytes", index.Len())

	posts, err := s.Source.Fetch(ctx)
	if err != nil {
		return fail(StageSource, err)
	}
	rep.Fetched = len(posts)

	var b block.Builder
	for _, p := range posts {
		if index.Contains(p.URL) {
			rep.Duplicates++
			logger.Debug("duplicate post", "url", p.URL, "channel", p.Channel, "posted_at", p.PostedAt)
			continue
		}
		if tag, ok := s.excludedBy(p); ok {
			rep.Excluded++
			logger.Debug("excluded post", "url", p.URL, "channel", p.Channel, "posted_at", p.PostedAt, "tag", tag)
			continue
		}
		b.Prepend(p)
	}

	if b.Len() == 0 {
		logger.Info("no new posts",
			"fetched", rep.Fetched,
			"duplicates", rep.Duplicates,
			"excluded", rep.Excluded,
		)
		return rep, nil
	}

	rep.Block = b.String(started)

	if s.DryRun {
		logger.Info("dry run, skipping insert", "posts", b.Len())
		return rep, nil
	}

	if err := doc.InsertText(ctx, rep.Block, InsertIndex); err != nil {
		return fail(StageInsert, err)
	}
	rep.Inserted = b.Len()

	logger.Info("inserted new posts",
		"count", rep.Inserted,
		"date", started.Format(block.DateLayout),
		"duplicates", rep.Duplicates,
		"excluded", rep.Excluded,
	)
	return rep, nil
}

// prune deletes expired blocks and returns the content dedup should use. A
// failed deletion is recorded as a warning and the original snapshot is kept.
// A dry run dedups against the snapshot cut at the planned deletion.
// Only a failed re-fetch after a successful deletion is returned as an error.
func (s *Syncer) prune(ctx context.Context, doc Document, content *docs.Content, now time.Time, logger *log.Logger, rep *Report) (*docs.Content, error) {
	var d prune.Deleter = doc
	if s.DryRun {
		d = noopDeleter{}
	}

	res, err := s.Pruner.Prune(ctx, d, content, now)
	rep.Warnings = append(rep.Warnings, res.Skipped...)
	if err != nil {
		logger.Warn("prune failed, continuing", "stage", StagePrune, "err", err)
		rep.Warnings = append(rep.Warnings, &StageError{Stage: StagePrune, Err: err})
		return content, nil
	}
	if res.Plan == nil {
		return content, nil
	}

	rep.PrunedFrom = res.Plan.Date
	if s.DryRun {
		logger.Info("dry run, skipping prune", "from", res.Plan.Date.Format(block.DateLayout))
		return content.Before(res.Plan.Start), nil
	}
	rep.Pruned = true

	return doc.Fetch(ctx)
}

func (s *Syncer) excludedBy(p source.Post) (string, bool) {
	if !s.Tags.Excluded(p) {
		return "", false
	}
	return s.Tags.Match(p.Text)
}

type noopDeleter struct{}

func (noopDeleter) DeleteRange(context.Context, int64, int64) error { return nil }
