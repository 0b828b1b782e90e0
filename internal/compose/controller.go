// Package compose implements the cascading grade → subject → chapter → outcome
// selection used to scope a quiz.
//
// Every upstream change clears the downstream selections and option lists
// synchronously, then fetches the next list in the background. Each fetch is
// tagged; a response whose tag no longer matches its level is discarded, so a
// slow answer for an abandoned choice can never repopulate the lists.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-quiz/internal/curriculum"
)

const defaultFetchTimeout = 15 * time.Second

var (
	// ErrInvalidCascadeState is a contract violation, e.g. selecting a subject
	// before a grade. A correct client never triggers it.
	ErrInvalidCascadeState = errors.New("invalid cascade state")
	// ErrUnknownOption means the id or text is not in the currently loaded list.
	ErrUnknownOption = errors.New("option not in current list")
	// ErrClosed is returned once the controller has been discarded.
	ErrClosed = errors.New("controller closed")
)

// Selection is a read-only snapshot of the current choices.
type Selection struct {
	Grade    *curriculum.Grade   `json:"grade,omitempty"`
	Subject  *curriculum.Subject `json:"subject,omitempty"`
	Chapter  *curriculum.Chapter `json:"chapter,omitempty"`
	Outcomes []string            `json:"outcomes"`
}

// IsEmpty reports whether nothing has been selected.
func (s Selection) IsEmpty() bool {
	return s.Grade == nil && s.Subject == nil && s.Chapter == nil && len(s.Outcomes) == 0
}

// Options is a snapshot of the lists the user can currently choose from,
// in the order the source returned them.
type Options struct {
	Grades   []curriculum.Grade   `json:"grades"`
	Subjects []curriculum.Subject `json:"subjects"`
	Chapters []curriculum.Chapter `json:"chapters"`
	Outcomes []curriculum.Outcome `json:"outcomes"`
}

// Config holds dependencies for a Controller.
type Config struct {
	Source       curriculum.Source
	FetchTimeout time.Duration // per-fetch limit (default 15s)
	Notify       func(Event)   // optional; called without locks held
}

// Controller owns one selection state and its derived option lists.
type Controller struct {
	source  curriculum.Source
	timeout time.Duration
	notify  func(Event)

	mu       sync.Mutex
	closed   bool
	grade    *curriculum.Grade
	subject  *curriculum.Subject
	chapter  *curriculum.Chapter
	selected []string
	grades   []curriculum.Grade
	subjects []curriculum.Subject
	chapters []curriculum.Chapter
	outcomes []curriculum.Outcome
	dups     []string

	seq     uint64
	epoch   [4]uint64 // current tag per list level
	pending [4]uint64 // tag of the unresolved fetch per level, 0 if none
}

// NewController creates a controller with an empty selection.
func NewController(cfg Config) *Controller {
	timeout := cfg.FetchTimeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	return &Controller{
		source:  cfg.Source,
		timeout: timeout,
		notify:  cfg.Notify,
	}
}

// LoadGrades (re)fetches the grade list. The selection is left untouched.
func (c *Controller) LoadGrades(ctx context.Context) *Fetch {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.grades = nil
	tag := c.bump(curriculum.LevelGrade)
	if c.closed {
		return c.settled(curriculum.LevelGrade, tag)
	}
	return c.launch(ctx, curriculum.LevelGrade, tag, func(ctx context.Context) (func(), int, error) {
		grades, err := c.source.ListGrades(ctx)
		return func() { c.grades = grades }, len(grades), err
	})
}

// SelectGrade chooses a grade, clears everything below it and fetches its subjects.
func (c *Controller) SelectGrade(ctx context.Context, id int) (*Fetch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	i := slices.IndexFunc(c.grades, func(g curriculum.Grade) bool { return g.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: grade %d", ErrUnknownOption, id)
	}

	grade := c.grades[i]
	c.grade = &grade
	c.clearBelow(curriculum.LevelGrade)

	tag := c.epoch[curriculum.LevelSubject]
	return c.launch(ctx, curriculum.LevelSubject, tag, func(ctx context.Context) (func(), int, error) {
		subjects, err := c.source.ListSubjects(ctx, grade.ID)
		return func() { c.subjects = subjects }, len(subjects), err
	}), nil
}

// SelectSubject chooses a subject, clears the chapter and outcomes and fetches chapters.
func (c *Controller) SelectSubject(ctx context.Context, id int) (*Fetch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.grade == nil {
		return nil, fmt.Errorf("%w: subject selected without a grade", ErrInvalidCascadeState)
	}
	i := slices.IndexFunc(c.subjects, func(s curriculum.Subject) bool { return s.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: subject %d", ErrUnknownOption, id)
	}

	subject := c.subjects[i]
	c.subject = &subject
	c.clearBelow(curriculum.LevelSubject)

	gradeID := c.grade.ID
	tag := c.epoch[curriculum.LevelChapter]
	return c.launch(ctx, curriculum.LevelChapter, tag, func(ctx context.Context) (func(), int, error) {
		chapters, err := c.source.ListChapters(ctx, gradeID, subject.ID)
		return func() { c.chapters = chapters }, len(chapters), err
	}), nil
}

// SelectChapter chooses a chapter, clears the outcomes and fetches the chapter's outcomes.
func (c *Controller) SelectChapter(ctx context.Context, id int) (*Fetch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.subject == nil {
		return nil, fmt.Errorf("%w: chapter selected without a subject", ErrInvalidCascadeState)
	}
	i := slices.IndexFunc(c.chapters, func(ch curriculum.Chapter) bool { return ch.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: chapter %d", ErrUnknownOption, id)
	}

	chapter := c.chapters[i]
	c.chapter = &chapter
	c.clearBelow(curriculum.LevelChapter)

	tag := c.epoch[curriculum.LevelOutcome]
	return c.launch(ctx, curriculum.LevelOutcome, tag, func(ctx context.Context) (func(), int, error) {
		outcomes, err := c.source.ListOutcomes(ctx, chapter.ID)
		return func() {
			c.outcomes = outcomes
			c.dups = duplicateTexts(outcomes)
		}, len(outcomes), err
	}), nil
}

// ToggleOutcome adds or removes an outcome by text. Included outcomes keep
// insertion order; including an already selected outcome is a no-op.
func (c *Controller) ToggleOutcome(text string, included bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.chapter == nil {
		return fmt.Errorf("%w: outcome toggled without a chapter", ErrInvalidCascadeState)
	}

	i := slices.Index(c.selected, text)
	if !included {
		if i >= 0 {
			c.selected = slices.Delete(c.selected, i, i+1)
		}
		return nil
	}

	if i >= 0 {
		return nil
	}
	if !slices.ContainsFunc(c.outcomes, func(o curriculum.Outcome) bool { return o.Text == text }) {
		return fmt.Errorf("%w: outcome %q", ErrUnknownOption, text)
	}
	c.selected = append(c.selected, text)
	return nil
}

// Selection returns a snapshot of the current choices.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel := Selection{Outcomes: slices.Clone(c.selected)}
	if sel.Outcomes == nil {
		sel.Outcomes = []string{}
	}
	if c.grade != nil {
		g := *c.grade
		sel.Grade = &g
	}
	if c.subject != nil {
		s := *c.subject
		sel.Subject = &s
	}
	if c.chapter != nil {
		ch := *c.chapter
		sel.Chapter = &ch
	}
	return sel
}

// Options returns a snapshot of the current option lists.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Options{
		Grades:   nonNil(c.grades),
		Subjects: nonNil(c.subjects),
		Chapters: nonNil(c.chapters),
		Outcomes: nonNil(c.outcomes),
	}
}

// Pending reports whether the list at level is still loading.
func (c *Controller) Pending(level curriculum.Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[level] != 0
}

// Duplicates returns outcome texts that occur more than once in the current
// chapter. Such outcomes cannot be told apart by selection.
func (c *Controller) Duplicates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.dups)
}

// Close discards the controller. Outstanding fetches become stale.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for _, level := range curriculum.Levels {
		c.bump(level)
	}
}

// clearBelow resets every selection and list strictly below level and
// invalidates their outstanding fetches. Caller holds c.mu.
func (c *Controller) clearBelow(level curriculum.Level) {
	for l := level + 1; l <= curriculum.LevelOutcome; l++ {
		switch l {
		case curriculum.LevelSubject:
			c.subject = nil
			c.subjects = nil
		case curriculum.LevelChapter:
			c.chapter = nil
			c.chapters = nil
		case curriculum.LevelOutcome:
			c.selected = nil
			c.outcomes = nil
			c.dups = nil
		}
		c.bump(l)
	}
}

// bump issues a new tag for level, orphaning any outstanding fetch. Caller holds c.mu.
func (c *Controller) bump(level curriculum.Level) uint64 {
	c.seq++
	c.epoch[level] = c.seq
	c.pending[level] = 0
	return c.seq
}

// settled returns a Fetch that is already discarded.
func (c *Controller) settled(level curriculum.Level, tag uint64) *Fetch {
	f := newFetch(level, tag)
	f.stale = true
	close(f.done)
	return f
}

// launch runs fetch in the background and applies its result only if tag is
// still current for level. Caller holds c.mu.
func (c *Controller) launch(ctx context.Context, level curriculum.Level, tag uint64, fetch func(context.Context) (func(), int, error)) *Fetch {
	f := newFetch(level, tag)
	c.pending[level] = tag

	go func() {
		defer close(f.done)

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		apply, count, err := fetch(fctx)

		c.mu.Lock()
		if c.epoch[level] != tag {
			c.mu.Unlock()
			f.stale = true
			slog.Debug("discarded stale taxonomy response", "level", level, "error", err)
			return
		}
		c.pending[level] = 0

		var events []Event
		if err != nil {
			var fetchErr *curriculum.FetchError
			if !errors.As(err, &fetchErr) {
				fetchErr = &curriculum.FetchError{Level: level, Err: err}
			}
			f.err = fetchErr
			events = append(events, Event{Kind: EventFetchFailed, Level: level, Message: fetchErr.Error(), Err: fetchErr})
		} else {
			apply()
			events = append(events, Event{Kind: EventListLoaded, Level: level, Count: count})
			if level == curriculum.LevelOutcome && len(c.dups) > 0 {
				events = append(events, Event{
					Kind:       EventDuplicateOutcomes,
					Level:      level,
					Message:    "some learning outcomes share the same text and will be selected together",
					Duplicates: slices.Clone(c.dups),
				})
			}
		}
		notify := c.notify
		c.mu.Unlock()

		for _, ev := range events {
			switch ev.Kind {
			case EventFetchFailed:
				slog.Warn("taxonomy fetch failed", "level", level, "error", ev.Err)
			case EventDuplicateOutcomes:
				slog.Warn("duplicate learning outcomes", "count", len(ev.Duplicates))
			}
			if notify != nil {
				notify(ev)
			}
		}
	}()

	return f
}

// duplicateTexts returns texts that appear more than once after NFC
// normalization and trimming, in first-seen order.
func duplicateTexts(outcomes []curriculum.Outcome) []string {
	seen := make(map[string]int, len(outcomes))
	var dups []string
	for _, o := range outcomes {
		key := norm.NFC.String(strings.TrimSpace(o.Text))
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, o.Text)
		}
	}
	return dups
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
