// Package extract turns documents into dates. The actual text-extraction
// engine (PDF layout reading, OCR) lives behind TextFunc; this package owns
// the strategy wiring: a primary extractor, one fallback attempt, and the
// date recognition shared by both.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// ErrNoDate reports that no parseable date was found for the requested
// field, even after the fallback strategy.
var ErrNoDate = errors.New("no date found")

// Extractor returns the date carried by the named metadata field of a
// document, or fails.
type Extractor interface {
	ExtractDate(ctx context.Context, path, field string) (time.Time, error)
}

// TextFunc obtains the raw text for a document field. Implementations may
// read page regions, run OCR, or simply read the file; extraction
// internals are outside this package's contract.
type TextFunc func(ctx context.Context, path, field string) (string, error)

// DateFinder scans text with a configured pattern list and normalizes the
// first candidate that parses as a calendar date.
type DateFinder struct {
	patterns []*regexp.Regexp
}

// Day-first forms come before month-first ones, matching the documents the
// patterns were tuned for.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006-1-2", "2006/1/2",
	"02-01-2006", "02/01/2006", "2-1-2006", "2/1/2006",
	"02-01-06", "02/01/06", "2-1-06", "2/1/06",
}

func NewDateFinder(patterns []string) (*DateFinder, error) {
	if len(patterns) == 0 {
		return nil, errors.New("at least one date pattern is required")
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling date pattern %q: %w", p, err)
		}

		compiled = append(compiled, re)
	}

	return &DateFinder{patterns: compiled}, nil
}

// Find returns the first candidate across all patterns that normalizes to
// a date.
func (f *DateFinder) Find(text string) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}

	for _, re := range f.patterns {
		for _, candidate := range re.FindAllString(text, -1) {
			if t, ok := normalizeDate(candidate); ok {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

func normalizeDate(candidate string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// TextExtractor is the primary strategy: pull the field's text out of the
// document and recognize a date in it.
type TextExtractor struct {
	text   TextFunc
	finder *DateFinder
}

func NewTextExtractor(text TextFunc, finder *DateFinder) *TextExtractor {
	return &TextExtractor{text: text, finder: finder}
}

func (e *TextExtractor) ExtractDate(ctx context.Context, path, field string) (time.Time, error) {
	text, err := e.text(ctx, path, field)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading text for %s: %w", field, err)
	}

	if t, ok := e.finder.Find(text); ok {
		return t, nil
	}

	return time.Time{}, ErrNoDate
}

// FilenameExtractor is the fallback strategy: many documents carry their
// date in the file name even when the content defeats text extraction.
type FilenameExtractor struct {
	finder *DateFinder
}

func NewFilenameExtractor(finder *DateFinder) *FilenameExtractor {
	return &FilenameExtractor{finder: finder}
}

func (e *FilenameExtractor) ExtractDate(_ context.Context, path, _ string) (time.Time, error) {
	if t, ok := e.finder.Find(filepath.Base(path)); ok {
		return t, nil
	}

	return time.Time{}, ErrNoDate
}

// Chain tries the primary strategy, then the fallback exactly once.
type Chain struct {
	primary  Extractor
	fallback Extractor
}

func NewChain(primary, fallback Extractor) *Chain {
	return &Chain{primary: primary, fallback: fallback}
}

func (c *Chain) ExtractDate(ctx context.Context, path, field string) (time.Time, error) {
	t, primaryErr := c.primary.ExtractDate(ctx, path, field)
	if primaryErr == nil {
		return t, nil
	}

	if c.fallback == nil {
		return time.Time{}, primaryErr
	}

	t, err := c.fallback.ExtractDate(ctx, path, field)
	if err != nil {
		return time.Time{}, fmt.Errorf("fallback after %v: %w", primaryErr, err)
	}

	return t, nil
}
