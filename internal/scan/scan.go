// Package scan discovers invoice and SOA documents on disk. It walks the
// configured roots, matches file names against the per-class patterns and
// asks the extractor for each document's date. Discovery is tolerant: a
// malformed file name or an unreadable date produces a warning, never an
// aborted batch.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rajindermavi/InvoiceMailer/internal/extract"
	"github.com/rajindermavi/InvoiceMailer/internal/ledger"
)

// Metadata fields requested from the extractor per document class.
const (
	invoiceDateField = "inv_date"
	soaDateField     = "soa_date"
)

const defaultWorkers = 8

type WarningKind string

const (
	WarnPatternMismatch   WarningKind = "pattern_mismatch"
	WarnExtractionFailure WarningKind = "extraction_failure"
	WarnWalkError         WarningKind = "walk_error"
)

// Warning is a recoverable discovery fault tied to one path.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Path   string      `json:"path"`
	Detail string      `json:"detail"`
}

// Patterns holds the compiled file-name pattern per document class.
type Patterns struct {
	Invoice *regexp.Regexp
	SOA     *regexp.Regexp
}

// CompilePatterns compiles the configured expressions case-insensitively
// and verifies each carries the named groups the scanner reads.
func CompilePatterns(invoice, soa string) (Patterns, error) {
	inv, err := compilePattern(invoice, "customer", "invoice", "ship")
	if err != nil {
		return Patterns{}, fmt.Errorf("invoice pattern: %w", err)
	}

	st, err := compilePattern(soa, "head_office", "head_office_name")
	if err != nil {
		return Patterns{}, fmt.Errorf("soa pattern: %w", err)
	}

	return Patterns{Invoice: inv, SOA: st}, nil
}

func compilePattern(expr string, groups ...string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		if re.SubexpIndex(g) < 0 {
			return nil, fmt.Errorf("missing named group %q", g)
		}
	}

	return re, nil
}

// Roots are the directory trees to discover documents under.
type Roots struct {
	InvoiceFolder string
	SOAFolder     string
}

// Result is the merged outcome of one scan. Ordering is not significant.
type Result struct {
	Invoices   []ledger.Invoice
	Statements []ledger.StatementOfAccount
	Warnings   []Warning
}

type Scanner struct {
	extractor extract.Extractor
	workers   int
}

func NewScanner(extractor extract.Extractor) *Scanner {
	return &Scanner{extractor: extractor, workers: defaultWorkers}
}

type candidate struct {
	path  string
	class string // "invoice" or "soa"
	match []string
	re    *regexp.Regexp
}

// Scan walks both roots and emits one row per matched document. Per-file
// date extraction runs on a bounded worker pool; records and warnings are
// accumulated under a lock. Only an unreadable root is an error.
func (s *Scanner) Scan(ctx context.Context, roots Roots, patterns Patterns) (*Result, error) {
	result := &Result{}

	candidates, err := s.collect(roots, patterns, result)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, c := range candidates {
		c := c
		g.Go(func() error {
			row, warning := s.process(gctx, c)

			mu.Lock()
			defer mu.Unlock()

			if warning != nil {
				result.Warnings = append(result.Warnings, *warning)
			}

			switch r := row.(type) {
			case ledger.Invoice:
				result.Invoices = append(result.Invoices, r)
			case ledger.StatementOfAccount:
				result.Statements = append(result.Statements, r)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// collect enumerates candidate files under both roots, recording pattern
// mismatches and walk faults as warnings.
func (s *Scanner) collect(roots Roots, patterns Patterns, result *Result) ([]candidate, error) {
	var candidates []candidate

	walk := func(root, class string, re *regexp.Regexp) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return fmt.Errorf("scanning %s root: %w", class, err)
				}

				result.Warnings = append(result.Warnings, Warning{
					Kind: WarnWalkError, Path: path, Detail: err.Error(),
				})

				return nil
			}

			if d.IsDir() {
				return nil
			}

			name := filepath.Base(path)

			m := re.FindStringSubmatch(name)
			if m == nil {
				result.Warnings = append(result.Warnings, Warning{
					Kind: WarnPatternMismatch, Path: path,
					Detail: fmt.Sprintf("file name does not match the %s pattern", class),
				})

				return nil
			}

			candidates = append(candidates, candidate{path: path, class: class, match: m, re: re})

			return nil
		})
	}

	if err := walk(roots.InvoiceFolder, "invoice", patterns.Invoice); err != nil {
		return nil, err
	}

	if err := walk(roots.SOAFolder, "soa", patterns.SOA); err != nil {
		return nil, err
	}

	return candidates, nil
}

// process extracts the document date and builds the ledger row. Extraction
// failure keeps the row with a nil date and attaches a warning.
func (s *Scanner) process(ctx context.Context, c candidate) (any, *Warning) {
	field := invoiceDateField
	if c.class == "soa" {
		field = soaDateField
	}

	var warning *Warning

	extracted, err := s.extractor.ExtractDate(ctx, c.path, field)

	datePtr := &extracted
	if err != nil {
		datePtr = nil
		warning = &Warning{
			Kind: WarnExtractionFailure, Path: c.path, Detail: err.Error(),
		}
	}

	group := func(name string) string {
		return c.match[c.re.SubexpIndex(name)]
	}

	path := filepath.ToSlash(c.path)

	if c.class == "invoice" {
		return ledger.Invoice{
			Number:     group("invoice"),
			CustomerID: group("customer"),
			ShipName:   group("ship"),
			FilePath:   path,
			Date:       datePtr,
			Period:     ledger.PeriodOf(datePtr),
		}, warning
	}

	return ledger.StatementOfAccount{
		HeadOffice:     group("head_office"),
		HeadOfficeName: group("head_office_name"),
		FilePath:       path,
		Date:           datePtr,
		Period:         ledger.PeriodOf(datePtr),
	}, warning
}
