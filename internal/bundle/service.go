// Package bundle materializes reconciled matches as zip archives and
// produces the shipment records the mail dispatcher consumes.
package bundle

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rajindermavi/InvoiceMailer/internal/reconcile"
)

const defaultWorkers = 4

// ShipmentRecord is the unit handed to the mail dispatcher: one archive
// plus its recipients for one aggregate. A record with recipients always
// references an existing, non-empty archive.
type ShipmentRecord struct {
	ID             uuid.UUID `json:"id"`
	Key            string    `json:"key"`
	HeadOfficeName string    `json:"head_office_name"`
	Period         string    `json:"period"`
	ArchivePath    string    `json:"archive_path"`
	Recipients     []string  `json:"recipients"`

	// Source paths, kept so delivery status can be written back per row.
	InvoicePaths  []string `json:"invoice_paths"`
	StatementPath string   `json:"statement_path,omitempty"`
}

// Failure reports one group whose archive could not be written. The other
// groups proceed.
type Failure struct {
	Key string `json:"key"`
	Err string `json:"error"`
}

type Service struct {
	workers int
}

func NewService() *Service {
	return &Service{workers: defaultWorkers}
}

// Bundle writes one archive per match into outputDir. Archives for
// distinct aggregates are written in parallel; members within one archive
// sequentially. Existing archives are overwritten, never appended to.
func (s *Service) Bundle(ctx context.Context, matches []reconcile.Match, outputDir string) ([]ShipmentRecord, []Failure, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating output directory: %w", err)
	}

	var (
		mu        sync.Mutex
		shipments []ShipmentRecord
		failures  []Failure
	)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, m := range matches {
		m := m
		g.Go(func() error {
			record, err := s.bundleOne(m, outputDir)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failures = append(failures, Failure{Key: m.Key, Err: err.Error()})
				return nil
			}

			shipments = append(shipments, *record)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(shipments, func(i, j int) bool { return shipments[i].Key < shipments[j].Key })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Key < failures[j].Key })

	return shipments, failures, nil
}

func (s *Service) bundleOne(m reconcile.Match, outputDir string) (*ShipmentRecord, error) {
	record := &ShipmentRecord{
		ID:             uuid.New(),
		Key:            m.Key,
		HeadOfficeName: m.HeadOfficeName,
		Period:         m.Period,
		Recipients:     m.Recipients,
	}

	var sources []string

	for _, inv := range m.Invoices {
		sources = append(sources, inv.FilePath)
		record.InvoicePaths = append(record.InvoicePaths, inv.FilePath)
	}

	if m.Statement != nil {
		sources = append(sources, m.Statement.FilePath)
		record.StatementPath = m.Statement.FilePath
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("nothing to archive for %s", m.Key)
	}

	archivePath := filepath.Join(outputDir, sanitizeName(m.Key)+".zip")

	if err := writeArchive(archivePath, sources); err != nil {
		// A partial archive must not survive a failed group.
		os.Remove(archivePath)
		return nil, err
	}

	record.ArchivePath = archivePath

	return record, nil
}

// writeArchive creates the archive fresh and stores each source under its
// base name. Duplicate base names collapse onto the first occurrence so
// the member-name set equals the source base-name set.
func writeArchive(archivePath string, sources []string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	seen := make(map[string]struct{}, len(sources))

	for _, src := range sources {
		name := filepath.Base(src)

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		if err := addMember(w, name, src); err != nil {
			w.Close()
			return err
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}

	return nil
}

func addMember(w *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening member %s: %w", src, err)
	}
	defer in.Close()

	out, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("creating member %s: %w", name, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("writing member %s: %w", name, err)
	}

	return nil
}

var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*[:cntrl:]]+`)

// sanitizeName makes an aggregate key safe as a file name on every
// platform the archives get copied to.
func sanitizeName(key string) string {
	name := unsafeNameChars.ReplaceAllString(key, "_")
	name = strings.Trim(name, " .")

	if name == "" {
		return "client"
	}

	return name
}
