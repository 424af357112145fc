package setstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"reposift/internal/candidate"
	"reposift/internal/fileutil"
	"reposift/internal/logging"
	"reposift/internal/services"
)

// Store reads and writes the durable disposition files.
type Store struct {
	logger *slog.Logger
}

// New creates a Store.
func New(logger *slog.Logger) *Store {
	return &Store{logger: logging.NewComponentLogger(logger, "setstore")}
}

// Load returns the identity set stored at path. Problems with the file are
// logged; non-string entries are dropped and an unusable file yields an empty
// set.
func (s *Store) Load(path string) IdentitySet {
	set, _ := s.loadSet(path)
	return set
}

// Merge unions set with the identities already stored at path and writes the
// result back in sorted order. A file that could not be fully read is copied
// to path + ".corrupt" first; if that copy fails the file is left untouched.
func (s *Store) Merge(path string, set IdentitySet) error {
	existing, damaged := s.loadSet(path)
	if damaged {
		if err := fileutil.CopyFile(path, path+".corrupt"); err != nil {
			return services.Wrap(services.ErrPersistence, "setstore", "preserve damaged set", path, err)
		}
		logging.WarnWithContext(s.logger, "damaged disposition file preserved before rewrite", "setstore_preserved",
			logging.String("path", path),
			logging.String("copy", path+".corrupt"),
			logging.Int("kept", existing.Len()),
			logging.String(logging.FieldErrorHint, "recover entries from the .corrupt copy if needed"),
			logging.String(logging.FieldImpact, "unreadable entries are no longer in the live set"),
		)
	}
	merged := existing.Union(set)
	data, err := encode(merged.Sorted())
	if err != nil {
		return services.Wrap(services.ErrPersistence, "setstore", "encode set", path, err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "setstore", "write set", path, err)
	}
	s.logger.Debug("merged identity set",
		logging.String("path", path),
		logging.Int("added", set.Len()),
		logging.Int("total", merged.Len()),
	)
	return nil
}

// loadSet reads the identities at path. damaged reports that the file exists
// with content that could not be kept in full.
func (s *Store) loadSet(path string) (set IdentitySet, damaged bool) {
	elems, damaged := s.readArray(path)
	set = NewIdentitySet()
	skipped := 0
	for _, elem := range elems {
		var identity string
		if err := json.Unmarshal(elem, &identity); err != nil || strings.TrimSpace(identity) == "" {
			skipped++
			continue
		}
		set.Add(identity)
	}
	if skipped > 0 {
		logging.WarnWithContext(s.logger, "dropped non-string entries from disposition file", "setstore_entries_invalid",
			logging.String("path", path),
			logging.Int("dropped", skipped),
			logging.Int("kept", set.Len()),
			logging.String(logging.FieldImpact, "only string identities are used"),
		)
		damaged = true
	}
	return set, damaged
}

// LoadRecords returns the records stored at path. Entries that are not
// records or lack an identity are dropped.
func (s *Store) LoadRecords(path string) []candidate.Record {
	elems, _ := s.readArray(path)
	records := make([]candidate.Record, 0, len(elems))
	for _, elem := range elems {
		var record candidate.Record
		if err := json.Unmarshal(elem, &record); err != nil || record.Identity() == "" {
			continue
		}
		records = append(records, record)
	}
	if dropped := len(elems) - len(records); dropped > 0 {
		logging.WarnWithContext(s.logger, "dropped invalid records", "setstore_records_invalid",
			logging.String("path", path),
			logging.Int("dropped", dropped),
			logging.String(logging.FieldImpact, "invalid entries are removed on next write"),
		)
	}
	return records
}

// ReplaceRecords overwrites path with records. The previous content is kept
// at path + ".bak" when present.
func (s *Store) ReplaceRecords(path string, records []candidate.Record) error {
	if records == nil {
		records = []candidate.Record{}
	}
	data, err := encode(records)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "setstore", "encode records", path, err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := fileutil.CopyFile(path, path+".bak"); err != nil {
			logging.WarnWithContext(s.logger, "green list backup failed", "setstore_backup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "previous green list is not recoverable from backup"),
			)
		}
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "setstore", "write records", path, err)
	}
	return nil
}

// readArray splits the JSON array at path into its elements. A missing or
// blank file yields nothing; damaged reports a file whose content is not a
// readable JSON array.
func (s *Store) readArray(path string) (elems []json.RawMessage, damaged bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("disposition file not found; starting empty", logging.String("path", path))
			return nil, false
		}
		s.warnMalformed(path, "unreadable", err)
		return nil, true
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		s.warnMalformed(path, "empty", nil)
		return nil, false
	}
	if trimmed[0] != '[' {
		s.warnMalformed(path, "not a JSON list", nil)
		return nil, true
	}
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		s.warnMalformed(path, "invalid JSON", err)
		return nil, true
	}
	return elems, false
}

func (s *Store) warnMalformed(path, reason string, err error) {
	attrs := []logging.Attr{
		logging.String("path", path),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "inspect or remove the file"),
		logging.String(logging.FieldImpact, "starting with an empty set"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(services.Wrap(services.ErrMalformedState, "setstore", "load", strings.TrimSpace(reason), err)))
	}
	logging.WarnWithContext(s.logger, "disposition file unusable", "setstore_load_failed", attrs...)
}

func encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}
