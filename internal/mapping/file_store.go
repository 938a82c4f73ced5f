package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

const (
	DefaultDir      = "mapping"
	DatasetFileName = "dataset_mapping.json"
	PlaceFileName   = "place_mapping.json"
)

var ErrNotFound = errors.New("mapping file not found")

// FileStore keeps a ledger as two JSON side files. Each file is an array
// of single-key objects, {"<remote id>": <local id>}, in creation order.
type FileStore struct {
	fs  afero.Fs
	dir string
	log *slog.Logger
}

func NewFileStore(fs afero.Fs, dir string, log *slog.Logger) *FileStore {
	if dir == "" {
		dir = DefaultDir
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{fs: fs, dir: dir, log: log}
}

func (s *FileStore) DatasetPath() string { return filepath.Join(s.dir, DatasetFileName) }

func (s *FileStore) PlacePath() string { return filepath.Join(s.dir, PlaceFileName) }

// Exists reports whether either side file is present.
func (s *FileStore) Exists() (bool, error) {
	for _, p := range []string{s.DatasetPath(), s.PlacePath()} {
		ok, err := afero.Exists(s.fs, p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Load reads both side files. Either one missing is ErrNotFound.
func (s *FileStore) Load() (*Ledger, error) {
	ledger := NewLedger()
	for _, f := range []struct {
		kind Kind
		path string
	}{
		{KindDataset, s.DatasetPath()},
		{KindPlace, s.PlacePath()},
	} {
		entries, err := s.readFile(f.path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if w := ledger.Add(f.kind, e.RemoteID, e.LocalID); w != nil {
				s.log.Warn("mapping integrity", slog.String("file", f.path), slog.String("detail", w.String()))
			}
		}
	}
	return ledger, nil
}

func (s *FileStore) readFile(path string) ([]Entry, error) {
	ok, err := afero.Exists(s.fs, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	entries, err := decodeEntries(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

// decodeEntries accepts the array form and, for files rewritten as one flat
// object, an object whose keys are taken in sorted order. A flat object may
// also hold appended associations, {"0": {"SC2": "9"}}; those follow the
// plain keys in index order.
func decodeEntries(b []byte) ([]Entry, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}

	var objects []map[string]json.RawMessage
	if b[0] == '{' {
		var flat map[string]json.RawMessage
		if err := json.Unmarshal(b, &flat); err != nil {
			return nil, err
		}
		objects = []map[string]json.RawMessage{flat}
	} else if err := json.Unmarshal(b, &objects); err != nil {
		return nil, err
	}

	var entries []Entry
	for _, obj := range objects {
		got, err := decodeObject(obj, true)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}
	return entries, nil
}

func decodeObject(obj map[string]json.RawMessage, allowNested bool) ([]Entry, error) {
	var plain, nested []string
	for k, raw := range obj {
		if isObject(raw) {
			nested = append(nested, k)
		} else {
			plain = append(plain, k)
		}
	}
	sort.Strings(plain)
	sort.Slice(nested, func(i, j int) bool { return indexLess(nested[i], nested[j]) })

	entries := make([]Entry, 0, len(obj))
	for _, k := range plain {
		id, err := parseLocalID(obj[k])
		if err != nil {
			return nil, fmt.Errorf("remote id %q: %w", k, err)
		}
		entries = append(entries, Entry{RemoteID: k, LocalID: id})
	}
	for _, k := range nested {
		if !allowNested {
			return nil, fmt.Errorf("remote id %q: nested object", k)
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(obj[k], &inner); err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		got, err := decodeObject(inner, false)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		entries = append(entries, got...)
	}
	return entries, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// indexLess orders numeric keys numerically, ahead of any other key.
func indexLess(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// parseLocalID takes 12 or "12"; older ledgers stored ids as strings.
func parseLocalID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Save overwrites both side files with the full ledger.
func (s *FileStore) Save(l *Ledger) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	if err := s.writeFile(s.DatasetPath(), l.Datasets.Entries()); err != nil {
		return err
	}
	return s.writeFile(s.PlacePath(), l.Places.Entries())
}

func (s *FileStore) writeFile(path string, entries []Entry) error {
	b, err := encodeEntries(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func encodeEntries(entries []Entry) ([]byte, error) {
	objects := make([]map[string]int64, len(entries))
	for i, e := range entries {
		objects[i] = map[string]int64{e.RemoteID: e.LocalID}
	}
	b, err := json.MarshalIndent(objects, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Remove deletes both side files. Files already gone are not an error.
func (s *FileStore) Remove() error {
	for _, p := range []string{s.DatasetPath(), s.PlacePath()} {
		if err := s.fs.Remove(p); err != nil {
			if ok, _ := afero.Exists(s.fs, p); ok {
				return fmt.Errorf("remove %s: %w", p, err)
			}
		}
	}
	return nil
}
