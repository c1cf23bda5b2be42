package checkpoint

import "bytes"
import "errors"
import "fmt"
import "io/fs"
import "log/slog"
import "os"
import "path/filepath"
import "regexp"
import "sort"
import "strconv"
import "strings"

// Pool names a retention pool; it is the subdirectory under the store root.
type Pool string

const (
	// General holds the periodic checkpoints training resumes from.
	General Pool = ""
	// BestTrain holds checkpoints that improved the training loss.
	BestTrain Pool = "min"
	// BestValid holds checkpoints that improved the validation loss.
	BestValid Pool = "min_val"
)

func (p Pool) String() string {
	if p == General {
		return "general"
	}
	return string(p)
}

const (
	alias     = "weights.ckpt"
	pointerID = "diffar-alias "
	// DefaultKeep is the number of snapshots a pool retains.
	DefaultKeep = 4
)

var snapshotName = regexp.MustCompile(`^weights-(\d+)\.ckpt$`)

// ErrCorrupt marks a checkpoint that exists but cannot be loaded
var ErrCorrupt = errors.New("corrupt checkpoint")

// Entry is one snapshot in a pool
type Entry struct {
	Step int
	Path string
}

// Store manages the pools below Root
type Store struct {
	Root   string
	Keep   int
	Logger *slog.Logger
}

// New returns a store keeping keep snapshots per pool
func New(root string, keep int, logger *slog.Logger) *Store {
	if keep < 1 {
		keep = DefaultKeep
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{Root: root, Keep: keep, Logger: logger}
}

// Dir is the directory of a pool
func (s *Store) Dir(pool Pool) string {
	return filepath.Join(s.Root, string(pool))
}

// SnapshotName is the file name of the snapshot at step
func SnapshotName(step int) string {
	return fmt.Sprintf("weights-%d.ckpt", step)
}

// Save writes rec as the newest snapshot of pool, repoints the alias and
// prunes the pool.
func (s *Store) Save(pool Pool, rec *Record) (string, error) {
	dir := s.Dir(pool)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("checkpoint pool %s: %w", pool, err)
	}
	name := SnapshotName(rec.Step)
	path := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".weights-*.tmp")
	if err != nil {
		return "", fmt.Errorf("checkpoint %s: %w", path, err)
	}
	err = Write(tmp, rec)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("checkpoint %s: %w", path, err)
	}

	if err := s.link(dir, name); err != nil {
		return "", fmt.Errorf("checkpoint alias in %s: %w", dir, err)
	}
	if err := s.Prune(pool, s.Keep); err != nil {
		return "", err
	}
	s.Logger.Debug("checkpoint saved", "pool", pool.String(), "step", rec.Step, "path", path)
	return path, nil
}

// link atomically points the alias of dir at target, as a relative symlink
// or, where symlinks are unavailable, as a pointer record.
func (s *Store) link(dir, target string) error {
	tmp := filepath.Join(dir, ".weights.ckpt.link")
	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		if err := os.WriteFile(tmp, []byte(pointerID+target+"\n"), 0o644); err != nil {
			return err
		}
	}
	return os.Rename(tmp, filepath.Join(dir, alias))
}

// Latest resolves the alias of a pool to the snapshot path
func (s *Store) Latest(pool Pool) (string, error) {
	dir := s.Dir(pool)
	link := filepath.Join(dir, alias)
	info, err := os.Lstat(link)
	if err != nil {
		return "", err
	}
	var target string
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err = os.Readlink(link)
		if err != nil {
			return "", err
		}
	} else {
		head, err := os.ReadFile(link)
		if err != nil {
			return "", err
		}
		if !bytes.HasPrefix(head, []byte(pointerID)) {
			return "", fmt.Errorf("%w: alias %s is not a link", ErrCorrupt, link)
		}
		target = strings.TrimSpace(string(head[len(pointerID):]))
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return target, nil
}

// Restore loads the newest snapshot of pool. A pool without an alias yields
// nil and no error, as does an alias whose snapshot is gone; every other
// failure wraps ErrCorrupt.
func (s *Store) Restore(pool Pool) (*Record, error) {
	path, err := s.Latest(pool)
	if errors.Is(err, fs.ErrNotExist) {
		s.Logger.Info("training from scratch", "pool", pool.String())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	rec, err := ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Logger.Warn("checkpoint alias is dangling, training from scratch", "pool", pool.String(), "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	s.Logger.Info("loaded checkpoint", "path", path, "step", rec.Step)
	return rec, nil
}

// List returns the snapshots of a pool ordered by step
func (s *Store) List(pool Pool) ([]Entry, error) {
	dir := s.Dir(pool)
	files, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, f := range files {
		m := snapshotName.FindStringSubmatch(f.Name())
		if m == nil || f.IsDir() {
			continue
		}
		step, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, Entry{Step: step, Path: filepath.Join(dir, f.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// Prune deletes all but the keep highest-step snapshots of a pool. The
// snapshot the alias points at is never deleted.
func (s *Store) Prune(pool Pool, keep int) error {
	if keep < 1 {
		keep = 1
	}
	entries, err := s.List(pool)
	if err != nil {
		return fmt.Errorf("prune %s: %w", pool, err)
	}
	latest, _ := s.Latest(pool)
	for i := 0; i+keep < len(entries); i++ {
		if entries[i].Path == latest {
			continue
		}
		if err := os.Remove(entries[i].Path); err != nil {
			return fmt.Errorf("prune %s: %w", pool, err)
		}
		s.Logger.Debug("checkpoint pruned", "pool", pool.String(), "step", entries[i].Step)
	}
	return nil
}
