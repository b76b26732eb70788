package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/idle-empire/internal/realm"
)

// Archive appends purged event instances to daily zstd-compressed JSONL
// files named events-YYYY-MM-DD.jsonl.zst. Each call writes one zstd frame;
// concatenated frames decode as a single stream.
type Archive struct {
	dir string

	mu sync.Mutex
}

// NewArchive returns an archive rooted at dir.
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// Path returns the archive file for day.
func (a *Archive) Path(day time.Time) string {
	return filepath.Join(a.dir, fmt.Sprintf("events-%s.jsonl.zst", day.UTC().Format("2006-01-02")))
}

// Write appends batch to the file for day.
func (a *Archive) Write(day time.Time, batch []realm.EventInstance) error {
	if len(batch) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(a.Path(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(enc, 64*1024)
	for _, e := range batch {
		b, err := json.Marshal(e)
		if err != nil {
			enc.Close()
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		w.Write(b)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadArchive decodes every event instance in an archive file.
func ReadArchive(path string) ([]realm.EventInstance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []realm.EventInstance
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e realm.EventInstance
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
