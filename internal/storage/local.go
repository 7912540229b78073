package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Local struct {
	BaseDir string
}

func NewLocal(baseDir string) *Local {
	return &Local{BaseDir: baseDir}
}

func (l *Local) Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error) {
	_ = ctx

	key := objectKey(in)
	dstPath := filepath.Join(l.BaseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return PutResult{}, err
	}

	f, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return PutResult{}, err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return PutResult{}, err
	}

	return PutResult{Key: key, URL: "file://" + filepath.ToSlash(dstPath)}, nil
}

func (l *Local) String() string { return fmt.Sprintf("local(%s)", l.BaseDir) }

// objectKey is <prefix>/<utc timestamp>-<uuid><ext>. Path separators and
// dot segments in the prefix are flattened so callers cannot escape the
// archive root.
func objectKey(in PutInput) string {
	name := time.Now().UTC().Format("20060102T150405.000Z") + "-" + uuid.NewString() + safeExt(in.Ext)
	prefix := sanitizePrefix(in.Prefix)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func sanitizePrefix(p string) string {
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		seg = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
				return r
			default:
				return '_'
			}
		}, seg)
		if strings.Trim(seg, "_") == "" {
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "/")
}

func safeExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".json", ".txt":
		return strings.ToLower(ext)
	default:
		return ""
	}
}
