package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidName      = errors.New("invalid document name")
	ErrDocumentNotFound = errors.New("document not found")
)

type DocumentInfo struct {
	Filename  string
	Size      int64
	UpdatedAt time.Time
}

// Library lists and manages rendered documents in one directory
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// List returns the documents newest first. A missing directory is empty.
func (l *Library) List() ([]DocumentInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []DocumentInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	docs := make([]DocumentInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, DocumentInfo{Filename: e.Name(), Size: info.Size(), UpdatedAt: info.ModTime()})
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

// ListSession returns the documents written for one session
func (l *Library) ListSession(sessionID string) ([]DocumentInfo, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}
	prefix := SanitizeName(sessionID) + "__"
	out := make([]DocumentInfo, 0)
	for _, d := range all {
		if strings.HasPrefix(d.Filename, prefix) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Resolve maps a bare file name to its path inside the library. Names that
// would leave the directory are rejected.
func (l *Library) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrDocumentNotFound
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrDocumentNotFound
	}
	return path, nil
}

func (l *Library) Delete(name string) error {
	path, err := l.Resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
