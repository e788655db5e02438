// Package knowledge loads the verified corpus of Huánuco cultural elements and
// renders it as few-shot exemplars for the analysis prompt.
package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/logging"
	"github.com/ppiankov/cultura/internal/model"
)

// Source supplies the verified corpus. Implementations never fail: an
// unavailable corpus is reported as empty.
type Source interface {
	Elements() []model.VerifiedElement
}

// Loader reads the corpus file on every call
type Loader struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex // serializes Append
}

var _ Source = (*Loader)(nil)

// NewLoader creates a loader for the corpus file at path
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{
		path:   filepath.Clean(path),
		logger: logging.OrNop(logger),
	}
}

// Path returns the corpus file path
func (l *Loader) Path() string {
	return l.path
}

// Elements implements Source
func (l *Loader) Elements() []model.VerifiedElement {
	return l.LoadVerifiedElements()
}

// LoadVerifiedElements reads the corpus. A missing or corrupt file yields an
// empty slice and a warning; the pipeline keeps running in degraded mode.
func (l *Loader) LoadVerifiedElements() []model.VerifiedElement {
	elements, err := l.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("corpus file not found, running without local knowledge",
				zap.String("path", l.path))
		} else {
			l.logger.Warn("corpus unreadable, running without local knowledge",
				zap.String("path", l.path), zap.Error(err))
		}
		return []model.VerifiedElement{}
	}
	return elements
}

// LoadFewShotExamples renders up to maxCount corpus exemplars
func (l *Loader) LoadFewShotExamples(maxCount int) string {
	return FewShotExamples(l.LoadVerifiedElements(), maxCount)
}

func (l *Loader) read() ([]model.VerifiedElement, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	var elements []model.VerifiedElement
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	if elements == nil {
		elements = []model.VerifiedElement{}
	}
	return elements, nil
}

// Append adds element to the corpus unless an element with the same title is
// already present. It reports whether the file changed. A missing corpus file
// is created; a corrupt one is left untouched and reported as an error.
func (l *Loader) Append(element model.VerifiedElement) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elements, err := l.read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
		elements = []model.VerifiedElement{}
	}

	for _, existing := range elements {
		if existing.Title == element.Title {
			l.logger.Info("element already in corpus", zap.String("title", element.Title))
			return false, nil
		}
	}

	elements = append(elements, element)
	if err := l.write(elements); err != nil {
		return false, err
	}

	l.logger.Info("element appended to corpus",
		zap.String("title", element.Title), zap.Int("size", len(elements)))
	return true, nil
}

func (l *Loader) write(elements []model.VerifiedElement) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(elements); err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace corpus: %w", err)
	}
	return nil
}
