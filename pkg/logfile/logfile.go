// Package logfile recognises recorded element logs: which files are logs, and
// which element type a log was collected from.
package logfile

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/containifyci/smartchecker/pkg/memory"
)

const maxLineSize = 1024 * 1024

// DefaultPatterns are the markers that identify the log of each element type.
var DefaultPatterns = map[string]string{
	"FlexiNG": "fsclish",
	"FlexiNS": "COMMAND EXECUTED",
}

// DefaultSuffixes are the file suffixes accepted as logs.
var DefaultSuffixes = []string{".log"}

// Matcher decides whether files are readable logs of a given element type.
type Matcher struct {
	patterns map[string]*regexp.Regexp
	suffixes []string
}

// NewMatcher compiles the element type patterns. Nil arguments fall back to
// DefaultPatterns and DefaultSuffixes.
func NewMatcher(patterns map[string]string, suffixes []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	m := &Matcher{
		patterns: make(map[string]*regexp.Regexp, len(patterns)),
		suffixes: suffixes,
	}
	for netype, expr := range patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for element type %s: %w", netype, err)
		}
		m.patterns[netype] = re
	}
	return m, nil
}

// IsReadableLog reports whether path has a log suffix and can be opened.
func (m *Matcher) IsReadableLog(path string) bool {
	if !m.hasSuffix(path) {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && info.Mode().IsRegular()
}

func (m *Matcher) hasSuffix(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range m.suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// MatchesType reports whether any line of the log carries the marker of
// elementType.
func (m *Matcher) MatchesType(path, elementType string) (bool, error) {
	re, ok := m.patterns[elementType]
	if !ok {
		return false, fmt.Errorf("unknown element type %q", elementType)
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	return memory.WithBufferReturn(memory.ScanBuffer, func(buf []byte) (bool, error) {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(buf, maxLineSize)
		for scanner.Scan() {
			if re.Match(scanner.Bytes()) {
				return true, nil
			}
		}
		return false, scanner.Err()
	})
}

// ElementTypes returns the element types the matcher knows, sorted.
func (m *Matcher) ElementTypes() []string {
	return slices.Sorted(maps.Keys(m.patterns))
}

// TextDetector classifies files as text by sampling their first block.
type TextDetector struct{}

const sniffSize = 512

// IsTextFile reports whether path looks like text: no NUL bytes and at most
// 30% non-printable bytes in the first block. Empty files are text.
func (TextDetector) IsTextFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := memory.GetBuffer(memory.SniffBuffer)
	defer memory.PutBuffer(buf, memory.SniffBuffer)
	n, _ := f.Read(buf[:sniffSize])
	return IsText(buf[:n])
}

// IsText applies the text heuristic to a sample.
func IsText(sample []byte) bool {
	if len(sample) == 0 {
		return true
	}
	nontext := 0
	for i := 0; i < len(sample); {
		b := sample[i]
		if b == 0 {
			return false
		}
		if b >= utf8.RuneSelf {
			r, size := utf8.DecodeRune(sample[i:])
			if r == utf8.RuneError && size == 1 && len(sample)-i >= utf8.UTFMax {
				nontext++
			}
			i += size
			continue
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' && b != '\b' {
			nontext++
		}
		i++
	}
	return float64(nontext)/float64(len(sample)) <= 0.30
}

// ReadLines returns every line of a log file.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return memory.WithBufferReturn(memory.ScanBuffer, func(buf []byte) ([]string, error) {
		var lines []string
		scanner := bufio.NewScanner(f)
		scanner.Buffer(buf, maxLineSize)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		return lines, scanner.Err()
	})
}
