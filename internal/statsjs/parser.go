// Package statsjs reads the js/stats.js files Gatling writes into each run
// directory of its results folder.
package statsjs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// StatsFile is the location of the stats file inside a run directory.
var StatsFile = filepath.Join("js", "stats.js")

var (
	// ErrNoStatsVar is returned when the file has no "var stats =" assignment.
	ErrNoStatsVar = errors.New("stats variable not found")
	// ErrUnbalanced is returned when the object literal is truncated.
	ErrUnbalanced = errors.New("unbalanced stats literal")
)

var statsMarker = []byte("var stats")

// Parse reads a stats.js document and returns the root of its stats tree.
func Parse(r io.Reader) (*models.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	literal, err := extractLiteral(src)
	if err != nil {
		return nil, err
	}

	doc, err := toJSON(literal)
	if err != nil {
		return nil, err
	}

	var root rawNode
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("failed to decode stats literal: %w", err)
	}

	node := root.toNode()
	return &node, nil
}

// ParseFile parses the stats.js file at path.
func ParseFile(path string) (*models.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	node, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return node, nil
}

// ParseRunDir parses the stats of one run directory.
func ParseRunDir(dir string) (*models.Snapshot, error) {
	root, err := ParseFile(filepath.Join(dir, StatsFile))
	if err != nil {
		return nil, err
	}

	info := models.ParseRunID(filepath.Base(dir))
	info.Path = dir

	return &models.Snapshot{
		Run:        info,
		Root:       *root,
		ImportedAt: time.Now(),
	}, nil
}

// IsRunDir reports whether dir contains a stats file.
func IsRunDir(dir string) bool {
	st, err := os.Stat(filepath.Join(dir, StatsFile))
	return err == nil && !st.IsDir()
}

// FindRunDirs lists the run directories directly below a results folder,
// sorted by name.
func FindRunDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if IsRunDir(dir) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// extractLiteral returns the balanced object literal assigned to stats.
func extractLiteral(src []byte) ([]byte, error) {
	idx := bytes.Index(src, statsMarker)
	if idx < 0 {
		return nil, ErrNoStatsVar
	}
	rest := src[idx+len(statsMarker):]
	start := bytes.IndexByte(rest, '{')
	if start < 0 || bytes.IndexByte(rest[:start], '=') < 0 {
		return nil, ErrNoStatsVar
	}
	rest = rest[start:]

	depth := 0
	var quote byte
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[:i+1], nil
			}
		}
	}
	return nil, ErrUnbalanced
}

// toJSON rewrites a JavaScript object literal into JSON: bare identifier
// keys are quoted, single-quoted strings become double-quoted and trailing
// commas are dropped.
func toJSON(literal []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(literal) + len(literal)/8)

	for i := 0; i < len(literal); i++ {
		c := literal[i]
		switch {
		case c == '"' || c == '\'':
			end, err := copyString(&out, literal, i)
			if err != nil {
				return nil, err
			}
			i = end

		case isIdentStart(c):
			j := i
			for j < len(literal) && isIdentPart(literal[j]) {
				j++
			}
			word := literal[i:j]
			if isKey(literal, j) {
				out.WriteByte('"')
				out.Write(word)
				out.WriteByte('"')
			} else {
				out.Write(word)
			}
			i = j - 1

		case c == ',':
			if k := skipSpace(literal, i+1); k < len(literal) && (literal[k] == '}' || literal[k] == ']') {
				continue
			}
			out.WriteByte(c)

		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes(), nil
}

// copyString writes the string literal starting at i as a JSON string and
// returns the index of its closing quote.
func copyString(out *bytes.Buffer, src []byte, i int) (int, error) {
	quote := src[i]
	if quote == '"' {
		for j := i + 1; j < len(src); j++ {
			switch src[j] {
			case '\\':
				j++
			case '"':
				out.Write(src[i : j+1])
				return j, nil
			}
		}
		return 0, ErrUnbalanced
	}

	var sb []byte
	for j := i + 1; j < len(src); j++ {
		switch c := src[j]; c {
		case '\\':
			if j+1 < len(src) && src[j+1] == '\'' {
				sb = append(sb, '\'')
				j++
				continue
			}
			sb = append(sb, c)
			if j+1 < len(src) {
				sb = append(sb, src[j+1])
				j++
			}
		case '"':
			sb = append(sb, '\\', '"')
		case '\'':
			out.WriteByte('"')
			out.Write(sb)
			out.WriteByte('"')
			return j, nil
		default:
			sb = append(sb, c)
		}
	}
	return 0, ErrUnbalanced
}

func isKey(src []byte, j int) bool {
	k := skipSpace(src, j)
	return k < len(src) && src[k] == ':'
}

func skipSpace(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
