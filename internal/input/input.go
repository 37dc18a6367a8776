// Package input reads the list of game titles to look up.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/j-veylop/mass-rtp-search/internal/logger"
	"github.com/j-veylop/mass-rtp-search/internal/models"
)

const maxLineSize = 1 << 20

// ReadFile reads one game title per line from path.
func ReadFile(path string) ([]models.Game, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close input file", "error", err)
		}
	}()

	games, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return games, nil
}

// Read parses titles from r. Blank lines are skipped and surrounding
// whitespace is trimmed. Index numbers the kept titles from zero. Input with
// no titles yields an empty slice.
func Read(r io.Reader) ([]models.Game, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	games := []models.Game{}
	for scanner.Scan() {
		title := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if title == "" {
			continue
		}
		games = append(games, models.Game{Title: title, Index: len(games)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return games, nil
}
