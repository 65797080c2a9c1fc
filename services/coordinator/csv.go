package coordinator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"scaletrack/internal/database"
	"scaletrack/models"
)

// CSV line format, fixed column order:
//
//	timestamp,weight,fat,water,muscle,lbw,bone,waist,hip,comment
//
// The timestamp uses dateTimeFormat. The comment column is written even
// when empty (trailing comma stays), and is optional on import.

// Export streams the cached measurement list of the selected user to w.
func (c *Coordinator) Export(ctx context.Context, w io.Writer) error {
	c.mu.Lock()
	list := append([]models.Measurement(nil), c.cached...)
	c.mu.Unlock()

	bw := bufio.NewWriter(w)
	for _, m := range list {
		fields := []string{
			m.MeasuredAt.Format(dateTimeFormat),
			formatFloat(m.Weight),
			formatFloat(m.Fat),
			formatFloat(m.Water),
			formatFloat(m.Muscle),
			formatFloat(m.LBW),
			formatFloat(m.Bone),
			formatFloat(m.Waist),
			formatFloat(m.Hip),
			m.Comment,
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return fmt.Errorf("write export line: %w", err)
		}
	}
	return bw.Flush()
}

// ExportFile writes the export to a file on the coordinator's filesystem.
func (c *Coordinator) ExportFile(ctx context.Context, name string) error {
	f, err := c.fs.Create(name)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	return c.Export(ctx, f)
}

// Import reads CSV lines from r and stores every row for the currently
// selected user, regardless of any user reference in the file. The first
// malformed row aborts the whole call with an ImportError; rows inserted
// before it remain in the store. Rows whose (user, timestamp) pair already
// exists are skipped. One broadcast follows a successful import.
func (c *Coordinator) Import(ctx context.Context, r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	selected := c.selectedUserLocked(ctx)
	if selected.ID == models.NoUserID {
		return ErrNoSelectedUser
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		m, err := parseLine(scanner.Text())
		if err != nil {
			return &ImportError{Line: line, Err: err}
		}
		m.UserID = selected.ID

		_, err = c.measurements.GetByTimestamp(ctx, m.MeasuredAt, m.UserID)
		if err == nil {
			continue // duplicate timestamp, keep the stored row
		}
		if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("uniqueness check at line %d: %w", line, err)
		}

		if err := c.measurements.Insert(ctx, m); err != nil {
			return fmt.Errorf("insert line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read import data: %w", err)
	}

	c.refreshLocked(ctx)
	c.broadcastLocked()
	return nil
}

// ImportFile imports a file from the coordinator's filesystem.
func (c *Coordinator) ImportFile(ctx context.Context, name string) error {
	f, err := c.fs.Open(name)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return c.Import(ctx, f)
}

func parseLine(line string) (*models.Measurement, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 9 {
		return nil, fmt.Errorf("%w: got %d fields, need at least 9", ErrBadColumnCount, len(fields))
	}

	measuredAt, err := time.Parse(dateTimeFormat, fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadDate, fields[0])
	}

	var m models.Measurement
	m.MeasuredAt = measuredAt
	for i, dst := range []*float32{&m.Weight, &m.Fat, &m.Water, &m.Muscle, &m.LBW, &m.Bone, &m.Waist, &m.Hip} {
		v, err := strconv.ParseFloat(fields[i+1], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadNumber, fields[i+1])
		}
		*dst = float32(v)
	}
	if len(fields) >= 10 {
		// Comments are unquoted; a comma inside one produces extra fields,
		// which all belong to the comment.
		m.Comment = strings.Join(fields[9:], ",")
	}
	return &m, nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
