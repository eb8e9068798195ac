// Package profile reads launch lists from a line-oriented text format:
//
//	# name  velocity  angle  [ax  [ay]]
//	demo    40        3
//	tail    25        40     1.5
//	moon    25        40     0     1.62
//
// Fields are separated by whitespace. Blank lines and anything after '#' are
// ignored. Malformed lines are skipped with a warning.
package profile

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

// Parse reads launches from r. Only read errors are returned.
func Parse(r io.Reader, logger *slog.Logger) ([]projectile.Launch, error) {
	scanner := bufio.NewScanner(r)
	var launches []projectile.Launch
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		l, err := parseFields(fields)
		if err != nil {
			logger.Warn("skipping malformed launch", "line", lineNo, "error", err)
			continue
		}
		launches = append(launches, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading launch profile: %w", err)
	}
	return launches, nil
}

func parseFields(fields []string) (projectile.Launch, error) {
	if len(fields) < 3 || len(fields) > 5 {
		return projectile.Launch{}, fmt.Errorf("want 3-5 fields, got %d", len(fields))
	}

	nums := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return projectile.Launch{}, fmt.Errorf("field %d %q: %w", i+2, f, err)
		}
		nums[i] = v
	}

	l := projectile.Launch{
		Name:              fields[0],
		InitialVelocity:   nums[0],
		AngleOfProjection: nums[1],
	}
	if len(nums) > 2 {
		l.HorizontalAcceleration = nums[2]
	}
	if len(nums) > 3 {
		l.VerticalAcceleration = projectile.Float(nums[3])
	}
	return l, nil
}
