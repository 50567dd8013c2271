package store

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/robertmeta/alist-cli/model"
)

// offsetPattern matches offset strings like "7d", "2w", "3m", "1y"
var offsetPattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// Offset is a calendar offset. Months and years are calendar units, not
// fixed-length durations.
type Offset struct {
	Years, Months, Days int
}

// ParseOffset parses an offset string like "7d", "2w", "3m", "1y".
//
// Supported units:
//   - d: days
//   - w: weeks (7 days)
//   - m: calendar months
//   - y: calendar years
func ParseOffset(s string) (Offset, error) {
	if s == "" {
		return Offset{}, fmt.Errorf("offset string is empty")
	}

	matches := offsetPattern.FindStringSubmatch(s)
	if matches == nil {
		return Offset{}, fmt.Errorf("invalid offset format: %s (expected format: <number><unit>, e.g., 7d, 2w, 3m, 1y)", s)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil || num < 0 {
		return Offset{}, fmt.Errorf("invalid number in offset: %s", matches[1])
	}

	switch matches[2] {
	case "d":
		return Offset{Days: num}, nil
	case "w":
		return Offset{Days: num * 7}, nil
	case "m":
		return Offset{Months: num}, nil
	case "y":
		return Offset{Years: num}, nil
	default:
		return Offset{}, fmt.Errorf("invalid offset unit: %s (expected d, w, m, or y)", matches[2])
	}
}

// SinceDate converts a "since" string to a calendar day. It accepts either an
// absolute date ("2025-01-01") or an offset ("7d") counted back from today.
func SinceDate(since string, today model.Date) (model.Date, error) {
	if d, err := model.ParseDate(since); err == nil {
		return d, nil
	}
	off, err := ParseOffset(since)
	if err != nil {
		return model.Date{}, err
	}
	return today.AddDate(-off.Years, -off.Months, -off.Days), nil
}

// BuildQueryOptions constructs QueryOptions from CLI flags.
func BuildQueryOptions(limit, offset int, flaggedOnly bool, since string, today model.Date) (QueryOptions, error) {
	if limit < 0 || offset < 0 {
		return QueryOptions{}, fmt.Errorf("limit and offset must not be negative")
	}

	opts := QueryOptions{
		Limit:       limit,
		Offset:      offset,
		FlaggedOnly: flaggedOnly,
	}

	// Parse since offset if provided
	if since != "" {
		d, err := SinceDate(since, today)
		if err != nil {
			return opts, fmt.Errorf("failed to parse --since flag: %w", err)
		}
		opts.Since = &d
	}

	return opts, nil
}
