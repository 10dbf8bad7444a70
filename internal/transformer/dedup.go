package transformer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"csvformatter/internal/table"
)

// Dedup policies pick the surviving row among duplicates:
//
//   - "keep-first"   : keep the earliest occurrence (default)
//   - "keep-last"    : keep the latest occurrence
//   - "most-complete": keep the row with the most non-empty cells;
//     ties break by keep-last
const (
	DedupKeepFirst    = "keep-first"
	DedupKeepLast     = "keep-last"
	DedupMostComplete = "most-complete"
)

// ParseDedupPolicy validates a dedup policy name; empty means keep-first.
func ParseDedupPolicy(s string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case "":
		return DedupKeepFirst, nil
	case DedupKeepFirst, DedupKeepLast, DedupMostComplete:
		return p, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q (want keep-first, keep-last, or most-complete)", s)
	}
}

// Dedup collapses rows that share a key. The key is made of the cells at
// keys (0-based), or of the whole row when keys is empty. Survivors keep
// their relative input order.
func Dedup(t table.Table, keys []int, policy string) table.Table {
	if t.Len() < 2 {
		return t
	}

	type slot struct {
		index int
		score int
	}
	winners := make(map[xxh3.Uint128]slot, t.Len())

	// Cells are length-prefixed so no cell content can shift a boundary.
	var buf []byte
	appendCell := func(c string) {
		buf = strconv.AppendInt(buf, int64(len(c)), 10)
		buf = append(buf, ':')
		buf = append(buf, c...)
	}
	keyOf := func(row []string) xxh3.Uint128 {
		buf = buf[:0]
		if len(keys) == 0 {
			for _, c := range row {
				appendCell(c)
			}
		} else {
			for _, k := range keys {
				c := ""
				if k < len(row) {
					c = row[k]
				}
				appendCell(c)
			}
		}
		return xxh3.Hash128(buf)
	}

	for i, row := range t.Rows {
		key := keyOf(row)
		prev, exists := winners[key]
		switch policy {
		case DedupKeepLast:
			winners[key] = slot{index: i}
		case DedupMostComplete:
			s := slot{index: i, score: filled(row)}
			if !exists || s.score >= prev.score {
				winners[key] = s
			}
		default:
			if !exists {
				winners[key] = slot{index: i}
			}
		}
	}

	indexes := make([]int, 0, len(winners))
	for _, s := range winners {
		indexes = append(indexes, s.index)
	}
	sort.Ints(indexes)
	rows := make([][]string, len(indexes))
	for j, idx := range indexes {
		rows[j] = t.Rows[idx]
	}
	return t.WithRows(rows)
}

func filled(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
