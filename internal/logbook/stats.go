package logbook

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"supportbot/internal/domain"
)

// categoryKeywords maps coarse question categories to trigger words.
// First match in this order wins.
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"billing", []string{"price", "pricing", "fee", "fees", "refund", "payment", "invoice", "subscription"}},
	{"troubleshooting", []string{"issue", "bug", "error", "crash", "broken", "fail", "not working"}},
	{"how-to", []string{"how", "setup", "install", "configure", "guide"}},
}

// Categorize assigns a coarse category to a question for stats grouping.
func Categorize(question string) string {
	q := strings.ToLower(question)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(q, kw) {
				return c.name
			}
		}
	}
	return "general"
}

// Stats scans the log and aggregates records with a timestamp at or after
// since. A zero since means the whole log. A missing log file is an empty
// log, not an error.
func (l *Logger) Stats(since time.Time) (*domain.Stats, error) {
	return ReadStats(l.path, since)
}

// ReadStats aggregates a log file without opening it for writing, so it
// can run against a live bot's log from another process.
func ReadStats(path string, since time.Time) (*domain.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.Stats{}, nil
		}
		return nil, fmt.Errorf("cannot open interaction log: %w", err)
	}
	defer f.Close()

	stats := &domain.Stats{}
	categories := make(map[string]int)
	var latencySum int64
	var latencyCount int

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.InteractionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// A torn or corrupt line must not take stats down.
			continue
		}
		if !since.IsZero() && rec.Timestamp.Before(since) {
			continue
		}

		stats.Total++
		switch rec.Outcome {
		case domain.OutcomeSuccess:
			stats.Success++
		case domain.OutcomeBlocked:
			stats.Blocked++
		case domain.OutcomeFallback:
			stats.Fallbacks++
		case domain.OutcomeError:
			stats.Errors++
		}
		if rec.Category != "" {
			categories[rec.Category]++
		}
		if rec.LatencyMs > 0 {
			latencySum += rec.LatencyMs
			latencyCount++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cannot scan interaction log: %w", err)
	}

	if latencyCount > 0 {
		stats.AvgLatencyMs = float64(latencySum) / float64(latencyCount)
	}

	for name, count := range categories {
		stats.TopCategories = append(stats.TopCategories, domain.CategoryCount{Category: name, Count: count})
	}
	sort.Slice(stats.TopCategories, func(i, j int) bool {
		a, b := stats.TopCategories[i], stats.TopCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	if len(stats.TopCategories) > 5 {
		stats.TopCategories = stats.TopCategories[:5]
	}

	return stats, nil
}
