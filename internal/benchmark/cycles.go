package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	cycleStartedMarker   = "Crypto hourly paper cycle started"
	cycleCompletedMarker = "Crypto hourly paper cycle completed"
	processDoneMarker    = "Crypto process complete"
	staleCycleMinutes    = 30.0
)

var (
	logLineRe    = regexp.MustCompile(`^\[([\d\-:\s]+)\]\s(.*)$`)
	cycleCountRe = regexp.MustCompile(`entry=(\d+),\s*no_entry=(\d+),\s*sold=(\d+)`)
)

// LoadRecentCycles reconstructs scheduler cycles from the newest log
// files in logDir, latest first, capped at limit.
func LoadRecentCycles(logDir string, limit int, now time.Time) ([]Cycle, error) {
	if limit <= 0 {
		limit = 20
	}

	files, err := filepath.Glob(filepath.Join(logDir, "crypto_scheduler_*.log"))
	if err != nil || len(files) == 0 {
		return nil, nil
	}
	sort.Strings(files)
	if len(files) > 3 {
		files = files[len(files)-3:]
	}

	var cycles []Cycle
	var current *Cycle

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			m := logLineRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			ts := strings.TrimSpace(m[1])
			msg := strings.TrimSpace(m[2])

			if msg == cycleStartedMarker {
				if current != nil {
					current.Status = "running"
					cycles = append(cycles, *current)
				}
				current = &Cycle{StartedAt: ts, Status: "running"}
				continue
			}
			if current == nil {
				continue
			}

			if strings.Contains(msg, processDoneMarker) {
				if cm := cycleCountRe.FindStringSubmatch(msg); cm != nil {
					current.EntryCount, _ = strconv.Atoi(cm[1])
					current.NoEntryCount, _ = strconv.Atoi(cm[2])
					current.SoldCount, _ = strconv.Atoi(cm[3])
				}
				current.phase3Done = true
				continue
			}

			if msg == cycleCompletedMarker {
				current.EndedAt = ts
				current.Status = "success"
				cycles = append(cycles, *current)
				current = nil
				continue
			}

			// The export step logs its save before the completion marker;
			// treat it as terminal so a freshly generated document does not
			// report its own cycle as still running.
			if strings.HasPrefix(msg, "Saved:") && strings.Contains(msg, "crypto_benchmark_data.json") {
				current.EndedAt = ts
				current.Status = "success"
				cycles = append(cycles, *current)
				current = nil
				continue
			}

			if strings.Contains(msg, "failed with exit code") {
				current.EndedAt = ts
				current.Status = "failed"
				current.Error = msg
				cycles = append(cycles, *current)
				current = nil
				continue
			}
		}
	}
	if current != nil {
		cycles = append(cycles, *current)
	}

	normalizeCycles(cycles, now)

	// latest first
	for i, j := 0, len(cycles)-1; i < j; i, j = i+1, j-1 {
		cycles[i], cycles[j] = cycles[j], cycles[i]
	}
	if len(cycles) > limit {
		cycles = cycles[:limit]
	}
	return cycles, nil
}

// normalizeCycles resolves running entries: superseded ones become
// aborted, the newest running one stays successful if its portfolio
// phase finished, or fails once it is stale.
func normalizeCycles(cycles []Cycle, now time.Time) {
	seenLaterTerminal := false
	nowStr := now.Format("2006-01-02 15:04:05")

	for i := len(cycles) - 1; i >= 0; i-- {
		c := &cycles[i]
		if c.Status == "success" || c.Status == "failed" {
			seenLaterTerminal = true
			continue
		}
		if c.Status != "running" {
			continue
		}

		if seenLaterTerminal {
			c.Status = "aborted"
			if c.EndedAt == "" {
				c.EndedAt = c.StartedAt
			}
			if c.Error == "" {
				c.Error = "Superseded by a later cycle"
			}
			continue
		}

		started, err := time.ParseInLocation("2006-01-02 15:04:05", c.StartedAt, time.Local)
		if err != nil {
			continue
		}
		ageMin := now.Sub(started).Minutes()

		if c.phase3Done {
			c.Status = "success"
			if c.EndedAt == "" {
				c.EndedAt = nowStr
			}
			c.Error = ""
			continue
		}
		if ageMin >= staleCycleMinutes {
			c.Status = "failed"
			if c.EndedAt == "" {
				c.EndedAt = nowStr
			}
			if c.Error == "" {
				c.Error = fmt.Sprintf("No completion log after %d minutes (stale)", int(ageMin))
			}
		}
	}
}
