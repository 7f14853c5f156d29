package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbrennan/chronicle/pkg/types"
)

var ignoreCommands = map[string]bool{
	"ls": true, "cd": true, "pwd": true, "clear": true, "exit": true,
	"history": true, "ll": true, "la": true, "l": true, ".": true, "..": true,
}

var zshExtendedPattern = regexp.MustCompile(`^: (\d+):\d+;(.+)$`)

type shellCommand struct {
	command       string
	timestamp     time.Time
	shell         string
	bestEffortTime bool
}

func shouldIgnoreCommand(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(fields[0]))
	return ignoreCommands[base]
}

// Terminal tails shell history files (bash/zsh) and emits shell.command
// events for new entries, parsing the extended timestamped format where
// available and falling back to "now" otherwise.
type Terminal struct {
	historyPaths map[string]string // shell -> path
	pollInterval time.Duration
	log          zerolog.Logger

	filePositions map[string]int64
	seenCommands  map[string]time.Time // dedup key -> time observed
}

// NewTerminal constructs a terminal collector over the given shell
// history paths (keys are "bash", "zsh").
func NewTerminal(historyPaths map[string]string, pollInterval time.Duration, log zerolog.Logger) *Terminal {
	return &Terminal{
		historyPaths:  historyPaths,
		pollInterval:  pollInterval,
		log:           log,
		filePositions: make(map[string]int64),
		seenCommands:  make(map[string]time.Time),
	}
}

func (t *Terminal) Name() string { return "terminal" }

func (t *Terminal) Run(ctx context.Context, sink Sink) error {
	t.seedPositions()

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		t.poll(sink)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// seedPositions sets each history file's starting offset to its current
// size so only commands run after the collector starts are reported.
func (t *Terminal) seedPositions() {
	for shell, path := range t.historyPaths {
		if info, err := os.Stat(path); err == nil {
			t.filePositions[path] = info.Size()
			t.log.Info().Str("shell", shell).Str("path", path).Msg("monitoring shell history")
		}
	}
}

func (t *Terminal) poll(sink Sink) {
	now := time.Now()
	// Dedup keys only need to survive long enough to cover two poll
	// periods of overlap; older entries are pruned so the set cannot
	// grow without bound over a long-running daemon.
	cutoff := now.Add(-2 * t.pollInterval)
	for key, seenAt := range t.seenCommands {
		if seenAt.Before(cutoff) {
			delete(t.seenCommands, key)
		}
	}

	for shell, path := range t.historyPaths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		commands := t.readNew(shell, path, info.Size())
		for _, cmd := range commands {
			key := fmt.Sprintf("%s:%s", cmd.timestamp.Format(time.RFC3339Nano), truncate(cmd.command, 100))
			if _, seen := t.seenCommands[key]; seen {
				continue
			}
			t.seenCommands[key] = now
			sink(t.event(cmd))
		}
	}
}

func (t *Terminal) readNew(shell, path string, currentSize int64) []shellCommand {
	lastPos := t.filePositions[path]
	if currentSize < lastPos {
		lastPos = 0
	}
	if currentSize == lastPos {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		t.log.Debug().Err(err).Str("path", path).Msg("error reading history file")
		return nil
	}
	defer f.Close()

	if _, err := f.Seek(lastPos, 0); err != nil {
		return nil
	}

	buf := make([]byte, currentSize-lastPos)
	n, _ := f.Read(buf)
	t.filePositions[path] = lastPos + int64(n)

	content := string(buf[:n])
	switch shell {
	case "bash":
		return parseBashHistory(content)
	case "zsh":
		return parseZshHistory(content)
	default:
		return nil
	}
}

func parseBashHistory(content string) []shellCommand {
	var commands []shellCommand
	lines := strings.Split(content, "\n")

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		if strings.HasPrefix(line, "#") && isAllDigits(line[1:]) {
			if sec, err := strconv.ParseInt(line[1:], 10, 64); err == nil {
				if i+1 < len(lines) {
					cmd := strings.TrimSpace(lines[i+1])
					if cmd != "" && !shouldIgnoreCommand(cmd) {
						commands = append(commands, shellCommand{
							command:   cmd,
							timestamp: time.Unix(sec, 0),
							shell:     "bash",
						})
					}
					i += 2
					continue
				}
			}
		}

		if line != "" && !strings.HasPrefix(line, "#") && !shouldIgnoreCommand(line) {
			commands = append(commands, shellCommand{
				command:        line,
				timestamp:      time.Now(),
				shell:          "bash",
				bestEffortTime: true,
			})
		}
		i++
	}
	return commands
}

func parseZshHistory(content string) []shellCommand {
	var commands []shellCommand
	lines := strings.Split(content, "\n")

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if match := zshExtendedPattern.FindStringSubmatch(line); match != nil {
			if sec, err := strconv.ParseInt(match[1], 10, 64); err == nil {
				cmd := match[2]
				if !shouldIgnoreCommand(cmd) {
					commands = append(commands, shellCommand{
						command:   cmd,
						timestamp: time.Unix(sec, 0),
						shell:     "zsh",
					})
				}
			}
			continue
		}

		if !shouldIgnoreCommand(line) {
			commands = append(commands, shellCommand{
				command:        line,
				timestamp:      time.Now(),
				shell:          "zsh",
				bestEffortTime: true,
			})
		}
	}
	return commands
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (t *Terminal) event(cmd shellCommand) types.Event {
	var referencedFiles []string
	for _, part := range strings.Fields(cmd.command) {
		if strings.Contains(part, "/") || strings.Contains(part, "\\") {
			referencedFiles = append(referencedFiles, part)
			if len(referencedFiles) == 5 {
				break
			}
		}
	}

	metadata := map[string]string{
		"shell":             cmd.shell,
		"referenced_files":  strings.Join(referencedFiles, ","),
		"command_length":    strconv.Itoa(len(cmd.command)),
	}
	if cmd.bestEffortTime {
		metadata["best_effort_time"] = "true"
	}

	return types.Event{
		ID:          uuid.NewString(),
		EventType:   types.EventShellCommand,
		Timestamp:   cmd.timestamp,
		Source:      t.Name(),
		Subject:     truncate(cmd.command, 200),
		Description: fmt.Sprintf("Shell command (%s): %s", cmd.shell, truncate(cmd.command, 50)),
		Metadata:    metadata,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
