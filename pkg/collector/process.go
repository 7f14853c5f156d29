package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/tbrennan/chronicle/pkg/types"
)

// ignoreProcesses are system/shell-chrome process names that carry no
// signal about what the user is doing.
var ignoreProcesses = []string{
	"systemd", "init", "kthreadd", "migration", "watchdog",
	"launchd", "kernel_task", "windowserver", "loginwindow",
	"system", "csrss", "smss", "wininit", "services", "lsass",
	"svchost", "dwm", "explorer", "runtimebroker", "shellexperiencehost",
}

// processCategories classifies a process name for inference hints.
var processCategories = map[string][]string{
	"browser":       {"chrome", "firefox", "safari", "edge", "brave", "opera", "chromium"},
	"editor":        {"code", "vim", "nvim", "emacs", "sublime", "atom", "notepad++", "idea", "pycharm", "webstorm"},
	"terminal":      {"terminal", "iterm", "alacritty", "kitty", "gnome-terminal", "konsole", "wt", "powershell", "cmd"},
	"communication": {"slack", "discord", "teams", "zoom", "skype", "telegram", "signal"},
	"productivity":  {"word", "excel", "powerpoint", "libreoffice", "notion", "obsidian"},
	"development":   {"docker", "node", "python", "java", "go", "rust", "cargo", "npm", "pip"},
}

func categorizeProcess(name string) string {
	lower := strings.ToLower(name)
	// Categories are tried in a fixed order so a name matching several of
	// them ("google chrome" also contains "go") always gets the same one.
	for _, category := range []string{"browser", "editor", "terminal", "communication", "productivity", "development"} {
		for _, n := range processCategories[category] {
			if strings.Contains(lower, n) {
				return category
			}
		}
	}
	return ""
}

type processInfo struct {
	pid        int32
	name       string
	cpuPercent float64
	memPercent float32
	cmdline    string
	cwd        string
}

func shouldTrackProcess(info processInfo) bool {
	lower := strings.ToLower(info.name)
	for _, ignored := range ignoreProcesses {
		if strings.Contains(lower, ignored) {
			return false
		}
	}
	if categorizeProcess(info.name) != "" {
		return true
	}
	return info.cpuPercent > 1.0 || float64(info.memPercent) > 1.0
}

// Process samples running processes and tracks application usage:
// start/active/end events keyed on a set of tracked, categorizable, or
// resource-heavy processes.
type Process struct {
	pollInterval time.Duration
	log          zerolog.Logger

	seen   map[int32]processInfo
}

// NewProcess constructs a process collector.
func NewProcess(pollInterval time.Duration, log zerolog.Logger) *Process {
	return &Process{
		pollInterval: pollInterval,
		log:          log,
		seen:         make(map[int32]processInfo),
	}
}

func (p *Process) Name() string { return "process" }

func (p *Process) Run(ctx context.Context, sink Sink) error {
	// cpu_percent on first call always returns 0; warm every process up
	// once before the real sampling loop starts, matching the original
	// agent's start() warm-up pass.
	if procs, err := process.ProcessesWithContext(ctx); err == nil {
		for _, proc := range procs {
			_, _ = proc.CPUPercentWithContext(ctx)
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(100 * time.Millisecond):
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		p.poll(ctx, sink)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Process) poll(ctx context.Context, sink Sink) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to list processes")
		return
	}

	current := make(map[int32]bool)

	for _, proc := range procs {
		info, ok := p.inspect(ctx, proc)
		if !ok || !shouldTrackProcess(info) {
			continue
		}
		current[info.pid] = true

		_, known := p.seen[info.pid]
		switch {
		case !known:
			p.seen[info.pid] = info
			sink(p.event(types.EventProcessStart, info))
		case info.cpuPercent > 5.0:
			sink(p.event(types.EventProcessActive, info))
			p.seen[info.pid] = info
		}
	}

	for pid, info := range p.seen {
		if !current[pid] {
			sink(p.event(types.EventProcessEnd, info))
			delete(p.seen, pid)
		}
	}
}

func (p *Process) inspect(ctx context.Context, proc *process.Process) (processInfo, bool) {
	name, err := proc.NameWithContext(ctx)
	if err != nil || name == "" {
		return processInfo{}, false
	}

	cpuPercent, _ := proc.CPUPercentWithContext(ctx)
	memPercent, _ := proc.MemoryPercentWithContext(ctx)

	cmdline := ""
	if parts, err := proc.CmdlineSliceWithContext(ctx); err == nil {
		cmdline = strings.Join(parts, " ")
		if len(cmdline) > 200 {
			cmdline = cmdline[:200]
		}
	}

	cwd, _ := proc.CwdWithContext(ctx)

	return processInfo{
		pid:        proc.Pid,
		name:       name,
		cpuPercent: cpuPercent,
		memPercent: memPercent,
		cmdline:    cmdline,
		cwd:        cwd,
	}, true
}

func (p *Process) event(eventType types.EventType, info processInfo) types.Event {
	verb := map[types.EventType]string{
		types.EventProcessStart:  "start",
		types.EventProcessActive: "active",
		types.EventProcessEnd:    "end",
	}[eventType]

	return types.Event{
		ID:          uuid.NewString(),
		EventType:   eventType,
		Timestamp:   time.Now(),
		Source:      p.Name(),
		Subject:     info.name,
		Description: fmt.Sprintf("Process %s: %s", verb, info.name),
		ProcessName: info.name,
		Metadata: map[string]string{
			"category":    categorizeProcess(info.name),
			"pid":         strconv.Itoa(int(info.pid)),
			"cpu_percent": strconv.FormatFloat(info.cpuPercent, 'f', 2, 64),
			"cmdline":     info.cmdline,
			"cwd":         info.cwd,
		},
	}
}
