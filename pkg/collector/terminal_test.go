package collector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrennan/chronicle/pkg/types"
)

func TestShouldIgnoreCommand(t *testing.T) {
	assert.True(t, shouldIgnoreCommand("ls -la"))
	assert.True(t, shouldIgnoreCommand("cd /tmp"))
	assert.False(t, shouldIgnoreCommand("go test ./..."))
}

func TestParseBashHistory_ExtendedFormat(t *testing.T) {
	content := "#1700000000\ngit status\nls\n#1700000010\ngo build ./...\n"
	commands := parseBashHistory(content)

	require.Len(t, commands, 2)
	assert.Equal(t, "git status", commands[0].command)
	assert.Equal(t, int64(1700000000), commands[0].timestamp.Unix())
	assert.False(t, commands[0].bestEffortTime)
	assert.Equal(t, "go build ./...", commands[1].command)
}

func TestParseBashHistory_SimpleFormatIsBestEffort(t *testing.T) {
	content := "git status\nls\ngo build\n"
	commands := parseBashHistory(content)

	require.Len(t, commands, 2)
	for _, c := range commands {
		assert.True(t, c.bestEffortTime)
	}
}

func TestParseZshHistory_ExtendedFormat(t *testing.T) {
	content := ": 1700000000:0;git commit -am test\nls\n"
	commands := parseZshHistory(content)

	require.Len(t, commands, 1)
	assert.Equal(t, "git commit -am test", commands[0].command)
	assert.Equal(t, int64(1700000000), commands[0].timestamp.Unix())
	assert.False(t, commands[0].bestEffortTime)
}

func TestTerminal_Poll_DedupsWithinWindowAndPrunesAfter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bash_history")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	term := NewTerminal(map[string]string{"bash": path}, 50*time.Millisecond, zerolog.Nop())
	term.seedPositions()

	require.NoError(t, appendFile(path, "#1700000000\ngit status\n"))

	var events []types.Event
	sink := func(e types.Event) { events = append(events, e) }

	term.poll(sink)
	require.Len(t, events, 1)

	// The offset has advanced, so a second poll with no new writes yields
	// nothing.
	term.poll(sink)
	assert.Len(t, events, 1)

	// Re-reading the same bytes inside the dedup window is suppressed by
	// the seen-commands set.
	term.filePositions[path] = 0
	term.poll(sink)
	assert.Len(t, events, 1)

	// Once the key is older than 2×pollInterval it is pruned, and the same
	// bytes are reported again.
	time.Sleep(150 * time.Millisecond)
	term.filePositions[path] = 0
	term.poll(sink)
	assert.Len(t, events, 2)
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

func TestTerminal_Event_ExtractsReferencedFilesAndBestEffortFlag(t *testing.T) {
	term := NewTerminal(nil, time.Second, zerolog.Nop())
	ev := term.event(shellCommand{
		command:        "vim /home/user/project/main.go",
		timestamp:      time.Now(),
		shell:          "bash",
		bestEffortTime: true,
	})

	assert.Equal(t, types.EventShellCommand, ev.EventType)
	assert.Contains(t, ev.Metadata["referenced_files"], "/home/user/project/main.go")
	assert.Equal(t, "true", ev.Metadata["best_effort_time"])
}
