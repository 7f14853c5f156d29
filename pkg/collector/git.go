package collector

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbrennan/chronicle/pkg/types"
)

const gitCommandTimeout = 10 * time.Second

// repoState tracks the last-observed state of a single repository so the
// git collector can diff against it on the next poll.
type repoState struct {
	branch         string
	headCommit     string
	lastCommitTime time.Time
	commitCount    int
	known          bool
}

// Git polls discovered git repositories for branch switches and new
// commits. Discovery walks the configured watch roots plus two levels of
// children, skipping dotfiles, matching the shallow scan the original
// agent performed to bound the cost of a poll.
type Git struct {
	watchPaths   []string
	pollInterval time.Duration
	log          zerolog.Logger

	states map[string]*repoState
}

// NewGit constructs a git collector over the given watch roots.
func NewGit(watchPaths []string, pollInterval time.Duration, log zerolog.Logger) *Git {
	return &Git{
		watchPaths:   watchPaths,
		pollInterval: pollInterval,
		log:          log,
		states:       make(map[string]*repoState),
	}
}

func (g *Git) Name() string { return "git" }

func (g *Git) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	g.poll(ctx, sink)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			g.poll(ctx, sink)
		}
	}
}

func (g *Git) poll(ctx context.Context, sink Sink) {
	for _, repo := range g.discoverRepos() {
		g.pollRepo(ctx, repo, sink)
	}
}

// discoverRepos walks each watch root plus one child level and one
// grandchild level looking for directories containing .git.
func (g *Git) discoverRepos() []string {
	var repos []string
	seen := make(map[string]bool)

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			if !seen[dir] {
				seen[dir] = true
				repos = append(repos, dir)
			}
			return
		}
		if depth <= 0 {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			walk(filepath.Join(dir, entry.Name()), depth-1)
		}
	}

	for _, root := range g.watchPaths {
		walk(root, 2)
	}
	return repos
}

func (g *Git) pollRepo(ctx context.Context, repo string, sink Sink) {
	branch, err := g.runGit(ctx, repo, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return
	}
	branch = strings.TrimSpace(branch)

	head, err := g.runGit(ctx, repo, "rev-parse", "HEAD")
	if err != nil {
		return
	}
	head = strings.TrimSpace(head)

	state, known := g.states[repo]
	if !known {
		state = &repoState{}
		g.states[repo] = state
	}

	if known && state.branch != "" && branch != state.branch {
		sink(types.Event{
			ID:          uuid.NewString(),
			EventType:   types.EventGitBranchSwitch,
			Timestamp:   time.Now(),
			Source:      g.Name(),
			Subject:     branch,
			Repository:  repo,
			Description: "Switched branch from " + state.branch + " to " + branch,
			Metadata: map[string]string{
				"previous_branch": state.branch,
			},
		})
	}

	if state.known && head != state.headCommit {
		g.emitCommits(ctx, repo, state.headCommit, head, sink)
	}

	state.branch = branch
	state.headCommit = head
	state.known = true
}

// emitCommits logs the range oldHead..HEAD, newest first, and emits one
// git.commit event per entry (bounded to the most recent 10 by the log
// call itself).
func (g *Git) emitCommits(ctx context.Context, repo, oldHead, newHead string, sink Sink) {
	out, err := g.runGit(ctx, repo, "log", `--format=%H|%s|%an|%cI`, "-n", "10", oldHead+".."+newHead)
	if err != nil || strings.TrimSpace(out) == "" {
		return
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for _, line := range lines {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		hash, subject, author, commitTimeStr := parts[0], parts[1], parts[2], parts[3]
		commitTime, err := time.Parse(time.RFC3339, commitTimeStr)
		if err != nil {
			commitTime = time.Now()
		}

		shortHash := hash
		if len(shortHash) > 12 {
			shortHash = shortHash[:12]
		}

		sink(types.Event{
			ID:          uuid.NewString(),
			EventType:   types.EventGitCommit,
			Timestamp:   commitTime,
			Source:      g.Name(),
			Subject:     shortHash,
			Repository:  repo,
			Description: subject,
			Metadata: map[string]string{
				"author": author,
			},
		})
	}
}

func (g *Git) runGit(ctx context.Context, repo string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, gitCommandTimeout)
	defer cancel()

	fullArgs := append([]string{"-C", repo, "--no-pager"}, args...)
	cmd := exec.CommandContext(runCtx, "git", fullArgs...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
