// Package rebuild shells out to the external graph builder and keeps the
// serving process in sync with the database it produces.
package rebuild

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
)

// DefaultBuilderCmd is the builder invoked when no command is configured.
const DefaultBuilderCmd = "synapse-build"

// DefaultTimeout bounds a builder run.
const DefaultTimeout = 5 * time.Minute

// ErrBuilderNotFound reports a missing builder binary.
var ErrBuilderNotFound = errors.New("graph builder not found")

// InstallHint is surfaced to callers when the builder binary is missing.
const InstallHint = "Install the graph builder and ensure it is on PATH, " +
	"or point SYNAPSE_BUILDER_CMD at it."

// MetaWriter stamps provenance into the graph metadata table.
type MetaWriter interface {
	SetMeta(ctx context.Context, key, value string) error
}

// Reloader refreshes in-process caches after the database changed.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Options selects how a single rebuild runs. The zero value requests an
// incremental rebuild of the runner's configured project.
type Options struct {
	// Full forces a from-scratch rebuild instead of an incremental update.
	Full bool
	// ProjectPath overrides the configured project root for this run only.
	ProjectPath string
}

// Runner executes the external graph builder against a project and, on
// success, stamps provenance and reloads the engine's caches.
type Runner struct {
	ProjectPath string
	BuilderCmd  string
	Timeout     time.Duration

	Meta     MetaWriter
	Reloader Reloader
}

// Run invokes the builder and returns its combined output. The builder is
// given an "incremental" or "full" subcommand and rewrites the database in
// place; Run reloads caches afterwards so the serving process picks up the
// new graph without restarting.
func (r *Runner) Run(ctx context.Context, opts Options) (string, error) {
	cmdline := r.BuilderCmd
	if cmdline == "" {
		cmdline = DefaultBuilderCmd
	}
	parts := strings.Fields(cmdline)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty builder command")
	}
	mode := "incremental"
	if opts.Full {
		mode = "full"
	}
	args := append(parts[1:], mode)

	projectPath := r.ProjectPath
	if opts.ProjectPath != "" {
		projectPath = opts.ProjectPath
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, parts[0], args...)
	cmd.Dir = projectPath

	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return output, fmt.Errorf("%w: %q. %s", ErrBuilderNotFound, parts[0], InstallHint)
		}
		if runCtx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("builder timed out after %s", timeout)
		}
		return output, fmt.Errorf("builder failed: %w", err)
	}

	if r.Meta != nil {
		r.stampProvenance(ctx, projectPath)
	}
	if r.Reloader != nil {
		if err := r.Reloader.Reload(ctx); err != nil {
			return output, fmt.Errorf("reloading after rebuild: %w", err)
		}
	}
	return output, nil
}

// stampProvenance records the rebuild time and, when the project is a git
// repository, the HEAD commit. Provenance is best-effort: a non-git project
// or a detached metadata write never fails the rebuild.
func (r *Runner) stampProvenance(ctx context.Context, projectPath string) {
	_ = r.Meta.SetMeta(ctx, "rebuild_time", time.Now().UTC().Format(time.RFC3339))

	repo, err := git.PlainOpenWithOptions(projectPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return
	}
	head, err := repo.Head()
	if err != nil {
		return
	}
	_ = r.Meta.SetMeta(ctx, "project_commit", head.Hash().String())
}
