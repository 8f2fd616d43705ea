// Package pull mirrors remote tool history directories into the
// consolidated tree by wrapping rsync over SSH. Hosts are
// processed sequentially; a failed sync for one host/tool is
// recorded and never stops the rest of the batch.
package pull

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/wesm/historysync/internal/discover"
	"github.com/wesm/historysync/internal/tree"
)

// Host identifies one remote machine to pull from.
type Host struct {
	User     string
	Name     string
	Port     int
	Identity string
}

// ParseHost builds a Host from user@host (or bare host) form.
func ParseHost(s string, port int, identity string) Host {
	h := Host{Name: s, Port: port, Identity: identity}
	if user, name, ok := strings.Cut(s, "@"); ok {
		h.User = user
		h.Name = name
	}
	return h
}

// Addr renders the SSH target for this host.
func (h Host) Addr() string {
	if h.User == "" {
		return h.Name
	}
	return h.User + "@" + h.Name
}

// Options configures a pull run.
type Options struct {
	OutputDir string
	DryRun    bool
	Claude    bool
	Cursor    bool

	RemoteClaudePaths []string
	RemoteCursorPaths []string

	RsyncCommand string
	SSHCommand   string
}

// HostResult records the outcome for one host.
type HostResult struct {
	Host   string
	Synced []string
	Failed []string
	// Found is false when no histories exist on the remote.
	Found bool
}

// Summary aggregates the results of a pull run.
type Summary struct {
	Results []HostResult
}

// anySynced reports whether at least one host/tool pair synced.
func (s *Summary) anySynced() bool {
	for _, r := range s.Results {
		if len(r.Synced) > 0 {
			return true
		}
	}
	return false
}

// Failed reports whether any host/tool sync failed.
func (s *Summary) Failed() bool {
	for _, r := range s.Results {
		if len(r.Failed) > 0 {
			return true
		}
	}
	return false
}

// Puller runs the pull workflow against a Runner.
type Puller struct {
	Runner Runner
	Out    io.Writer
	Opts   Options
}

// PullAll pulls from each host in order and prints a summary.
func (p *Puller) PullAll(hosts []Host) Summary {
	fmt.Fprintf(
		p.Out, "\nPulling histories from %d host(s)\n",
		len(hosts),
	)
	fmt.Fprintln(p.Out, strings.Repeat("=", 60))

	var summary Summary
	for _, h := range hosts {
		summary.Results = append(
			summary.Results, p.PullHost(h),
		)
	}

	// Copied host directories must stay out of version control,
	// so a pull that copied anything rewrites the .gitignore.
	if !p.Opts.DryRun && summary.anySynced() {
		if err := tree.EnsureGitignore(
			p.Opts.OutputDir,
		); err != nil {
			fmt.Fprintf(
				p.Out, "  warning: .gitignore: %v\n", err,
			)
		}
	}

	fmt.Fprintf(
		p.Out, "\n%s\nSummary:\n", strings.Repeat("=", 60),
	)
	for _, r := range summary.Results {
		mark := "ok"
		if len(r.Failed) > 0 {
			mark = "FAILED"
		}
		fmt.Fprintf(p.Out, "  [%s] %s\n", mark, r.Host)
	}
	return summary
}

// PullHost discovers and syncs the enabled tools on one host.
func (p *Puller) PullHost(h Host) HostResult {
	res := HostResult{Host: h.Name}

	fmt.Fprintf(p.Out, "\nPulling from %s\n", h.Addr())
	fmt.Fprintln(p.Out, strings.Repeat("-", 50))

	type job struct {
		tool       discover.Tool
		candidates []string
	}
	var jobs []job
	if p.Opts.Claude {
		jobs = append(jobs, job{
			discover.ToolClaude, p.Opts.RemoteClaudePaths,
		})
	}
	if p.Opts.Cursor {
		jobs = append(jobs, job{
			discover.ToolCursor, p.Opts.RemoteCursorPaths,
		})
	}

	for _, j := range jobs {
		remote, err := p.probe(h, j.candidates)
		if err != nil {
			res.Failed = append(
				res.Failed, string(j.tool),
			)
			fmt.Fprintf(
				p.Out, "  %s: probe failed: %v\n",
				j.tool, err,
			)
			continue
		}
		if remote == "" {
			fmt.Fprintf(
				p.Out, "  %s: not found on remote\n", j.tool,
			)
			continue
		}
		res.Found = true

		if err := p.syncTool(h, j.tool, remote); err != nil {
			res.Failed = append(
				res.Failed, string(j.tool),
			)
			fmt.Fprintf(
				p.Out, "  %s: sync failed: %v\n",
				j.tool, err,
			)
			continue
		}
		res.Synced = append(res.Synced, string(j.tool))
	}

	if !res.Found && len(res.Failed) == 0 {
		fmt.Fprintf(
			p.Out, "  No histories found on %s\n", h.Name,
		)
	}
	return res
}

// probe checks the candidate remote paths in order and returns
// the first one that exists as a directory.
func (p *Puller) probe(
	h Host, candidates []string,
) (string, error) {
	name, base, err := p.sshArgv(h)
	if err != nil {
		return "", err
	}
	for _, path := range candidates {
		args := append(
			append([]string{}, base...),
			h.Addr(),
			fmt.Sprintf("test -d %s && echo exists", path),
		)
		// A nonzero exit just means the path is absent.
		out, _ := p.Runner.Output(name, args...)
		if strings.Contains(out, "exists") {
			return path, nil
		}
	}
	return "", nil
}

// syncTool mirrors one remote tool directory into
// <output>/<host>/<tool>/. In dry-run mode it prints the exact
// command without executing it or touching the output tree.
func (p *Puller) syncTool(
	h Host, tool discover.Tool, remotePath string,
) error {
	dest := filepath.Join(
		p.Opts.OutputDir, h.Name, string(tool),
	)
	name, args, err := p.rsyncArgv(h, remotePath, dest)
	if err != nil {
		return err
	}

	fmt.Fprintf(
		p.Out, "  Syncing: %s:%s -> %s\n",
		h.Addr(), remotePath, dest,
	)

	if p.Opts.DryRun {
		fmt.Fprintf(
			p.Out, "  would run: %s\n",
			renderCommand(name, args),
		)
		return nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if err := p.Runner.Run(name, args...); err != nil {
		return fmt.Errorf("rsync: %w", err)
	}
	return nil
}

// sshArgv splits the configured SSH command string into a
// command name and base arguments, including port and identity
// options for this host.
func (p *Puller) sshArgv(
	h Host,
) (string, []string, error) {
	parts, err := shlex.Split(p.Opts.SSHCommand)
	if err != nil || len(parts) == 0 {
		return "", nil, fmt.Errorf(
			"invalid ssh command %q: %w",
			p.Opts.SSHCommand, err,
		)
	}
	args := parts[1:]
	if h.Port != 0 && h.Port != 22 {
		args = append(args, "-p", strconv.Itoa(h.Port))
	}
	if h.Identity != "" {
		args = append(args, "-i", h.Identity)
	}
	return parts[0], args, nil
}

// rsyncArgv builds the rsync invocation for one host/tool pair.
func (p *Puller) rsyncArgv(
	h Host, remotePath, dest string,
) (string, []string, error) {
	parts, err := shlex.Split(p.Opts.RsyncCommand)
	if err != nil || len(parts) == 0 {
		return "", nil, fmt.Errorf(
			"invalid rsync command %q: %w",
			p.Opts.RsyncCommand, err,
		)
	}
	args := parts[1:]
	if p.Opts.DryRun {
		args = append(args, "--dry-run")
	}
	if transport := p.remoteShell(h); transport != "" {
		args = append(args, "-e", transport)
	}
	args = append(
		args,
		h.Addr()+":"+remotePath+"/",
		dest+"/",
	)
	return parts[0], args, nil
}

// remoteShell renders the rsync -e value when the host needs a
// non-default SSH invocation. Port and identity go into a single
// -e option; passing two would silently drop the first.
func (p *Puller) remoteShell(h Host) string {
	needsOpts := (h.Port != 0 && h.Port != 22) ||
		h.Identity != ""
	if !needsOpts && p.Opts.SSHCommand == "ssh" {
		return ""
	}
	parts := []string{p.Opts.SSHCommand}
	if h.Port != 0 && h.Port != 22 {
		parts = append(parts, "-p", strconv.Itoa(h.Port))
	}
	if h.Identity != "" {
		parts = append(parts, "-i", h.Identity)
	}
	return strings.Join(parts, " ")
}
