// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs conversion tools either inside a container
// runtime (docker or podman) or directly on the host.
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Runner executes a tool with stdin and stdout piped.
type Runner interface {
	// Name returns the runner name ("docker", "podman" or "local").
	Name() string

	// Run executes image with args. For container runtimes image is a
	// container image; for the local runner it is a binary on PATH.
	Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error
}

// Runtime provides container operations: checking availability, verifying
// images, and running containers.
type Runtime interface {
	Runner

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available(ctx context.Context) bool

	// ImageExists checks whether the named image exists locally.
	ImageExists(ctx context.Context, image string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (o *osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// runtime implements Runtime for a specific container binary. Docker
// and Podman differ only in binary name and the image check subcommand.
type runtime struct {
	bin           string
	imageCheckCmd []string
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(ctx, r.bin, "info") == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(ctx, r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

// runFlags start a throwaway container with stdin attached. Conversion
// tools read and write through pipes only, so the container gets no
// network.
var runFlags = []string{"run", "--rm", "-i", "--network", "none"}

// Run starts `<bin> run --rm -i --network none <image> <args...>`.
func (r *runtime) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	full := make([]string, 0, len(runFlags)+1+len(args))
	full = append(full, runFlags...)
	full = append(full, image)
	full = append(full, args...)
	if err := r.exec.RunPiped(ctx, r.bin, full, stdin, stdout); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, image, err)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

// Local runs host binaries.
type Local struct {
	exec executor
}

// NewLocal returns a runner for binaries on PATH.
func NewLocal() *Local { return &Local{exec: defaultExec} }

func (l *Local) Name() string { return "local" }

// Available reports whether bin is on PATH.
func (l *Local) Available(bin string) bool {
	_, err := l.exec.LookPath(bin)
	return err == nil
}

func (l *Local) Run(ctx context.Context, bin string, args []string, stdin io.Reader, stdout io.Writer) error {
	if _, err := l.exec.LookPath(bin); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", bin, err)
	}
	if err := l.exec.RunPiped(ctx, bin, args, stdin, stdout); err != nil {
		return fmt.Errorf("running %s: %w", bin, err)
	}
	return nil
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime(ctx context.Context) (Runtime, error) {
	return detectRuntime(ctx, defaultExec)
}

func detectRuntime(ctx context.Context, exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available(ctx) {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available(ctx) {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
