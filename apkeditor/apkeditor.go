// Package apkeditor runs REAndroid's APKEditor jar. Unlike apktool it
// can merge split APK bundles (.apks, .xapk, .apkm) into a single APK.
package apkeditor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command represents an APKEditor jar and the `java` executable to run it with.
type Command struct {
	Java string
	Jar  string
}

// New returns a Command for the jar at jar, run by `java` found on the PATH.
func New(jar string) *Command {
	return &Command{Java: "java", Jar: jar}
}

func (c *Command) String() string {
	return c.java() + " -jar " + c.Jar
}

func (c *Command) java() string {
	if c.Java == "" {
		return "java"
	}

	return c.Java
}

// MergeOpts represent flags that can be passed to `APKEditor m`.
type MergeOpts struct {
	Force bool
}

// Merge runs `APKEditor m` to merge the split APK bundle at input
// into the single APK at output.
func (c *Command) Merge(ctx context.Context, input, output string, opts *MergeOpts) error {
	args := []string{}

	if opts != nil && opts.Force {
		args = append(args, "-f")
	}

	return c.run(ctx, "m", input, output, args...)
}

// DecodeOpts represent flags that can be passed to `APKEditor d`.
type DecodeOpts struct {
	Force bool
	// Type is the output format of resources, e.g. "xml" or "json".
	Type       string
	NoDexDebug bool
}

// Decode runs `APKEditor d` to decompile the APK at input into the directory output.
func (c *Command) Decode(ctx context.Context, input, output string, opts *DecodeOpts) error {
	args := []string{}

	if opts != nil {
		if opts.Force {
			args = append(args, "-f")
		}

		if opts.Type != "" {
			args = append(args, "-t", opts.Type)
		}

		if opts.NoDexDebug {
			args = append(args, "-no-dex-debug")
		}
	}

	return c.run(ctx, "d", input, output, args...)
}

// BuildOpts represent flags that can be passed to `APKEditor b`.
type BuildOpts struct {
	Force bool
}

// Build runs `APKEditor b` to rebuild the decompiled directory input into the APK at output.
func (c *Command) Build(ctx context.Context, input, output string, opts *BuildOpts) error {
	args := []string{}

	if opts != nil && opts.Force {
		args = append(args, "-f")
	}

	return c.run(ctx, "b", input, output, args...)
}

func (c *Command) MergeAPK(ctx context.Context, split, apk string) error {
	return c.Merge(ctx, split, apk, &MergeOpts{Force: true})
}

func (c *Command) DecodeAPK(ctx context.Context, apk, dir string) error {
	return c.Decode(ctx, apk, dir, &DecodeOpts{Force: true, Type: "xml", NoDexDebug: true})
}

func (c *Command) BuildAPK(ctx context.Context, dir, apk string) error {
	return c.Build(ctx, dir, apk, &BuildOpts{Force: true})
}

func (c *Command) run(ctx context.Context, subcommand, input, output string, args ...string) error {
	if c.Jar == "" {
		return fmt.Errorf("apkeditor: no jar configured")
	}

	var (
		stderr = new(bytes.Buffer)
		argv   = append([]string{"-jar", c.Jar, subcommand, "-i", input, "-o", output}, args...)
		//nolint:gosec
		cmd = exec.CommandContext(ctx, c.java(), argv...)
	)

	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("apkeditor %s: %w: %s", subcommand, err, msg)
		}

		return fmt.Errorf("apkeditor %s: %w", subcommand, err)
	}

	return nil
}
