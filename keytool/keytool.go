// Package keytool reads the signing certificates of an APK with
// the JDK's `keytool`.
package keytool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNoFingerprints is returned when `keytool -printcert` reports
// no SHA256 certificate fingerprints, e.g. for an unsigned APK.
var ErrNoFingerprints = errors.New("sha256 cert fingerprints not found")

// SHA256CertFingerprints finds `keytool` on the PATH and runs
// SHA256CertFingerprints against it. See Command.SHA256CertFingerprints.
func SHA256CertFingerprints(ctx context.Context, apk string) ([]string, error) {
	return Command("keytool").SHA256CertFingerprints(ctx, apk)
}

// Command represents the path to a `keytool` executable.
type Command string

func (c Command) String() string {
	return string(c)
}

// SHA256CertFingerprints runs `keytool -printcert -jarfile` against
// the APK at apk and returns the SHA256 fingerprint of each signer,
// in the order keytool prints them.
func (c Command) SHA256CertFingerprints(ctx context.Context, apk string) ([]string, error) {
	var (
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
		//nolint:gosec
		cmd = exec.CommandContext(ctx, c.String(), "-printcert", "-jarfile", apk)
	)

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s -printcert: %w: %s", c, err, msg)
		}

		return nil, fmt.Errorf("%s -printcert: %w", c, err)
	}

	return ParseSHA256CertFingerprints(stdout)
}

// ParseSHA256CertFingerprints reads the output of `keytool -printcert`
// and returns every SHA256 fingerprint in it.
func ParseSHA256CertFingerprints(r io.Reader) ([]string, error) {
	var (
		fingerprints []string
		scanner      = bufio.NewScanner(r)
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if fingerprint, ok := strings.CutPrefix(line, "SHA256:"); ok {
			if fingerprint = strings.TrimSpace(fingerprint); fingerprint != "" {
				fingerprints = append(fingerprints, fingerprint)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(fingerprints) == 0 {
		return nil, ErrNoFingerprints
	}

	return fingerprints, nil
}
