package platform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// duBlockUnit is the block size du reports in when it cannot count bytes.
const duBlockUnit = 512

// DuSize measures the allocated size of path by running du(1). GNU du
// counts bytes directly; BSD du is pinned to 512-byte blocks via BLOCKSIZE.
func DuSize(ctx context.Context, path string) (int64, error) {
	cmd, unit := duCmd(ctx, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("du %s: %w: %s", path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return ParseDuOutput(string(out), unit)
}

func duCmd(ctx context.Context, path string) (*exec.Cmd, int64) {
	if runtime.GOOS == "linux" {
		return exec.CommandContext(ctx, "du", "--block-size=1", path), 1
	}
	cmd := exec.CommandContext(ctx, "du", path)
	cmd.Env = append(os.Environ(), fmt.Sprintf("BLOCKSIZE=%d", duBlockUnit))
	return cmd, duBlockUnit
}

// ParseDuOutput reads the leading whitespace-delimited count of du output
// and scales it by unit.
func ParseDuOutput(out string, unit int64) (int64, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty du output")
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse du output %q: %w", fields[0], err)
	}
	return n * unit, nil
}
