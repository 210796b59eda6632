// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package diagnostics

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/spyicydev/macblock/internal/errors"
)

// tailPollInterval is how often Follow re-checks a log file for new bytes
// once it has caught up to EOF.
const tailPollInterval = 500 * time.Millisecond

// DumpTail writes the last n lines of the file at path to w. A missing
// file is not an error: it writes nothing, matching the tolerant-read
// posture of the rest of this package.
func DumpTail(w io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, errors.KindTransientIO, "open %s", path)
	}
	defer f.Close()

	lines, err := lastLines(f, n)
	if err != nil {
		return errors.Wrapf(err, errors.KindTransientIO, "read %s", path)
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// lastLines reads all of r and returns at most n trailing lines. Log
// files here are small enough (single file, no rotation) that reading the
// whole thing is simpler and safer than a reverse seek.
func lastLines(r io.Reader, n int) ([]string, error) {
	var all []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if n <= 0 || len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// Follow seeks to EOF and polls path for appended bytes, writing each new
// line to w as it appears, until ctx is cancelled. Logs are local,
// single-file, and append-only, so a poll loop covers everything a
// tailing library would.
func Follow(ctx context.Context, w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, errors.KindTransientIO, "open %s", path)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrapf(err, errors.KindTransientIO, "seek %s", path)
	}

	reader := bufio.NewReader(f)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if _, werr := io.WriteString(w, line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(tailPollInterval):
			}
			continue
		}
		if err != nil {
			return errors.Wrapf(err, errors.KindTransientIO, "read %s", path)
		}
	}
}
