// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package blocklist

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spyicydev/macblock/internal/errors"
)

// MaxDownloadBytes is the hard byte cap on a downloaded source.
const MaxDownloadBytes = 100 * 1024 * 1024

// DefaultDownloadTimeout is the connection+read timeout applied to the
// whole download when the daemon tuning file doesn't override it.
const DefaultDownloadTimeout = 20 * time.Second

// htmlSniffBytes is how much of the response is inspected for the
// angle-bracket density heuristic that rejects HTML error pages served in
// place of a hosts file (e.g. a captive portal or a 404 page).
const htmlSniffBytes = 1024

// Download fetches url with a hard byte cap and a connection+read timeout,
// and rejects responses whose first kilobyte looks like HTML.
func Download(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUser, "build blocklist download request")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransientIO, "download blocklist source")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf(errors.KindTransientIO, "download blocklist source: HTTP %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, MaxDownloadBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransientIO, "read blocklist source body")
	}
	if len(data) > MaxDownloadBytes {
		return nil, errors.Errorf(errors.KindUser, "blocklist source exceeds %d byte cap", MaxDownloadBytes)
	}

	if looksLikeHTML(data) {
		return nil, errors.New(errors.KindUser, "blocklist source looks like an HTML page, not a hosts file")
	}

	return data, nil
}

// looksLikeHTML applies an angle-bracket density heuristic to the first
// kilobyte of data: a hosts file has essentially no '<'/'>' characters,
// while an HTML error page is dense with them.
func looksLikeHTML(data []byte) bool {
	sniff := data
	if len(sniff) > htmlSniffBytes {
		sniff = sniff[:htmlSniffBytes]
	}
	if len(sniff) == 0 {
		return false
	}
	lower := bytes.ToLower(sniff)
	if bytes.Contains(lower, []byte("<!doctype html")) || bytes.Contains(lower, []byte("<html")) {
		return true
	}
	angleBrackets := bytes.Count(sniff, []byte("<")) + bytes.Count(sniff, []byte(">"))
	density := float64(angleBrackets) / float64(len(sniff))
	return density > 0.02
}

// VerifySHA256 checks data against the lowercase-hex expected digest.
// Mismatch is fatal: the source is not parsed at all.
func VerifySHA256(data []byte, expectedHex string) error {
	if expectedHex == "" {
		return nil
	}
	sum := sha256.Sum256(data)
	got := hex.EncodeToString(sum[:])
	want := strings.ToLower(strings.TrimSpace(expectedHex))
	if got != want {
		return errors.Errorf(errors.KindUser, "blocklist source checksum mismatch: got %s, want %s", got, want)
	}
	return nil
}
