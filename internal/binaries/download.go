package binaries

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const downloadChunkSize = 128 * 1024

// Download streams url into dest, reporting cumulative byte counts to
// progress as chunks arrive. The body is written to a temporary file in
// dest's directory and renamed into place on success, so a concurrent
// reader sees either the prior file or the complete new one, never a
// partial write. On any failure the temporary file is removed and the
// final path is left untouched. Returns the number of bytes written.
func Download(ctx context.Context, client *http.Client, binary, url, dest string, progress ProgressFunc) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", "stackhouse/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return 0, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &NetworkError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, &IOError{Path: filepath.Dir(dest), Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, &IOError{Path: dest, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	total := resp.ContentLength
	var received int64
	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				tmp.Close()
				return received, &IOError{Path: tmpPath, Err: writeErr}
			}
			received += int64(n)
			if progress != nil {
				progress(Progress{Binary: binary, Received: received, Total: total})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			return received, &NetworkError{URL: url, Err: readErr}
		}
	}

	if err := tmp.Close(); err != nil {
		return received, &IOError{Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return received, &IOError{Path: dest, Err: err}
	}
	committed = true
	return received, nil
}
