package binaries

import "fmt"

// UnknownBinaryError reports a lookup for a name outside the registry.
// This is a programmer error: callers should only pass registered names.
type UnknownBinaryError struct {
	Name string
}

func (e *UnknownBinaryError) Error() string {
	return fmt.Sprintf("unknown binary %q", e.Name)
}

// NetworkError reports a failed download. The engine performs no automatic
// retry beyond the configured policy; the caller decides.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IOError reports a local filesystem failure during download or install.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ExtractionError reports a release archive that is missing the expected
// executable entry, which signals a corrupt or mismatched release asset.
type ExtractionError struct {
	Binary  string
	Archive string
	Entry   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: entry %q not found in archive %s", e.Binary, e.Entry, e.Archive)
}

// VerificationError reports an installed binary that does not pass its
// version probe. Recommended recovery is re-provisioning from scratch.
type VerificationError struct {
	Binary string
	Path   string
	Output string
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verify %s at %s: %v", e.Binary, e.Path, e.Err)
	}
	return fmt.Sprintf("verify %s at %s: probe output did not match", e.Binary, e.Path)
}

func (e *VerificationError) Unwrap() error { return e.Err }
