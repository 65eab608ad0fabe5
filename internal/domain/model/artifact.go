package model

import (
	"bytes"
	"io"
)

// Artifact is the immutable payload produced by a successful conversion.
// The zero value is an empty artifact.
type Artifact struct {
	data []byte
}

// NewArtifact copies b into a new Artifact so later changes to b are not observed.
func NewArtifact(b []byte) *Artifact {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Artifact{data: cp}
}

// Len returns the payload size in bytes.
func (a *Artifact) Len() int {
	if a == nil {
		return 0
	}
	return len(a.data)
}

// Bytes returns a copy of the payload.
func (a *Artifact) Bytes() []byte {
	if a == nil {
		return nil
	}
	cp := make([]byte, len(a.data))
	copy(cp, a.data)
	return cp
}

// NewReader returns a read-only view over the payload without copying it.
func (a *Artifact) NewReader() *bytes.Reader {
	if a == nil {
		return bytes.NewReader(nil)
	}
	return bytes.NewReader(a.data)
}

// WriteTo writes the payload to w.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	if a == nil {
		return 0, nil
	}
	n, err := w.Write(a.data)
	return int64(n), err
}

// ArtifactDownload pairs a completed artifact with the name it should be served under.
type ArtifactDownload struct {
	JobID    string
	Filename string
	Artifact *Artifact
}
