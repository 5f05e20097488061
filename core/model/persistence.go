package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// Envelope constants. A reader refuses any other format or version.
const (
	EnvelopeFormat        = "scorecast-artifact"
	EnvelopeFormatVersion = 1
)

// Artifact kinds.
const (
	KindPreprocessor = "preprocessor"
	KindModel        = "model"
)

// Envelope wraps a persisted payload with enough metadata to reject
// artifacts from another format version or a corrupted write.
//
//	{
//	  "format": "scorecast-artifact",
//	  "format_version": 1,
//	  "kind": "model",
//	  "created_at": "...",
//	  "run_id": "...",
//	  "checksum": "<xxhash64 of payload, hex>",
//	  "payload": {...}
//	}
type Envelope struct {
	Format        string          `json:"format"`
	FormatVersion int             `json:"format_version"`
	Kind          string          `json:"kind"`
	CreatedAt     time.Time       `json:"created_at"`
	RunID         string          `json:"run_id"`
	Checksum      string          `json:"checksum"`
	Payload       json.RawMessage `json:"payload"`
}

// Seal marshals payload and wraps it in an envelope.
func Seal(kind, runID string, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", kind)
	}
	return &Envelope{
		Format:        EnvelopeFormat,
		FormatVersion: EnvelopeFormatVersion,
		Kind:          kind,
		CreatedAt:     time.Now().UTC(),
		RunID:         runID,
		Checksum:      checksum(raw),
		Payload:       raw,
	}, nil
}

// Open verifies the envelope and unmarshals its payload into out.
func (e *Envelope) Open(kind string, out interface{}) error {
	if e.Format != EnvelopeFormat {
		return errors.Newf("unknown artifact format %q", e.Format)
	}
	if e.FormatVersion != EnvelopeFormatVersion {
		return errors.Newf("unsupported artifact format version %d (want %d)", e.FormatVersion, EnvelopeFormatVersion)
	}
	if e.Kind != kind {
		return errors.Newf("artifact kind mismatch: expected %s, got %s", kind, e.Kind)
	}

	// Indentation applied by WriteEnvelope is not part of the payload.
	var compact bytes.Buffer
	if err := json.Compact(&compact, e.Payload); err != nil {
		return errors.Wrap(err, "compact payload")
	}
	if got := checksum(compact.Bytes()); got != e.Checksum {
		return errors.Wrapf(errors.ErrChecksumMismatch, "%s payload: recorded %s, computed %s", kind, e.Checksum, got)
	}

	if err := json.Unmarshal(compact.Bytes(), out); err != nil {
		return errors.Wrapf(err, "unmarshal %s payload", kind)
	}
	return nil
}

// WriteEnvelope writes e as indented JSON.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	return nil
}

// ReadEnvelope decodes an envelope without verifying it. Call Open to check
// the format and checksum.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var e Envelope
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	return &e, nil
}

func checksum(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}
