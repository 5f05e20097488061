// Package artifact persists pipeline outputs under a single directory.
//
// Every write is atomic: content goes to a temp file in the target
// directory and is renamed into place. Commit extends this to several files
// by staging all of them before renaming any, so a failed stage leaves the
// previous artifacts untouched.
package artifact

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
)

// Artifact file names.
const (
	DataFile         = "data.csv"
	TrainFile        = "train.csv"
	TestFile         = "test.csv"
	PreprocessorFile = "preprocessor.json"
	ModelFile        = "model.json"
)

// File is one entry of a Commit.
type File struct {
	Name  string
	Write func(w io.Writer) error
}

// Store reads and writes artifacts in one directory.
type Store struct {
	dir    string
	logger log.Logger
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.Nop()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of the named artifact.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Exists reports whether the named artifact is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// WriteFile atomically replaces the named artifact with what write produces.
func (s *Store) WriteFile(name string, write func(w io.Writer) error) error {
	return s.Commit(File{Name: name, Write: write})
}

// Commit writes every file or none of them. All files are written to temp
// files first; only when every write succeeded are they renamed into place.
func (s *Store) Commit(files ...File) (err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating artifact directory %s", s.dir)
	}

	staged := make([]string, 0, len(files))
	defer func() {
		if err != nil {
			for _, tmp := range staged {
				_ = os.Remove(tmp)
			}
		}
	}()

	for _, f := range files {
		tmp, err := s.stage(f)
		if tmp != "" {
			staged = append(staged, tmp)
		}
		if err != nil {
			return errors.Wrapf(err, "staging %s", f.Name)
		}
	}

	for i, f := range files {
		if err := os.Rename(staged[i], s.Path(f.Name)); err != nil {
			return errors.Wrapf(err, "committing %s", f.Name)
		}
		staged[i] = ""
	}

	for _, f := range files {
		s.logger.Debug("artifact written", log.ArtifactKey, s.Path(f.Name))
	}
	return nil
}

func (s *Store) stage(f File) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "."+f.Name+".tmp-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := f.Write(bw); err != nil {
		tmp.Close()
		return name, err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return name, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return name, err
	}
	return name, tmp.Close()
}

// Open opens the named artifact for reading.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "opening artifact %s", name)
	}
	return f, nil
}

// SaveEnvelope seals payload in a versioned envelope and writes it
// atomically to the named artifact.
func (s *Store) SaveEnvelope(name, kind, runID string, payload interface{}) error {
	env, err := model.Seal(kind, runID, payload)
	if err != nil {
		return err
	}
	return s.WriteFile(name, func(w io.Writer) error {
		return model.WriteEnvelope(w, env)
	})
}

// LoadEnvelope reads the named artifact, verifies format, version, kind and
// checksum, and decodes the payload into out.
func (s *Store) LoadEnvelope(name, kind string, out interface{}) (*model.Envelope, error) {
	r, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	env, err := model.ReadEnvelope(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading artifact %s", name)
	}
	if err := env.Open(kind, out); err != nil {
		return nil, errors.Wrapf(err, "verifying artifact %s", name)
	}
	s.logger.Debug("artifact loaded",
		log.ArtifactKey, s.Path(name),
		log.RunIDKey, env.RunID,
	)
	return env, nil
}
