package vision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/face-attendance-api/pkg/storage"
)

// SampleStore keeps normalized face samples on disk. Filenames encode the
// owning identity and sequence index as "<identity id>_<seq>.png"; the full
// directory is the recognizer's training corpus.
type SampleStore struct {
	files *storage.LocalStorage
}

// NewSampleStore opens (and creates if needed) the training directory.
func NewSampleStore(dir string) (*SampleStore, error) {
	files, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, fmt.Errorf("open training directory: %w", err)
	}
	return &SampleStore{files: files}, nil
}

// Save persists one sample for the identity and returns its filename.
func (s *SampleStore) Save(identityID int64, seq int, png []byte) (string, error) {
	name := fmt.Sprintf("%d_%d.png", identityID, seq)
	if _, err := s.files.Save(name, png); err != nil {
		return "", fmt.Errorf("save face sample: %w", err)
	}
	return name, nil
}

// Remove deletes a sample file, used to unwind a failed enrollment.
func (s *SampleStore) Remove(filename string) error {
	return s.files.Delete(filename)
}

// NextSeq returns the next sequence index for an identity.
func (s *SampleStore) NextSeq(identityID int64) (int, error) {
	names, err := s.files.List()
	if err != nil {
		return 0, err
	}
	max := 0
	for _, name := range names {
		id, seq, ok := parseSampleName(name)
		if !ok || id != identityID {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

// LoadAll reads every sample in the training directory. Files that do not
// follow the naming convention are skipped.
func (s *SampleStore) LoadAll() ([]LabeledSample, error) {
	names, err := s.files.List()
	if err != nil {
		return nil, err
	}
	samples := make([]LabeledSample, 0, len(names))
	for _, name := range names {
		id, _, ok := parseSampleName(name)
		if !ok {
			continue
		}
		data, err := s.files.Read(name)
		if err != nil {
			return nil, fmt.Errorf("read face sample %s: %w", name, err)
		}
		samples = append(samples, LabeledSample{Label: id, Image: data})
	}
	return samples, nil
}

func parseSampleName(name string) (int64, int, bool) {
	base, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return 0, 0, false
	}
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	seq, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return id, seq, true
}
