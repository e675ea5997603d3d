package rangesearch

import (
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// SaveTo writes the encoded model to path.
func (m *Model) SaveTo(path string) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SaveToAtomic writes the model to path+".tmp" and then renames it over
// path, so readers never observe a partially written file. On Windows the
// target must not exist for Rename to succeed; remove it first.
func (m *Model) SaveToAtomic(path string) error {
	tmp := path + ".tmp"
	if err := m.SaveTo(tmp); err != nil {
		return err
	}
	_ = os.Remove(path) // ignore error if not exists
	return os.Rename(tmp, path)
}

// LoadModel reads a model written by SaveTo. Every section is copied into
// the heap, so the model has no further tie to the file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeModel(data, false)
}

// LoadModelMmap maps path read-only and decodes the model against the
// mapping. The dataset remains a view into the mapped file rather than a
// heap copy, which keeps load time and resident memory flat in the number
// of points. Call Close on the model when done; the dataset view must not
// be used afterwards.
func LoadModelMmap(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	m, err := decodeModel(data, true)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	m.closer = &mappedFile{f: f, data: data}
	return m, nil
}

// mappedFile pairs a mapping with its file so a single Close releases both.
type mappedFile struct {
	f    *os.File
	data mmap.MMap
}

func (s *mappedFile) Close() error {
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			return err
		}
		s.data = nil
	}
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}

// float64View reinterprets an 8-byte aligned little-endian byte slice as a
// []float64 without copying. The view is valid as long as b is.
func float64View(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b[0])), len(b)/8)
}
