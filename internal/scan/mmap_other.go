//go:build !linux && !darwin

package scan

import (
	"golang.org/x/exp/mmap"
)

// mmapSource maps the whole file once. It has no View, so each range is
// read out of the mapping through a bounded window.
type mmapSource struct {
	r *mmap.ReaderAt
}

func openSource(path string) (source, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &mmapSource{r: r}, nil
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }

func (s *mmapSource) Size() int64 { return int64(s.r.Len()) }

func (s *mmapSource) Close() error { return s.r.Close() }
