//go:build linux || darwin

package scan

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/example/brcstats/internal/chunk"
)

// fileSource maps every range separately, so each scanner owns its mapping.
type fileSource struct {
	f    *os.File
	size int64
}

func openSource(path string) (source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &fileSource{f: f, size: fi.Size()}, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

func (s *fileSource) Size() int64 { return s.size }

func (s *fileSource) View(r chunk.Range) (view, error) {
	if r.Len() <= 0 {
		return sliceView(nil), nil
	}

	// mmap offsets must be page aligned.
	page := int64(unix.Getpagesize())
	aligned := r.Start &^ (page - 1)
	data, err := unix.Mmap(int(s.f.Fd()), aligned, int(r.End-aligned), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap [%d,%d): %w", r.Start, r.End, err)
	}
	// Advisory only. A refused hint leaves the mapping usable.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &mappedView{mapping: data, data: data[r.Start-aligned:]}, nil
}

func (s *fileSource) Close() error { return s.f.Close() }

type mappedView struct {
	mapping []byte
	data    []byte
}

func (v *mappedView) Bytes() []byte { return v.data }

func (v *mappedView) Close() error {
	if v.mapping == nil {
		return nil
	}
	err := unix.Munmap(v.mapping)
	v.mapping, v.data = nil, nil
	return err
}
