package intake

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoAudio is returned when an archive holds no .m4a recording.
var ErrNoAudio = errors.New("no .m4a files found in archive")

type archiveEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (e archiveEntry) Close() error {
	return errors.Join(e.ReadCloser.Close(), e.archive.Close())
}

// OpenAudio opens the recording behind path. Zip archives yield their first .m4a entry;
// any other file is returned as-is. The caller closes the reader.
func OpenAudio(filename string) (string, io.ReadCloser, error) {
	if strings.EqualFold(filepath.Ext(filename), ".zip") {
		return openArchiveAudio(filename)
	}

	f, err := os.Open(filename)
	if err != nil {
		return "", nil, fmt.Errorf("open audio: %w", err)
	}
	return filepath.Base(filename), f, nil
}

func openArchiveAudio(filename string) (string, io.ReadCloser, error) {
	archive, err := zip.OpenReader(filename)
	if err != nil {
		return "", nil, fmt.Errorf("open archive %s: %w", filename, err)
	}

	entry := firstAudioEntry(archive.File)
	if entry == nil {
		archive.Close()
		return "", nil, fmt.Errorf("%s: %w", filename, ErrNoAudio)
	}

	rc, err := entry.Open()
	if err != nil {
		archive.Close()
		return "", nil, fmt.Errorf("open %s in archive: %w", entry.Name, err)
	}

	return path.Base(entry.Name), archiveEntry{ReadCloser: rc, archive: archive}, nil
}

// firstAudioEntry skips directories and macOS resource forks.
func firstAudioEntry(files []*zip.File) *zip.File {
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		if strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._") {
			continue
		}
		if strings.EqualFold(path.Ext(name), ".m4a") {
			return f
		}
	}
	return nil
}
