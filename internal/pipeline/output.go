package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/iccimport/internal/doctree"
)

// EncodeJSON encodes v without HTML escaping, so markup delimiters in content
// stay readable.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// osRename is swapped out in tests to simulate rename failures.
var osRename = os.Rename

// WriteOutputs writes the chunk and annotation arrays into dir. Both files are
// staged under temporary names first. Existing outputs are moved aside while
// the new ones are installed and put back if any step fails, so dir holds
// either both new files or both old ones.
func WriteOutputs(dir, chunksName, annotationsName string, res *Result) error {
	chunks := res.Chunks
	if chunks == nil {
		chunks = []doctree.Chunk{}
	}
	chunkData, err := EncodeJSON(chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	annData, err := EncodeJSON(res.Annotations)
	if err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}

	chunkTmp, err := stage(dir, chunksName, chunkData)
	if err != nil {
		return err
	}
	annTmp, err := stage(dir, annotationsName, annData)
	if err != nil {
		os.Remove(chunkTmp)
		return err
	}
	return install(dir, []staged{
		{name: chunksName, tmp: chunkTmp},
		{name: annotationsName, tmp: annTmp},
	})
}

type staged struct {
	name   string
	tmp    string
	backup string // previous output moved aside, if any
	done   bool   // tmp renamed onto the final name
}

// install renames every staged file onto its final name. Previous outputs are
// kept as backups until all renames succeed.
func install(dir string, files []staged) error {
	err := func() error {
		for i := range files {
			f := &files[i]
			final := filepath.Join(dir, f.name)
			if _, err := os.Lstat(final); err == nil {
				f.backup = f.tmp + ".bak"
				if err := osRename(final, f.backup); err != nil {
					f.backup = ""
					return fmt.Errorf("back up %s: %w", f.name, err)
				}
			}
		}
		for i := range files {
			f := &files[i]
			if err := osRename(f.tmp, filepath.Join(dir, f.name)); err != nil {
				return fmt.Errorf("rename %s: %w", f.name, err)
			}
			f.done = true
		}
		return nil
	}()

	for _, f := range files {
		final := filepath.Join(dir, f.name)
		switch {
		case err == nil:
			if f.backup != "" {
				os.Remove(f.backup)
			}
		case f.backup != "":
			osRename(f.backup, final)
			os.Remove(f.tmp)
		default:
			if f.done {
				os.Remove(final)
			}
			os.Remove(f.tmp)
		}
	}
	return err
}

// stage writes data to a synced temporary file next to its final name.
func stage(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return tmpPath, nil
}
