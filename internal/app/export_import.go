package app

import (
	"os"
	"path/filepath"
	"strings"

	"pygr/internal/errs"
	"pygr/internal/fsutil"
	"pygr/internal/state"
)

const defaultExportFile = "pygr-export.manifest"

// Export writes the current generation's manifest (artifact keys plus
// the declarative-state snapshot that was current at publish time) to
// file, defaulting to a fixed name when file is empty.
func (s *Service) Export(file string) error {
	if file == "" {
		file = defaultExportFile
	}
	current, err := s.Gens.Current()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(current.Dir, "manifest"))
	if err != nil {
		return errs.Wrap(errs.Internal, "APP_EXPORT_READ", err, "reading generation manifest")
	}
	if err := fsutil.AtomicWrite(file, data, 0o644); err != nil {
		return errs.Wrap(errs.Internal, "APP_EXPORT_WRITE", err, "writing export file %q", file)
	}
	return nil
}

// Import seeds the declarative state file from a previously exported
// manifest's state snapshot. It does not itself build anything or
// publish a generation: following Import with Apply is what
// reconstructs the store and profile on a fresh root (see P6).
func (s *Service) Import(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errs.Wrap(errs.Internal, "APP_IMPORT_READ", err, "reading export file %q", file)
	}
	_, snapshot, ok := strings.Cut(string(data), "---\n")
	if !ok {
		return errs.New(errs.RecipeMalformed, "APP_IMPORT_MALFORMED", "malformed export file %q: missing state snapshot", file)
	}

	tmp, err := os.CreateTemp("", "pygr-import-*.conf")
	if err != nil {
		return errs.Wrap(errs.Internal, "APP_IMPORT_TEMP", err, "creating temporary file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(snapshot); err != nil {
		tmp.Close()
		return errs.Wrap(errs.Internal, "APP_IMPORT_TEMP_WRITE", err, "writing temporary snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.Internal, "APP_IMPORT_TEMP_CLOSE", err, "closing temporary snapshot")
	}

	entries, _, err := state.New(tmp.Name()).Read()
	if err != nil {
		return err
	}
	return s.State.Write(entries)
}
