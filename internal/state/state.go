// Package state reads and writes the declarative package list: the
// ordered, plain-text record of user intent that every generation
// publish reconciles the store against.
package state

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"pygr/internal/errs"
	"pygr/internal/fsutil"
)

// Kind distinguishes the three entry grammars.
type Kind string

const (
	KindSystem     Kind = "system"
	KindRemoteRepo Kind = "remote-repo"
	KindRecipe     Kind = "recipe"
)

// Entry is one parsed line of the declarative state file.
type Entry struct {
	Kind Kind
	// Name is the display/lookup name: the package name for
	// system/recipe entries, "OWNER/REPO" for remote-repo entries.
	Name string
	// PM is the system package manager, set only for KindSystem.
	PM string
	// Ref is the optional "@REF" suffix, set only for KindRemoteRepo.
	Ref string
	// Version is the pinned version, set only for KindRecipe.
	Version string
	raw     string
}

// Line renders the entry back to its canonical text form.
func (e Entry) Line() string {
	switch e.Kind {
	case KindSystem:
		return fmt.Sprintf("system:%s:%s", e.PM, e.Name)
	case KindRemoteRepo:
		if e.Ref != "" {
			return fmt.Sprintf("remote-repo:%s@%s", e.Name, e.Ref)
		}
		return fmt.Sprintf("remote-repo:%s", e.Name)
	case KindRecipe:
		return fmt.Sprintf("recipe:%s@%s", e.Name, e.Version)
	default:
		return e.raw
	}
}

// File is the declarative state file at a fixed path.
type File struct {
	Path string
}

// New returns a File bound to path.
func New(path string) *File {
	return &File{Path: path}
}

// Read parses the state file into an ordered list of entries. Blank
// lines and lines whose first non-whitespace character is "#" are
// ignored. A name that appears more than once keeps only its last
// occurrence, in the position of its first occurrence; Read reports
// the dropped earlier duplicates via the returned warnings slice
// rather than failing.
func (f *File) Read() ([]Entry, []string, error) {
	data, err := readFileOrEmpty(f.Path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Internal, "STATE_READ", err, "reading state file %q", f.Path)
	}

	var ordered []Entry
	seen := map[string]int{} // name -> index into ordered
	var warnings []string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			return nil, nil, errs.Wrap(errs.RecipeMalformed, "STATE_PARSE", err, "line %d of %q", lineNo, f.Path)
		}
		if idx, ok := seen[entry.Name]; ok {
			warnings = append(warnings, fmt.Sprintf("duplicate entry for %q at line %d, keeping last occurrence", entry.Name, lineNo))
			ordered[idx] = entry
			continue
		}
		seen[entry.Name] = len(ordered)
		ordered = append(ordered, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errs.Wrap(errs.Internal, "STATE_SCAN", err, "scanning state file %q", f.Path)
	}
	return ordered, warnings, nil
}

func parseLine(line string) (Entry, error) {
	switch {
	case strings.HasPrefix(line, "system:"):
		rest := strings.TrimPrefix(line, "system:")
		pm, name, ok := strings.Cut(rest, ":")
		if !ok || pm == "" || name == "" {
			return Entry{}, fmt.Errorf("malformed system entry %q, want system:PM:NAME", line)
		}
		return Entry{Kind: KindSystem, PM: pm, Name: name, raw: line}, nil

	case strings.HasPrefix(line, "remote-repo:"):
		rest := strings.TrimPrefix(line, "remote-repo:")
		repo, ref, _ := strings.Cut(rest, "@")
		if !strings.Contains(repo, "/") {
			return Entry{}, fmt.Errorf("malformed remote-repo entry %q, want remote-repo:OWNER/REPO[@REF]", line)
		}
		return Entry{Kind: KindRemoteRepo, Name: repo, Ref: ref, raw: line}, nil

	case strings.HasPrefix(line, "recipe:"):
		rest := strings.TrimPrefix(line, "recipe:")
		name, version, ok := strings.Cut(rest, "@")
		if !ok || name == "" || version == "" {
			return Entry{}, fmt.Errorf("malformed recipe entry %q, want recipe:NAME@VERSION", line)
		}
		return Entry{Kind: KindRecipe, Name: name, Version: version, raw: line}, nil

	default:
		return Entry{}, fmt.Errorf("unrecognized state entry %q", line)
	}
}

// Render serializes entries to the file's one-line-per-entry text
// form without touching disk, for callers (such as a profile
// generation's manifest) that need the would-be state snapshot before
// committing it.
func Render(entries []Entry) []byte {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Line())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Write atomically replaces the state file's contents with entries,
// one per line, in the given order.
func (f *File) Write(entries []Entry) error {
	if err := fsutil.AtomicWrite(f.Path, Render(entries), 0o644); err != nil {
		return errs.Wrap(errs.Internal, "STATE_WRITE", err, "writing state file %q", f.Path)
	}
	return nil
}

// ManifestArtifact is the subset of a profile manifest SyncFromCurrent
// needs: enough to reconstruct a recipe: entry per installed artifact.
type ManifestArtifact struct {
	Name    string
	Version string
}

// SyncFromCurrent rewrites entries to reflect exactly what the current
// generation's manifest says is installed, except that system: entries
// are preserved verbatim since they name packages that live outside
// the store by definition and so never appear in any manifest.
func (f *File) SyncFromCurrent(artifacts []ManifestArtifact) error {
	existing, _, err := f.Read()
	if err != nil {
		return err
	}

	var out []Entry
	for _, e := range existing {
		if e.Kind == KindSystem {
			out = append(out, e)
		}
	}
	names := make([]string, 0, len(artifacts))
	byName := make(map[string]ManifestArtifact, len(artifacts))
	for _, a := range artifacts {
		names = append(names, a.Name)
		byName[a.Name] = a
	}
	sort.Strings(names)
	for _, name := range names {
		a := byName[name]
		out = append(out, Entry{Kind: KindRecipe, Name: a.Name, Version: a.Version})
	}
	return f.Write(out)
}

// Installer is the narrow capability Apply needs from the rest of the
// application: given a declarative entry, make it present.
type Installer interface {
	Install(entry Entry) error
}

// Apply reads the state file and invokes Install for every entry, in
// file order. It does not stop at the first failure; it collects all
// installer errors and returns them joined, so one bad entry does not
// block the rest of a declarative sync.
func (f *File) Apply(installer Installer) error {
	entries, _, err := f.Read()
	if err != nil {
		return err
	}
	var failures []string
	for _, e := range entries {
		if err := installer.Install(e); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", e.Line(), err))
		}
	}
	if len(failures) > 0 {
		return errs.New(errs.Internal, "STATE_APPLY", "apply failed for %d entries: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

func readFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}
