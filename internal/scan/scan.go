// Package scan enumerates candidate documents from a vault according to
// each type's storage location.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/ownership"
	"github.com/vellum-notes/vellum/internal/paths"
	"github.com/vellum-notes/vellum/internal/schema"
)

// ManagedFile is one scanned document. Created fresh each run, never
// persisted.
type ManagedFile struct {
	Path           string // absolute
	RelativePath   string // vault-relative, slash-separated
	ExpectedType   string // from the directory scan; unconfirmed
	InstanceFolder string // owner-instance folder, when the file is one
	Ownership      *ownership.OwnerInfo
}

// IgnoreFunc decides whether a vault-relative path is skipped. Nil means
// nothing extra is ignored.
type IgnoreFunc func(rel string) bool

// Scanner walks the vault.
type Scanner struct {
	resolved *schema.Resolved
	rc       config.RunConfig
	ignore   IgnoreFunc
}

// New creates a Scanner.
func New(resolved *schema.Resolved, rc config.RunConfig, ignore IgnoreFunc) *Scanner {
	return &Scanner{resolved: resolved, rc: rc, ignore: ignore}
}

// All walks the whole vault and collects every document file, skipping
// excluded, hidden, and ignored directories.
func (s *Scanner) All() ([]*ManagedFile, error) {
	byType := s.storageDirsByDepth()
	var files []*ManagedFile

	err := filepath.WalkDir(s.rc.VaultPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.rc.VaultPath, p)
		if relErr != nil {
			return relErr
		}
		rel = paths.NormalizeRel(rel)

		if d.IsDir() {
			if rel == "." || rel == "" {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || s.rc.IsExcludedDir(rel) {
				return filepath.SkipDir
			}
			if s.ignore != nil && s.ignore(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".md") {
			return nil
		}
		if s.ignore != nil && s.ignore(rel) {
			return nil
		}

		files = append(files, s.managed(p, rel, s.expectedType(byType, rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortFiles(files)
	return files, nil
}

// ForType collects documents of one type and all its descendants, from
// their resolved storage directories plus any owned instances reachable
// through the ownership index.
func (s *Scanner) ForType(typeName string, idx *ownership.Index) ([]*ManagedFile, error) {
	typeNames := append([]string{typeName}, s.resolved.Descendants(typeName)...)

	var files []*ManagedFile
	seen := map[string]bool{}

	for _, name := range typeNames {
		dir := s.resolved.StorageDir(name)
		collected, err := s.collectDir(dir, name)
		if err != nil {
			return nil, err
		}
		for _, f := range collected {
			if seen[f.RelativePath] {
				continue
			}
			seen[f.RelativePath] = true
			files = append(files, f)
		}
	}

	// Owned instances live under their owner, not the type's storage dir.
	if idx != nil {
		for _, name := range typeNames {
			if len(s.resolved.Ownership.CanBeOwnedBy[name]) > 0 {
				files = append(files, s.ownedInstances(name, idx, seen)...)
			}
		}
	}

	sortFiles(files)
	return files, nil
}

// collectDir walks one storage directory recursively.
func (s *Scanner) collectDir(dir, expectedType string) ([]*ManagedFile, error) {
	root := filepath.Join(s.rc.VaultPath, filepath.FromSlash(dir))
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var files []*ManagedFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.rc.VaultPath, p)
		if relErr != nil {
			return relErr
		}
		rel = paths.NormalizeRel(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || s.rc.IsExcludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".md") {
			return nil
		}
		if s.ignore != nil && s.ignore(rel) {
			return nil
		}
		files = append(files, s.managed(p, rel, expectedType))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ownedInstances returns managed files for every indexed document owned as
// childType, tagged with ownership metadata.
func (s *Scanner) ownedInstances(childType string, idx *ownership.Index, seen map[string]bool) []*ManagedFile {
	var files []*ManagedFile
	for _, ownerType := range ownerTypesFor(s.resolved, childType) {
		storageDir := s.resolved.StorageDir(ownerType)
		root := filepath.Join(s.rc.VaultPath, filepath.FromSlash(storageDir))
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			childDir := filepath.Join(root, entry.Name(), childType)
			children, err := os.ReadDir(childDir)
			if err != nil {
				continue
			}
			for _, child := range children {
				if child.IsDir() || !strings.HasSuffix(child.Name(), ".md") {
					continue
				}
				rel := paths.NormalizeRel(filepath.Join(storageDir, entry.Name(), childType, child.Name()))
				if seen[rel] {
					continue
				}
				info, owned := idx.IsOwned(rel)
				if !owned {
					continue
				}
				seen[rel] = true
				mf := s.managed(filepath.Join(s.rc.VaultPath, filepath.FromSlash(rel)), rel, childType)
				mf.Ownership = &info
				files = append(files, mf)
			}
		}
	}
	return files
}

func ownerTypesFor(r *schema.Resolved, childType string) []string {
	refs := r.Ownership.CanBeOwnedBy[childType]
	var out []string
	seen := map[string]bool{}
	for _, ref := range refs {
		if !seen[ref.OwnerType] {
			seen[ref.OwnerType] = true
			out = append(out, ref.OwnerType)
		}
	}
	return out
}

func (s *Scanner) managed(abs, rel, expectedType string) *ManagedFile {
	mf := &ManagedFile{
		Path:         abs,
		RelativePath: rel,
		ExpectedType: expectedType,
	}
	dir := paths.DirOf(rel)
	if dir != "" && filepath.Base(dir) == paths.Basename(rel) {
		mf.InstanceFolder = dir
	}
	return mf
}

// storageDirsByDepth maps storage dirs to type names, deepest first, so the
// most specific directory wins when computing a file's expected type.
func (s *Scanner) storageDirsByDepth() []dirType {
	var dirs []dirType
	for name := range s.resolved.Types {
		if name == schema.RootTypeName {
			continue
		}
		dirs = append(dirs, dirType{dir: s.resolved.StorageDir(name), typeName: name})
	}
	sort.Slice(dirs, func(i, j int) bool {
		if len(dirs[i].dir) != len(dirs[j].dir) {
			return len(dirs[i].dir) > len(dirs[j].dir)
		}
		return dirs[i].typeName < dirs[j].typeName
	})
	return dirs
}

type dirType struct {
	dir      string
	typeName string
}

func (s *Scanner) expectedType(dirs []dirType, rel string) string {
	for _, dt := range dirs {
		if paths.Within(rel, dt.dir) {
			return dt.typeName
		}
	}
	return ""
}

func sortFiles(files []*ManagedFile) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
}
