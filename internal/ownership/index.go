// Package ownership builds the bidirectional owned-note index from the
// directory-nesting convention: an owner instance lives at
// <storage>/<name>/<name>.md, and documents under <storage>/<name>/<childType>/
// are owned by it through the declaring field.
package ownership

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vellum-notes/vellum/internal/paths"
	"github.com/vellum-notes/vellum/internal/schema"
)

// OwnerInfo identifies the owner of an owned document.
type OwnerInfo struct {
	OwnerPath string // vault-relative path of the owner document
	OwnerType string
	FieldName string
}

// Index is the read-only ownership index for one run.
type Index struct {
	ownedNotes   map[string]OwnerInfo
	ownerToOwned map[string][]string
}

// Reference-validity reasons.
const (
	ReasonReferencingOwned = "referencing-owned"
	ReasonAlreadyOwned     = "already-owned"
)

// CheckResult is the outcome of a reference or claim validity query.
type CheckResult struct {
	Valid     bool
	Reason    string // empty when valid
	OwnerPath string // the conflicting owner, when invalid
}

// Build indexes every owned document under the vault. Types that declare no
// ownership produce an empty index.
func Build(r *schema.Resolved, vaultPath string) (*Index, error) {
	idx := &Index{
		ownedNotes:   map[string]OwnerInfo{},
		ownerToOwned: map[string][]string{},
	}
	if r.Ownership == nil || len(r.Ownership.Owns) == 0 {
		return idx, nil
	}

	ownerTypes := make([]string, 0, len(r.Ownership.Owns))
	for t := range r.Ownership.Owns {
		ownerTypes = append(ownerTypes, t)
	}
	sort.Strings(ownerTypes)

	for _, ownerType := range ownerTypes {
		storageDir := r.StorageDir(ownerType)
		absStorage := filepath.Join(vaultPath, filepath.FromSlash(storageDir))

		entries, err := os.ReadDir(absStorage)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			instance := entry.Name()
			ownerRel := path.Join(storageDir, instance, instance+".md")
			if _, err := os.Stat(filepath.Join(vaultPath, filepath.FromSlash(ownerRel))); err != nil {
				continue // no owner document, not an owner instance
			}

			for _, owned := range r.Ownership.Owns[ownerType] {
				childDir := filepath.Join(absStorage, instance, owned.ChildType)
				children, err := os.ReadDir(childDir)
				if os.IsNotExist(err) {
					continue
				}
				if err != nil {
					return nil, err
				}
				for _, child := range children {
					if child.IsDir() || !strings.HasSuffix(child.Name(), ".md") {
						continue
					}
					rel := path.Join(storageDir, instance, owned.ChildType, child.Name())
					idx.claim(rel, OwnerInfo{
						OwnerPath: ownerRel,
						OwnerType: ownerType,
						FieldName: owned.FieldName,
					})
				}
			}
		}
	}

	return idx, nil
}

// claim records ownership of rel. The directory convention makes competing
// claims geometrically impossible, so the first claim simply wins.
func (idx *Index) claim(rel string, info OwnerInfo) {
	if _, taken := idx.ownedNotes[rel]; taken {
		return
	}
	idx.ownedNotes[rel] = info
	idx.ownerToOwned[info.OwnerPath] = append(idx.ownerToOwned[info.OwnerPath], rel)
}

// IsOwned returns the owner of a vault-relative path, if it is owned.
func (idx *Index) IsOwned(rel string) (OwnerInfo, bool) {
	info, ok := idx.ownedNotes[paths.NormalizeRel(rel)]
	return info, ok
}

// Owned returns the paths owned by an owner document, sorted.
func (idx *Index) Owned(ownerRel string) []string {
	owned := append([]string(nil), idx.ownerToOwned[paths.NormalizeRel(ownerRel)]...)
	sort.Strings(owned)
	return owned
}

// Len returns the number of owned documents in the index.
func (idx *Index) Len() int { return len(idx.ownedNotes) }

// CanReference reports whether from may reference to: always, unless to is
// owned by some other document.
func (idx *Index) CanReference(fromRel, toRel string) CheckResult {
	info, owned := idx.IsOwned(toRel)
	if !owned || paths.NormalizeRel(fromRel) == info.OwnerPath {
		return CheckResult{Valid: true}
	}
	return CheckResult{Valid: false, Reason: ReasonReferencingOwned, OwnerPath: info.OwnerPath}
}

// ValidateNewOwned reports whether newRel may be claimed by
// proposedOwnerRel. Re-claiming under the same owner is valid.
func (idx *Index) ValidateNewOwned(newRel, proposedOwnerRel string) CheckResult {
	info, owned := idx.IsOwned(newRel)
	if !owned || info.OwnerPath == paths.NormalizeRel(proposedOwnerRel) {
		return CheckResult{Valid: true}
	}
	return CheckResult{Valid: false, Reason: ReasonAlreadyOwned, OwnerPath: info.OwnerPath}
}
