package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/vellum-notes/vellum/internal/paths"
	"github.com/vellum-notes/vellum/internal/schema"
)

// EnvExcludeVar names directories to exclude, separated like $PATH.
const EnvExcludeVar = "VLM_EXCLUDE"

// RunConfig is the single immutable configuration a run operates under.
// Core packages take it as input instead of reading ambient process state,
// so a run is a pure function of (schema, filesystem snapshot, config).
type RunConfig struct {
	VaultPath          string
	ExcludedDirs       []string // normalized, sorted, always includes the schema metadata dir
	AllowedExtraFields []string
	SuggestionDistance int
	Workers            int
}

// RunOptions are the per-invocation inputs folded into a RunConfig.
type RunOptions struct {
	VaultPath          string
	ExtraExcludes      []string // from flags
	AllowedExtraFields []string // from flags
}

// NewRunConfig folds the global config, the schema document's embedded
// config, the environment, and per-invocation options into one RunConfig.
// env is injected for testability; pass os.Getenv in production.
func NewRunConfig(cfg *Config, docCfg *schema.DocumentConfig, opts RunOptions, env func(string) string) RunConfig {
	if env == nil {
		env = os.Getenv
	}

	seen := map[string]bool{}
	var excluded []string
	add := func(entry string) {
		entry = paths.NormalizeExclusion(entry)
		if entry == "" || seen[entry] {
			return
		}
		seen[entry] = true
		excluded = append(excluded, entry)
	}

	add(schema.MetaDirName)
	if cfg != nil {
		for _, e := range cfg.ExcludedDirectories {
			add(e)
		}
	}
	if docCfg != nil {
		for _, e := range docCfg.IgnoredDirectories {
			add(e)
		}
	}
	for _, e := range filepath.SplitList(env(EnvExcludeVar)) {
		add(e)
	}
	for _, e := range opts.ExtraExcludes {
		add(e)
	}
	sort.Strings(excluded)

	allowed := append([]string(nil), opts.AllowedExtraFields...)
	if docCfg != nil {
		allowed = append(allowed, docCfg.AllowedExtraFields...)
	}

	rc := RunConfig{
		VaultPath:          opts.VaultPath,
		ExcludedDirs:       excluded,
		AllowedExtraFields: allowed,
		SuggestionDistance: DefaultSuggestionDistance,
		Workers:            DefaultWorkers,
	}
	if cfg != nil && cfg.SuggestionDistance > 0 {
		rc.SuggestionDistance = cfg.SuggestionDistance
	}
	if cfg != nil && cfg.Workers > 0 {
		rc.Workers = cfg.Workers
	}
	return rc
}

// IsExcludedDir reports whether a directory name or vault-relative
// directory path is excluded from scanning.
func (rc RunConfig) IsExcludedDir(rel string) bool {
	rel = paths.NormalizeExclusion(rel)
	for _, e := range rc.ExcludedDirs {
		if rel == e || filepath.Base(rel) == e {
			return true
		}
	}
	return false
}

// AllowsExtraField reports whether an unknown frontmatter field name is on
// the allow list.
func (rc RunConfig) AllowsExtraField(name string) bool {
	for _, f := range rc.AllowedExtraFields {
		if f == name {
			return true
		}
	}
	return false
}
