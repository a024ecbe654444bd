package shelvestrategy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"inkreel/internal/errs"
	"inkreel/internal/fileutil"
	"inkreel/internal/jobstore"
)

const (
	StrategyTimeline     = "timeline"
	StrategyFlat         = "flat"
	StrategyZettelkasten = "zettelkasten"

	// InboxDir is where flat/zettelkasten jobs land when no tag_routing rule matches.
	InboxDir = "Inbox"

	defaultNamePattern = "{date}-{slug}"
)

// Result records where a job's artifacts landed for logging and testing.
type Result struct {
	DestinationDir string
	Tag            string
	Files          []string
}

// Place copies every artifact under job.ArtifactsDir() into resultsDir
// according to strategy, applying tag-based routing for the flat and
// zettelkasten strategies, and returns the destination.
func Place(job *jobstore.Job, strategy, resultsDir string, tagRouting map[string]string, enriched jobstore.EnrichedContext) (Result, error) {
	strategy = strings.ToLower(strings.TrimSpace(strategy))
	names, err := artifactNames(job)
	if err != nil {
		return Result{}, err
	}

	switch strategy {
	case StrategyTimeline:
		return placeTimeline(job, resultsDir, names)
	case StrategyFlat, StrategyZettelkasten:
		return placeFlat(job, resultsDir, tagRouting, enriched, names)
	default:
		return Result{}, errs.Wrap(
			errs.ErrConfiguration,
			string(jobstore.StageShelve),
			"resolve strategy",
			fmt.Sprintf("unknown shelve strategy %q", strategy),
			"set shelve.strategy to timeline, flat, or zettelkasten",
			nil,
		)
	}
}

func artifactNames(job *jobstore.Job) ([]string, error) {
	entries, err := os.ReadDir(job.ArtifactsDir())
	if err != nil {
		return nil, errs.Wrap(
			errs.ErrValidation,
			string(jobstore.StageShelve),
			"list artifacts",
			"no artifacts directory to shelve",
			"run generate before shelve",
			err,
		)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, errs.Wrap(
			errs.ErrValidation,
			string(jobstore.StageShelve),
			"list artifacts",
			"artifacts directory is empty",
			"run generate before shelve",
			nil,
		)
	}
	sort.Strings(names)
	return names, nil
}

func placeTimeline(job *jobstore.Job, resultsDir string, names []string) (Result, error) {
	created := job.State.CreatedAt
	dest := filepath.Join(
		resultsDir,
		fmt.Sprintf("%04d", created.Year()),
		fmt.Sprintf("%02d", created.Month()),
		fmt.Sprintf("%02d", created.Day()),
		job.ID,
	)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageShelve), "create destination", "failed to create timeline destination directory", "", err)
	}
	var copied []string
	for _, name := range names {
		src := filepath.Join(job.ArtifactsDir(), name)
		dst := filepath.Join(dest, name)
		if err := copyVerified(src, dst); err != nil {
			return Result{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageShelve), "copy artifact", fmt.Sprintf("failed to copy %s into results library", name), "", err)
		}
		copied = append(copied, dst)
	}
	return Result{DestinationDir: dest, Files: copied}, nil
}

func placeFlat(job *jobstore.Job, resultsDir string, tagRouting map[string]string, enriched jobstore.EnrichedContext, names []string) (Result, error) {
	tag, subdir := routeTag(tagRouting, enriched)
	dest := resultsDir
	if subdir != "" {
		dest = filepath.Join(resultsDir, subdir)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageShelve), "create destination", "failed to create shelve destination directory", "", err)
	}

	slug, title := jobIdentity(job, enriched)
	dateStamp := job.State.CreatedAt.Format("2006-01-02")
	stem := renderNamePattern(defaultNamePattern, job.ID, slug, dateStamp, title)

	var copied []string
	for _, name := range names {
		src := filepath.Join(job.ArtifactsDir(), name)
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		candidate := fmt.Sprintf("%s-%s%s", stem, base, ext)
		dst, err := nextAvailablePath(dest, candidate)
		if err != nil {
			return Result{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageShelve), "allocate filename", "unable to allocate a non-colliding filename", "", err)
		}
		if err := copyVerified(src, dst); err != nil {
			return Result{}, errs.Wrap(errs.ErrTransient, string(jobstore.StageShelve), "copy artifact", fmt.Sprintf("failed to copy %s into results library", name), "", err)
		}
		copied = append(copied, dst)
	}
	return Result{DestinationDir: dest, Tag: tag, Files: copied}, nil
}

// routeTag walks the enriched context's "tags" field (if present) in order
// and returns the first tag that has a non-empty entry in tagRouting. Jobs
// with no matching tag route to InboxDir.
func routeTag(tagRouting map[string]string, enriched jobstore.EnrichedContext) (tag, subdir string) {
	if len(tagRouting) == 0 || enriched == nil {
		return "", InboxDir
	}
	raw, ok := enriched["tags"]
	if !ok {
		return "", InboxDir
	}
	for _, candidate := range stringSlice(raw) {
		if dir, ok := tagRouting[candidate]; ok && strings.TrimSpace(dir) != "" {
			return candidate, dir
		}
	}
	return "", InboxDir
}

func stringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// jobIdentity derives the slug and title tokens used by the naming pattern.
// The slug is the portion of job.ID after its timestamp prefix; the title
// prefers an enriched "title" field and falls back to the slug.
func jobIdentity(job *jobstore.Job, enriched jobstore.EnrichedContext) (slug, title string) {
	slug = job.ID
	if idx := strings.LastIndex(job.ID, "_"); idx >= 0 && idx+1 < len(job.ID) {
		slug = job.ID[idx+1:]
	}
	title = slug
	if enriched != nil {
		if raw, ok := enriched["title"]; ok {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				title = s
			}
		}
	}
	return sanitizeSlug(slug, 0), sanitizeSlug(title, 60)
}

func renderNamePattern(pattern, id, slug, date, title string) string {
	replacer := strings.NewReplacer(
		"{id}", id,
		"{slug}", slug,
		"{date}", date,
		"{title}", title,
	)
	return replacer.Replace(pattern)
}

// sanitizeSlug converts input to a lowercase alphanumeric slug with hyphens.
// maxLen of 0 means unlimited length.
func sanitizeSlug(input string, maxLen int) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var out strings.Builder
	lastHyphen := false
	for _, r := range input {
		if maxLen > 0 && out.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if !lastHyphen {
				out.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(out.String(), "-")
}

// nextAvailablePath returns dir/name, or dir/name-N (before the extension)
// for the smallest N that does not already exist.
func nextAvailablePath(dir, name string) (string, error) {
	const maxAttempts = 10000
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); err != nil {
		if os.IsNotExist(err) {
			return candidate, nil
		}
		return "", err
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, attempt, ext))
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted filename slots in %s for %s", dir, name)
}

// copyVerified copies src to dst, verifying size and content hash to detect
// corruption from a partial or racing write.
func copyVerified(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return fileutil.CopyFileVerified(src, dst)
}
