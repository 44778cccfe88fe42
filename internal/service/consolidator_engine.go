package service

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

// modeExtensions maps each consolidation mode to the file extensions it
// collects. The universal set is the union of the language sets plus
// common config formats.
var modeExtensions = map[models.ConsolidationMode][]string{
	models.ModeJava:   {".java", ".properties", ".xml", ".gradle"},
	models.ModeJSTS:   {".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".json"},
	models.ModePython: {".py", ".pyi", ".toml", ".cfg", ".ini"},
	models.ModeWeb:    {".html", ".css", ".scss", ".js", ".jsx", ".ts", ".tsx", ".vue"},
	models.ModeUniversal: {
		".java", ".properties", ".gradle",
		".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
		".py", ".pyi",
		".html", ".css", ".scss", ".vue",
		".json", ".xml", ".yaml", ".yml", ".toml", ".cfg", ".ini",
		".md", ".txt", ".sql", ".sh",
	},
}

// maxConsolidatedFileBytes caps individual source files; bigger ones are
// almost certainly generated or binary-ish and get skipped with a warning.
const maxConsolidatedFileBytes = 5 << 20

// partialCopyThreshold is the Jaccard similarity over shared file hashes
// above which two projects are flagged as partial copies.
const partialCopyThreshold = 0.6

// ConsolidatedProject is the outcome of flattening one project archive into
// a single annotated text document.
type ConsolidatedProject struct {
	Name       string   `json:"project"`
	Content    string   `json:"content"`
	FileCount  int      `json:"file_count"`
	SizeBytes  int64    `json:"size_bytes"`
	Skipped    []string `json:"skipped,omitempty"`
	fileHashes map[string]string
}

// resolveExtensions returns the lowercase extension set for a mode. Custom
// mode requires an explicit list.
func resolveExtensions(mode models.ConsolidationMode, custom []string) (map[string]bool, error) {
	var source []string
	if mode == models.ModeCustom {
		if len(custom) == 0 {
			return nil, fmt.Errorf("custom mode requires an extension list")
		}
		source = custom
	} else {
		set, ok := modeExtensions[mode]
		if !ok {
			return nil, fmt.Errorf("unknown consolidation mode %q", mode)
		}
		source = set
	}

	exts := make(map[string]bool, len(source))
	for _, e := range source {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	if len(exts) == 0 {
		return nil, fmt.Errorf("extension list resolved empty")
	}
	return exts, nil
}

// isTestPath applies path heuristics to detect test files across the
// supported ecosystems.
func isTestPath(p string) bool {
	lower := strings.ToLower(p)
	for _, segment := range strings.Split(lower, "/") {
		switch segment {
		case "test", "tests", "__tests__", "spec", "specs", "testing":
			return true
		}
	}

	base := path.Base(lower)
	name := strings.TrimSuffix(base, path.Ext(base))
	if strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "spec_") {
		return true
	}
	if strings.HasSuffix(name, "_test") || strings.HasSuffix(name, ".test") || strings.HasSuffix(name, ".spec") {
		return true
	}
	if strings.HasSuffix(name, "test") && path.Ext(base) == ".java" {
		return true
	}
	return false
}

// skippableEntry filters archive noise that should never be consolidated.
func skippableEntry(p string) bool {
	lower := strings.ToLower(p)
	for _, segment := range strings.Split(lower, "/") {
		switch segment {
		case "node_modules", ".git", "target", "build", "dist", "__pycache__", ".idea", ".vscode", "venv", ".venv", "__macosx":
			return true
		}
	}
	return strings.HasPrefix(path.Base(lower), ".")
}

// consolidateArchive flattens a zip into one text document: every matching
// file concatenated in path order, each preceded by a header naming it.
func consolidateArchive(r *zip.Reader, projectName string, exts map[string]bool, includeTests bool) (*ConsolidatedProject, error) {
	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	result := &ConsolidatedProject{
		Name:       projectName,
		fileHashes: make(map[string]string),
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("PROYECTO: %s\n\n", projectName))

	for _, f := range files {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if skippableEntry(name) {
			continue
		}
		if !exts[strings.ToLower(path.Ext(name))] {
			continue
		}
		if !includeTests && isTestPath(name) {
			result.Skipped = append(result.Skipped, name+" (test)")
			continue
		}
		if f.UncompressedSize64 > maxConsolidatedFileBytes {
			result.Skipped = append(result.Skipped, name+" (too large)")
			continue
		}

		rc, err := f.Open()
		if err != nil {
			result.Skipped = append(result.Skipped, name+" (unreadable)")
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxConsolidatedFileBytes+1))
		rc.Close()
		if err != nil || len(data) > maxConsolidatedFileBytes {
			result.Skipped = append(result.Skipped, name+" (unreadable)")
			continue
		}

		sum := sha256.Sum256(data)
		result.fileHashes[name] = hex.EncodeToString(sum[:])

		sb.WriteString(fmt.Sprintf("===== %s =====\n", name))
		sb.Write(data)
		if len(data) == 0 || data[len(data)-1] != '\n' {
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')

		result.FileCount++
		result.SizeBytes += int64(len(data))
	}

	if result.FileCount == 0 {
		return result, fmt.Errorf("no files matched the selected extensions")
	}

	result.Content = sb.String()
	return result, nil
}

// projectHash identifies a whole project by the sorted set of its file
// content hashes, so renamed paths still collide.
func projectHash(p *ConsolidatedProject) string {
	hashes := make([]string, 0, len(p.fileHashes))
	for _, h := range p.fileHashes {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	sum := sha256.Sum256([]byte(strings.Join(hashes, "|")))
	return hex.EncodeToString(sum[:])
}

// analyzeSimilarity cross-checks the consolidated projects of one batch:
// identical projects, partial copies and the most duplicated files.
func analyzeSimilarity(projects []*ConsolidatedProject) *models.SimilarityReport {
	report := &models.SimilarityReport{}

	// Identical groups by whole-project hash.
	byProject := make(map[string][]string)
	for _, p := range projects {
		if len(p.fileHashes) == 0 {
			continue
		}
		h := projectHash(p)
		byProject[h] = append(byProject[h], p.Name)
	}
	for _, students := range byProject {
		if len(students) > 1 {
			sort.Strings(students)
			report.IdenticalGroups = append(report.IdenticalGroups, students)
		}
	}
	sort.Slice(report.IdenticalGroups, func(i, j int) bool {
		return report.IdenticalGroups[i][0] < report.IdenticalGroups[j][0]
	})

	// Partial copies by Jaccard over file hash sets.
	hashSets := make([]map[string]bool, len(projects))
	for i, p := range projects {
		set := make(map[string]bool, len(p.fileHashes))
		for _, h := range p.fileHashes {
			set[h] = true
		}
		hashSets[i] = set
	}
	for i := 0; i < len(projects); i++ {
		for j := i + 1; j < len(projects); j++ {
			shared, similarity := jaccard(hashSets[i], hashSets[j])
			if similarity >= partialCopyThreshold && similarity < 1.0 {
				report.PartialCopies = append(report.PartialCopies, models.PartialCopy{
					StudentA:    projects[i].Name,
					StudentB:    projects[j].Name,
					Similarity:  similarity,
					SharedFiles: shared,
				})
			}
		}
	}
	sort.Slice(report.PartialCopies, func(i, j int) bool {
		return report.PartialCopies[i].Similarity > report.PartialCopies[j].Similarity
	})

	// Most duplicated individual files.
	type occurrence struct {
		name     string
		students map[string]bool
	}
	byFile := make(map[string]*occurrence)
	for _, p := range projects {
		for name, h := range p.fileHashes {
			occ := byFile[h]
			if occ == nil {
				occ = &occurrence{name: path.Base(name), students: make(map[string]bool)}
				byFile[h] = occ
			}
			occ.students[p.Name] = true
		}
	}
	for _, occ := range byFile {
		if len(occ.students) < 2 {
			continue
		}
		students := make([]string, 0, len(occ.students))
		for s := range occ.students {
			students = append(students, s)
		}
		sort.Strings(students)
		report.DuplicatedFiles = append(report.DuplicatedFiles, models.DuplicatedFile{
			FileName: occ.name,
			Students: students,
		})
	}
	sort.Slice(report.DuplicatedFiles, func(i, j int) bool {
		if len(report.DuplicatedFiles[i].Students) != len(report.DuplicatedFiles[j].Students) {
			return len(report.DuplicatedFiles[i].Students) > len(report.DuplicatedFiles[j].Students)
		}
		return report.DuplicatedFiles[i].FileName < report.DuplicatedFiles[j].FileName
	})
	if len(report.DuplicatedFiles) > 20 {
		report.DuplicatedFiles = report.DuplicatedFiles[:20]
	}

	return report
}

func jaccard(a, b map[string]bool) (shared int, similarity float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	for h := range a {
		if b[h] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return shared, 0
	}
	return shared, float64(shared) / float64(union)
}
