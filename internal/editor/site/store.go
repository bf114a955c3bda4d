package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/pkg/pattern"
	"github.com/edgecomet/seoeditor/pkg/types"
)

var (
	ErrNoDefaultPage = errors.New("no default page found")
	ErrPageNotFound  = errors.New("page not found")
	ErrFileNotFound  = errors.New("file not found")
	ErrSaveFailed    = errors.New("failed to save file")
)

// Page file extensions, in discovery order
const (
	ExtHTML = ".html"
	ExtPHP  = ".php"
)

// ScanTimeFormat is the layout of ScanSummary.LastScan
const ScanTimeFormat = "2006-01-02 15:04:05"

// Page is a discovered page file
type Page struct {
	// Path is relative to the site root, slash separated, e.g. "blog/post.html".
	Path    string
	ModTime time.Time
}

// Store reads and writes the page files below a site root.
// All paths taken and returned are relative to the root and slash separated.
type Store struct {
	root        string
	contentDirs []string
	exclude     pattern.Set
	backup      configtypes.BackupConfig
	logger      *zap.Logger
	now         func() time.Time

	saveMu sync.Mutex
}

// NewStore opens the site root. The root must be an existing directory.
func NewStore(siteCfg configtypes.SiteConfig, backupCfg configtypes.BackupConfig, logger *zap.Logger) (*Store, error) {
	root, err := filepath.Abs(siteCfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site root %s: %w", siteCfg.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("site root is not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site root is not a directory: %s", root)
	}

	exclude, err := pattern.CompileSet(siteCfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid site.exclude: %w", err)
	}

	return &Store{
		root:        root,
		contentDirs: siteCfg.ContentDirs,
		exclude:     exclude,
		backup:      backupCfg,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Root returns the absolute site root
func (s *Store) Root() string {
	return s.root
}

// Pages lists *.html then *.php in the root, then in each content directory.
// Missing content directories are skipped.
func (s *Store) Pages() ([]Page, error) {
	pages, err := s.pagesIn("")
	if err != nil {
		return nil, err
	}

	for _, dir := range s.contentDirs {
		rel := CleanPath(dir)
		if rel == "" || !s.isDir(rel) {
			continue
		}
		dirPages, err := s.pagesIn(rel)
		if err != nil {
			return nil, err
		}
		pages = append(pages, dirPages...)
	}

	return pages, nil
}

// pagesIn lists page files directly inside dir, html before php, lexical within each
func (s *Store) pagesIn(dir string) ([]Page, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.abs(dir), err)
	}

	var html, php []Page
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ext := path.Ext(name)
		if ext != ExtHTML && ext != ExtPHP {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		page := Page{Path: path.Join(dir, name), ModTime: info.ModTime()}
		if s.exclude.Match(page.Path) {
			continue
		}
		if ext == ExtHTML {
			html = append(html, page)
		} else {
			php = append(php, page)
		}
	}

	return append(html, php...), nil
}

// Resolve maps a requested page path to an existing file.
// "/" and "" select index.html, index.php, the first root html file, then the
// first root php file. A path without a page extension is retried with .html and .php.
func (s *Store) Resolve(requested string) (string, error) {
	if isDefaultPath(requested) {
		for _, candidate := range []string{"index" + ExtHTML, "index" + ExtPHP} {
			if s.isFile(candidate) {
				return candidate, nil
			}
		}

		pages, err := s.pagesIn("")
		if err != nil {
			return "", err
		}
		if len(pages) == 0 {
			return "", ErrNoDefaultPage
		}
		return pages[0].Path, nil
	}

	rel := CleanPath(requested)
	if rel == "" {
		return "", ErrPageNotFound
	}

	if !s.exists(rel) && !hasPageExt(rel) {
		for _, ext := range []string{ExtHTML, ExtPHP} {
			if s.exists(rel + ext) {
				rel += ext
				break
			}
		}
	}

	if !s.isFile(rel) {
		return "", fmt.Errorf("%w: %s", ErrPageNotFound, requested)
	}
	return rel, nil
}

// ResolveForAnalysis is the stricter lookup used by the audit: "/" only falls back
// to index.html or index.php, and no extension guessing is done.
func (s *Store) ResolveForAnalysis(requested string) (string, error) {
	if isDefaultPath(requested) {
		for _, candidate := range []string{"index" + ExtHTML, "index" + ExtPHP} {
			if s.isFile(candidate) {
				return candidate, nil
			}
		}
		return "", ErrPageNotFound
	}

	rel := CleanPath(requested)
	if rel == "" || !s.isFile(rel) {
		return "", fmt.Errorf("%w: %s", ErrPageNotFound, requested)
	}
	return rel, nil
}

// Read returns the content and modification time of a page
func (s *Store) Read(rel string) (string, time.Time, error) {
	rel = CleanPath(rel)
	if rel == "" {
		return "", time.Time{}, ErrFileNotFound
	}

	info, err := os.Stat(s.abs(rel))
	if err != nil || info.IsDir() || s.exclude.Match(rel) {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrFileNotFound, rel)
	}

	content, err := os.ReadFile(s.abs(rel))
	if err != nil {
		s.logger.Error("Failed to read page",
			zap.String("file_path", rel),
			zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	return string(content), info.ModTime(), nil
}

// Save replaces the content of an existing page. The previous content is first
// written to a backup next to the page, then the page is replaced atomically.
// It returns the backup path, or "" when backups are disabled.
func (s *Store) Save(rel, content string) (string, error) {
	rel = CleanPath(rel)
	if rel == "" {
		return "", ErrFileNotFound
	}
	target := s.abs(rel)

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	info, err := os.Stat(target)
	if err != nil || info.IsDir() || s.exclude.Match(rel) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, rel)
	}

	var backupRel string
	if s.backup.IsEnabled() {
		backupRel, err = s.writeBackup(rel, info.Mode().Perm())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
		}
	}

	if err := writeAtomic(target, []byte(content), info.Mode().Perm()); err != nil {
		s.logger.Error("Failed to write page",
			zap.String("file_path", rel),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	s.logger.Debug("Page saved",
		zap.String("file_path", rel),
		zap.String("backup", backupRel),
		zap.Int("size_bytes", len(content)))

	return backupRel, nil
}

// writeBackup copies the current page content to <page>.bak, compressed when
// configured. Backups left by a different compression setting are removed.
func (s *Store) writeBackup(rel string, perm fs.FileMode) (string, error) {
	original, err := os.ReadFile(s.abs(rel))
	if err != nil {
		return "", fmt.Errorf("failed to read page for backup: %w", err)
	}

	data, ext, err := Compress(original, s.backup.Compression)
	if err != nil {
		return "", err
	}

	backupRel := rel + types.BackupSuffix + ext
	if err := writeAtomic(s.abs(backupRel), data, perm); err != nil {
		s.logger.Error("Failed to write backup",
			zap.String("file_path", rel),
			zap.String("backup", backupRel),
			zap.Error(err))
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	for _, variant := range backupVariants(rel) {
		if variant != backupRel {
			_ = os.Remove(s.abs(variant))
		}
	}

	return backupRel, nil
}

// ReadBackup returns the decompressed backup of a page
func (s *Store) ReadBackup(rel string) (string, error) {
	rel = CleanPath(rel)
	if rel == "" {
		return "", ErrFileNotFound
	}

	for _, variant := range backupVariants(rel) {
		data, err := os.ReadFile(s.abs(variant))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read backup %s: %w", variant, err)
		}
		decoded, err := Decompress(data, variant)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	return "", fmt.Errorf("%w: no backup for %s", ErrFileNotFound, rel)
}

// Scan counts the page files and the visible directories in the site root
func (s *Store) Scan() (types.ScanSummary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return types.ScanSummary{}, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}

	summary := types.ScanSummary{LastScan: s.now().Format(ScanTimeFormat)}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		switch {
		case entry.IsDir():
			summary.Directories++
		case path.Ext(name) == ExtHTML:
			summary.HTMLFiles++
		case path.Ext(name) == ExtPHP:
			summary.PHPFiles++
		}
	}
	summary.TotalFiles = summary.HTMLFiles + summary.PHPFiles

	return summary, nil
}

func (s *Store) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *Store) exists(rel string) bool {
	_, err := os.Stat(s.abs(rel))
	return err == nil
}

func (s *Store) isFile(rel string) bool {
	if s.exclude.Match(rel) {
		return false
	}
	info, err := os.Stat(s.abs(rel))
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) isDir(rel string) bool {
	info, err := os.Stat(s.abs(rel))
	return err == nil && info.IsDir()
}

// CleanPath normalises a requested path to a root relative one. Leading "/" and
// "./" are dropped and ".." segments cannot climb above the root.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func isDefaultPath(p string) bool {
	return p == "" || p == "/"
}

func hasPageExt(p string) bool {
	ext := path.Ext(p)
	return ext == ExtHTML || ext == ExtPHP
}

// writeAtomic writes data to a temp file in the target directory and renames it into place
func writeAtomic(target string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
