package builder

import (
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/urlpath"
)

// pageFilesDir is where a page's attached files are copied: a directory
// named after the page's URL.
func (b *Builder) pageFilesDir(urlPath string) string {
	rel := strings.Trim(urlpath.Normalize(urlPath), "/")
	return filepath.Join(b.cfg.OutputRoot, filepath.FromSlash(rel))
}

// copyPageFiles copies every attached file of p and returns the copied
// names plus one item per file. Failures downgrade the file's item, never
// the page's.
func (b *Builder) copyPageFiles(p content.Page, urlPath string) ([]string, []Item) {
	var (
		names []string
		items []Item
	)
	dir := b.pageFilesDir(urlPath)
	for _, f := range p.Files() {
		item := b.fileItem(p, f, dir)
		dest := filepath.Join(dir, f.Name)
		if !containedIn(b.cfg.OutputRoot, dest) {
			item.Status, item.Reason = StatusIgnore, ReasonOutsideRoot
			items = append(items, item)
			continue
		}
		b.summary.observeModified(f.Modified)
		n, err := copyFile(f.Path, dest)
		if err != nil {
			item.Status, item.Reason = StatusFailed, err.Error()
		} else {
			item.Status = StatusGenerated
			item.Size = sizeOf(n)
			names = append(names, f.Name)
		}
		items = append(items, item)
	}
	return names, items
}

// reportPageFiles classifies attached files without copying.
func (b *Builder) reportPageFiles(p content.Page, urlPath string) {
	dir := b.pageFilesDir(urlPath)
	for _, f := range p.Files() {
		item := b.fileItem(p, f, dir)
		dest := filepath.Join(dir, f.Name)
		if !containedIn(b.cfg.OutputRoot, dest) {
			item.Status, item.Reason = StatusIgnore, ReasonOutsideRoot
		} else {
			b.summary.observeModified(f.Modified)
			item.Status, item.Size = classify(dest, f.Modified)
		}
		b.log(item)
	}
}

func (b *Builder) fileItem(p content.Page, f content.File, dir string) Item {
	return Item{
		Type:   TypeFile,
		URI:    path.Join(p.ID(), f.Name),
		Source: b.relSource(f.Path),
		Dest:   b.relDest(filepath.Join(dir, f.Name)),
	}
}

// relSource renders a source path relative to the project root for display.
func (b *Builder) relSource(p string) string {
	if rel, err := filepath.Rel(b.cfg.ProjectRoot, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(p)
}

func writeFile(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0644)
}

func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// copyDir copies the regular files of a tree and returns the copied byte
// count. Symlinks and other irregular entries are skipped.
func copyDir(src, dest string) (int64, error) {
	var total int64
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(src, p)
		if rerr != nil {
			return rerr
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		n, cerr := copyFile(p, target)
		total += n
		return cerr
	})
	return total, err
}
