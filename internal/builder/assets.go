package builder

import (
	"os"
	"path/filepath"
	"strings"
)

// buildAssets copies the configured asset paths. Assets run last so that
// artifacts generated during the page and route phases already exist.
func (b *Builder) buildAssets() {
	for _, a := range b.cfg.Assets {
		b.buildAsset(a)
	}
}

func (b *Builder) buildAsset(a Asset) {
	item := Item{
		Type:   TypeAsset,
		URI:    strings.Trim(a.Dest, "/"),
		Source: a.Source,
	}

	src := a.Source
	if !filepath.IsAbs(src) {
		src = filepath.Join(b.cfg.ProjectRoot, filepath.FromSlash(a.Source))
	}
	dest := filepath.Join(b.cfg.OutputRoot, filepath.FromSlash(a.Dest))
	item.Dest = b.relDest(dest)

	if !containedIn(b.cfg.OutputRoot, dest) {
		item.Status, item.Reason = StatusIgnore, ReasonOutsideRoot
		b.log(item)
		return
	}

	info, err := os.Stat(src)
	if err != nil {
		item.Status, item.Reason = StatusIgnore, "source not found"
		b.log(item)
		return
	}

	if info.IsDir() {
		item.Type = TypeDir
	} else {
		item.Type = TypeFile
	}

	if b.summary.Mode == ModeReport {
		item.Status, item.Size = classify(dest, info.ModTime())
		b.log(item)
		return
	}

	var n int64
	if info.IsDir() {
		n, err = copyDir(src, dest)
	} else {
		n, err = copyFile(src, dest)
	}
	if err != nil {
		item.Status, item.Reason = StatusFailed, err.Error()
		b.log(item)
		return
	}
	item.Status = StatusGenerated
	item.Size = sizeOf(n)
	b.log(item)
}
