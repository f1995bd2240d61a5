package kirby

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mogelbrod/kirby-staticbuilder/internal/content"
	"github.com/mogelbrod/kirby-staticbuilder/internal/logfields"
)

var sortPrefix = regexp.MustCompile(`^(\d+)[_-](.+)$`)

// splitDirName separates the numeric sort prefix from a page directory
// name. A prefix marks the page visible.
func splitDirName(name string) (num int, slug string, visible bool) {
	if m := sortPrefix.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, m[2], true
	}
	return 0, name, false
}

func (s *Site) scanChildren(dir, parentID string) ([]*Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var pages []*Page
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := s.scanPage(filepath.Join(dir, e.Name()), e.Name(), parentID)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	sortPages(pages)
	return pages, nil
}

// sortPages orders visible pages by sort prefix before invisible ones by
// slug.
func sortPages(pages []*Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		a, b := pages[i], pages[j]
		if a.visible != b.visible {
			return a.visible
		}
		if a.visible && a.num != b.num {
			return a.num < b.num
		}
		return a.slug < b.slug
	})
}

func (s *Site) scanPage(dir, dirName, parentID string) (*Page, error) {
	num, slug, visible := splitDirName(dirName)
	id := slug
	if parentID != "" {
		id = parentID + "/" + slug
	}
	p := &Page{
		site:    s,
		id:      id,
		slug:    slug,
		dir:     dir,
		num:     num,
		visible: visible,
		content: make(map[string]*contentFile),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if base, ok := strings.CutSuffix(name, ".txt"); ok {
			s.scanTextFile(p, filepath.Join(dir, name), base)
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		p.files = append(p.files, content.File{
			Name:     name,
			Path:     path,
			Size:     info.Size(),
			Modified: s.modTime(path, info.ModTime()),
		})
	}

	children, err := s.scanChildren(dir, id)
	if err != nil {
		return nil, err
	}
	p.children = children

	s.index[id] = p
	return p, nil
}

// scanTextFile sorts a .txt entry into the page: <template>.txt is the
// content file, <template>.<lang>.txt a translation, and anything with a
// further inner extension like image.jpg.txt is attachment metadata and
// skipped.
func (s *Site) scanTextFile(p *Page, path, base string) {
	lang := ""
	tpl := base
	if i := strings.LastIndex(base, "."); i >= 0 {
		tpl, lang = base[:i], base[i+1:]
		if !s.isLanguage(lang) {
			return
		}
	}
	if p.content[lang] != nil {
		s.logger.Warn("multiple content files for page, keeping first",
			logfields.Page(p.id),
			logfields.Path(path))
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	p.content[lang] = &contentFile{
		path:     path,
		modified: s.modTime(path, info.ModTime()),
		fields:   ParseFields(data),
	}
	if p.template == "" {
		p.template = tpl
	}
}

func (s *Site) isLanguage(code string) bool {
	for _, l := range s.cfg.Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}
