package manifest

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imelnikov/bookrag/internal/core/ports"
)

// Manifest is the declarative list of textbook pages to index. Page paths
// may be relative; they resolve against base_url.
type Manifest struct {
	pages []ports.ManifestPage
}

type manifestFile struct {
	BaseURL  string `yaml:"base_url"`
	Sections []struct {
		Name  string   `yaml:"name"`
		Pages []string `yaml:"pages"`
	} `yaml:"sections"`
}

func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Manifest, error) {
	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(file.Sections) == 0 {
		return nil, fmt.Errorf("manifest has no sections")
	}

	var base *url.URL
	if file.BaseURL != "" {
		parsed, err := url.Parse(file.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base_url: %w", err)
		}
		base = parsed
	}

	m := &Manifest{}
	seen := make(map[string]bool)
	for _, section := range file.Sections {
		for _, page := range section.Pages {
			resolved, err := resolvePage(base, page)
			if err != nil {
				return nil, fmt.Errorf("section %q: %w", section.Name, err)
			}
			if seen[resolved] {
				continue
			}
			seen[resolved] = true
			m.pages = append(m.pages, ports.ManifestPage{
				URL:     resolved,
				Section: section.Name,
			})
		}
	}
	if len(m.pages) == 0 {
		return nil, fmt.Errorf("manifest has no pages")
	}
	return m, nil
}

func (m *Manifest) Pages() []ports.ManifestPage {
	return m.pages
}

func resolvePage(base *url.URL, page string) (string, error) {
	page = strings.TrimSpace(page)
	if page == "" {
		return "", fmt.Errorf("empty page entry")
	}
	if strings.HasPrefix(page, "http://") || strings.HasPrefix(page, "https://") {
		return page, nil
	}
	if base == nil {
		return "", fmt.Errorf("relative page %q without base_url", page)
	}
	ref, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse page %q: %w", page, err)
	}
	return base.ResolveReference(ref).String(), nil
}
