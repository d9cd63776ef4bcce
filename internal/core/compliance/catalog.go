package compliance

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the static reference data: directives per product category,
// document type labels and checklists. It is immutable once built; accessors
// return copies.
type Catalog struct {
	defaults      []domain.DirectiveID
	categories    []CategoryInfo
	documentTypes []DocumentTypeInfo
	directives    map[domain.ProductCategory][]domain.DirectiveID
	checklists    map[domain.DocumentType][]string
}

type CategoryInfo struct {
	ID         domain.ProductCategory `yaml:"id" json:"id"`
	Label      string                 `yaml:"label" json:"label"`
	Directives []domain.DirectiveID   `yaml:"directives" json:"directives"`
}

type DocumentTypeInfo struct {
	ID        domain.DocumentType `yaml:"id" json:"id"`
	Label     string              `yaml:"label" json:"label"`
	Checklist []string            `yaml:"checklist" json:"checklist"`
}

type catalogFile struct {
	DefaultDirectives []domain.DirectiveID `yaml:"default_directives"`
	ProductCategories []CategoryInfo       `yaml:"product_categories"`
	DocumentTypes     []DocumentTypeInfo   `yaml:"document_types"`
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	catalog, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded directive catalog: %v", err))
	}
	return catalog
})

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// LoadCatalogFile reads a catalog override. An empty path yields the default.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	catalog, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	return catalog, nil
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}

	if len(file.DefaultDirectives) < 2 {
		return nil, fmt.Errorf("default_directives needs at least 2 entries, got %d", len(file.DefaultDirectives))
	}

	catalog := &Catalog{
		defaults:   slices.Clone(file.DefaultDirectives),
		directives: make(map[domain.ProductCategory][]domain.DirectiveID, len(file.ProductCategories)),
		checklists: make(map[domain.DocumentType][]string, len(file.DocumentTypes)),
	}

	for _, category := range file.ProductCategories {
		if category.ID == "" {
			return nil, fmt.Errorf("product category without id")
		}
		if _, dup := catalog.directives[category.ID]; dup {
			return nil, fmt.Errorf("duplicate product category %q", category.ID)
		}
		if len(category.Directives) == 0 {
			return nil, fmt.Errorf("product category %q has no directives", category.ID)
		}
		catalog.directives[category.ID] = slices.Clone(category.Directives)
		catalog.categories = append(catalog.categories, CategoryInfo{
			ID:         category.ID,
			Label:      category.Label,
			Directives: slices.Clone(category.Directives),
		})
	}

	for _, docType := range file.DocumentTypes {
		if domain.ParseDocumentType(string(docType.ID)) != docType.ID {
			return nil, fmt.Errorf("unknown document type %q", docType.ID)
		}
		if _, dup := catalog.checklists[docType.ID]; dup {
			return nil, fmt.Errorf("duplicate document type %q", docType.ID)
		}
		catalog.checklists[docType.ID] = slices.Clone(docType.Checklist)
		catalog.documentTypes = append(catalog.documentTypes, DocumentTypeInfo{
			ID:        docType.ID,
			Label:     docType.Label,
			Checklist: slices.Clone(docType.Checklist),
		})
	}

	return catalog, nil
}

// DirectivesFor returns the ordered directives for a category. Absent or
// unknown categories yield an empty, non-nil slice.
func (c *Catalog) DirectivesFor(category *domain.ProductCategory) []domain.DirectiveID {
	if category == nil {
		return []domain.DirectiveID{}
	}
	directives, ok := c.directives[*category]
	if !ok {
		return []domain.DirectiveID{}
	}
	return slices.Clone(directives)
}

func (c *Catalog) HasCategory(category *domain.ProductCategory) bool {
	if category == nil {
		return false
	}
	_, ok := c.directives[*category]
	return ok
}

func (c *Catalog) DefaultDirectives() []domain.DirectiveID {
	return slices.Clone(c.defaults)
}

// FallbackDirectives is the pair used when no known category applies.
func (c *Catalog) FallbackDirectives() []domain.DirectiveID {
	return slices.Clone(c.defaults[:2])
}

// ChecklistFor returns the checklist items of a document type, empty when none
// are defined.
func (c *Catalog) ChecklistFor(docType domain.DocumentType) []string {
	items, ok := c.checklists[docType]
	if !ok {
		return []string{}
	}
	return slices.Clone(items)
}

func (c *Catalog) ProductCategories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(c.categories))
	for _, category := range c.categories {
		category.Directives = slices.Clone(category.Directives)
		out = append(out, category)
	}
	return out
}

func (c *Catalog) DocumentTypes() []DocumentTypeInfo {
	out := make([]DocumentTypeInfo, 0, len(c.documentTypes))
	for _, docType := range c.documentTypes {
		docType.Checklist = slices.Clone(docType.Checklist)
		out = append(out, docType)
	}
	return out
}
