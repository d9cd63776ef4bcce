package httpadapter

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

type directivesResponse struct {
	ProductCategory      string               `json:"product_category"`
	ApplicableDirectives []domain.DirectiveID `json:"applicable_directives"`
}

type checklistResponse struct {
	DocumentType   string   `json:"document_type"`
	ChecklistItems []string `json:"checklist_items"`
}

func (rt *Router) listDocumentTypes(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	labels := make(map[string]string)
	for _, docType := range rt.catalog.DocumentTypes() {
		labels[string(docType.ID)] = docType.Label
	}
	writeJSON(w, http.StatusOK, labels)
}

func (rt *Router) listProductCategories(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	labels := make(map[string]string)
	for _, category := range rt.catalog.ProductCategories() {
		labels[string(category.ID)] = category.Label
	}
	writeJSON(w, http.StatusOK, labels)
}

// getDirectives answers unknown categories with an empty list, not 404.
func (rt *Router) getDirectives(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	raw, err := bindPathParam(r, "product_category")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, directivesResponse{
		ProductCategory:      raw,
		ApplicableDirectives: rt.catalog.DirectivesFor(domain.ParseProductCategory(&raw)),
	})
}

func (rt *Router) getChecklist(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	raw, err := bindPathParam(r, "document_type")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checklistResponse{
		DocumentType:   raw,
		ChecklistItems: rt.catalog.ChecklistFor(domain.ParseDocumentType(raw)),
	})
}

func bindPathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind "+name, err)
	}
	return value, nil
}
