package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

const (
	multipartMemory    = 8 << 20
	defaultDocType     = "general"
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	formatQueryXLSX    = "xlsx"
	analyzeRoute       = "/v1/analyze"
	errBodyTooLarge    = "request body too large"
	errNoFileProvided  = "No file provided"
	errNoFileSelected  = "No file selected"
	errMultipartNeeded = "multipart form with a 'file' field is required"
)

type analyzeRequest struct {
	DocumentText    string  `json:"document_text"`
	DocumentType    string  `json:"document_type"`
	ProductCategory *string `json:"product_category"`
}

// uploadForm is a parsed multipart upload. Close releases temporary files.
type uploadForm struct {
	file            multipart.File
	header          *multipart.FileHeader
	form            *multipart.Form
	documentType    string
	productCategory *string
}

func (f *uploadForm) request() ports.UploadRequest {
	return ports.UploadRequest{
		Filename:        f.header.Filename,
		MimeType:        f.header.Header.Get("Content-Type"),
		Body:            f.file,
		DocumentType:    f.documentType,
		ProductCategory: f.productCategory,
	}
}

func (f *uploadForm) Close() {
	_ = f.file.Close()
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}

func (rt *Router) analyzeText(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if rt.services.Analyzer == nil {
		unavailable(w)
		return
	}
	rt.limitBody(w, r)

	if err := rt.validator.Validate(r, analyzeRoute, nil); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	if strings.TrimSpace(req.DocumentType) == "" {
		req.DocumentType = defaultDocType
	}

	result := rt.services.Analyzer.Analyze(r.Context(), req.DocumentText, req.DocumentType, req.ProductCategory)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if rt.services.Uploads == nil {
		unavailable(w)
		return
	}
	wantXLSX := strings.EqualFold(r.URL.Query().Get("format"), formatQueryXLSX)

	form, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer form.Close()
	if strings.EqualFold(url.Values(form.form.Value).Get("format"), formatQueryXLSX) {
		wantXLSX = true
	}

	result, err := rt.services.Uploads.AnalyzeUpload(r.Context(), form.request())
	if err != nil {
		rt.writeDomainError(w, r, "analyze_upload", err)
		return
	}

	if wantXLSX {
		rt.writeReport(w, r, *result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) writeReport(w http.ResponseWriter, r *http.Request, result domain.UploadAnalysis) {
	if rt.services.Reports == nil {
		unavailable(w)
		return
	}
	body, err := rt.services.Reports.Render(result)
	if err != nil {
		rt.writeDomainError(w, r, "render_report", err)
		return
	}
	name := strings.TrimSuffix(result.Filename, ".pdf") + "-report.xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (rt *Router) uploadCertificate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if rt.services.Certificates == nil {
		unavailable(w)
		return
	}

	form, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer form.Close()

	screening, err := rt.services.Certificates.Screen(r.Context(), form.header.Filename, form.file)
	if err != nil {
		rt.writeDomainError(w, r, "screen_certificate", err)
		return
	}
	writeJSON(w, http.StatusOK, screening)
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if rt.services.Ingestor == nil {
		unavailable(w)
		return
	}

	form, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer form.Close()

	upload, err := rt.services.Ingestor.Submit(r.Context(), form.request())
	if err != nil {
		rt.writeDomainError(w, r, "submit_upload", err)
		return
	}
	writeJSON(w, http.StatusAccepted, upload)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if rt.services.Reader == nil {
		unavailable(w)
		return
	}

	id, err := bindPathParam(r, "upload_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upload, err := rt.services.Reader.GetByID(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, "get_upload", err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

// readUpload parses the multipart body and writes the error response itself
// when it returns false.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (*uploadForm, bool) {
	rt.limitBody(w, r)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, errMultipartNeeded)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		writeError(w, http.StatusBadRequest, errNoFileProvided)
		return nil, false
	}
	if strings.TrimSpace(header.Filename) == "" {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
		writeError(w, http.StatusBadRequest, errNoFileSelected)
		return nil, false
	}
	if rt.metrics != nil {
		rt.metrics.ObserveUploadSize(header.Size)
	}

	form := &uploadForm{
		file:         file,
		header:       header,
		form:         r.MultipartForm,
		documentType: defaultDocType,
	}
	if values := r.MultipartForm.Value["document_type"]; len(values) > 0 && strings.TrimSpace(values[0]) != "" {
		form.documentType = values[0]
	}
	if values := r.MultipartForm.Value["product_category"]; len(values) > 0 {
		category := values[0]
		form.productCategory = &category
	}
	return form, true
}

func (rt *Router) limitBody(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
}
