package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vbonduro/nutritionist/internal/analysis"
)

// maxImageSize is the largest inline image the Gemini API accepts.
const maxImageSize = 20 << 20

// maxBodySize leaves room for the query field and multipart framing. It is
// also the in-memory budget for form parsing, so an accepted body never spills
// into temporary files.
const maxBodySize = maxImageSize + 1<<20

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var (
	errBadForm          = errors.New("failed to parse form")
	errImageTooLarge    = errors.New("image is too large (20 MB max)")
	errUnsupportedImage = errors.New("unsupported image format: upload a JPG, PNG or WEBP photo")
	errReadImage        = errors.New("failed to read image")
)

// submission is one user action: the optional photo and the free-text query.
type submission struct {
	query string
	image *analysis.Image
}

// imageMIME sniffs data and reports the MIME type to forward. The declared type
// is kept when it names an accepted format; otherwise the detected one is used.
func imageMIME(declared string, data []byte) (string, bool) {
	detected := mimetype.Detect(data).String()
	if !allowedImageTypes[detected] {
		return "", false
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil && allowedImageTypes[mt] {
		return mt, true
	}
	return detected, true
}

// readSubmission extracts the query and photo from a form post. A missing photo
// is not an error here: it is left nil for the pipeline to reject.
func readSubmission(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := r.ParseMultipartForm(maxBodySize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
			return submission{}, errImageTooLarge
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				return submission{}, errBadForm
			}
			return submission{query: r.FormValue("query")}, nil
		default:
			return submission{}, errBadForm
		}
	}

	sub := submission{query: r.FormValue("query")}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return sub, nil
	}
	if err != nil {
		return sub, errBadForm
	}
	defer closeWithLog(file, "upload file", logger)

	if header.Size > maxImageSize {
		return sub, errImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		logger.Error("read upload failed", "request_id", requestIDFrom(r.Context()), "error", err)
		return sub, errReadImage
	}
	if len(data) > maxImageSize {
		return sub, errImageTooLarge
	}

	mimeType, ok := imageMIME(header.Header.Get("Content-Type"), data)
	if !ok {
		return sub, errUnsupportedImage
	}

	sub.image = &analysis.Image{MIMEType: mimeType, Data: data}
	return sub, nil
}

// reportView is what the report partial renders.
type reportView struct {
	Submitted bool
	OK        bool
	Report    string
	Error     string
}

func newReportView(res analysis.Result) reportView {
	if res.OK() {
		return reportView{Submitted: true, OK: true, Report: res.Text()}
	}
	msg := res.Reason()
	if errors.Is(res.Err(), analysis.ErrNoImage) {
		msg = "Please upload an image before submitting."
	}
	return reportView{Submitted: true, Error: msg}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderReportPage(w, r, "", reportView{})
}

// handleAnalyze serves the HTML form post. Every outcome is rendered with
// status 200 so htmx swaps the banner into the page.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sub, err := readSubmission(w, r, s.logger)
	if err != nil {
		s.respondReport(w, r, sub.query, reportView{Submitted: true, Error: err.Error()})
		return
	}

	res := s.pipeline.Analyze(r.Context(), sub.image, sub.query)
	if !res.OK() {
		s.logger.Warn("analysis failed",
			"request_id", requestIDFrom(r.Context()),
			"kind", res.ErrorKind().String(),
			"reason", res.Reason(),
		)
	}
	s.respondReport(w, r, sub.query, newReportView(res))
}

// respondReport renders only the report fragment for htmx, or the whole page.
func (s *Server) respondReport(w http.ResponseWriter, r *http.Request, query string, view reportView) {
	if r.Header.Get("HX-Request") == "true" {
		if err := s.renderPartial(w, "partials/report.html", view); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}
	s.renderReportPage(w, r, query, view)
}

func (s *Server) renderReportPage(w http.ResponseWriter, r *http.Request, query string, view reportView) {
	if err := s.renderPage(w,
		map[string]any{"Query": query, "Report": view},
		"base.html", "pages/index.html", "partials/report.html",
	); err != nil {
		s.logger.Error("render page failed", "request_id", requestIDFrom(r.Context()), "error", err)
	}
}

type apiResponse struct {
	Status    string `json:"status"`
	Report    string `json:"report,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// handleAPIAnalyze is the JSON counterpart of handleAnalyze. The report is
// returned exactly as the model produced it.
func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	id := requestIDFrom(r.Context())

	sub, err := readSubmission(w, r, s.logger)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, errImageTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, errUnsupportedImage):
			status = http.StatusUnsupportedMediaType
		case errors.Is(err, errReadImage):
			status = http.StatusInternalServerError
		}
		s.writeJSON(w, status, apiResponse{Status: "failure", Error: err.Error(), RequestID: id})
		return
	}

	res := s.pipeline.Analyze(r.Context(), sub.image, sub.query)
	if res.OK() {
		s.writeJSON(w, http.StatusOK, apiResponse{Status: "success", Report: res.Text(), RequestID: id})
		return
	}

	status := http.StatusBadGateway
	if res.ErrorKind() == analysis.InputError {
		status = http.StatusBadRequest
	}
	s.logger.Warn("analysis failed", "request_id", id, "kind", res.ErrorKind().String(), "reason", res.Reason())
	s.writeJSON(w, status, apiResponse{Status: "failure", Error: res.Reason(), RequestID: id})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write json failed", "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
