package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicegw/internal/invoice"
	"invoicegw/internal/model"
	"invoicegw/internal/service"
	serviceMocks "invoicegw/internal/service/mocks"
)

type filePart struct {
	field    string
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, target string, files []filePart, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newTestApp(svc service.ConvertService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, nil, svc)
	return app
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", Health(nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, Version, body["version"])
	})

	t.Run("database healthy", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing().WillReturnError(nil)

		app := fiber.New()
		app.Get("/health", Health(db))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("database unhealthy", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing().WillReturnError(errors.New("db down"))

		app := fiber.New()
		app.Get("/health", Health(db))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		body := decodeError(t, resp)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidate(t *testing.T) {
	t.Run("missing source part", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		app := newTestApp(svc)

		req := multipartRequest(t, "/api/validate", nil, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INVALID_ARGUMENT", body.Error.Code)
		assert.Equal(t, "Missing file part: source", body.Error.Message)
	})

	t.Run("valid document", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Validate", mock.Anything, mock.AnythingOfType("*model.Upload"), false, "").
			Return(&invoice.ValidationResult{ReportXML: "<report/>", Valid: true, OptionsOK: true}, nil)
		app := newTestApp(svc)

		req := multipartRequest(t, "/api/validate", []filePart{{"source", "invoice.xml", []byte("<xml/>")}}, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/xml")
		data, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "<report/>", string(data))
		svc.AssertExpectations(t)
	})

	t.Run("invalid document keeps report body", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Validate", mock.Anything, mock.AnythingOfType("*model.Upload"), true, "checked by ci").
			Return(&invoice.ValidationResult{ReportXML: "<report>bad</report>", Valid: false, OptionsOK: true}, nil)
		app := newTestApp(svc)

		req := multipartRequest(t, "/api/validate",
			[]filePart{{"source", "invoice.pdf", []byte("%PDF")}},
			map[string]string{"noNotices": "yes", "logAppend": "checked by ci"})
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		data, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "<report>bad</report>", string(data))
		svc.AssertExpectations(t)
	})

	t.Run("rejected options", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Validate", mock.Anything, mock.Anything, false, "").
			Return(nil, invoice.Invalidf("Validation options not recognized"))
		app := newTestApp(svc)

		req := multipartRequest(t, "/api/validate", []filePart{{"source", "invoice.xml", []byte("<xml/>")}}, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestExtract(t *testing.T) {
	t.Run("missing pdf part", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/extract", nil, nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "Missing file part: pdf", body.Error.Message)
	})

	t.Run("returns attachment", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Extract", mock.Anything, mock.AnythingOfType("*model.Upload")).
			Return(&service.Result{Data: []byte("<invoice/>"), ContentType: "application/xml", Filename: "extracted.xml"}, nil)
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/extract", []filePart{{"pdf", "hybrid.pdf", []byte("%PDF")}}, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="extracted.xml"`, resp.Header.Get(fiber.HeaderContentDisposition))
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/xml")
		data, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "<invoice/>", string(data))
	})

	t.Run("no embedded invoice", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Extract", mock.Anything, mock.Anything).
			Return(nil, invoice.Unprocessablef("no invoice XML embedded in PDF"))
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/extract", []filePart{{"pdf", "plain.pdf", []byte("%PDF")}}, nil))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "UNPROCESSABLE", body.Error.Code)
	})
}

func TestA3Only(t *testing.T) {
	svc := new(serviceMocks.MockConvertService)
	svc.On("A3Only", mock.Anything, mock.AnythingOfType("*model.Upload")).
		Return(&service.Result{Data: []byte("%PDF-a3"), ContentType: "application/pdf", Filename: "converted.pdf"}, nil)
	app := newTestApp(svc)

	resp, _ := app.Test(multipartRequest(t, "/api/a3only", []filePart{{"pdf", "in.pdf", []byte("%PDF")}}, nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="converted.pdf"`, resp.Header.Get(fiber.HeaderContentDisposition))
}

func TestCombine(t *testing.T) {
	files := []filePart{
		{"pdf", "in.pdf", []byte("%PDF")},
		{"xml", "invoice.xml", []byte("<xml/>")},
	}

	t.Run("missing xml part", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/combine", files[:1], nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "Missing file part: xml", body.Error.Message)
	})

	t.Run("malformed version", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/combine", files, map[string]string{"version": "two"}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "Invalid integer: two", body.Error.Message)
	})

	t.Run("facturx version 2 rejected", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Combine", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(req invoice.CombineRequest) bool {
			return req.Format == "FX" && req.Version == 2
		})).Return(nil, invoice.Invalidf("Factur-X is only available in version 1"))
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/combine", files, map[string]string{"format": "FX", "version": "2"}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "Factur-X is only available in version 1", body.Error.Message)
	})

	t.Run("defaults and attachments forwarded", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Combine", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(req invoice.CombineRequest) bool {
			return req.Format == "" && req.Version == 1 && !req.IgnoreInputErrors &&
				len(req.Attachments) == 2 &&
				req.Attachments[0].Filename == "terms.pdf" &&
				req.Attachments[1].Filename == "passwd"
		})).Return(&service.Result{Data: []byte("%PDF-3b"), ContentType: "application/pdf", Filename: "combined.pdf"}, nil)
		app := newTestApp(svc)

		withAttachments := append(append([]filePart{}, files...),
			filePart{"attachments", "terms.pdf", []byte("terms")},
			filePart{"attachments", "../../etc/passwd", []byte("x")},
		)
		resp, _ := app.Test(multipartRequest(t, "/api/combine", withAttachments, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="combined.pdf"`, resp.Header.Get(fiber.HeaderContentDisposition))
		svc.AssertExpectations(t)
	})

	t.Run("ignoreInputErrors parsed loosely", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Combine", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(req invoice.CombineRequest) bool {
			return req.IgnoreInputErrors
		})).Return(&service.Result{Data: []byte("%PDF"), ContentType: "application/pdf", Filename: "combined.pdf"}, nil)
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/combine", files, map[string]string{"ignoreInputErrors": "Yes"}))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})
}

func TestVisualize(t *testing.T) {
	xml := []filePart{{"xml", "invoice.xml", []byte("<xml/>")}}

	t.Run("defaults to html in english", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Visualize", mock.Anything, mock.Anything, "html", "en").
			Return(&service.Result{Data: []byte("<html/>"), ContentType: "text/html", Filename: "visualization.html"}, nil)
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/visualize", xml, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="visualization.html"`, resp.Header.Get(fiber.HeaderContentDisposition))
		svc.AssertExpectations(t)
	})

	t.Run("unknown language rejected", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("Visualize", mock.Anything, mock.Anything, "pdf", "xx").
			Return(nil, invoice.Invalidf("language must be en, de, or fr"))
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/visualize", xml, map[string]string{"format": "pdf", "language": "xx"}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "language must be en, de, or fr", body.Error.Message)
	})
}

func TestUpgrade(t *testing.T) {
	svc := new(serviceMocks.MockConvertService)
	svc.On("Upgrade", mock.Anything, mock.AnythingOfType("*model.Upload")).
		Return(&service.Result{Data: []byte("<CrossIndustryInvoice/>"), ContentType: "application/xml", Filename: "upgraded.xml"}, nil)
	app := newTestApp(svc)

	resp, _ := app.Test(multipartRequest(t, "/api/upgrade", []filePart{{"xml", "zf1.xml", []byte("<xml/>")}}, nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="upgraded.xml"`, resp.Header.Get(fiber.HeaderContentDisposition))
}

func TestToUBL(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("ToUBL", mock.Anything, mock.AnythingOfType("*model.Upload")).
			Return(&service.Result{Data: []byte("<Invoice/>"), ContentType: "application/xml", Filename: "ubl.xml"}, nil)
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/ubl", []filePart{{"xml", "cii.xml", []byte("<xml/>")}}, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="ubl.xml"`, resp.Header.Get(fiber.HeaderContentDisposition))
	})

	t.Run("engine failure maps to internal error", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("ToUBL", mock.Anything, mock.Anything).Return(nil, errors.New("converter crashed"))
		app := newTestApp(svc)

		resp, _ := app.Test(multipartRequest(t, "/api/ubl", []filePart{{"xml", "cii.xml", []byte("<xml/>")}}, nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.Equal(t, "converter crashed", body.Error.Message)
	})
}

func TestListJobs(t *testing.T) {
	t.Run("returns recent jobs", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("RecentJobs", mock.Anything, 20).Return([]model.Job{
			{ID: "a1", Operation: "extract", Status: model.JobStatusOK, CreatedAt: time.Now()},
		}, nil)
		app := newTestApp(svc)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data []model.Job `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "extract", body.Data[0].Operation)
	})

	t.Run("custom limit", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		svc.On("RecentJobs", mock.Anything, 5).Return([]model.Job{}, nil)
		app := newTestApp(svc)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/jobs?limit=5", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("malformed limit", func(t *testing.T) {
		svc := new(serviceMocks.MockConvertService)
		app := newTestApp(svc)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/jobs?limit=abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
