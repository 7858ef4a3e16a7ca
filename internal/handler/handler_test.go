package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/modelio/internal/domain"
	"github.com/pkordes/modelio/internal/handler"
	"github.com/pkordes/modelio/internal/logging"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/resource"
	"github.com/pkordes/modelio/internal/service"
	"github.com/pkordes/modelio/internal/tabular"
)

// ---- mock Transferer -------------------------------------------------------

// mockTransferer is a hand-written test double for handler.Transferer.
// Each method is a function field; set only the ones your test needs.
type mockTransferer struct {
	resources func() []service.ResourceInfo
	export    func(ctx context.Context, name string, f tabular.Format, w io.Writer, q repo.Query) error
	imprt     func(ctx context.Context, name string, f tabular.Format, r io.Reader) (*resource.Report, error)
}

func (m *mockTransferer) Resources() []service.ResourceInfo { return m.resources() }
func (m *mockTransferer) Export(ctx context.Context, name string, f tabular.Format, w io.Writer, q repo.Query) error {
	return m.export(ctx, name, f, w, q)
}
func (m *mockTransferer) Import(ctx context.Context, name string, f tabular.Format, r io.Reader) (*resource.Report, error) {
	return m.imprt(ctx, name, f, r)
}

// compile-time check: mockTransferer must satisfy handler.Transferer.
var _ handler.Transferer = (*mockTransferer)(nil)

// ---- helpers ---------------------------------------------------------------

func serve(t *testing.T, svc handler.Transferer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.NewServer(svc, []byte("openapi: 3.0.3\n")).Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

// ---- GET /healthz, /openapi.yaml -------------------------------------------

func TestGetHealth_returns200WithOKStatus(t *testing.T) {
	rec := serve(t, &mockTransferer{}, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestGetOpenAPI_servesDocument(t *testing.T) {
	rec := serve(t, &mockTransferer{}, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "openapi: 3.0.3\n", rec.Body.String())
}

// ---- GET /resources --------------------------------------------------------

func TestListResources(t *testing.T) {
	svc := &mockTransferer{resources: func() []service.ResourceInfo {
		return []service.ResourceInfo{{
			Name:  "stops",
			Model: "stop",
			Fields: []resource.FieldDescriptor{
				{Name: "id", Kind: resource.KindNormal},
				{Name: "trip", Kind: resource.KindForeign, Surrogate: "name"},
			},
		}}
	}}

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/resources", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"stops","model":"stop","fields":[
		{"name":"id","kind":"normal"},
		{"name":"trip","kind":"foreign","surrogate":"name"}
	]}]`, rec.Body.String())
}

func TestListResources_Empty(t *testing.T) {
	svc := &mockTransferer{resources: func() []service.ResourceInfo { return nil }}

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/resources", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// ---- GET /resources/{name}/export ------------------------------------------

func TestExportResource_CSV(t *testing.T) {
	var gotName string
	var gotFormat tabular.Format
	var gotQuery repo.Query
	svc := &mockTransferer{export: func(_ context.Context, name string, f tabular.Format, w io.Writer, q repo.Query) error {
		gotName, gotFormat, gotQuery = name, f, q
		_, err := io.WriteString(w, "id,name\n1,Moab\n")
		return err
	}}

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/resources/stops/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stops", gotName)
	assert.Equal(t, tabular.CSV, gotFormat, "csv is the default")
	assert.Nil(t, gotQuery.IDs, "no id parameter exports everything")
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="stops.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,name\n1,Moab\n", rec.Body.String())
}

// brokenWriter is a ResponseWriter whose client has gone away.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestExportResource_LogsFailedWrite(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&logs, "debug", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc := &mockTransferer{export: func(_ context.Context, _ string, _ tabular.Format, w io.Writer, _ repo.Query) error {
		_, err := io.WriteString(w, "id\n1\n")
		return err
	}}
	w := brokenWriter{httptest.NewRecorder()}

	handler.NewServer(svc, nil).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resources/stops/export", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logs.String(), "export write failed")
	assert.Contains(t, logs.String(), "broken pipe")
}

func TestExportResource_XLSXWithIDs(t *testing.T) {
	var gotFormat tabular.Format
	var gotQuery repo.Query
	svc := &mockTransferer{export: func(_ context.Context, _ string, f tabular.Format, _ io.Writer, q repo.Query) error {
		gotFormat, gotQuery = f, q
		return nil
	}}

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/resources/stops/export?format=xlsx&id=3&id=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tabular.XLSX, gotFormat)
	assert.Equal(t, []int64{3, 1}, gotQuery.IDs)
	assert.Equal(t, tabular.XLSX.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="stops.xlsx"`, rec.Header().Get("Content-Disposition"))
}

func TestExportResource_BadParams(t *testing.T) {
	for _, target := range []string{
		"/resources/stops/export?format=pdf",
		"/resources/stops/export?id=abc",
	} {
		t.Run(target, func(t *testing.T) {
			svc := &mockTransferer{export: func(context.Context, string, tabular.Format, io.Writer, repo.Query) error {
				t.Fatal("service must not be called")
				return nil
			}}

			rec := serve(t, svc, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeError(t, rec).Code)
		})
	}
}

func TestExportResource_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown resource", fmt.Errorf("catalog: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"empty export", resource.ErrNoRecords, http.StatusUnprocessableEntity, "export_error"},
		{"configuration", &resource.ConfigurationError{Resource: "x", Reason: "bad"}, http.StatusUnprocessableEntity, "configuration_error"},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTransferer{export: func(_ context.Context, _ string, _ tabular.Format, w io.Writer, _ repo.Query) error {
				io.WriteString(w, "partial")
				return tc.err
			}}

			rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/resources/stops/export", nil))

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			detail := decodeError(t, rec)
			assert.Equal(t, tc.code, detail.Code)
			assert.NotContains(t, rec.Body.String(), "partial")
		})
	}
}

func TestExportResource_InternalErrorHidesDetails(t *testing.T) {
	svc := &mockTransferer{export: func(context.Context, string, tabular.Format, io.Writer, repo.Query) error {
		return errors.New("password=hunter2")
	}}

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/resources/stops/export", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

// ---- POST /resources/{name}/import -----------------------------------------

func TestImportResource_ReturnsReport(t *testing.T) {
	var gotBody string
	var gotFormat tabular.Format
	svc := &mockTransferer{imprt: func(_ context.Context, name string, f tabular.Format, r io.Reader) (*resource.Report, error) {
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		gotBody, gotFormat = string(data), f
		return &resource.Report{
			RunID:    "run-1",
			Resource: name,
			Created:  1,
			Failed:   1,
			Rows: []resource.RowResult{
				{Line: 2, Action: resource.ActionCreate, Outcome: resource.OutcomeCreated, ID: 9},
				{Line: 3, Action: resource.ActionUpdate, Outcome: resource.OutcomeFailed, Error: "boom"},
			},
		}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/resources/stops/import", strings.NewReader("id,name\n,Moab\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "id,name\n,Moab\n", gotBody)
	assert.Equal(t, tabular.CSV, gotFormat)

	var rep resource.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, "stops", rep.Resource)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "boom", rep.Rows[1].Error)
}

func TestImportResource_FormatFromContentType(t *testing.T) {
	var gotFormat tabular.Format
	svc := &mockTransferer{imprt: func(_ context.Context, _ string, f tabular.Format, _ io.Reader) (*resource.Report, error) {
		gotFormat = f
		return &resource.Report{}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/resources/stops/import", strings.NewReader("x"))
	req.Header.Set("Content-Type", tabular.XLSX.ContentType())
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tabular.XLSX, gotFormat)
}

func TestImportResource_ValidationError(t *testing.T) {
	svc := &mockTransferer{imprt: func(context.Context, string, tabular.Format, io.Reader) (*resource.Report, error) {
		return nil, fmt.Errorf("service.Transfer.Import: %w: %w", domain.ErrValidation, tabular.ErrEmpty)
	}}

	rec := serve(t, svc, httptest.NewRequest(http.MethodPost, "/resources/stops/import?format=csv", strings.NewReader("")))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "validation_error", detail.Code)
	assert.Contains(t, detail.Message, "no header row")
}

func TestImportResource_BodyTooLarge(t *testing.T) {
	svc := &mockTransferer{imprt: func(_ context.Context, _ string, _ tabular.Format, r io.Reader) (*resource.Report, error) {
		_, err := io.ReadAll(r)
		return nil, fmt.Errorf("service.Transfer.Import: %w: %w", domain.ErrValidation, err)
	}}
	h := handler.NewServer(svc, nil).Handler()
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 4)
		h.ServeHTTP(w, r)
	})

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resources/stops/import", strings.NewReader("id,name\n")))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "too_large", decodeError(t, rec).Code)
}

func TestImportResource_BadFormat(t *testing.T) {
	rec := serve(t, &mockTransferer{}, httptest.NewRequest(http.MethodPost, "/resources/stops/import?format=pdf", strings.NewReader("x")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
