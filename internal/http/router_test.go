package http_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/catalog"
	"github.com/MrJamesThe3rd/gastos/internal/gasto"
	gastostore "github.com/MrJamesThe3rd/gastos/internal/gasto/store"
	"github.com/MrJamesThe3rd/gastos/internal/graph"
	gastosHttp "github.com/MrJamesThe3rd/gastos/internal/http"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint/sharepointtest"
	"github.com/MrJamesThe3rd/gastos/internal/workspace"
)

const register = `Nro;Tipo Doc;Tipo Compra;RUT Proveedor;Razon Social;Folio;Fecha Docto;Monto Total
1;33;Del Giro;77.987.654-k;CAFE EL PUERTO LTDA;5512;07/03/2026;45000
`

const facturaJSON = `{"fecha":"2026-03-04T00:00:00Z","empresaId":"76.123.456-7","categoria":"Viajes",` +
	`"tipoDocumento":"Factura","numeroDocumento":"1001","monto":119000,"detalle":"Materiales"}`

type server struct {
	t        *testing.T
	fake     *sharepointtest.Fake
	sessions *session.Registry
	handler  http.Handler
	token    string
}

func newServer(t *testing.T) *server {
	t.Helper()

	return newServerWith(t, false, nil)
}

// newServerWith lets prepare alter the remote lists before the router is built.
func newServerWith(t *testing.T, strict bool, prepare func(*sharepointtest.Fake)) *server {
	t.Helper()

	fake := sharepointtest.New()

	empresas := fake.AddList("Empresas",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.TextColumn("RUT", "RUT"),
		sharepointtest.ChoiceColumn("Categoria", "Categoría", "Empresa", "Persona Natural"),
	)
	proyectos := fake.AddList("Proyectos", sharepointtest.TextColumn("Title", "Title"))
	fake.AddList("Colaboradores",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.TextColumn("Email", "Email"),
	)
	fake.AddList("Categorias", sharepointtest.TextColumn("Title", "Title"))
	fake.AddList("TiposDocumento", sharepointtest.TextColumn("Title", "Title"))
	fake.AddLibrary("Adjuntos")
	fake.AddList("Gastos",
		sharepointtest.TextColumn("Title", "Title"),
		sharepointtest.DateTimeColumn("Fecha", "Fecha"),
		sharepointtest.LookupColumn("Empresa", "Empresa", empresas),
		sharepointtest.TextColumn("Categoria", "Categoría"),
		sharepointtest.TextColumn("TipoDocumento", "Tipo Documento"),
		sharepointtest.TextColumn("NumeroDocumento", "Número Documento"),
		sharepointtest.CurrencyColumn("Monto", "Monto"),
		sharepointtest.NoteColumn("Detalle", "Detalle"),
		sharepointtest.LookupColumn("Proyecto", "Proyecto", proyectos),
		sharepointtest.TextColumn("ComentarioTipoDocumento", "Comentario Tipo Documento"),
		sharepointtest.NoteColumn("ArchivosAdjuntos", "Archivos Adjuntos"),
		sharepointtest.PersonColumn("Solicitante", "Solicitante"),
	)

	fake.Seed("Empresas", map[string]any{"Title": "Ferretería Los Andes SpA", "RUT": "76.123.456-7", "Categoria": "Empresa"})
	fake.Seed("Proyectos", map[string]any{"Title": "Proyecto Alpha"})
	fake.Seed("Colaboradores", map[string]any{"Title": "Ana", "Email": "ana@example.com"})
	fake.Seed("Categorias", map[string]any{"Title": "Viajes"})
	fake.Seed("TiposDocumento", map[string]any{"Title": "Factura"})

	if prepare != nil {
		prepare(fake)
	}

	settings := workspace.Settings{
		Site: sharepoint.SiteRef{Host: sharepointtest.Host, Path: sharepointtest.Path},
		Lists: gastostore.Lists{
			Gastos:         "Gastos",
			Adjuntos:       "Adjuntos",
			Empresas:       "Empresas",
			Proyectos:      "Proyectos",
			Colaboradores:  "Colaboradores",
			Categorias:     "Categorias",
			TiposDocumento: "TiposDocumento",
		},
	}

	log := slog.New(slog.DiscardHandler)
	sessions := session.NewRegistry(time.Hour, log)
	// one journal for the whole server, as in production
	tracker := attachment.NewTracker(nil, log)

	build := func(tokens *auth.Provider, cache *sharepoint.Cache) *workspace.Workspace {
		return workspace.New(fake, cache, tokens, settings, tracker, log)
	}

	return &server{
		t:        t,
		fake:     fake,
		sessions: sessions,
		handler: gastosHttp.New(gastosHttp.Options{
			Sessions:       sessions,
			Build:          build,
			StrictSchema:   strict,
			AllowedOrigins: []string{"http://localhost:5173"},
		}),
		token: userToken(t, "user-1", "ana@example.com"),
	}
}

func userToken(t *testing.T, oid, email string) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"oid":   oid,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	return raw
}

func (s *server) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	s.t.Helper()

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set(session.HeaderSharePointToken, "sp-token")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func (s *server) json(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	return s.do(method, path, "application/json", r)
}

// form builds a multipart body from fields and name/content file pairs.
func form(t *testing.T, fields map[string]string, fileField string, files ...string) (string, io.Reader) {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	for i := 0; i+1 < len(files); i += 2 {
		fw, err := mw.CreateFormFile(fileField, files[i])
		require.NoError(t, err)

		_, err = fw.Write([]byte(files[i+1]))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	return mw.FormDataContentType(), &buf
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())

	return v
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gastos", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, s.fake.TotalCalls())
}

func TestRouter_Catalog(t *testing.T) {
	s := newServer(t)

	rec := s.json(http.MethodPost, "/api/v1/proyectos", `{"nombre":"Proyecto Beta"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[catalog.Proyecto](t, rec)
	assert.NotEmpty(t, created.ID)

	rec = s.json(http.MethodGet, "/api/v1/proyectos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Proyecto](t, rec), 2)

	rec = s.json(http.MethodPatch, "/api/v1/proyectos/"+created.ID, `{"nombre":"Proyecto Beta II"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Proyecto Beta II", decode[catalog.Proyecto](t, rec).Nombre)

	rec = s.json(http.MethodDelete, "/api/v1/proyectos/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.json(http.MethodDelete, "/api/v1/proyectos/"+created.ID, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(sharepoint.CodeRemoteRejected), decode[map[string]any](t, rec)["code"])

	rec = s.json(http.MethodPost, "/api/v1/proyectos", `{"nombre":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CreateGasto(t *testing.T) {
	type testCase struct {
		name       string
		fields     map[string]string
		files      []string
		failUpload string
		wantStatus int
		wantCode   string
		wantFiles  int
		wantSagas  int
	}

	tests := []testCase{
		{
			name:       "with attachment",
			fields:     map[string]string{"gasto": facturaJSON},
			files:      []string{"boleta.pdf", "%PDF-1.4 boleta"},
			wantStatus: http.StatusCreated,
			wantFiles:  1,
		},
		{
			name:       "partial attachment failure",
			fields:     map[string]string{"gasto": facturaJSON},
			files:      []string{"boleta.pdf", "%PDF-1.4 boleta", "rota.pdf", "%PDF-1.4 rota"},
			failUpload: "rota.pdf",
			wantStatus: http.StatusMultiStatus,
			wantFiles:  1,
			wantSagas:  1,
		},
		{
			name:       "invalid gasto",
			fields:     map[string]string{"gasto": `{"empresaId":"76.123.456-7","categoria":"Viajes","tipoDocumento":"Factura"}`},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "validation",
		},
		{
			name: "unknown empresa",
			fields: map[string]string{"gasto": strings.Replace(facturaJSON,
				"76.123.456-7", "99.999.999-9", 1)},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   string(sharepoint.CodeLookupUnresolved),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t)

			if tc.failUpload != "" {
				s.fake.FailUpload(tc.failUpload, &graph.HTTPError{StatusCode: 507, Code: "quotaLimitReached", Message: "quota"})
			}

			contentType, body := form(t, tc.fields, "archivos", tc.files...)

			rec := s.do(http.MethodPost, "/api/v1/gastos", contentType, body)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())

			switch tc.wantStatus {
			case http.StatusCreated:
				g := decode[gasto.Gasto](t, rec)
				assert.Equal(t, int64(119000), g.Monto)
				assert.Len(t, g.ArchivosAdjuntos, tc.wantFiles)
			case http.StatusMultiStatus:
				resp := decode[struct {
					Gasto  gasto.Gasto `json:"gasto"`
					Failed []string    `json:"failed"`
				}](t, rec)
				assert.NotEmpty(t, resp.Gasto.ID)
				assert.Len(t, resp.Gasto.ArchivosAdjuntos, tc.wantFiles)
				assert.Equal(t, []string{"rota.pdf"}, resp.Failed)
			default:
				assert.Equal(t, tc.wantCode, decode[map[string]any](t, rec)["code"])
				assert.Empty(t, s.fake.Rows("Gastos"))
			}

			rec = s.json(http.MethodGet, "/api/v1/gastos/attachments/pending", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[[]map[string]any](t, rec), tc.wantSagas)
		})
	}
}

func TestRouter_PendingIsPerAccount(t *testing.T) {
	s := newServer(t)
	s.fake.FailUpload("rota.pdf", &graph.HTTPError{StatusCode: 507, Code: "quotaLimitReached", Message: "quota"})

	contentType, body := form(t, map[string]string{"gasto": facturaJSON}, "archivos", "rota.pdf", "%PDF-1.4 rota")
	rec := s.do(http.MethodPost, "/api/v1/gastos", contentType, body)
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	owner := s.token
	s.token = userToken(t, "user-2", "luis@example.com")

	rec = s.json(http.MethodGet, "/api/v1/gastos/attachments/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))

	s.token = owner

	rec = s.json(http.MethodGet, "/api/v1/gastos/attachments/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
}

func TestRouter_UpdateGastoAddsFiles(t *testing.T) {
	s := newServer(t)

	rec := s.json(http.MethodPost, "/api/v1/gastos", facturaJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	id := decode[gasto.Gasto](t, rec).ID

	contentType, body := form(t, map[string]string{"gasto": `{"monto":120000}`}, "archivos", "boleta.pdf", "%PDF-1.4 boleta")

	rec = s.do(http.MethodPatch, "/api/v1/gastos/"+id, contentType, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	g := decode[gasto.Gasto](t, rec)
	assert.Equal(t, int64(120000), g.Monto)
	require.Len(t, g.ArchivosAdjuntos, 1)
	assert.Equal(t, "boleta.pdf", g.ArchivosAdjuntos[0].Nombre)

	_, ok := s.fake.File("Adjuntos", "gastos/"+id+"/boleta.pdf")
	assert.True(t, ok)

	rec = s.json(http.MethodDelete, "/api/v1/gastos/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.fake.Rows("Gastos"))
}

func TestRouter_Import(t *testing.T) {
	s := newServer(t)

	contentType, body := form(t, nil, "file", "rcv.csv", register)
	rec := s.do(http.MethodPost, "/api/v1/import/rcv/preview", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	preview := decode[struct {
		Compras []map[string]any `json:"compras"`
	}](t, rec)
	require.Len(t, preview.Compras, 1)
	assert.Equal(t, "5512", preview.Compras[0]["folio"])
	assert.Empty(t, s.fake.Rows("Gastos"))

	contentType, body = form(t, map[string]string{"categoria": "Viajes"}, "file", "rcv.csv", register)
	rec = s.do(http.MethodPost, "/api/v1/import/rcv", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[struct {
		Created         []gasto.Gasto `json:"created"`
		EmpresasCreated int           `json:"empresasCreated"`
	}](t, rec)
	assert.Len(t, res.Created, 1)
	assert.Equal(t, 1, res.EmpresasCreated)

	contentType, body = form(t, map[string]string{"categoria": "Viajes"}, "file", "rcv.csv", "hello;world\n")
	rec = s.do(http.MethodPost, "/api/v1/import/rcv", contentType, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	contentType, body = form(t, nil, "file", "rcv.csv", register)
	rec = s.do(http.MethodPost, "/api/v1/import/rcv", contentType, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Export(t *testing.T) {
	s := newServer(t)

	contentType, body := form(t, map[string]string{"gasto": facturaJSON}, "archivos", "boleta.pdf", "%PDF-1.4 boleta")
	rec := s.do(http.MethodPost, "/api/v1/gastos", contentType, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.json(http.MethodPost, "/api/v1/export", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	meta := decode[struct {
		Items []struct {
			Files []string `json:"files"`
		} `json:"items"`
		Summary string `json:"summary"`
	}](t, rec)
	require.Len(t, meta.Items, 1)
	assert.Equal(t, []string{"20260304_1_boleta.pdf"}, meta.Items[0].Files)
	assert.Contains(t, meta.Summary, "$119.000")

	rec = s.json(http.MethodPost, "/api/v1/export/download", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	assert.ElementsMatch(t, []string{"20260304_1_boleta.pdf", "resumen.txt"}, names)
}

func TestRouter_SignOut(t *testing.T) {
	s := newServer(t)

	rec := s.json(http.MethodGet, "/api/v1/categorias", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.sessions.Len())

	rec = s.json(http.MethodDelete, "/api/v1/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, s.sessions.Len())
}

func TestRouter_StrictSchema(t *testing.T) {
	s := newServerWith(t, true, func(fake *sharepointtest.Fake) {
		fake.RemoveColumn("Gastos", "Monto")
	})

	rec := s.json(http.MethodGet, "/api/v1/categorias", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, string(sharepoint.CodeColumnNotFound), body["code"])
	assert.Contains(t, body["missing"], "monto")
	assert.Zero(t, s.sessions.Len())

	ok := newServerWith(t, true, nil)
	rec = ok.json(http.MethodGet, "/api/v1/categorias", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouter_MissingListIsNotFound(t *testing.T) {
	s := newServerWith(t, false, func(fake *sharepointtest.Fake) {
		fake.RemoveList("Proyectos")
	})

	rec := s.json(http.MethodGet, "/api/v1/proyectos", "")
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	body := decode[map[string]any](t, rec)
	assert.Equal(t, string(sharepoint.CodeListNotFound), body["code"])

	rec = s.json(http.MethodGet, "/api/v1/categorias", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
