package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pura-pata-api/internal/adapters/auth/jwtverify"
	"pura-pata-api/internal/platform/metrics"
	"pura-pata-api/internal/router"
)

const api = "/api/v1"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	m, err := metrics.New()
	require.NoError(t, err)

	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil, Metrics: m}))
	t.Cleanup(ts.Close)
	return ts
}

func doReq(t *testing.T, baseURL, method, path, userID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-Debug-User-ID", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func register(t *testing.T, baseURL, userID, email string) {
	t.Helper()
	st, body := doReq(t, baseURL, http.MethodPost, api+"/auth/register", userID, map[string]any{
		"email": email,
		"name":  "Usuario " + userID,
		"phone": "8888-0000",
	})
	require.Equal(t, http.StatusCreated, st, string(body))
}

func dogPayload(name string, lat, lon float64, photos int) map[string]any {
	ph := make([]string, 0, photos)
	for i := range photos {
		ph = append(ph, fmt.Sprintf("https://cdn.test/%s-%d.jpg", name, i))
	}
	return map[string]any{
		"name":          name,
		"age_years":     2,
		"age_months":    3,
		"breed":         "Mestizo",
		"size":          "medium",
		"gender":        "female",
		"color":         "café",
		"latitude":      lat,
		"longitude":     lon,
		"contact_phone": "8888-1234",
		"photos":        ph,
	}
}

func createDog(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()
	st, body := doReq(t, baseURL, http.MethodPost, api+"/dogs", userID, payload)
	require.Equal(t, http.StatusCreated, st, string(body))

	d := decode[map[string]any](t, body)
	assert.Equal(t, "available", d["status"])
	return d["id"].(string)
}

func TestHTTP_RootHealthAndMetrics(t *testing.T) {
	ts := newServer(t)

	st, body := doReq(t, ts.URL, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Equal(t, "Pura Pata API", decode[map[string]string](t, body)["message"])

	st, body = doReq(t, ts.URL, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Equal(t, "ok", decode[map[string]string](t, body)["status"])

	st, body = doReq(t, ts.URL, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Contains(t, string(body), `purapata_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestHTTP_EndToEnd_StatusLifecycle(t *testing.T) {
	ts := newServer(t)
	owner := "owner-1"
	register(t, ts.URL, owner, "owner@test.com")

	dogID := createDog(t, ts.URL, owner, dogPayload("Luna", 9.93, -84.08, 2))

	// 1) available -> reserved -> adopted
	for _, next := range []string{"reserved", "adopted"} {
		st, body := doReq(t, ts.URL, http.MethodPatch, api+"/dogs/"+dogID+"/status", owner, map[string]any{"status": next})
		require.Equal(t, http.StatusOK, st, string(body))
		d := decode[map[string]any](t, body)
		assert.Equal(t, next, d["status"])
		if next == "adopted" {
			assert.NotNil(t, d["adopted_at"])
		}
	}

	// 2) adopted es terminal
	st, body := doReq(t, ts.URL, http.MethodPatch, api+"/dogs/"+dogID+"/status", owner, map[string]any{"status": "available"})
	require.Equal(t, http.StatusConflict, st, string(body))
	assert.Equal(t, "status_conflict", decode[map[string]any](t, body)["code"])

	// 3) historial: más reciente primero, el primero sin old_status
	st, body = doReq(t, ts.URL, http.MethodGet, api+"/dogs/"+dogID+"/history", "", nil)
	require.Equal(t, http.StatusOK, st, string(body))
	entries := decode[[]map[string]any](t, body)
	require.Len(t, entries, 3)
	assert.Equal(t, "adopted", entries[0]["new_status"])
	assert.Equal(t, "reserved", entries[0]["old_status"])
	assert.Equal(t, "available", entries[2]["new_status"])
	assert.Nil(t, entries[2]["old_status"])

	// 4) ya no aparece en el listado por defecto
	st, body = doReq(t, ts.URL, http.MethodGet, api+"/dogs", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Empty(t, decode[[]map[string]any](t, body))

	st, body = doReq(t, ts.URL, http.MethodGet, api+"/dogs?status=adopted", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	// 5) estado inválido
	st, _ = doReq(t, ts.URL, http.MethodPatch, api+"/dogs/"+dogID+"/status", owner, map[string]any{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, st)
}

func TestHTTP_EndToEnd_OwnershipAndValidation(t *testing.T) {
	ts := newServer(t)
	owner, other := "owner-1", "other-1"
	register(t, ts.URL, owner, "owner@test.com")
	register(t, ts.URL, other, "other@test.com")

	dogID := createDog(t, ts.URL, owner, dogPayload("Max", 9.93, -84.08, 1))

	// sin auth
	st, _ := doReq(t, ts.URL, http.MethodPost, api+"/dogs", "", dogPayload("X", 0, 0, 1))
	assert.Equal(t, http.StatusUnauthorized, st)

	// publicador sin perfil
	st, _ = doReq(t, ts.URL, http.MethodPost, api+"/dogs", "ghost", dogPayload("X", 0, 0, 1))
	assert.Equal(t, http.StatusNotFound, st)

	// fotos fuera de rango
	for _, n := range []int{0, 6} {
		st, body := doReq(t, ts.URL, http.MethodPost, api+"/dogs", owner, dogPayload("X", 0, 0, n))
		assert.Equal(t, http.StatusBadRequest, st, "photos=%d body=%s", n, body)
	}

	// otro usuario no puede mutar
	st, _ = doReq(t, ts.URL, http.MethodPut, api+"/dogs/"+dogID, other, map[string]any{"name": "Robado"})
	assert.Equal(t, http.StatusForbidden, st)
	st, _ = doReq(t, ts.URL, http.MethodPatch, api+"/dogs/"+dogID+"/status", other, map[string]any{"status": "reserved"})
	assert.Equal(t, http.StatusForbidden, st)
	st, _ = doReq(t, ts.URL, http.MethodDelete, api+"/dogs/"+dogID, other, nil)
	assert.Equal(t, http.StatusForbidden, st)

	// el dueño actualiza parcialmente
	st, body := doReq(t, ts.URL, http.MethodPut, api+"/dogs/"+dogID, owner, map[string]any{"name": "Max II", "description": "Muy juguetón"})
	require.Equal(t, http.StatusOK, st, string(body))
	d := decode[map[string]any](t, body)
	assert.Equal(t, "Max II", d["name"])
	assert.Equal(t, "Muy juguetón", d["description"])
	assert.Equal(t, "Mestizo", d["breed"])

	// detalle público con teléfono del publicador
	st, body = doReq(t, ts.URL, http.MethodGet, api+"/dogs/"+dogID, "", nil)
	require.Equal(t, http.StatusOK, st)
	pub := decode[map[string]any](t, body)["publisher"].(map[string]any)
	assert.Equal(t, owner, pub["id"])
	assert.Equal(t, "8888-0000", pub["phone"])

	// borrado
	st, _ = doReq(t, ts.URL, http.MethodDelete, api+"/dogs/"+dogID, owner, nil)
	assert.Equal(t, http.StatusNoContent, st)
	st, _ = doReq(t, ts.URL, http.MethodGet, api+"/dogs/"+dogID, "", nil)
	assert.Equal(t, http.StatusNotFound, st)
	st, _ = doReq(t, ts.URL, http.MethodGet, api+"/dogs/"+dogID+"/history", "", nil)
	assert.Equal(t, http.StatusNotFound, st)
}

func TestHTTP_EndToEnd_RadiusAndPublisherListings(t *testing.T) {
	ts := newServer(t)
	owner := "owner-1"
	register(t, ts.URL, owner, "owner@test.com")

	nearID := createDog(t, ts.URL, owner, dogPayload("Cerca", 9.91, -84.11, 1))
	createDog(t, ts.URL, owner, dogPayload("Lejos", 0, 0, 1))

	st, body := doReq(t, ts.URL, http.MethodGet, api+"/dogs?latitude=9.93&longitude=-84.08&radius_km=10", "", nil)
	require.Equal(t, http.StatusOK, st, string(body))
	items := decode[[]map[string]any](t, body)
	require.Len(t, items, 1)
	assert.Equal(t, nearID, items[0]["id"])
	// el listado no expone el teléfono del publicador
	_, hasPhone := items[0]["publisher"].(map[string]any)["phone"]
	assert.False(t, hasPhone)

	st, _ = doReq(t, ts.URL, http.MethodGet, api+"/dogs?limit=101", "", nil)
	assert.Equal(t, http.StatusBadRequest, st)

	st, body = doReq(t, ts.URL, http.MethodGet, api+"/users/me/dogs", owner, nil)
	require.Equal(t, http.StatusOK, st)
	assert.Len(t, decode[[]map[string]any](t, body), 2)

	st, body = doReq(t, ts.URL, http.MethodGet, api+"/users/"+owner+"/dogs", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Len(t, decode[[]map[string]any](t, body), 2)

	st, _ = doReq(t, ts.URL, http.MethodGet, api+"/users/nobody/dogs", "", nil)
	assert.Equal(t, http.StatusNotFound, st)
}

func TestHTTP_EndToEnd_Users(t *testing.T) {
	ts := newServer(t)

	register(t, ts.URL, "u1", "ana@test.com")

	// email duplicado
	st, body := doReq(t, ts.URL, http.MethodPost, api+"/auth/register", "u2", map[string]any{"email": "ANA@test.com", "name": "Otra"})
	require.Equal(t, http.StatusConflict, st, string(body))
	assert.Equal(t, "duplicate", decode[map[string]any](t, body)["code"])

	st, _ = doReq(t, ts.URL, http.MethodGet, api+"/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)

	st, body = doReq(t, ts.URL, http.MethodPut, api+"/users/me", "u1", map[string]any{"location": "Heredia"})
	require.Equal(t, http.StatusOK, st, string(body))
	assert.Equal(t, "Heredia", decode[map[string]any](t, body)["location"])

	// sync crea el perfil la primera vez y después solo actualiza
	st, body = doReq(t, ts.URL, http.MethodPost, api+"/auth/sync", "u3", map[string]any{"email": "leo@test.com", "name": "Leo"})
	require.Equal(t, http.StatusOK, st, string(body))
	st, body = doReq(t, ts.URL, http.MethodPost, api+"/auth/sync", "u3", map[string]any{"email": "otro@test.com", "name": "Leonel"})
	require.Equal(t, http.StatusOK, st, string(body))
	u := decode[map[string]any](t, body)
	assert.Equal(t, "Leonel", u["name"])
	assert.Equal(t, "leo@test.com", u["email"])

	st, body = doReq(t, ts.URL, http.MethodGet, api+"/users/u3", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Equal(t, "Leonel", decode[map[string]any](t, body)["name"])
}

func uploadPhoto(t *testing.T, baseURL, userID, filename, contentType string, content []byte) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+api+"/uploads/photo", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if userID != "" {
		req.Header.Set("X-Debug-User-ID", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHTTP_EndToEnd_Uploads(t *testing.T) {
	ts := newServer(t)

	st, _ := uploadPhoto(t, ts.URL, "", "a.png", "image/png", pngBytes)
	assert.Equal(t, http.StatusUnauthorized, st)

	st, body := uploadPhoto(t, ts.URL, "u1", "a.png", "image/png", []byte("%PDF-1.4 no soy una imagen"))
	assert.Equal(t, http.StatusBadRequest, st, string(body))

	st, body = uploadPhoto(t, ts.URL, "u1", "a.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, st, string(body))
	fileURL := decode[map[string]string](t, body)["url"]
	require.NotEmpty(t, fileURL)

	// el store en memoria sirve el archivo bajo /files/*
	_, path, ok := strings.Cut(fileURL, "/files/")
	require.True(t, ok, fileURL)
	resp, err := http.Get(ts.URL + "/files/" + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	st, body = doReq(t, ts.URL, http.MethodDelete, api+"/uploads/files", "u1", map[string]any{
		"urls": []string{fileURL, "http://localhost:8080/files/dogs/photos/missing.png"},
	})
	require.Equal(t, http.StatusOK, st, string(body))
	res := decode[map[string]int](t, body)
	assert.Equal(t, 2, res["requested"])
	assert.Equal(t, 1, res["deleted"])
}

func TestHTTP_EndToEnd_DeleteKeepsSharedFiles(t *testing.T) {
	ts := newServer(t)
	owner := "owner-1"
	register(t, ts.URL, owner, "owner@test.com")

	st, body := uploadPhoto(t, ts.URL, owner, "a.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, st, string(body))
	fileURL := decode[map[string]string](t, body)["url"]
	_, path, ok := strings.Cut(fileURL, "/files/")
	require.True(t, ok, fileURL)

	payload := dogPayload("Compartida", 9.93, -84.08, 0)
	payload["photos"] = []string{fileURL}
	first := createDog(t, ts.URL, owner, payload)
	second := createDog(t, ts.URL, owner, payload)

	fileStatus := func() int {
		resp, err := http.Get(ts.URL + "/files/" + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	st, _ = doReq(t, ts.URL, http.MethodDelete, api+"/dogs/"+first, owner, nil)
	require.Equal(t, http.StatusNoContent, st)
	assert.Equal(t, http.StatusOK, fileStatus(), "still used by the second listing")

	st, _ = doReq(t, ts.URL, http.MethodDelete, api+"/dogs/"+second, owner, nil)
	require.Equal(t, http.StatusNoContent, st)
	assert.Equal(t, http.StatusNotFound, fileStatus())
}

func TestHTTP_ListRejectsInvalidCoordinates(t *testing.T) {
	ts := newServer(t)

	for _, q := range []string{
		"latitude=9.93&longitude=-84.08&radius_km=NaN",
		"latitude=NaN&longitude=-84.08&radius_km=10",
		"latitude=900&longitude=-84.08&radius_km=10",
	} {
		st, body := doReq(t, ts.URL, http.MethodGet, api+"/dogs?"+q, "", nil)
		assert.Equalf(t, http.StatusBadRequest, st, "query=%s body=%s", q, body)
	}
}

func TestHTTP_BearerTokenIsVerified(t *testing.T) {
	const secret = "router-test-secret-with-32-characters"
	v, err := jwtverify.New(jwtverify.Config{Secret: secret})
	require.NoError(t, err)

	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: v}))
	t.Cleanup(ts.Close)

	sign := func(exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":   "sub-1",
			"email": "ana@test.com",
			"exp":   exp.Unix(),
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}

	registerWith := func(token string) (int, []byte) {
		b, err := json.Marshal(map[string]any{"email": "ana@test.com", "name": "Ana"})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, ts.URL+api+"/auth/register", bytes.NewReader(b))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		out, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, out
	}

	// un token vencido no se degrada a anónimo
	st, body := registerWith(sign(time.Now().Add(-time.Hour)))
	require.Equal(t, http.StatusUnauthorized, st, string(body))
	assert.Equal(t, "unauthorized", decode[map[string]any](t, body)["code"])

	st, body = registerWith(sign(time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusCreated, st, string(body))
	assert.Equal(t, "sub-1", decode[map[string]any](t, body)["id"])
}
