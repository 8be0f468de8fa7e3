package confluence

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ba-assistant-be/pkg/diagram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreatePage(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wiki/rest/api/content", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ba@example.com", user)
		assert.Equal(t, "token", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"123","title":"QR Payments","_links":{"webui":"/spaces/AI/pages/123"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "ba@example.com", "token", "AI")
	page, err := c.CreatePage(context.Background(), "QR Payments", "<p>x</p>", "42")
	require.NoError(t, err)

	assert.Equal(t, "123", page.ID)
	assert.Equal(t, srv.URL+"/wiki/spaces/AI/pages/123", page.URL)

	assert.Equal(t, "page", got["type"])
	assert.Equal(t, map[string]interface{}{"key": "AI"}, got["space"])
	assert.Equal(t, []interface{}{map[string]interface{}{"id": "42"}}, got["ancestors"])
	storage := got["body"].(map[string]interface{})["storage"].(map[string]interface{})
	assert.Equal(t, "<p>x</p>", storage["value"])
	assert.Equal(t, "storage", storage["representation"])
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"no permission"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "t", "AI")

	_, err := c.CreatePage(context.Background(), "T", "<p/>", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "no permission")

	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/space/AI", r.URL.Path)
		w.Write([]byte(`{"key":"AI"}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL, "u", "t", "AI").Ping(context.Background()))
}

func TestClient_AttachFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s1__doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Doc"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/123/child/attachment", r.URL.Path)
		assert.Equal(t, "nocheck", r.Header.Get("X-Atlassian-Token"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "s1__doc.md", header.Filename)
		assert.Equal(t, "# Doc", string(data))
		assert.Equal(t, "generated", r.FormValue("comment"))
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "t", "AI")
	assert.NoError(t, c.AttachFile(context.Background(), "123", path, "generated"))
	assert.Error(t, c.AttachFile(context.Background(), "123", filepath.Join(t.TempDir(), "missing"), ""))
}

func TestMermaidMacro(t *testing.T) {
	macro := MermaidMacro("graph TD\n  A[\"a > b\"] --> B")

	assert.Contains(t, macro, `<ac:structured-macro ac:name="mermaid" ac:schema-version="1">`)
	assert.Contains(t, macro, "<![CDATA[graph TD\n  A[\"a > b\"] --> B]]>")

	split := MermaidMacro("x]]>y")
	assert.Contains(t, split, "<![CDATA[x]]]]><![CDATA[>y]]>")
}

func TestStoragePage(t *testing.T) {
	page, err := StoragePage("QR & Payments", "## Goals\n\n- **Fast** checkout\n\n---\n", []diagram.Diagram{
		{Name: "use_case_diagram", Markup: "graph TB"},
		{Name: "process_flow", Markup: "graph TD"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page, "<h1>QR &amp; Payments</h1>\n<hr/>\n"))
	assert.Contains(t, page, "<h2>Goals</h2>")
	assert.Contains(t, page, "<strong>Fast</strong>")
	assert.Contains(t, page, "<hr />")
	assert.Contains(t, page, "<h1>Diagrams</h1>")
	assert.Contains(t, page, "<h2>Use Case Diagram</h2>")
	assert.Contains(t, page, "<h2>Process Flow</h2>")
	assert.Equal(t, 2, strings.Count(page, "ac:name=\"mermaid\""))

	plain, err := StoragePage("T", "text", nil)
	require.NoError(t, err)
	assert.NotContains(t, plain, "Diagrams")
}
