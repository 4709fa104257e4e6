package paperless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(Options{BaseURL: srv.URL, Token: "sekrit"})
	return client, srv
}

func writePage(w http.ResponseWriter, next string, results ...any) {
	raws := make([]json.RawMessage, 0, len(results))
	for _, r := range results {
		b, _ := json.Marshal(r)
		raws = append(raws, b)
	}
	pg := map[string]any{"count": len(raws), "results": raws}
	if next != "" {
		pg["next"] = next
	}
	json.NewEncoder(w).Encode(pg)
}

func TestClientAuthAndTrailingSlash(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		writePage(w, "")
	}))

	client.getPages(context.Background(), "tags")

	assert.Equal(t, "/tags/", gotPath, "bare endpoints get a trailing slash")
	assert.Equal(t, "Token sekrit", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientQuerySuffixSkipsTrailingSlash(t *testing.T) {
	var gotURI string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		writePage(w, "")
	}))

	client.getPages(context.Background(), "documents/?tags__id=1")

	assert.Equal(t, "/documents/?tags__id=1", gotURI)
}

func TestGetPagesFollowsCursor(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/tags/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writePage(w, "", map[string]any{"id": 3}, map[string]any{"id": 4})
			return
		}
		writePage(w, srv.URL+"/tags/?page=2", map[string]any{"id": 1}, map[string]any{"id": 2})
	})
	client, s := newTestClient(t, mux)
	srv = s

	raws := client.getPages(context.Background(), "tags")

	require.Len(t, raws, 4)
	for i, raw := range raws {
		var rec struct {
			ID int `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &rec))
		assert.Equal(t, i+1, rec.ID, "server order is preserved across pages")
	}
}

func TestGetPagesPartialOnFailure(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/tags/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writePage(w, srv.URL+"/tags/?page=2", map[string]any{"id": 1})
	})
	client, s := newTestClient(t, mux)
	srv = s

	raws := client.getPages(context.Background(), "tags")

	assert.Len(t, raws, 1, "a failed page truncates, it does not fail")
}

func TestRefreshRegistry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tags/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, "", EntityRecord{ID: 1, Name: "tax", Slug: "tax"})
	})
	mux.HandleFunc("/correspondents/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, "", EntityRecord{ID: 2, Name: "Alice Bank", Slug: "alice-bank"})
	})
	mux.HandleFunc("/document_types/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, "")
	})
	client, _ := newTestClient(t, mux)

	reg, err := client.RefreshRegistry(context.Background())
	require.NoError(t, err)

	for _, kind := range Kinds() {
		assert.True(t, reg.Populated(kind))
	}
	id, err := reg.Resolve(KindCorrespondent, Name("Alice Bank"))
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestSearchDocuments(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writePage(w, "",
			DocumentRecord{ID: 1, Title: "Gas Invoice", Tags: []int{1}, Created: "2020-02-01"},
			DocumentRecord{ID: 2, Title: "Tax Letter", Tags: []int{1}, Created: "2020-03-01"},
		)
	})
	client, _ := newTestClient(t, mux)

	reg := NewRegistry()
	reg.Replace(KindTag, []Entity{{ID: 1, Name: "utility", Slug: "utility"}})
	reg.Replace(KindCorrespondent, []Entity{{ID: 5, Name: "Alice Bank", Slug: "alice-bank"}})

	corr := Name("Alice Bank")
	docs, err := client.SearchDocuments(context.Background(), reg, Search{
		Correspondent: &corr,
		Tags:          []Identifier{Name("utility")},
		TitleLabels:   "invoice",
	})
	require.NoError(t, err)

	assert.Equal(t, "correspondent__id=5&tags__id=1", gotQuery)
	require.Len(t, docs, 1, "secondary title filter drops the tax letter")
	assert.Equal(t, 1, docs[0].ID)
	assert.Equal(t, "2020", docs[0].Year)
}

func TestSearchDocumentsOmitsUnresolvableCriterion(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writePage(w, "")
	})
	client, _ := newTestClient(t, mux)

	reg := NewRegistry()
	reg.Replace(KindCorrespondent, []Entity{})

	corr := Name("Nobody")
	_, err := client.SearchDocuments(context.Background(), reg, Search{
		Correspondent: &corr,
		Created:       "2020",
	})
	require.NoError(t, err)
	assert.Equal(t, "created__year=2020", gotQuery, "the unresolvable criterion is dropped, the rest survive")
}

func TestDocumentsByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/documents/2/":
			json.NewEncoder(w).Encode(DocumentRecord{ID: 2, Title: "two"})
		case "/documents/9/":
			json.NewEncoder(w).Encode(DocumentRecord{ID: 9, Title: "nine"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client, _ := newTestClient(t, mux)

	docs, err := client.DocumentsByID(context.Background(), NewRegistry(), []int{9, 404, 2}, false)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, 9, docs[0].ID, "caller ID order is preserved")
	assert.Equal(t, 2, docs[1].ID)
}

func TestUpdateDocument(t *testing.T) {
	var gotMethod string
	var gotBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/7/", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		if r.Method == http.MethodPatch {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		}
		json.NewEncoder(w).Encode(DocumentRecord{ID: 7, Title: "after"})
	})
	client, _ := newTestClient(t, mux)

	title := "after"
	rec, err := client.UpdateDocument(context.Background(), 7, DocumentPatch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, map[string]any{"title": "after"}, gotBody, "nil fields stay out of the patch body")
	assert.Equal(t, "after", rec.Title)
}

func TestUpdateDocumentDryRun(t *testing.T) {
	var patched bool
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/7/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			patched = true
		}
		json.NewEncoder(w).Encode(DocumentRecord{ID: 7, Title: "before"})
	})
	client, _ := newTestClient(t, mux)
	client.DryRun = true

	title := "after"
	rec, err := client.UpdateDocument(context.Background(), 7, DocumentPatch{Title: &title})
	require.NoError(t, err)

	assert.False(t, patched, "dry run never issues the PATCH")
	assert.Equal(t, "before", rec.Title)
}

func TestUpdateDocumentEmptyPatch(t *testing.T) {
	var patched bool
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/7/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			patched = true
		}
		json.NewEncoder(w).Encode(DocumentRecord{ID: 7})
	})
	client, _ := newTestClient(t, mux)

	_, err := client.UpdateDocument(context.Background(), 7, DocumentPatch{})
	require.NoError(t, err)
	assert.False(t, patched)
}

func TestDownloadDocument(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/3/download/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "%PDF-1.4 payload")
	})
	client, _ := newTestClient(t, mux)

	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, client.DownloadDocument(context.Background(), 3, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 payload", string(data))
}

func TestDownloadRemovesPartialOnHTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/3/thumb/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	path := filepath.Join(t.TempDir(), "thumb.png")
	err := client.DownloadThumbnail(context.Background(), 3, path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is left behind on a failed download")
}

func TestMutations(t *testing.T) {
	docs := map[int]*DocumentRecord{
		7: {ID: 7, Title: "doc", Tags: []int{1}},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/7/", func(w http.ResponseWriter, r *http.Request) {
		rec := docs[7]
		if r.Method == http.MethodPatch {
			var patch map[string]json.RawMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			if raw, ok := patch["tags"]; ok {
				require.NoError(t, json.Unmarshal(raw, &rec.Tags))
			}
			if raw, ok := patch["correspondent"]; ok {
				require.NoError(t, json.Unmarshal(raw, &rec.Correspondent))
			}
		}
		json.NewEncoder(w).Encode(rec)
	})
	client, _ := newTestClient(t, mux)

	reg := NewRegistry()
	reg.Replace(KindTag, []Entity{
		{ID: 1, Name: "old", Slug: "old"},
		{ID: 2, Name: "new", Slug: "new"},
	})
	reg.Replace(KindCorrespondent, []Entity{{ID: 5, Name: "Alice Bank", Slug: "alice-bank"}})

	ctx := context.Background()

	t.Run("add tags unions with existing", func(t *testing.T) {
		doc, err := client.AddTags(ctx, reg, 7, []Identifier{Name("new"), Name("old")})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, doc.RawTags)
	})

	t.Run("remove tags keeps the rest", func(t *testing.T) {
		doc, err := client.RemoveTags(ctx, reg, 7, []Identifier{Name("old"), Name("unknown")})
		require.NoError(t, err)
		assert.Equal(t, []int{2}, doc.RawTags)
	})

	t.Run("set correspondent resolves the name", func(t *testing.T) {
		doc, err := client.SetCorrespondent(ctx, reg, 7, Name("Alice Bank"))
		require.NoError(t, err)
		require.NotNil(t, doc.RawCorrespondent)
		assert.Equal(t, 5, *doc.RawCorrespondent)
	})

	t.Run("unknown correspondent fails without patching", func(t *testing.T) {
		_, err := client.SetCorrespondent(ctx, reg, 7, Name("Nobody"))
		assert.Error(t, err)
	})
}
