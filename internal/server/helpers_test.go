package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/8848connie/drawing-room/internal/config"
	"github.com/8848connie/drawing-room/internal/photos"
	"github.com/8848connie/drawing-room/internal/storage"
)

func mapLookup(env map[string]string) config.LookupFunc {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func testEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                 "postgres://u:p@localhost:5432/photos?sslmode=disable",
		"PHOTOWALL_STORAGE_ENDPOINT":   "http://minio:9000",
		"PHOTOWALL_STORAGE_ACCESS_KEY": "minio",
		"PHOTOWALL_STORAGE_SECRET_KEY": "minio123",
		"PHOTOWALL_STORAGE_BUCKET":     "photos",
	}
}

// memStore is an in-memory photos.Store that counts calls.
type memStore struct {
	mu        sync.Mutex
	records   []photos.PhotoRecord
	nextID    int64
	inserts   int
	lists     int
	insertErr error
	listErr   error
	pingErr   error
}

func (m *memStore) Insert(_ context.Context, p photos.NewPhoto) (photos.PhotoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return photos.PhotoRecord{}, m.insertErr
	}
	m.nextID++
	rec := photos.PhotoRecord{ID: m.nextID, PhotoURL: p.PhotoURL, UploaderName: p.UploaderName, Timestamp: p.Timestamp}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memStore) List(context.Context) ([]photos.PhotoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := append([]photos.PhotoRecord(nil), m.records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

// fakeMedia is a storage.MediaStore that keeps objects in memory.
type fakeMedia struct {
	mu       sync.Mutex
	objects  map[string]storage.Object
	puts     int
	putErr   error
	checkErr error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{objects: make(map[string]storage.Object)}
}

func (f *fakeMedia) Put(_ context.Context, obj storage.Object) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[obj.Key] = obj
	return "https://media.example.com/" + obj.Key, nil
}

func (f *fakeMedia) Check(context.Context) error { return f.checkErr }

// fakeBackends hands out the same fakes and counts constructions.
type fakeBackends struct {
	store    photos.Store
	media    storage.MediaStore
	storeErr error
	mediaErr error

	mu            sync.Mutex
	constructions int
}

func (b *fakeBackends) Store(config.Config) (photos.Store, error) {
	b.mu.Lock()
	b.constructions++
	b.mu.Unlock()
	if b.storeErr != nil {
		return nil, b.storeErr
	}
	return b.store, nil
}

func (b *fakeBackends) Media(config.Config) (storage.MediaStore, error) {
	b.mu.Lock()
	b.constructions++
	b.mu.Unlock()
	if b.mediaErr != nil {
		return nil, b.mediaErr
	}
	return b.media, nil
}

func (b *fakeBackends) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.constructions
}

var fixedNow = time.Date(2024, 12, 24, 18, 0, 0, 0, time.UTC)

type testServer struct {
	srv     *Server
	store   *memStore
	media   *fakeMedia
	back    *fakeBackends
	metrics *Metrics
	env     map[string]string
}

// newTestServer wires a Server to in-memory fakes. env may be modified
// before requests are sent; it is read on every invocation.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		store:   &memStore{},
		media:   newFakeMedia(),
		metrics: NewMetrics(),
		env:     testEnv(),
	}
	ts.back = &fakeBackends{store: ts.store, media: ts.media}
	ts.srv = New(Config{
		Lookup:   func(k string) (string, bool) { v, ok := ts.env[k]; return v, ok },
		Backends: ts.back,
		Now:      func() time.Time { return fixedNow },
		Logger:   NewLogger(io.Discard, LogLevelError, false),
		Metrics:  ts.metrics,
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rr, req)
	return rr
}

type filePart struct {
	field, filename, contentType string
	data                         []byte
}

// multipartBody builds a multipart/form-data body. A nil name omits the
// uploader-name field.
func multipartBody(t *testing.T, name *string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != nil {
		if err := mw.WriteField(fieldUploaderName, *name); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func strPtr(s string) *string { return &s }

var errBoom = errors.New("boom")
