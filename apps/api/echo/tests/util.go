package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	. "github.com/trezcool/eslclass/apps/api/echo"
	"github.com/trezcool/eslclass/apps/signaling"
	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/assignment"
	"github.com/trezcool/eslclass/core/class"
	"github.com/trezcool/eslclass/core/lesson"
	"github.com/trezcool/eslclass/core/pronunciation"
	"github.com/trezcool/eslclass/core/user"
	"github.com/trezcool/eslclass/services/email"
	"github.com/trezcool/eslclass/services/files"
	"github.com/trezcool/eslclass/services/logger"
	"github.com/trezcool/eslclass/storage/bolt"
	"github.com/trezcool/eslclass/storage/database/dummy"
)

var (
	usrRepo  user.Repository
	clsRepo  class.Repository
	store    *boltdb.Store
	mediaDir string

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// setup builds a server over a fresh in-memory database.
func setup(t *testing.T) Server {
	t.Helper()
	emailsvc.ClearSentMessages()

	// set up DB & repos
	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	clsRepo = dummydb.NewClassRepository(db)

	bolt, err := boltdb.Open(filepath.Join(t.TempDir(), "practice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })
	store = bolt

	mediaDir = t.TempDir()

	hub := signaling.NewHub(zap.NewNop(), "*")
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Stop(ctx)
	})

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	clsSvc := class.NewService(clsRepo, mailSvc)

	// set up server
	return NewServer(
		&Options{DisableReqLogs: true, MediaDir: mediaDir},
		&Deps{
			Logger:           logsvc.NewRollbarLogger(zap.NewNop(), core.Conf),
			UserSvc:          usrSvc,
			ClassSvc:         clsSvc,
			AssignmentSvc:    assignment.NewService(dummydb.NewAssignmentRepository(db), clsSvc, mailSvc),
			LessonSvc:        lesson.NewService(dummydb.NewLessonRepository(db), boltdb.NewCompletionRepository(store), clsSvc),
			PronunciationSvc: pronunciation.NewService(boltdb.NewPracticeRepository(store)),
			Storage:          filesvc.NewLocalStorage(mediaDir, "http://localhost/media"),
			Hub:              hub,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts content as the "file" part of a multipart form; an empty filename omits the part.
func newUploadRequest(t *testing.T, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

// decode unmarshals the recorded response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
