package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/zap"

	. "github.com/trezcool/metricampus/apps/api/echo"
	"github.com/trezcool/metricampus/core/schedule"
	logsvc "github.com/trezcool/metricampus/services/logger"
	inmemdb "github.com/trezcool/metricampus/storage/database/inmem"
	"github.com/trezcool/metricampus/tests"
)

var errNotFound = httpErr{Error: "not found"}

func setup(t *testing.T) (Server, schedule.Repository) {
	conf := testutil.Config()

	// set up DB & repos
	repo := inmemdb.NewBlockRepository(inmemdb.Open())

	// set up services
	validate, translator := testutil.Validator()
	logger := logsvc.NewZapLogger(zap.NewNop())
	svc, err := schedule.NewService(repo, nil /* cache */, logger, validate, translator, conf)
	if err != nil {
		t.Fatalf("schedule.NewService() failed: %v", err)
	}

	// set up server
	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		ScheduleSvc: svc,
		Validate:    validate,
		Translator:  translator,
	})
	return app, repo
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
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

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
