package send

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"animalia/pkg/models"
)

func testAnimals(n int) []models.Animal {
	names := []string{
		"Cervus elaphus", "Panthera tigris", "Lynx lynx",
		"Aquila chrysaetos", "Bubo bubo", "Salmo salar",
	}
	animals := make([]models.Animal, n)
	for i := range animals {
		animals[i] = models.Animal{Nom: names[i%len(names)], StatutUICN: "LC"}
	}
	return animals
}

func TestAll_Success(t *testing.T) {
	var got []models.Animal
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var a models.Animal
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		got = append(got, a)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	report := New(srv.URL, 5*time.Second, zap.NewNop()).All(context.Background(), testAnimals(3))

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 3, report.Sent)
	assert.Empty(t, report.Failures)
	require.Len(t, got, 3)
	assert.Equal(t, "Cervus elaphus", got[0].Nom)
}

// One failing record must not stop the batch: all N records are attempted and
// the report shows exactly one failure.
func TestAll_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 2 {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	animals := testAnimals(5)
	report := New(srv.URL, 5*time.Second, zap.NewNop()).All(context.Background(), animals)

	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, 5, report.Attempted)
	assert.Equal(t, 4, report.Sent)
	require.Len(t, report.Failures, 1)

	f := report.Failures[0]
	assert.Equal(t, 1, f.Index)
	assert.Equal(t, animals[1].Nom, f.Animal.Nom)
	assert.Equal(t, KindHTTP, f.ErrorType)
	assert.Equal(t, http.StatusInternalServerError, f.StatusCode)
	assert.Contains(t, f.Detail, "boom")
}

func TestAll_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	report := New(srv.URL, time.Second, zap.NewNop()).All(context.Background(), testAnimals(2))

	assert.Equal(t, 0, report.Sent)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, KindConnection, report.Failures[0].ErrorType)
	assert.Zero(t, report.Failures[0].StatusCode)
}

func TestAll_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	report := New(srv.URL, 50*time.Millisecond, zap.NewNop()).All(context.Background(), testAnimals(1))

	require.Len(t, report.Failures, 1)
	assert.Equal(t, KindTimeout, report.Failures[0].ErrorType)
}

func TestAll_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	New(srv.URL, time.Second, zap.NewNop()).All(context.Background(), testAnimals(1))
	assert.Equal(t, int32(1), calls.Load())
}
