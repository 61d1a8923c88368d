package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"animalia/internal/config"
	"animalia/internal/send"
	"animalia/internal/staging"
	"animalia/internal/validate"
	"animalia/pkg/models"
)

// newGBIF serves the two-request fetch sequence for a single species.
func newGBIF(detail map[string]any) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/species/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"key": int64(2440963)}},
		})
	})
	mux.HandleFunc("/species/2440963", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(detail)
	})
	return httptest.NewServer(mux)
}

func testConfig(t *testing.T, gbifURL, targetURL string) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		TargetURL:    targetURL,
		GBIFURL:      gbifURL,
		HTTPTimeout:  5 * time.Second,
		RawDir:       base + "/raw",
		ProcessedDir: base + "/processed",
	}
}

func TestRun_Completed(t *testing.T) {
	gbif := newGBIF(map[string]any{
		"scientificName": "Cervus elaphus",
		"commonName":     "Cerf élaphe",
		"iucnStatus":     "LC",
	})
	defer gbif.Close()

	var posted []models.Animal
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a models.Animal
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		posted = append(posted, a)
		w.WriteHeader(http.StatusCreated)
	}))
	defer target.Close()

	cfg := testConfig(t, gbif.URL, target.URL)
	s := New(cfg, zap.NewNop()).Run(context.Background(), "")

	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, DefaultSpecies, s.Species)
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 1, s.Fetched)
	assert.Equal(t, 1, s.Transformed)
	assert.Equal(t, 1, s.Validated)
	assert.Equal(t, 0, s.Rejected)
	assert.Equal(t, 1, s.Sent)
	assert.Equal(t, 0, s.Failed)

	require.Len(t, posted, 1)
	assert.Equal(t, "Cervus elaphus", posted[0].Nom)
	assert.Equal(t, "Cerf élaphe", posted[0].NomCommun)
	assert.Equal(t, "LC", posted[0].StatutUICN)

	// every staging artifact of a clean run exists
	assert.FileExists(t, staging.RawFile(cfg.RawDir, DefaultSpecies))
	assert.FileExists(t, staging.TransformedFile(cfg.ProcessedDir, DefaultSpecies))
	assert.FileExists(t, staging.ValidatedFile(cfg.ProcessedDir))
	_, err := os.Stat(staging.RejectedFile(cfg.ProcessedDir))
	assert.True(t, os.IsNotExist(err), "no rejected output on a clean run")
}

// A record with an unknown conservation status is rejected, lands in the
// rejected output, and is never sent.
func TestRun_InvalidStatusRejected(t *testing.T) {
	gbif := newGBIF(map[string]any{
		"scientificName": "Cervus elaphus",
		"iucnStatus":     "UNKNOWN_CODE",
	})
	defer gbif.Close()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("nothing should be sent")
	}))
	defer target.Close()

	cfg := testConfig(t, gbif.URL, target.URL)
	s := New(cfg, zap.NewNop()).Run(context.Background(), "Cervus elaphus")

	assert.Equal(t, StatusAborted, s.Status)
	assert.Equal(t, StageValidate, s.FailedStage)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, 0, s.Sent)

	var rejected []validate.Rejection
	require.NoError(t, staging.ReadJSON(staging.RejectedFile(cfg.ProcessedDir), &rejected))
	require.Len(t, rejected, 1)
	assert.Equal(t, "Cervus elaphus", rejected[0].Record.Nom)
	assert.Contains(t, rejected[0].Reason, "invalid statutUICN")
}

func TestRun_SendFailuresCompleteWithErrors(t *testing.T) {
	gbif := newGBIF(map[string]any{"scientificName": "Cervus elaphus"})
	defer gbif.Close()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "full disk", http.StatusInternalServerError)
	}))
	defer target.Close()

	cfg := testConfig(t, gbif.URL, target.URL)
	s := New(cfg, zap.NewNop()).Run(context.Background(), "Cervus elaphus")

	assert.Equal(t, StatusCompletedWithErrors, s.Status)
	assert.Equal(t, 1, s.Validated)
	assert.Equal(t, 0, s.Sent)
	assert.Equal(t, 1, s.Failed)

	var failures []send.Failure
	require.NoError(t, staging.ReadJSON(staging.SendErrorsFile(cfg.ProcessedDir), &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, send.KindHTTP, failures[0].ErrorType)
	assert.Equal(t, http.StatusInternalServerError, failures[0].StatusCode)
}

func TestRun_AbortsWhenGBIFUnreachable(t *testing.T) {
	gbif := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	gbif.Close()

	cfg := testConfig(t, gbif.URL, "http://localhost:0")
	s := New(cfg, zap.NewNop()).Run(context.Background(), "Cervus elaphus")

	assert.Equal(t, StatusAborted, s.Status)
	assert.Equal(t, StageFetch, s.FailedStage)
	assert.Error(t, s.Err)
	assert.Equal(t, 0, s.Fetched)
}

func TestRun_AbortsOnEmptyTransform(t *testing.T) {
	// detail payload with no scientific name yields zero canonical records
	gbif := newGBIF(map[string]any{"kingdom": "Animalia"})
	defer gbif.Close()

	cfg := testConfig(t, gbif.URL, "http://localhost:0")
	s := New(cfg, zap.NewNop()).Run(context.Background(), "Cervus elaphus")

	assert.Equal(t, StatusAborted, s.Status)
	assert.Equal(t, StageTransform, s.FailedStage)
	assert.Equal(t, 1, s.Fetched)
	assert.Equal(t, 0, s.Transformed)
}

func TestValidatedRecords(t *testing.T) {
	dir := t.TempDir()
	animals := []models.Animal{{Nom: "Lynx lynx", StatutUICN: "LC"}}
	require.NoError(t, staging.WriteJSON(staging.ValidatedFile(dir), animals))

	got, err := ValidatedRecords(dir)
	require.NoError(t, err)
	assert.Equal(t, animals, got)

	_, err = ValidatedRecords(t.TempDir())
	assert.Error(t, err)
}
