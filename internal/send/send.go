// Package send delivers validated records to the target animal API, one POST
// per record. Every record is attempted regardless of earlier failures; the
// caller gets a full per-record report.
package send

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"animalia/pkg/models"
)

// Failure error kinds, mirrored into the send_errors report.
const (
	KindHTTP       = "HTTP_ERROR"       // non-2xx response
	KindTimeout    = "TIMEOUT"          // request deadline exceeded
	KindConnection = "CONNECTION_ERROR" // transport-level failure
)

// Error is a per-record delivery failure.
type Error struct {
	Nom        string
	StatusCode int // 0 for transport failures
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("send %q: status %d", e.Nom, e.StatusCode)
	}
	return fmt.Sprintf("send %q: %v", e.Nom, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Failure is one entry of the send_errors report.
type Failure struct {
	Index      int           `json:"index"`
	Animal     models.Animal `json:"animal"`
	ErrorType  string        `json:"error_type"`
	StatusCode int           `json:"status_code,omitempty"`
	Detail     string        `json:"detail,omitempty"`
}

// Report summarizes one send batch.
type Report struct {
	Attempted int
	Sent      int
	Failures  []Failure
}

// Sender posts canonical records to the target API.
type Sender struct {
	TargetURL string
	HTTP      *http.Client
	Log       *zap.Logger
}

// New creates a Sender with a per-request timeout.
func New(targetURL string, timeout time.Duration, log *zap.Logger) *Sender {
	return &Sender{
		TargetURL: targetURL,
		HTTP:      &http.Client{Timeout: timeout},
		Log:       log,
	}
}

// All posts every record and never aborts the batch: a failed record is
// recorded and the next one is still attempted. There is no automatic retry.
func (s *Sender) All(ctx context.Context, animals []models.Animal) Report {
	report := Report{Attempted: len(animals)}

	s.Log.Info("sending records", zap.String("target", s.TargetURL), zap.Int("count", len(animals)))

	for i, a := range animals {
		if err := s.one(ctx, a); err != nil {
			var serr *Error
			errors.As(err, &serr)
			report.Failures = append(report.Failures, toFailure(i, a, serr))
			s.Log.Error("record not sent",
				zap.Int("index", i),
				zap.String("nom", a.Nom),
				zap.Error(err))
			continue
		}
		report.Sent++
		s.Log.Info("record sent",
			zap.Int("index", i),
			zap.Int("total", len(animals)),
			zap.String("nom", a.Nom))
	}

	s.Log.Info("send done",
		zap.Int("sent", report.Sent),
		zap.Int("failed", len(report.Failures)))
	return report
}

func (s *Sender) one(ctx context.Context, a models.Animal) error {
	body, err := json.Marshal(a)
	if err != nil {
		return &Error{Nom: a.Nom, Err: fmt.Errorf("marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TargetURL, bytes.NewReader(body))
	if err != nil {
		return &Error{Nom: a.Nom, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return &Error{Nom: a.Nom, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &Error{
			Nom:        a.Nom,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("api response: %s", string(text)),
		}
	}
	return nil
}

func toFailure(index int, a models.Animal, serr *Error) Failure {
	f := Failure{Index: index, Animal: a, ErrorType: KindConnection}
	if serr == nil {
		return f
	}

	switch {
	case serr.StatusCode != 0:
		f.ErrorType = KindHTTP
		f.StatusCode = serr.StatusCode
	case isTimeout(serr.Err):
		f.ErrorType = KindTimeout
	}
	if serr.Err != nil {
		f.Detail = serr.Err.Error()
	}
	return f
}

func isTimeout(err error) bool {
	var nerr interface{ Timeout() bool }
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
