package verifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
	"github.com/cuongbtq/geophoto-worker/shared/retry"
)

type stubClassifier struct {
	result *domain.Classification
	err    error
	panics bool
	calls  []string
}

func (s *stubClassifier) Classify(_ context.Context, photoID string) (*domain.Classification, error) {
	s.calls = append(s.calls, photoID)
	if s.panics {
		panic("classifier exploded")
	}
	return s.result, s.err
}

func tempPhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo_p1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o644))
	return path
}

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name       string
		classifier *stubClassifier
		want       bool
	}{
		{name: "verified", classifier: &stubClassifier{result: &domain.Classification{Verified: true}}, want: true},
		{name: "not verified", classifier: &stubClassifier{result: &domain.Classification{Verified: false}}, want: false},
		{name: "nil result", classifier: &stubClassifier{}, want: false},
		{name: "classify error", classifier: &stubClassifier{err: errors.New("500 from service")}, want: false},
		{name: "classifier panic", classifier: &stubClassifier{panics: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tempPhoto(t)
			v := New(Config{Classifier: tt.classifier})

			got := v.Verify(context.Background(), path, "p1")

			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"p1"}, tt.classifier.calls)
			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err), "temp file must be removed")
		})
	}
}

func TestVerifier_RetriesTransientClassifyErrors(t *testing.T) {
	path := tempPhoto(t)
	classifier := &flakyClassifier{failures: 2}
	v := New(Config{
		Classifier: classifier,
		Retrier:    retry.New(retry.Policy{MaxAttempts: 3}, nil, nil),
	})

	assert.True(t, v.Verify(context.Background(), path, "p1"))
	assert.Equal(t, 3, classifier.calls)
}

type flakyClassifier struct {
	failures int
	calls    int
}

func (f *flakyClassifier) Classify(context.Context, string) (*domain.Classification, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, retry.NewRetryableError(errors.New("gateway timeout"))
	}
	return &domain.Classification{Verified: true}, nil
}

func TestVerifier_CleanupErrorIsOnlyLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	v := New(Config{
		Classifier: &stubClassifier{result: &domain.Classification{Verified: true}},
		Logger:     logger,
		Remove:     func(string) error { return errors.New("permission denied") },
	})

	assert.True(t, v.Verify(context.Background(), "/tmp/photo_p1.jpg", "p1"))
	assert.Contains(t, logs.String(), "Failed to clean up file")
	assert.Contains(t, logs.String(), domain.ErrCleanup.Error())
}

func TestVerifier_MissingFileIsNotACleanupError(t *testing.T) {
	var logs bytes.Buffer
	v := New(Config{
		Classifier: &stubClassifier{result: &domain.Classification{Verified: false}},
		Logger:     slog.New(slog.NewJSONHandler(&logs, nil)),
	})

	assert.False(t, v.Verify(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"), "p1"))
	assert.NotContains(t, logs.String(), "Failed to clean up file")
}
