package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/blog-service/internal/config"
	"github.com/pribylovaa/blog-service/internal/metrics"
	"github.com/pribylovaa/blog-service/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		BcryptCost:      bcrypt.MinCost,
	}
}

func testUploadCfg() config.UploadConfig {
	return config.UploadConfig{
		MaxSizeBytes:        5 * 1024 * 1024,
		AllowedContentTypes: []string{"image/png", "image/jpeg", "image/jpg"},
	}
}

// testDeps — сервис с моками и собственным реестром метрик.
type testDeps struct {
	svc     *Service
	st      *mocks.MockStorage
	blobs   *mocks.MockBlobStore
	metrics *metrics.Metrics
}

func newSvc(t *testing.T) testDeps {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)
	m := metrics.New(prometheus.NewRegistry())

	return testDeps{
		svc:     New(st, blobs, testAuthCfg(), testUploadCfg(), m),
		st:      st,
		blobs:   blobs,
		metrics: m,
	}
}

// frozenClock — управляемые часы для проверок срока действия токенов.
type frozenClock struct{ t time.Time }

func (c *frozenClock) now() time.Time { return c.t }

func (c *frozenClock) advance(d time.Duration) { c.t = c.t.Add(d) }
