package dsn

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"example.com/backstage/services/interactions/config"
	"example.com/backstage/services/interactions/internal/secrets"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, secretID, region string) (secrets.Bundle, error) {
	args := m.Called(ctx, secretID, region)
	bundle, _ := args.Get(0).(secrets.Bundle)
	return bundle, args.Error(1)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func discrete() config.DatabaseConfig {
	return config.DatabaseConfig{User: "app", Password: "pw", Host: "local", Port: 5432, Name: "appdb"}
}

func withSecret(db config.DatabaseConfig) *config.Config {
	return &config.Config{
		Database: db,
		AWS:      config.AWSConfig{Region: "us-east-1", SecretARN: "arn:db", SecretTimeout: time.Second},
	}
}

func TestExplicitURLWinsRegardlessOfOtherFields(t *testing.T) {
	fetcher := new(MockFetcher)
	cases := []*config.Config{
		{Database: config.DatabaseConfig{URL: "postgresql://x:y@z:1/w"}},
		withSecret(config.DatabaseConfig{URL: "postgresql://x:y@z:1/w"}),
		withSecret(func() config.DatabaseConfig { d := discrete(); d.URL = "postgresql://x:y@z:1/w"; return d }()),
		{Database: config.DatabaseConfig{URL: "host=a user=b dbname=c"}},
	}

	for _, cfg := range cases {
		res, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, cfg.Database.URL, res.URL)
		assert.Equal(t, SourceExplicitURL, res.Source)
	}
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestNothingConfigured(t *testing.T) {
	partials := []config.DatabaseConfig{
		{},
		{User: "u", Password: "p", Host: "h", Port: 5432},
		{User: "u", Host: "h", Port: 5432, Name: "d"},
	}

	for _, db := range partials {
		cfg := &config.Config{Database: db, AWS: config.AWSConfig{Region: "us-east-1"}}
		res, err := NewResolver(new(MockFetcher), quietLogger()).Resolve(context.Background(), cfg)

		require.Error(t, err)
		assert.Empty(t, res.URL)
		assert.ErrorIs(t, err, ErrNotConfigured)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Contains(t, cfgErr.Missing, "DATABASE_URL")
		assert.Contains(t, cfgErr.Missing, "DB_CREDENTIALS_SECRET_ARN")
	}
}

func TestDiscreteFields(t *testing.T) {
	cfg := &config.Config{Database: discrete(), AWS: config.AWSConfig{Region: "us-east-1"}}

	res, err := NewResolver(new(MockFetcher), quietLogger()).Resolve(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgresql://app:pw@local:5432/appdb", res.URL)
	assert.Equal(t, SourceDiscreteFields, res.Source)
}

func TestSecretCredentialsWithLocalLocation(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").
		Return(secrets.Bundle{"username": "u", "password": "p"}, nil)
	cfg := withSecret(config.DatabaseConfig{Host: "h", Port: 5432, Name: "d"})

	res, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgresql://u:p@h:5432/d", res.URL)
	assert.Equal(t, SourceSecretsManager, res.Source)
	fetcher.AssertExpectations(t)
}

func TestSecretValuesOverrideLocalLocation(t *testing.T) {
	bundle, err := secrets.Parse(`{"username":"u","password":"p","host":"rds","port":6432,"dbname":"prod"}`)
	require.NoError(t, err)
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").Return(bundle, nil)

	res, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), withSecret(discrete()))
	require.NoError(t, err)
	assert.Equal(t, "postgresql://u:p@rds:6432/prod", res.URL)
}

func TestSecretWithoutCredentialsFallsBackToLocalCredentials(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").
		Return(secrets.Bundle{"host": "rds"}, nil)

	res, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), withSecret(discrete()))
	require.NoError(t, err)
	assert.Equal(t, "postgresql://app:pw@rds:5432/appdb", res.URL)
	assert.Equal(t, SourceSecretsManager, res.Source)
}

func TestSecretWithoutCredentialsAndIncompleteLocal(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").
		Return(secrets.Bundle{"username": "u", "host": "rds", "port": "5432", "dbname": "d"}, nil)
	cfg := withSecret(config.DatabaseConfig{Host: "h", Port: 5432, Name: "d"})

	_, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), cfg)
	require.ErrorIs(t, err, ErrSecretCredentials)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Missing, "secret:password")
	assert.Contains(t, cfgErr.Missing, "DB_USER")
}

func TestSecretWithoutLocation(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").
		Return(secrets.Bundle{"username": "u", "password": "p", "host": "rds"}, nil)
	cfg := withSecret(config.DatabaseConfig{Name: "d"})

	_, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), cfg)
	require.ErrorIs(t, err, ErrSecretLocation)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"port/DB_PORT"}, cfgErr.Missing)
}

func TestSecretFetchFailureFallsBackByteIdentical(t *testing.T) {
	noSecret, err := NewResolver(new(MockFetcher), quietLogger()).
		Resolve(context.Background(), &config.Config{Database: discrete()})
	require.NoError(t, err)

	for _, fetchErr := range []error{errors.New("AccessDenied"), secrets.ErrBinarySecret, context.DeadlineExceeded} {
		fetcher := new(MockFetcher)
		fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").Return(nil, fetchErr)

		res, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), withSecret(discrete()))
		require.NoError(t, err)
		assert.Equal(t, noSecret.URL, res.URL)
		assert.Equal(t, SourceSecretFallback, res.Source)
	}
}

func TestSecretFetchFailureWithIncompleteLocal(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").Return(nil, errors.New("ResourceNotFoundException"))
	cfg := withSecret(config.DatabaseConfig{Host: "h"})

	_, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), cfg)
	require.ErrorIs(t, err, ErrDatabaseConfiguration)
	assert.Contains(t, err.Error(), "ResourceNotFoundException")
}

func TestSecretFetchIsBounded(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "arn:db", "us-east-1").Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "secret fetch must run under a deadline")
		})

	_, err := NewResolver(fetcher, quietLogger()).Resolve(context.Background(), withSecret(discrete()))
	require.NoError(t, err)
	fetcher.AssertExpectations(t)
}

type stubStrategy struct {
	name       string
	res        Resolution
	applicable bool
	err        error
	calls      int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Resolve(context.Context, *config.Config) (Resolution, bool, error) {
	s.calls++
	return s.res, s.applicable, s.err
}

func TestResolverStopsAtFirstApplicableStrategy(t *testing.T) {
	skipped := &stubStrategy{name: "skipped"}
	failing := &stubStrategy{name: "failing", applicable: true, err: &ConfigError{Err: ErrDatabaseConfiguration}}
	never := &stubStrategy{name: "never", applicable: true, res: Resolution{URL: "postgresql://a:b@c:1/d"}}

	_, err := NewResolverWithStrategies(quietLogger(), skipped, failing, never).
		Resolve(context.Background(), &config.Config{})
	require.ErrorIs(t, err, ErrDatabaseConfiguration)
	assert.Equal(t, 1, skipped.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Zero(t, never.calls)
}

func TestResolverRejectsEmptyURL(t *testing.T) {
	empty := &stubStrategy{name: "empty", applicable: true}

	_, err := NewResolverWithStrategies(quietLogger(), empty).Resolve(context.Background(), &config.Config{})
	require.ErrorIs(t, err, ErrDatabaseConfiguration)
}

func TestCompose(t *testing.T) {
	assert.Equal(t, "postgresql://u:p@h:5432/d", Compose("u", "p", "h", "5432", "d"))
	assert.Equal(t, "postgresql://u:p%40ss%2Fw@h:5432/d", Compose("u", "p@ss/w", "h", "5432", "d"))
	assert.Equal(t, "postgresql://u:p@[::1]:5432/d", Compose("u", "p", "::1", "5432", "d"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgresql://u:xxxxx@h:5432/d", Redact("postgresql://u:p@h:5432/d"))
	assert.Equal(t, "[redacted]", Redact("host=a password=b"))
}
