// Package secrets fetches database credential bundles from AWS Secrets Manager.
package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
)

// Bundle keys used by RDS-style credential secrets
const (
	KeyUsername = "username"
	KeyPassword = "password"
	KeyHost     = "host"
	KeyPort     = "port"
	KeyDBName   = "dbname"
)

// Common fetch errors
var (
	ErrBinarySecret = errors.New("secret is binary, unsupported")
	ErrEmptySecret  = errors.New("secret has no value")
)

// Bundle is the decoded key/value document stored in a secret
type Bundle map[string]interface{}

// Get returns the value stored under key as a string. Numbers are rendered
// without exponent so a numeric port survives. Missing, null and blank
// values all report false.
func (b Bundle) Get(key string) (string, bool) {
	raw, ok := b[key]
	if !ok || raw == nil {
		return "", false
	}

	var value string
	switch v := raw.(type) {
	case string:
		value = v
	case json.Number:
		value = v.String()
	default:
		return "", false
	}

	value = strings.TrimSpace(value)
	return value, value != ""
}

// Fetcher retrieves a credential bundle for a secret in a region
type Fetcher interface {
	Fetch(ctx context.Context, secretID, region string) (Bundle, error)
}

// API is the subset of the Secrets Manager client the fetcher needs
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ClientFactory builds a region-scoped Secrets Manager client
type ClientFactory func(ctx context.Context, region string) (API, error)

// AWSFetcher implements Fetcher on top of the AWS SDK
type AWSFetcher struct {
	newClient ClientFactory
}

// NewAWSFetcher creates a fetcher that resolves credentials through the
// default AWS provider chain.
func NewAWSFetcher() *AWSFetcher {
	return &AWSFetcher{newClient: defaultClient}
}

// NewFetcherWithFactory creates a fetcher with a custom client factory
func NewFetcherWithFactory(factory ClientFactory) *AWSFetcher {
	return &AWSFetcher{newClient: factory}
}

func defaultClient(ctx context.Context, region string) (API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// Fetch retrieves and decodes the named secret. A single attempt is made;
// the caller decides whether a failure is recoverable.
func (f *AWSFetcher) Fetch(ctx context.Context, secretID, region string) (Bundle, error) {
	client, err := f.newClient(ctx, region)
	if err != nil {
		return nil, err
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get secret value for %s", secretID)
	}

	if out.SecretString == nil {
		if len(out.SecretBinary) > 0 {
			return nil, ErrBinarySecret
		}
		return nil, ErrEmptySecret
	}

	return Parse(aws.ToString(out.SecretString))
}

// Parse decodes a secret string into a Bundle. The document must be a JSON object.
func Parse(secret string) (Bundle, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(secret)))
	dec.UseNumber()

	var bundle Bundle
	if err := dec.Decode(&bundle); err != nil {
		return nil, errors.Wrap(err, "failed to parse secret string")
	}
	if bundle == nil {
		return nil, errors.New("secret string is not a JSON object")
	}
	return bundle, nil
}
