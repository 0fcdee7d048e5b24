package aws

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/storacha/uploadurl/pkg/presigner"
	"github.com/storacha/uploadurl/pkg/service/uploads"
)

// ErrMissingSecret means that the value returned from Secrets was empty
var ErrMissingSecret = errors.New("missing value for secret")

// ErrPartialCredentials means only one of the bucket credential parameters
// was configured.
var ErrPartialCredentials = errors.New("BUCKET_ACCESS_KEY_ID and BUCKET_SECRET_ACCESS_KEY must be set together")

// DefaultLegacyBucketName is the bucket the fixed key handler signs for
// unless LEGACY_BUCKET_NAME is set.
const DefaultLegacyBucketName = "jd-tier-list-images"

func getEnv(envVar string, fallback string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return fallback
}

// SSMClient is the subset of the SSM API used to fetch secrets.
type SSMClient interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

type Config struct {
	Config    aws.Config
	S3Options []func(*s3.Options)

	SentryDSN         string
	SentryEnvironment string

	BucketName            string
	BucketEndpoint        string
	BucketRegion          string
	BucketAccessKeyID     string
	BucketSecretAccessKey string

	LegacyBucketName string
	LegacyObjectKey  string
}

func getSSMParams(ctx context.Context, client SSMClient, names ...string) (map[string]string, error) {
	response, err := client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving SSM parameters: %w", err)
	}
	params := map[string]string{}
	for _, name := range names {
		value := ""
		for _, p := range response.Parameters {
			if aws.ToString(p.Name) == name {
				value = aws.ToString(p.Value)
				break
			}
		}
		if value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSecret, name)
		}
		params[name] = value
	}
	return params, nil
}

// FromEnv constructs the AWS Configuration from the environment
func FromEnv(ctx context.Context) Config {
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Errorf("loading aws default config: %w", err))
	}

	cfg, err := fromEnv(ctx, awsConfig, ssm.NewFromConfig(awsConfig))
	if err != nil {
		panic(err)
	}
	return cfg
}

func fromEnv(ctx context.Context, awsConfig aws.Config, ssmClient SSMClient) (Config, error) {
	cfg := Config{
		Config:            awsConfig,
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SentryEnvironment: os.Getenv("SENTRY_ENVIRONMENT"),
		// bucketName is the variable name older deployments use
		BucketName:       getEnv("BUCKET_NAME", os.Getenv("bucketName")),
		BucketEndpoint:   os.Getenv("BUCKET_ENDPOINT"),
		BucketRegion:     os.Getenv("BUCKET_REGION"),
		LegacyBucketName: getEnv("LEGACY_BUCKET_NAME", DefaultLegacyBucketName),
		LegacyObjectKey:  getEnv("LEGACY_OBJECT_KEY", uploads.DefaultObjectKey),
	}

	// bucket credentials are optional, but come as a pair
	accessKeyIDName := os.Getenv("BUCKET_ACCESS_KEY_ID")
	secretAccessKeyName := os.Getenv("BUCKET_SECRET_ACCESS_KEY")
	if accessKeyIDName != "" || secretAccessKeyName != "" {
		if accessKeyIDName == "" || secretAccessKeyName == "" {
			return Config{}, ErrPartialCredentials
		}
		secrets, err := getSSMParams(ctx, ssmClient, accessKeyIDName, secretAccessKeyName)
		if err != nil {
			return Config{}, err
		}
		cfg.BucketAccessKeyID = secrets[accessKeyIDName]
		cfg.BucketSecretAccessKey = secrets[secretAccessKeyName]
	}

	return cfg, nil
}

func (cfg Config) s3Options() []func(*s3.Options) {
	opts := append([]func(*s3.Options){}, cfg.S3Options...)
	if cfg.BucketRegion != "" {
		opts = append(opts, func(o *s3.Options) {
			o.Region = cfg.BucketRegion
		})
	}
	if cfg.BucketAccessKeyID != "" && cfg.BucketSecretAccessKey != "" {
		opts = append(opts, func(o *s3.Options) {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.BucketAccessKeyID,
				cfg.BucketSecretAccessKey,
				"",
			)
		})
	}
	if cfg.BucketEndpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.BucketEndpoint)
			o.UsePathStyle = true
		})
	}
	return opts
}

// NewPresigner creates a presigner that signs with the credentials resolved
// for the configured bucket.
func NewPresigner(cfg Config) *presigner.S3RequestPresigner {
	return presigner.NewS3RequestPresignerFromClient(s3.NewFromConfig(cfg.Config, cfg.s3Options()...))
}

// Construct builds the service issuing uniquely keyed upload URLs.
func Construct(cfg Config) (*uploads.Service, error) {
	svc, err := uploads.New(NewPresigner(cfg), uploads.WithBucket(cfg.BucketName))
	if err != nil {
		return nil, fmt.Errorf("constructing upload service: %w", err)
	}
	return svc, nil
}

// ConstructLegacy builds the service issuing upload URLs for the fixed key.
func ConstructLegacy(cfg Config) (*uploads.Service, error) {
	svc, err := uploads.New(
		NewPresigner(cfg),
		uploads.WithBucket(cfg.LegacyBucketName),
		uploads.WithObjectKey(cfg.LegacyObjectKey),
	)
	if err != nil {
		return nil, fmt.Errorf("constructing legacy upload service: %w", err)
	}
	return svc, nil
}
