package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SecretStoreConfig points at an S3-compatible bucket holding deployment secrets
type SecretStoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	JWTKey    string `mapstructure:"jwt_key"`
}

// Enabled reports whether enough settings are present to reach the bucket
func (s SecretStoreConfig) Enabled() bool {
	s = s.withEnv()
	return s.Endpoint != "" && s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

func (s SecretStoreConfig) withEnv() SecretStoreConfig {
	if v := os.Getenv("SECRET_STORE_ENDPOINT"); v != "" {
		s.Endpoint = v
	}
	if v := os.Getenv("SECRET_STORE_ACCESS_KEY"); v != "" {
		s.AccessKey = v
	}
	if v := os.Getenv("SECRET_STORE_SECRET_KEY"); v != "" {
		s.SecretKey = v
	}
	if v := os.Getenv("SECRET_STORE_BUCKET"); v != "" {
		s.Bucket = v
	}
	return s
}

// FetchSecret reads one object from the secret store
func FetchSecret(store SecretStoreConfig, key string) (string, error) {
	store = store.withEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			store.AccessKey,
			store.SecretKey,
			"",
		)),
		awsconfig.WithRegion(store.Region),
	)
	if err != nil {
		return "", fmt.Errorf("configure s3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(store.Endpoint)
		o.UsePathStyle = true
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}

	return strings.TrimSpace(string(secret)), nil
}
