package credstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"hmacgate/auth"
	"hmacgate/logger"
)

// maxSecretObjectSize - объект с ключом больше этого размера считается ошибкой
const maxSecretObjectSize = 64 << 10

// S3API - подмножество клиента S3, которое нужно хранилищу
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store читает секрет из объекта <prefix><username> в бакете
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3Store создает клиента S3 по конфигурации
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	// Без явных ключей используется стандартная цепочка AWS (env, профиль, роль)
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for credential store: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	if strings.HasPrefix(strings.ToLower(cfg.Endpoint), "http://") {
		logger.Warn("S3 credential store uses plain HTTP endpoint %s", cfg.Endpoint)
	}
	logger.Info("S3 credential store: endpoint=%s bucket=%s prefix=%q", cfg.Endpoint, cfg.Bucket, cfg.Prefix)

	return NewS3StoreFromClient(client, cfg.Bucket, cfg.Prefix, cfg.Timeout), nil
}

// NewS3StoreFromClient оборачивает готовый клиент
func NewS3StoreFromClient(client S3API, bucket, prefix string, timeout time.Duration) *S3Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix, timeout: timeout}
}

// Key возвращает ключ объекта для пользователя
func (s *S3Store) Key(username string) string {
	return s.prefix + username
}

// Lookup читает секрет пользователя из объекта
func (s *S3Store) Lookup(ctx context.Context, username string) (auth.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(username)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return auth.Credential{}, notFound(ProviderS3, username)
		}
		return auth.Credential{}, fmt.Errorf("s3 lookup %q: %w", username, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxSecretObjectSize+1))
	if err != nil {
		return auth.Credential{}, fmt.Errorf("s3 read %q: %w", username, err)
	}
	if len(data) > maxSecretObjectSize {
		return auth.Credential{}, fmt.Errorf("s3 object for %q exceeds %d bytes", username, maxSecretObjectSize)
	}

	// Файлы с ключами часто заканчиваются переводом строки
	secret := bytes.TrimRight(data, "\r\n")
	if len(secret) == 0 {
		return auth.Credential{}, notFound(ProviderS3, username)
	}

	return auth.Credential{Username: username, Secret: auth.Secret(secret)}, nil
}

// Provider возвращает тип хранилища
func (s *S3Store) Provider() string { return ProviderS3 }

// Ping выполняет легковесную проверку - HeadBucket
func (s *S3Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err
}

// Close ничего не делает: у клиента S3 нет долгоживущих соединений, требующих закрытия
func (s *S3Store) Close() error { return nil }

// isS3NotFound распознает 404 от S3 во всех формах, которые возвращает SDK
func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}

	// Общий fallback: любой тип в цепочке, который знает HTTP-код
	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}

	return false
}
