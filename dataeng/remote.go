// Remote pointer support for S3 and HTTP URLs.
package dataeng

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains S3 authentication configuration.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // Optional: custom S3-compatible endpoint
}

// urlScheme represents the scheme of a pointer string
type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local" // no scheme, local path
)

// detectScheme detects the URL scheme from a pointer string
func detectScheme(pointer string) urlScheme {
	lower := strings.ToLower(pointer)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return schemeS3
	case strings.HasPrefix(lower, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lower, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

// localize maps a pointer to a local file path DuckDB can read, fetching
// remote pointers into the cache directory. The cache key is derived from
// the pointer so repeated snapshots of the same pointer reuse the download.
func (e *Engine) localize(pointer string) (string, error) {
	scheme := detectScheme(pointer)

	switch scheme {
	case schemeLocal:
		return pointer, nil

	case schemeFile:
		return strings.TrimPrefix(pointer, "file://"), nil

	case schemeHTTP, schemeHTTPS, schemeS3:
		reader, err := e.openRemoteReader(pointer, scheme)
		if err != nil {
			return "", err
		}
		defer reader.Close()
		return e.cacheRemote(pointer, reader)

	default:
		return "", fmt.Errorf("unsupported pointer scheme: %s", pointer)
	}
}

func (e *Engine) openRemoteReader(pointer string, scheme urlScheme) (io.ReadCloser, error) {
	switch scheme {
	case schemeHTTP, schemeHTTPS:
		return openHTTPReader(pointer)
	case schemeS3:
		return openS3Reader(pointer, e.s3cfg)
	default:
		return nil, fmt.Errorf("unsupported remote scheme: %s", pointer)
	}
}

// cacheRemote writes a remote pointer's content into the cache directory,
// keeping the pointer's extension so format detection still works.
func (e *Engine) cacheRemote(pointer string, reader io.Reader) (string, error) {
	if e.cacheDir == "" {
		return "", fmt.Errorf("remote pointer %q requires a cache directory", pointer)
	}
	if err := os.MkdirAll(e.cacheDir, 0755); err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(pointer))
	local := filepath.Join(e.cacheDir, hex.EncodeToString(sum[:8])+filepath.Ext(pointer))

	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	tmp, err := os.CreateTemp(e.cacheDir, "fetch-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to fetch %s: %w", pointer, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", err
	}

	return local, nil
}

// openHTTPReader opens an HTTP GET reader
func openHTTPReader(url string) (io.ReadCloser, error) {
	client := &http.Client{
		Timeout: 5 * time.Minute, // generous timeout for large files
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// parseS3URL parses s3://bucket/key into bucket and key parts
func parseS3URL(url string) (bucket, key string, err error) {
	path := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return parts[0], parts[1], nil
}

// getS3Client creates an S3 client with the given configuration
func getS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// openS3Reader opens a reader for an S3 object
func openS3Reader(url string, cfg *S3Config) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}

	return resp.Body, nil
}
