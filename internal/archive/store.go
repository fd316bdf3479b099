// Package archive moves aged activity logs out of Postgres into object
// storage as NDJSON batches, one object per organization per day.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/sts"
	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"arfa/internal/auth"
	"arfa/internal/config"
)

type STSCredentials struct {
	AccessKeyID     string `json:"access_key_id"`
	AccessKeySecret string `json:"access_key_secret"`
	SecurityToken   string `json:"security_token"`
	Expiration      string `json:"expiration"`

	Provider   string `json:"provider"`
	Bucket     string `json:"bucket"`
	Endpoint   string `json:"endpoint"`
	Region     string `json:"region"`
	BasePrefix string `json:"base_prefix"`
}

type ObjectStore interface {
	PutObject(ctx context.Context, key string, contentType string, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	ListObjects(ctx context.Context, prefix string, limit int) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// STSAssumer hands out short-lived read credentials so operators can pull
// archived batches without holding the bucket's root keys.
type STSAssumer interface {
	AssumeRole(ctx context.Context, sessionName string, durationSeconds int) (STSCredentials, error)
}

func JoinKey(basePrefix, key string) string {
	basePrefix = strings.Trim(strings.TrimSpace(basePrefix), "/")
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if basePrefix == "" {
		return key
	}
	if key == "" {
		return basePrefix
	}
	return basePrefix + "/" + key
}

func NewObjectStore(cfg config.Config) (ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ArchiveProvider)) {
	case "local":
		if strings.TrimSpace(cfg.ArchiveLocalDir) == "" {
			return nil, errors.New("ARFA_ARCHIVE_LOCAL_DIR is required when ARFA_ARCHIVE_PROVIDER=local")
		}
		return localStore{root: cfg.ArchiveLocalDir, basePrefix: cfg.ArchiveBasePrefix}, nil
	case "aliyun":
		if cfg.ArchiveEndpoint == "" || cfg.ArchiveAccessKeyID == "" || cfg.ArchiveAccessKeySecret == "" || cfg.ArchiveBucket == "" {
			return nil, errors.New("missing archive config for aliyun provider")
		}
		client, err := oss.New(cfg.ArchiveEndpoint, cfg.ArchiveAccessKeyID, cfg.ArchiveAccessKeySecret)
		if err != nil {
			return nil, err
		}
		bucket, err := client.Bucket(cfg.ArchiveBucket)
		if err != nil {
			return nil, err
		}
		return aliyunStore{bucket: bucket, basePrefix: cfg.ArchiveBasePrefix}, nil
	default:
		return nil, errors.New("unsupported archive provider (set ARFA_ARCHIVE_PROVIDER=aliyun|local)")
	}
}

func NewSTSAssumer(cfg config.Config) (STSAssumer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ArchiveProvider)) {
	case "local":
		return localSTS{cfg: cfg}, nil
	case "aliyun":
		if cfg.ArchiveRegion == "" {
			// Not strictly required by the SDK, but we need a stable way to pick endpoint.
			return nil, errors.New("ARFA_ARCHIVE_REGION is required when ARFA_ARCHIVE_PROVIDER=aliyun")
		}
		if cfg.ArchiveAccessKeyID == "" || cfg.ArchiveAccessKeySecret == "" || cfg.ArchiveSTSRoleARN == "" {
			return nil, errors.New("missing STS config (ARFA_ARCHIVE_ACCESS_KEY_ID/SECRET + ARFA_ARCHIVE_STS_ROLE_ARN)")
		}
		client, err := sts.NewClientWithAccessKey(cfg.ArchiveRegion, cfg.ArchiveAccessKeyID, cfg.ArchiveAccessKeySecret)
		if err != nil {
			return nil, err
		}
		return aliyunSTS{client: client, roleARN: cfg.ArchiveSTSRoleARN, bucket: cfg.ArchiveBucket, basePrefix: cfg.ArchiveBasePrefix}, nil
	default:
		return nil, errors.New("unsupported archive provider (set ARFA_ARCHIVE_PROVIDER=aliyun|local)")
	}
}

type localStore struct {
	root       string
	basePrefix string
}

func (s localStore) PutObject(ctx context.Context, key string, contentType string, body []byte) error {
	_ = ctx
	_ = contentType
	fullKey := JoinKey(s.basePrefix, key)
	p := filepath.Join(s.root, filepath.FromSlash(fullKey))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	// Best-effort atomic write.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (s localStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	fullKey := JoinKey(s.basePrefix, key)
	p := filepath.Join(s.root, filepath.FromSlash(fullKey))
	return os.ReadFile(p)
}

func (s localStore) ListObjects(ctx context.Context, prefix string, limit int) ([]string, error) {
	_ = ctx
	if limit <= 0 {
		limit = 100
	}
	fullPrefix := JoinKey(s.basePrefix, strings.TrimLeft(prefix, "/"))
	rootPath := filepath.Join(s.root, filepath.FromSlash(fullPrefix))

	var out []string
	walkRoot := filepath.Clean(rootPath)
	err := filepath.WalkDir(walkRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		if len(out) >= limit {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipDir) {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (s localStore) Exists(ctx context.Context, key string) (bool, error) {
	_ = ctx
	fullKey := JoinKey(s.basePrefix, key)
	p := filepath.Join(s.root, filepath.FromSlash(fullKey))
	_, err := os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

type aliyunStore struct {
	bucket     *oss.Bucket
	basePrefix string
}

func (s aliyunStore) PutObject(ctx context.Context, key string, contentType string, body []byte) error {
	_ = ctx
	fullKey := JoinKey(s.basePrefix, key)
	opts := []oss.Option{}
	if strings.TrimSpace(contentType) != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	return s.bucket.PutObject(fullKey, bytes.NewReader(body), opts...)
}

func (s aliyunStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	fullKey := JoinKey(s.basePrefix, key)
	rc, err := s.bucket.GetObject(fullKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s aliyunStore) ListObjects(ctx context.Context, prefix string, limit int) ([]string, error) {
	_ = ctx
	if limit <= 0 {
		limit = 100
	}
	fullPrefix := JoinKey(s.basePrefix, strings.TrimLeft(prefix, "/"))
	res, err := s.bucket.ListObjects(oss.Prefix(fullPrefix), oss.MaxKeys(limit))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Objects))
	for _, o := range res.Objects {
		out = append(out, o.Key)
	}
	return out, nil
}

func (s aliyunStore) Exists(ctx context.Context, key string) (bool, error) {
	_ = ctx
	fullKey := JoinKey(s.basePrefix, key)
	return s.bucket.IsObjectExist(fullKey)
}

type localSTS struct {
	cfg config.Config
}

func (s localSTS) AssumeRole(ctx context.Context, sessionName string, durationSeconds int) (STSCredentials, error) {
	_ = ctx
	_ = sessionName
	if durationSeconds <= 0 {
		durationSeconds = s.cfg.ArchiveSTSDurationSecs
	}
	exp := time.Now().Add(time.Duration(durationSeconds) * time.Second).UTC().Format(time.RFC3339)
	token, err := auth.NewSecureToken()
	if err != nil {
		return STSCredentials{}, err
	}
	return STSCredentials{
		Provider:        "local",
		AccessKeyID:     "local",
		AccessKeySecret: "local",
		SecurityToken:   token,
		Expiration:      exp,
		Bucket:          s.cfg.ArchiveBucket,
		Endpoint:        s.cfg.ArchiveEndpoint,
		Region:          s.cfg.ArchiveRegion,
		BasePrefix:      strings.Trim(strings.TrimSpace(s.cfg.ArchiveBasePrefix), "/"),
	}, nil
}

type aliyunSTS struct {
	client     *sts.Client
	roleARN    string
	bucket     string
	basePrefix string
}

func (s aliyunSTS) AssumeRole(ctx context.Context, sessionName string, durationSeconds int) (STSCredentials, error) {
	_ = ctx
	policy, err := buildReadPolicy(s.bucket, s.basePrefix)
	if err != nil {
		return STSCredentials{}, err
	}

	req := sts.CreateAssumeRoleRequest()
	req.Scheme = "https"
	req.RoleArn = s.roleARN
	req.RoleSessionName = sessionName
	req.Policy = policy
	req.DurationSeconds = requests.NewInteger(durationSeconds)

	// SDK doesn't take context; best-effort.
	resp, err := s.client.AssumeRole(req)
	if err != nil {
		return STSCredentials{}, err
	}
	if resp == nil || resp.Credentials.AccessKeyId == "" {
		return STSCredentials{}, errors.New("sts assume role returned empty credentials")
	}
	return STSCredentials{
		Provider:        "aliyun_sts",
		AccessKeyID:     resp.Credentials.AccessKeyId,
		AccessKeySecret: resp.Credentials.AccessKeySecret,
		SecurityToken:   resp.Credentials.SecurityToken,
		Expiration:      resp.Credentials.Expiration,
		Bucket:          s.bucket,
		BasePrefix:      s.basePrefix,
	}, nil
}

// buildReadPolicy scopes the assumed role to list + read under the archive
// prefix. Writes stay with the long-lived worker credentials.
func buildReadPolicy(bucket, basePrefix string) (string, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return "", errors.New("missing bucket")
	}
	prefix := strings.Trim(strings.TrimSpace(basePrefix), "/")
	pattern := "*"
	if prefix != "" {
		pattern = prefix + "/*"
	}
	policy := fmt.Sprintf(`{"Version":"1","Statement":[`+
		`{"Effect":"Allow","Action":["oss:ListObjects"],"Resource":["acs:oss:*:*:%s"],"Condition":{"StringLike":{"oss:Prefix":[%q]}}},`+
		`{"Effect":"Allow","Action":["oss:GetObject"],"Resource":["acs:oss:*:*:%s/%s"]}]}`,
		bucket, pattern, bucket, pattern)
	return policy, nil
}
