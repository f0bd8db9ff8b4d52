package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3DB stores one JSON object per document under <collection>/<key>.json.
// Object stores offer no multi-object atomicity; updates are serialized per
// collection inside this process only.
type S3DB struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error

	mu          sync.Mutex
	collections map[string]*s3Collection
}

func NewS3(cfg S3Config) (*S3DB, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3DB{
		client:      client,
		bucketName:  bucket,
		region:      region,
		collections: make(map[string]*s3Collection),
	}, nil
}

func (s *S3DB) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3DB) Collection(ctx context.Context, name, keyField string) (Collection, error) {
	name = strings.TrimSpace(name)
	keyField = strings.TrimSpace(keyField)
	if name == "" || keyField == "" {
		return nil, fmt.Errorf("collection name and key field are required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := &s3Collection{db: s, name: name, keyField: keyField}
	s.collections[name] = c
	return c, nil
}

func (s *S3DB) Close(context.Context) error { return nil }

type s3Collection struct {
	db       *S3DB
	name     string
	keyField string

	mu sync.Mutex
}

func (c *s3Collection) Name() string     { return c.name }
func (c *s3Collection) KeyField() string { return c.keyField }

func (c *s3Collection) prefix() string {
	return c.name + "/"
}

func (c *s3Collection) objectKey(key string) string {
	return c.prefix() + url.PathEscape(key) + ".json"
}

func (c *s3Collection) get(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := c.db.client.GetObject(ctx, c.db.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (c *s3Collection) put(ctx context.Context, objectKey string, raw []byte) error {
	_, err := c.db.client.PutObject(ctx, c.db.bucketName, objectKey, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (c *s3Collection) exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := c.db.client.StatObject(ctx, c.db.bucketName, objectKey, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

// scan returns matching documents ordered by object key.
func (c *s3Collection) scan(ctx context.Context, filter Filter, limit int) ([]string, [][]byte, error) {
	if key, ok := keyLookup(c.keyField, filter); ok {
		objectKey := c.objectKey(key)
		raw, err := c.get(ctx, objectKey)
		if errors.Is(err, ErrNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return []string{objectKey}, [][]byte{raw}, nil
	}
	objectKeys := make([]string, 0, 32)
	for obj := range c.db.client.ListObjects(ctx, c.db.bucketName, minio.ListObjectsOptions{
		Prefix:    c.prefix(),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		objectKeys = append(objectKeys, obj.Key)
	}
	sort.Strings(objectKeys)

	var (
		keys []string
		raws [][]byte
	)
	for _, objectKey := range objectKeys {
		raw, err := c.get(ctx, objectKey)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		d, err := parseDocument(raw)
		if err != nil {
			return nil, nil, err
		}
		ok, err := d.matches(filter)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		keys = append(keys, objectKey)
		raws = append(raws, raw)
		if limit > 0 && len(raws) >= limit {
			break
		}
	}
	return keys, raws, nil
}

func (c *s3Collection) FindOne(ctx context.Context, filter Filter, out any) error {
	_, raws, err := c.scan(ctx, filter, 1)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return ErrNotFound
	}
	return decodeInto(raws[0], out)
}

func (c *s3Collection) InsertOne(ctx context.Context, doc any) error {
	d, err := toDocument(doc)
	if err != nil {
		return err
	}
	key, err := d.keyValue(c.keyField)
	if err != nil {
		return err
	}
	raw, err := encode(d)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	objectKey := c.objectKey(key)
	taken, err := c.exists(ctx, objectKey)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s %q", ErrDuplicateKey, c.name, key)
	}
	return c.put(ctx, objectKey, raw)
}

func (c *s3Collection) FindOneAndUpdate(ctx context.Context, filter Filter, update Update, out any) error {
	if touchesKey(c.keyField, update) {
		return ErrImmutableKey
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, raws, err := c.scan(ctx, filter, 1)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return ErrNotFound
	}
	d, err := parseDocument(raws[0])
	if err != nil {
		return err
	}
	if err := d.apply(update); err != nil {
		return err
	}
	raw, err := encode(d)
	if err != nil {
		return err
	}
	if err := c.put(ctx, keys[0], raw); err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func (c *s3Collection) DeleteOne(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, _, err := c.scan(ctx, filter, 1)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrNotFound
	}
	return c.db.client.RemoveObject(ctx, c.db.bucketName, keys[0], minio.RemoveObjectOptions{})
}

func (c *s3Collection) Find(ctx context.Context, filter Filter, out any) error {
	_, raws, err := c.scan(ctx, filter, 0)
	if err != nil {
		return err
	}
	return decodeAll(raws, out)
}
