package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/docvault/pkg/configs"
)

// init 注册内存工厂.
func init() {
	RegisterFactory(configs.BlobTypeMemory, func(_ context.Context, _ *configs.BlobConfig) (Store, error) {
		return NewMemoryStore(), nil
	})
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore 内存 Store 实现，仅用于测试与本地开发.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
}

// NewMemoryStore 创建内存对象存储.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]memoryObject)}
}

// EnsureBucket 确保桶存在.
func (m *MemoryStore) EnsureBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string]memoryObject)
	}

	return nil
}

// Put 写入对象.
func (m *MemoryStore) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	objs, ok := m.buckets[bucket]
	if !ok {
		objs = make(map[string]memoryObject)
		m.buckets[bucket] = objs
	}

	objs[key] = memoryObject{data: data, contentType: contentType, modified: time.Now()}

	return nil
}

// Get 读取对象.
func (m *MemoryStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete 删除对象.
func (m *MemoryStore) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets[bucket], key)

	return nil
}

// Copy 桶内复制对象.
func (m *MemoryStore) Copy(_ context.Context, bucket, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.buckets[bucket][srcKey]
	if !ok {
		return ErrNotFound
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)

	m.buckets[bucket][dstKey] = memoryObject{data: data, contentType: obj.contentType, modified: time.Now()}

	return nil
}

// List 列出前缀下的全部对象.
func (m *MemoryStore) List(_ context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var infos []ObjectInfo

	for key, obj := range m.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })

	return infos, nil
}

// RemoveBucket 删除桶.非空桶报错，与 S3 语义一致.
func (m *MemoryStore) RemoveBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.buckets[bucket]) > 0 {
		return fmt.Errorf("remove bucket %s: bucket not empty", bucket)
	}

	delete(m.buckets, bucket)

	return nil
}

// HealthCheck 始终健康.
func (m *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

// Close 释放资源.
func (m *MemoryStore) Close() error {
	return nil
}
