package api

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"broadoak/internal/importer"
)

// ErrPreviewNotFound 预演结果不存在或已过期
var ErrPreviewNotFound = errors.New("preview not found or expired")

type preview struct {
	report    *importer.Report
	expiresAt time.Time
}

// previewStore 保留试运行报告，供操作员确认后提交或导出
type previewStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]preview
}

func newPreviewStore(ttl time.Duration) *previewStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &previewStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]preview),
	}
}

func (s *previewStore) put(report *importer.Report) (token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	token = newRandomToken(24)
	expiresAt = now.Add(s.ttl)
	s.items[token] = preview{report: report, expiresAt: expiresAt}
	return token, expiresAt
}

func (s *previewStore) get(token string) (*importer.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	v, ok := s.items[token]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	return v.report, nil
}

// take 取出预演结果，提交期间其他请求无法再取得同一结果
func (s *previewStore) take(token string) (*importer.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(s.now())

	v, ok := s.items[token]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	delete(s.items, token)
	return v.report, nil
}

// restore 提交失败后放回原令牌下，并重新计时
func (s *previewStore) restore(token string, report *importer.Report) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)
	s.items[token] = preview{report: report, expiresAt: expiresAt}
	return expiresAt
}

func (s *previewStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return len(s.items)
}

func (s *previewStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
