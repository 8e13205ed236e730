package app

import "testing"

func TestCacheSkippedPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/v1/health", true},
		{"/api/v1/health/db", true},
		{"/api/v1/scheduler/jobs", true},
		// 授权变更必须即时生效，文档端点一律绕过缓存
		{"/api/v1/documents", true},
		{"/api/v1/documents/42/download", true},
		{"/api/v1/documents/search", true},
		{"/api/v1/registry/organizations", false},
		{"/api/v1/registry/agents/7", false},
	}

	for _, tt := range tests {
		if got := cacheSkippedPath(tt.path); got != tt.want {
			t.Errorf("cacheSkippedPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
