package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truenorth/comex/backend/pkg/config"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://datasets/ncm/ncm_completo.json", "datasets", "ncm/ncm_completo.json", false},
		{"s3://datasets/", "", "", true},
		{"https://datasets/ncm.json", "", "", true},
		{"s3:///ncm.json", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestClient_OpenFromCustomEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// path-style addressing against a custom endpoint
		assert.Equal(t, "/datasets/ncm_completo.json", r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), config.StorageConfig{
		S3Region:    "us-east-1",
		S3Endpoint:  server.URL,
		S3AccessKey: "test",
		S3SecretKey: "test",
	})
	require.NoError(t, err)

	body, err := client.Open(context.Background(), "s3://datasets/ncm_completo.json")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
