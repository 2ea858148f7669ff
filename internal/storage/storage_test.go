package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	require.Equal(t, "scan.pdf", CleanName("scan.pdf"))
	require.Equal(t, "scan.pdf", CleanName("../../etc/scan.pdf"))
	require.Equal(t, "scan.pdf", CleanName(`C:\Users\me\scan.pdf`))
	require.Equal(t, "untitled", CleanName("  "))
	require.Equal(t, "untitled", CleanName("/"))
}

func TestNameOnlyStore(t *testing.T) {
	var s AttachmentStore = NameOnlyStore{}
	key, err := s.Put(context.Background(), "dir/Invoice_001.pdf", strings.NewReader("body"), 4, "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "Invoice_001.pdf", key)

	_, err = s.URL(context.Background(), key, time.Minute)
	require.ErrorIs(t, err, ErrNoObjectStore)
}

func TestObjectKey(t *testing.T) {
	k := objectKey("a/b.pdf")
	require.True(t, strings.HasPrefix(k, "courriers/"))
	require.True(t, strings.HasSuffix(k, "/b.pdf"))
	require.NotEqual(t, k, objectKey("a/b.pdf"))
}

func TestNewMinIOStorage_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOStorage(context.Background(), config.MinIOConfig{Bucket: "courriers"})
	require.Error(t, err)
}
