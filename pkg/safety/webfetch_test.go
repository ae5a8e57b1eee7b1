package safety

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckWebFetchURLAllowsPublicHTTPS(t *testing.T) {
	require.NoError(t, CheckWebFetchURL("https://example.com/page"))
}

func TestCheckWebFetchURLBlocksMetadataIP(t *testing.T) {
	err := CheckWebFetchURL("http://169.254.169.254/latest/meta-data")
	require.Error(t, err)
}

func TestCheckWebFetchURLBlocksLoopback(t *testing.T) {
	require.Error(t, CheckWebFetchURL("http://127.0.0.1/admin"))
}

func TestCheckWebFetchURLBlocksPrivateRanges(t *testing.T) {
	for _, u := range []string{
		"http://10.0.0.5/",
		"http://172.16.0.5/",
		"http://192.168.1.1/",
	} {
		require.Error(t, CheckWebFetchURL(u), u)
	}
}

func TestCheckWebFetchURLBlocksDeniedHostSuffixes(t *testing.T) {
	for _, u := range []string{
		"http://localhost/",
		"http://foo.local/",
		"http://svc.internal/",
		"http://metadata.google.internal/computeMetadata/v1/",
	} {
		require.Error(t, CheckWebFetchURL(u), u)
	}
}

func TestCheckWebFetchURLRejectsNonHTTPScheme(t *testing.T) {
	require.Error(t, CheckWebFetchURL("ftp://example.com/file"))
}

func TestRequiresApprovalForBrowserMode(t *testing.T) {
	require.Error(t, RequiresApprovalForBrowserMode("browser", false))
	require.NoError(t, RequiresApprovalForBrowserMode("browser", true))
	require.NoError(t, RequiresApprovalForBrowserMode("http", false))
}
