package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "mirrorsync.json")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

func TestLoadConfigDefaults(t *testing.T) {
	configPath := writeConfigFile(t, `{
		"Provider": {"Type": "swift", "AuthURL": "https://auth.example.com/v1.0"},
		"Sync": [{"Source": "/data", "Destination": "backups", "Interval": 30, "Exclude": ["\\.tmp$"]}]
	}`)

	appConfig, loadErr := LoadConfig(configPath)

	require.NoError(t, loadErr)
	assert.Equal(t, "default", appConfig.Container)
	assert.Equal(t, 2, appConfig.MaxRequest)
	assert.Equal(t, 2, appConfig.MaxUpload)
	assert.Equal(t, int64(1048576), appConfig.MaxUploadSize)
	assert.Equal(t, "__uploading ", appConfig.UploadingPrefix)
	assert.Equal(t, "___backup", appConfig.BackupDirectoryName)
	assert.Equal(t, 4, appConfig.DirectoryConcurrency)
	assert.Equal(t, 10000, appConfig.ListPageSize)
	assert.False(t, appConfig.Versioning)
	require.Len(t, appConfig.Sync, 1)
	assert.Equal(t, 30, appConfig.Sync[0].Interval)
	assert.Equal(t, []string{`\.tmp$`}, appConfig.Sync[0].Exclude)
	assert.Nil(t, appConfig.Validate())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	configPath := writeConfigFile(t, `{"Container": "fromfile", "Sync": [{"Source": "/data"}]}`)
	t.Setenv("MIRRORSYNC_CONTAINER", "fromenv")

	appConfig, loadErr := LoadConfig(configPath)

	require.NoError(t, loadErr)
	assert.Equal(t, "fromenv", appConfig.Container)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	valid := testAppConfig(SyncConfig{Source: "/data"})
	assert.Nil(t, valid.Validate())

	noScenario := testAppConfig()
	assert.NotNil(t, noScenario.Validate())

	badConcurrency := testAppConfig(SyncConfig{Source: "/data"})
	badConcurrency.MaxUpload = 0
	assert.NotNil(t, badConcurrency.Validate())

	badSegment := testAppConfig(SyncConfig{Source: "/data"})
	badSegment.MaxUploadSize = 0
	assert.NotNil(t, badSegment.Validate())

	smallS3Parts := testAppConfig(SyncConfig{Source: "/data"})
	smallS3Parts.Provider.Type = "s3"
	assert.NotNil(t, smallS3Parts.Validate())
	smallS3Parts.MaxUploadSize = s3MinimumPartSize
	assert.Nil(t, smallS3Parts.Validate())

	badExclude := testAppConfig(SyncConfig{Source: "/data", Exclude: []string{"["}})
	assert.NotNil(t, badExclude.Validate())
}

func TestAuthFromConfig(t *testing.T) {
	static := testAppConfig()
	static.Provider.StorageURL = "https://storage.example.com/v1/AUTH_x"
	static.Provider.Token = "token"
	_, isStatic := static.AuthFromConfig().(StaticAuth)
	assert.True(t, isStatic)

	swift := testAppConfig()
	swift.Provider.AuthURL = "https://auth.example.com/v1.0"
	_, isSwift := swift.AuthFromConfig().(*SwiftAuth)
	assert.True(t, isSwift)
}

func TestTransportFromConfig(t *testing.T) {
	swift := testAppConfig()
	transport, transportErr := swift.TransportFromConfig()
	assert.Nil(t, transportErr)
	assert.IsType(t, &SwiftTransport{}, transport)

	unknown := testAppConfig()
	unknown.Provider.Type = "ftp"
	_, unknownErr := unknown.TransportFromConfig()
	assert.NotNil(t, unknownErr)
}

func TestSyncOptionsFromConfig(t *testing.T) {
	appConfig := testAppConfig()
	appConfig.Versioning = true
	appConfig.PurgeUploadingFiles = true
	options := appConfig.SyncOptions(SyncConfig{Source: "/data", Exclude: []string{"x"}})

	assert.True(t, options.Versioning)
	assert.True(t, options.PurgeUploadingFiles)
	assert.Equal(t, 4, options.Concurrency)
	assert.Equal(t, []string{"x"}, options.Exclude)
	assert.Equal(t, "___backup", options.BackupDirectoryName)
}
