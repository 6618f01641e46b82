package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "mirrorsync"}
	opts := &cliOptions{}
	bindFlags(cmd, opts)
	require.NoError(t, cmd.ParseFlags([]string{
		"--source", "/data",
		"--destination", "photos",
		"--max-upload", "5",
		"--versioning",
		"--uploading-prefix", "_up ",
	}))
	appConfig := testAppConfig(SyncConfig{Source: "/from/file"})
	appConfig.DryRun = true

	applyFlags(cmd, opts, &appConfig)

	assert.Equal(t, []SyncConfig{{Source: "/data", Destination: "photos"}}, appConfig.Sync)
	assert.Equal(t, 5, appConfig.MaxUpload)
	assert.Equal(t, 2, appConfig.MaxRequest)
	assert.True(t, appConfig.Versioning)
	assert.True(t, appConfig.DryRun)
	assert.Equal(t, "_up ", appConfig.UploadingPrefix)
}

func TestConfigureLogging(t *testing.T) {
	assert.Nil(t, configureLogging("debug"))
	assert.Nil(t, configureLogging(""))
	assert.NotNil(t, configureLogging("loud"))
}
