package providers

import (
	"os"
	"path/filepath"
	"summard/internal/models"
	"summard/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) *structures.CliFlags {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return &structures.CliFlags{ConfigPath: path}
}

const minimalConfig = `
persistence:
  filePath: /var/lib/summard/availdb.json
logger:
  dir: /var/log/summard
lightning:
  rpcFile: /home/ln/.lightning/bitcoin/lightning-rpc
forwards:
  hours: 24
  limit: 10
`

func TestConfigProvider_Defaults(t *testing.T) {
	conf, err := NewConfigProvider(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", conf.WebServer.Host)
	assert.Equal(t, 8095, conf.WebServer.Port)
	assert.Equal(t, 30*time.Second, conf.Lightning.Timeout)
	assert.Equal(t, 5*time.Minute, conf.Availability.Interval)
	assert.Equal(t, 72*time.Hour, conf.Availability.Window)
	assert.Equal(t, 0.05, conf.Alias.MissingThreshold)
	assert.True(t, conf.Alias.UTF8)
	assert.Equal(t, models.DefaultChannelColumns, conf.Summary.Columns)
	assert.Equal(t, 24, conf.Forwards.Hours)
	assert.Equal(t, 10, conf.Forwards.Limit)
	assert.Equal(t, int64(-1), conf.Forwards.FilterAmountMsat)
	assert.True(t, conf.Forwards.Alias)
	assert.Zero(t, conf.Pays.Hours)
	assert.Equal(t, "SummaryDaemon", conf.AppName)
}

func TestConfigProvider_EnvOverrides(t *testing.T) {
	t.Setenv("SUMMARD_PAYS", "48")
	t.Setenv("SUMMARD_RPC_FILE", "/run/lightning-rpc")

	conf, err := NewConfigProvider(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, 48, conf.Pays.Hours)
	assert.Equal(t, "/run/lightning-rpc", conf.Lightning.RPCFile)
}

func TestConfigProvider_ExplicitValues(t *testing.T) {
	conf, err := NewConfigProvider(writeConfig(t, minimalConfig+`
alias:
  fastInterval: 1m
  utf8: false
summary:
  columns: [SCID, ALIAS, UPTIME]
  sortBy: -UPTIME
  excludeStates: [OFFLINE]
`))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, conf.Alias.FastInterval)
	assert.False(t, conf.Alias.UTF8)
	assert.Equal(t, []string{"SCID", "ALIAS", "UPTIME"}, conf.Summary.Columns)
	assert.Equal(t, []string{"OFFLINE"}, conf.Summary.ExcludeStates)
}

func TestConfigProvider_InvalidColumn(t *testing.T) {
	_, err := NewConfigProvider(writeConfig(t, minimalConfig+`
invoices:
  columns: [label, amount]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestConfigProvider_MissingFile(t *testing.T) {
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: filepath.Join(t.TempDir(), "absent.yml")})
	assert.Error(t, err)
}
