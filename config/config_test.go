package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadWorkflowSettingsDefaults(t *testing.T) {
	for _, key := range []string{"CERTIFICATE_PREFIX", "RECONCILE_INTERVAL", "TX_TIMEOUT", "NOTIFICATIONS_ENABLED", "APP_BASE_URL", "SERVER_PORT", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	s := LoadWorkflowSettings()
	assert.Equal(t, "IPC", s.CertificatePrefix)
	assert.Equal(t, time.Minute, s.ReconcileInterval)
	assert.Equal(t, 5*time.Second, s.TxTimeout)
	assert.True(t, s.NotificationsEnabled)
	assert.Equal(t, "8080", s.ServerPort)
	assert.Equal(t, []string{"http://localhost:3000"}, s.CORSAllowedOrigins)
}

func TestLoadWorkflowSettingsOverrides(t *testing.T) {
	t.Setenv("CERTIFICATE_PREFIX", "kku")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("TX_TIMEOUT", "not-a-duration")
	t.Setenv("NOTIFICATIONS_ENABLED", "0")
	t.Setenv("APP_BASE_URL", "https://ip.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	s := LoadWorkflowSettings()
	assert.Equal(t, "KKU", s.CertificatePrefix)
	assert.Equal(t, 30*time.Second, s.ReconcileInterval)
	assert.Equal(t, 5*time.Second, s.TxTimeout)
	assert.False(t, s.NotificationsEnabled)
	assert.Equal(t, "https://ip.example.com", s.AppBaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, s.CORSAllowedOrigins)
}

func TestLoadMailSettingsReadsEnvAtCallTime(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_FROM", "IP Office <no-reply@example.com>")
	t.Setenv("SMTP_SKIP_TLS_VERIFY", "1")

	s := LoadMailSettings()
	assert.Equal(t, "smtp.example.com", s.Host)
	assert.Equal(t, 587, s.Port)
	assert.True(t, s.SkipTLSVerify)
	assert.True(t, s.Configured())
}

func TestMailerRequiresConfiguration(t *testing.T) {
	m := NewMailer(MailSettings{})
	assert.NoError(t, m.Send(nil, "s", "b"))
	assert.Error(t, m.Send([]string{"a@example.com"}, "s", "b"))
}

func TestDatabaseDSNAndLogLevel(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_DATABASE", "ip_tracking")
	t.Setenv("DB_USERNAME", "app")
	t.Setenv("DB_PASSWORD", "secret")
	assert.Equal(t, "app:secret@tcp(db:3306)/ip_tracking?charset=utf8mb4&parseTime=True&loc=Local", DatabaseDSN())

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DEBUG_SQL", "")
	assert.Equal(t, logger.Warn, SQLLogLevel())
	t.Setenv("DEBUG_SQL", "true")
	assert.Equal(t, logger.Info, SQLLogLevel())
}

func TestLoadStageSeedDefaultFile(t *testing.T) {
	seed, err := LoadStageSeed("workflow_stages.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, seed.Types)

	patent := seed.Types[0]
	assert.Equal(t, "patent", patent.Type)
	require.Len(t, patent.Stages, 3)
	assert.Equal(t, "Screening", patent.Stages[0].Name)
	assert.Equal(t, 3, patent.Stages[2].Order)
	assert.Equal(t, "review", patent.Requirements[2].Stage)
	assert.Equal(t, []string{"pdf", "png", "jpg"}, patent.Requirements[2].Extensions)
}

func TestParseStageSeedRejectsBrokenGraphs(t *testing.T) {
	cases := map[string]string{
		"empty":        "  ",
		"unknown type": "types:\n  - type: recipe\n",
		"dup order": `types:
  - type: patent
    stages:
      - {code: a, name: A, order: 1}
      - {code: b, name: B, order: 1}
`,
		"zero order": `types:
  - type: patent
    stages:
      - {code: a, name: A, order: 0}
`,
		"unknown stage ref": `types:
  - type: patent
    stages:
      - {code: a, name: A, order: 1}
    requirements:
      - {kind: form, stage: z}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStageSeed([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadStageSeedMissingFile(t *testing.T) {
	_, err := LoadStageSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
