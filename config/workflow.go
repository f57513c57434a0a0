package config

import (
	"strings"
	"time"
)

// WorkflowSettings tunes the workflow engine and the API process.
type WorkflowSettings struct {
	CertificatePrefix    string
	ReconcileInterval    time.Duration
	TxTimeout            time.Duration
	NotificationsEnabled bool
	InAppNotifications   bool
	AppBaseURL           string
	ServerPort           string
	JWTSecret            string
	CORSAllowedOrigins   []string
}

func LoadWorkflowSettings() WorkflowSettings {
	return WorkflowSettings{
		CertificatePrefix:    strings.ToUpper(stringEnv("CERTIFICATE_PREFIX", "IPC")),
		ReconcileInterval:    durationEnv("RECONCILE_INTERVAL", time.Minute),
		TxTimeout:            durationEnv("TX_TIMEOUT", 5*time.Second),
		NotificationsEnabled: boolEnv("NOTIFICATIONS_ENABLED", true),
		InAppNotifications:   boolEnv("IN_APP_NOTIFICATIONS", true),
		AppBaseURL:           strings.TrimRight(stringEnv("APP_BASE_URL", ""), "/"),
		ServerPort:           stringEnv("SERVER_PORT", "8080"),
		JWTSecret:            stringEnv("JWT_SECRET", ""),
		CORSAllowedOrigins:   splitList(stringEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
