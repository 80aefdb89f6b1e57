package ingest

import (
	"sort"
	"strings"

	"github.com/gantryhq/gantry/internal/deploy"
	"github.com/gantryhq/gantry/internal/secrets"
)

var secretPatterns = []string{
	"secret", "key", "token", "password", "pass", "pwd",
	"auth", "credential", "cred",
	"private", "cert", "certificate",
	"api_key", "apikey", "access_key", "secret_key",
	"client_secret", "oauth",
	"salt", "signature", "signing",
	"connection_name", "dsn", "connection_string",
}

var databasePatterns = []string{
	"db_user", "db_pass", "db_name", "db_host",
	"database_url", "db_url",
	"postgres_url", "mysql_url", "redis_url",
}

// Sensitive reports whether an environment variable looks like a
// credential that belongs in the secret store rather than in plain env.
func Sensitive(name string) bool {
	nameLower := strings.ToLower(name)

	for _, pattern := range databasePatterns {
		if strings.Contains(nameLower, pattern) {
			return true
		}
	}
	for _, pattern := range secretPatterns {
		if strings.Contains(nameLower, pattern) {
			return true
		}
	}
	return false
}

// SecretName derives the store-side name for an environment variable:
// FLASK_SECRET_KEY -> flask-secret-key.
func SecretName(envVar string) string {
	return strings.ToLower(strings.ReplaceAll(envVar, "_", "-"))
}

// SuggestBindings proposes secret bindings for the sensitive subset of the
// discovered environment, each at the latest version. Values are dropped
// on the floor here: the suggestion carries references only.
func SuggestBindings(env map[string]string) []deploy.SecretBinding {
	var bindings []deploy.SecretBinding
	for name := range env {
		if !Sensitive(name) {
			continue
		}
		bindings = append(bindings, deploy.SecretBinding{
			EnvVar: name,
			Ref:    secrets.Ref{Name: SecretName(name), Version: secrets.DefaultVersion},
		})
	}

	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].EnvVar < bindings[j].EnvVar
	})
	return bindings
}
