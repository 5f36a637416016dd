package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/studyhub-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "url wins",
			cfg:  config.DatabaseConfig{URL: "postgres://u:p@db/studyhub", Host: "ignored"},
			want: "postgres://u:p@db/studyhub",
		},
		{
			name: "plain fields",
			cfg:  config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "secret", Name: "studyhub", SSLMode: "disable"},
			want: "host=localhost port=5432 user=postgres password=secret dbname=studyhub sslmode=disable",
		},
		{
			name: "quoted password",
			cfg:  config.DatabaseConfig{Host: "db", Port: 5432, Password: `it's a pa\ss`, Name: "studyhub"},
			want: `host=db port=5432 password='it\'s a pa\\ss' dbname=studyhub`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DSN(tc.cfg))
		})
	}
}

func TestSchemaDeclaresCoreTables(t *testing.T) {
	for _, table := range []string{"users", "papers", "notices", "colleges", "refresh_tokens", "audit_logs"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
