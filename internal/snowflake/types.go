package snowflake

import (
	"strings"

	"github.com/ignite/lead-finder/internal/config"
)

// ParseConnectionString reads the semicolon-separated connection string
// format exported by the Snowflake console:
//
//	scheme=https;ACCOUNT=xxx;HOST=yyy;port=443;USER=zzz;PASSWORD=www;DB=database.schema;
//
// Unknown keys are ignored.
func ParseConnectionString(connStr string) config.SnowflakeConfig {
	parts := make(map[string]string)
	for _, kv := range strings.Split(connStr, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		parts[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	database, schema, _ := strings.Cut(parts["DB"], ".")
	return config.SnowflakeConfig{
		Account:   parts["ACCOUNT"],
		User:      parts["USER"],
		Password:  parts["PASSWORD"],
		Database:  database,
		Schema:    schema,
		Warehouse: parts["WAREHOUSE"],
	}
}

// DSN renders cfg in the gosnowflake user:password@account/db/schema form.
func DSN(cfg config.SnowflakeConfig) string {
	dsn := cfg.User + ":" + cfg.Password + "@" + cfg.Account + "/" + cfg.Database
	if cfg.Schema != "" {
		dsn += "/" + cfg.Schema
	}
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}
	return dsn
}

// Resolve fills the empty fields of cfg from its ConnectionString.
func Resolve(cfg config.SnowflakeConfig) config.SnowflakeConfig {
	if cfg.ConnectionString == "" {
		return cfg
	}
	parsed := ParseConnectionString(cfg.ConnectionString)
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&cfg.Account, parsed.Account)
	fill(&cfg.User, parsed.User)
	fill(&cfg.Password, parsed.Password)
	fill(&cfg.Database, parsed.Database)
	fill(&cfg.Schema, parsed.Schema)
	fill(&cfg.Warehouse, parsed.Warehouse)
	return cfg
}
