package config

const (
	envEndpointAddrGRPC = "NUTRIKEEPER_SERVER_ADDR"
	envDatabaseDSN      = "NUTRIKEEPER_DATABASE_DSN"
	envRedisAddr        = "NUTRIKEEPER_REDIS_ADDR"
	envMetricsAddr      = "NUTRIKEEPER_METRICS_ADDR"
	envSecretKey        = "NUTRIKEEPER_SECRET_KEY"
	envLogLevel         = "NUTRIKEEPER_LOG_LEVEL"
)

func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	fields := []struct {
		key string
		dst *string
	}{
		{envEndpointAddrGRPC, &cfg.EndpointAddrGRPC},
		{envDatabaseDSN, &cfg.DatabaseDSN},
		{envRedisAddr, &cfg.RedisAddr},
		{envMetricsAddr, &cfg.MetricsAddr},
		{envSecretKey, &cfg.SecretKey},
		{envLogLevel, &cfg.LogLevel},
	}
	for _, f := range fields {
		if v, ok := lookup(f.key); ok {
			*f.dst = v
		}
	}
}
