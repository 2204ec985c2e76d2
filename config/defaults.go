// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:  DefaultServerConfig(),
		API:     DefaultAPIConfig(),
		History: DefaultHistoryConfig(),
		Log:     DefaultLogConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultAPIConfig 返回默认 API 配置
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		Endpoint: "/api",
		Timeout:  30 * time.Second,
	}
}

// DefaultHistoryConfig 返回默认历史窗口配置
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		TokenLimit:     32000,
		TokenizerModel: "",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}
