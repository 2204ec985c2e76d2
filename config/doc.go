// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package config 提供 LumenFlow 的统一配置加载。

配置优先级: 默认值 → YAML 文件 → 环境变量。

	cfg, err := config.NewLoader().
	    WithConfigPath("config.yaml").
	    WithEnvPrefix("LUMENFLOW").
	    Load()
*/
package config
