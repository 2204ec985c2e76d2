// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 LumenFlow 框架的全局共享类型定义。

# 概述

types 是框架最底层的公共包，不依赖任何内部包，为 ports、flow、
contextbuilder、api 等上层模块提供统一的类型契约。所有跨包共享的
结构体、枚举和错误码均定义于此，以避免循环依赖。

# 核心类型

  - Payload           — 端口间交换的类型化数据信封（Kind 标签 + 可选 Role）
  - Kind              — Payload 类型标签，支持 list<T> 序列标记
  - Message / Role    — 角色标注的会话消息（system / user / assistant / tool）
  - Error / ErrorCode — 结构化错误体系，含端口标识与 HTTP 状态码映射
  - JSONSchema        — JSON Schema 定义与构建器（结构化路由与 API 校验用）

# 主要能力

  - Kind 兼容性判定：Compatible(out, in)，连接期一次性检查
  - 错误工具链：AsError / IsCode / 常用错误构造器
  - Payload 视图：Text() / AsMessages() 跨 Kind 的内容提取
*/
package types
