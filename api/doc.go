// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package api 实现请求串行器：将同步的外部请求/响应协议桥接到图内异步反应模型。

# 概述

Element 在图的边界上暴露一个 HTTP POST 端点。外部请求体经 JSON Schema
校验后打包为 Payload 从 request_output 发射进图；调用随即挂起，等待
配置的响应条件满足或超时。

# 单飞不变量

每个 Element 实例同一时刻至多存在一个待决请求：第二个并发调用立即
返回 TOO_MANY_REQUESTS（HTTP 429），不排队，也不影响首个请求的最终
决议。超时（默认 30s）返回 TIMEOUT（HTTP 408）并释放待决槽位，使
紧随其后的重试得以进行。

# 决议策略阶梯（与聚合引擎同构，互斥）

 1. Build 函数 — 每次到达无条件调用，返回非空响应即决议
 2. Rules — {触发端口: (构造函数, 必需端口集)}，触发后等待集齐
 3. ResponseMap — 全部列出的端口集齐后按 alias→提取器 合成响应

决议时清除喂入响应的非 persist 端口数据，图内状态保持一致。
*/
package api
