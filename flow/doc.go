// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package flow 实现基于多端口联合状态的条件路由。

# 概述

flow 在 ports 的一对多扇出之上提供三层路由构件：

  - Controller — 通用流控制器：别名化的流端口表（multi_ 前缀别名按连接
    增长出编号端口），每次到达调用用户 Func，携带活动端口、持久化状态
    存储与全部流端口视图
  - Router — 声明式规则路由：{触发端口: (回调, 必需端口集)}，仅当触发
    端口刚收到数据且全部必需端口持有数据时触发；否则事件被吸收
  - StructuredRouter — 判别联合 JSON 路由：按判别字段（默认 route）选路，
    路由值经 JSON Schema 校验后从对应输出端口发出；未知路由或校验失败
    返回 SCHEMA_VIOLATION

# 语义要点

  - Router 自身不做任何清除，端口数据保留策略完全由 persist 标志决定
  - 各触发端口的就绪性彼此独立，在到达时刻对自身必需集评估
  - Loop 提供单工作者串行队列：所有端口反应依提交顺序运行至完成
*/
package flow
