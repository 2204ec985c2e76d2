// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package ports 实现图边的声明与 Payload 的传递协议。

# 概述

ports 是 LumenFlow 数据流的最小构件：OutputPort 将 Payload 按连接顺序
扇出到零个或多个 InputPort；InputPort 保存最近一次收到的 Payload 并调用
节点注册的 unpack 回调。类型兼容性在 Connect 时一次性检查（Kind 标签，
含 list<T> 与 T 的区分），发射期只校验 Payload 自身的标签。

# 核心类型

  - InputPort  — 命名输入端，persist 标志决定回调返回后是否保留 Payload
  - OutputPort — 命名输出端，持有按注册顺序排列的扇出目标与暂存区
  - Registry   — 元素级端口登记表（AddInput / AddOutput / 按名查找）

# 语义要点

  - Connect 纯结构性，不移动数据；Kind 不兼容返回 TYPE_MISMATCH
  - Emit 同步深度优先级联；下游回调报错时携带出错 InputPort 的身份上抛，
    已通知的下游不回滚（各边相互独立，无扇出原子性）
  - Stage / StageEmit 暂存命名条目，凑齐后经 pack 回调合成 Payload 发射
*/
package ports
