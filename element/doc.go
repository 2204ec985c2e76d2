// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package element 提供数据流图节点的基础构件与常用内建节点。

# 概述

Element 是图中的节点：持有名称、端口登记表（ports.Registry）与日志器，
上层节点（Pipe、Text、history.Handler、api.Element 等）通过嵌入 Element
获得统一的端口管理与可观测性接入。

# 内建节点

  - Pipe — 透传节点：pipe_input 收到什么，pipe_output 就发什么；
    可选 OnPayload 回调用于旁路观察或改写
  - Text — 常量文本源：Send() 将固定文本作为 Payload 注入图中
*/
package element
