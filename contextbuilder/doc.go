// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package contextbuilder 实现聚合引擎：从独立到达的槽位合成有序消息序列。

# 概述

Builder 持有一组命名槽位（端口槽、常量槽、模板槽），在每次槽位到达时
依策略阶梯判定是否发射，发射即合成一个有序 Message 序列并从
messages_output 一次性发出，随后复位。

# 策略阶梯（高优先级在前，互斥）

 1. Build 函数 — 无条件调用，返回发射顺序或 nil（尚未就绪）
 2. TriggerMap — 到达槽是触发键时进入该触发的等待态，必需槽集齐即发射
 3. EmitOrder — 固定顺序，[name] 方括号标记可选槽
 4. 默认 — 全部端口槽集齐后按声明顺序发射全部槽位

# 槽位语义

  - 端口槽：活动 InputPort 支撑，可带 callback 变换与 persist 标志
  - 常量槽：配置期固化的角色标注消息，永不清除
  - 模板槽：{{ name }} 引用其他槽位的当前值，发射期惰性渲染；
    引用未填充槽位是 MISSING_DEPENDENCY 配置错误
  - depends_on：所列槽位未全部填充时，本槽位在本次发射中被省略

发射后清除本次包含的非 persist 端口槽；触发槽默认一并清除，
RetainTrigger 可保留。一次只处理一个到达事件，两次发射不交错。
*/
package contextbuilder
