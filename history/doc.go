// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package history 维护滚动 token 预算内的会话历史。

Handler 在 message_input 接收消息，按 token 预算从队首淘汰旧消息，
并将当前窗口快照作为消息序列从 history_output 发出。计数器优先使用
tiktoken 精确编码，失败时回退到字符估算。
*/
package history
