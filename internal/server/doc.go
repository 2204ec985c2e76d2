// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
包 server 管理 LumenFlow 的 HTTP 服务生命周期。

Manager 负责监听、非阻塞启动与优雅关闭，异步错误通过 Errors
通道上报。监听地址支持 ":0"，实际端口可通过 Addr 查询。
*/
package server
