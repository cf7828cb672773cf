// Package types 定义 R2P 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 r2p 内部包。
//
// # 文件组织
//
//   - name.go   - 模块/节点/主题名称限制与校验，定长名称字段编解码
//   - errors.go - 公共错误定义
//
// # 名称规则
//
// 名称只允许 [A-Za-z0-9_]，长度上限：
//
//	module  7
//	node    8
//	topic   16
package types
