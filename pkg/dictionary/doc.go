// Package dictionary provides the rule dictionary: an immutable mapping from
// field name to the values that field may take.
//
// # Rule sources
//
// The primary rule source is a markdown outline. A second-level heading
// introduces a field, and the list items under it are the allowed values:
//
//	## 状态
//	- 启用
//	- 停用
//
//	## 设备名称\n（必填）
//	- （此列为必填，但无固定枚举值）
//
// The escape \n inside a heading becomes a literal line break, so headers
// typed with Alt+Enter in a spreadsheet can be matched exactly. The sentinel
// item marks a field as required-only: any non-empty value passes.
//
// A YAML mapping is accepted as an alternative:
//
//	状态: [启用, 停用]
//	设备名称\n（必填）: required
//
// # Lookups
//
// Fields absent from the dictionary are not governed and must be skipped by
// callers. Present fields carry an Allowed value that is either
// Unconstrained or an ordered enumeration.
package dictionary
