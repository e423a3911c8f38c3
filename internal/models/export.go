// internal/models/export.go
package models

import "time"

// ExportVersion 导出文件格式版本
const ExportVersion = 1

// ImportMode 导入方式
type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportMerge   ImportMode = "merge"
)

// ExportData 导出文件中的实体集合（不含界面状态）
type ExportData struct {
	Projects         []Project         `json:"projects"`
	Characters       []Character       `json:"characters"`
	Locations        []Location        `json:"locations"`
	Items            []StoryItem       `json:"items"`
	PlotNodes        []PlotNode        `json:"plotNodes"`
	Variables        []StoryVariable   `json:"variables"`
	AiMessages       []AiMessage       `json:"aiMessages"`
	ContinuityIssues []ContinuityIssue `json:"continuityIssues"`
}

// ExportDocument 导出/导入的JSON文档
type ExportDocument struct {
	Version   int        `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	Data      ExportData `json:"data"`
}

// ImportResult 导入结果，失败时 Success 为 false 且存储保持不变
type ImportResult struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Mode     ImportMode     `json:"mode,omitempty"`
	Imported map[string]int `json:"imported,omitempty"`
}

// ToSnapshot 将导出数据转为快照（界面状态为空）
func (d ExportData) ToSnapshot() Snapshot {
	return Snapshot{
		Version:          SnapshotVersion,
		Projects:         d.Projects,
		Characters:       d.Characters,
		Locations:        d.Locations,
		Items:            d.Items,
		PlotNodes:        d.PlotNodes,
		Variables:        d.Variables,
		AiMessages:       d.AiMessages,
		ContinuityIssues: d.ContinuityIssues,
	}.WithDefaults()
}

// ExportDataFrom 从快照中提取可导出的集合
func ExportDataFrom(s Snapshot) ExportData {
	return ExportData{
		Projects:         s.Projects,
		Characters:       s.Characters,
		Locations:        s.Locations,
		Items:            s.Items,
		PlotNodes:        s.PlotNodes,
		Variables:        s.Variables,
		AiMessages:       s.AiMessages,
		ContinuityIssues: s.ContinuityIssues,
	}
}
