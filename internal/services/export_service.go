// internal/services/export_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
)

// maxImportSize 导入文件大小上限
const maxImportSize = 64 << 20

// SlotWriter 直接操作持久化槽位，替换导入和重置数据时绕过防抖
// storage.DurableStore 满足该接口
type SlotWriter interface {
	SaveNow(snap models.Snapshot) error
	Clear() error
}

// ExportService 导出、导入与重置全部数据
type ExportService struct {
	store   *store.Store
	slot    SlotWriter
	logger  *utils.Logger
	nowFunc func() time.Time
}

// NewExportService 创建导出服务
func NewExportService(st *store.Store, slot SlotWriter, logger *utils.Logger) *ExportService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &ExportService{store: st, slot: slot, logger: logger, nowFunc: time.Now}
}

// BuildExport 用当前状态生成导出文档（不含界面状态和待确认的建议）
func (s *ExportService) BuildExport() models.ExportDocument {
	return models.ExportDocument{
		Version:   models.ExportVersion,
		Timestamp: s.nowFunc(),
		Data:      models.ExportDataFrom(s.store.State()),
	}
}

// Export 把导出文档写入 w
func (s *ExportService) Export(w io.Writer) error {
	doc := s.BuildExport()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("写出导出文件失败: %w", err)
	}
	s.logger.Info("数据已导出", map[string]interface{}{"projects": len(doc.Data.Projects)})
	return nil
}

// Import 读取导出文档并按 mode 导入
// 文件格式错误时返回 Success=false，状态和持久化槽位都不变
func (s *ExportService) Import(r io.Reader, mode models.ImportMode) models.ImportResult {
	if mode == "" {
		mode = models.ImportMerge
	}
	if mode != models.ImportMerge && mode != models.ImportReplace {
		return failed(mode, fmt.Sprintf("不支持的导入方式: %s", mode))
	}

	raw, err := io.ReadAll(io.LimitReader(r, maxImportSize+1))
	if err != nil {
		return failed(mode, "读取导入文件失败: "+err.Error())
	}
	if len(raw) > maxImportSize {
		return failed(mode, "导入文件过大")
	}

	data, err := parseExport(raw)
	if err != nil {
		s.logger.Warn("导入文件格式错误", map[string]interface{}{"error": err, "mode": mode})
		return failed(mode, err.Error())
	}

	var imported map[string]int
	switch mode {
	case models.ImportReplace:
		snap := data.ToSnapshot()
		if err := s.slot.SaveNow(snap); err != nil {
			s.logger.Error("替换导入写入失败", map[string]interface{}{"error": err})
			return failed(mode, "写入数据失败: "+err.Error())
		}
		s.store.Reload()
		imported = countCollections(snap)
	case models.ImportMerge:
		imported = s.store.MergeSnapshot(data)
	}

	s.logger.Info("数据已导入", map[string]interface{}{"mode": mode, "imported": imported})
	return models.ImportResult{
		Success:  true,
		Message:  "导入成功",
		Mode:     mode,
		Imported: imported,
	}
}

// parseExport 校验文档结构：必须是JSON对象且 data.projects 是数组
func parseExport(raw []byte) (models.ExportData, error) {
	var envelope struct {
		Version int                        `json:"version"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return models.ExportData{}, fmt.Errorf("导入文件不是有效的JSON: %w", err)
	}
	projects, ok := envelope.Data["projects"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(projects), []byte("[")) {
		return models.ExportData{}, fmt.Errorf("导入文件缺少 data.projects 数组")
	}
	if envelope.Version > models.ExportVersion {
		return models.ExportData{}, fmt.Errorf("导入文件版本 %d 高于支持的版本 %d", envelope.Version, models.ExportVersion)
	}

	var doc models.ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.ExportData{}, fmt.Errorf("导入文件字段格式错误: %w", err)
	}
	return doc.Data, nil
}

// ResetAll 立即清除持久化槽位并以空状态重新加载
func (s *ExportService) ResetAll() error {
	if err := s.slot.Clear(); err != nil {
		return fmt.Errorf("清除数据失败: %w", err)
	}
	s.store.Reload()
	s.logger.Info("全部数据已重置", nil)
	return nil
}

func failed(mode models.ImportMode, message string) models.ImportResult {
	return models.ImportResult{Success: false, Message: message, Mode: mode}
}

func countCollections(snap models.Snapshot) map[string]int {
	return map[string]int{
		"projects":         len(snap.Projects),
		"characters":       len(snap.Characters),
		"locations":        len(snap.Locations),
		"items":            len(snap.Items),
		"plotNodes":        len(snap.PlotNodes),
		"variables":        len(snap.Variables),
		"aiMessages":       len(snap.AiMessages),
		"continuityIssues": len(snap.ContinuityIssues),
	}
}
