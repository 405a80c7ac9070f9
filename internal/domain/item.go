package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CatalogEntry 是目录中的一个可识别物体（名称 + 图标引用）。
type CatalogEntry struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Item 表示本回合物品池中的一个物体及其占用状态。
type Item struct {
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Occupied   bool   `json:"occupied"`
	ClaimantID string `json:"claimantId,omitempty"`
	Evidence   string `json:"-"` // 占领时提交的照片 (base64)，不随普通消息下发
}

// DefaultCatalog 内置的物体目录
var DefaultCatalog = []CatalogEntry{
	{Name: "book", Icon: "icons/book.png"},
	{Name: "scissors", Icon: "icons/scissors.png"},
	{Name: "spoon", Icon: "icons/spoon.png"},
	{Name: "kettle", Icon: "icons/kettle.png"},
	{Name: "scooter", Icon: "icons/scooter.png"},
	{Name: "cherry", Icon: "icons/cherry.png"},
	{Name: "torii", Icon: "icons/torii.png"},
	{Name: "car", Icon: "icons/car.png"},
	{Name: "glasses", Icon: "icons/glasses.png"},
	{Name: "fork", Icon: "icons/fork.png"},
}

// LoadCatalog 从 JSON 文件读取目录，path 为空时返回内置目录。
// 名称统一转成小写，重复名称只保留第一个。
func LoadCatalog(path string) ([]CatalogEntry, error) {
	if path == "" {
		return append([]CatalogEntry(nil), DefaultCatalog...), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var entries []CatalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}

	seen := make(map[string]bool, len(entries))
	catalog := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		catalog = append(catalog, CatalogEntry{Name: name, Icon: e.Icon})
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("catalog: %s contains no usable entries", path)
	}
	return catalog, nil
}
