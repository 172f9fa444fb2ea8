package service

import (
	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/model"
)

// DescribeCatalog 展开目录：每个分类的触发词和敏感度，以及 behavior 开关
func DescribeCatalog(catalog *ethics.Catalog) model.CatalogResponse {
	resp := model.CatalogResponse{
		Categories: make([]model.CatalogCategory, 0, len(ethics.Categories())),
		Behavior:   make(map[string]any, len(ethics.BehaviorSettingNames())),
	}

	for _, category := range ethics.Categories() {
		entry := model.CatalogCategory{
			Name:    category.String(),
			Phrases: catalog.Phrases(category),
		}
		// 非法敏感度只作为问题展示，不影响其它分类
		if severity, err := catalog.Sensitivity(category); err != nil {
			entry.Issue = err.Error()
		} else {
			entry.Sensitivity = string(severity)
		}
		resp.Categories = append(resp.Categories, entry)
	}

	for _, name := range ethics.BehaviorSettingNames() {
		if value, ok := catalog.Setting(name); ok {
			resp.Behavior[name] = value
		}
	}
	return resp
}
