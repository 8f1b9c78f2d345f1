// Package catalog は、バイナリに埋め込まれた雰囲気・ポーズ・表示文字列のカタログを読み込みます
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"vstyler/internal/domain"
)

//go:embed catalog.yaml
var embedded []byte

// Load は、埋め込みカタログを読み込んで検証します
func Load() (*domain.Catalog, error) {
	return Parse(embedded)
}

// Parse は、YAMLからカタログを読み込んで検証します
func Parse(data []byte) (*domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("カタログの解析に失敗: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("カタログが不正です: %w", err)
	}
	return &c, nil
}
