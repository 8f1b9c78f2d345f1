package domain

import (
	"fmt"
	"strings"
)

// LocalizedText は、言語ごとの文字列です
type LocalizedText map[Language]string

// In は、指定言語の文字列を返します。存在しない場合は英語、それもなければ空文字を返します
func (t LocalizedText) In(lang Language) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	return t[LanguageEnglish]
}

// Atmosphere は、背景となる雰囲気（ロケーション）の定義です
type Atmosphere struct {
	ID     string        `yaml:"id" json:"id"`
	Name   LocalizedText `yaml:"name" json:"name"`
	Icon   string        `yaml:"icon" json:"icon"`
	Prompt string        `yaml:"prompt" json:"prompt"`
}

// Labels は、生成処理で使用する言語別の表示文字列です
type Labels struct {
	EliteLook        string `yaml:"elite_look" json:"eliteLook"`
	GenerationStatus string `yaml:"generation_status" json:"generationStatus"`
	DefaultModelName string `yaml:"default_model_name" json:"defaultModelName"`
}

// Catalog は、雰囲気・デフォルトポーズ・表示文字列の固定カタログです
type Catalog struct {
	Atmospheres  []Atmosphere          `yaml:"atmospheres" json:"atmospheres"`
	DefaultPoses map[Language][]string `yaml:"default_poses" json:"defaultPoses"`
	Labels       map[Language]Labels   `yaml:"labels" json:"labels"`
}

// Validate は、カタログの妥当性を検証します
func (c *Catalog) Validate() error {
	if len(c.Atmospheres) == 0 {
		return fmt.Errorf("雰囲気が1件も定義されていません")
	}

	seen := make(map[string]struct{}, len(c.Atmospheres))
	for _, atmo := range c.Atmospheres {
		if atmo.ID == "" {
			return fmt.Errorf("IDのない雰囲気があります")
		}
		if _, dup := seen[atmo.ID]; dup {
			return fmt.Errorf("雰囲気IDが重複しています: %s", atmo.ID)
		}
		seen[atmo.ID] = struct{}{}
	}

	for _, lang := range AllLanguages() {
		if len(c.DefaultPoses[lang]) < DefaultPoseCount {
			return fmt.Errorf("言語 %s のデフォルトポーズが%d件未満です", lang, DefaultPoseCount)
		}
		labels, ok := c.Labels[lang]
		if !ok || labels.EliteLook == "" || labels.GenerationStatus == "" {
			return fmt.Errorf("言語 %s の表示文字列が不足しています", lang)
		}
	}

	return nil
}

// DefaultAtmosphere は、既定の雰囲気（カタログの先頭）を返します
func (c *Catalog) DefaultAtmosphere() Atmosphere {
	if len(c.Atmospheres) == 0 {
		return Atmosphere{}
	}
	return c.Atmospheres[0]
}

// Atmosphere は、IDに対応する雰囲気を返します。見つからない場合は既定の雰囲気を返します
func (c *Catalog) Atmosphere(id string) Atmosphere {
	for _, atmo := range c.Atmospheres {
		if atmo.ID == id {
			return atmo
		}
	}
	return c.DefaultAtmosphere()
}

// HasAtmosphere は、IDに対応する雰囲気が存在するかどうかを返します
func (c *Catalog) HasAtmosphere(id string) bool {
	for _, atmo := range c.Atmospheres {
		if atmo.ID == id {
			return true
		}
	}
	return false
}

// Poses は、指定言語のデフォルトポーズ名を返します
func (c *Catalog) Poses(lang Language) []string {
	if poses, ok := c.DefaultPoses[lang]; ok {
		return poses
	}
	return c.DefaultPoses[LanguageEnglish]
}

// Label は、指定言語の表示文字列を返します
func (c *Catalog) Label(lang Language) Labels {
	if labels, ok := c.Labels[lang]; ok {
		return labels
	}
	return c.Labels[LanguageEnglish]
}

// StatusMessage は、生成中の進捗表示文字列を作成します（index は0始まり）
func (c *Catalog) StatusMessage(lang Language, atmo Atmosphere, index, total int) string {
	return fmt.Sprintf("%s %s... [%d/%d]",
		c.Label(lang).GenerationStatus,
		strings.ToUpper(atmo.Name.In(lang)),
		index+1, total)
}

// SuggestProfileName は、保存時の既定のプロフィール名を返します
func (c *Catalog) SuggestProfileName(lang Language, vaultSize int) string {
	return fmt.Sprintf("%s %d", c.Label(lang).DefaultModelName, vaultSize+1)
}
