package ethics

import (
	"fmt"
	"strings"
)

// Category 触发词分类
type Category int

const (
	CategorySensitiveData Category = iota
	CategoryScamManipulation
	CategoryHarmfulContent
	CategoryProfessionalAdvice
	CategoryMisinformation
	CategoryPositiveIndicator
)

var categoryNames = map[Category]string{
	CategorySensitiveData:      "sensitive-data",
	CategoryScamManipulation:   "scam-manipulation",
	CategoryHarmfulContent:     "harmful-content",
	CategoryProfessionalAdvice: "professional-advice",
	CategoryMisinformation:     "misinformation",
	CategoryPositiveIndicator:  "positive-indicator",
}

// Categories 全部分类，按评估顺序排列
func Categories() []Category {
	return []Category{
		CategorySensitiveData,
		CategoryScamManipulation,
		CategoryHarmfulContent,
		CategoryProfessionalAdvice,
		CategoryMisinformation,
		CategoryPositiveIndicator,
	}
}

// ParseCategory 按名称解析分类
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown category %q", ErrUnknownPath, name)
}

// BehaviorSettingNames behavior 下可读取的开关
func BehaviorSettingNames() []string {
	return []string{
		"strictMode",
		"transparencyLevel",
		"appealEnabled",
		"confidenceThreshold",
		"biasDetectionSensitivity",
	}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// sensitivityKeys 分类到 patternSensitivity 配置键
var sensitivityKeys = map[Category]string{
	CategorySensitiveData:      "sensitiveInfo",
	CategoryScamManipulation:   "scams",
	CategoryHarmfulContent:     "harmfulContent",
	CategoryProfessionalAdvice: "professionalAdvice",
	CategoryMisinformation:     "misinformation",
}

// defaultPhrases 各分类的小写触发词，按顺序匹配
var defaultPhrases = map[Category][]string{
	CategorySensitiveData: {
		"password", "aadhaar", "pan card", "bank account", "credit card",
		"phone number", "health id", "ssn", "personal details",
	},
	CategoryScamManipulation: {
		"only 2 left", "click to win", "limited time offer", "act now",
		"urgent", "congratulations you won",
	},
	CategoryHarmfulContent: {
		"hack", "self-harm", "suicide", "illegal", "dangerous instructions", "violence",
	},
	CategoryProfessionalAdvice: {
		"medical prescription", "investment strategy", "legal advice", "diagnose", "treatment plan",
	},
	CategoryMisinformation: {
		"fake news", "conspiracy", "misinformation",
	},
	CategoryPositiveIndicator: {
		"according to", "research shows", "studies indicate",
	},
}

// Catalog 只读的策略目录：触发词 + 策略快照
type Catalog struct {
	phrases map[Category][]string
	policy  Policy
}

// NewCatalog 基于策略快照创建目录
func NewCatalog(policy Policy) *Catalog {
	phrases := make(map[Category][]string, len(defaultPhrases))
	for c, list := range defaultPhrases {
		phrases[c] = append([]string(nil), list...)
	}
	return &Catalog{
		phrases: phrases,
		policy:  policy.Clone(),
	}
}

// Phrases 返回分类的触发词副本
func (c *Catalog) Phrases(category Category) []string {
	return append([]string(nil), c.phrases[category]...)
}

// Sensitivity 返回分类的敏感度，配置值非法时返回 ErrConfig
func (c *Catalog) Sensitivity(category Category) (Severity, error) {
	key, ok := sensitivityKeys[category]
	if !ok {
		// 正向指标不参与敏感度配置
		return SeverityLow, nil
	}
	s, ok := c.policy.PatternSensitivity[key]
	if !ok {
		return "", fmt.Errorf("%w: no sensitivity configured for %s", ErrConfig, key)
	}
	if !s.Valid() {
		return "", fmt.Errorf("%w: invalid sensitivity level for %s: %s", ErrConfig, key, s)
	}
	return s, nil
}

// Setting 读取 behavior 下的开关
func (c *Catalog) Setting(name string) (any, bool) {
	return c.policy.Get("behavior." + name)
}

// Policy 返回目录持有的策略副本
func (c *Catalog) Policy() Policy {
	return c.policy.Clone()
}

// matches 对已小写的文本做子串匹配
func (c *Catalog) matches(category Category, lowered string) bool {
	if lowered == "" {
		return false
	}
	for _, phrase := range c.phrases[category] {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
