package ethics

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity 敏感度等级
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid 是否为合法的敏感度等级
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// 透明度等级
const (
	TransparencyLow    = "low"
	TransparencyMedium = "medium"
	TransparencyHigh   = "high"
)

// Policy 伦理策略配置快照
type Policy struct {
	Behavior           BehaviorPolicy      `yaml:"behavior" json:"behavior"`
	UI                 UIPolicy            `yaml:"ui" json:"ui"`
	Monitoring         MonitoringPolicy    `yaml:"monitoring" json:"monitoring"`
	Processing         ProcessingPolicy    `yaml:"processing" json:"processing"`
	Appeals            AppealsPolicy       `yaml:"appeals" json:"appeals"`
	PatternSensitivity map[string]Severity `yaml:"patternSensitivity" json:"patternSensitivity"`
}

// BehaviorPolicy 系统行为开关
type BehaviorPolicy struct {
	StrictMode               bool    `yaml:"strictMode" json:"strictMode"`
	TransparencyLevel        string  `yaml:"transparencyLevel" json:"transparencyLevel"` // low, medium, high
	AppealEnabled            bool    `yaml:"appealEnabled" json:"appealEnabled"`
	ConfidenceThreshold      float64 `yaml:"confidenceThreshold" json:"confidenceThreshold"`
	BiasDetectionSensitivity string  `yaml:"biasDetectionSensitivity" json:"biasDetectionSensitivity"`
}

// UIPolicy 展示层开关
type UIPolicy struct {
	ShowConfidenceIndicators bool `yaml:"showConfidenceIndicators" json:"showConfidenceIndicators"`
	ShowTransparencyDetails  bool `yaml:"showTransparencyDetails" json:"showTransparencyDetails"`
	ShowAppealButtons        bool `yaml:"showAppealButtons" json:"showAppealButtons"`
	ColorCodeConfidence      bool `yaml:"colorCodeConfidence" json:"colorCodeConfidence"`
	ExpandableDetails        bool `yaml:"expandableDetails" json:"expandableDetails"`
}

// MonitoringPolicy 日志与保留策略
type MonitoringPolicy struct {
	LogEthicalDecisions bool `yaml:"logEthicalDecisions" json:"logEthicalDecisions"`
	LogAppeals          bool `yaml:"logAppeals" json:"logAppeals"`
	LogBiasDetection    bool `yaml:"logBiasDetection" json:"logBiasDetection"`
	RetainLogsFor       int  `yaml:"retainLogsFor" json:"retainLogsFor"` // 天
}

// ProcessingPolicy 回复处理配置
type ProcessingPolicy struct {
	ValidateAllResponses  bool `yaml:"validateAllResponses" json:"validateAllResponses"`
	AddTransparencyInfo   bool `yaml:"addTransparencyInfo" json:"addTransparencyInfo"`
	FlagPotentialBias     bool `yaml:"flagPotentialBias" json:"flagPotentialBias"`
	RequireSourceCitation bool `yaml:"requireSourceCitation" json:"requireSourceCitation"`
	MaxResponseLength     int  `yaml:"maxResponseLength" json:"maxResponseLength"`
}

// AppealsPolicy 申诉配置
type AppealsPolicy struct {
	CategorizeAppeals        bool `yaml:"categorizeAppeals" json:"categorizeAppeals"`
	ProvideImmediateFeedback bool `yaml:"provideImmediateFeedback" json:"provideImmediateFeedback"`
	SuggestAlternatives      bool `yaml:"suggestAlternatives" json:"suggestAlternatives"`
	TrackAppealStats         bool `yaml:"trackAppealStats" json:"trackAppealStats"`
	MaxAppealsPerSession     int  `yaml:"maxAppealsPerSession" json:"maxAppealsPerSession"`
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		Behavior: BehaviorPolicy{
			StrictMode:               true,
			TransparencyLevel:        TransparencyHigh,
			AppealEnabled:            true,
			ConfidenceThreshold:      0.7,
			BiasDetectionSensitivity: "medium",
		},
		UI: UIPolicy{
			ShowConfidenceIndicators: true,
			ShowTransparencyDetails:  true,
			ShowAppealButtons:        true,
			ColorCodeConfidence:      true,
			ExpandableDetails:        true,
		},
		Monitoring: MonitoringPolicy{
			LogEthicalDecisions: true,
			LogAppeals:          true,
			LogBiasDetection:    true,
			RetainLogsFor:       30,
		},
		Processing: ProcessingPolicy{
			ValidateAllResponses:  true,
			AddTransparencyInfo:   true,
			FlagPotentialBias:     true,
			RequireSourceCitation: false,
			MaxResponseLength:     2000,
		},
		Appeals: AppealsPolicy{
			CategorizeAppeals:        true,
			ProvideImmediateFeedback: true,
			SuggestAlternatives:      true,
			TrackAppealStats:         true,
			MaxAppealsPerSession:     10,
		},
		PatternSensitivity: map[string]Severity{
			"misinformation":     SeverityHigh,
			"scams":              SeverityHigh,
			"sensitiveInfo":      SeverityHigh,
			"professionalAdvice": SeverityMedium,
			"harmfulContent":     SeverityCritical,
			"bias":               SeverityMedium,
		},
	}
}

// Clone 深拷贝
func (p Policy) Clone() Policy {
	out := p
	out.PatternSensitivity = make(map[string]Severity, len(p.PatternSensitivity))
	for k, v := range p.PatternSensitivity {
		out.PatternSensitivity[k] = v
	}
	return out
}

// ValidationReport 配置校验结果
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Validate 校验敏感度、透明度等级和置信度阈值，每个问题一条记录
func (p Policy) Validate() ValidationReport {
	issues := []string{}

	keys := make([]string, 0, len(p.PatternSensitivity))
	for k := range p.PatternSensitivity {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := p.PatternSensitivity[k]; !v.Valid() {
			issues = append(issues, fmt.Sprintf("Invalid sensitivity level for %s: %s", k, v))
		}
	}

	if !validTransparencyLevel(p.Behavior.TransparencyLevel) {
		issues = append(issues, fmt.Sprintf("Invalid transparency level: %s", p.Behavior.TransparencyLevel))
	}

	// NaN 同样不满足区间条件
	if t := p.Behavior.ConfidenceThreshold; !(t >= 0 && t <= 1) {
		issues = append(issues, fmt.Sprintf("Invalid confidence threshold: %v", t))
	}

	return ValidationReport{
		Valid:  len(issues) == 0,
		Issues: issues,
	}
}

func validTransparencyLevel(level string) bool {
	switch level {
	case TransparencyLow, TransparencyMedium, TransparencyHigh:
		return true
	}
	return false
}

const sensitivityPrefix = "patternSensitivity."

// policyField 已知路径到类型化字段的映射
type policyField struct {
	get func(p *Policy) any
	set func(p *Policy, v any) error
}

func boolField(ref func(p *Policy) *bool) policyField {
	return policyField{
		get: func(p *Policy) any { return *ref(p) },
		set: func(p *Policy, v any) error {
			b, err := toBool(v)
			if err != nil {
				return err
			}
			*ref(p) = b
			return nil
		},
	}
}

func intField(ref func(p *Policy) *int) policyField {
	return policyField{
		get: func(p *Policy) any { return *ref(p) },
		set: func(p *Policy, v any) error {
			n, err := toInt(v)
			if err != nil {
				return err
			}
			*ref(p) = n
			return nil
		},
	}
}

func floatField(ref func(p *Policy) *float64) policyField {
	return policyField{
		get: func(p *Policy) any { return *ref(p) },
		set: func(p *Policy, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			*ref(p) = f
			return nil
		},
	}
}

func stringField(ref func(p *Policy) *string) policyField {
	return policyField{
		get: func(p *Policy) any { return *ref(p) },
		set: func(p *Policy, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, v)
			}
			*ref(p) = s
			return nil
		},
	}
}

var policyFields = map[string]policyField{
	"behavior.strictMode":               boolField(func(p *Policy) *bool { return &p.Behavior.StrictMode }),
	"behavior.transparencyLevel":        stringField(func(p *Policy) *string { return &p.Behavior.TransparencyLevel }),
	"behavior.appealEnabled":            boolField(func(p *Policy) *bool { return &p.Behavior.AppealEnabled }),
	"behavior.confidenceThreshold":      floatField(func(p *Policy) *float64 { return &p.Behavior.ConfidenceThreshold }),
	"behavior.biasDetectionSensitivity": stringField(func(p *Policy) *string { return &p.Behavior.BiasDetectionSensitivity }),

	"ui.showConfidenceIndicators": boolField(func(p *Policy) *bool { return &p.UI.ShowConfidenceIndicators }),
	"ui.showTransparencyDetails":  boolField(func(p *Policy) *bool { return &p.UI.ShowTransparencyDetails }),
	"ui.showAppealButtons":        boolField(func(p *Policy) *bool { return &p.UI.ShowAppealButtons }),
	"ui.colorCodeConfidence":      boolField(func(p *Policy) *bool { return &p.UI.ColorCodeConfidence }),
	"ui.expandableDetails":        boolField(func(p *Policy) *bool { return &p.UI.ExpandableDetails }),

	"monitoring.logEthicalDecisions": boolField(func(p *Policy) *bool { return &p.Monitoring.LogEthicalDecisions }),
	"monitoring.logAppeals":          boolField(func(p *Policy) *bool { return &p.Monitoring.LogAppeals }),
	"monitoring.logBiasDetection":    boolField(func(p *Policy) *bool { return &p.Monitoring.LogBiasDetection }),
	"monitoring.retainLogsFor":       intField(func(p *Policy) *int { return &p.Monitoring.RetainLogsFor }),

	"processing.validateAllResponses":  boolField(func(p *Policy) *bool { return &p.Processing.ValidateAllResponses }),
	"processing.addTransparencyInfo":   boolField(func(p *Policy) *bool { return &p.Processing.AddTransparencyInfo }),
	"processing.flagPotentialBias":     boolField(func(p *Policy) *bool { return &p.Processing.FlagPotentialBias }),
	"processing.requireSourceCitation": boolField(func(p *Policy) *bool { return &p.Processing.RequireSourceCitation }),
	"processing.maxResponseLength":     intField(func(p *Policy) *int { return &p.Processing.MaxResponseLength }),

	"appeals.categorizeAppeals":        boolField(func(p *Policy) *bool { return &p.Appeals.CategorizeAppeals }),
	"appeals.provideImmediateFeedback": boolField(func(p *Policy) *bool { return &p.Appeals.ProvideImmediateFeedback }),
	"appeals.suggestAlternatives":      boolField(func(p *Policy) *bool { return &p.Appeals.SuggestAlternatives }),
	"appeals.trackAppealStats":         boolField(func(p *Policy) *bool { return &p.Appeals.TrackAppealStats }),
	"appeals.maxAppealsPerSession":     intField(func(p *Policy) *int { return &p.Appeals.MaxAppealsPerSession }),
}

// Get 按点分路径读取配置，路径不存在时 ok 为 false
func (p Policy) Get(path string) (value any, ok bool) {
	switch path {
	case "behavior":
		return p.Behavior, true
	case "ui":
		return p.UI, true
	case "monitoring":
		return p.Monitoring, true
	case "processing":
		return p.Processing, true
	case "appeals":
		return p.Appeals, true
	case "patternSensitivity":
		return p.Clone().PatternSensitivity, true
	}

	if key, found := strings.CutPrefix(path, sensitivityPrefix); found {
		v, exists := p.PatternSensitivity[key]
		if !exists {
			return nil, false
		}
		return v, true
	}

	field, exists := policyFields[path]
	if !exists {
		return nil, false
	}
	return field.get(&p), true
}

// Update 按点分路径更新配置。值的取值范围不在此处检查，由 Validate 报告
func (p *Policy) Update(path string, value any) error {
	if key, found := strings.CutPrefix(path, sensitivityPrefix); found {
		if key == "" || strings.Contains(key, ".") {
			return fmt.Errorf("%w: %s", ErrUnknownPath, path)
		}
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case Severity:
			s = string(v)
		default:
			return fmt.Errorf("%w: expected severity string, got %T", ErrInvalidValue, value)
		}
		if p.PatternSensitivity == nil {
			p.PatternSensitivity = make(map[string]Severity)
		}
		p.PatternSensitivity[key] = Severity(s)
		return nil
	}

	field, ok := policyFields[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	if err := field.set(p, value); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Paths 列出所有可寻址的叶子路径（已排序）
func (p Policy) Paths() []string {
	paths := make([]string, 0, len(policyFields)+len(p.PatternSensitivity))
	for k := range policyFields {
		paths = append(paths, k)
	}
	for k := range p.PatternSensitivity {
		paths = append(paths, sensitivityPrefix+k)
	}
	sort.Strings(paths)
	return paths
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, x)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: expected boolean, got %T", ErrInvalidValue, v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidValue, v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidValue, v)
}

// LoadPolicy 从 YAML 文件加载策略，缺失字段使用默认值
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("读取策略文件失败: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy 解析 YAML 策略
func ParsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("解析策略文件失败: %w", err)
	}
	return p, nil
}

// SavePolicy 将策略写回 YAML 文件
func SavePolicy(path string, p Policy) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("序列化策略失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入策略文件失败: %w", err)
	}
	return nil
}
