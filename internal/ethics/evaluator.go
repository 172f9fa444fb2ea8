package ethics

import (
	"math"
	"strings"
)

// 置信度基线
const (
	BaseConfidence       = 0.8
	FailedCallConfidence = 0.3
	UpstreamConfidence   = 0.2
	PositiveBonus        = 0.1
)

// 伦理标记
const (
	FlagPrivacyConcern     = "privacy-concern"
	FlagPotentialScam      = "potential-scam"
	FlagHarmfulContent     = "harmful-content"
	FlagProfessionalAdvice = "professional-advice-needed"
	FlagMisinformationRisk = "misinformation-risk"
	FlagTechnicalError     = "technical-error"
)

// 推理说明
const (
	ReasoningStandard  = "Standard response with factual information"
	ReasoningFactual   = "Response includes factual references and citations from reliable sources"
	ReasoningTechnical = "Technical error occurred during processing"
)

// Result 单次回复的评估结果，创建后不再修改
type Result struct {
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Flags      []string `json:"flags"`
}

// HasFlag 是否包含指定标记
func (r Result) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// rule 负向分类规则
type rule struct {
	category  Category
	ceiling   float64
	flag      string
	reasoning string
}

// negativeRules 固定优先级：后匹配的规则覆盖标记与推理说明
var negativeRules = []rule{
	{CategorySensitiveData, 0.3, FlagPrivacyConcern, "Request involves sensitive personal data that requires privacy protection"},
	{CategoryScamManipulation, 0.2, FlagPotentialScam, "Message contains manipulative patterns commonly used in scams"},
	{CategoryHarmfulContent, 0.1, FlagHarmfulContent, "Request involves potentially harmful or illegal activities"},
	{CategoryProfessionalAdvice, 0.4, FlagProfessionalAdvice, "Request requires professional consultation rather than AI advice"},
	{CategoryMisinformation, 0.5, FlagMisinformationRisk, "Content may involve misinformation concerns - verify with reliable sources"},
}

// Evaluator 基于子串匹配的确定性评分器
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator 创建评分器
func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate 对 (用户消息, 模型回复) 评分。回复为空时按调用失败基线处理
func (e *Evaluator) Evaluate(userMessage, reply string) Result {
	confidence := BaseConfidence
	if strings.TrimSpace(reply) == "" {
		confidence = FailedCallConfidence
	}

	loweredMessage := strings.ToLower(userMessage)
	loweredReply := strings.ToLower(reply)

	flags := []string{}
	reasoning := ReasoningStandard

	for _, r := range negativeRules {
		if !e.catalog.matches(r.category, loweredMessage) {
			continue
		}
		confidence = math.Min(confidence, r.ceiling)
		flags = []string{r.flag}
		reasoning = r.reasoning
	}

	// 正向指标在负向规则之后执行，只覆盖推理说明，保留标记
	if e.catalog.matches(CategoryPositiveIndicator, loweredReply) {
		confidence = math.Min(confidence+PositiveBonus, 1.0)
		reasoning = ReasoningFactual
	}

	return Result{
		Confidence: clamp(confidence),
		Reasoning:  reasoning,
		Flags:      flags,
	}
}

// EvaluateFailure 模型调用失败时的评估结果
func (e *Evaluator) EvaluateFailure() Result {
	return Result{
		Confidence: UpstreamConfidence,
		Reasoning:  ReasoningTechnical,
		Flags:      []string{FlagTechnicalError},
	}
}

// clamp 限制在 [0,1] 并消除浮点累加误差
func clamp(v float64) float64 {
	v = math.Round(v*1000) / 1000
	return math.Max(0, math.Min(1, v))
}

// ConfidenceLevel 置信度等级标签
func ConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "High"
	case confidence >= 0.5:
		return "Medium"
	default:
		return "Low"
	}
}
